package handler

import (
	"fmt"
	"net/http"
	"time"

	auction "delivery-auction/internal/auctionService"
	model "delivery-auction/internal/models"
	"delivery-auction/services/auction/helpers"
	"delivery-auction/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type AuctionServiceInterface interface {
	PlaceBid(orderID, driverID string, amount decimal.Decimal) (model.Bid, error)
	ListOpenAuctions() ([]auction.AuctionWithBids, error)
	ManualAssign(orderID, driverID, memo string) (model.Auction, error)
	BidsByBidder(driverID string) ([]model.Bid, error)
}

type AuctionHandler struct {
	service AuctionServiceInterface
}

func NewAuctionHandler(service AuctionServiceInterface) *AuctionHandler {
	return &AuctionHandler{service: service}
}

// PlaceBidHandler handles POST /bids
func (h *AuctionHandler) PlaceBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	bid, err := h.service.PlaceBid(req.OrderID, req.DriverID, req.Amount)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("PlaceBidHandler: failed to place bid", map[string]any{
			"handler":   "PlaceBidHandler",
			"order_id":  req.OrderID,
			"driver_id": req.DriverID,
			"error":     err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, toBidResponse(bid), "bid placed successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid placed successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": bid.AuctionID,
		"order_id":   req.OrderID,
		"driver_id":  req.DriverID,
		"amount":     bid.Amount.String(),
	})
}

// ListOpenAuctionsHandler handles GET /auctions. Listing sweeps expired
// auctions first, so the response only ever contains auctions still open.
func (h *AuctionHandler) ListOpenAuctionsHandler(c *gin.Context) {
	open, err := h.service.ListOpenAuctions()
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("ListOpenAuctionsHandler: error listing auctions", map[string]any{"error": err.Error()})
		return
	}

	resp := make([]helpers.AuctionResponse, 0, len(open))
	for _, a := range open {
		resp = append(resp, toAuctionResponse(a.Auction, a.Bids, a.RemainingSeconds))
	}

	utils.JSONResponse(c, http.StatusOK, resp, "open auctions retrieved successfully")
	helpers.LogSuccess("ListOpenAuctionsHandler", "open auctions retrieved successfully", map[string]any{
		"count": len(resp),
	})
}

// ManualAssignHandler handles POST /auctions/assign
func (h *AuctionHandler) ManualAssignHandler(c *gin.Context) {
	var req helpers.ManualAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "ManualAssignHandler", err)
		return
	}

	closed, err := h.service.ManualAssign(req.OrderID, req.DriverID, req.Memo)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("ManualAssignHandler: failed to assign order", map[string]any{
			"order_id":  req.OrderID,
			"driver_id": req.DriverID,
			"error":     err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, toAuctionResponse(closed, nil, 0), "order assigned successfully")
	helpers.LogSuccess("ManualAssignHandler", "order assigned successfully", map[string]any{
		"auction_id": closed.AuctionID,
		"order_id":   req.OrderID,
		"driver_id":  req.DriverID,
	})
}

// GetBidsByDriverHandler handles GET /drivers/:driver_id/bids
func (h *AuctionHandler) GetBidsByDriverHandler(c *gin.Context) {
	driverID := c.Param("driver_id")
	bids, err := h.service.BidsByBidder(driverID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetBidsByDriverHandler: error retrieving bids", map[string]any{"driver_id": driverID, "error": err.Error()})
		return
	}

	resp := make([]helpers.BidResponse, 0, len(bids))
	for _, b := range bids {
		resp = append(resp, toBidResponse(b))
	}

	utils.JSONResponse(c, http.StatusOK, resp, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByDriverHandler", "bids retrieved successfully", map[string]any{
		"driver_id": driverID,
		"count":     len(resp),
	})
}

func toBidResponse(bid model.Bid) helpers.BidResponse {
	return helpers.BidResponse{
		BidID:     bid.BidID,
		AuctionID: bid.AuctionID,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount.String(),
		PlacedAt:  bid.PlacedAt.UTC().Format(time.RFC3339),
		IsWinner:  bid.IsWinner,
	}
}

func toAuctionResponse(a model.Auction, bids []model.Bid, remainingSeconds int64) helpers.AuctionResponse {
	resp := helpers.AuctionResponse{
		AuctionID:        a.AuctionID,
		OrderID:          a.OrderID,
		Status:           string(a.Status),
		OpenedAt:         a.OpenedAt.UTC().Format(time.RFC3339),
		Memo:             a.Memo,
		RemainingSeconds: remainingSeconds,
		Bids:             make([]helpers.BidResponse, 0, len(bids)),
	}
	if a.ClosedAt != nil {
		resp.ClosedAt = a.ClosedAt.UTC().Format(time.RFC3339)
	}
	for _, b := range bids {
		resp.Bids = append(resp.Bids, toBidResponse(b))
	}
	return resp
}
