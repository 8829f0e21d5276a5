package helpers

import "github.com/shopspring/decimal"

// Request/Response DTOs
type PlaceBidRequest struct {
	OrderID  string          `json:"order_id" binding:"required"`
	DriverID string          `json:"driver_id" binding:"required"`
	Amount   decimal.Decimal `json:"amount" binding:"required"`
}

type ManualAssignRequest struct {
	OrderID  string `json:"order_id" binding:"required"`
	DriverID string `json:"driver_id" binding:"required"`
	Memo     string `json:"memo"`
}

type BidResponse struct {
	BidID     string `json:"bid_id"`
	AuctionID string `json:"auction_id"`
	BidderID  string `json:"bidder_id"`
	Amount    string `json:"amount"`
	PlacedAt  string `json:"placed_at"`
	IsWinner  bool   `json:"is_winner"`
}

type AuctionResponse struct {
	AuctionID        string        `json:"auction_id"`
	OrderID          string        `json:"order_id"`
	Status           string        `json:"status"`
	OpenedAt         string        `json:"opened_at"`
	ClosedAt         string        `json:"closed_at,omitempty"`
	Memo             string        `json:"memo,omitempty"`
	RemainingSeconds int64         `json:"remaining_seconds"`
	Bids             []BidResponse `json:"bids"`
}
