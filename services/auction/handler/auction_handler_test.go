package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"delivery-auction/internal/auctionerrors"
	auction "delivery-auction/internal/auctionService"
	model "delivery-auction/internal/models"
	"delivery-auction/services/auction/helpers"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func performRequest(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	switch v := body.(type) {
	case nil:
	case string:
		reqBody = []byte(v)
	default:
		var err error
		reqBody, err = json.Marshal(v)
		require.NoError(t, err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return resp, w
}

// Test PlaceBidHandler
func TestPlaceBidHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockAuctionServiceInterface(ctrl)
	h := NewAuctionHandler(mockService)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/bids", h.PlaceBidHandler)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		requestBody    any
		mockSetup      func()
		expectedStatus int
		expectedMsg    string
		validateData   func(t *testing.T, data map[string]any)
	}{
		{
			name: "success_valid_bid",
			requestBody: helpers.PlaceBidRequest{
				OrderID:  "order1",
				DriverID: "driver1",
				Amount:   decimal.NewFromFloat(7.50),
			},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid("order1", "driver1", gomock.Any()).
					Return(model.Bid{
						BidID:     uuid.NewString(),
						AuctionID: uuid.NewString(),
						BidderID:  "driver1",
						Amount:    decimal.NewFromFloat(7.50),
						PlacedAt:  now,
					}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "bid placed successfully",
			validateData: func(t *testing.T, data map[string]any) {
				bidID := data["bid_id"].(string)
				require.NotEmpty(t, bidID)
				_, parseErr := uuid.Parse(bidID)
				require.NoError(t, parseErr, "BidID should be a valid UUID")
				require.Equal(t, "driver1", data["bidder_id"])
				require.Equal(t, "7.5", data["amount"])
				require.Equal(t, false, data["is_winner"])

				_, timeErr := time.Parse(time.RFC3339, data["placed_at"].(string))
				require.NoError(t, timeErr)
			},
		},
		{
			name:           "invalid_json",
			requestBody:    `{order_id: 'missing quotes'}`,
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name: "missing_order_id",
			requestBody: helpers.PlaceBidRequest{
				DriverID: "driver1",
				Amount:   decimal.NewFromFloat(7.50),
			},
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name: "missing_driver_id",
			requestBody: helpers.PlaceBidRequest{
				OrderID: "order1",
				Amount:  decimal.NewFromFloat(7.50),
			},
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name: "negative_amount_rejected_by_service",
			requestBody: helpers.PlaceBidRequest{
				OrderID:  "order1",
				DriverID: "driver1",
				Amount:   decimal.NewFromInt(-1),
			},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid("order1", "driver1", gomock.Any()).
					Return(model.Bid{}, fmt.Errorf("service: %w", auctionerrors.ErrInvalidAmount))
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid bid amount",
		},
		{
			name: "auction_closed",
			requestBody: helpers.PlaceBidRequest{
				OrderID:  "order1",
				DriverID: "driver1",
				Amount:   decimal.NewFromFloat(7.50),
			},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid("order1", "driver1", gomock.Any()).
					Return(model.Bid{}, fmt.Errorf("service: %w", auctionerrors.ErrInvalidAuctionState))
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "auction is not open for bidding",
		},
		{
			name: "unknown_order",
			requestBody: helpers.PlaceBidRequest{
				OrderID:  "orderX",
				DriverID: "driver1",
				Amount:   decimal.NewFromFloat(7.50),
			},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid("orderX", "driver1", gomock.Any()).
					Return(model.Bid{}, fmt.Errorf("service: %w", auctionerrors.ErrOrderNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "order not found",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()

			resp, w := performRequest(t, router, http.MethodPost, "/bids", tc.requestBody)
			require.Equal(t, tc.expectedStatus, w.Code)
			require.Equal(t, tc.expectedMsg, resp["message"])

			if tc.validateData != nil {
				tc.validateData(t, resp["data"].(map[string]any))
			}
		})
	}
}

// Test ListOpenAuctionsHandler
func TestListOpenAuctionsHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockAuctionServiceInterface(ctrl)
	h := NewAuctionHandler(mockService)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/auctions", h.ListOpenAuctionsHandler)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mockService.EXPECT().ListOpenAuctions().Return([]auction.AuctionWithBids{
		{
			Auction: model.Auction{
				AuctionID: "auction1",
				OrderID:   "order1",
				OpenedAt:  now,
				Status:    model.AuctionOpen,
			},
			Bids: []model.Bid{
				{BidID: "bid1", AuctionID: "auction1", BidderID: "driver1", Amount: decimal.NewFromFloat(7.50), PlacedAt: now},
			},
			RemainingSeconds: 120,
		},
	}, nil)

	resp, w := performRequest(t, router, http.MethodGet, "/auctions", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := resp["data"].([]any)
	require.Len(t, data, 1)
	first := data[0].(map[string]any)
	require.Equal(t, "auction1", first["auction_id"])
	require.Equal(t, "order1", first["order_id"])
	require.Equal(t, string(model.AuctionOpen), first["status"])
	require.Equal(t, float64(120), first["remaining_seconds"])
	require.Len(t, first["bids"].([]any), 1)
}

// Test ManualAssignHandler
func TestManualAssignHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockAuctionServiceInterface(ctrl)
	h := NewAuctionHandler(mockService)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/auctions/assign", h.ManualAssignHandler)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		requestBody    any
		mockSetup      func()
		expectedStatus int
		expectedMsg    string
	}{
		{
			name: "success",
			requestBody: helpers.ManualAssignRequest{
				OrderID:  "order1",
				DriverID: "driver2",
				Memo:     "assigned by manager",
			},
			mockSetup: func() {
				closedAt := now
				mockService.EXPECT().
					ManualAssign("order1", "driver2", "assigned by manager").
					Return(model.Auction{
						AuctionID: "auction1",
						OrderID:   "order1",
						OpenedAt:  now.Add(-time.Minute),
						ClosedAt:  &closedAt,
						Status:    model.AuctionResolvedManual,
						Memo:      "assigned by manager",
					}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "order assigned successfully",
		},
		{
			name: "already_resolved_race",
			requestBody: helpers.ManualAssignRequest{
				OrderID:  "order1",
				DriverID: "driver2",
			},
			mockSetup: func() {
				mockService.EXPECT().
					ManualAssign("order1", "driver2", "").
					Return(model.Auction{}, fmt.Errorf("service: %w", auctionerrors.ErrAlreadyResolved))
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "auction already resolved",
		},
		{
			name:           "missing_driver_id",
			requestBody:    helpers.ManualAssignRequest{OrderID: "order1"},
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()

			resp, w := performRequest(t, router, http.MethodPost, "/auctions/assign", tc.requestBody)
			require.Equal(t, tc.expectedStatus, w.Code)
			require.Equal(t, tc.expectedMsg, resp["message"])
		})
	}
}

// Test GetBidsByDriverHandler
func TestGetBidsByDriverHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockAuctionServiceInterface(ctrl)
	h := NewAuctionHandler(mockService)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/drivers/:driver_id/bids", h.GetBidsByDriverHandler)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mockService.EXPECT().BidsByBidder("driver1").Return([]model.Bid{
		{BidID: "bid2", AuctionID: "auction2", BidderID: "driver1", Amount: decimal.NewFromFloat(6.00), PlacedAt: now.Add(time.Minute), IsWinner: true},
		{BidID: "bid1", AuctionID: "auction1", BidderID: "driver1", Amount: decimal.NewFromFloat(7.50), PlacedAt: now},
	}, nil)

	resp, w := performRequest(t, router, http.MethodGet, "/drivers/driver1/bids", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := resp["data"].([]any)
	require.Len(t, data, 2)
	first := data[0].(map[string]any)
	require.Equal(t, "bid2", first["bid_id"])
	require.Equal(t, true, first["is_winner"])

	// empty history is a 200 with an empty list
	mockService.EXPECT().BidsByBidder("driverX").Return(nil, nil)
	resp, w = performRequest(t, router, http.MethodGet, "/drivers/driverX/bids", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, resp["data"].([]any))
}
