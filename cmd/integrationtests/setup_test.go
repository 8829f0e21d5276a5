package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	auction "delivery-auction/internal/auctionService"
	"delivery-auction/internal/events"
	model "delivery-auction/internal/models"
	"delivery-auction/internal/orders"
	"delivery-auction/internal/repository"
	"delivery-auction/internal/server"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/gin-gonic/gin"
)

var testStart = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

const testWindow = 5 * time.Minute

// SetupTestRouterWithOrders initializes the router over in-memory storage,
// seeds the order directory, and returns the fake clock so tests can move
// time past the bidding deadline.
func SetupTestRouterWithOrders(orderList ...model.Order) (*gin.Engine, *fakeclock.FakeClock) {
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	dir := orders.NewMemoryOrders()
	dir.Provision(orderList)

	clk := fakeclock.NewFakeClock(testStart)
	service := auction.NewAuctionService(repo, dir, events.NopPublisher{}, clk, auction.Config{
		BiddingWindow: testWindow,
	})
	router := server.SetupRouter(service)
	return router, clk
}

// ExecuteRequestAndParse executes an HTTP request on the given router and parses the response
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		err := json.Unmarshal(w.Body.Bytes(), &resp)
		if err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}

	return resp, w
}
