package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus is the lifecycle state of a delivery auction
type AuctionStatus string

const (
	AuctionOpen           AuctionStatus = "open"
	AuctionResolvedAuto   AuctionStatus = "resolved_auto"
	AuctionResolvedManual AuctionStatus = "resolved_manual"
)

// Resolved reports whether the status is terminal
func (s AuctionStatus) Resolved() bool {
	return s == AuctionResolvedAuto || s == AuctionResolvedManual
}

// Auction represents the time-boxed bidding process for one ready order.
// OpenedAt is set by the first bid, not by order readiness; the bidding
// window runs from there.
type Auction struct {
	AuctionID string        `json:"auction_id"`
	OrderID   string        `json:"order_id"`
	OpenedAt  time.Time     `json:"opened_at"`
	ClosedAt  *time.Time    `json:"closed_at,omitempty"`
	Status    AuctionStatus `json:"status"`
	Memo      string        `json:"memo,omitempty"`
}

// Bid represents a driver's offer to deliver an order for the given fee
type Bid struct {
	BidID     string          `json:"bid_id"`
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	PlacedAt  time.Time       `json:"placed_at"`
	IsWinner  bool            `json:"is_winner"`
}

// OrderStatus is the subset of order states the auction engine cares about
type OrderStatus string

const (
	OrderReadyForDelivery OrderStatus = "ready_for_delivery"
	OrderInTransit        OrderStatus = "in_transit"
)

// Order is the narrow view of an order held by the order directory
type Order struct {
	OrderID          string          `json:"order_id"`
	CustomerID       string          `json:"customer_id"`
	DeliveryPersonID string          `json:"delivery_person_id,omitempty"`
	Status           OrderStatus     `json:"status"`
	TotalPrice       decimal.Decimal `json:"total_price"`
}
