package repository

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"delivery-auction/internal/auctionerrors"
	model "delivery-auction/internal/models"
	"delivery-auction/utils"
)

// AuctionStore defines storage for delivery auctions and their bid ledgers.
// Open-state checks happen inside the store so a bid can never be appended
// to an auction that a concurrent resolution has already closed.
type AuctionStore interface {
	GetOrOpenAuction(orderID string, now time.Time) (model.Auction, error)
	AuctionByID(auctionID string) (model.Auction, error)
	AuctionForOrder(orderID string) (model.Auction, error)
	ListOpenAuctions() ([]model.Auction, error)
	AppendBid(bid model.Bid) (model.Bid, error)
	BidsForAuction(auctionID string) ([]model.Bid, error)
	BidsByBidder(bidderID string) ([]model.Bid, error)
	ResolveAuction(auctionID, winnerBidID string, status model.AuctionStatus, memo string, now time.Time) (model.Auction, error)
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionStore
type MemoryRepo struct {
	mu          sync.RWMutex
	auctions    map[string]*model.Auction // key: auctionID
	openByOrder map[string]string         // key: orderID -> open auctionID
	lastByOrder map[string]string         // key: orderID -> most recent auctionID
	bids        map[string][]model.Bid    // key: auctionID -> bids, one per bidder
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions:    make(map[string]*model.Auction),
		openByOrder: make(map[string]string),
		lastByOrder: make(map[string]string),
		bids:        make(map[string][]model.Bid),
	}
}

// GetOrOpenAuction returns the open auction for the order, creating one with
// opened_at = now if none exists. An existing auction is returned unchanged;
// later bids never reset the window.
func (r *MemoryRepo) GetOrOpenAuction(orderID string, now time.Time) (model.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.openByOrder[orderID]; ok {
		return cloneAuction(r.auctions[id]), nil
	}

	auction := &model.Auction{
		AuctionID: utils.GenerateID(),
		OrderID:   orderID,
		OpenedAt:  now,
		Status:    model.AuctionOpen,
	}
	r.auctions[auction.AuctionID] = auction
	r.openByOrder[orderID] = auction.AuctionID
	r.lastByOrder[orderID] = auction.AuctionID

	return cloneAuction(auction), nil
}

// AuctionByID returns the auction with the given id
func (r *MemoryRepo) AuctionByID(auctionID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return cloneAuction(auction), nil
}

// AuctionForOrder returns the most recent auction for an order, open or resolved
func (r *MemoryRepo) AuctionForOrder(orderID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.lastByOrder[orderID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction for order %s: %w", orderID, auctionerrors.ErrAuctionNotFound)
	}
	return cloneAuction(r.auctions[id]), nil
}

// ListOpenAuctions returns all auctions still accepting bids, oldest first
func (r *MemoryRepo) ListOpenAuctions() ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	open := make([]model.Auction, 0, len(r.openByOrder))
	for _, id := range r.openByOrder {
		open = append(open, cloneAuction(r.auctions[id]))
	}
	sort.Slice(open, func(i, j int) bool {
		if open[i].OpenedAt.Equal(open[j].OpenedAt) {
			return open[i].AuctionID < open[j].AuctionID
		}
		return open[i].OpenedAt.Before(open[j].OpenedAt)
	})
	return open, nil
}

// AppendBid records a bid on an open auction. A driver re-bidding on the same
// auction replaces their earlier bid: amount and placed_at are updated on the
// existing record, so the ledger keeps one row per (auction, bidder).
func (r *MemoryRepo) AppendBid(bid model.Bid) (model.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	auction, ok := r.auctions[bid.AuctionID]
	if !ok {
		return model.Bid{}, fmt.Errorf("record bid on auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	if auction.Status != model.AuctionOpen {
		return model.Bid{}, fmt.Errorf("record bid on auction %s (status %s): %w", bid.AuctionID, auction.Status, auctionerrors.ErrInvalidAuctionState)
	}

	bids := r.bids[bid.AuctionID]
	for i := range bids {
		if bids[i].BidderID == bid.BidderID {
			bids[i].Amount = bid.Amount
			bids[i].PlacedAt = bid.PlacedAt
			return bids[i], nil
		}
	}
	r.bids[bid.AuctionID] = append(bids, bid)

	return bid, nil
}

// BidsForAuction returns the auction's bids ordered by placement time.
// An open auction with no bids yields an empty slice, not an error.
func (r *MemoryRepo) BidsForAuction(auctionID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}

	bids := append([]model.Bid(nil), r.bids[auctionID]...)
	sort.Slice(bids, func(i, j int) bool {
		if bids[i].PlacedAt.Equal(bids[j].PlacedAt) {
			return bids[i].BidID < bids[j].BidID
		}
		return bids[i].PlacedAt.Before(bids[j].PlacedAt)
	})
	return bids, nil
}

// BidsByBidder returns every bid a driver has placed, newest first
func (r *MemoryRepo) BidsByBidder(bidderID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var bids []model.Bid
	for _, ledger := range r.bids {
		for _, b := range ledger {
			if b.BidderID == bidderID {
				bids = append(bids, b)
			}
		}
	}
	sort.Slice(bids, func(i, j int) bool {
		return bids[i].PlacedAt.After(bids[j].PlacedAt)
	})
	return bids, nil
}

// ResolveAuction transitions an open auction to a terminal status, marking at
// most one winning bid. winnerBidID may be empty for a manual assignment of a
// driver who never bid. Calling it on a resolved auction fails with
// ErrAlreadyResolved and changes nothing.
func (r *MemoryRepo) ResolveAuction(auctionID, winnerBidID string, status model.AuctionStatus, memo string, now time.Time) (model.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("resolve auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if auction.Status != model.AuctionOpen {
		return model.Auction{}, fmt.Errorf("resolve auction %s (status %s): %w", auctionID, auction.Status, auctionerrors.ErrAlreadyResolved)
	}
	if !status.Resolved() {
		return model.Auction{}, fmt.Errorf("resolve auction %s: %s is not a terminal status", auctionID, status)
	}

	if winnerBidID != "" {
		bids := r.bids[auctionID]
		found := false
		for i := range bids {
			if bids[i].BidID == winnerBidID {
				bids[i].IsWinner = true
				found = true
				break
			}
		}
		if !found {
			return model.Auction{}, fmt.Errorf("resolve auction %s: winning bid %s not in ledger", auctionID, winnerBidID)
		}
	}

	closedAt := now
	auction.ClosedAt = &closedAt
	auction.Status = status
	auction.Memo = memo
	delete(r.openByOrder, auction.OrderID)

	return cloneAuction(auction), nil
}

func cloneAuction(a *model.Auction) model.Auction {
	out := *a
	if a.ClosedAt != nil {
		closedAt := *a.ClosedAt
		out.ClosedAt = &closedAt
	}
	return out
}
