package auction

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/shopspring/decimal"

	"delivery-auction/internal/auctionerrors"
	"delivery-auction/internal/events"
	model "delivery-auction/internal/models"
	"delivery-auction/internal/orders"
	"delivery-auction/internal/repository"
	"delivery-auction/utils"
)

// Config carries the tunables of the resolution engine
type Config struct {
	// BiddingWindow is how long an auction accepts bids after its first bid
	BiddingWindow time.Duration
	// EventsTopic is where resolution events are published
	EventsTopic string
}

const defaultBiddingWindow = 5 * time.Minute

// AuctionWithBids pairs an open auction with its ledger and the seconds left
// in its window. RemainingSeconds is clamped at zero: a zero-bid auction past
// its window reports 0 while staying open.
type AuctionWithBids struct {
	Auction          model.Auction
	Bids             []model.Bid
	RemainingSeconds int64
}

// AuctionService owns the delivery bidding state machine: it opens auctions
// on first bid, resolves them after the bidding window by picking the lowest
// bid, and applies manager overrides. Resolution is serialized per auction so
// the automatic sweep and a manual override can never both assign the order.
type AuctionService struct {
	store  repository.AuctionStore
	orders orders.OrderDirectory
	events events.Publisher
	clk    clock.Clock
	cfg    Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-auction resolution locks
}

// NewAuctionService creates a new AuctionService instance
func NewAuctionService(store repository.AuctionStore, dir orders.OrderDirectory, pub events.Publisher, clk clock.Clock, cfg Config) *AuctionService {
	if cfg.BiddingWindow <= 0 {
		cfg.BiddingWindow = defaultBiddingWindow
	}
	if cfg.EventsTopic == "" {
		cfg.EventsTopic = "auction-events"
	}
	return &AuctionService{
		store:  store,
		orders: dir,
		events: pub,
		clk:    clk,
		cfg:    cfg,
		locks:  make(map[string]*sync.Mutex),
	}
}

// PlaceBid validates and records a driver's bid for an order, opening the
// auction if this is the order's first bid. The bidding window starts at the
// first bid; later bids never move it.
func (s *AuctionService) PlaceBid(orderID, driverID string, amount decimal.Decimal) (model.Bid, error) {
	if orderID == "" || driverID == "" {
		return model.Bid{}, fmt.Errorf("service: %w - missing orderID or driverID", auctionerrors.ErrInvalidBid)
	}
	if !amount.IsPositive() {
		return model.Bid{}, fmt.Errorf("service: %w - got %s", auctionerrors.ErrInvalidAmount, amount)
	}

	awaiting, err := s.orders.IsAwaitingDriver(orderID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to check order %s: %w", orderID, err)
	}
	if !awaiting {
		return model.Bid{}, fmt.Errorf("service: order %s is not awaiting a driver: %w", orderID, auctionerrors.ErrInvalidAuctionState)
	}

	now := s.clk.Now().UTC()
	auction, err := s.store.GetOrOpenAuction(orderID, now)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to open auction for order %s: %w", orderID, err)
	}

	bid := model.Bid{
		BidID:     utils.GenerateID(),
		AuctionID: auction.AuctionID,
		BidderID:  driverID,
		Amount:    amount,
		PlacedAt:  now,
	}
	recorded, err := s.store.AppendBid(bid)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to record bid on auction %s: %w", auction.AuctionID, err)
	}

	return recorded, nil
}

// Sweep resolves every open auction whose bidding window has elapsed.
// Zero-bid auctions are skipped and stay open until a bid arrives. Safe to
// run concurrently; the per-auction lock keeps resolution single-shot.
func (s *AuctionService) Sweep() (int, error) {
	open, err := s.store.ListOpenAuctions()
	if err != nil {
		return 0, fmt.Errorf("service: failed to list open auctions: %w", err)
	}

	now := s.clk.Now().UTC()
	resolved := 0
	for _, auction := range open {
		if now.Before(s.deadline(auction)) {
			continue
		}
		done, err := s.resolveAuto(auction.AuctionID, now)
		if err != nil {
			utils.Error("sweep: failed to resolve auction", map[string]any{
				"auction_id": auction.AuctionID,
				"order_id":   auction.OrderID,
				"error":      err.Error(),
			})
			continue
		}
		if done {
			resolved++
		}
	}
	return resolved, nil
}

// ListOpenAuctions sweeps first, then returns the remaining open auctions
// with their bids and time left
func (s *AuctionService) ListOpenAuctions() ([]AuctionWithBids, error) {
	if _, err := s.Sweep(); err != nil {
		return nil, err
	}

	open, err := s.store.ListOpenAuctions()
	if err != nil {
		return nil, fmt.Errorf("service: failed to list open auctions: %w", err)
	}

	now := s.clk.Now().UTC()
	out := make([]AuctionWithBids, 0, len(open))
	for _, auction := range open {
		bids, err := s.store.BidsForAuction(auction.AuctionID)
		if err != nil {
			return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auction.AuctionID, err)
		}
		remaining := int64(s.deadline(auction).Sub(now) / time.Second)
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, AuctionWithBids{Auction: auction, Bids: bids, RemainingSeconds: remaining})
	}
	return out, nil
}

// ManualAssign closes the order's auction immediately and assigns the chosen
// driver, regardless of the deadline. The driver need not have bid; if they
// did, their bid is marked as the winner. Losing the race against the
// automatic sweep yields ErrAlreadyResolved.
func (s *AuctionService) ManualAssign(orderID, driverID, memo string) (model.Auction, error) {
	if orderID == "" || driverID == "" {
		return model.Auction{}, fmt.Errorf("service: %w - missing orderID or driverID", auctionerrors.ErrInvalidBid)
	}

	auction, err := s.store.AuctionForOrder(orderID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to find auction for order %s: %w", orderID, err)
	}

	lock := s.lockFor(auction.AuctionID)
	lock.Lock()
	defer lock.Unlock()

	auction, err = s.store.AuctionByID(auction.AuctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to reload auction %s: %w", auction.AuctionID, err)
	}
	if auction.Status != model.AuctionOpen {
		return model.Auction{}, fmt.Errorf("service: auction %s for order %s was resolved first (status %s): %w",
			auction.AuctionID, orderID, auction.Status, auctionerrors.ErrAlreadyResolved)
	}

	bids, err := s.store.BidsForAuction(auction.AuctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to get bids for auction %s: %w", auction.AuctionID, err)
	}
	winnerBidID := ""
	winnerAmount := ""
	for _, b := range bids {
		if b.BidderID == driverID {
			winnerBidID = b.BidID
			winnerAmount = b.Amount.String()
			break
		}
	}

	now := s.clk.Now().UTC()
	if err := s.orders.AssignDriver(orderID, driverID, now); err != nil {
		return model.Auction{}, fmt.Errorf("service: %w for order %s: %v", auctionerrors.ErrOrderAssignmentFailed, orderID, err)
	}

	closed, err := s.store.ResolveAuction(auction.AuctionID, winnerBidID, model.AuctionResolvedManual, memo, now)
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to close auction %s: %w", auction.AuctionID, err)
	}

	utils.Info("auction resolved manually", map[string]any{
		"auction_id": closed.AuctionID,
		"order_id":   closed.OrderID,
		"driver_id":  driverID,
		"had_bid":    winnerBidID != "",
	})
	s.publishResolved(closed, driverID, winnerAmount)
	return closed, nil
}

// BidsByBidder returns a driver's bid history, newest first
func (s *AuctionService) BidsByBidder(driverID string) ([]model.Bid, error) {
	if driverID == "" {
		return nil, fmt.Errorf("service: %w - empty driver ID", auctionerrors.ErrInvalidBid)
	}

	bids, err := s.store.BidsByBidder(driverID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for driver %s: %w", driverID, err)
	}
	return bids, nil
}

// resolveAuto closes one expired auction by assigning its lowest bidder.
// Returns false without error when there is nothing to do: no bids yet, or a
// manual override resolved the auction while we waited for the lock. The
// order assignment happens before the close; if it fails the auction stays
// open, so a resolved auction always has its order assigned.
func (s *AuctionService) resolveAuto(auctionID string, now time.Time) (bool, error) {
	lock := s.lockFor(auctionID)
	lock.Lock()
	defer lock.Unlock()

	auction, err := s.store.AuctionByID(auctionID)
	if err != nil {
		return false, err
	}
	if auction.Status != model.AuctionOpen {
		return false, nil
	}

	bids, err := s.store.BidsForAuction(auctionID)
	if err != nil {
		return false, err
	}
	if len(bids) == 0 {
		// The window effectively extends until somebody bids; a ready order
		// is never abandoned by force-closing an empty auction.
		return false, nil
	}

	winner := lowestBid(bids)

	if err := s.orders.AssignDriver(auction.OrderID, winner.BidderID, now); err != nil {
		return false, fmt.Errorf("%w for order %s: %v", auctionerrors.ErrOrderAssignmentFailed, auction.OrderID, err)
	}

	closed, err := s.store.ResolveAuction(auctionID, winner.BidID, model.AuctionResolvedAuto, "", now)
	if err != nil {
		return false, err
	}

	utils.Info("auction resolved automatically", map[string]any{
		"auction_id": closed.AuctionID,
		"order_id":   closed.OrderID,
		"driver_id":  winner.BidderID,
		"amount":     winner.Amount.String(),
		"bid_count":  len(bids),
	})
	s.publishResolved(closed, winner.BidderID, winner.Amount.String())
	return true, nil
}

// lowestBid picks the minimum amount; ties go to the earliest-placed bid
func lowestBid(bids []model.Bid) model.Bid {
	winner := bids[0]
	for _, b := range bids[1:] {
		c := b.Amount.Cmp(winner.Amount)
		if c < 0 || (c == 0 && b.PlacedAt.Before(winner.PlacedAt)) {
			winner = b
		}
	}
	return winner
}

func (s *AuctionService) deadline(a model.Auction) time.Time {
	return a.OpenedAt.Add(s.cfg.BiddingWindow)
}

func (s *AuctionService) lockFor(auctionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[auctionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[auctionID] = lock
	}
	return lock
}

// publishResolved emits the resolution event after commit, best-effort: a
// publish failure is logged and never rolls back the resolution
func (s *AuctionService) publishResolved(auction model.Auction, driverID, amount string) {
	event := events.ResolvedEvent{
		AuctionID: auction.AuctionID,
		OrderID:   auction.OrderID,
		DriverID:  driverID,
		Status:    string(auction.Status),
		Amount:    amount,
		Memo:      auction.Memo,
	}
	if auction.ClosedAt != nil {
		event.ClosedAt = *auction.ClosedAt
	}

	payload, err := json.Marshal(event)
	if err == nil {
		err = s.events.Publish(s.cfg.EventsTopic, payload)
	}
	if err != nil {
		utils.Error("failed to publish resolution event", map[string]any{
			"auction_id": auction.AuctionID,
			"order_id":   auction.OrderID,
			"error":      err.Error(),
		})
	}
}
