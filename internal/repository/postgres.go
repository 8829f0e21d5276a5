package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"delivery-auction/internal/auctionerrors"
	model "delivery-auction/internal/models"
	"delivery-auction/utils"
)

// PostgresRepo is a Postgres-backed implementation of AuctionStore. Writes
// lock the auction row with SELECT ... FOR UPDATE so the open-state check and
// the mutation commit together.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const auctionColumns = `auction_id, order_id, opened_at, closed_at, status, memo`
const bidColumns = `bid_id, auction_id, bidder_id, amount, placed_at, is_winner`

func (r *PostgresRepo) GetOrOpenAuction(orderID string, now time.Time) (model.Auction, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return model.Auction{}, fmt.Errorf("get or open auction for order %s: %w", orderID, err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+auctionColumns+` FROM auctions WHERE order_id=$1 AND status=$2 FOR UPDATE`,
		orderID, model.AuctionOpen)
	auction, err := scanAuction(row)
	if err == nil {
		return auction, tx.Commit()
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Auction{}, fmt.Errorf("get or open auction for order %s: %w", orderID, err)
	}

	auction = model.Auction{
		AuctionID: utils.GenerateID(),
		OrderID:   orderID,
		OpenedAt:  now,
		Status:    model.AuctionOpen,
	}
	_, err = tx.Exec(`INSERT INTO auctions (auction_id, order_id, opened_at, status, memo) VALUES ($1,$2,$3,$4,$5)`,
		auction.AuctionID, auction.OrderID, auction.OpenedAt, auction.Status, "")
	if err != nil {
		return model.Auction{}, fmt.Errorf("open auction for order %s: %w", orderID, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Auction{}, fmt.Errorf("open auction for order %s: %w", orderID, err)
	}
	return auction, nil
}

func (r *PostgresRepo) AuctionByID(auctionID string) (model.Auction, error) {
	row := r.db.QueryRow(`SELECT `+auctionColumns+` FROM auctions WHERE auction_id=$1`, auctionID)
	auction, err := scanAuction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, err)
	}
	return auction, nil
}

func (r *PostgresRepo) AuctionForOrder(orderID string) (model.Auction, error) {
	row := r.db.QueryRow(`SELECT `+auctionColumns+` FROM auctions WHERE order_id=$1 ORDER BY opened_at DESC LIMIT 1`, orderID)
	auction, err := scanAuction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Auction{}, fmt.Errorf("get auction for order %s: %w", orderID, auctionerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, fmt.Errorf("get auction for order %s: %w", orderID, err)
	}
	return auction, nil
}

func (r *PostgresRepo) ListOpenAuctions() ([]model.Auction, error) {
	rows, err := r.db.Query(`SELECT `+auctionColumns+` FROM auctions WHERE status=$1 ORDER BY opened_at ASC, auction_id ASC`,
		model.AuctionOpen)
	if err != nil {
		return nil, fmt.Errorf("list open auctions: %w", err)
	}
	defer rows.Close()

	var open []model.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan open auction: %w", err)
		}
		open = append(open, auction)
	}
	return open, rows.Err()
}

// AppendBid inserts the bid, or updates amount and placed_at when the driver
// already has a bid on this auction. The row lock on the auction keeps the
// open-state check valid until commit.
func (r *PostgresRepo) AppendBid(bid model.Bid) (model.Bid, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return model.Bid{}, fmt.Errorf("record bid on auction %s: %w", bid.AuctionID, err)
	}
	defer tx.Rollback()

	var status model.AuctionStatus
	err = tx.QueryRow(`SELECT status FROM auctions WHERE auction_id=$1 FOR UPDATE`, bid.AuctionID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bid{}, fmt.Errorf("record bid on auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("record bid on auction %s: %w", bid.AuctionID, err)
	}
	if status != model.AuctionOpen {
		return model.Bid{}, fmt.Errorf("record bid on auction %s (status %s): %w", bid.AuctionID, status, auctionerrors.ErrInvalidAuctionState)
	}

	row := tx.QueryRow(`INSERT INTO bids (`+bidColumns+`) VALUES ($1,$2,$3,$4,$5,FALSE)
		ON CONFLICT (auction_id, bidder_id)
		DO UPDATE SET amount=EXCLUDED.amount, placed_at=EXCLUDED.placed_at
		RETURNING `+bidColumns,
		bid.BidID, bid.AuctionID, bid.BidderID, bid.Amount.String(), bid.PlacedAt)
	recorded, err := scanBid(row)
	if err != nil {
		return model.Bid{}, fmt.Errorf("record bid on auction %s: %w", bid.AuctionID, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Bid{}, fmt.Errorf("record bid on auction %s: %w", bid.AuctionID, err)
	}
	return recorded, nil
}

func (r *PostgresRepo) BidsForAuction(auctionID string) ([]model.Bid, error) {
	var exists bool
	if err := r.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM auctions WHERE auction_id=$1)`, auctionID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}
	if !exists {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}

	rows, err := r.db.Query(`SELECT `+bidColumns+` FROM bids WHERE auction_id=$1 ORDER BY placed_at ASC, bid_id ASC`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}
	defer rows.Close()
	return collectBids(rows)
}

func (r *PostgresRepo) BidsByBidder(bidderID string) ([]model.Bid, error) {
	rows, err := r.db.Query(`SELECT `+bidColumns+` FROM bids WHERE bidder_id=$1 ORDER BY placed_at DESC, bid_id ASC`, bidderID)
	if err != nil {
		return nil, fmt.Errorf("get bids for bidder %s: %w", bidderID, err)
	}
	defer rows.Close()
	return collectBids(rows)
}

func (r *PostgresRepo) ResolveAuction(auctionID, winnerBidID string, status model.AuctionStatus, memo string, now time.Time) (model.Auction, error) {
	if !status.Resolved() {
		return model.Auction{}, fmt.Errorf("resolve auction %s: %s is not a terminal status", auctionID, status)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return model.Auction{}, fmt.Errorf("resolve auction %s: %w", auctionID, err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+auctionColumns+` FROM auctions WHERE auction_id=$1 FOR UPDATE`, auctionID)
	auction, err := scanAuction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Auction{}, fmt.Errorf("resolve auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, fmt.Errorf("resolve auction %s: %w", auctionID, err)
	}
	if auction.Status != model.AuctionOpen {
		return model.Auction{}, fmt.Errorf("resolve auction %s (status %s): %w", auctionID, auction.Status, auctionerrors.ErrAlreadyResolved)
	}

	if winnerBidID != "" {
		res, err := tx.Exec(`UPDATE bids SET is_winner=TRUE WHERE bid_id=$1 AND auction_id=$2`, winnerBidID, auctionID)
		if err != nil {
			return model.Auction{}, fmt.Errorf("resolve auction %s: mark winner: %w", auctionID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return model.Auction{}, fmt.Errorf("resolve auction %s: winning bid %s not in ledger", auctionID, winnerBidID)
		}
	}

	_, err = tx.Exec(`UPDATE auctions SET status=$1, closed_at=$2, memo=$3 WHERE auction_id=$4`,
		status, now, memo, auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("resolve auction %s: %w", auctionID, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Auction{}, fmt.Errorf("resolve auction %s: %w", auctionID, err)
	}

	closedAt := now
	auction.ClosedAt = &closedAt
	auction.Status = status
	auction.Memo = memo
	return auction, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuction(row rowScanner) (model.Auction, error) {
	var auction model.Auction
	var closedAt sql.NullTime
	if err := row.Scan(&auction.AuctionID, &auction.OrderID, &auction.OpenedAt, &closedAt, &auction.Status, &auction.Memo); err != nil {
		return model.Auction{}, err
	}
	if closedAt.Valid {
		t := closedAt.Time
		auction.ClosedAt = &t
	}
	return auction, nil
}

func scanBid(row rowScanner) (model.Bid, error) {
	var bid model.Bid
	var amount string
	if err := row.Scan(&bid.BidID, &bid.AuctionID, &bid.BidderID, &amount, &bid.PlacedAt, &bid.IsWinner); err != nil {
		return model.Bid{}, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return model.Bid{}, fmt.Errorf("parse bid amount %q: %w", amount, err)
	}
	bid.Amount = parsed
	return bid, nil
}

func collectBids(rows *sql.Rows) ([]model.Bid, error) {
	var bids []model.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		bids = append(bids, bid)
	}
	return bids, rows.Err()
}
