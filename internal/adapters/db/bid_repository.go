package db

import (
	"context"
	"database/sql"
	"fmt"

	"estatebid-auction-service/internal/domain/bid"
	"estatebid-auction-service/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const bidColumns = `id, auction_id, bidder_id, amount, max_amount,
	is_auto_bid, is_winning, is_retracted, created_at, updated_at`

// BidRepository implements read access to the bid ledger. All writes go
// through the ledger so they stay serialized per auction.
type BidRepository struct {
	conn *Connection
}

// NewBidRepository creates a new bid repository
func NewBidRepository(conn *Connection) *BidRepository {
	return &BidRepository{conn: conn}
}

// GetByAuctionID retrieves all bids for an auction, highest first
func (r *BidRepository) GetByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE auction_id = $1
		ORDER BY amount DESC, created_at ASC
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bids: %w", err)
	}
	defer rows.Close()

	return collectBids(rows)
}

// GetWinning retrieves the current winning bid for an auction
func (r *BidRepository) GetWinning(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE auction_id = $1 AND is_winning = true AND is_retracted = false
		LIMIT 1
	`

	b, err := scanBid(r.conn.GetDB().QueryRowContext(ctx, query, auctionID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrBidNotFound
		}
		return nil, fmt.Errorf("failed to get winning bid: %w", err)
	}

	return b, nil
}

// GetByBidder retrieves a user's bids across auctions, newest first
func (r *BidRepository) GetByBidder(ctx context.Context, bidderID uuid.UUID) ([]*bid.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE bidder_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, bidderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bids by bidder: %w", err)
	}
	defer rows.Close()

	return collectBids(rows)
}

func collectBids(rows *sql.Rows) ([]*bid.Bid, error) {
	var bids []*bid.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}

	return bids, nil
}

// scanBid reads one bidColumns row into a domain bid.
func scanBid(row rowScanner) (*bid.Bid, error) {
	var (
		b         bid.Bid
		maxAmount decimal.NullDecimal
	)

	err := row.Scan(
		&b.ID,
		&b.AuctionID,
		&b.BidderID,
		&b.Amount,
		&maxAmount,
		&b.IsAutoBid,
		&b.IsWinning,
		&b.IsRetracted,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if maxAmount.Valid {
		b.MaxAmount = &maxAmount.Decimal
	}

	return &b, nil
}
