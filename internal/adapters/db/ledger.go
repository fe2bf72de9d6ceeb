package db

import (
	"context"
	"database/sql"
	"fmt"

	"estatebid-auction-service/internal/domain/auction"
	"estatebid-auction-service/internal/domain/bid"
	"estatebid-auction-service/internal/domain/shared"
	"estatebid-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuctionLedger implements the per-auction transactional unit on postgres.
// WithAuction locks the auction row with SELECT ... FOR UPDATE, so concurrent
// units on the same auction queue behind each other while other auctions
// proceed unblocked. SaveAuction re-checks the status in its WHERE clause:
// a deadline sweep or cancellation that slipped in through another code path
// surfaces as ErrAuctionClosedConcurrently instead of a silent overwrite.
type AuctionLedger struct {
	conn   *Connection
	logger zerolog.Logger
}

// NewAuctionLedger creates a new postgres-backed auction ledger
func NewAuctionLedger(conn *Connection, logger zerolog.Logger) *AuctionLedger {
	return &AuctionLedger{
		conn:   conn,
		logger: logger.With().Str("component", "auction_ledger").Logger(),
	}
}

// WithAuction runs fn inside a transaction holding the auction's row lock.
func (l *AuctionLedger) WithAuction(ctx context.Context, auctionID uuid.UUID, fn func(tx outbound.LedgerTx) error) error {
	return l.conn.ExecuteTransaction(func(tx *sql.Tx) error {
		query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1 FOR UPDATE`

		a, err := scanAuction(tx.QueryRowContext(ctx, query, auctionID))
		if err != nil {
			if err == sql.ErrNoRows {
				return shared.ErrAuctionNotFound
			}
			return fmt.Errorf("failed to lock auction: %w", err)
		}

		return fn(&ledgerTx{
			ctx:          ctx,
			tx:           tx,
			a:            a,
			lockedStatus: a.Status,
		})
	})
}

type ledgerTx struct {
	ctx          context.Context
	tx           *sql.Tx
	a            *auction.Auction
	lockedStatus auction.Status
}

func (t *ledgerTx) Auction() *auction.Auction {
	return t.a
}

func (t *ledgerTx) Bids() ([]*bid.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE auction_id = $1 AND is_retracted = false
		ORDER BY created_at ASC, id ASC
	`

	rows, err := t.tx.QueryContext(t.ctx, query, t.a.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger bids: %w", err)
	}
	defer rows.Close()

	return collectBids(rows)
}

func (t *ledgerTx) AppendBid(b *bid.Bid) error {
	query := `
		INSERT INTO bids (` + bidColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := t.tx.ExecContext(t.ctx, query,
		b.ID,
		b.AuctionID,
		b.BidderID,
		b.Amount,
		b.MaxAmount,
		b.IsAutoBid,
		b.IsWinning,
		b.IsRetracted,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}

	return nil
}

func (t *ledgerTx) UpdateBidFlags(b *bid.Bid) error {
	query := `
		UPDATE bids
		SET is_winning = $2, is_retracted = $3, updated_at = $4
		WHERE id = $1
	`

	result, err := t.tx.ExecContext(t.ctx, query, b.ID, b.IsWinning, b.IsRetracted, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update bid flags: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return shared.ErrBidNotFound
	}

	return nil
}

func (t *ledgerTx) ClearWinning() error {
	query := `UPDATE bids SET is_winning = false WHERE auction_id = $1 AND is_winning = true`

	if _, err := t.tx.ExecContext(t.ctx, query, t.a.ID); err != nil {
		return fmt.Errorf("failed to clear winning flags: %w", err)
	}

	return nil
}

func (t *ledgerTx) SaveAuction(a *auction.Auction) error {
	query := auctionUpdateQuery + ` AND status = $25`

	args := append(auctionArgs(a), t.lockedStatus)
	result, err := t.tx.ExecContext(t.ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to save auction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return shared.ErrAuctionClosedConcurrently
	}

	t.a = a
	return nil
}
