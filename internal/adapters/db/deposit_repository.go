package db

import (
	"context"
	"database/sql"
	"fmt"

	"estatebid-auction-service/internal/domain/deposit"
	"estatebid-auction-service/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const depositColumns = `id, auction_id, user_id, amount, status, created_at, confirmed_at, refunded_at`

// DepositRepository implements the deposit repository interface
type DepositRepository struct {
	conn *Connection
}

// NewDepositRepository creates a new deposit repository
func NewDepositRepository(conn *Connection) *DepositRepository {
	return &DepositRepository{conn: conn}
}

// Create creates a new deposit. The unique index on (auction_id, user_id)
// guards against double registration.
func (r *DepositRepository) Create(ctx context.Context, d *deposit.Deposit) error {
	query := `
		INSERT INTO deposits (` + depositColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.conn.GetDB().ExecContext(ctx, query,
		d.ID,
		d.AuctionID,
		d.UserID,
		d.Amount,
		d.Status,
		d.CreatedAt,
		d.ConfirmedAt,
		d.RefundedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return shared.ErrDepositAlreadyExists
		}
		return fmt.Errorf("failed to create deposit: %w", err)
	}

	return nil
}

// GetByAuctionAndUser retrieves the deposit for an (auction, user) pair
func (r *DepositRepository) GetByAuctionAndUser(ctx context.Context, auctionID, userID uuid.UUID) (*deposit.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE auction_id = $1 AND user_id = $2`

	var (
		d           deposit.Deposit
		confirmedAt sql.NullTime
		refundedAt  sql.NullTime
	)
	err := r.conn.GetDB().QueryRowContext(ctx, query, auctionID, userID).Scan(
		&d.ID,
		&d.AuctionID,
		&d.UserID,
		&d.Amount,
		&d.Status,
		&d.CreatedAt,
		&confirmedAt,
		&refundedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrDepositNotFound
		}
		return nil, fmt.Errorf("failed to get deposit: %w", err)
	}

	if confirmedAt.Valid {
		d.ConfirmedAt = &confirmedAt.Time
	}
	if refundedAt.Valid {
		d.RefundedAt = &refundedAt.Time
	}

	return &d, nil
}

// Update updates a deposit
func (r *DepositRepository) Update(ctx context.Context, d *deposit.Deposit) error {
	query := `
		UPDATE deposits
		SET amount = $2, status = $3, confirmed_at = $4, refunded_at = $5
		WHERE id = $1
	`

	result, err := r.conn.GetDB().ExecContext(ctx, query,
		d.ID,
		d.Amount,
		d.Status,
		d.ConfirmedAt,
		d.RefundedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update deposit: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return shared.ErrDepositNotFound
	}

	return nil
}

// HasConfirmed reports whether a confirmed deposit exists for the pair
func (r *DepositRepository) HasConfirmed(ctx context.Context, auctionID, userID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM deposits
			WHERE auction_id = $1 AND user_id = $2 AND status = 'confirmed'
		)
	`

	var confirmed bool
	err := r.conn.GetDB().QueryRowContext(ctx, query, auctionID, userID).Scan(&confirmed)
	if err != nil {
		return false, fmt.Errorf("failed to check confirmed deposit: %w", err)
	}

	return confirmed, nil
}
