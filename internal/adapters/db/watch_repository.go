package db

import (
	"context"
	"database/sql"
	"fmt"

	"estatebid-auction-service/internal/domain/shared"
	"estatebid-auction-service/internal/domain/watch"

	"github.com/google/uuid"
)

const watchColumns = `id, user_id, auction_id, notify_on_new_bid, notify_before_end, notify_minutes_before, created_at`

// WatchRepository implements the watchlist repository interface
type WatchRepository struct {
	conn *Connection
}

// NewWatchRepository creates a new watch repository
func NewWatchRepository(conn *Connection) *WatchRepository {
	return &WatchRepository{conn: conn}
}

// Create creates a new watchlist entry
func (r *WatchRepository) Create(ctx context.Context, w *watch.Watch) error {
	query := `
		INSERT INTO watches (` + watchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.conn.GetDB().ExecContext(ctx, query,
		w.ID,
		w.UserID,
		w.AuctionID,
		w.NotifyOnNewBid,
		w.NotifyBeforeEnd,
		w.NotifyMinutesBefore,
		w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create watch: %w", err)
	}

	return nil
}

// Delete removes a user's watchlist entry for an auction
func (r *WatchRepository) Delete(ctx context.Context, userID, auctionID uuid.UUID) error {
	query := `DELETE FROM watches WHERE user_id = $1 AND auction_id = $2`

	result, err := r.conn.GetDB().ExecContext(ctx, query, userID, auctionID)
	if err != nil {
		return fmt.Errorf("failed to delete watch: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return shared.ErrWatchNotFound
	}

	return nil
}

// GetByUserAndAuction retrieves a watchlist entry
func (r *WatchRepository) GetByUserAndAuction(ctx context.Context, userID, auctionID uuid.UUID) (*watch.Watch, error) {
	query := `SELECT ` + watchColumns + ` FROM watches WHERE user_id = $1 AND auction_id = $2`

	w, err := scanWatch(r.conn.GetDB().QueryRowContext(ctx, query, userID, auctionID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrWatchNotFound
		}
		return nil, fmt.Errorf("failed to get watch: %w", err)
	}

	return w, nil
}

// ListByAuction retrieves all watchlist entries for an auction
func (r *WatchRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*watch.Watch, error) {
	query := `SELECT ` + watchColumns + ` FROM watches WHERE auction_id = $1 ORDER BY created_at ASC`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watches: %w", err)
	}
	defer rows.Close()

	var watches []*watch.Watch
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watch: %w", err)
		}
		watches = append(watches, w)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watches: %w", err)
	}

	return watches, nil
}

func scanWatch(row rowScanner) (*watch.Watch, error) {
	var w watch.Watch
	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.AuctionID,
		&w.NotifyOnNewBid,
		&w.NotifyBeforeEnd,
		&w.NotifyMinutesBefore,
		&w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
