package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"estatebid-auction-service/internal/domain/auction"
	"estatebid-auction-service/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// auctionColumns is the canonical column list shared by every auction query.
const auctionColumns = `id, property_id, seller_id, title, description, status,
	starting_price, reserve_price, current_price, bid_increment,
	start_time, end_time, extended_time,
	auto_extend, extend_window_seconds, allow_proxy_bidding, require_deposit, deposit_amount,
	winner_id, winning_amount, total_bids, unique_bidders,
	created_at, updated_at`

// AuctionRepository implements the auction repository interface
type AuctionRepository struct {
	conn *Connection
}

// NewAuctionRepository creates a new auction repository
func NewAuctionRepository(conn *Connection) *AuctionRepository {
	return &AuctionRepository{conn: conn}
}

// Create creates a new auction
func (r *AuctionRepository) Create(ctx context.Context, a *auction.Auction) error {
	query := `
		INSERT INTO auctions (` + auctionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`

	_, err := r.conn.GetDB().ExecContext(ctx, query, auctionArgs(a)...)
	if err != nil {
		return fmt.Errorf("failed to create auction: %w", err)
	}

	return nil
}

// GetByID retrieves an auction by ID
func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`

	a, err := scanAuction(r.conn.GetDB().QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}

	return a, nil
}

// List retrieves a list of auctions with optional status filter
func (r *AuctionRepository) List(ctx context.Context, status *auction.Status, page, pageSize int) ([]*auction.Auction, error) {
	baseQuery := `SELECT ` + auctionColumns + ` FROM auctions `

	var whereClause string
	var args []interface{}
	argCount := 1

	if status != nil {
		whereClause = "WHERE status = $1"
		args = append(args, *status)
		argCount++
	}

	limitClause := fmt.Sprintf("LIMIT $%d", argCount)
	offsetClause := fmt.Sprintf("OFFSET $%d", argCount+1)
	args = append(args, pageSize, (page-1)*pageSize)

	query := baseQuery + whereClause + " ORDER BY created_at DESC " + limitClause + " " + offsetClause

	rows, err := r.conn.GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}
	defer rows.Close()

	var auctions []*auction.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auctions: %w", err)
	}

	return auctions, nil
}

// Update updates an auction
func (r *AuctionRepository) Update(ctx context.Context, a *auction.Auction) error {
	result, err := r.conn.GetDB().ExecContext(ctx, auctionUpdateQuery, auctionArgs(a)...)
	if err != nil {
		return fmt.Errorf("failed to update auction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return shared.ErrAuctionNotFound
	}

	return nil
}

const auctionUpdateQuery = `
	UPDATE auctions
	SET property_id = $2, seller_id = $3, title = $4, description = $5, status = $6,
	    starting_price = $7, reserve_price = $8, current_price = $9, bid_increment = $10,
	    start_time = $11, end_time = $12, extended_time = $13,
	    auto_extend = $14, extend_window_seconds = $15, allow_proxy_bidding = $16,
	    require_deposit = $17, deposit_amount = $18,
	    winner_id = $19, winning_amount = $20, total_bids = $21, unique_bidders = $22,
	    created_at = $23, updated_at = $24
	WHERE id = $1
`

// auctionArgs flattens an auction into the argument order of auctionColumns.
func auctionArgs(a *auction.Auction) []interface{} {
	return []interface{}{
		a.ID,
		a.PropertyID,
		a.SellerID,
		a.Title,
		a.Description,
		a.Status,
		a.StartingPrice,
		a.ReservePrice,
		a.CurrentPrice,
		a.BidIncrement,
		a.StartTime,
		a.EndTime,
		a.ExtendedTime,
		a.AutoExtend,
		int64(a.ExtendWindow / time.Second),
		a.AllowProxyBidding,
		a.RequireDeposit,
		a.DepositAmount,
		a.WinnerID,
		a.WinningAmount,
		a.TotalBids,
		a.UniqueBidders,
		a.CreatedAt,
		a.UpdatedAt,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanAuction reads one auctionColumns row into a domain auction.
func scanAuction(row rowScanner) (*auction.Auction, error) {
	var (
		a                auction.Auction
		reservePrice     decimal.NullDecimal
		currentPrice     decimal.NullDecimal
		extendedTime     sql.NullTime
		extendWindowSecs int64
		depositAmount    decimal.NullDecimal
		winnerID         uuid.NullUUID
		winningAmount    decimal.NullDecimal
	)

	err := row.Scan(
		&a.ID,
		&a.PropertyID,
		&a.SellerID,
		&a.Title,
		&a.Description,
		&a.Status,
		&a.StartingPrice,
		&reservePrice,
		&currentPrice,
		&a.BidIncrement,
		&a.StartTime,
		&a.EndTime,
		&extendedTime,
		&a.AutoExtend,
		&extendWindowSecs,
		&a.AllowProxyBidding,
		&a.RequireDeposit,
		&depositAmount,
		&winnerID,
		&winningAmount,
		&a.TotalBids,
		&a.UniqueBidders,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.ExtendWindow = time.Duration(extendWindowSecs) * time.Second
	if reservePrice.Valid {
		a.ReservePrice = &reservePrice.Decimal
	}
	if currentPrice.Valid {
		a.CurrentPrice = &currentPrice.Decimal
	}
	if extendedTime.Valid {
		a.ExtendedTime = &extendedTime.Time
	}
	if depositAmount.Valid {
		a.DepositAmount = &depositAmount.Decimal
	}
	if winnerID.Valid {
		a.WinnerID = &winnerID.UUID
	}
	if winningAmount.Valid {
		a.WinningAmount = &winningAmount.Decimal
	}

	return &a, nil
}
