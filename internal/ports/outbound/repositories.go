package outbound

import (
	"context"

	"estatebid-auction-service/internal/domain/auction"
	"estatebid-auction-service/internal/domain/bid"
	"estatebid-auction-service/internal/domain/deposit"
	"estatebid-auction-service/internal/domain/watch"

	"github.com/google/uuid"
)

// AuctionRepository defines the interface for auction data operations
type AuctionRepository interface {
	// Create creates a new auction
	Create(ctx context.Context, a *auction.Auction) error

	// GetByID retrieves an auction by ID
	GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error)

	// List retrieves a list of auctions with optional status filter
	List(ctx context.Context, status *auction.Status, page, pageSize int) ([]*auction.Auction, error)

	// Update updates an auction
	Update(ctx context.Context, a *auction.Auction) error
}

// LedgerTx is the consistent view of one auction and its bid ledger while the
// per-auction exclusive lock is held. All writes made through it commit or
// roll back together.
type LedgerTx interface {
	// Auction returns the locked auction row, fresh as of lock acquisition.
	Auction() *auction.Auction

	// Bids returns the non-retracted bids of the auction in creation order.
	Bids() ([]*bid.Bid, error)

	// AppendBid appends a new bid to the ledger.
	AppendBid(b *bid.Bid) error

	// UpdateBidFlags persists the IsWinning/IsRetracted flags of a bid.
	UpdateBidFlags(b *bid.Bid) error

	// ClearWinning clears the IsWinning flag on every bid of the auction.
	ClearWinning() error

	// SaveAuction persists the auction's derived fields. Returns
	// shared.ErrAuctionClosedConcurrently when the stored status no longer
	// matches the one read under the lock.
	SaveAuction(a *auction.Auction) error
}

// AuctionLedger serializes all mutations of one auction and its bid ledger.
// WithAuction runs fn under the auction's exclusive lock and commits its
// writes atomically; any error from fn discards them. Bids on different
// auctions do not contend.
type AuctionLedger interface {
	WithAuction(ctx context.Context, auctionID uuid.UUID, fn func(tx LedgerTx) error) error
}

// BidRepository defines read access to the bid ledger outside the lock.
type BidRepository interface {
	// GetByAuctionID retrieves all bids for an auction, highest first
	GetByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error)

	// GetWinning retrieves the current winning bid for an auction
	GetWinning(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error)

	// GetByBidder retrieves a user's bids across auctions
	GetByBidder(ctx context.Context, bidderID uuid.UUID) ([]*bid.Bid, error)
}

// DepositRepository defines the interface for deposit data operations. The
// eligibility gate only reads; lifecycle writes are driven by the payments
// collaborator.
type DepositRepository interface {
	// Create creates a new deposit; fails if one exists for (auction, user)
	Create(ctx context.Context, d *deposit.Deposit) error

	// GetByAuctionAndUser retrieves the deposit for an (auction, user) pair
	GetByAuctionAndUser(ctx context.Context, auctionID, userID uuid.UUID) (*deposit.Deposit, error)

	// Update updates a deposit
	Update(ctx context.Context, d *deposit.Deposit) error

	// HasConfirmed reports whether a confirmed deposit exists for the pair
	HasConfirmed(ctx context.Context, auctionID, userID uuid.UUID) (bool, error)
}

// WatchRepository defines the interface for watchlist data operations
type WatchRepository interface {
	// Create creates a new watchlist entry
	Create(ctx context.Context, w *watch.Watch) error

	// Delete removes a user's watchlist entry for an auction
	Delete(ctx context.Context, userID, auctionID uuid.UUID) error

	// GetByUserAndAuction retrieves a watchlist entry
	GetByUserAndAuction(ctx context.Context, userID, auctionID uuid.UUID) (*watch.Watch, error)

	// ListByAuction retrieves all watchlist entries for an auction
	ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*watch.Watch, error)
}
