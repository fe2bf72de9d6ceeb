package inbound

import (
	"context"

	"estatebid-auction-service/internal/domain/auction"
	"estatebid-auction-service/internal/domain/bid"
	"estatebid-auction-service/internal/domain/deposit"
	"estatebid-auction-service/internal/domain/shared"
	"estatebid-auction-service/internal/domain/watch"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionService defines the interface for auction lifecycle operations
type AuctionService interface {
	// CreateAuction creates a new auction in draft status
	CreateAuction(ctx context.Context, req CreateAuctionRequest) (*auction.Auction, error)

	// ScheduleAuction publishes a draft auction (seller only)
	ScheduleAuction(ctx context.Context, auctionID, sellerID uuid.UUID) (*auction.Auction, error)

	// GetAuction retrieves an auction by ID, lazily applying due
	// activation/ending transitions
	GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error)

	// ListAuctions retrieves a list of auctions
	ListAuctions(ctx context.Context, req ListAuctionsRequest) ([]*auction.Auction, error)

	// UpdateAuction changes auction terms (seller only, draft/scheduled only)
	UpdateAuction(ctx context.Context, req UpdateAuctionRequest) (*auction.Auction, error)

	// CancelAuction cancels an auction before a binding sale
	CancelAuction(ctx context.Context, auctionID, requesterID uuid.UUID) error

	// EndAuction closes an auction whose deadline has passed
	EndAuction(ctx context.Context, auctionID uuid.UUID) (*shared.AuctionEndResult, error)

	// MarkSold records a settled sale (settlement collaborator callback)
	MarkSold(ctx context.Context, auctionID uuid.UUID) error
}

// BidService defines the interface for bid operations
type BidService interface {
	// PlaceBid places a new bid on an auction
	PlaceBid(ctx context.Context, req PlaceBidRequest) (*bid.Bid, error)

	// GetBids retrieves bids for an auction, highest first
	GetBids(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error)

	// GetWinningBid retrieves the current winning bid for an auction
	GetWinningBid(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error)

	// GetBidderBids retrieves one user's bids across auctions, newest first
	GetBidderBids(ctx context.Context, bidderID uuid.UUID) ([]*bid.Bid, error)
}

// DepositService defines the interface for auction deposit operations
type DepositService interface {
	// CreateDeposit registers a pending deposit for (auction, user)
	CreateDeposit(ctx context.Context, auctionID, userID uuid.UUID) (*deposit.Deposit, error)

	// ConfirmDeposit marks a deposit as paid (payments collaborator callback)
	ConfirmDeposit(ctx context.Context, auctionID, userID uuid.UUID) (*deposit.Deposit, error)

	// RefundDeposit releases a deposit back to the user
	RefundDeposit(ctx context.Context, auctionID, userID uuid.UUID) (*deposit.Deposit, error)

	// ForfeitDeposit keeps a confirmed deposit (payments collaborator callback)
	ForfeitDeposit(ctx context.Context, auctionID, userID uuid.UUID) (*deposit.Deposit, error)
}

// WatchService defines the interface for auction watchlist operations
type WatchService interface {
	// ToggleWatch adds or removes a watchlist entry; returns whether the
	// user is watching after the call
	ToggleWatch(ctx context.Context, req ToggleWatchRequest) (bool, error)

	// ListWatchers retrieves the watchlist entries for an auction
	ListWatchers(ctx context.Context, auctionID uuid.UUID) ([]*watch.Watch, error)
}

// request to create an auction
type CreateAuctionRequest struct {
	PropertyID    uuid.UUID        `json:"property_id"`
	SellerID      uuid.UUID        `json:"seller_id"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	StartingPrice decimal.Decimal  `json:"starting_price"`
	ReservePrice  *decimal.Decimal `json:"reserve_price,omitempty"`
	BidIncrement  decimal.Decimal  `json:"bid_increment"`
	StartTime     string           `json:"start_time"`
	EndTime       string           `json:"end_time"`

	AutoExtend        bool             `json:"auto_extend"`
	ExtendMinutes     int              `json:"extend_minutes"`
	AllowProxyBidding bool             `json:"allow_proxy_bidding"`
	RequireDeposit    bool             `json:"require_deposit"`
	DepositAmount     *decimal.Decimal `json:"deposit_amount,omitempty"`
}

// request to update auction terms
type UpdateAuctionRequest struct {
	AuctionID   uuid.UUID `json:"auction_id"`
	RequesterID uuid.UUID `json:"requester_id"`

	Title         *string          `json:"title,omitempty"`
	Description   *string          `json:"description,omitempty"`
	StartingPrice *decimal.Decimal `json:"starting_price,omitempty"`
	ReservePrice  *decimal.Decimal `json:"reserve_price,omitempty"`
	BidIncrement  *decimal.Decimal `json:"bid_increment,omitempty"`
	StartTime     *string          `json:"start_time,omitempty"`
	EndTime       *string          `json:"end_time,omitempty"`
}

// request to list auctions
type ListAuctionsRequest struct {
	Status   *auction.Status `json:"status,omitempty"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// request to place a bid
type PlaceBidRequest struct {
	AuctionID uuid.UUID        `json:"auction_id"`
	BidderID  uuid.UUID        `json:"bidder_id"`
	Amount    decimal.Decimal  `json:"amount"`
	MaxAmount *decimal.Decimal `json:"max_amount,omitempty"`
}

// request to toggle a watchlist entry
type ToggleWatchRequest struct {
	UserID              uuid.UUID `json:"user_id"`
	AuctionID           uuid.UUID `json:"auction_id"`
	NotifyOnNewBid      bool      `json:"notify_on_new_bid"`
	NotifyBeforeEnd     bool      `json:"notify_before_end"`
	NotifyMinutesBefore int       `json:"notify_minutes_before"`
}
