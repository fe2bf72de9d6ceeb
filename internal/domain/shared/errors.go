package shared

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Domain-specific errors
var (
	// Auction errors
	ErrAuctionNotFound           = errors.New("auction not found")
	ErrAuctionAlreadyEnded       = errors.New("auction already ended")
	ErrAuctionNotDue             = errors.New("auction deadline has not passed")
	ErrAuctionNotPending         = errors.New("auction is not awaiting activation")
	ErrAuctionNotEditable        = errors.New("auction terms can only be changed in draft or scheduled status")
	ErrAuctionClosedConcurrently = errors.New("auction status changed during bid placement")
	ErrConflict                  = errors.New("concurrent bid conflict, please resubmit")
	ErrInvalidStatusTransition   = errors.New("invalid auction status transition")
	ErrNotSeller                 = errors.New("only the seller may perform this operation")
	ErrNoWinningBid              = errors.New("auction has no winning bid")

	// Validation errors
	ErrInvalidStartTime     = errors.New("start time cannot be in the past")
	ErrInvalidEndTime       = errors.New("end time must be after start time")
	ErrInvalidStartingPrice = errors.New("starting price must be greater than 0")
	ErrInvalidBidIncrement  = errors.New("bid increment must be greater than 0")
	ErrInvalidTimeFormat    = errors.New("invalid time format")
	ErrInvalidAmount        = errors.New("valid amount is required")

	// Bid errors
	ErrBidNotFound = errors.New("bid not found")
	ErrNoBidsFound = errors.New("no bids found")

	// Deposit errors
	ErrDepositNotFound          = errors.New("deposit not found")
	ErrDepositAlreadyExists     = errors.New("deposit already exists for this auction")
	ErrDepositAlreadyConfirmed  = errors.New("deposit already confirmed for this auction")
	ErrInvalidDepositTransition = errors.New("invalid deposit status transition")

	// Watchlist errors
	ErrWatchNotFound = errors.New("watchlist entry not found")

	// WebSocket message errors
	ErrMessageTypeRequired        = errors.New("message type is required")
	ErrUnknownMessageType         = errors.New("unknown message type")
	ErrAuctionIDRequired          = errors.New("auction_id is required")
	ErrClientEventChannelNotFound = errors.New("no event channel found for client")

	// Database errors
	ErrDatabaseConnection  = errors.New("database connection failed")
	ErrDatabaseQuery       = errors.New("database query failed")
	ErrDatabaseTransaction = errors.New("database transaction failed")
)

// IneligibleReason is the machine-readable reason carried by IneligibleError.
type IneligibleReason string

const (
	ReasonNotActive       IneligibleReason = "not_active"
	ReasonIsSeller        IneligibleReason = "is_seller"
	ReasonDepositRequired IneligibleReason = "deposit_required"
)

// IneligibleError is returned by the eligibility gate when a prospective
// bidder may not bid on an auction.
type IneligibleError struct {
	Reason IneligibleReason
}

func (e *IneligibleError) Error() string {
	return fmt.Sprintf("cannot bid on this auction: %s", e.Reason)
}

// BidTooLowError is returned when a bid amount is below the auction's
// current minimum, which it reports back to the caller.
type BidTooLowError struct {
	Minimum decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("minimum bid is %s", e.Minimum)
}
