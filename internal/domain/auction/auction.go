package auction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"estatebid-auction-service/internal/domain/shared"
)

// Status represents the current status of an auction
type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusEnded     Status = "ended"
	StatusCancelled Status = "cancelled"
	StatusSold      Status = "sold"
)

// transitions holds the allowed status edges. ended, cancelled and sold are
// terminal.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusScheduled, StatusCancelled},
	StatusScheduled: {StatusActive, StatusCancelled},
	StatusActive:    {StatusEnded, StatusCancelled, StatusSold},
}

// Auction represents a property auction. CurrentPrice is nil until the first
// bid lands; all derived fields (CurrentPrice, winner, counters, ExtendedTime)
// are mutated exclusively by the bid engine while the auction is active.
type Auction struct {
	ID         uuid.UUID `json:"id"`
	PropertyID uuid.UUID `json:"property_id"`
	SellerID   uuid.UUID `json:"seller_id"`

	Title       string `json:"title"`
	Description string `json:"description"`
	Status      Status `json:"status"`

	StartingPrice decimal.Decimal  `json:"starting_price"`
	ReservePrice  *decimal.Decimal `json:"reserve_price,omitempty"`
	CurrentPrice  *decimal.Decimal `json:"current_price,omitempty"`
	BidIncrement  decimal.Decimal  `json:"bid_increment"`

	StartTime    time.Time  `json:"start_time"`
	EndTime      time.Time  `json:"end_time"`
	ExtendedTime *time.Time `json:"extended_time,omitempty"`

	AutoExtend        bool             `json:"auto_extend"`
	ExtendWindow      time.Duration    `json:"extend_window"`
	AllowProxyBidding bool             `json:"allow_proxy_bidding"`
	RequireDeposit    bool             `json:"require_deposit"`
	DepositAmount     *decimal.Decimal `json:"deposit_amount,omitempty"`

	WinnerID      *uuid.UUID       `json:"winner_id,omitempty"`
	WinningAmount *decimal.Decimal `json:"winning_amount,omitempty"`

	TotalBids     int `json:"total_bids"`
	UniqueBidders int `json:"unique_bidders"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EffectiveEndTime returns ExtendedTime when the auction has been extended,
// otherwise the original EndTime.
func (a *Auction) EffectiveEndTime() time.Time {
	if a.ExtendedTime != nil {
		return *a.ExtendedTime
	}
	return a.EndTime
}

// IsActive returns true if the auction accepts bids at the given instant.
func (a *Auction) IsActive(now time.Time) bool {
	return a.Status == StatusActive && !now.Before(a.StartTime) && !now.After(a.EffectiveEndTime())
}

// IsClosed returns true once the auction has reached a terminal status.
func (a *Auction) IsClosed() bool {
	return a.Status == StatusEnded || a.Status == StatusCancelled || a.Status == StatusSold
}

// IsEditable returns true while the seller may still change auction terms.
func (a *Auction) IsEditable() bool {
	return a.Status == StatusDraft || a.Status == StatusScheduled
}

// MinimumBid returns the lowest acceptable bid amount: the starting price
// before any bid, the current price plus one increment afterwards.
func (a *Auction) MinimumBid() decimal.Decimal {
	if a.CurrentPrice == nil {
		return a.StartingPrice
	}
	return a.CurrentPrice.Add(a.BidIncrement)
}

// RecordBid updates the price and bid counter for a newly committed bid.
// Only the bid engine calls this, under the per-auction lock.
func (a *Auction) RecordBid(amount decimal.Decimal, now time.Time) {
	price := amount
	a.CurrentPrice = &price
	a.TotalBids++
	a.UpdatedAt = now
}

// ExtendIfClosing applies the anti-snipe rule: when auto-extend is on and the
// effective deadline is less than one extend window away, the deadline is
// reset to now + window. The window renews from the bid time, it does not
// stack on the previous deadline. Returns true when the deadline moved.
func (a *Auction) ExtendIfClosing(now time.Time) bool {
	if !a.AutoExtend {
		return false
	}
	remaining := a.EffectiveEndTime().Sub(now)
	if remaining >= a.ExtendWindow {
		return false
	}
	extended := now.Add(a.ExtendWindow)
	a.ExtendedTime = &extended
	a.UpdatedAt = now
	return true
}

// DueToEnd returns true once the effective deadline has passed.
func (a *Auction) DueToEnd(now time.Time) bool {
	return a.Status == StatusActive && now.After(a.EffectiveEndTime())
}

// DueToStart returns true once a scheduled auction has reached its start time.
func (a *Auction) DueToStart(now time.Time) bool {
	return a.Status == StatusScheduled && !now.Before(a.StartTime)
}

func (a *Auction) canTransition(to Status) bool {
	for _, s := range transitions[a.Status] {
		if s == to {
			return true
		}
	}
	return false
}

func (a *Auction) transition(to Status, now time.Time) error {
	if !a.canTransition(to) {
		return shared.ErrInvalidStatusTransition
	}
	a.Status = to
	a.UpdatedAt = now
	return nil
}

// Schedule publishes a draft auction.
func (a *Auction) Schedule(now time.Time) error {
	return a.transition(StatusScheduled, now)
}

// Activate opens a scheduled auction for bidding.
func (a *Auction) Activate(now time.Time) error {
	return a.transition(StatusActive, now)
}

// End closes the auction and records the winner, if any.
func (a *Auction) End(winnerID *uuid.UUID, winningAmount *decimal.Decimal, now time.Time) error {
	if err := a.transition(StatusEnded, now); err != nil {
		return err
	}
	a.WinnerID = winnerID
	a.WinningAmount = winningAmount
	return nil
}

// Cancel aborts the auction before a binding sale.
func (a *Auction) Cancel(now time.Time) error {
	return a.transition(StatusCancelled, now)
}

// MarkSold records the settled sale. Set by the settlement step once payment
// clears.
func (a *Auction) MarkSold(winnerID uuid.UUID, winningAmount decimal.Decimal, now time.Time) error {
	if err := a.transition(StatusSold, now); err != nil {
		return err
	}
	a.WinnerID = &winnerID
	a.WinningAmount = &winningAmount
	return nil
}

// Clone returns a deep copy, detaching all pointer fields.
func (a *Auction) Clone() *Auction {
	c := *a
	if a.ReservePrice != nil {
		v := *a.ReservePrice
		c.ReservePrice = &v
	}
	if a.CurrentPrice != nil {
		v := *a.CurrentPrice
		c.CurrentPrice = &v
	}
	if a.ExtendedTime != nil {
		v := *a.ExtendedTime
		c.ExtendedTime = &v
	}
	if a.DepositAmount != nil {
		v := *a.DepositAmount
		c.DepositAmount = &v
	}
	if a.WinnerID != nil {
		v := *a.WinnerID
		c.WinnerID = &v
	}
	if a.WinningAmount != nil {
		v := *a.WinningAmount
		c.WinningAmount = &v
	}
	return &c
}
