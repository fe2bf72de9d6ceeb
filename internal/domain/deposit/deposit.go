package deposit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"estatebid-auction-service/internal/domain/shared"
)

// Status represents the lifecycle of an auction deposit. The payments
// collaborator owns the transitions; this service only records them.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRefunded  Status = "refunded"
	StatusForfeited Status = "forfeited"
)

// defaultRate is applied when an auction requires a deposit but does not set
// an explicit amount: 5% of the starting price.
var defaultRate = decimal.NewFromFloat(0.05)

// Deposit is a refundable deposit gating bid eligibility. One per
// (auction, user) pair.
type Deposit struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`
	UserID    uuid.UUID `json:"user_id"`

	Amount decimal.Decimal `json:"amount"`
	Status Status          `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	RefundedAt  *time.Time `json:"refunded_at,omitempty"`
}

// DefaultAmount computes the deposit for an auction without an explicit one.
func DefaultAmount(startingPrice decimal.Decimal) decimal.Decimal {
	return startingPrice.Mul(defaultRate)
}

// Confirm marks the deposit as paid and held.
func (d *Deposit) Confirm(now time.Time) error {
	if d.Status != StatusPending {
		return shared.ErrInvalidDepositTransition
	}
	d.Status = StatusConfirmed
	d.ConfirmedAt = &now
	return nil
}

// Refund releases a pending or confirmed deposit back to the user.
func (d *Deposit) Refund(now time.Time) error {
	if d.Status != StatusPending && d.Status != StatusConfirmed {
		return shared.ErrInvalidDepositTransition
	}
	d.Status = StatusRefunded
	d.RefundedAt = &now
	return nil
}

// Forfeit keeps a confirmed deposit, e.g. when a winner fails to settle.
func (d *Deposit) Forfeit() error {
	if d.Status != StatusConfirmed {
		return shared.ErrInvalidDepositTransition
	}
	d.Status = StatusForfeited
	return nil
}

// IsConfirmed reports whether the deposit satisfies the eligibility gate.
func (d *Deposit) IsConfirmed() bool {
	return d.Status == StatusConfirmed
}
