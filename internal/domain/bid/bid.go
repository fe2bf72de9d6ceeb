package bid

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid represents one entry in an auction's bid ledger. Bids are append-only:
// once created, only the IsWinning and IsRetracted flags may change, and only
// the bid engine flips them.
type Bid struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`
	BidderID  uuid.UUID `json:"bidder_id"`

	Amount decimal.Decimal `json:"amount"`
	// MaxAmount is the bidder's proxy ceiling; nil when the bidder did not
	// register one or the auction disallows proxy bidding.
	MaxAmount *decimal.Decimal `json:"max_amount,omitempty"`

	IsAutoBid   bool `json:"is_auto_bid"`
	IsWinning   bool `json:"is_winning"`
	IsRetracted bool `json:"is_retracted"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasCeiling returns true when the bid carries a proxy ceiling.
func (b *Bid) HasCeiling() bool {
	return b.MaxAmount != nil
}

// Clone returns a deep copy, detaching the ceiling pointer.
func (b *Bid) Clone() *Bid {
	c := *b
	if b.MaxAmount != nil {
		v := *b.MaxAmount
		c.MaxAmount = &v
	}
	return &c
}
