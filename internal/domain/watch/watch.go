package watch

import (
	"time"

	"github.com/google/uuid"
)

// Watch is a (user, auction) watchlist entry with notification preferences.
// Read-only input to the notify dispatcher.
type Watch struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	AuctionID uuid.UUID `json:"auction_id"`

	NotifyOnNewBid      bool `json:"notify_on_new_bid"`
	NotifyBeforeEnd     bool `json:"notify_before_end"`
	NotifyMinutesBefore int  `json:"notify_minutes_before"`

	CreatedAt time.Time `json:"created_at"`
}
