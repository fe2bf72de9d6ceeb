package outbound

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event being broadcasted
type EventType string

const (
	EventTypeAuctionCreated  EventType = "auction.created"
	EventTypeBidPlaced       EventType = "bid.placed"
	EventTypeAuctionExtended EventType = "auction.extended"
	EventTypeAuctionEnded    EventType = "auction.ended"
)

// Event represents a broadcast event
type Event struct {
	Type      EventType              `json:"type"`
	AuctionID uuid.UUID              `json:"auction_id"`
	Data      map[string]interface{} `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

// Broadcaster defines the interface for broadcasting auction events to live
// subscribers (websocket clients). Failures here never propagate into the bid
// commit path.
type Broadcaster interface {
	// Subscribe subscribes a client to events for a specific auction
	// When a client subscribes to multiple auctions, all events are delivered to the same channel
	Subscribe(ctx context.Context, auctionID uuid.UUID, clientID string, eventChan chan Event) error

	// Unsubscribe unsubscribes a client from events for a specific auction
	Unsubscribe(ctx context.Context, auctionID uuid.UUID, clientID string) error

	// Publish publishes an event to all subscribers of an auction
	Publish(ctx context.Context, auctionID uuid.UUID, event Event) error

	// IsSubscribed checks if a client is subscribed to an auction
	IsSubscribed(ctx context.Context, auctionID uuid.UUID, clientID string) bool
}

// NotificationSink delivers a per-user notification. Delivery channels
// (email, SMS, push) live behind this boundary and are out of scope here.
type NotificationSink interface {
	Notify(ctx context.Context, userID uuid.UUID, title, message string, metadata map[string]interface{}) error
}

// DeadlineScheduler tracks auction deadlines so an external sweep can close
// auctions on time. Scheduling the same auction again overwrites the
// previous deadline (anti-snipe extensions re-schedule).
type DeadlineScheduler interface {
	ScheduleEnd(auctionID uuid.UUID, endTime time.Time) error
	ScheduleActivation(auctionID uuid.UUID, startTime time.Time) error
}
