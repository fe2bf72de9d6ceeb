package app

import (
	"context"
	"fmt"
	"time"

	"estatebid-auction-service/internal/domain/auction"
	"estatebid-auction-service/internal/domain/bid"
	"estatebid-auction-service/internal/domain/shared"
	"estatebid-auction-service/internal/ports/outbound"

	"github.com/alitto/pond"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	dispatcherMaxWorkers  = 10
	dispatcherMaxCapacity = 1000
)

// Dispatcher fans out auction events to live subscribers and watchlist
// users. Every method is fire-and-forget relative to the caller: work runs on
// a worker pool and failures are logged, never returned. Bid commits must
// never roll back because a notification failed.
type Dispatcher struct {
	broadcaster outbound.Broadcaster
	watches     outbound.WatchRepository
	sink        outbound.NotificationSink
	pool        *pond.WorkerPool
	logger      zerolog.Logger
}

type DispatcherParams struct {
	Broadcaster outbound.Broadcaster
	Watches     outbound.WatchRepository
	Sink        outbound.NotificationSink
	Logger      zerolog.Logger
}

// NewDispatcher creates a new notify dispatcher
func NewDispatcher(params DispatcherParams) *Dispatcher {
	return &Dispatcher{
		broadcaster: params.Broadcaster,
		watches:     params.Watches,
		sink:        params.Sink,
		pool:        pond.New(dispatcherMaxWorkers, dispatcherMaxCapacity, pond.Strategy(pond.Balanced())),
		logger:      params.Logger.With().Str("component", "notify_dispatcher").Logger(),
	}
}

// BidPlaced announces a committed bid (and its proxy counter-bid, if any) to
// auction subscribers and watchers.
func (d *Dispatcher) BidPlaced(ctx context.Context, auctionID uuid.UUID, newBid, autoBid *bid.Bid, extended bool) {
	d.pool.Submit(func() {
		// The request context may already be done once the response is
		// written; notifications ride their own context.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		d.publishBid(ctx, auctionID, newBid)
		if autoBid != nil {
			d.publishBid(ctx, auctionID, autoBid)
		}
		if extended {
			d.publish(ctx, auctionID, outbound.Event{
				Type:      outbound.EventTypeAuctionExtended,
				AuctionID: auctionID,
				Data:      map[string]interface{}{"bid_id": newBid.ID},
			})
		}

		d.notifyWatchers(ctx, auctionID, newBid)
	})
}

// AuctionCreated announces a newly created auction, so listing surfaces and
// saved-search collaborators can pick it up.
func (d *Dispatcher) AuctionCreated(ctx context.Context, a *auction.Auction) {
	auctionID := a.ID
	data := map[string]interface{}{
		"title":          a.Title,
		"status":         string(a.Status),
		"starting_price": a.StartingPrice,
		"start_time":     a.StartTime.Unix(),
		"end_time":       a.EndTime.Unix(),
	}
	d.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		d.publish(ctx, auctionID, outbound.Event{
			Type:      outbound.EventTypeAuctionCreated,
			AuctionID: auctionID,
			Data:      data,
		})
	})
}

// AuctionEnded announces the final state of an auction to subscribers. The
// settlement collaborator consumes the same event.
func (d *Dispatcher) AuctionEnded(ctx context.Context, result *shared.AuctionEndResult) {
	d.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		data := map[string]interface{}{"status": result.Status}
		if result.WinnerID != nil {
			data["winner_id"] = result.WinnerID
		}
		if result.WinningAmount != nil {
			data["winning_amount"] = result.WinningAmount
		}
		d.publish(ctx, result.AuctionID, outbound.Event{
			Type:      outbound.EventTypeAuctionEnded,
			AuctionID: result.AuctionID,
			Data:      data,
		})
	})
}

// Close drains the worker pool.
func (d *Dispatcher) Close() {
	d.pool.StopAndWait()
}

func (d *Dispatcher) publishBid(ctx context.Context, auctionID uuid.UUID, b *bid.Bid) {
	d.publish(ctx, auctionID, outbound.Event{
		Type:      outbound.EventTypeBidPlaced,
		AuctionID: auctionID,
		Data: map[string]interface{}{
			"bid_id":      b.ID,
			"bidder_id":   b.BidderID,
			"amount":      b.Amount,
			"is_auto_bid": b.IsAutoBid,
			"is_winning":  b.IsWinning,
			"timestamp":   b.CreatedAt.Unix(),
		},
		Timestamp: b.CreatedAt.Unix(),
	})
}

func (d *Dispatcher) publish(ctx context.Context, auctionID uuid.UUID, event outbound.Event) {
	if d.broadcaster == nil {
		return
	}
	if err := d.broadcaster.Publish(ctx, auctionID, event); err != nil {
		d.logger.Error().Err(err).
			Str("auction_id", auctionID.String()).
			Str("event_type", string(event.Type)).
			Msg("Failed to broadcast event")
	}
}

// notifyWatchers delivers a per-user notification to every watcher that
// opted in, excluding the bidder.
func (d *Dispatcher) notifyWatchers(ctx context.Context, auctionID uuid.UUID, b *bid.Bid) {
	if d.watches == nil || d.sink == nil {
		return
	}
	watchers, err := d.watches.ListByAuction(ctx, auctionID)
	if err != nil {
		d.logger.Error().Err(err).
			Str("auction_id", auctionID.String()).
			Msg("Failed to list watchers for bid notification")
		return
	}

	for _, w := range watchers {
		if !w.NotifyOnNewBid || w.UserID == b.BidderID {
			continue
		}
		userID := w.UserID
		err := d.sink.Notify(ctx, userID,
			"New bid on watched auction",
			fmt.Sprintf("New bid of %s", b.Amount),
			map[string]interface{}{
				"auction_id": auctionID.String(),
				"bid_id":     b.ID.String(),
			},
		)
		if err != nil {
			d.logger.Error().Err(err).
				Str("user_id", userID.String()).
				Str("auction_id", auctionID.String()).
				Msg("Failed to notify watcher")
		}
	}
}
