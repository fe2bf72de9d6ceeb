package app

import (
	"context"
	"testing"
	"time"

	"estatebid-auction-service/internal/adapters/memory"
	"estatebid-auction-service/internal/clock"
	"estatebid-auction-service/internal/domain/auction"
	"estatebid-auction-service/internal/domain/shared"
	"estatebid-auction-service/internal/ports/inbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWatchHarness(t *testing.T) (*WatchService, *auction.Auction) {
	t.Helper()

	store := memory.NewStore(zerolog.Nop())
	a := &auction.Auction{
		ID:            uuid.New(),
		SellerID:      uuid.New(),
		Status:        auction.StatusActive,
		StartingPrice: decimal.NewFromInt(1000),
		BidIncrement:  decimal.NewFromInt(100),
		StartTime:     testStart,
		EndTime:       testStart.Add(time.Hour),
		CreatedAt:     testStart,
	}
	require.NoError(t, store.Create(context.Background(), a))

	svc := NewWatchService(WatchServiceParams{
		WatchRepo:   store.Watches(),
		AuctionRepo: store,
		Clock:       clock.NewFake(testStart),
		Logger:      zerolog.Nop(),
	})
	return svc, a
}

func TestToggleWatch(t *testing.T) {
	svc, a := newWatchHarness(t)
	user := uuid.New()

	watching, err := svc.ToggleWatch(context.Background(), inbound.ToggleWatchRequest{
		UserID:         user,
		AuctionID:      a.ID,
		NotifyOnNewBid: true,
	})
	require.NoError(t, err)
	assert.True(t, watching)

	watchers, err := svc.ListWatchers(context.Background(), a.ID)
	require.NoError(t, err)
	require.Len(t, watchers, 1)
	assert.Equal(t, user, watchers[0].UserID)
	assert.True(t, watchers[0].NotifyOnNewBid)

	// Second toggle removes the entry.
	watching, err = svc.ToggleWatch(context.Background(), inbound.ToggleWatchRequest{
		UserID:    user,
		AuctionID: a.ID,
	})
	require.NoError(t, err)
	assert.False(t, watching)

	watchers, err = svc.ListWatchers(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Empty(t, watchers)
}

func TestToggleWatchUnknownAuction(t *testing.T) {
	svc, _ := newWatchHarness(t)

	_, err := svc.ToggleWatch(context.Background(), inbound.ToggleWatchRequest{
		UserID:    uuid.New(),
		AuctionID: uuid.New(),
	})
	assert.ErrorIs(t, err, shared.ErrAuctionNotFound)
}
