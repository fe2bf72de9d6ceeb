package auction

import (
	"testing"
	"time"

	"estatebid-auction-service/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newActiveAuction(start, end time.Time) *Auction {
	return &Auction{
		ID:            uuid.New(),
		SellerID:      uuid.New(),
		Status:        StatusActive,
		StartingPrice: decimal.NewFromInt(1000),
		BidIncrement:  decimal.NewFromInt(100),
		StartTime:     start,
		EndTime:       end,
		AutoExtend:    true,
		ExtendWindow:  5 * time.Minute,
	}
}

func TestMinimumBid(t *testing.T) {
	a := newActiveAuction(time.Now(), time.Now().Add(time.Hour))

	assert.True(t, a.MinimumBid().Equal(decimal.NewFromInt(1000)), "starting price before any bid")

	a.RecordBid(decimal.NewFromInt(1000), time.Now())
	assert.True(t, a.MinimumBid().Equal(decimal.NewFromInt(1100)), "current price plus one increment")
}

func TestRecordBidUpdatesDerivedFields(t *testing.T) {
	a := newActiveAuction(time.Now(), time.Now().Add(time.Hour))

	a.RecordBid(decimal.NewFromInt(1200), time.Now())
	a.RecordBid(decimal.NewFromInt(1300), time.Now())

	require.NotNil(t, a.CurrentPrice)
	assert.True(t, a.CurrentPrice.Equal(decimal.NewFromInt(1300)))
	assert.Equal(t, 2, a.TotalBids)
}

func TestIsActiveWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	a := newActiveAuction(start, end)

	assert.False(t, a.IsActive(start.Add(-time.Second)), "before start")
	assert.True(t, a.IsActive(start))
	assert.True(t, a.IsActive(end), "deadline instant still accepts bids")
	assert.False(t, a.IsActive(end.Add(time.Second)), "after deadline")

	a.Status = StatusScheduled
	assert.False(t, a.IsActive(start.Add(time.Minute)), "only active status accepts bids")
}

func TestExtendIfClosing(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	a := newActiveAuction(start, end)

	// Outside the window: no extension.
	extended := a.ExtendIfClosing(end.Add(-10 * time.Minute))
	assert.False(t, extended)
	assert.Nil(t, a.ExtendedTime)
	assert.Equal(t, end, a.EffectiveEndTime())

	// Inside the window: deadline resets to bid time + window.
	bidAt := end.Add(-2 * time.Minute)
	extended = a.ExtendIfClosing(bidAt)
	assert.True(t, extended)
	require.NotNil(t, a.ExtendedTime)
	assert.Equal(t, bidAt.Add(5*time.Minute), a.EffectiveEndTime())
}

func TestExtendIfClosingRenewsFromBidTime(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	a := newActiveAuction(start, end)

	first := end.Add(-time.Minute)
	require.True(t, a.ExtendIfClosing(first))
	firstDeadline := a.EffectiveEndTime()

	// A second late bid renews the window from its own time, it does not
	// stack on the previous extension.
	second := firstDeadline.Add(-time.Minute)
	require.True(t, a.ExtendIfClosing(second))
	assert.Equal(t, second.Add(5*time.Minute), a.EffectiveEndTime())
}

func TestExtendIfClosingDisabled(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := newActiveAuction(start, start.Add(time.Hour))
	a.AutoExtend = false

	assert.False(t, a.ExtendIfClosing(start.Add(59*time.Minute)))
	assert.Nil(t, a.ExtendedTime)
}

func TestStatusTransitions(t *testing.T) {
	now := time.Now()

	t.Run("full lifecycle", func(t *testing.T) {
		a := &Auction{Status: StatusDraft}
		require.NoError(t, a.Schedule(now))
		require.NoError(t, a.Activate(now))
		require.NoError(t, a.End(nil, nil, now))
		assert.Equal(t, StatusEnded, a.Status)
	})

	t.Run("cancel before a binding sale", func(t *testing.T) {
		for _, status := range []Status{StatusDraft, StatusScheduled, StatusActive} {
			a := &Auction{Status: status}
			require.NoError(t, a.Cancel(now))
			assert.Equal(t, StatusCancelled, a.Status)
		}
	})

	t.Run("terminal states reject transitions", func(t *testing.T) {
		for _, status := range []Status{StatusEnded, StatusCancelled, StatusSold} {
			a := &Auction{Status: status}
			assert.ErrorIs(t, a.Activate(now), shared.ErrInvalidStatusTransition)
			assert.ErrorIs(t, a.Cancel(now), shared.ErrInvalidStatusTransition)
		}
	})

	t.Run("draft cannot activate directly", func(t *testing.T) {
		a := &Auction{Status: StatusDraft}
		assert.ErrorIs(t, a.Activate(now), shared.ErrInvalidStatusTransition)
	})

	t.Run("sold only from active", func(t *testing.T) {
		a := &Auction{Status: StatusActive}
		require.NoError(t, a.MarkSold(uuid.New(), decimal.NewFromInt(5000), now))
		assert.Equal(t, StatusSold, a.Status)

		a = &Auction{Status: StatusScheduled}
		assert.ErrorIs(t, a.MarkSold(uuid.New(), decimal.NewFromInt(5000), now), shared.ErrInvalidStatusTransition)
	})
}

func TestCloneDetachesPointers(t *testing.T) {
	a := newActiveAuction(time.Now(), time.Now().Add(time.Hour))
	a.RecordBid(decimal.NewFromInt(1500), time.Now())

	c := a.Clone()
	c.RecordBid(decimal.NewFromInt(9999), time.Now())

	assert.True(t, a.CurrentPrice.Equal(decimal.NewFromInt(1500)), "clone mutation must not leak back")
	assert.Equal(t, 1, a.TotalBids)
}
