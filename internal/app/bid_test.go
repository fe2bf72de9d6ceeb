package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"estatebid-auction-service/internal/adapters/memory"
	"estatebid-auction-service/internal/clock"
	"estatebid-auction-service/internal/domain/auction"
	"estatebid-auction-service/internal/domain/bid"
	"estatebid-auction-service/internal/domain/deposit"
	"estatebid-auction-service/internal/domain/shared"
	"estatebid-auction-service/internal/ports/inbound"
	"estatebid-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeScheduler records deadline registrations.
type fakeScheduler struct {
	mu        sync.Mutex
	deadlines map[uuid.UUID]time.Time
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{deadlines: make(map[uuid.UUID]time.Time)}
}

func (f *fakeScheduler) ScheduleEnd(auctionID uuid.UUID, endTime time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadlines[auctionID] = endTime
	return nil
}

func (f *fakeScheduler) ScheduleActivation(auctionID uuid.UUID, startTime time.Time) error {
	return nil
}

func (f *fakeScheduler) deadline(auctionID uuid.UUID) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.deadlines[auctionID]
	return at, ok
}

type bidHarness struct {
	store *memory.Store
	clk   *clock.Fake
	sched *fakeScheduler
	svc   *BidService
}

func newBidHarness(t *testing.T) *bidHarness {
	t.Helper()

	store := memory.NewStore(zerolog.Nop())
	clk := clock.NewFake(testStart)
	sched := newFakeScheduler()

	svc := NewBidService(BidServiceParams{
		Ledger:  store,
		BidRepo: store,
		Gate: NewEligibilityGate(EligibilityGateParams{
			Deposits: store.Deposits(),
			Clock:    clk,
			Logger:   zerolog.Nop(),
		}),
		Proxy:     NewProxyResolver(zerolog.Nop()),
		Scheduler: sched,
		Clock:     clk,
		Logger:    zerolog.Nop(),
	})

	return &bidHarness{store: store, clk: clk, sched: sched, svc: svc}
}

func (h *bidHarness) createAuction(t *testing.T, mutate func(*auction.Auction)) *auction.Auction {
	t.Helper()

	a := &auction.Auction{
		ID:                uuid.New(),
		PropertyID:        uuid.New(),
		SellerID:          uuid.New(),
		Title:             "Two-bedroom flat, Riverside",
		Status:            auction.StatusActive,
		StartingPrice:     decimal.NewFromInt(1000),
		BidIncrement:      decimal.NewFromInt(100),
		StartTime:         testStart.Add(-time.Hour),
		EndTime:           testStart.Add(time.Hour),
		AutoExtend:        true,
		ExtendWindow:      5 * time.Minute,
		AllowProxyBidding: true,
		CreatedAt:         testStart.Add(-2 * time.Hour),
		UpdatedAt:         testStart.Add(-2 * time.Hour),
	}
	if mutate != nil {
		mutate(a)
	}
	require.NoError(t, h.store.Create(context.Background(), a))
	return a
}

func (h *bidHarness) placeBid(t *testing.T, auctionID, bidderID uuid.UUID, amount int64) *bid.Bid {
	t.Helper()
	b, err := h.svc.PlaceBid(context.Background(), inbound.PlaceBidRequest{
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    decimal.NewFromInt(amount),
	})
	require.NoError(t, err)
	return b
}

func (h *bidHarness) placeProxyBid(t *testing.T, auctionID, bidderID uuid.UUID, amount, ceiling int64) *bid.Bid {
	t.Helper()
	max := decimal.NewFromInt(ceiling)
	b, err := h.svc.PlaceBid(context.Background(), inbound.PlaceBidRequest{
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    decimal.NewFromInt(amount),
		MaxAmount: &max,
	})
	require.NoError(t, err)
	return b
}

func TestPlaceBidFirstBid(t *testing.T) {
	h := newBidHarness(t)
	a := h.createAuction(t, nil)
	bidder := uuid.New()

	b := h.placeBid(t, a.ID, bidder, 1000)

	assert.True(t, b.IsWinning)
	assert.False(t, b.IsAutoBid)

	stored, err := h.store.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CurrentPrice)
	assert.True(t, stored.CurrentPrice.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, 1, stored.TotalBids)
	assert.Equal(t, 1, stored.UniqueBidders)
}

func TestPlaceBidBelowMinimum(t *testing.T) {
	h := newBidHarness(t)
	a := h.createAuction(t, nil)
	bidder := uuid.New()

	_, err := h.svc.PlaceBid(context.Background(), inbound.PlaceBidRequest{
		AuctionID: a.ID,
		BidderID:  bidder,
		Amount:    decimal.NewFromInt(999),
	})
	var tooLow *shared.BidTooLowError
	require.ErrorAs(t, err, &tooLow)
	assert.True(t, tooLow.Minimum.Equal(decimal.NewFromInt(1000)), "first minimum is the starting price")

	h.placeBid(t, a.ID, bidder, 1000)

	_, err = h.svc.PlaceBid(context.Background(), inbound.PlaceBidRequest{
		AuctionID: a.ID,
		BidderID:  uuid.New(),
		Amount:    decimal.NewFromInt(1050),
	})
	require.ErrorAs(t, err, &tooLow)
	assert.True(t, tooLow.Minimum.Equal(decimal.NewFromInt(1100)), "minimum is current price plus increment")

	// The rejected bid left no trace.
	stored, err := h.store.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TotalBids)
}

func TestPlaceBidExactMinimumAccepted(t *testing.T) {
	h := newBidHarness(t)
	a := h.createAuction(t, func(a *auction.Auction) { a.AllowProxyBidding = false })

	h.placeBid(t, a.ID, uuid.New(), 1000)
	b := h.placeBid(t, a.ID, uuid.New(), 1100)
	assert.True(t, b.IsWinning)
}

func TestPlaceBidSellerRejected(t *testing.T) {
	h := newBidHarness(t)
	a := h.createAuction(t, nil)

	_, err := h.svc.PlaceBid(context.Background(), inbound.PlaceBidRequest{
		AuctionID: a.ID,
		BidderID:  a.SellerID,
		Amount:    decimal.NewFromInt(1000),
	})

	var ineligible *shared.IneligibleError
	require.ErrorAs(t, err, &ineligible)
	assert.Equal(t, shared.ReasonIsSeller, ineligible.Reason)
}

func TestPlaceBidOutsideBiddingWindow(t *testing.T) {
	h := newBidHarness(t)

	t.Run("not yet active", func(t *testing.T) {
		a := h.createAuction(t, func(a *auction.Auction) {
			a.Status = auction.StatusScheduled
		})
		_, err := h.svc.PlaceBid(context.Background(), inbound.PlaceBidRequest{
			AuctionID: a.ID,
			BidderID:  uuid.New(),
			Amount:    decimal.NewFromInt(1000),
		})
		var ineligible *shared.IneligibleError
		require.ErrorAs(t, err, &ineligible)
		assert.Equal(t, shared.ReasonNotActive, ineligible.Reason)
	})

	t.Run("past deadline", func(t *testing.T) {
		a := h.createAuction(t, func(a *auction.Auction) {
			a.EndTime = testStart.Add(-time.Minute)
		})
		_, err := h.svc.PlaceBid(context.Background(), inbound.PlaceBidRequest{
			AuctionID: a.ID,
			BidderID:  uuid.New(),
			Amount:    decimal.NewFromInt(1000),
		})
		var ineligible *shared.IneligibleError
		require.ErrorAs(t, err, &ineligible)
		assert.Equal(t, shared.ReasonNotActive, ineligible.Reason)
	})

	t.Run("unknown auction", func(t *testing.T) {
		_, err := h.svc.PlaceBid(context.Background(), inbound.PlaceBidRequest{
			AuctionID: uuid.New(),
			BidderID:  uuid.New(),
			Amount:    decimal.NewFromInt(1000),
		})
		assert.ErrorIs(t, err, shared.ErrAuctionNotFound)
	})
}

func TestPlaceBidDepositGate(t *testing.T) {
	h := newBidHarness(t)
	a := h.createAuction(t, func(a *auction.Auction) {
		a.RequireDeposit = true
	})
	bidder := uuid.New()

	_, err := h.svc.PlaceBid(context.Background(), inbound.PlaceBidRequest{
		AuctionID: a.ID,
		BidderID:  bidder,
		Amount:    decimal.NewFromInt(1000),
	})
	var ineligible *shared.IneligibleError
	require.ErrorAs(t, err, &ineligible)
	assert.Equal(t, shared.ReasonDepositRequired, ineligible.Reason)

	// A pending deposit is not enough.
	d := &deposit.Deposit{
		ID:        uuid.New(),
		AuctionID: a.ID,
		UserID:    bidder,
		Amount:    decimal.NewFromInt(50),
		Status:    deposit.StatusPending,
		CreatedAt: testStart,
	}
	require.NoError(t, h.store.Deposits().Create(context.Background(), d))

	_, err = h.svc.PlaceBid(context.Background(), inbound.PlaceBidRequest{
		AuctionID: a.ID,
		BidderID:  bidder,
		Amount:    decimal.NewFromInt(1000),
	})
	require.ErrorAs(t, err, &ineligible)
	assert.Equal(t, shared.ReasonDepositRequired, ineligible.Reason)

	require.NoError(t, d.Confirm(testStart))
	require.NoError(t, h.store.Deposits().Update(context.Background(), d))

	b := h.placeBid(t, a.ID, bidder, 1000)
	assert.True(t, b.IsWinning)
}

func TestProxyCounterBid(t *testing.T) {
	h := newBidHarness(t)
	a := h.createAuction(t, nil)
	alice := uuid.New()
	bob := uuid.New()

	// Alice opens at 1000 with a 1500 ceiling. No competitor, so the ledger
	// records only her visible bid.
	h.placeProxyBid(t, a.ID, alice, 1000, 1500)
	h.clk.Advance(time.Minute)

	// Bob bids 1100. Alice's standing ceiling beats it, so an automatic
	// counter-bid of 1100 + 100 lands for her.
	h.placeBid(t, a.ID, bob, 1100)

	winning, err := h.store.GetWinning(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, alice, winning.BidderID)
	assert.True(t, winning.IsAutoBid)
	assert.True(t, winning.Amount.Equal(decimal.NewFromInt(1200)))

	stored, err := h.store.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, stored.CurrentPrice.Equal(decimal.NewFromInt(1200)))
	assert.Equal(t, 3, stored.TotalBids, "visible bid, challenger bid, auto-bid")
	assert.Equal(t, 2, stored.UniqueBidders)
}

func TestProxyCounterBidCappedAtCeiling(t *testing.T) {
	h := newBidHarness(t)
	a := h.createAuction(t, nil)
	alice := uuid.New()

	h.placeProxyBid(t, a.ID, alice, 1000, 1500)
	h.clk.Advance(time.Minute)

	// 1450 + 100 would exceed the ceiling; the counter-bid lands at 1500.
	h.placeBid(t, a.ID, uuid.New(), 1450)

	winning, err := h.store.GetWinning(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, alice, winning.BidderID)
	assert.True(t, winning.Amount.Equal(decimal.NewFromInt(1500)))
}

func TestProxyCeilingExhausted(t *testing.T) {
	h := newBidHarness(t)
	a := h.createAuction(t, nil)
	bob := uuid.New()

	h.placeProxyBid(t, a.ID, uuid.New(), 1000, 1500)
	h.clk.Advance(time.Minute)

	// A bid meeting the ceiling cannot be countered; the ceiling must
	// strictly exceed the challenger.
	b := h.placeBid(t, a.ID, bob, 1500)

	winning, err := h.store.GetWinning(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, winning.ID)
	assert.Equal(t, bob, winning.BidderID)
}

func TestProxyTieGoesToEarliestCeiling(t *testing.T) {
	h := newBidHarness(t)
	a := h.createAuction(t, nil)
	alice := uuid.New()
	bob := uuid.New()

	h.placeProxyBid(t, a.ID, alice, 1000, 2000)
	h.clk.Advance(time.Minute)
	h.placeProxyBid(t, a.ID, bob, 1100, 2000)
	h.clk.Advance(time.Minute)

	// Both ceilings cover 1600; Alice registered hers first.
	h.placeBid(t, a.ID, uuid.New(), 1600)

	winning, err := h.store.GetWinning(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, alice, winning.BidderID)
	assert.True(t, winning.Amount.Equal(decimal.NewFromInt(1700)))
}

func TestProxyCeilingDiscardedWhenDisabled(t *testing.T) {
	h := newBidHarness(t)
	a := h.createAuction(t, func(a *auction.Auction) {
		a.AllowProxyBidding = false
	})

	b := h.placeProxyBid(t, a.ID, uuid.New(), 1000, 5000)
	assert.Nil(t, b.MaxAmount, "ceiling is discarded, not rejected")

	// No counter-bid fires for the discarded ceiling.
	challenger := h.placeBid(t, a.ID, uuid.New(), 1100)

	winning, err := h.store.GetWinning(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, challenger.ID, winning.ID)
}

func TestAntiSnipeExtension(t *testing.T) {
	h := newBidHarness(t)
	a := h.createAuction(t, nil)

	// Move to two minutes before the deadline, inside the five-minute window.
	h.clk.Set(a.EndTime.Add(-2 * time.Minute))
	bidAt := h.clk.Now()

	h.placeBid(t, a.ID, uuid.New(), 1000)

	stored, err := h.store.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ExtendedTime)
	assert.Equal(t, bidAt.Add(5*time.Minute), stored.EffectiveEndTime())

	registered, ok := h.sched.deadline(a.ID)
	require.True(t, ok, "extension must re-register the deadline")
	assert.Equal(t, stored.EffectiveEndTime(), registered)
}

func TestNoExtensionFarFromDeadline(t *testing.T) {
	h := newBidHarness(t)
	a := h.createAuction(t, nil)

	h.placeBid(t, a.ID, uuid.New(), 1000)

	stored, err := h.store.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ExtendedTime)

	_, ok := h.sched.deadline(a.ID)
	assert.False(t, ok, "no extension, no re-registration")
}

func TestConcurrentBidsKeepLedgerMonotonic(t *testing.T) {
	h := newBidHarness(t)
	a := h.createAuction(t, func(a *auction.Auction) {
		a.AllowProxyBidding = false
		a.AutoExtend = false
	})

	const bidders = 20
	var wg sync.WaitGroup
	errs := make([]error, bidders)

	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.svc.PlaceBid(context.Background(), inbound.PlaceBidRequest{
				AuctionID: a.ID,
				BidderID:  uuid.New(),
				Amount:    decimal.NewFromInt(int64(1000 + 100*i)),
			})
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		var tooLow *shared.BidTooLowError
		require.ErrorAs(t, err, &tooLow, "losers only ever see a too-low rejection")
	}
	require.GreaterOrEqual(t, accepted, 1)

	bids, err := h.store.GetByAuctionID(context.Background(), a.ID)
	require.NoError(t, err)
	require.Len(t, bids, accepted)

	winners := 0
	highest := decimal.Zero
	for _, b := range bids {
		if b.IsWinning {
			winners++
		}
		if b.Amount.GreaterThan(highest) {
			highest = b.Amount
		}
	}
	assert.Equal(t, 1, winners, "exactly one winning bid")

	stored, err := h.store.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, stored.CurrentPrice.Equal(highest))
	assert.Equal(t, accepted, stored.TotalBids)

	// Accepted amounts are strictly increasing in commit order.
	winning, err := h.store.GetWinning(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, winning.Amount.Equal(highest))
}

// conflictingLedger reports a concurrent status change a fixed number of
// times before delegating.
type conflictingLedger struct {
	inner     outbound.AuctionLedger
	conflicts int
	mu        sync.Mutex
}

func (l *conflictingLedger) WithAuction(ctx context.Context, auctionID uuid.UUID, fn func(tx outbound.LedgerTx) error) error {
	l.mu.Lock()
	if l.conflicts > 0 {
		l.conflicts--
		l.mu.Unlock()
		return shared.ErrAuctionClosedConcurrently
	}
	l.mu.Unlock()
	return l.inner.WithAuction(ctx, auctionID, fn)
}

func TestPlaceBidRetriesOnceOnConflict(t *testing.T) {
	h := newBidHarness(t)
	a := h.createAuction(t, nil)

	t.Run("single conflict recovers", func(t *testing.T) {
		svc := NewBidService(BidServiceParams{
			Ledger:  &conflictingLedger{inner: h.store, conflicts: 1},
			BidRepo: h.store,
			Gate: NewEligibilityGate(EligibilityGateParams{
				Deposits: h.store.Deposits(),
				Clock:    h.clk,
				Logger:   zerolog.Nop(),
			}),
			Proxy:  NewProxyResolver(zerolog.Nop()),
			Clock:  h.clk,
			Logger: zerolog.Nop(),
		})

		b, err := svc.PlaceBid(context.Background(), inbound.PlaceBidRequest{
			AuctionID: a.ID,
			BidderID:  uuid.New(),
			Amount:    decimal.NewFromInt(1000),
		})
		require.NoError(t, err)
		assert.True(t, b.IsWinning)
	})

	t.Run("repeated conflict surfaces", func(t *testing.T) {
		svc := NewBidService(BidServiceParams{
			Ledger:  &conflictingLedger{inner: h.store, conflicts: 2},
			BidRepo: h.store,
			Gate: NewEligibilityGate(EligibilityGateParams{
				Deposits: h.store.Deposits(),
				Clock:    h.clk,
				Logger:   zerolog.Nop(),
			}),
			Proxy:  NewProxyResolver(zerolog.Nop()),
			Clock:  h.clk,
			Logger: zerolog.Nop(),
		})

		_, err := svc.PlaceBid(context.Background(), inbound.PlaceBidRequest{
			AuctionID: a.ID,
			BidderID:  uuid.New(),
			Amount:    decimal.NewFromInt(2000),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrConflict))
	})
}

func TestGetBidderBids(t *testing.T) {
	h := newBidHarness(t)
	first := h.createAuction(t, nil)
	second := h.createAuction(t, nil)
	bidder := uuid.New()

	h.placeBid(t, first.ID, bidder, 1000)
	h.clk.Advance(time.Minute)
	h.placeBid(t, second.ID, bidder, 1000)
	h.clk.Advance(time.Minute)
	h.placeBid(t, first.ID, uuid.New(), 1100)

	bids, err := h.svc.GetBidderBids(context.Background(), bidder)
	require.NoError(t, err)
	require.Len(t, bids, 2, "other bidders' entries are excluded")
	assert.Equal(t, second.ID, bids[0].AuctionID, "newest first")
	assert.Equal(t, first.ID, bids[1].AuctionID)

	none, err := h.svc.GetBidderBids(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}
