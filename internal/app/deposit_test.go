package app

import (
	"context"
	"testing"
	"time"

	"estatebid-auction-service/internal/adapters/memory"
	"estatebid-auction-service/internal/clock"
	"estatebid-auction-service/internal/domain/auction"
	"estatebid-auction-service/internal/domain/deposit"
	"estatebid-auction-service/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDepositHarness(t *testing.T, mutate func(*auction.Auction)) (*DepositService, *auction.Auction) {
	t.Helper()

	store := memory.NewStore(zerolog.Nop())
	clk := clock.NewFake(testStart)

	a := &auction.Auction{
		ID:             uuid.New(),
		SellerID:       uuid.New(),
		Status:         auction.StatusScheduled,
		StartingPrice:  decimal.NewFromInt(200000),
		BidIncrement:   decimal.NewFromInt(1000),
		StartTime:      testStart.Add(time.Hour),
		EndTime:        testStart.Add(25 * time.Hour),
		RequireDeposit: true,
		CreatedAt:      testStart,
		UpdatedAt:      testStart,
	}
	if mutate != nil {
		mutate(a)
	}
	require.NoError(t, store.Create(context.Background(), a))

	svc := NewDepositService(DepositServiceParams{
		DepositRepo: store.Deposits(),
		AuctionRepo: store,
		Clock:       clk,
		Logger:      zerolog.Nop(),
	})
	return svc, a
}

func TestCreateDepositDefaultsToFivePercent(t *testing.T) {
	svc, a := newDepositHarness(t, nil)
	user := uuid.New()

	d, err := svc.CreateDeposit(context.Background(), a.ID, user)
	require.NoError(t, err)
	assert.Equal(t, deposit.StatusPending, d.Status)
	assert.True(t, d.Amount.Equal(decimal.NewFromInt(10000)))
}

func TestCreateDepositUsesAuctionTerms(t *testing.T) {
	amount := decimal.NewFromInt(25000)
	svc, a := newDepositHarness(t, func(a *auction.Auction) {
		a.DepositAmount = &amount
	})

	d, err := svc.CreateDeposit(context.Background(), a.ID, uuid.New())
	require.NoError(t, err)
	assert.True(t, d.Amount.Equal(amount))
}

func TestCreateDepositIdempotentWhilePending(t *testing.T) {
	svc, a := newDepositHarness(t, nil)
	user := uuid.New()

	first, err := svc.CreateDeposit(context.Background(), a.ID, user)
	require.NoError(t, err)

	again, err := svc.CreateDeposit(context.Background(), a.ID, user)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID, "pending deposit is returned, not duplicated")
}

func TestDepositConfirmAndRefund(t *testing.T) {
	svc, a := newDepositHarness(t, nil)
	user := uuid.New()

	_, err := svc.CreateDeposit(context.Background(), a.ID, user)
	require.NoError(t, err)

	d, err := svc.ConfirmDeposit(context.Background(), a.ID, user)
	require.NoError(t, err)
	assert.True(t, d.IsConfirmed())
	require.NotNil(t, d.ConfirmedAt)

	// Re-registering after confirmation is an error, not a new record.
	_, err = svc.CreateDeposit(context.Background(), a.ID, user)
	assert.ErrorIs(t, err, shared.ErrDepositAlreadyConfirmed)

	d, err = svc.RefundDeposit(context.Background(), a.ID, user)
	require.NoError(t, err)
	assert.Equal(t, deposit.StatusRefunded, d.Status)
}

func TestDepositTransitionsRequireRecord(t *testing.T) {
	svc, a := newDepositHarness(t, nil)

	_, err := svc.ConfirmDeposit(context.Background(), a.ID, uuid.New())
	assert.ErrorIs(t, err, shared.ErrDepositNotFound)

	_, err = svc.RefundDeposit(context.Background(), a.ID, uuid.New())
	assert.ErrorIs(t, err, shared.ErrDepositNotFound)
}

func TestCreateDepositUnknownAuction(t *testing.T) {
	svc, _ := newDepositHarness(t, nil)

	_, err := svc.CreateDeposit(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrAuctionNotFound)
}

func TestForfeitDeposit(t *testing.T) {
	svc, a := newDepositHarness(t, nil)
	user := uuid.New()

	_, err := svc.CreateDeposit(context.Background(), a.ID, user)
	require.NoError(t, err)

	// Only a held deposit can be kept.
	_, err = svc.ForfeitDeposit(context.Background(), a.ID, user)
	assert.ErrorIs(t, err, shared.ErrInvalidDepositTransition)

	_, err = svc.ConfirmDeposit(context.Background(), a.ID, user)
	require.NoError(t, err)

	d, err := svc.ForfeitDeposit(context.Background(), a.ID, user)
	require.NoError(t, err)
	assert.Equal(t, deposit.StatusForfeited, d.Status)

	// Forfeited is terminal.
	_, err = svc.RefundDeposit(context.Background(), a.ID, user)
	assert.ErrorIs(t, err, shared.ErrInvalidDepositTransition)
}
