package app

import (
	"context"
	"errors"

	"estatebid-auction-service/internal/clock"
	"estatebid-auction-service/internal/domain/deposit"
	"estatebid-auction-service/internal/domain/shared"
	"estatebid-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DepositService records auction deposits. The actual money movement lives in
// the payments subsystem; this service tracks the (auction, user) deposit
// record the eligibility gate reads.
type DepositService struct {
	depositRepo outbound.DepositRepository
	auctionRepo outbound.AuctionRepository
	clock       clock.Clock
	logger      zerolog.Logger
}

type DepositServiceParams struct {
	DepositRepo outbound.DepositRepository
	AuctionRepo outbound.AuctionRepository
	Clock       clock.Clock
	Logger      zerolog.Logger
}

// NewDepositService creates a new deposit service
func NewDepositService(params DepositServiceParams) *DepositService {
	return &DepositService{
		depositRepo: params.DepositRepo,
		auctionRepo: params.AuctionRepo,
		clock:       params.Clock,
		logger:      params.Logger.With().Str("component", "deposit_service").Logger(),
	}
}

// CreateDeposit registers a pending deposit for (auction, user). The amount
// comes from the auction terms, falling back to 5% of the starting price.
// Returns the existing record when one is already pending.
func (s *DepositService) CreateDeposit(ctx context.Context, auctionID, userID uuid.UUID) (*deposit.Deposit, error) {
	a, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	existing, err := s.depositRepo.GetByAuctionAndUser(ctx, auctionID, userID)
	if err != nil && !errors.Is(err, shared.ErrDepositNotFound) {
		return nil, err
	}
	if existing != nil {
		if existing.IsConfirmed() {
			return nil, shared.ErrDepositAlreadyConfirmed
		}
		return existing, nil
	}

	amount := deposit.DefaultAmount(a.StartingPrice)
	if a.DepositAmount != nil {
		amount = *a.DepositAmount
	}

	d := &deposit.Deposit{
		ID:        uuid.New(),
		AuctionID: auctionID,
		UserID:    userID,
		Amount:    amount,
		Status:    deposit.StatusPending,
		CreatedAt: s.clock.Now(),
	}
	if err := s.depositRepo.Create(ctx, d); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("auction_id", auctionID.String()).
		Str("user_id", userID.String()).
		Str("amount", amount.String()).
		Msg("Deposit registered")
	return d, nil
}

// ConfirmDeposit marks a deposit as paid. Called by the payments collaborator
// once the charge clears.
func (s *DepositService) ConfirmDeposit(ctx context.Context, auctionID, userID uuid.UUID) (*deposit.Deposit, error) {
	return s.transition(ctx, auctionID, userID, func(d *deposit.Deposit) error {
		return d.Confirm(s.clock.Now())
	})
}

// RefundDeposit releases a deposit back to the user.
func (s *DepositService) RefundDeposit(ctx context.Context, auctionID, userID uuid.UUID) (*deposit.Deposit, error) {
	return s.transition(ctx, auctionID, userID, func(d *deposit.Deposit) error {
		return d.Refund(s.clock.Now())
	})
}

// ForfeitDeposit keeps a confirmed deposit, e.g. when a winner fails to
// settle. Called by the payments collaborator.
func (s *DepositService) ForfeitDeposit(ctx context.Context, auctionID, userID uuid.UUID) (*deposit.Deposit, error) {
	d, err := s.transition(ctx, auctionID, userID, func(d *deposit.Deposit) error {
		return d.Forfeit()
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("auction_id", auctionID.String()).
		Str("user_id", userID.String()).
		Str("amount", d.Amount.String()).
		Msg("Deposit forfeited")
	return d, nil
}

func (s *DepositService) transition(ctx context.Context, auctionID, userID uuid.UUID, fn func(*deposit.Deposit) error) (*deposit.Deposit, error) {
	d, err := s.depositRepo.GetByAuctionAndUser(ctx, auctionID, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(d); err != nil {
		return nil, err
	}
	if err := s.depositRepo.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}
