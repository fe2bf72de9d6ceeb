package app

import (
	"context"

	"estatebid-auction-service/internal/clock"
	"estatebid-auction-service/internal/domain/auction"
	"estatebid-auction-service/internal/domain/shared"
	"estatebid-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EligibilityGate decides whether a prospective bidder may place a bid.
// It has no side effects and fails closed: any missing or ambiguous
// precondition denies the bid.
type EligibilityGate struct {
	deposits outbound.DepositRepository
	clock    clock.Clock
	logger   zerolog.Logger
}

type EligibilityGateParams struct {
	Deposits outbound.DepositRepository
	Clock    clock.Clock
	Logger   zerolog.Logger
}

// NewEligibilityGate creates a new eligibility gate
func NewEligibilityGate(params EligibilityGateParams) *EligibilityGate {
	return &EligibilityGate{
		deposits: params.Deposits,
		clock:    params.Clock,
		logger:   params.Logger.With().Str("component", "eligibility_gate").Logger(),
	}
}

// Check returns nil when the user may bid on the auction, otherwise an
// *shared.IneligibleError with a reason code. Rules apply in order: auction
// active and within its bidding window, bidder is not the seller, confirmed
// deposit when the auction requires one.
func (g *EligibilityGate) Check(ctx context.Context, a *auction.Auction, bidderID uuid.UUID) error {
	now := g.clock.Now()

	if !a.IsActive(now) {
		return &shared.IneligibleError{Reason: shared.ReasonNotActive}
	}

	if bidderID == a.SellerID {
		return &shared.IneligibleError{Reason: shared.ReasonIsSeller}
	}

	if a.RequireDeposit {
		confirmed, err := g.deposits.HasConfirmed(ctx, a.ID, bidderID)
		if err != nil {
			// Fail closed: an unreadable deposit store denies the bid.
			g.logger.Error().Err(err).
				Str("auction_id", a.ID.String()).
				Str("bidder_id", bidderID.String()).
				Msg("Deposit lookup failed, denying bid")
			return &shared.IneligibleError{Reason: shared.ReasonDepositRequired}
		}
		if !confirmed {
			return &shared.IneligibleError{Reason: shared.ReasonDepositRequired}
		}
	}

	return nil
}
