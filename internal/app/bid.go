package app

import (
	"context"
	"errors"
	"time"

	"estatebid-auction-service/internal/clock"
	"estatebid-auction-service/internal/domain/auction"
	"estatebid-auction-service/internal/domain/bid"
	"estatebid-auction-service/internal/domain/shared"
	"estatebid-auction-service/internal/ports/inbound"
	"estatebid-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BidService implements the bid acceptance engine. PlaceBid executes as a
// single atomic unit per auction: validation, ledger append, winning-flag
// maintenance, derived-field updates, anti-snipe extension and proxy
// resolution all commit or roll back together. Notification dispatch happens
// strictly after commit.
type BidService struct {
	ledger     outbound.AuctionLedger
	bidRepo    outbound.BidRepository
	gate       *EligibilityGate
	proxy      *ProxyResolver
	scheduler  outbound.DeadlineScheduler
	dispatcher *Dispatcher
	clock      clock.Clock
	logger     zerolog.Logger
}

type BidServiceParams struct {
	Ledger     outbound.AuctionLedger
	BidRepo    outbound.BidRepository
	Gate       *EligibilityGate
	Proxy      *ProxyResolver
	Scheduler  outbound.DeadlineScheduler
	Dispatcher *Dispatcher
	Clock      clock.Clock
	Logger     zerolog.Logger
}

// NewBidService creates a new bid service
func NewBidService(params BidServiceParams) *BidService {
	return &BidService{
		ledger:     params.Ledger,
		bidRepo:    params.BidRepo,
		gate:       params.Gate,
		proxy:      params.Proxy,
		scheduler:  params.Scheduler,
		dispatcher: params.Dispatcher,
		clock:      params.Clock,
		logger:     params.Logger.With().Str("component", "bid_service").Logger(),
	}
}

// SetScheduler wires the deadline scheduler after construction.
func (s *BidService) SetScheduler(scheduler outbound.DeadlineScheduler) {
	s.scheduler = scheduler
}

// placeBidOutcome carries the committed state out of the ledger unit.
type placeBidOutcome struct {
	bid      *bid.Bid
	autoBid  *bid.Bid
	extended bool
	deadline time.Time // effective end time after any extension
}

// PlaceBid places a new bid on an auction. Validation errors (BidTooLow,
// Ineligible) surface unchanged and leave no state behind. A concurrency
// conflict is retried once against fresh state before surfacing ErrConflict.
func (s *BidService) PlaceBid(ctx context.Context, req inbound.PlaceBidRequest) (*bid.Bid, error) {
	s.logger.Info().
		Str("auction_id", req.AuctionID.String()).
		Str("bidder_id", req.BidderID.String()).
		Str("amount", req.Amount.String()).
		Msg("Attempting to place bid")

	outcome, err := s.placeBidOnce(ctx, req)
	if errors.Is(err, shared.ErrAuctionClosedConcurrently) {
		s.logger.Warn().
			Str("auction_id", req.AuctionID.String()).
			Msg("Auction changed during bid placement, retrying against fresh state")
		outcome, err = s.placeBidOnce(ctx, req)
		if errors.Is(err, shared.ErrAuctionClosedConcurrently) {
			return nil, shared.ErrConflict
		}
	}
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, req.AuctionID, outcome)
	return outcome.bid, nil
}

// placeBidOnce runs one full validation-and-commit pass under the auction's
// exclusive lock.
func (s *BidService) placeBidOnce(ctx context.Context, req inbound.PlaceBidRequest) (*placeBidOutcome, error) {
	outcome := &placeBidOutcome{}

	err := s.ledger.WithAuction(ctx, req.AuctionID, func(tx outbound.LedgerTx) error {
		a := tx.Auction()

		if err := s.gate.Check(ctx, a, req.BidderID); err != nil {
			return err
		}

		// The minimum-bid check reads the price inside the critical
		// section; a stale read here would lose updates.
		minimum := a.MinimumBid()
		if req.Amount.LessThan(minimum) {
			return &shared.BidTooLowError{Minimum: minimum}
		}

		// A proxy ceiling on an auction without proxy bidding is
		// discarded, not rejected.
		ceiling := req.MaxAmount
		if ceiling != nil && !a.AllowProxyBidding {
			ceiling = nil
		}

		now := s.clock.Now()
		newBid := &bid.Bid{
			ID:        uuid.New(),
			AuctionID: a.ID,
			BidderID:  req.BidderID,
			Amount:    req.Amount,
			MaxAmount: ceiling,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.AppendBid(newBid); err != nil {
			return err
		}

		if err := tx.ClearWinning(); err != nil {
			return err
		}
		newBid.IsWinning = true
		if err := tx.UpdateBidFlags(newBid); err != nil {
			return err
		}

		a.RecordBid(req.Amount, now)
		if err := recountUniqueBidders(tx, a); err != nil {
			return err
		}
		outcome.extended = a.ExtendIfClosing(now)
		outcome.deadline = a.EffectiveEndTime()

		if err := tx.SaveAuction(a); err != nil {
			return err
		}

		if a.AllowProxyBidding {
			autoBid, err := s.proxy.Resolve(tx, a, newBid, now)
			if err != nil {
				return err
			}
			outcome.autoBid = autoBid
		}

		outcome.bid = newBid
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// recountUniqueBidders recomputes the distinct non-retracted bidder count
// from the ledger view.
func recountUniqueBidders(tx outbound.LedgerTx, a *auction.Auction) error {
	bids, err := tx.Bids()
	if err != nil {
		return err
	}
	seen := make(map[uuid.UUID]struct{}, len(bids))
	for _, b := range bids {
		seen[b.BidderID] = struct{}{}
	}
	a.UniqueBidders = len(seen)
	return nil
}

// afterCommit handles everything that must not hold the lock or roll back
// the bid: deadline rescheduling and notification fan-out.
func (s *BidService) afterCommit(ctx context.Context, auctionID uuid.UUID, outcome *placeBidOutcome) {
	if outcome.extended && s.scheduler != nil {
		if err := s.scheduler.ScheduleEnd(auctionID, outcome.deadline); err != nil {
			s.logger.Error().Err(err).
				Str("auction_id", auctionID.String()).
				Msg("Failed to reschedule auction deadline after extension")
		}
	}

	if s.dispatcher != nil {
		s.dispatcher.BidPlaced(ctx, auctionID, outcome.bid, outcome.autoBid, outcome.extended)
	}
}

// GetBids retrieves bids for an auction, highest first
func (s *BidService) GetBids(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	return s.bidRepo.GetByAuctionID(ctx, auctionID)
}

// GetWinningBid retrieves the current winning bid for an auction
func (s *BidService) GetWinningBid(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error) {
	return s.bidRepo.GetWinning(ctx, auctionID)
}

// GetBidderBids retrieves one user's bids across auctions, newest first
func (s *BidService) GetBidderBids(ctx context.Context, bidderID uuid.UUID) ([]*bid.Bid, error) {
	return s.bidRepo.GetByBidder(ctx, bidderID)
}
