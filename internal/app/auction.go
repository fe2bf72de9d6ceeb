package app

import (
	"context"
	"errors"
	"time"

	"estatebid-auction-service/internal/clock"
	"estatebid-auction-service/internal/domain/auction"
	"estatebid-auction-service/internal/domain/deposit"
	"estatebid-auction-service/internal/domain/shared"
	"estatebid-auction-service/internal/ports/inbound"
	"estatebid-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultExtendMinutes = 5

// AuctionService implements the auction lifecycle: creation and term editing
// by the seller, the draft → scheduled → active → {ended, cancelled, sold}
// state machine, and deadline-driven closing. Lifecycle transitions run under
// the same per-auction lock as bids, so a closing auction can never race a
// bid commit.
type AuctionService struct {
	auctionRepo outbound.AuctionRepository
	bidRepo     outbound.BidRepository
	ledger      outbound.AuctionLedger
	scheduler   outbound.DeadlineScheduler
	dispatcher  *Dispatcher
	clock       clock.Clock
	logger      zerolog.Logger
}

type AuctionServiceParams struct {
	AuctionRepo outbound.AuctionRepository
	BidRepo     outbound.BidRepository
	Ledger      outbound.AuctionLedger
	Scheduler   outbound.DeadlineScheduler
	Dispatcher  *Dispatcher
	Clock       clock.Clock
	Logger      zerolog.Logger
}

// NewAuctionService creates a new auction service
func NewAuctionService(params AuctionServiceParams) *AuctionService {
	return &AuctionService{
		auctionRepo: params.AuctionRepo,
		bidRepo:     params.BidRepo,
		ledger:      params.Ledger,
		scheduler:   params.Scheduler,
		dispatcher:  params.Dispatcher,
		clock:       params.Clock,
		logger:      params.Logger.With().Str("component", "auction_service").Logger(),
	}
}

// SetScheduler wires the deadline scheduler after construction; the scheduler
// itself needs this service to close auctions.
func (s *AuctionService) SetScheduler(scheduler outbound.DeadlineScheduler) {
	s.scheduler = scheduler
}

// CreateAuction creates a new auction in draft status
func (s *AuctionService) CreateAuction(ctx context.Context, req inbound.CreateAuctionRequest) (*auction.Auction, error) {
	s.logger.Info().
		Str("property_id", req.PropertyID.String()).
		Str("seller_id", req.SellerID.String()).
		Str("starting_price", req.StartingPrice.String()).
		Msg("Attempting to create auction")

	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return nil, shared.ErrInvalidTimeFormat
	}
	endTime, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		return nil, shared.ErrInvalidTimeFormat
	}

	now := s.clock.Now()
	if startTime.Before(now) {
		return nil, shared.ErrInvalidStartTime
	}
	if !endTime.After(startTime) {
		return nil, shared.ErrInvalidEndTime
	}
	if !req.StartingPrice.IsPositive() {
		return nil, shared.ErrInvalidStartingPrice
	}
	if !req.BidIncrement.IsPositive() {
		return nil, shared.ErrInvalidBidIncrement
	}

	extendMinutes := req.ExtendMinutes
	if extendMinutes <= 0 {
		extendMinutes = defaultExtendMinutes
	}

	depositAmount := req.DepositAmount
	if req.RequireDeposit && depositAmount == nil {
		v := deposit.DefaultAmount(req.StartingPrice)
		depositAmount = &v
	}

	a := &auction.Auction{
		ID:                uuid.New(),
		PropertyID:        req.PropertyID,
		SellerID:          req.SellerID,
		Title:             req.Title,
		Description:       req.Description,
		Status:            auction.StatusDraft,
		StartingPrice:     req.StartingPrice,
		ReservePrice:      req.ReservePrice,
		BidIncrement:      req.BidIncrement,
		StartTime:         startTime,
		EndTime:           endTime,
		AutoExtend:        req.AutoExtend,
		ExtendWindow:      time.Duration(extendMinutes) * time.Minute,
		AllowProxyBidding: req.AllowProxyBidding,
		RequireDeposit:    req.RequireDeposit,
		DepositAmount:     depositAmount,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.auctionRepo.Create(ctx, a); err != nil {
		s.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to save auction")
		return nil, err
	}

	if s.dispatcher != nil {
		s.dispatcher.AuctionCreated(ctx, a)
	}

	s.logger.Info().Str("auction_id", a.ID.String()).Msg("Auction created")
	return a, nil
}

// ScheduleAuction publishes a draft auction and registers its start and end
// with the deadline scheduler.
func (s *AuctionService) ScheduleAuction(ctx context.Context, auctionID, sellerID uuid.UUID) (*auction.Auction, error) {
	var scheduled *auction.Auction
	err := s.ledger.WithAuction(ctx, auctionID, func(tx outbound.LedgerTx) error {
		a := tx.Auction()
		if a.SellerID != sellerID {
			return shared.ErrNotSeller
		}
		if err := a.Schedule(s.clock.Now()); err != nil {
			return err
		}
		if err := tx.SaveAuction(a); err != nil {
			return err
		}
		scheduled = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.scheduler != nil {
		if err := s.scheduler.ScheduleActivation(auctionID, scheduled.StartTime); err != nil {
			s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to schedule auction activation")
		}
		if err := s.scheduler.ScheduleEnd(auctionID, scheduled.EndTime); err != nil {
			s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to schedule auction deadline")
		}
	}

	s.logger.Info().
		Str("auction_id", auctionID.String()).
		Time("start_time", scheduled.StartTime).
		Time("end_time", scheduled.EndTime).
		Msg("Auction scheduled")
	return scheduled, nil
}

// GetAuction retrieves an auction by ID. Due lifecycle transitions are
// applied lazily on read: a scheduled auction past its start time activates,
// an active auction past its effective deadline ends.
func (s *AuctionService) GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error) {
	a, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if a.DueToStart(now) {
		if a, err = s.activate(ctx, auctionID); err != nil {
			return nil, err
		}
		now = s.clock.Now()
	}
	if a.DueToEnd(now) {
		if _, err := s.EndAuction(ctx, auctionID); err != nil && !errors.Is(err, shared.ErrAuctionAlreadyEnded) {
			return nil, err
		}
		return s.auctionRepo.GetByID(ctx, auctionID)
	}
	return a, nil
}

// ListAuctions retrieves a list of auctions
func (s *AuctionService) ListAuctions(ctx context.Context, req inbound.ListAuctionsRequest) ([]*auction.Auction, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 10
	}
	return s.auctionRepo.List(ctx, req.Status, req.Page, req.PageSize)
}

// UpdateAuction changes auction terms. Only the seller may edit, and only
// while the auction is in draft or scheduled status.
func (s *AuctionService) UpdateAuction(ctx context.Context, req inbound.UpdateAuctionRequest) (*auction.Auction, error) {
	var updated *auction.Auction
	err := s.ledger.WithAuction(ctx, req.AuctionID, func(tx outbound.LedgerTx) error {
		a := tx.Auction()
		if a.SellerID != req.RequesterID {
			return shared.ErrNotSeller
		}
		if !a.IsEditable() {
			return shared.ErrAuctionNotEditable
		}

		if req.Title != nil {
			a.Title = *req.Title
		}
		if req.Description != nil {
			a.Description = *req.Description
		}
		if req.StartingPrice != nil {
			if !req.StartingPrice.IsPositive() {
				return shared.ErrInvalidStartingPrice
			}
			a.StartingPrice = *req.StartingPrice
		}
		if req.ReservePrice != nil {
			a.ReservePrice = req.ReservePrice
		}
		if req.BidIncrement != nil {
			if !req.BidIncrement.IsPositive() {
				return shared.ErrInvalidBidIncrement
			}
			a.BidIncrement = *req.BidIncrement
		}
		if req.StartTime != nil {
			t, err := time.Parse(time.RFC3339, *req.StartTime)
			if err != nil {
				return shared.ErrInvalidTimeFormat
			}
			a.StartTime = t
		}
		if req.EndTime != nil {
			t, err := time.Parse(time.RFC3339, *req.EndTime)
			if err != nil {
				return shared.ErrInvalidTimeFormat
			}
			a.EndTime = t
		}
		if !a.EndTime.After(a.StartTime) {
			return shared.ErrInvalidEndTime
		}

		a.UpdatedAt = s.clock.Now()
		if err := tx.SaveAuction(a); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CancelAuction cancels an auction before a binding sale. Only the seller may
// cancel.
func (s *AuctionService) CancelAuction(ctx context.Context, auctionID, requesterID uuid.UUID) error {
	return s.ledger.WithAuction(ctx, auctionID, func(tx outbound.LedgerTx) error {
		a := tx.Auction()
		if a.SellerID != requesterID {
			return shared.ErrNotSeller
		}
		if err := a.Cancel(s.clock.Now()); err != nil {
			return err
		}
		return tx.SaveAuction(a)
	})
}

// EndAuction closes an auction whose effective deadline has passed, deriving
// the winner from the winning ledger entry. Runs under the per-auction lock
// so it cannot race a bid commit.
func (s *AuctionService) EndAuction(ctx context.Context, auctionID uuid.UUID) (*shared.AuctionEndResult, error) {
	var result *shared.AuctionEndResult
	err := s.ledger.WithAuction(ctx, auctionID, func(tx outbound.LedgerTx) error {
		a := tx.Auction()
		if a.IsClosed() {
			return shared.ErrAuctionAlreadyEnded
		}

		now := s.clock.Now()
		// A scheduled auction whose whole window already elapsed still
		// has to pass through active.
		if a.DueToStart(now) {
			if err := a.Activate(now); err != nil {
				return err
			}
		}
		if !a.DueToEnd(now) {
			return shared.ErrAuctionNotDue
		}

		var winnerID *uuid.UUID
		winningAmount := a.CurrentPrice
		bids, err := tx.Bids()
		if err != nil {
			return err
		}
		for _, b := range bids {
			if b.IsWinning {
				id := b.BidderID
				winnerID = &id
				amount := b.Amount
				winningAmount = &amount
				break
			}
		}

		if err := a.End(winnerID, winningAmount, now); err != nil {
			return err
		}
		if err := tx.SaveAuction(a); err != nil {
			return err
		}

		result = &shared.AuctionEndResult{
			AuctionID:     auctionID,
			WinnerID:      winnerID,
			WinningAmount: winningAmount,
			Status:        string(a.Status),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.WinnerID != nil {
		s.logger.Info().
			Str("auction_id", auctionID.String()).
			Str("winner_id", result.WinnerID.String()).
			Str("winning_amount", result.WinningAmount.String()).
			Msg("Auction ended with winner")
	} else {
		s.logger.Info().Str("auction_id", auctionID.String()).Msg("Auction ended with no bids")
	}

	if s.dispatcher != nil {
		s.dispatcher.AuctionEnded(ctx, result)
	}
	return result, nil
}

// MarkSold records a settled sale. Called by the settlement collaborator once
// payment clears; the winner is derived from the winning ledger entry.
func (s *AuctionService) MarkSold(ctx context.Context, auctionID uuid.UUID) error {
	var result *shared.AuctionEndResult
	err := s.ledger.WithAuction(ctx, auctionID, func(tx outbound.LedgerTx) error {
		a := tx.Auction()

		bids, err := tx.Bids()
		if err != nil {
			return err
		}
		for _, b := range bids {
			if b.IsWinning {
				if err := a.MarkSold(b.BidderID, b.Amount, s.clock.Now()); err != nil {
					return err
				}
				if err := tx.SaveAuction(a); err != nil {
					return err
				}
				result = &shared.AuctionEndResult{
					AuctionID:     auctionID,
					WinnerID:      a.WinnerID,
					WinningAmount: a.WinningAmount,
					Status:        string(a.Status),
				}
				return nil
			}
		}
		return shared.ErrNoWinningBid
	})
	if err != nil {
		return err
	}

	if s.dispatcher != nil {
		s.dispatcher.AuctionEnded(ctx, result)
	}
	return nil
}

// ActivateForScheduler opens a scheduled auction whose start time passed.
// Returns shared.ErrAuctionNotPending when a concurrent read or a cancellation
// already moved the auction on, so the sweep can drop its entry quietly.
func (s *AuctionService) ActivateForScheduler(ctx context.Context, auctionID uuid.UUID) error {
	return s.ledger.WithAuction(ctx, auctionID, func(tx outbound.LedgerTx) error {
		a := tx.Auction()
		now := s.clock.Now()
		if !a.DueToStart(now) {
			return shared.ErrAuctionNotPending
		}
		if err := a.Activate(now); err != nil {
			return err
		}
		return tx.SaveAuction(a)
	})
}

// EndAuctionForScheduler implements the sweep callback. Returns
// shared.ErrAuctionNotDue when the deadline moved (anti-snipe) since the
// sweep entry was written; the scheduler re-registers the new deadline.
func (s *AuctionService) EndAuctionForScheduler(ctx context.Context, auctionID uuid.UUID) (*shared.AuctionEndResult, error) {
	return s.EndAuction(ctx, auctionID)
}

// EffectiveDeadline reports the current effective end time, for scheduler
// re-registration after a rejected sweep.
func (s *AuctionService) EffectiveDeadline(ctx context.Context, auctionID uuid.UUID) (time.Time, error) {
	a, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return time.Time{}, err
	}
	return a.EffectiveEndTime(), nil
}

func (s *AuctionService) activate(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error) {
	var activated *auction.Auction
	err := s.ledger.WithAuction(ctx, auctionID, func(tx outbound.LedgerTx) error {
		a := tx.Auction()
		now := s.clock.Now()
		if !a.DueToStart(now) {
			// Already activated by a concurrent read or sweep.
			activated = a
			return nil
		}
		if err := a.Activate(now); err != nil {
			return err
		}
		if err := tx.SaveAuction(a); err != nil {
			return err
		}
		activated = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return activated, nil
}
