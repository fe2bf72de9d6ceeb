package app

import (
	"context"
	"errors"

	"estatebid-auction-service/internal/clock"
	"estatebid-auction-service/internal/domain/shared"
	"estatebid-auction-service/internal/domain/watch"
	"estatebid-auction-service/internal/ports/inbound"
	"estatebid-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WatchService manages auction watchlist entries.
type WatchService struct {
	watchRepo   outbound.WatchRepository
	auctionRepo outbound.AuctionRepository
	clock       clock.Clock
	logger      zerolog.Logger
}

type WatchServiceParams struct {
	WatchRepo   outbound.WatchRepository
	AuctionRepo outbound.AuctionRepository
	Clock       clock.Clock
	Logger      zerolog.Logger
}

// NewWatchService creates a new watch service
func NewWatchService(params WatchServiceParams) *WatchService {
	return &WatchService{
		watchRepo:   params.WatchRepo,
		auctionRepo: params.AuctionRepo,
		clock:       params.Clock,
		logger:      params.Logger.With().Str("component", "watch_service").Logger(),
	}
}

// ToggleWatch adds the auction to the user's watchlist, or removes it when
// already present. Returns whether the user is watching after the call.
func (s *WatchService) ToggleWatch(ctx context.Context, req inbound.ToggleWatchRequest) (bool, error) {
	if _, err := s.auctionRepo.GetByID(ctx, req.AuctionID); err != nil {
		return false, err
	}

	existing, err := s.watchRepo.GetByUserAndAuction(ctx, req.UserID, req.AuctionID)
	if err != nil && !errors.Is(err, shared.ErrWatchNotFound) {
		return false, err
	}
	if existing != nil {
		if err := s.watchRepo.Delete(ctx, req.UserID, req.AuctionID); err != nil {
			return false, err
		}
		return false, nil
	}

	w := &watch.Watch{
		ID:                  uuid.New(),
		UserID:              req.UserID,
		AuctionID:           req.AuctionID,
		NotifyOnNewBid:      req.NotifyOnNewBid,
		NotifyBeforeEnd:     req.NotifyBeforeEnd,
		NotifyMinutesBefore: req.NotifyMinutesBefore,
		CreatedAt:           s.clock.Now(),
	}
	if err := s.watchRepo.Create(ctx, w); err != nil {
		return false, err
	}
	return true, nil
}

// ListWatchers retrieves the watchlist entries for an auction.
func (s *WatchService) ListWatchers(ctx context.Context, auctionID uuid.UUID) ([]*watch.Watch, error) {
	return s.watchRepo.ListByAuction(ctx, auctionID)
}
