package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"estatebid-auction-service/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	deadlinesKey   = "auction:deadlines"
	activationsKey = "auction:activations"

	sweepBatchSize = 10
)

// LifecycleService is the slice of the auction service the scheduler drives.
type LifecycleService interface {
	ActivateForScheduler(ctx context.Context, auctionID uuid.UUID) error
	EndAuctionForScheduler(ctx context.Context, auctionID uuid.UUID) (*shared.AuctionEndResult, error)
	EffectiveDeadline(ctx context.Context, auctionID uuid.UUID) (time.Time, error)
}

// AuctionScheduler keeps auction start and end times in two redis sorted sets
// scored by unix time, and sweeps them on an interval. Closing goes through
// the auction service, which re-validates the deadline under the auction's
// lock; when an anti-snipe extension moved the deadline after this sweep read
// it, the service reports ErrAuctionNotDue and the scheduler re-registers the
// fresh deadline instead of closing early.
type AuctionScheduler struct {
	redis          *redis.Client
	auctionService LifecycleService
	sweepInterval  time.Duration
	logger         zerolog.Logger
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
}

type AuctionSchedulerParams struct {
	RedisClient    *redis.Client
	AuctionService LifecycleService
	SweepInterval  time.Duration
	Logger         zerolog.Logger
}

func NewAuctionScheduler(params AuctionSchedulerParams) *AuctionScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	interval := params.SweepInterval
	if interval <= 0 {
		interval = time.Second
	}

	return &AuctionScheduler{
		redis:          params.RedisClient,
		auctionService: params.AuctionService,
		sweepInterval:  interval,
		logger:         params.Logger.With().Str("component", "auction_scheduler").Logger(),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// ScheduleEnd registers or overwrites an auction's end deadline.
func (s *AuctionScheduler) ScheduleEnd(auctionID uuid.UUID, endTime time.Time) error {
	return s.schedule(deadlinesKey, auctionID, endTime)
}

// ScheduleActivation registers or overwrites an auction's start time.
func (s *AuctionScheduler) ScheduleActivation(auctionID uuid.UUID, startTime time.Time) error {
	return s.schedule(activationsKey, auctionID, startTime)
}

func (s *AuctionScheduler) schedule(key string, auctionID uuid.UUID, at time.Time) error {
	err := s.redis.ZAdd(s.ctx, key, redis.Z{
		Score:  float64(at.Unix()),
		Member: auctionID.String(),
	}).Err()

	if err != nil {
		s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Str("key", key).Msg("Failed to schedule auction")
		return fmt.Errorf("failed to schedule auction: %w", err)
	}

	s.logger.Info().
		Str("auction_id", auctionID.String()).
		Str("key", key).
		Time("at", at).
		Msg("Auction scheduled")

	return nil
}

// Start begins the sweep loop
func (s *AuctionScheduler) Start() {
	s.logger.Info().Dur("sweep_interval", s.sweepInterval).Msg("Starting auction scheduler")

	s.wg.Add(1)
	go s.sweepLoop()
}

// Stop gracefully stops the scheduler
func (s *AuctionScheduler) Stop() {
	s.logger.Info().Msg("Stopping auction scheduler")
	s.cancel()
	s.wg.Wait()
}

func (s *AuctionScheduler) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepActivations()
			s.sweepDeadlines()
		case <-s.ctx.Done():
			s.logger.Info().Msg("Scheduler sweep loop stopped")
			return
		}
	}
}

// due returns the members of key whose score has passed.
func (s *AuctionScheduler) due(key string) []uuid.UUID {
	now := time.Now().Unix()

	members, err := s.redis.ZRangeByScore(s.ctx, key, &redis.ZRangeBy{
		Min:   "0",
		Max:   strconv.FormatInt(now, 10),
		Count: sweepBatchSize,
	}).Result()

	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to read due auctions")
		return nil
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, member := range members {
		id, err := uuid.Parse(member)
		if err != nil {
			s.logger.Error().Err(err).Str("auction_id", member).Str("key", key).Msg("Invalid auction ID in schedule, removing")
			s.redis.ZRem(s.ctx, key, member)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (s *AuctionScheduler) sweepActivations() {
	for _, auctionID := range s.due(activationsKey) {
		go s.activateAuction(auctionID)
	}
}

func (s *AuctionScheduler) sweepDeadlines() {
	for _, auctionID := range s.due(deadlinesKey) {
		go s.endAuction(auctionID)
	}
}

func (s *AuctionScheduler) activateAuction(auctionID uuid.UUID) {
	err := s.auctionService.ActivateForScheduler(s.ctx, auctionID)
	s.redis.ZRem(s.ctx, activationsKey, auctionID.String())

	if errors.Is(err, shared.ErrAuctionNotPending) {
		// Activated by a concurrent read, or cancelled before start.
		s.logger.Debug().Str("auction_id", auctionID.String()).Msg("Auction no longer awaiting activation")
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("auction_id", auctionID.String()).Msg("Skipped auction activation")
		return
	}

	s.logger.Info().Str("auction_id", auctionID.String()).Msg("Auction activated on schedule")
}

func (s *AuctionScheduler) endAuction(auctionID uuid.UUID) {
	s.logger.Info().Str("auction_id", auctionID.String()).Msg("Processing auction end")

	result, err := s.auctionService.EndAuctionForScheduler(s.ctx, auctionID)
	if err != nil {
		s.redis.ZRem(s.ctx, deadlinesKey, auctionID.String())

		if errors.Is(err, shared.ErrAuctionNotDue) {
			// A late bid extended the deadline between the sweep read and the
			// close attempt; pick up the fresh one.
			s.rescheduleFromCurrentDeadline(auctionID)
			return
		}
		if errors.Is(err, shared.ErrAuctionAlreadyEnded) {
			return
		}

		s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to end auction")
		return
	}

	s.redis.ZRem(s.ctx, deadlinesKey, auctionID.String())

	logger := s.logger.Info().
		Str("auction_id", auctionID.String()).
		Str("status", result.Status)
	if result.WinnerID != nil {
		logger = logger.Str("winner_id", result.WinnerID.String())
	}
	if result.WinningAmount != nil {
		logger = logger.Str("winning_amount", result.WinningAmount.String())
	}
	logger.Msg("Auction ended on schedule")
}

func (s *AuctionScheduler) rescheduleFromCurrentDeadline(auctionID uuid.UUID) {
	deadline, err := s.auctionService.EffectiveDeadline(s.ctx, auctionID)
	if err != nil {
		s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to read extended deadline")
		return
	}

	if err := s.ScheduleEnd(auctionID, deadline); err != nil {
		return
	}

	s.logger.Info().
		Str("auction_id", auctionID.String()).
		Time("deadline", deadline).
		Msg("Deadline extended, auction rescheduled")
}
