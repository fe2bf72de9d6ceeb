package memory

import (
	"context"
	"sort"
	"sync"

	"estatebid-auction-service/internal/domain/auction"
	"estatebid-auction-service/internal/domain/bid"
	"estatebid-auction-service/internal/domain/deposit"
	"estatebid-auction-service/internal/domain/shared"
	"estatebid-auction-service/internal/domain/watch"
	"estatebid-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store is an in-memory implementation of every repository port plus the
// auction ledger. Used by the memory storage driver and by tests. Each auction
// carries its own mutex, so bids on different auctions never contend; ledger
// units work on clones and publish them only on success, so a failed unit
// leaves no partial writes behind.
type Store struct {
	mu       sync.RWMutex
	auctions map[uuid.UUID]*auctionRecord
	deposits map[pairKey]*deposit.Deposit
	watches  map[pairKey]*watch.Watch
	logger   zerolog.Logger
}

type pairKey struct {
	auctionID uuid.UUID
	userID    uuid.UUID
}

type auctionRecord struct {
	mu      sync.Mutex
	auction *auction.Auction
	bids    []*bid.Bid
}

// NewStore creates an empty in-memory store.
func NewStore(logger zerolog.Logger) *Store {
	return &Store{
		auctions: make(map[uuid.UUID]*auctionRecord),
		deposits: make(map[pairKey]*deposit.Deposit),
		watches:  make(map[pairKey]*watch.Watch),
		logger:   logger.With().Str("component", "memory_store").Logger(),
	}
}

// --- AuctionRepository ---

func (s *Store) Create(ctx context.Context, a *auction.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auctions[a.ID] = &auctionRecord{auction: a.Clone()}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	rec, err := s.record(id)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.auction.Clone(), nil
}

func (s *Store) List(ctx context.Context, status *auction.Status, page, pageSize int) ([]*auction.Auction, error) {
	s.mu.RLock()
	records := make([]*auctionRecord, 0, len(s.auctions))
	for _, rec := range s.auctions {
		records = append(records, rec)
	}
	s.mu.RUnlock()

	all := make([]*auction.Auction, 0, len(records))
	for _, rec := range records {
		rec.mu.Lock()
		a := rec.auction.Clone()
		rec.mu.Unlock()
		if status != nil && a.Status != *status {
			continue
		}
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	start := (page - 1) * pageSize
	if start >= len(all) {
		return []*auction.Auction{}, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (s *Store) Update(ctx context.Context, a *auction.Auction) error {
	rec, err := s.record(a.ID)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.auction = a.Clone()
	return nil
}

func (s *Store) record(id uuid.UUID) (*auctionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.auctions[id]
	if !ok {
		return nil, shared.ErrAuctionNotFound
	}
	return rec, nil
}

// --- AuctionLedger ---

// WithAuction runs fn under the auction's exclusive lock. fn works on clones;
// its writes are published to the store only when it returns nil.
func (s *Store) WithAuction(ctx context.Context, auctionID uuid.UUID, fn func(tx outbound.LedgerTx) error) error {
	rec, err := s.record(auctionID)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &ledgerTx{
		a:            rec.auction.Clone(),
		lockedStatus: rec.auction.Status,
		bids:         cloneBids(rec.bids),
	}
	if err := fn(tx); err != nil {
		return err
	}

	rec.auction = tx.a.Clone()
	rec.bids = cloneBids(tx.bids)
	return nil
}

// ledgerTx is the working copy of one auction and its bids while the
// per-auction lock is held.
type ledgerTx struct {
	a            *auction.Auction
	lockedStatus auction.Status
	bids         []*bid.Bid
}

func (t *ledgerTx) Auction() *auction.Auction {
	return t.a
}

func (t *ledgerTx) Bids() ([]*bid.Bid, error) {
	out := make([]*bid.Bid, 0, len(t.bids))
	for _, b := range t.bids {
		if b.IsRetracted {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (t *ledgerTx) AppendBid(b *bid.Bid) error {
	t.bids = append(t.bids, b)
	return nil
}

func (t *ledgerTx) UpdateBidFlags(b *bid.Bid) error {
	for _, existing := range t.bids {
		if existing.ID == b.ID {
			existing.IsWinning = b.IsWinning
			existing.IsRetracted = b.IsRetracted
			existing.UpdatedAt = b.UpdatedAt
			return nil
		}
	}
	return shared.ErrBidNotFound
}

func (t *ledgerTx) ClearWinning() error {
	for _, b := range t.bids {
		b.IsWinning = false
	}
	return nil
}

func (t *ledgerTx) SaveAuction(a *auction.Auction) error {
	if t.lockedStatus != a.Status && t.a.Status != a.Status {
		// Cannot happen while the lock is held; kept for parity with the
		// database driver's status check.
		return shared.ErrAuctionClosedConcurrently
	}
	t.a = a
	return nil
}

func cloneBids(bids []*bid.Bid) []*bid.Bid {
	out := make([]*bid.Bid, len(bids))
	for i, b := range bids {
		out[i] = b.Clone()
	}
	return out
}

// --- BidRepository ---

func (s *Store) GetByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	rec, err := s.record(auctionID)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	bids := cloneBids(rec.bids)
	rec.mu.Unlock()

	sort.SliceStable(bids, func(i, j int) bool {
		return bids[i].Amount.GreaterThan(bids[j].Amount)
	})
	return bids, nil
}

func (s *Store) GetWinning(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error) {
	rec, err := s.record(auctionID)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, b := range rec.bids {
		if b.IsWinning && !b.IsRetracted {
			return b.Clone(), nil
		}
	}
	return nil, shared.ErrBidNotFound
}

func (s *Store) GetByBidder(ctx context.Context, bidderID uuid.UUID) ([]*bid.Bid, error) {
	s.mu.RLock()
	records := make([]*auctionRecord, 0, len(s.auctions))
	for _, rec := range s.auctions {
		records = append(records, rec)
	}
	s.mu.RUnlock()

	var out []*bid.Bid
	for _, rec := range records {
		rec.mu.Lock()
		for _, b := range rec.bids {
			if b.BidderID == bidderID {
				out = append(out, b.Clone())
			}
		}
		rec.mu.Unlock()
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// --- DepositRepository ---

// Deposits returns the deposit repository view of the store.
func (s *Store) Deposits() outbound.DepositRepository {
	return &depositStore{s: s}
}

type depositStore struct {
	s *Store
}

func (r *depositStore) Create(ctx context.Context, d *deposit.Deposit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := pairKey{auctionID: d.AuctionID, userID: d.UserID}
	if _, ok := r.s.deposits[key]; ok {
		return shared.ErrDepositAlreadyExists
	}
	copied := *d
	r.s.deposits[key] = &copied
	return nil
}

func (r *depositStore) GetByAuctionAndUser(ctx context.Context, auctionID, userID uuid.UUID) (*deposit.Deposit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.deposits[pairKey{auctionID: auctionID, userID: userID}]
	if !ok {
		return nil, shared.ErrDepositNotFound
	}
	copied := *d
	return &copied, nil
}

func (r *depositStore) Update(ctx context.Context, d *deposit.Deposit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := pairKey{auctionID: d.AuctionID, userID: d.UserID}
	if _, ok := r.s.deposits[key]; !ok {
		return shared.ErrDepositNotFound
	}
	copied := *d
	r.s.deposits[key] = &copied
	return nil
}

func (r *depositStore) HasConfirmed(ctx context.Context, auctionID, userID uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.deposits[pairKey{auctionID: auctionID, userID: userID}]
	return ok && d.IsConfirmed(), nil
}

// --- WatchRepository ---

// Watches returns the watchlist repository view of the store.
func (s *Store) Watches() outbound.WatchRepository {
	return &watchStore{s: s}
}

type watchStore struct {
	s *Store
}

func (r *watchStore) Create(ctx context.Context, w *watch.Watch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	copied := *w
	r.s.watches[pairKey{auctionID: w.AuctionID, userID: w.UserID}] = &copied
	return nil
}

func (r *watchStore) Delete(ctx context.Context, userID, auctionID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := pairKey{auctionID: auctionID, userID: userID}
	if _, ok := r.s.watches[key]; !ok {
		return shared.ErrWatchNotFound
	}
	delete(r.s.watches, key)
	return nil
}

func (r *watchStore) GetByUserAndAuction(ctx context.Context, userID, auctionID uuid.UUID) (*watch.Watch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.watches[pairKey{auctionID: auctionID, userID: userID}]
	if !ok {
		return nil, shared.ErrWatchNotFound
	}
	copied := *w
	return &copied, nil
}

func (r *watchStore) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*watch.Watch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*watch.Watch
	for key, w := range r.s.watches {
		if key.auctionID == auctionID {
			copied := *w
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
