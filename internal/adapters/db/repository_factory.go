package db

import (
	"estatebid-auction-service/internal/ports/outbound"

	"github.com/rs/zerolog"
)

// RepositoryFactory creates and manages all postgres repositories
type RepositoryFactory struct {
	conn   *Connection
	logger zerolog.Logger
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(conn *Connection, logger zerolog.Logger) *RepositoryFactory {
	return &RepositoryFactory{conn: conn, logger: logger}
}

// GetAuctionRepository returns the auction repository
func (f *RepositoryFactory) GetAuctionRepository() outbound.AuctionRepository {
	return NewAuctionRepository(f.conn)
}

// GetAuctionLedger returns the transactional auction ledger
func (f *RepositoryFactory) GetAuctionLedger() outbound.AuctionLedger {
	return NewAuctionLedger(f.conn, f.logger)
}

// GetBidRepository returns the bid repository
func (f *RepositoryFactory) GetBidRepository() outbound.BidRepository {
	return NewBidRepository(f.conn)
}

// GetDepositRepository returns the deposit repository
func (f *RepositoryFactory) GetDepositRepository() outbound.DepositRepository {
	return NewDepositRepository(f.conn)
}

// GetWatchRepository returns the watch repository
func (f *RepositoryFactory) GetWatchRepository() outbound.WatchRepository {
	return NewWatchRepository(f.conn)
}
