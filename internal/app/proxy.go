package app

import (
	"sort"
	"time"

	"estatebid-auction-service/internal/domain/auction"
	"estatebid-auction-service/internal/domain/bid"
	"estatebid-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ProxyResolver computes the automatic counter-bid after a new bid is
// accepted. Resolution is single-hop: at most one auto-bid per incoming bid,
// and the anti-snipe extension is never re-applied for it.
type ProxyResolver struct {
	logger zerolog.Logger
}

// NewProxyResolver creates a new proxy resolver
func NewProxyResolver(logger zerolog.Logger) *ProxyResolver {
	return &ProxyResolver{
		logger: logger.With().Str("component", "proxy_resolver").Logger(),
	}
}

// Resolve finds the standing proxy ceiling that beats newBid and, if one
// exists, appends an auto-bid for its owner inside the same ledger unit.
// The counter-bid amount is min(newBid + increment, ceiling). Ties between
// equal ceilings go to the earliest-placed proxy. Returns the auto-bid, or
// nil when no ceiling beats the new bid.
func (r *ProxyResolver) Resolve(tx outbound.LedgerTx, a *auction.Auction, newBid *bid.Bid, now time.Time) (*bid.Bid, error) {
	bids, err := tx.Bids()
	if err != nil {
		return nil, err
	}

	candidates := make([]*bid.Bid, 0, len(bids))
	for _, b := range bids {
		if b.BidderID == newBid.BidderID {
			continue
		}
		if !b.HasCeiling() || !b.MaxAmount.GreaterThan(newBid.Amount) {
			continue
		}
		candidates = append(candidates, b)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].MaxAmount.Equal(*candidates[j].MaxAmount) {
			return candidates[i].MaxAmount.GreaterThan(*candidates[j].MaxAmount)
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	highestProxy := candidates[0]

	autoAmount := newBid.Amount.Add(a.BidIncrement)
	if autoAmount.GreaterThan(*highestProxy.MaxAmount) {
		autoAmount = *highestProxy.MaxAmount
	}
	ceiling := *highestProxy.MaxAmount

	autoBid := &bid.Bid{
		ID:        uuid.New(),
		AuctionID: a.ID,
		BidderID:  highestProxy.BidderID,
		Amount:    autoAmount,
		MaxAmount: &ceiling,
		IsAutoBid: true,
		IsWinning: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.AppendBid(autoBid); err != nil {
		return nil, err
	}

	newBid.IsWinning = false
	newBid.UpdatedAt = now
	if err := tx.UpdateBidFlags(newBid); err != nil {
		return nil, err
	}

	a.RecordBid(autoAmount, now)
	if err := tx.SaveAuction(a); err != nil {
		return nil, err
	}

	r.logger.Debug().
		Str("auction_id", a.ID.String()).
		Str("proxy_bidder_id", highestProxy.BidderID.String()).
		Str("auto_amount", autoAmount.String()).
		Msg("Proxy ceiling counter-bid placed")

	return autoBid, nil
}
