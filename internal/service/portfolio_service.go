package service

import (
	"context"
	"fmt"
	"time"

	"github.com/portfolio-tracker/internal/logging"
	"github.com/portfolio-tracker/internal/models"
	"github.com/portfolio-tracker/internal/types"
)

// PriceSource provides current quotes for a set of asset ids. Partial
// results are allowed; missing entries mean the source had no data.
type PriceSource interface {
	GetPrices(ctx context.Context, assetIDs []string) (types.PriceLookup, error)
}

// PortfolioService computes the current aggregated portfolio view. Staleness
// is preferred over unavailability: a failing price source degrades every
// asset to its last persisted price (or zero) instead of failing the request.
type PortfolioService struct {
	holdings       HoldingRepository
	prices         PriceSource
	referenceAsset string
	logger         *logging.Logger
}

// NewPortfolioService creates a new portfolio service
func NewPortfolioService(holdings HoldingRepository, prices PriceSource, referenceAsset string, logger *logging.Logger) *PortfolioService {
	return &PortfolioService{
		holdings:       holdings,
		prices:         prices,
		referenceAsset: referenceAsset,
		logger:         logger.WithField("component", "portfolio"),
	}
}

// ValuationResult is the outcome of one valuation pass.
type ValuationResult struct {
	Valuation *models.PortfolioValuation
	// PriceSourceDegraded is set when the price source could not be reached
	// and the valuation fell back to last known prices.
	PriceSourceDegraded bool
	// ReferenceUnitPrice is the reference asset's current unit price, zero
	// when unknown.
	ReferenceUnitPrice float64
}

// GetValuation lists the current holdings, resolves prices, aggregates, and
// opportunistically writes fresh prices back onto holding rows for future
// degraded-mode fallback. The write-back is best effort and is not coupled to
// the read transaction.
func (s *PortfolioService) GetValuation(ctx context.Context) (*ValuationResult, error) {
	holdings, err := s.holdings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	assetIDs := distinctAssetIDs(holdings)
	// The reference asset is priced alongside the portfolio so snapshots can
	// denominate the total in it even when it is not held.
	queryIDs := assetIDs
	if s.referenceAsset != "" && !containsID(assetIDs, s.referenceAsset) {
		queryIDs = append(append([]string{}, assetIDs...), s.referenceAsset)
	}

	degraded := false
	lookup, err := s.prices.GetPrices(ctx, queryIDs)
	if err != nil {
		// Deliberate partial-failure policy: total price source failure
		// diminishes freshness, it does not fail the aggregation.
		s.logger.WithError(err).Warn("Price source unreachable, using last known prices")
		lookup = types.PriceLookup{}
		degraded = true
	}

	valuation := Aggregate(holdings, lookup)

	s.persistFreshPrices(ctx, valuation)

	return &ValuationResult{
		Valuation:           valuation,
		PriceSourceDegraded: degraded,
		ReferenceUnitPrice:  lookup[s.referenceAsset].USD,
	}, nil
}

// persistFreshPrices caches freshly observed unit prices on the holding rows.
func (s *PortfolioService) persistFreshPrices(ctx context.Context, valuation *models.PortfolioValuation) {
	observedAt := time.Now().UTC()
	for assetID, agg := range valuation.Assets {
		if !agg.PriceFresh {
			continue
		}
		if err := s.holdings.UpdateLastPrice(ctx, assetID, agg.UnitPrice, observedAt); err != nil {
			s.logger.WithError(err).WithField("assetId", assetID).
				Warn("Failed to persist last known price")
		}
	}
}

// distinctAssetIDs returns the unique asset ids among the holdings,
// preserving first-seen order.
func distinctAssetIDs(holdings []models.Holding) []string {
	seen := make(map[string]struct{}, len(holdings))
	var ids []string
	for _, h := range holdings {
		if _, ok := seen[h.AssetID]; ok {
			continue
		}
		seen[h.AssetID] = struct{}{}
		ids = append(ids, h.AssetID)
	}
	return ids
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
