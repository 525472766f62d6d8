package pricing

import (
	"context"

	"github.com/portfolio-tracker/internal/logging"
	"github.com/portfolio-tracker/internal/storage"
	"github.com/portfolio-tracker/internal/types"
)

// CachedSource layers the Redis quote cache over the CoinGecko client so that
// frequent polling (interactive requests plus the snapshot worker) does not
// translate into one upstream call per request. Cache failures are treated as
// misses, never as errors.
type CachedSource struct {
	client *CoinGeckoClient
	cache  *storage.PriceCache
	logger *logging.Logger
}

// NewCachedSource creates a cached price source
func NewCachedSource(client *CoinGeckoClient, cache *storage.PriceCache, logger *logging.Logger) *CachedSource {
	return &CachedSource{
		client: client,
		cache:  cache,
		logger: logger.WithField("component", "price_cache"),
	}
}

// GetPrices returns cached quotes when fresh, otherwise fetches from the
// upstream client and refreshes the cache.
func (s *CachedSource) GetPrices(ctx context.Context, assetIDs []string) (types.PriceLookup, error) {
	if lookup, ok := s.cache.Get(ctx, assetIDs); ok {
		return lookup, nil
	}

	lookup, err := s.client.GetPrices(ctx, assetIDs)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, assetIDs, lookup); err != nil {
		// A cold cache is not worth failing a valuation over
		s.logger.WithError(err).Warn("Failed to cache price lookup")
	}

	return lookup, nil
}
