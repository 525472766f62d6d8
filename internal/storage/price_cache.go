package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/portfolio-tracker/internal/types"
)

// PriceCache caches recent price source responses in Redis so that frequent
// polling does not translate into a price source call per request. A cache
// miss or Redis outage is never an error for the caller, only a miss.
type PriceCache struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewPriceCache creates a new price cache
func NewPriceCache(redis *RedisCache, ttl time.Duration) *PriceCache {
	return &PriceCache{
		redis: redis,
		ttl:   ttl,
	}
}

// cacheKey builds a deterministic key for a set of asset ids.
// Format: prices:<sorted comma-joined ids>
func (c *PriceCache) cacheKey(assetIDs []string) string {
	ids := make([]string, len(assetIDs))
	for i, id := range assetIDs {
		ids[i] = strings.ToLower(id)
	}
	sort.Strings(ids)
	return "prices:" + strings.Join(ids, ",")
}

// Get returns the cached lookup for the given asset ids, or (nil, false) on miss.
func (c *PriceCache) Get(ctx context.Context, assetIDs []string) (types.PriceLookup, bool) {
	if len(assetIDs) == 0 {
		return types.PriceLookup{}, true
	}

	data, err := c.redis.Client().Get(ctx, c.cacheKey(assetIDs)).Bytes()
	if err != nil {
		return nil, false
	}

	var lookup types.PriceLookup
	if err := json.Unmarshal(data, &lookup); err != nil {
		return nil, false
	}

	return lookup, true
}

// Set stores a lookup for the given asset ids with the configured TTL.
func (c *PriceCache) Set(ctx context.Context, assetIDs []string, lookup types.PriceLookup) error {
	if len(assetIDs) == 0 {
		return nil
	}

	data, err := json.Marshal(lookup)
	if err != nil {
		return fmt.Errorf("failed to marshal price lookup: %w", err)
	}

	if err := c.redis.Client().Set(ctx, c.cacheKey(assetIDs), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache price lookup: %w", err)
	}

	return nil
}

// Invalidate drops the cached lookup for the given asset ids.
func (c *PriceCache) Invalidate(ctx context.Context, assetIDs []string) error {
	err := c.redis.Client().Del(ctx, c.cacheKey(assetIDs)).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to invalidate price cache: %w", err)
	}
	return nil
}
