// Package pricing implements the market price source for portfolio valuation.
// Prices come from the CoinGecko simple price API; the client applies
// client-side rate limiting, bounded retries with backoff, and a circuit
// breaker so that an unhealthy upstream degrades valuations instead of
// blocking them.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/time/rate"

	"github.com/portfolio-tracker/internal/circuitbreaker"
	"github.com/portfolio-tracker/internal/config"
	"github.com/portfolio-tracker/internal/logging"
	"github.com/portfolio-tracker/internal/retry"
	"github.com/portfolio-tracker/internal/types"
)

// ErrRateLimited marks a 429 response from the price source.
var errRateLimited = fmt.Errorf("price source rate limit exceeded")

// CoinGeckoClient fetches current prices from the CoinGecko simple price API.
// Partial results are expected: ids the API does not know are simply absent
// from the response, never fabricated.
type CoinGeckoClient struct {
	baseURL  string
	currency string
	client   *http.Client
	limiter  *rate.Limiter
	breaker  *circuitbreaker.CircuitBreaker
	retryCfg *retry.Config
	logger   *logging.Logger
}

// NewCoinGeckoClient creates a new CoinGecko client
func NewCoinGeckoClient(cfg *config.PricingConfig, logger *logging.Logger) *CoinGeckoClient {
	return &CoinGeckoClient{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		currency: cfg.Currency,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig("coingecko"), logger),
		retryCfg: &retry.Config{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: cfg.RequestTimeout / 4,
			MaxDelay:     cfg.RequestTimeout * 2,
			Multiplier:   2.0,
		},
		logger: logger.WithField("component", "coingecko"),
	}
}

// GetPrices fetches quotes for the given asset ids. The returned lookup may
// be missing entries for ids the source did not return data for. Exhausting
// retries (or an open circuit) surfaces as an error; the caller decides how
// to degrade.
func (c *CoinGeckoClient) GetPrices(ctx context.Context, assetIDs []string) (types.PriceLookup, error) {
	if len(assetIDs) == 0 {
		return types.PriceLookup{}, nil
	}

	ids := normalizeIDs(assetIDs)
	requestURL := c.buildURL(ids)

	var lookup types.PriceLookup

	err := retry.Do(ctx, c.retryCfg, func(ctx context.Context, attempt int) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		return c.breaker.Execute(ctx, func() error {
			result, err := c.fetch(ctx, requestURL)
			if err != nil {
				return err
			}
			lookup = result
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices for %d assets: %w", len(ids), err)
	}

	return lookup, nil
}

// fetch performs a single request against the simple price endpoint.
func (c *CoinGeckoClient) fetch(ctx context.Context, requestURL string) (types.PriceLookup, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("price request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errRateLimited
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("price source returned status %d", resp.StatusCode)
	}

	var lookup types.PriceLookup
	if err := json.NewDecoder(resp.Body).Decode(&lookup); err != nil {
		return nil, fmt.Errorf("failed to decode price response: %w", err)
	}

	return lookup, nil
}

// buildURL builds the simple price URL for a set of ids.
func (c *CoinGeckoClient) buildURL(ids []string) string {
	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", c.currency)
	params.Set("include_1h_change", "true")
	params.Set("include_24hr_change", "true")
	params.Set("include_7d_change", "true")

	return fmt.Sprintf("%s/simple/price?%s", c.baseURL, params.Encode())
}

// normalizeIDs lowercases, deduplicates, and sorts asset ids.
func normalizeIDs(assetIDs []string) []string {
	seen := make(map[string]struct{}, len(assetIDs))
	ids := make([]string, 0, len(assetIDs))
	for _, id := range assetIDs {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
