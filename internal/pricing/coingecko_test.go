package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-tracker/internal/config"
	"github.com/portfolio-tracker/internal/logging"
)

func testPricingConfig(baseURL string) *config.PricingConfig {
	return &config.PricingConfig{
		BaseURL:        baseURL,
		Currency:       "usd",
		RequestTimeout: 2 * time.Second,
		MaxAttempts:    3,
		RequestsPerSec: 100,
	}
}

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.LevelError, logging.FormatText)
}

func TestGetPrices(t *testing.T) {
	t.Run("parses quotes and change fields", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/simple/price", r.URL.Path)
			assert.Equal(t, "bitcoin,ethereum", r.URL.Query().Get("ids"))
			assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
			assert.Equal(t, "true", r.URL.Query().Get("include_24hr_change"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"bitcoin": {"usd": 60000, "usd_1h_change": 0.2, "usd_24h_change": -1.5, "usd_7d_change": 8.1},
				"ethereum": {"usd": 3000}
			}`))
		}))
		defer server.Close()

		client := NewCoinGeckoClient(testPricingConfig(server.URL), testLogger())

		lookup, err := client.GetPrices(context.Background(), []string{"Bitcoin", "ethereum"})
		require.NoError(t, err)
		require.Len(t, lookup, 2)

		btc := lookup["bitcoin"]
		assert.Equal(t, 60000.0, btc.USD)
		assert.Equal(t, -1.5, btc.Change24h)
		assert.Equal(t, 8.1, btc.Change7d)
		assert.Equal(t, 3000.0, lookup["ethereum"].USD)
	})

	t.Run("empty id list skips the request", func(t *testing.T) {
		requests := int32(0)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requests, 1)
		}))
		defer server.Close()

		client := NewCoinGeckoClient(testPricingConfig(server.URL), testLogger())

		lookup, err := client.GetPrices(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, lookup)
		assert.Equal(t, int32(0), atomic.LoadInt32(&requests))
	})

	t.Run("unknown ids are absent from the result", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"bitcoin": {"usd": 60000}}`))
		}))
		defer server.Close()

		client := NewCoinGeckoClient(testPricingConfig(server.URL), testLogger())

		lookup, err := client.GetPrices(context.Background(), []string{"bitcoin", "not-a-coin"})
		require.NoError(t, err)
		require.Len(t, lookup, 1)
		_, ok := lookup["not-a-coin"]
		assert.False(t, ok)
	})

	t.Run("ids are deduplicated and sorted", func(t *testing.T) {
		var gotIDs string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotIDs = r.URL.Query().Get("ids")
			_, _ = w.Write([]byte(`{}`))
		}))
		defer server.Close()

		client := NewCoinGeckoClient(testPricingConfig(server.URL), testLogger())

		_, err := client.GetPrices(context.Background(), []string{"ethereum", "Bitcoin", " bitcoin ", ""})
		require.NoError(t, err)
		assert.Equal(t, "bitcoin,ethereum", gotIDs)
	})

	t.Run("retries transient server errors", func(t *testing.T) {
		attempts := int32(0)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&attempts, 1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte(`{"bitcoin": {"usd": 60000}}`))
		}))
		defer server.Close()

		cfg := testPricingConfig(server.URL)
		cfg.RequestTimeout = 100 * time.Millisecond

		client := NewCoinGeckoClient(cfg, testLogger())

		lookup, err := client.GetPrices(context.Background(), []string{"bitcoin"})
		require.NoError(t, err)
		assert.Equal(t, 60000.0, lookup["bitcoin"].USD)
		assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	})

	t.Run("exhausted retries surface an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		cfg := testPricingConfig(server.URL)
		cfg.RequestTimeout = 100 * time.Millisecond
		cfg.MaxAttempts = 2

		client := NewCoinGeckoClient(cfg, testLogger())

		_, err := client.GetPrices(context.Background(), []string{"bitcoin"})
		require.Error(t, err)
	})

	t.Run("rate limit responses are retried", func(t *testing.T) {
		attempts := int32(0)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&attempts, 1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			_, _ = w.Write([]byte(`{"bitcoin": {"usd": 60000}}`))
		}))
		defer server.Close()

		cfg := testPricingConfig(server.URL)
		cfg.RequestTimeout = 100 * time.Millisecond

		client := NewCoinGeckoClient(cfg, testLogger())

		lookup, err := client.GetPrices(context.Background(), []string{"bitcoin"})
		require.NoError(t, err)
		assert.Equal(t, 60000.0, lookup["bitcoin"].USD)
	})
}
