package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"trading-signalbot/internal/model"
)

// DefaultCoinGeckoURL is the public CoinGecko API.
const DefaultCoinGeckoURL = "https://api.coingecko.com"

// DominanceTTL is how long a fetched market-cap table is reused.
const DominanceTTL = 5 * time.Minute

const dominanceCacheKey = "signalbot:dominance"

// Cache is an optional shared cache (Redis in production).
type Cache interface {
	GetJSON(ctx context.Context, key string, v any) (bool, error)
	SetJSONTTL(ctx context.Context, key string, v any, ttl time.Duration) error
}

type globalResponse struct {
	Data struct {
		MarketCapPercentage map[string]float64 `json:"market_cap_percentage"`
	} `json:"data"`
}

// CoinGecko looks up market dominance from /api/v3/global.
type CoinGecko struct {
	client *resty.Client
	cache  Cache
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	table     map[string]float64
	fetchedAt time.Time
}

// NewCoinGecko creates a dominance source. cache may be nil.
func NewCoinGecko(baseURL string, cache Cache) *CoinGecko {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(10 * time.Second)
	return &CoinGecko{client: client, cache: cache, ttl: DominanceTTL, now: time.Now}
}

// Dominance implements DominanceSource.
func (c *CoinGecko) Dominance(ctx context.Context, symbol string) model.Reading {
	base := strings.ToLower(model.BaseAsset(symbol))
	if base == "" {
		return model.NoReading
	}
	table, err := c.marketCaps(ctx)
	if err != nil {
		slog.Warn("dominance unavailable", "symbol", symbol, "error", err)
		return model.NoReading
	}
	pct, ok := table[base]
	if !ok {
		return model.NoReading
	}
	return model.ReadingOf(pct)
}

// marketCaps returns the market-cap percentage table, from memory, the shared
// cache or the API, in that order.
func (c *CoinGecko) marketCaps(ctx context.Context) (map[string]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.table != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.table, nil
	}

	if c.cache != nil {
		var cached map[string]float64
		if found, err := c.cache.GetJSON(ctx, dominanceCacheKey, &cached); err == nil && found && len(cached) > 0 {
			c.table, c.fetchedAt = cached, c.now()
			return cached, nil
		}
	}

	var out globalResponse
	resp, err := c.client.R().SetContext(ctx).SetResult(&out).Get("/api/v3/global")
	if err != nil {
		return nil, fmt.Errorf("coingecko global: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("coingecko global: status %d", resp.StatusCode())
	}
	table := out.Data.MarketCapPercentage
	if len(table) == 0 {
		return nil, fmt.Errorf("coingecko global: empty market_cap_percentage")
	}

	c.table, c.fetchedAt = table, c.now()
	if c.cache != nil {
		if err := c.cache.SetJSONTTL(ctx, dominanceCacheKey, table, c.ttl); err != nil {
			slog.Debug("dominance cache write failed", "error", err)
		}
	}
	return table, nil
}
