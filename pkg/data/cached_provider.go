package data

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quantgate/quantgate/pkg/types"
)

// CachedProvider wraps another PriceProvider with an in-memory cache
// keyed by ticker and date range. Repeated validations of a watchlist
// within one run then see an identical price-history snapshot.
type CachedProvider struct {
	provider PriceProvider
	cache    map[string][]types.OHLCV
	mutex    sync.RWMutex
}

// NewCachedProvider creates a caching wrapper around the provider.
func NewCachedProvider(provider PriceProvider) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		cache:    make(map[string][]types.OHLCV),
	}
}

// GetName returns the name of the provider.
func (c *CachedProvider) GetName() string {
	return c.provider.GetName() + " (cached)"
}

// DailyCloses returns cached data when available, fetching otherwise.
// Only successful fetches are cached, so a transient provider outage
// does not pin an empty series for the rest of the run.
func (c *CachedProvider) DailyCloses(ctx context.Context, ticker string, start, end time.Time) ([]types.OHLCV, error) {
	key := cacheKey(ticker, start, end)

	c.mutex.RLock()
	cached, ok := c.cache[key]
	c.mutex.RUnlock()
	if ok {
		result := make([]types.OHLCV, len(cached))
		copy(result, cached)
		return result, nil
	}

	series, err := c.provider.DailyCloses(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}

	stored := make([]types.OHLCV, len(series))
	copy(stored, series)
	c.mutex.Lock()
	c.cache[key] = stored
	c.mutex.Unlock()

	return series, nil
}

// LatestPrice is never cached; current prices must stay current.
func (c *CachedProvider) LatestPrice(ctx context.Context, ticker string) (float64, error) {
	return c.provider.LatestPrice(ctx, ticker)
}

// Clear removes all cached series.
func (c *CachedProvider) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.cache = make(map[string][]types.OHLCV)
}

// Size returns the number of cached entries.
func (c *CachedProvider) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.cache)
}

func cacheKey(ticker string, start, end time.Time) string {
	return fmt.Sprintf("%s|%s|%s", ticker, start.Format("2006-01-02"), end.Format("2006-01-02"))
}
