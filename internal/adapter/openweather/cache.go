package openweather

import (
	"context"
	"fmt"

	"github.com/couchcryptid/water-quality-etl/internal/domain"
	"github.com/couchcryptid/water-quality-etl/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedProvider wraps a WeatherProvider with an in-memory LRU cache keyed
// by coordinates rounded to two decimals (about 1 km).
type CachedProvider struct {
	inner   domain.WeatherProvider
	cache   *lru.Cache[string, domain.Conditions]
	metrics *observability.Metrics
}

// NewCachedProvider creates a cache decorator around a provider.
func NewCachedProvider(inner domain.WeatherProvider, maxEntries int, metrics *observability.Metrics) (*CachedProvider, error) {
	cache, err := lru.New[string, domain.Conditions](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create weather cache: %w", err)
	}
	return &CachedProvider{inner: inner, cache: cache, metrics: metrics}, nil
}

func (c *CachedProvider) CurrentConditions(ctx context.Context, lat, lon float64) (domain.Conditions, error) {
	key := fmt.Sprintf("%.2f,%.2f", lat, lon)
	if v, ok := c.cache.Get(key); ok {
		c.metrics.WeatherCache.WithLabelValues("hit").Inc()
		return v, nil
	}
	c.metrics.WeatherCache.WithLabelValues("miss").Inc()

	v, err := c.inner.CurrentConditions(ctx, lat, lon)
	if err != nil {
		return v, err
	}
	c.cache.Add(key, v)
	return v, nil
}
