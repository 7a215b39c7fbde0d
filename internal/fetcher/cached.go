package fetcher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"loan-viability/internal/cache"
	"loan-viability/internal/viability"
)

// Cached keeps the last successful series of next in a cache.
type Cached struct {
	next   InflationFetcher
	cache  cache.Cache
	key    string
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCached decorates next with a cache entry stored under key.
func NewCached(next InflationFetcher, c cache.Cache, key string, ttl time.Duration, logger zerolog.Logger) *Cached {
	return &Cached{
		next:   next,
		cache:  c,
		key:    key,
		ttl:    ttl,
		logger: logger.With().Str("component", "inflation_cache").Logger(),
	}
}

// FetchInflation serves from cache when possible and populates it on a miss.
func (c *Cached) FetchInflation(ctx context.Context) (Series, error) {
	if raw, ok := c.cache.Get(ctx, c.key); ok {
		var samples []viability.InflationSample
		if err := json.Unmarshal([]byte(raw), &samples); err == nil && len(samples) > 0 {
			return Series{Samples: samples, Source: SourceCache}, nil
		}
		c.logger.Warn().Str("key", c.key).Msg("discarding unreadable cache entry")
	}

	return c.Refresh(ctx)
}

// Refresh bypasses the cache, fetches from next and stores the result.
func (c *Cached) Refresh(ctx context.Context) (Series, error) {
	series, err := c.next.FetchInflation(ctx)
	if err != nil {
		return Series{}, err
	}

	if len(series.Samples) > 0 {
		payload, err := json.Marshal(series.Samples)
		if err == nil {
			err = c.cache.Set(ctx, c.key, string(payload), c.ttl)
		}
		if err != nil {
			c.logger.Error().Err(err).Str("key", c.key).Msg("failed to cache inflation series")
		}
	}
	return series, nil
}

var (
	_ InflationFetcher = (*Cached)(nil)
	_ Refresher        = (*Cached)(nil)
)
