package openmeteo

import (
	"context"
	"log/slog"
	"math/rand/v2"

	"github.com/couchcryptid/region-colorizer/internal/domain"
	"github.com/couchcryptid/region-colorizer/internal/observability"
)

// ValueCache memoizes archive series per (location, day window) and
// substitutes a synthetic series when the archive cannot be reached.
//
// Only successful fetches are stored, so a failed key is retried on its next
// use. Concurrent misses for the same key may each reach the archive.
type ValueCache struct {
	fetcher domain.SeriesFetcher
	store   SeriesStore
	metrics *observability.Metrics
	logger  *slog.Logger
	random  func() float64
}

// NewValueCache wraps fetcher with the given store.
func NewValueCache(fetcher domain.SeriesFetcher, store SeriesStore, metrics *observability.Metrics, logger *slog.Logger) *ValueCache {
	return &ValueCache{
		fetcher: fetcher,
		store:   store,
		metrics: metrics,
		logger:  logger,
		random:  rand.Float64,
	}
}

// Fetch returns the hourly series for the location and window. It never
// fails: archive errors yield a one-sample fallback series in
// [domain.FallbackMin, domain.FallbackMax) that is not cached.
func (c *ValueCache) Fetch(ctx context.Context, lat, lng float64, dayStart, dayEnd string) domain.Series {
	key := CacheKey{Lat: lat, Lng: lng, DayStart: dayStart, DayEnd: dayEnd}
	if series, ok := c.store.Get(key); ok {
		c.metrics.ArchiveCache.WithLabelValues("hit").Inc()
		return series
	}
	c.metrics.ArchiveCache.WithLabelValues("miss").Inc()

	series, err := c.fetcher.FetchHourly(ctx, lat, lng, dayStart, dayEnd)
	if err != nil {
		c.metrics.ArchiveFallbacks.Inc()
		c.logger.Warn("archive fetch failed, using fallback value",
			"key", key.String(), "error", err)
		return c.fallback(lat, lng)
	}

	if evicted := c.store.Put(key, series); evicted > 0 {
		c.metrics.ArchiveCacheEvictions.Add(float64(evicted))
	}
	c.metrics.ArchiveCacheSize.Set(float64(c.store.Len()))
	return series
}

// Len reports the number of memoized series.
func (c *ValueCache) Len() int {
	return c.store.Len()
}

func (c *ValueCache) fallback(lat, lng float64) domain.Series {
	v := domain.FallbackMin + c.random()*(domain.FallbackMax-domain.FallbackMin)
	return domain.Series{
		Latitude:  lat,
		Longitude: lng,
		Values:    []float64{v},
	}
}
