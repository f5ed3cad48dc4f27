package openmeteo

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/couchcryptid/region-colorizer/internal/domain"
	"github.com/couchcryptid/region-colorizer/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingFetcher struct {
	mu     sync.Mutex
	calls  int
	err    error
	series domain.Series
}

func (f *countingFetcher) FetchHourly(_ context.Context, _, _ float64, _, _ string) (domain.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return domain.Series{}, f.err
	}
	return f.series, nil
}

func (f *countingFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestCache(f domain.SeriesFetcher) (*ValueCache, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	return NewValueCache(f, NewMapStore(), m, testLogger()), m
}

// --- ValueCache tests ---

func TestValueCache_HitAfterFirstFetch(t *testing.T) {
	inner := &countingFetcher{series: domain.Series{Values: []float64{12.5}}}
	cache, m := newTestCache(inner)

	s1 := cache.Fetch(context.Background(), 51.5, -0.12, "2024-03-01", "2024-03-02")
	s2 := cache.Fetch(context.Background(), 51.5, -0.12, "2024-03-01", "2024-03-02")

	assert.Equal(t, []float64{12.5}, s1.Values)
	assert.Equal(t, s1, s2)
	assert.Equal(t, 1, inner.callCount(), "should only call the archive once")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ArchiveCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ArchiveCache.WithLabelValues("miss")))
	assert.Equal(t, 1, cache.Len())
}

func TestValueCache_DifferentKeysMiss(t *testing.T) {
	inner := &countingFetcher{series: domain.Series{Values: []float64{1}}}
	cache, _ := newTestCache(inner)
	ctx := context.Background()

	cache.Fetch(ctx, 51.5, -0.12, "2024-03-01", "2024-03-02")
	cache.Fetch(ctx, 51.5000001, -0.12, "2024-03-01", "2024-03-02")
	cache.Fetch(ctx, 51.5, -0.12, "2024-03-02", "2024-03-03")

	assert.Equal(t, 3, inner.callCount())
}

func TestValueCache_FailureReturnsFallbackAndIsNotCached(t *testing.T) {
	inner := &countingFetcher{err: errors.New("connection refused")}
	cache, m := newTestCache(inner)
	ctx := context.Background()

	s := cache.Fetch(ctx, 10, 20, "2024-03-01", "2024-03-02")
	require.Len(t, s.Values, 1)
	assert.GreaterOrEqual(t, s.Values[0], domain.FallbackMin)
	assert.Less(t, s.Values[0], domain.FallbackMax)

	cache.Fetch(ctx, 10, 20, "2024-03-01", "2024-03-02")
	assert.Equal(t, 2, inner.callCount(), "failed keys are retried")
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ArchiveFallbacks))
}

func TestValueCache_FallbackRange(t *testing.T) {
	cache, _ := newTestCache(&countingFetcher{err: errors.New("boom")})

	cache.random = func() float64 { return 0 }
	assert.Equal(t, domain.FallbackMin, cache.Fetch(context.Background(), 0, 0, "a", "b").Values[0])

	cache.random = func() float64 { return 0.5 }
	assert.InDelta(t, 20.0, cache.Fetch(context.Background(), 0, 0, "a", "b").Values[0], 1e-9)
}

func TestValueCache_RecoversAfterFailure(t *testing.T) {
	inner := &countingFetcher{err: errors.New("timeout")}
	cache, _ := newTestCache(inner)
	ctx := context.Background()

	cache.Fetch(ctx, 1, 1, "2024-01-01", "2024-01-02")

	inner.mu.Lock()
	inner.err = nil
	inner.series = domain.Series{Values: []float64{7}}
	inner.mu.Unlock()

	s := cache.Fetch(ctx, 1, 1, "2024-01-01", "2024-01-02")
	assert.Equal(t, []float64{7}, s.Values)
	cache.Fetch(ctx, 1, 1, "2024-01-01", "2024-01-02")
	assert.Equal(t, 2, inner.callCount())
}

func TestValueCache_ConcurrentFetch(t *testing.T) {
	inner := &countingFetcher{series: domain.Series{Values: []float64{3}}}
	cache, _ := newTestCache(inner)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := cache.Fetch(context.Background(), 5, 5, "2024-01-01", "2024-01-02")
			assert.Equal(t, []float64{3}, s.Values)
		}()
	}
	wg.Wait()
	assert.GreaterOrEqual(t, inner.callCount(), 1)
	assert.Equal(t, 1, cache.Len())
}

func TestValueCache_BoundedStoreCountsEvictions(t *testing.T) {
	inner := &countingFetcher{series: domain.Series{Values: []float64{9}}}
	m := observability.NewMetricsForTesting()
	cache := NewValueCache(inner, NewLRUStore(2), m, testLogger())

	for _, lat := range []float64{10, 20, 30, 40} {
		cache.Fetch(context.Background(), lat, 0, "2024-03-01", "2024-03-02")
	}

	assert.Equal(t, 2, cache.Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ArchiveCacheEvictions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ArchiveCacheSize))

	cache.Fetch(context.Background(), 10, 0, "2024-03-01", "2024-03-02")
	assert.Equal(t, 5, inner.callCount(), "evicted key is fetched again")
}
