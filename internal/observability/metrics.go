package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "region_colorizer"

// Metrics holds the Prometheus counters, histograms, and gauges for the colorization pipeline.
type Metrics struct {
	// Recompute sweep metrics.
	Sweeps               prometheus.Counter
	SweepDuration        prometheus.Histogram
	RegionsRecomputed    prometheus.Counter
	RegionErrors         prometheus.Counter
	RegionsSkipped       prometheus.Counter
	StaleWritesDiscarded prometheus.Counter
	SweepsInFlight       prometheus.Gauge
	Regions              prometheus.Gauge

	// Archive metrics.
	ArchiveRequests       *prometheus.CounterVec // labels: outcome={success,error}
	ArchiveCache          *prometheus.CounterVec // labels: result={hit,miss}
	ArchiveAPIDuration    prometheus.Histogram
	ArchiveFallbacks      prometheus.Counter
	ArchiveCacheSize      prometheus.Gauge
	// ArchiveCacheEvictions stays at zero while the cache is unbounded.
	ArchiveCacheEvictions prometheus.Counter

	// Timeline metrics.
	TimelineTicks   prometheus.Counter
	TimelinePlaying prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Total recompute sweeps started.",
		}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of a complete recompute sweep over all regions.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RegionsRecomputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_recomputed_total",
			Help:      "Regions whose color and value were rederived.",
		}),
		RegionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "region_errors_total",
			Help:      "Per-region failures isolated inside a sweep.",
		}),
		RegionsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_skipped_total",
			Help:      "Regions skipped because their data source is disabled.",
		}),
		StaleWritesDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_writes_discarded_total",
			Help:      "Region writes dropped because a newer sweep already wrote the region.",
		}),
		SweepsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sweeps_in_flight",
			Help:      "Recompute sweeps currently running.",
		}),
		Regions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "regions",
			Help:      "Regions currently held by the store.",
		}),
		ArchiveRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_requests_total",
			Help:      "Archive API requests by outcome.",
		}, []string{"outcome"}),
		ArchiveCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_cache_total",
			Help:      "Series cache lookups by result.",
		}, []string{"result"}),
		ArchiveAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "archive_api_duration_seconds",
			Help:      "Archive API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		ArchiveFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_fallbacks_total",
			Help:      "Synthetic series returned because the archive request failed.",
		}),
		ArchiveCacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "archive_cache_entries",
			Help:      "Series currently memoized.",
		}),
		ArchiveCacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_cache_evictions_total",
			Help:      "Series dropped from a bounded cache to make room.",
		}),
		TimelineTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timeline_ticks_total",
			Help:      "Playback ticks that advanced the selected instant.",
		}),
		TimelinePlaying: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "timeline_playing",
			Help:      "1 while playback is running, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.Sweeps,
		m.SweepDuration,
		m.RegionsRecomputed,
		m.RegionErrors,
		m.RegionsSkipped,
		m.StaleWritesDiscarded,
		m.SweepsInFlight,
		m.Regions,
		m.ArchiveRequests,
		m.ArchiveCache,
		m.ArchiveAPIDuration,
		m.ArchiveFallbacks,
		m.ArchiveCacheSize,
		m.ArchiveCacheEvictions,
		m.TimelineTicks,
		m.TimelinePlaying,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		Sweeps:                prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "sweeps_total"}),
		SweepDuration:         prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "sweep_duration_seconds"}),
		RegionsRecomputed:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "regions_recomputed_total"}),
		RegionErrors:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "region_errors_total"}),
		RegionsSkipped:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "regions_skipped_total"}),
		StaleWritesDiscarded:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "stale_writes_discarded_total"}),
		SweepsInFlight:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "sweeps_in_flight"}),
		Regions:               prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "regions"}),
		ArchiveRequests:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "archive_requests_total"}, []string{"outcome"}),
		ArchiveCache:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "archive_cache_total"}, []string{"result"}),
		ArchiveAPIDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "archive_api_duration_seconds"}),
		ArchiveFallbacks:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "archive_fallbacks_total"}),
		ArchiveCacheSize:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "archive_cache_entries"}),
		ArchiveCacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "archive_cache_evictions_total"}),
		TimelineTicks:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "timeline_ticks_total"}),
		TimelinePlaying:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "timeline_playing"}),
	}
}
