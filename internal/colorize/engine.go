// Package colorize rederives every region's color and value for a point on
// the timeline.
package colorize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/region-colorizer/internal/domain"
	"github.com/couchcryptid/region-colorizer/internal/observability"
)

// RegionStore is the subset of the entity store a sweep reads and writes.
type RegionStore interface {
	Regions() []domain.Region
	DataSource(id string) (domain.DataSource, error)
	ColorRules() []domain.ColorRule
	SetRegionColor(id, color string, gen uint64) (bool, error)
	SetRegionValue(id string, value float64, gen uint64) (bool, error)
}

// ValueSource returns the hourly series for a location and day window. It
// does not fail; unreachable archives yield a substitute series.
type ValueSource interface {
	Fetch(ctx context.Context, lat, lng float64, dayStart, dayEnd string) domain.Series
}

// Publisher emits the updates produced by a sweep.
type Publisher interface {
	PublishRegionUpdates(ctx context.Context, updates []domain.RegionUpdate) error
}

// WritePolicy decides how overlapping sweeps resolve their writes.
type WritePolicy int

const (
	// DiscardStale drops writes from a sweep older than the region's last writer.
	DiscardStale WritePolicy = iota
	// LastWriteWins applies every write in arrival order, so a slow early
	// sweep can overwrite the result of a later one.
	LastWriteWins
)

// ParseWritePolicy maps the configured policy name to a WritePolicy.
func ParseWritePolicy(s string) (WritePolicy, error) {
	switch strings.ToLower(s) {
	case "discard-stale", "":
		return DiscardStale, nil
	case "last-write-wins":
		return LastWriteWins, nil
	default:
		return 0, fmt.Errorf("unknown write policy %q: %w", s, domain.ErrInvalidInput)
	}
}

func (p WritePolicy) String() string {
	if p == LastWriteWins {
		return "last-write-wins"
	}
	return "discard-stale"
}

// Result summarizes one sweep.
type Result struct {
	Generation uint64        `json:"generation"`
	Recomputed int           `json:"recomputed"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Discarded  int           `json:"discarded"`
	Duration   time.Duration `json:"duration"`
}

// Engine runs recompute sweeps. Sweeps may run concurrently; each one is
// sequential over the regions.
type Engine struct {
	store      RegionStore
	values     ValueSource
	publisher  Publisher
	policy     WritePolicy
	logger     *slog.Logger
	metrics    *observability.Metrics
	generation atomic.Uint64
	ready      atomic.Bool
}

// New creates an Engine. publisher may be nil.
func New(store RegionStore, values ValueSource, publisher Publisher, policy WritePolicy, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		store:     store,
		values:    values,
		publisher: publisher,
		policy:    policy,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a sweep has completed or when there is
// nothing to color yet.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if e.ready.Load() || len(e.store.Regions()) == 0 {
		return nil
	}
	return errors.New("no recompute sweep has completed yet")
}

// Recompute rederives color and value for every region at tc.Selected.
//
// A failure on one region is logged and counted and leaves that region
// unchanged; the sweep moves on. A cancelled context ends the sweep early and
// its error is returned with the partial result.
func (e *Engine) Recompute(ctx context.Context, tc domain.TimeContext) (Result, error) {
	start := time.Now()
	gen := e.generation.Add(1)
	res := Result{Generation: gen}

	e.metrics.Sweeps.Inc()
	e.metrics.SweepsInFlight.Inc()
	defer e.metrics.SweepsInFlight.Dec()

	regions := e.store.Regions()
	rules := e.store.ColorRules()
	e.metrics.Regions.Set(float64(len(regions)))
	dayStart, dayEnd := domain.DayWindow(tc.Selected)

	updates := make([]domain.RegionUpdate, 0, len(regions))
	for _, region := range regions {
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(start)
			e.logger.Info("recompute sweep cancelled", "generation", gen, "reason", err)
			return res, err
		}

		if e.dataSourceDisabled(region.DataSourceID) {
			res.Skipped++
			e.metrics.RegionsSkipped.Inc()
			continue
		}

		update, applied, err := e.recomputeRegion(ctx, region, rules, tc.Selected, dayStart, dayEnd, gen)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			// Deleted while the sweep was running.
			res.Skipped++
			e.metrics.RegionsSkipped.Inc()
		case err != nil:
			res.Failed++
			e.metrics.RegionErrors.Inc()
			e.logger.Warn("region recompute failed, leaving region unchanged",
				"region_id", region.ID, "generation", gen, "error", err)
		case !applied:
			res.Discarded++
			e.metrics.StaleWritesDiscarded.Inc()
			e.logger.Debug("stale write discarded", "region_id", region.ID, "generation", gen)
		default:
			res.Recomputed++
			e.metrics.RegionsRecomputed.Inc()
			updates = append(updates, update)
		}
	}

	e.publish(ctx, updates)

	res.Duration = time.Since(start)
	e.metrics.SweepDuration.Observe(res.Duration.Seconds())
	e.ready.Store(true)
	e.logger.Debug("recompute sweep complete",
		"generation", gen,
		"selected", tc.Selected,
		"recomputed", res.Recomputed,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"discarded", res.Discarded,
	)
	return res, nil
}

// recomputeRegion derives and writes one region's color and value. applied is
// false when the generation guard rejected either write.
func (e *Engine) recomputeRegion(ctx context.Context, region domain.Region, rules []domain.ColorRule, selected time.Time, dayStart, dayEnd string, gen uint64) (domain.RegionUpdate, bool, error) {
	center, err := domain.Centroid(region.Vertices)
	if err != nil {
		return domain.RegionUpdate{}, false, err
	}

	series := e.values.Fetch(ctx, center.Lat, center.Lng, dayStart, dayEnd)
	value := domain.ValueAt(series, selected)
	color, matched := domain.Classify(value, region.DataSourceID, rules)

	writeGen := gen
	if e.policy == LastWriteWins {
		writeGen = 0
	}
	colorApplied, err := e.store.SetRegionColor(region.ID, color, writeGen)
	if err != nil {
		return domain.RegionUpdate{}, false, err
	}
	valueApplied, err := e.store.SetRegionValue(region.ID, value, writeGen)
	if err != nil {
		return domain.RegionUpdate{}, false, err
	}

	update := domain.RegionUpdate{
		RegionID:     region.ID,
		DataSourceID: region.DataSourceID,
		Color:        color,
		Value:        value,
		Generation:   gen,
		SampledAt:    selected,
		ComputedAt:   domain.Now(),
	}
	if matched != nil {
		update.RuleID = matched.ID
	}
	return update, colorApplied && valueApplied, nil
}

// dataSourceDisabled reports whether the region's data source exists and is
// switched off. Dangling references are not disabled; they color by default.
func (e *Engine) dataSourceDisabled(id string) bool {
	ds, err := e.store.DataSource(id)
	return err == nil && !ds.Enabled
}

func (e *Engine) publish(ctx context.Context, updates []domain.RegionUpdate) {
	if e.publisher == nil || len(updates) == 0 {
		return
	}
	if err := e.publisher.PublishRegionUpdates(ctx, updates); err != nil {
		e.logger.Error("publish region updates failed", "error", err, "count", len(updates))
	}
}
