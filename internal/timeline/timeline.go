// Package timeline tracks the instant or interval the dashboard is showing
// and drives hour-by-hour playback across a window anchored at startup.
package timeline

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/region-colorizer/internal/domain"
	"github.com/couchcryptid/region-colorizer/internal/observability"
)

// Timeline is the playback state machine. It is idle or playing; while
// playing, every interval advances Selected by one hour and publishes the new
// state on Ticks.
type Timeline struct {
	clock    clockwork.Clock
	interval time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics

	// Fixed at construction.
	windowStart time.Time
	slots       int

	mu       sync.Mutex
	mode     domain.TimelineMode
	selected time.Time
	start    *time.Time
	end      *time.Time
	playing  bool
	stop     chan struct{}

	ticks chan domain.TimeContext
}

// New creates an idle timeline in single mode at the current instant. The
// playback window spans windowDays before and after now, in whole hours.
func New(clock clockwork.Clock, interval time.Duration, windowDays int, logger *slog.Logger, metrics *observability.Metrics) *Timeline {
	now := clock.Now()
	span := time.Duration(windowDays) * 24 * time.Hour
	return &Timeline{
		clock:       clock,
		interval:    interval,
		logger:      logger,
		metrics:     metrics,
		windowStart: now.Add(-span).Truncate(time.Hour),
		slots:       int(2 * span / time.Hour),
		mode:        domain.ModeSingle,
		selected:    now,
		ticks:       make(chan domain.TimeContext),
	}
}

// Ticks delivers the state after each playback advance.
func (t *Timeline) Ticks() <-chan domain.TimeContext {
	return t.ticks
}

// Window returns the first and one-past-last hour reachable by playback.
func (t *Timeline) Window() (start, end time.Time) {
	return t.windowStart, t.windowStart.Add(time.Duration(t.slots) * time.Hour)
}

// Snapshot returns the current state.
func (t *Timeline) Snapshot() domain.TimeContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Play starts playback. It is a no-op when already playing.
func (t *Timeline) Play() domain.TimeContext {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.playing {
		t.playing = true
		t.stop = make(chan struct{})
		ticker := t.clock.NewTicker(t.interval)
		go t.loop(ticker, t.stop)
		t.metrics.TimelinePlaying.Set(1)
		t.logger.Info("timeline playback started", "interval", t.interval, "selected", t.selected)
	}
	return t.snapshotLocked()
}

// Pause halts playback, keeping the selected instant.
func (t *Timeline) Pause() domain.TimeContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pauseLocked()
	return t.snapshotLocked()
}

// Stop halts playback and moves the selection back to the current hour.
func (t *Timeline) Stop() domain.TimeContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pauseLocked()
	t.selected = t.slotTime(t.position(t.clock.Now()))
	return t.snapshotLocked()
}

// ResetToNow selects the current instant without changing playback.
func (t *Timeline) ResetToNow() domain.TimeContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selected = t.clock.Now()
	return t.snapshotLocked()
}

// Scrub selects an instant. It is allowed while idle or playing; playback
// continues from the new position.
func (t *Timeline) Scrub(at time.Time) domain.TimeContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selected = at
	return t.snapshotLocked()
}

// SetMode switches between single and range mode. Entering range mode
// without an interval selects the day either side of the current hour.
func (t *Timeline) SetMode(mode domain.TimelineMode) (domain.TimeContext, error) {
	if _, err := domain.ParseTimelineMode(string(mode)); err != nil {
		return domain.TimeContext{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.mode = mode
	if mode == domain.ModeRange && t.start == nil {
		now := t.clock.Now().Truncate(time.Hour)
		start, end := now.AddDate(0, 0, -1), now.AddDate(0, 0, 1)
		t.start, t.end = &start, &end
	}
	return t.snapshotLocked(), nil
}

// SetInterval sets the range bounds. It requires range mode.
func (t *Timeline) SetInterval(start, end time.Time) (domain.TimeContext, error) {
	if end.Before(start) {
		return domain.TimeContext{}, fmt.Errorf("interval end %s before start %s: %w",
			end.Format(time.RFC3339), start.Format(time.RFC3339), domain.ErrInvalidInput)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.mode != domain.ModeRange {
		return domain.TimeContext{}, fmt.Errorf("set interval in %s mode: %w", t.mode, domain.ErrWrongMode)
	}
	t.start, t.end = &start, &end
	return t.snapshotLocked(), nil
}

// Close stops playback.
func (t *Timeline) Close() {
	t.Pause()
}

func (t *Timeline) loop(ticker clockwork.Ticker, stop <-chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			tc, ok := t.advance(stop)
			if !ok {
				continue
			}
			select {
			case t.ticks <- tc:
			case <-stop:
				return
			}
		}
	}
}

// advance moves Selected one hour forward, wrapping at the window end.
// Range mode does not advance, and neither does a loop whose playback session
// (identified by stop) has since been paused or replaced.
func (t *Timeline) advance(stop <-chan struct{}) (domain.TimeContext, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.playing || t.stop != stop || t.mode != domain.ModeSingle {
		return domain.TimeContext{}, false
	}
	next := (t.position(t.selected) + 1) % t.slots
	t.selected = t.slotTime(next)
	t.metrics.TimelineTicks.Inc()
	return t.snapshotLocked(), true
}

func (t *Timeline) pauseLocked() {
	if !t.playing {
		return
	}
	t.playing = false
	close(t.stop)
	t.stop = nil
	t.metrics.TimelinePlaying.Set(0)
	t.logger.Info("timeline playback paused", "selected", t.selected)
}

// position is the hour slot of at within the window, clamped to its bounds.
func (t *Timeline) position(at time.Time) int {
	pos := int(at.Sub(t.windowStart) / time.Hour)
	return max(0, min(pos, t.slots-1))
}

func (t *Timeline) slotTime(pos int) time.Time {
	return t.windowStart.Add(time.Duration(pos) * time.Hour)
}

func (t *Timeline) snapshotLocked() domain.TimeContext {
	tc := domain.TimeContext{
		Mode:     t.mode,
		Selected: t.selected,
		Playing:  t.playing,
	}
	if t.mode == domain.ModeRange {
		if t.start != nil {
			s := *t.start
			tc.Start = &s
		}
		if t.end != nil {
			e := *t.end
			tc.End = &e
		}
	}
	return tc
}
