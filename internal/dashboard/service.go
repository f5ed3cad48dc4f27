// Package dashboard coordinates the store, the colorization engine, the
// timeline, and persistence behind the operations the presentation layer
// calls.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/region-colorizer/internal/colorize"
	"github.com/couchcryptid/region-colorizer/internal/domain"
	"github.com/couchcryptid/region-colorizer/internal/store"
	"github.com/couchcryptid/region-colorizer/internal/timeline"
)

// Recomputer runs a colorization sweep.
type Recomputer interface {
	Recompute(ctx context.Context, tc domain.TimeContext) (colorize.Result, error)
}

// Repository persists and restores the store snapshot.
type Repository interface {
	Save(ctx context.Context, snap store.Snapshot) error
	Load(ctx context.Context) (store.Snapshot, bool, error)
}

// Service is the dashboard's application layer. Mutations that affect colors
// start a background sweep without waiting for earlier ones, and every
// change to regions, data sources, or rules is persisted.
type Service struct {
	store    *store.Store
	engine   Recomputer
	timeline *timeline.Timeline
	repo     Repository
	logger   *slog.Logger

	// sweepCtx outlives request contexts; Close cancels it.
	sweepCtx    context.Context
	cancelSweep context.CancelFunc
	sweeps      sync.WaitGroup

	// closed is set by Close; later triggers start no sweep.
	closeMu sync.Mutex
	closed  bool

	persistMu sync.Mutex

	draftMu sync.Mutex
	draft   *domain.Draft
}

// New creates a Service. repo may be nil to disable persistence.
func New(st *store.Store, engine Recomputer, tl *timeline.Timeline, repo Repository, logger *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		store:       st,
		engine:      engine,
		timeline:    tl,
		repo:        repo,
		logger:      logger,
		sweepCtx:    ctx,
		cancelSweep: cancel,
	}
}

// Load restores the persisted snapshot, if any, and colors the restored
// regions for the current timeline position.
func (s *Service) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	snap, found, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load dashboard snapshot: %w", err)
	}
	if !found {
		s.logger.Info("no saved dashboard state, starting from defaults")
		return nil
	}
	s.store.Restore(snap)
	s.logger.Info("dashboard state restored",
		"regions", len(snap.Regions), "data_sources", len(snap.DataSources), "rules", len(snap.ColorRules))
	if len(snap.Regions) > 0 {
		s.trigger("restore")
	}
	return nil
}

// Run starts a sweep for every playback tick until ctx is cancelled or the
// service is closed.
func (s *Service) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.sweepCtx.Done():
			return nil
		case tc := <-s.timeline.Ticks():
			s.triggerAt(tc, "tick")
		}
	}
}

// Wait blocks until all background sweeps have finished.
func (s *Service) Wait() {
	s.sweeps.Wait()
}

// Close stops playback, cancels in-flight sweeps, and waits for them.
// Triggers arriving afterwards are ignored.
func (s *Service) Close() {
	s.closeMu.Lock()
	s.closed = true
	s.closeMu.Unlock()

	s.timeline.Close()
	s.cancelSweep()
	s.sweeps.Wait()
}

// Recompute runs a sweep for the current timeline position and waits for it.
func (s *Service) Recompute(ctx context.Context) (colorize.Result, error) {
	res, err := s.engine.Recompute(ctx, s.timeline.Snapshot())
	if err != nil {
		return res, err
	}
	s.persist(ctx)
	return res, nil
}

func (s *Service) trigger(reason string) {
	s.triggerAt(s.timeline.Snapshot(), reason)
}

func (s *Service) triggerAt(tc domain.TimeContext, reason string) {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		s.logger.Debug("service closed, sweep not started", "reason", reason)
		return
	}
	s.sweeps.Add(1)
	s.closeMu.Unlock()

	go func() {
		defer s.sweeps.Done()
		res, err := s.engine.Recompute(s.sweepCtx, tc)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				s.logger.Error("background recompute failed", "reason", reason, "error", err)
			}
			return
		}
		if res.Recomputed > 0 {
			s.persist(s.sweepCtx)
		}
	}()
}

// persist saves the current snapshot. Saves are serialized so an older
// snapshot never overwrites a newer one. Failures are logged; the in-memory
// state remains authoritative.
func (s *Service) persist(ctx context.Context) {
	if s.repo == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if err := s.repo.Save(ctx, s.store.Snapshot()); err != nil {
		s.logger.Error("persist dashboard state failed", "error", err)
	}
}

// --- Regions ---

// Regions lists every region.
func (s *Service) Regions() []domain.Region {
	return s.store.Regions()
}

// Region returns one region.
func (s *Service) Region(id string) (domain.Region, error) {
	return s.store.Region(id)
}

// AddRegion creates a region from vertices and starts a sweep.
func (s *Service) AddRegion(ctx context.Context, vertices []domain.Coordinate, dataSourceID string) (domain.Region, error) {
	r, err := s.store.AddRegion(vertices, dataSourceID)
	if err != nil {
		return domain.Region{}, err
	}
	s.logger.Info("region created", "region_id", r.ID, "vertices", len(r.Vertices), "data_source", r.DataSourceID)
	s.persist(ctx)
	s.trigger("region created")
	return r, nil
}

// RenameRegion changes a region's display name.
func (s *Service) RenameRegion(ctx context.Context, id, name string) (domain.Region, error) {
	r, err := s.store.RenameRegion(id, name)
	if err != nil {
		return domain.Region{}, err
	}
	s.persist(ctx)
	return r, nil
}

// DeleteRegion removes a region.
func (s *Service) DeleteRegion(ctx context.Context, id string) error {
	if err := s.store.DeleteRegion(id); err != nil {
		return err
	}
	s.logger.Info("region deleted", "region_id", id)
	s.persist(ctx)
	return nil
}

// --- Drawing ---

// StartDraft opens an empty draft, discarding any open one.
func (s *Service) StartDraft() domain.Draft {
	s.draftMu.Lock()
	defer s.draftMu.Unlock()
	s.draft = &domain.Draft{}
	return domain.Draft{}
}

// Draft returns the open draft.
func (s *Service) Draft() (domain.Draft, error) {
	s.draftMu.Lock()
	defer s.draftMu.Unlock()
	if s.draft == nil {
		return domain.Draft{}, domain.ErrNoDraft
	}
	return copyDraft(s.draft), nil
}

// DraftPointResult is the outcome of adding a point to a draft. Region is
// set when the point closed the draft.
type DraftPointResult struct {
	Draft  domain.Draft   `json:"draft"`
	Region *domain.Region `json:"region,omitempty"`
}

// AddDraftPoint adds p to the open draft. A point near the first vertex of
// a draft with at least three vertices completes it into a region.
func (s *Service) AddDraftPoint(ctx context.Context, p domain.Coordinate) (DraftPointResult, error) {
	s.draftMu.Lock()
	if s.draft == nil {
		s.draftMu.Unlock()
		return DraftPointResult{}, domain.ErrNoDraft
	}
	closed := s.draft.AddPoint(p)
	draft := copyDraft(s.draft)
	if closed {
		s.draft = nil
	}
	s.draftMu.Unlock()

	if !closed {
		return DraftPointResult{Draft: draft}, nil
	}
	r, err := s.AddRegion(ctx, draft.Vertices, "")
	if err != nil {
		return DraftPointResult{}, err
	}
	return DraftPointResult{Draft: draft, Region: &r}, nil
}

// CompleteDraft turns the open draft into a region. A draft with fewer than
// three vertices is rejected and stays open.
func (s *Service) CompleteDraft(ctx context.Context) (domain.Region, error) {
	s.draftMu.Lock()
	if s.draft == nil {
		s.draftMu.Unlock()
		return domain.Region{}, domain.ErrNoDraft
	}
	if !s.draft.Completable() {
		n := len(s.draft.Vertices)
		s.draftMu.Unlock()
		return domain.Region{}, fmt.Errorf("draft has %d vertices: %w", n, domain.ErrInvalidGeometry)
	}
	draft := copyDraft(s.draft)
	s.draft = nil
	s.draftMu.Unlock()

	return s.AddRegion(ctx, draft.Vertices, "")
}

// CancelDraft discards the open draft, if any.
func (s *Service) CancelDraft() {
	s.draftMu.Lock()
	defer s.draftMu.Unlock()
	s.draft = nil
}

func copyDraft(d *domain.Draft) domain.Draft {
	return domain.Draft{Vertices: append([]domain.Coordinate{}, d.Vertices...)}
}

// --- Data sources ---

// DataSources lists every data source.
func (s *Service) DataSources() []domain.DataSource {
	return s.store.DataSources()
}

// AddDataSource registers a data source.
func (s *Service) AddDataSource(ctx context.Context, ds domain.DataSource) (domain.DataSource, error) {
	added, err := s.store.AddDataSource(ds)
	if err != nil {
		return domain.DataSource{}, err
	}
	s.persist(ctx)
	return added, nil
}

// ToggleDataSource flips a data source's enabled flag and starts a sweep.
func (s *Service) ToggleDataSource(ctx context.Context, id string) (domain.DataSource, error) {
	ds, err := s.store.ToggleDataSource(id)
	if err != nil {
		return domain.DataSource{}, err
	}
	s.persist(ctx)
	s.trigger("data source toggled")
	return ds, nil
}

// SetDataSourceColor changes a data source's display color.
func (s *Service) SetDataSourceColor(ctx context.Context, id, color string) (domain.DataSource, error) {
	ds, err := s.store.SetDataSourceColor(id, color)
	if err != nil {
		return domain.DataSource{}, err
	}
	s.persist(ctx)
	return ds, nil
}

// --- Color rules ---

// ColorRules lists every rule.
func (s *Service) ColorRules() []domain.ColorRule {
	return s.store.ColorRules()
}

// AddColorRule adds a rule and starts a sweep.
func (s *Service) AddColorRule(ctx context.Context, rule domain.ColorRule) (domain.ColorRule, error) {
	added, err := s.store.AddColorRule(rule)
	if err != nil {
		return domain.ColorRule{}, err
	}
	s.persist(ctx)
	s.trigger("rule added")
	return added, nil
}

// UpdateColorRule patches a rule and starts a sweep.
func (s *Service) UpdateColorRule(ctx context.Context, id string, patch domain.RulePatch) (domain.ColorRule, error) {
	updated, err := s.store.UpdateColorRule(id, patch)
	if err != nil {
		return domain.ColorRule{}, err
	}
	s.persist(ctx)
	s.trigger("rule updated")
	return updated, nil
}

// DeleteColorRule removes a rule and starts a sweep.
func (s *Service) DeleteColorRule(ctx context.Context, id string) error {
	if err := s.store.DeleteColorRule(id); err != nil {
		return err
	}
	s.persist(ctx)
	s.trigger("rule deleted")
	return nil
}

// --- Timeline ---

// Timeline returns the current timeline state.
func (s *Service) Timeline() domain.TimeContext {
	return s.timeline.Snapshot()
}

// Play starts playback.
func (s *Service) Play() domain.TimeContext {
	return s.timeline.Play()
}

// Pause halts playback.
func (s *Service) Pause() domain.TimeContext {
	return s.timeline.Pause()
}

// Stop halts playback, returns to the current hour, and starts a sweep.
func (s *Service) Stop() domain.TimeContext {
	tc := s.timeline.Stop()
	s.triggerAt(tc, "stop")
	return tc
}

// ResetToNow selects the current instant and starts a sweep.
func (s *Service) ResetToNow() domain.TimeContext {
	tc := s.timeline.ResetToNow()
	s.triggerAt(tc, "reset to now")
	return tc
}

// Scrub selects an instant and starts a sweep.
func (s *Service) Scrub(at time.Time) domain.TimeContext {
	tc := s.timeline.Scrub(at)
	s.triggerAt(tc, "scrub")
	return tc
}

// SetMode switches the timeline mode and starts a sweep.
func (s *Service) SetMode(mode domain.TimelineMode) (domain.TimeContext, error) {
	tc, err := s.timeline.SetMode(mode)
	if err != nil {
		return domain.TimeContext{}, err
	}
	s.triggerAt(tc, "mode changed")
	return tc, nil
}

// SetInterval sets the range-mode interval and starts a sweep.
func (s *Service) SetInterval(start, end time.Time) (domain.TimeContext, error) {
	tc, err := s.timeline.SetInterval(start, end)
	if err != nil {
		return domain.TimeContext{}, err
	}
	s.triggerAt(tc, "interval changed")
	return tc, nil
}
