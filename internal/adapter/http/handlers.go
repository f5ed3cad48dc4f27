package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/couchcryptid/region-colorizer/internal/domain"
)

const maxBodyBytes = 1 << 20

func (s *Server) registerAPI(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/regions", s.listRegions)
	mux.HandleFunc("GET /api/regions.geojson", s.regionsGeoJSON)
	mux.HandleFunc("POST /api/regions", s.createRegion)
	mux.HandleFunc("GET /api/regions/{id}", s.getRegion)
	mux.HandleFunc("PATCH /api/regions/{id}", s.renameRegion)
	mux.HandleFunc("DELETE /api/regions/{id}", s.deleteRegion)

	mux.HandleFunc("GET /api/draft", s.getDraft)
	mux.HandleFunc("POST /api/draft", s.startDraft)
	mux.HandleFunc("POST /api/draft/points", s.addDraftPoint)
	mux.HandleFunc("POST /api/draft/complete", s.completeDraft)
	mux.HandleFunc("DELETE /api/draft", s.cancelDraft)

	mux.HandleFunc("GET /api/data-sources", s.listDataSources)
	mux.HandleFunc("POST /api/data-sources", s.createDataSource)
	mux.HandleFunc("POST /api/data-sources/{id}/toggle", s.toggleDataSource)
	mux.HandleFunc("PUT /api/data-sources/{id}/color", s.setDataSourceColor)

	mux.HandleFunc("GET /api/rules", s.listRules)
	mux.HandleFunc("POST /api/rules", s.createRule)
	mux.HandleFunc("PATCH /api/rules/{id}", s.updateRule)
	mux.HandleFunc("DELETE /api/rules/{id}", s.deleteRule)

	mux.HandleFunc("GET /api/timeline", s.getTimeline)
	mux.HandleFunc("PUT /api/timeline/mode", s.setTimelineMode)
	mux.HandleFunc("PUT /api/timeline/selected", s.scrubTimeline)
	mux.HandleFunc("PUT /api/timeline/interval", s.setTimelineInterval)
	mux.HandleFunc("POST /api/timeline/play", s.timelineAction(s.dashboard.Play))
	mux.HandleFunc("POST /api/timeline/pause", s.timelineAction(s.dashboard.Pause))
	mux.HandleFunc("POST /api/timeline/stop", s.timelineAction(s.dashboard.Stop))
	mux.HandleFunc("POST /api/timeline/now", s.timelineAction(s.dashboard.ResetToNow))

	mux.HandleFunc("POST /api/recompute", s.recompute)
}

// --- Regions ---

type createRegionRequest struct {
	Coordinates  []domain.Coordinate `json:"coordinates"`
	DataSourceID string              `json:"dataSource"`
}

type renameRequest struct {
	Name string `json:"name"`
}

func (s *Server) listRegions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dashboard.Regions())
}

func (s *Server) createRegion(w http.ResponseWriter, r *http.Request) {
	var req createRegionRequest
	if !s.decode(w, r, &req) {
		return
	}
	region, err := s.dashboard.AddRegion(r.Context(), req.Coordinates, req.DataSourceID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, region)
}

func (s *Server) getRegion(w http.ResponseWriter, r *http.Request) {
	region, err := s.dashboard.Region(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, region)
}

func (s *Server) renameRegion(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if !s.decode(w, r, &req) {
		return
	}
	region, err := s.dashboard.RenameRegion(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, region)
}

func (s *Server) deleteRegion(w http.ResponseWriter, r *http.Request) {
	if err := s.dashboard.DeleteRegion(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Drawing ---

func (s *Server) getDraft(w http.ResponseWriter, _ *http.Request) {
	draft, err := s.dashboard.Draft()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *Server) startDraft(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusCreated, s.dashboard.StartDraft())
}

func (s *Server) addDraftPoint(w http.ResponseWriter, r *http.Request) {
	var p domain.Coordinate
	if !s.decode(w, r, &p) {
		return
	}
	res, err := s.dashboard.AddDraftPoint(r.Context(), p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	status := http.StatusOK
	if res.Region != nil {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

func (s *Server) completeDraft(w http.ResponseWriter, r *http.Request) {
	region, err := s.dashboard.CompleteDraft(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, region)
}

func (s *Server) cancelDraft(w http.ResponseWriter, _ *http.Request) {
	s.dashboard.CancelDraft()
	w.WriteHeader(http.StatusNoContent)
}

// --- Data sources ---

type colorRequest struct {
	Color string `json:"color"`
}

func (s *Server) listDataSources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dashboard.DataSources())
}

func (s *Server) createDataSource(w http.ResponseWriter, r *http.Request) {
	var ds domain.DataSource
	if !s.decode(w, r, &ds) {
		return
	}
	created, err := s.dashboard.AddDataSource(r.Context(), ds)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) toggleDataSource(w http.ResponseWriter, r *http.Request) {
	ds, err := s.dashboard.ToggleDataSource(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (s *Server) setDataSourceColor(w http.ResponseWriter, r *http.Request) {
	var req colorRequest
	if !s.decode(w, r, &req) {
		return
	}
	ds, err := s.dashboard.SetDataSourceColor(r.Context(), r.PathValue("id"), req.Color)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

// --- Color rules ---

func (s *Server) listRules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dashboard.ColorRules())
}

func (s *Server) createRule(w http.ResponseWriter, r *http.Request) {
	var rule domain.ColorRule
	if !s.decode(w, r, &rule) {
		return
	}
	created, err := s.dashboard.AddColorRule(r.Context(), rule)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateRule(w http.ResponseWriter, r *http.Request) {
	var patch domain.RulePatch
	if !s.decode(w, r, &patch) {
		return
	}
	updated, err := s.dashboard.UpdateColorRule(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.dashboard.DeleteColorRule(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Timeline ---

type modeRequest struct {
	Mode domain.TimelineMode `json:"mode"`
}

type scrubRequest struct {
	Time time.Time `json:"time"`
}

type intervalRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (s *Server) getTimeline(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dashboard.Timeline())
}

func (s *Server) setTimelineMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if !s.decode(w, r, &req) {
		return
	}
	tc, err := s.dashboard.SetMode(req.Mode)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tc)
}

func (s *Server) scrubTimeline(w http.ResponseWriter, r *http.Request) {
	var req scrubRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Time.IsZero() {
		s.writeError(w, fmt.Errorf("time is required: %w", domain.ErrInvalidInput))
		return
	}
	writeJSON(w, http.StatusOK, s.dashboard.Scrub(req.Time))
}

func (s *Server) setTimelineInterval(w http.ResponseWriter, r *http.Request) {
	var req intervalRequest
	if !s.decode(w, r, &req) {
		return
	}
	tc, err := s.dashboard.SetInterval(req.Start, req.End)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tc)
}

func (s *Server) timelineAction(action func() domain.TimeContext) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, action())
	}
}

func (s *Server) recompute(w http.ResponseWriter, r *http.Request) {
	res, err := s.dashboard.Recompute(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- helpers ---

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, fmt.Errorf("decode request body: %w: %w", domain.ErrInvalidInput, err))
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidGeometry),
		errors.Is(err, domain.ErrInvalidRule),
		errors.Is(err, domain.ErrInvalidDataSource):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrWrongMode), errors.Is(err, domain.ErrNoDraft):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
