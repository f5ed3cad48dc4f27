package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/region-colorizer/internal/domain"
)

var square = []domain.Coordinate{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 1, Lng: 1}, {Lat: 1, Lng: 0}}

func newTestStore() *Store {
	s := NewWithDefaults()
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return s
}

func TestAddRegion(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { domain.SetClock(nil) })

	s := newTestStore()
	r, err := s.AddRegion(square, "")
	require.NoError(t, err)

	assert.Equal(t, "id-1", r.ID)
	assert.Equal(t, "Region 1", r.Name)
	assert.Equal(t, DefaultDataSourceID, r.DataSourceID)
	assert.Equal(t, domain.DefaultColor, r.Color)
	assert.Nil(t, r.Value)
	assert.Equal(t, fixed, r.CreatedAt)

	r2, err := s.AddRegion(square, "custom")
	require.NoError(t, err)
	assert.Equal(t, "Region 2", r2.Name)
	assert.Equal(t, "custom", r2.DataSourceID)
	assert.Len(t, s.Regions(), 2)
}

func TestAddRegion_RejectsBadVertexCount(t *testing.T) {
	s := newTestStore()

	_, err := s.AddRegion(square[:2], "")
	require.ErrorIs(t, err, domain.ErrInvalidGeometry)

	tooMany := make([]domain.Coordinate, domain.MaxVertices+1)
	_, err = s.AddRegion(tooMany, "")
	require.ErrorIs(t, err, domain.ErrInvalidGeometry)

	assert.Empty(t, s.Regions())
}

func TestAddRegion_PrefersFirstEnabledSource(t *testing.T) {
	s := New()
	_, err := s.AddDataSource(domain.DataSource{ID: "off", Name: "Off", Field: "f", Color: "#000000"})
	require.NoError(t, err)
	_, err = s.AddDataSource(domain.DataSource{ID: "on", Name: "On", Field: "f", Color: "#000000", Enabled: true})
	require.NoError(t, err)

	r, err := s.AddRegion(square, "")
	require.NoError(t, err)
	assert.Equal(t, "on", r.DataSourceID)

	_, err = s.ToggleDataSource("on")
	require.NoError(t, err)
	r, err = s.AddRegion(square, "")
	require.NoError(t, err)
	assert.Equal(t, "off", r.DataSourceID, "falls back to the first source when none is enabled")
}

func TestAddRegion_UsesDataSourceColor(t *testing.T) {
	s := New()
	_, err := s.AddDataSource(domain.DataSource{ID: "wind", Name: "Wind", Field: "wind_speed_10m", Color: "#FF0000", Enabled: true})
	require.NoError(t, err)

	r, err := s.AddRegion(square, "wind")
	require.NoError(t, err)
	assert.Equal(t, "#FF0000", r.Color)

	r, err = s.AddRegion(square, "")
	require.NoError(t, err)
	assert.Equal(t, "#FF0000", r.Color, "default source color applies too")

	r, err = s.AddRegion(square, "missing")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultColor, r.Color)
}

func TestAddRegion_NoDataSources(t *testing.T) {
	r, err := New().AddRegion(square, "")
	require.NoError(t, err)
	assert.Empty(t, r.DataSourceID)
}

func TestRegions_ReturnsCopies(t *testing.T) {
	s := newTestStore()
	r, err := s.AddRegion(square, "")
	require.NoError(t, err)

	r.Vertices[0].Lat = 99
	got := s.Regions()
	got[0].Vertices[1].Lat = 99

	stored, err := s.Region(r.ID)
	require.NoError(t, err)
	assert.Equal(t, square, stored.Vertices)
}

func TestRenameAndDeleteRegion(t *testing.T) {
	s := newTestStore()
	r, err := s.AddRegion(square, "")
	require.NoError(t, err)

	renamed, err := s.RenameRegion(r.ID, "Downtown")
	require.NoError(t, err)
	assert.Equal(t, "Downtown", renamed.Name)

	_, err = s.RenameRegion(r.ID, "")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, s.DeleteRegion(r.ID))
	require.ErrorIs(t, s.DeleteRegion(r.ID), domain.ErrNotFound)
	_, err = s.Region(r.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.RenameRegion("missing", "x")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetRegionColorAndValue(t *testing.T) {
	s := newTestStore()
	r, err := s.AddRegion(square, "")
	require.NoError(t, err)

	ok, err := s.SetRegionColor(r.ID, "#F59E0B", 0)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.SetRegionValue(r.ID, 27.5, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.Region(r.ID)
	require.NoError(t, err)
	assert.Equal(t, "#F59E0B", got.Color)
	require.NotNil(t, got.Value)
	assert.Equal(t, 27.5, *got.Value)

	_, err = s.SetRegionColor("missing", "#000000", 0)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetRegionColor_GenerationGuard(t *testing.T) {
	s := newTestStore()
	r, err := s.AddRegion(square, "")
	require.NoError(t, err)

	ok, err := s.SetRegionColor(r.ID, "#000002", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SetRegionColor(r.ID, "#000001", 1)
	require.NoError(t, err)
	assert.False(t, ok, "older generation is discarded")

	ok, err = s.SetRegionValue(r.ID, 5, 2)
	require.NoError(t, err)
	assert.True(t, ok, "same generation may write both fields")

	ok, err = s.SetRegionColor(r.ID, "#000000", 0)
	require.NoError(t, err)
	assert.True(t, ok, "generation 0 is unconditional")

	got, err := s.Region(r.ID)
	require.NoError(t, err)
	assert.Equal(t, "#000000", got.Color)
	assert.Equal(t, uint64(2), got.Generation)
}

func TestDataSources(t *testing.T) {
	s := newTestStore()

	_, err := s.AddDataSource(domain.DataSource{Name: "", Field: "x", Color: "#000000"})
	require.ErrorIs(t, err, domain.ErrInvalidDataSource)

	ds, err := s.AddDataSource(domain.DataSource{Name: "Humidity", Field: "relative_humidity_2m", Color: "#10B981", Enabled: true})
	require.NoError(t, err)
	assert.NotEmpty(t, ds.ID)

	_, err = s.AddDataSource(domain.DataSource{ID: DefaultDataSourceID, Name: "Dup", Field: "x", Color: "#000000"})
	require.ErrorIs(t, err, domain.ErrInvalidDataSource)

	toggled, err := s.ToggleDataSource(ds.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Enabled)

	recolored, err := s.SetDataSourceColor(ds.ID, "#EF4444")
	require.NoError(t, err)
	assert.Equal(t, "#EF4444", recolored.Color)

	_, err = s.SetDataSourceColor(ds.ID, "red")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.ToggleDataSource("missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.DataSource("missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	assert.Len(t, s.DataSources(), 2)
}

func TestColorRules(t *testing.T) {
	s := newTestStore()

	rule, err := s.AddColorRule(domain.ColorRule{
		DataSourceID: DefaultDataSourceID,
		Operator:     domain.OpGreaterEqual,
		Threshold:    35,
		Color:        "#EF4444",
	})
	require.NoError(t, err)
	assert.Equal(t, "id-1", rule.ID)
	assert.Equal(t, ">= 35", rule.Label)

	_, err = s.AddColorRule(domain.ColorRule{Operator: "!=", Color: "#000000"})
	require.ErrorIs(t, err, domain.ErrInvalidRule)

	threshold := 30.0
	updated, err := s.UpdateColorRule(rule.ID, domain.RulePatch{Threshold: &threshold})
	require.NoError(t, err)
	assert.Equal(t, 30.0, updated.Threshold)
	assert.Equal(t, "#EF4444", updated.Color)

	bad := "nope"
	_, err = s.UpdateColorRule(rule.ID, domain.RulePatch{Color: &bad})
	require.ErrorIs(t, err, domain.ErrInvalidRule)

	require.NoError(t, s.DeleteColorRule(rule.ID))
	require.ErrorIs(t, s.DeleteColorRule(rule.ID), domain.ErrNotFound)
	_, err = s.UpdateColorRule(rule.ID, domain.RulePatch{})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Len(t, s.ColorRules(), 3)
}

func TestDefaults_ClassifyTemperatures(t *testing.T) {
	rules := NewWithDefaults().ColorRules()

	tests := []struct {
		value float64
		label string
	}{
		{30, "Hot"},
		{15, "Mild"},
		{5, "Cold"},
	}
	for _, tt := range tests {
		_, matched := domain.Classify(tt.value, DefaultDataSourceID, rules)
		require.NotNil(t, matched)
		assert.Equal(t, tt.label, matched.Label)
	}
}

func TestSnapshotRestore(t *testing.T) {
	s := newTestStore()
	r, err := s.AddRegion(square, "")
	require.NoError(t, err)
	_, err = s.SetRegionValue(r.ID, 12, 7)
	require.NoError(t, err)

	snap := s.Snapshot()

	restored := New()
	restored.Restore(snap)

	want := snap
	want.Regions[0].Generation = 0
	if diff := cmp.Diff(want, restored.Snapshot()); diff != "" {
		t.Errorf("restored snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := s.AddRegion(square, "")
			if err != nil {
				t.Error(err)
				return
			}
			_, _ = s.SetRegionColor(r.ID, "#000000", uint64(i+1))
			_ = s.Regions()
		}()
	}
	wg.Wait()
	assert.Len(t, s.Regions(), 20)
}

func TestSnapshot_ConsistentAcrossLists(t *testing.T) {
	s := New()
	const n = 200

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range n {
			if _, err := s.AddRegion(square, ""); err != nil {
				t.Error(err)
				return
			}
			if _, err := s.AddColorRule(domain.ColorRule{Operator: domain.OpGreaterEqual, Color: "#10B981"}); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	for {
		snap := s.Snapshot()
		require.LessOrEqual(t, len(snap.ColorRules), len(snap.Regions),
			"every rule is added after its region, so a snapshot never holds more rules than regions")
		select {
		case <-done:
			return
		default:
		}
	}
}
