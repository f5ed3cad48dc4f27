// Package store holds the authoritative dashboard state: regions, data
// sources, and color rules. All methods are safe for concurrent use and
// return copies, so callers never alias stored records.
package store

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/couchcryptid/region-colorizer/internal/domain"
)

// Store is a mutex-guarded, in-memory entity container.
type Store struct {
	mu          sync.RWMutex
	regions     []domain.Region
	dataSources []domain.DataSource
	rules       []domain.ColorRule
	newID       func() string
}

// New creates an empty store.
func New() *Store {
	return &Store{newID: uuid.NewString}
}

// NewWithDefaults creates a store seeded with the default temperature data
// source and its cold, mild, and hot rules.
func NewWithDefaults() *Store {
	s := New()
	s.SeedDefaults()
	return s
}

// --- Regions ---

// AddRegion validates the vertices and appends a new region named
// "Region N" with no value, colored like its data source (DefaultColor when
// the source does not exist). An empty dataSourceID
// attaches the region to the first enabled data source, else the first one.
func (s *Store) AddRegion(vertices []domain.Coordinate, dataSourceID string) (domain.Region, error) {
	if err := domain.ValidateVertices(vertices); err != nil {
		return domain.Region{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dataSourceID == "" {
		dataSourceID = s.defaultDataSourceLocked()
	}
	color := domain.DefaultColor
	if i := s.dataSourceIndexLocked(dataSourceID); i >= 0 && s.dataSources[i].Color != "" {
		color = s.dataSources[i].Color
	}

	r := domain.Region{
		ID:           s.newID(),
		Name:         fmt.Sprintf("Region %d", len(s.regions)+1),
		Vertices:     slices.Clone(vertices),
		DataSourceID: dataSourceID,
		Color:        color,
		CreatedAt:    domain.Now(),
	}
	s.regions = append(s.regions, r)
	return r.Clone(), nil
}

// DeleteRegion removes the region with the given ID.
func (s *Store) DeleteRegion(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.regionIndexLocked(id)
	if i < 0 {
		return regionNotFound(id)
	}
	s.regions = slices.Delete(s.regions, i, i+1)
	return nil
}

// RenameRegion sets the display name of a region.
func (s *Store) RenameRegion(id, name string) (domain.Region, error) {
	if name == "" {
		return domain.Region{}, fmt.Errorf("region name must not be empty: %w", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.regionIndexLocked(id)
	if i < 0 {
		return domain.Region{}, regionNotFound(id)
	}
	s.regions[i].Name = name
	return s.regions[i].Clone(), nil
}

// Regions returns a copy of every region in creation order.
func (s *Store) Regions() []domain.Region {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.regionsLocked()
}

func (s *Store) regionsLocked() []domain.Region {
	out := make([]domain.Region, len(s.regions))
	for i, r := range s.regions {
		out[i] = r.Clone()
	}
	return out
}

// Region returns a copy of one region.
func (s *Store) Region(id string) (domain.Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.regionIndexLocked(id)
	if i < 0 {
		return domain.Region{}, regionNotFound(id)
	}
	return s.regions[i].Clone(), nil
}

// SetRegionColor writes a region's color on behalf of sweep gen and reports
// whether the write was applied. Generation 0 writes unconditionally; any
// other generation older than the region's last writer is dropped.
func (s *Store) SetRegionColor(id, color string, gen uint64) (bool, error) {
	return s.writeRegion(id, gen, func(r *domain.Region) { r.Color = color })
}

// SetRegionValue writes a region's sampled value under the same generation
// rule as SetRegionColor.
func (s *Store) SetRegionValue(id string, value float64, gen uint64) (bool, error) {
	return s.writeRegion(id, gen, func(r *domain.Region) { r.Value = &value })
}

func (s *Store) writeRegion(id string, gen uint64, apply func(*domain.Region)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.regionIndexLocked(id)
	if i < 0 {
		return false, regionNotFound(id)
	}
	r := &s.regions[i]
	if gen != 0 {
		if gen < r.Generation {
			return false, nil
		}
		r.Generation = gen
	}
	apply(r)
	return true, nil
}

func (s *Store) regionIndexLocked(id string) int {
	return slices.IndexFunc(s.regions, func(r domain.Region) bool { return r.ID == id })
}

func regionNotFound(id string) error {
	return fmt.Errorf("region %q: %w", id, domain.ErrNotFound)
}

// --- Data sources ---

// AddDataSource validates and appends a data source. An empty ID is
// replaced with a generated one.
func (s *Store) AddDataSource(ds domain.DataSource) (domain.DataSource, error) {
	if err := ds.Validate(); err != nil {
		return domain.DataSource{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if ds.ID == "" {
		ds.ID = s.newID()
	}
	if s.dataSourceIndexLocked(ds.ID) >= 0 {
		return domain.DataSource{}, fmt.Errorf("data source %q already exists: %w", ds.ID, domain.ErrInvalidDataSource)
	}
	s.dataSources = append(s.dataSources, ds)
	return ds, nil
}

// ToggleDataSource flips the enabled flag of a data source.
func (s *Store) ToggleDataSource(id string) (domain.DataSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.dataSourceIndexLocked(id)
	if i < 0 {
		return domain.DataSource{}, dataSourceNotFound(id)
	}
	s.dataSources[i].Enabled = !s.dataSources[i].Enabled
	return s.dataSources[i], nil
}

// SetDataSourceColor updates the display color of a data source.
func (s *Store) SetDataSourceColor(id, color string) (domain.DataSource, error) {
	if err := domain.ValidateColor(color); err != nil {
		return domain.DataSource{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.dataSourceIndexLocked(id)
	if i < 0 {
		return domain.DataSource{}, dataSourceNotFound(id)
	}
	s.dataSources[i].Color = color
	return s.dataSources[i], nil
}

// DataSources returns a copy of every data source.
func (s *Store) DataSources() []domain.DataSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.dataSources)
}

// DataSource returns one data source.
func (s *Store) DataSource(id string) (domain.DataSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.dataSourceIndexLocked(id)
	if i < 0 {
		return domain.DataSource{}, dataSourceNotFound(id)
	}
	return s.dataSources[i], nil
}

func (s *Store) defaultDataSourceLocked() string {
	for _, ds := range s.dataSources {
		if ds.Enabled {
			return ds.ID
		}
	}
	if len(s.dataSources) > 0 {
		return s.dataSources[0].ID
	}
	return ""
}

func (s *Store) dataSourceIndexLocked(id string) int {
	return slices.IndexFunc(s.dataSources, func(ds domain.DataSource) bool { return ds.ID == id })
}

func dataSourceNotFound(id string) error {
	return fmt.Errorf("data source %q: %w", id, domain.ErrNotFound)
}

// --- Color rules ---

// AddColorRule validates and appends a rule, generating its ID and, when
// absent, a label such as ">= 25".
func (s *Store) AddColorRule(rule domain.ColorRule) (domain.ColorRule, error) {
	if err := rule.Validate(); err != nil {
		return domain.ColorRule{}, err
	}
	if rule.Label == "" {
		rule.Label = rule.DefaultLabel()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rule.ID = s.newID()
	s.rules = append(s.rules, rule)
	return rule, nil
}

// UpdateColorRule applies a partial update to a rule.
func (s *Store) UpdateColorRule(id string, patch domain.RulePatch) (domain.ColorRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.ruleIndexLocked(id)
	if i < 0 {
		return domain.ColorRule{}, ruleNotFound(id)
	}
	updated := patch.Apply(s.rules[i])
	if err := updated.Validate(); err != nil {
		return domain.ColorRule{}, err
	}
	s.rules[i] = updated
	return updated, nil
}

// DeleteColorRule removes a rule.
func (s *Store) DeleteColorRule(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.ruleIndexLocked(id)
	if i < 0 {
		return ruleNotFound(id)
	}
	s.rules = slices.Delete(s.rules, i, i+1)
	return nil
}

// ColorRules returns a copy of every rule in insertion order.
func (s *Store) ColorRules() []domain.ColorRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.rules)
}

func (s *Store) ruleIndexLocked(id string) int {
	return slices.IndexFunc(s.rules, func(r domain.ColorRule) bool { return r.ID == id })
}

func ruleNotFound(id string) error {
	return fmt.Errorf("color rule %q: %w", id, domain.ErrNotFound)
}
