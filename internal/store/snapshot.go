package store

import (
	"slices"

	"github.com/couchcryptid/region-colorizer/internal/domain"
)

// Snapshot is the persisted form of the store.
type Snapshot struct {
	Regions     []domain.Region     `json:"regions"`
	DataSources []domain.DataSource `json:"dataSources"`
	ColorRules  []domain.ColorRule  `json:"colorRules"`
}

// Snapshot returns a deep copy of the current state, taken under one lock so
// the three lists always come from the same mutation.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Regions:     s.regionsLocked(),
		DataSources: slices.Clone(s.dataSources),
		ColorRules:  slices.Clone(s.rules),
	}
}

// Restore replaces the whole state with snap. Region generations restart at
// zero, so the first sweep after a restore always applies.
func (s *Store) Restore(snap Snapshot) {
	regions := make([]domain.Region, len(snap.Regions))
	for i, r := range snap.Regions {
		regions[i] = r.Clone()
		regions[i].Generation = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions = regions
	s.dataSources = slices.Clone(snap.DataSources)
	s.rules = slices.Clone(snap.ColorRules)
}

// Default seed identifiers.
const (
	DefaultDataSourceID = "open-meteo-temp"
	defaultArchiveURL   = "https://archive-api.open-meteo.com/v1/archive"
)

// DefaultSnapshot is the state of a fresh dashboard: one enabled temperature
// source and three threshold rules.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		DataSources: []domain.DataSource{{
			ID:          DefaultDataSourceID,
			Name:        "Temperature (°C)",
			APIEndpoint: defaultArchiveURL,
			Field:       "temperature_2m",
			Color:       "#3B82F6",
			Enabled:     true,
		}},
		ColorRules: []domain.ColorRule{
			{ID: "cold", DataSourceID: DefaultDataSourceID, Operator: domain.OpLess, Threshold: 10, Color: "#3B82F6", Label: "Cold"},
			{ID: "mild", DataSourceID: DefaultDataSourceID, Operator: domain.OpGreaterEqual, Threshold: 10, Color: "#10B981", Label: "Mild"},
			{ID: "hot", DataSourceID: DefaultDataSourceID, Operator: domain.OpGreaterEqual, Threshold: 25, Color: "#F59E0B", Label: "Hot"},
		},
	}
}

// SeedDefaults restores DefaultSnapshot.
func (s *Store) SeedDefaults() {
	s.Restore(DefaultSnapshot())
}
