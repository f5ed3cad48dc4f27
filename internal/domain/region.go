package domain

import (
	"fmt"
	"time"
)

// Region is a user-drawn polygon tied to one data source.
type Region struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Vertices     []Coordinate `json:"coordinates"`
	DataSourceID string       `json:"dataSource"`
	Color        string       `json:"color"`
	Value        *float64     `json:"value,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`

	// Generation is the recompute sweep that last wrote Color or Value.
	Generation uint64 `json:"-"`
}

// Clone returns a deep copy of the region.
func (r Region) Clone() Region {
	r.Vertices = append([]Coordinate(nil), r.Vertices...)
	if r.Value != nil {
		v := *r.Value
		r.Value = &v
	}
	return r
}

// DataSource names an archive field plus its presentation defaults.
type DataSource struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	APIEndpoint string `json:"apiEndpoint,omitempty"`
	Field       string `json:"field"`
	Color       string `json:"color"`
	Enabled     bool   `json:"enabled"`
}

// Validate checks required fields and the color.
func (ds *DataSource) Validate() error {
	if ds.Name == "" {
		return fmt.Errorf("name must not be empty: %w", ErrInvalidDataSource)
	}
	if ds.Field == "" {
		return fmt.Errorf("field must not be empty: %w", ErrInvalidDataSource)
	}
	if err := ValidateColor(ds.Color); err != nil {
		return fmt.Errorf("data source color: %w", ErrInvalidDataSource)
	}
	return nil
}

// RegionUpdate describes one region recolored by a recompute sweep.
type RegionUpdate struct {
	RegionID     string    `json:"region_id"`
	DataSourceID string    `json:"data_source_id"`
	Color        string    `json:"color"`
	Value        float64   `json:"value"`
	RuleID       string    `json:"rule_id,omitempty"`
	Generation   uint64    `json:"generation"`
	SampledAt    time.Time `json:"sampled_at"`
	ComputedAt   time.Time `json:"computed_at"`
}
