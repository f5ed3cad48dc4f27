package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// Vertex count bounds for a drawn region.
const (
	MinVertices = 3
	MaxVertices = 12
)

// Coordinate is a WGS-84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64
	Lng float64
}

// MarshalJSON encodes the coordinate as [lat, lng].
func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lat, c.Lng})
}

// UnmarshalJSON decodes a [lat, lng] array.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode coordinate: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("decode coordinate: want 2 elements, got %d", len(pair))
	}
	c.Lat, c.Lng = pair[0], pair[1]
	return nil
}

// Centroid returns the planar centroid of the vertices: the mean latitude and
// the mean longitude, computed independently.
func Centroid(vertices []Coordinate) (Coordinate, error) {
	if len(vertices) == 0 {
		return Coordinate{}, fmt.Errorf("centroid of empty vertex sequence: %w", ErrInvalidInput)
	}
	var sumLat, sumLng float64
	for _, v := range vertices {
		sumLat += v.Lat
		sumLng += v.Lng
	}
	n := float64(len(vertices))
	return Coordinate{Lat: sumLat / n, Lng: sumLng / n}, nil
}

// ValidateVertices checks the vertex count is within [MinVertices, MaxVertices].
func ValidateVertices(vertices []Coordinate) error {
	if len(vertices) < MinVertices || len(vertices) > MaxVertices {
		return fmt.Errorf("region needs %d-%d vertices, got %d: %w",
			MinVertices, MaxVertices, len(vertices), ErrInvalidGeometry)
	}
	return nil
}

// planarDistance is the Euclidean distance in degrees between two coordinates.
func planarDistance(a, b Coordinate) float64 {
	return math.Hypot(a.Lat-b.Lat, a.Lng-b.Lng)
}
