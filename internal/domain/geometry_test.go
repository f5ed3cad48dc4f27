package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square() []Coordinate {
	return []Coordinate{{0, 0}, {0, 2}, {2, 2}, {2, 0}}
}

func TestCentroid(t *testing.T) {
	t.Run("square", func(t *testing.T) {
		c, err := Centroid(square())
		require.NoError(t, err)
		assert.Equal(t, Coordinate{Lat: 1, Lng: 1}, c)
	})

	t.Run("triangle", func(t *testing.T) {
		c, err := Centroid([]Coordinate{{52.0, 13.0}, {52.3, 13.3}, {52.6, 13.0}})
		require.NoError(t, err)
		assert.InDelta(t, 52.3, c.Lat, 1e-9)
		assert.InDelta(t, 13.1, c.Lng, 1e-9)
	})

	t.Run("single vertex", func(t *testing.T) {
		c, err := Centroid([]Coordinate{{-33.9, 151.2}})
		require.NoError(t, err)
		assert.Equal(t, Coordinate{Lat: -33.9, Lng: 151.2}, c)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Centroid(nil)
		require.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestValidateVertices(t *testing.T) {
	tests := []struct {
		name  string
		count int
		ok    bool
	}{
		{"two", 2, false},
		{"three", 3, true},
		{"twelve", 12, true},
		{"thirteen", 13, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVertices(make([]Coordinate, tt.count))
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidGeometry)
			}
		})
	}
}

func TestCoordinate_JSON(t *testing.T) {
	data, err := json.Marshal([]Coordinate{{52.52, 13.41}})
	require.NoError(t, err)
	assert.JSONEq(t, `[[52.52,13.41]]`, string(data))

	var got Coordinate
	require.NoError(t, json.Unmarshal([]byte(`[1.5,-2.25]`), &got))
	assert.Equal(t, Coordinate{Lat: 1.5, Lng: -2.25}, got)

	assert.Error(t, json.Unmarshal([]byte(`[1.5]`), &got))
	assert.Error(t, json.Unmarshal([]byte(`{"lat":1}`), &got))
}
