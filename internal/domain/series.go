package domain

import (
	"context"
	"math"
	"time"
)

// DefaultValue is returned by ValueAt when the series has no usable sample.
const DefaultValue = 20.0

// Fallback value range for synthetic series, [FallbackMin, FallbackMax).
const (
	FallbackMin = 5.0
	FallbackMax = 35.0
)

// DateLayout is the calendar date format used by the archive.
const DateLayout = "2006-01-02"

// Series is an hourly time series for one location. Times[i] and Values[i]
// are index-aligned; a NaN value marks a sample the archive reported as null.
type Series struct {
	Latitude  float64
	Longitude float64
	Times     []string
	Values    []float64
}

// SeriesFetcher retrieves hourly values for a location and day window from a
// remote archive.
type SeriesFetcher interface {
	FetchHourly(ctx context.Context, lat, lng float64, dayStart, dayEnd string) (Series, error)
}

// DayWindow returns midnight of t's calendar day and midnight of the
// following day, formatted as YYYY-MM-DD in t's location.
func DayWindow(t time.Time) (dayStart, dayEnd string) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start.Format(DateLayout), start.AddDate(0, 0, 1).Format(DateLayout)
}

// ValueAt returns the sample at index instant.Hour(). A missing or null
// sample falls back to the first element, and an empty series to DefaultValue.
func ValueAt(s Series, instant time.Time) float64 {
	if h := instant.Hour(); h < len(s.Values) && !math.IsNaN(s.Values[h]) {
		return s.Values[h]
	}
	if len(s.Values) > 0 && !math.IsNaN(s.Values[0]) {
		return s.Values[0]
	}
	return DefaultValue
}
