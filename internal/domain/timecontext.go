package domain

import (
	"fmt"
	"time"
)

// TimelineMode selects between a single instant and an interval.
type TimelineMode string

const (
	ModeSingle TimelineMode = "single"
	ModeRange  TimelineMode = "range"
)

// ParseTimelineMode validates s as a timeline mode.
func ParseTimelineMode(s string) (TimelineMode, error) {
	switch m := TimelineMode(s); m {
	case ModeSingle, ModeRange:
		return m, nil
	default:
		return "", fmt.Errorf("unknown timeline mode %q: %w", s, ErrInvalidInput)
	}
}

// TimeContext is a point-in-time view of the timeline. Start and End are set
// only in range mode; Start <= End is the caller's responsibility.
type TimeContext struct {
	Mode     TimelineMode `json:"mode"`
	Selected time.Time    `json:"selectedTime"`
	Start    *time.Time   `json:"startTime,omitempty"`
	End      *time.Time   `json:"endTime,omitempty"`
	Playing  bool         `json:"isPlaying"`
}
