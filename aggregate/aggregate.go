// Package aggregate reduces raw taxi pickups, weather observations and event intervals to hourly
// series keyed by hour-aligned UTC timestamps.
package aggregate

import (
	"errors"
	"time"
)

var (
	ErrNoData             = errors.New("no usable data")
	ErrSchemaViolation    = errors.New("schema violation")
	ErrDuplicateTimestamp = errors.New("duplicate timestamp")
)

// Window is the half open range [Start, End). The zero Window contains every instant.
type Window struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether the window is unbounded
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	if w.IsZero() {
		return true
	}
	return !t.Before(w.Start) && t.Before(w.End)
}

// HourKey identifies the hour containing t
func HourKey(t time.Time) int64 {
	return t.Unix() / 3600
}

func keyHour(k int64) time.Time {
	return time.Unix(k*3600, 0).UTC()
}
