// Package source fetches the raw taxi, weather and event records from their remote publishers
// and hands them to the hourly aggregators.
package source

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrMissingPartition = errors.New("missing partition")
	ErrSchemaViolation  = errors.New("schema violation")
	ErrNotFound         = errors.New("resource not found")
	ErrCircuitOpen      = errors.New("circuit breaker open")
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrNoLocation       = errors.New("no location for local timestamps")
)

// Month identifies a monthly partition of the taxi trip logs
type Month struct {
	Year  int
	Month time.Month
}

func (m Month) String() string {
	return fmt.Sprintf("%d-%02d", m.Year, int(m.Month))
}

// Window returns the month as the half open range of instants [first, next) in loc.
func (m Month) Window(loc *time.Location) (time.Time, time.Time) {
	start := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 1, 0).UTC()
}

// MonthsBetween lists every month of the inclusive year range
func MonthsBetween(startYear, endYear int) []Month {
	var months []Month
	for y := startYear; y <= endYear; y++ {
		for m := time.January; m <= time.December; m++ {
			months = append(months, Month{Year: y, Month: m})
		}
	}
	return months
}

// PartitionError reports a partition that contributed nothing to the build.
type PartitionError struct {
	Month Month
	Err   error
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("%s %s, %s", ErrMissingPartition, e.Month, e.Err)
}

func (e *PartitionError) Unwrap() []error {
	return []error{ErrMissingPartition, e.Err}
}

// Localize interprets the wall clock reading of t, ignoring its location, as a time in loc.
// Publishers of naive local timestamps are decoded this way.
func Localize(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc).UTC()
}
