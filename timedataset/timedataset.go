// Package timedataset holds the hourly time axis primitives shared by every stage of the
// ride demand pipeline: hour alignment, fixed hourly grids and univariate hourly series.
package timedataset

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoData             = errors.New("no data")
	ErrCannotInferFreq    = errors.New("cannot infer frequency from less than two points")
	ErrNonMontonic        = errors.New("time feature is not monotonic")
	ErrDatasetLenMismatch = errors.New("time feature has a different length than observations")
	ErrStartAfterEnd      = errors.New("grid start is after grid end")
	ErrNotHourAligned     = errors.New("timestamp is not aligned to the hour")
	ErrDuplicateTimestamp = errors.New("duplicate timestamp")
	ErrHourGap            = errors.New("gap in hourly sequence")
)

// FloorHour truncates t to the start of its hour in UTC.
func FloorHour(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// CeilHour returns the first hour boundary at or after t in UTC.
func CeilHour(t time.Time) time.Time {
	f := FloorHour(t)
	if f.Equal(t) {
		return f
	}
	return f.Add(time.Hour)
}

// IsHourAligned reports whether t sits exactly on an hour boundary.
func IsHourAligned(t time.Time) bool {
	return t.Equal(FloorHour(t))
}

// HourlyGrid returns every hour from start to end inclusive. Both ends must be hour aligned.
func HourlyGrid(start, end time.Time) ([]time.Time, error) {
	if !IsHourAligned(start) || !IsHourAligned(end) {
		return nil, fmt.Errorf("grid bounds %s and %s, %w", start, end, ErrNotHourAligned)
	}
	if start.After(end) {
		return nil, fmt.Errorf("start %s, end %s, %w", start, end, ErrStartAfterEnd)
	}
	start, end = start.UTC(), end.UTC()

	n := int(end.Sub(start)/time.Hour) + 1
	grid := make([]time.Time, n)
	for i := 0; i < n; i++ {
		grid[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return grid, nil
}

// HourIndex returns the number of whole hours between start and t. t must not be before start
// for the result to be a valid grid index.
func HourIndex(start, t time.Time) int {
	return int(t.Sub(start) / time.Hour)
}

// TimeDataset represents an hourly series storing a slice of time points and values.
// Both must be of the same length.
type TimeDataset struct {
	T []time.Time
	Y []float64
}

// NewUnivariateDataset returns an instance of a TimeDataset given a time and value slice. The
// time slice must be strictly increasing.
func NewUnivariateDataset(t []time.Time, y []float64) (*TimeDataset, error) {
	if len(y) == 0 {
		return nil, ErrNoData
	}
	if len(t) != len(y) {
		return nil, fmt.Errorf(
			"time feature has length of %d, but values has a length of %d, %w",
			len(t), len(y), ErrDatasetLenMismatch,
		)
	}

	var lastT time.Time
	for i := 0; i < len(t); i++ {
		currT := t[i]
		if i > 0 && !currT.After(lastT) {
			return nil, fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMontonic)
		}
		lastT = currT
	}

	tSeries := make([]time.Time, len(t))
	ySeries := make([]float64, len(t))
	copy(tSeries, t)
	copy(ySeries, y)
	td := &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}

	return td, nil
}

func (td *TimeDataset) Copy() *TimeDataset {
	tSeries := make([]time.Time, len(td.T))
	ySeries := make([]float64, len(td.T))
	copy(tSeries, td.T)
	copy(ySeries, td.Y)
	return &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}
}

// Len returns the number of points in the dataset
func (td *TimeDataset) Len() int {
	if td == nil {
		return 0
	}
	return len(td.T)
}
