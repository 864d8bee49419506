// Package basetable joins the hourly taxi, weather and event series onto one contiguous hourly
// grid.
package basetable

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aouyang1/go-ridedemand/timedataset"
)

var (
	ErrCoverageGap      = errors.New("weather does not cover every hour")
	ErrColumnLength     = errors.New("column length does not match timestamps")
	ErrNegativeCount    = errors.New("negative count")
	ErrHasEventMismatch = errors.New("has_event does not match event_count")
)

const maxReportedGaps = 5

// CoverageGapError lists the hours of the grid without a weather reading.
type CoverageGapError struct {
	Missing int
	First   []time.Time
}

func (e *CoverageGapError) Error() string {
	return fmt.Sprintf("%d hours without weather, first %v, %s", e.Missing, e.First, ErrCoverageGap)
}

func (e *CoverageGapError) Unwrap() error {
	return ErrCoverageGap
}

// Row is a single hour of the table
type Row struct {
	T             time.Time
	Rides         int64
	Temperature   float64
	Precipitation float64
	Windspeed     float64
	WeatherCode   float64
	EventCount    int64
	HasEvent      int64
}

// Table is one row per hour between the first and last observed taxi hour, ascending and
// contiguous. Hours without weather hold NaN weather values.
type Table struct {
	T             []time.Time
	Rides         []int64
	Temperature   []float64
	Precipitation []float64
	Windspeed     []float64
	WeatherCode   []float64
	EventCount    []int64
	HasEvent      []int64

	// WeatherGaps is the number of hours without a weather reading
	WeatherGaps int
}

// NewTable allocates a table of n hours starting at start
func NewTable(start time.Time, n int) *Table {
	tbl := &Table{
		T:             make([]time.Time, n),
		Rides:         make([]int64, n),
		Temperature:   make([]float64, n),
		Precipitation: make([]float64, n),
		Windspeed:     make([]float64, n),
		WeatherCode:   make([]float64, n),
		EventCount:    make([]int64, n),
		HasEvent:      make([]int64, n),
	}
	start = timedataset.FloorHour(start)
	for i := 0; i < n; i++ {
		tbl.T[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return tbl
}

// Len returns the number of hours in the table
func (tbl *Table) Len() int {
	if tbl == nil {
		return 0
	}
	return len(tbl.T)
}

// Row returns the i-th hour of the table
func (tbl *Table) Row(i int) Row {
	return Row{
		T:             tbl.T[i],
		Rides:         tbl.Rides[i],
		Temperature:   tbl.Temperature[i],
		Precipitation: tbl.Precipitation[i],
		Windspeed:     tbl.Windspeed[i],
		WeatherCode:   tbl.WeatherCode[i],
		EventCount:    tbl.EventCount[i],
		HasEvent:      tbl.HasEvent[i],
	}
}

// SetRow overwrites the i-th hour of the table
func (tbl *Table) SetRow(i int, r Row) {
	tbl.T[i] = r.T
	tbl.Rides[i] = r.Rides
	tbl.Temperature[i] = r.Temperature
	tbl.Precipitation[i] = r.Precipitation
	tbl.Windspeed[i] = r.Windspeed
	tbl.WeatherCode[i] = r.WeatherCode
	tbl.EventCount[i] = r.EventCount
	tbl.HasEvent[i] = r.HasEvent
}

// HasWeather reports whether the i-th hour has every weather reading
func (tbl *Table) HasWeather(i int) bool {
	return !math.IsNaN(tbl.Temperature[i]) &&
		!math.IsNaN(tbl.Precipitation[i]) &&
		!math.IsNaN(tbl.Windspeed[i]) &&
		!math.IsNaN(tbl.WeatherCode[i])
}

// Validate checks that the table is ascending and contiguous by hour with consistent event
// columns and non-negative counts.
func (tbl *Table) Validate() error {
	n := len(tbl.T)
	for name, l := range map[string]int{
		"rides":          len(tbl.Rides),
		"temperature_2m": len(tbl.Temperature),
		"precipitation":  len(tbl.Precipitation),
		"windspeed_10m":  len(tbl.Windspeed),
		"weathercode":    len(tbl.WeatherCode),
		"event_count":    len(tbl.EventCount),
		"has_event":      len(tbl.HasEvent),
	} {
		if l != n {
			return fmt.Errorf("%s has %d values for %d timestamps, %w", name, l, n, ErrColumnLength)
		}
	}

	if err := timedataset.TimeSlice(tbl.T).ValidateContiguous(); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		if tbl.Rides[i] < 0 {
			return fmt.Errorf("rides at %s, %w", tbl.T[i], ErrNegativeCount)
		}
		if tbl.EventCount[i] < 0 {
			return fmt.Errorf("event_count at %s, %w", tbl.T[i], ErrNegativeCount)
		}
		hasEvent := tbl.EventCount[i] > 0
		if hasEvent != (tbl.HasEvent[i] == 1) || (tbl.HasEvent[i] != 0 && tbl.HasEvent[i] != 1) {
			return fmt.Errorf("at %s, %w", tbl.T[i], ErrHasEventMismatch)
		}
	}
	return nil
}
