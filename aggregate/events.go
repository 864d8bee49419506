package aggregate

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/aouyang1/go-ridedemand/timedataset"
)

// Interval is an event active over the closed range [Start, End]. A zero End means the event
// is a single instant at Start.
type Interval struct {
	Start time.Time
	End   time.Time
}

// EventsHourly holds the number of active events for every hour of a contiguous grid.
type EventsHourly struct {
	T          []time.Time
	EventCount []int64
	HasEvent   []int64
}

// Len returns the number of hours in the series
func (eh *EventsHourly) Len() int {
	if eh == nil {
		return 0
	}
	return len(eh.T)
}

// Index maps each hour to its row
func (eh *EventsHourly) Index() map[int64]int {
	idx := make(map[int64]int, len(eh.T))
	for i, t := range eh.T {
		idx[HourKey(t)] = i
	}
	return idx
}

// EventsHourlyFromIntervals counts for each hour h in [start, end] the intervals with
// Start <= h <= End. Intervals ending before they start are clamped to their start instant and
// their number is returned. Intervals reaching outside the grid are clipped to it.
func EventsHourlyFromIntervals(intervals []Interval, start, end time.Time) (*EventsHourly, int, error) {
	grid, err := timedataset.HourlyGrid(start, end)
	if err != nil {
		return nil, 0, fmt.Errorf("events grid, %w", err)
	}
	gridStart, gridEnd := grid[0], grid[len(grid)-1]

	// +1 at the first covered hour, -1 after the last
	delta := make([]int64, len(grid)+1)
	var clamped int
	for _, iv := range intervals {
		s, e := iv.Start, iv.End
		if e.IsZero() {
			e = s
		}
		if e.Before(s) {
			clamped++
			e = s
		}

		first := timedataset.CeilHour(s)
		last := timedataset.FloorHour(e)
		if first.After(last) || last.Before(gridStart) || first.After(gridEnd) {
			continue
		}
		if first.Before(gridStart) {
			first = gridStart
		}
		if last.After(gridEnd) {
			last = gridEnd
		}
		delta[timedataset.HourIndex(gridStart, first)]++
		delta[timedataset.HourIndex(gridStart, last)+1]--
	}
	if clamped > 0 {
		slog.Warn("clamped events ending before they start", "count", clamped)
	}

	eh := &EventsHourly{
		T:          grid,
		EventCount: make([]int64, len(grid)),
		HasEvent:   make([]int64, len(grid)),
	}
	var running int64
	for i := range grid {
		running += delta[i]
		eh.EventCount[i] = running
		if running > 0 {
			eh.HasEvent[i] = 1
		}
	}
	return eh, clamped, nil
}
