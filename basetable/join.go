package basetable

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/aouyang1/go-ridedemand/aggregate"
	"github.com/aouyang1/go-ridedemand/timedataset"
)

// JoinOptions controls how the join treats hours it cannot fill.
type JoinOptions struct {
	// AllowWeatherGaps keeps hours without weather as NaN instead of failing the join
	AllowWeatherGaps bool
}

// Join builds the table over every hour between the first and last taxi hour. Hours without
// taxi rows count zero rides, hours without events count zero events. Hours without weather
// fail the join with a *CoverageGapError unless gaps are allowed.
func Join(taxi *aggregate.TaxiHourly, weather *aggregate.WeatherHourly, events *aggregate.EventsHourly, opt JoinOptions) (*Table, error) {
	if taxi.Len() == 0 {
		return nil, fmt.Errorf("joining base table, %w", aggregate.ErrNoData)
	}
	if len(taxi.T) != len(taxi.Rides) {
		return nil, fmt.Errorf("taxi rides, %w", ErrColumnLength)
	}
	if err := timedataset.TimeSlice(taxi.T).ValidateIncreasing(); err != nil {
		return nil, fmt.Errorf("taxi timestamps, %w", err)
	}

	start, end := taxi.T[0], taxi.T[len(taxi.T)-1]
	n := timedataset.HourIndex(start, end) + 1
	tbl := NewTable(start, n)

	for i, t := range taxi.T {
		tbl.Rides[timedataset.HourIndex(start, t)] = taxi.Rides[i]
	}

	gapErr := &CoverageGapError{}
	var weatherIdx map[int64]int
	if weather != nil {
		weatherIdx = weather.Index()
	}
	for i, t := range tbl.T {
		j, exists := weatherIdx[aggregate.HourKey(t)]
		if !exists {
			tbl.Temperature[i] = math.NaN()
			tbl.Precipitation[i] = math.NaN()
			tbl.Windspeed[i] = math.NaN()
			tbl.WeatherCode[i] = math.NaN()

			gapErr.Missing++
			if len(gapErr.First) < maxReportedGaps {
				gapErr.First = append(gapErr.First, t)
			}
			continue
		}
		tbl.Temperature[i] = weather.Temperature[j]
		tbl.Precipitation[i] = weather.Precipitation[j]
		tbl.Windspeed[i] = weather.Windspeed[j]
		tbl.WeatherCode[i] = weather.WeatherCode[j]
	}

	if events != nil {
		eventIdx := events.Index()
		for i, t := range tbl.T {
			if j, exists := eventIdx[aggregate.HourKey(t)]; exists {
				tbl.EventCount[i] = events.EventCount[j]
				tbl.HasEvent[i] = events.HasEvent[j]
			}
		}
	}

	if gapErr.Missing > 0 {
		if !opt.AllowWeatherGaps {
			return nil, gapErr
		}
		tbl.WeatherGaps = gapErr.Missing
		slog.Warn("base table has hours without weather", "missing", gapErr.Missing, "first", gapErr.First)
	}

	if err := tbl.Validate(); err != nil {
		return nil, fmt.Errorf("joined base table, %w", err)
	}
	slog.Info("joined base table", "hours", tbl.Len(), "start", start, "end", end)
	return tbl, nil
}
