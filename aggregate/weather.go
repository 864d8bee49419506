package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/aouyang1/go-ridedemand/timedataset"
)

// WeatherObservation is one hourly weather reading. Missing readings are NaN.
type WeatherObservation struct {
	T             time.Time
	Temperature   float64
	Precipitation float64
	Windspeed     float64
	WeatherCode   float64
}

// WeatherHourly holds hourly weather columns in ascending timestamp order with no duplicates.
type WeatherHourly struct {
	T             []time.Time
	Temperature   []float64
	Precipitation []float64
	Windspeed     []float64
	WeatherCode   []float64
}

// Len returns the number of hours in the series
func (wh *WeatherHourly) Len() int {
	if wh == nil {
		return 0
	}
	return len(wh.T)
}

// Index maps each hour to its row
func (wh *WeatherHourly) Index() map[int64]int {
	idx := make(map[int64]int, len(wh.T))
	for i, t := range wh.T {
		idx[HourKey(t)] = i
	}
	return idx
}

// WeatherHourlyFromObservations sorts observations by time and rejects readings that are not on
// an hour boundary or that repeat an hour.
func WeatherHourlyFromObservations(obs []WeatherObservation) (*WeatherHourly, error) {
	sorted := make([]WeatherObservation, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].T.Before(sorted[j].T)
	})

	n := len(sorted)
	wh := &WeatherHourly{
		T:             make([]time.Time, n),
		Temperature:   make([]float64, n),
		Precipitation: make([]float64, n),
		Windspeed:     make([]float64, n),
		WeatherCode:   make([]float64, n),
	}
	for i, o := range sorted {
		if !timedataset.IsHourAligned(o.T) {
			return nil, fmt.Errorf("weather reading at %s, %w", o.T, timedataset.ErrNotHourAligned)
		}
		if i > 0 && o.T.Equal(sorted[i-1].T) {
			return nil, fmt.Errorf("weather reading at %s, %w", o.T.UTC(), ErrDuplicateTimestamp)
		}
		wh.T[i] = o.T.UTC()
		wh.Temperature[i] = o.Temperature
		wh.Precipitation[i] = o.Precipitation
		wh.Windspeed[i] = o.Windspeed
		wh.WeatherCode[i] = o.WeatherCode
	}
	return wh, nil
}
