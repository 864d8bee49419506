package aggregate

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aouyang1/go-ridedemand/timedataset"
)

// TaxiHourly holds hourly ride counts in ascending timestamp order with no duplicates.
type TaxiHourly struct {
	T     []time.Time
	Rides []int64
}

// Len returns the number of hours in the series
func (th *TaxiHourly) Len() int {
	if th == nil {
		return 0
	}
	return len(th.T)
}

// Total returns the sum of all rides
func (th *TaxiHourly) Total() int64 {
	var total int64
	for _, r := range th.Rides {
		total += r
	}
	return total
}

// Dataset returns the ride counts as a float valued hourly dataset
func (th *TaxiHourly) Dataset() (*timedataset.TimeDataset, error) {
	y := make([]float64, len(th.Rides))
	for i, r := range th.Rides {
		y[i] = float64(r)
	}
	return timedataset.NewUnivariateDataset(th.T, y)
}

func fromCounts(counts map[int64]int64) *TaxiHourly {
	keys := make([]int64, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	th := &TaxiHourly{
		T:     make([]time.Time, len(keys)),
		Rides: make([]int64, len(keys)),
	}
	for i, k := range keys {
		th.T[i] = keyHour(k)
		th.Rides[i] = counts[k]
	}
	return th
}

// TaxiHourlyFromPickups floors each pickup to its hour and counts pickups per hour. Pickups
// outside of the window are dropped and their number returned.
func TaxiHourlyFromPickups(pickups []time.Time, w Window) (*TaxiHourly, int) {
	counts := make(map[int64]int64)
	var dropped int
	for _, p := range pickups {
		if !w.Contains(p) {
			dropped++
			continue
		}
		counts[HourKey(timedataset.FloorHour(p))]++
	}
	return fromCounts(counts), dropped
}

// MergeTaxiPartitions sums ride counts of identical hours across partitions. Nil partitions are
// missing and contribute nothing. Returns ErrNoData if no partition contributed any hour.
func MergeTaxiPartitions(parts []*TaxiHourly) (*TaxiHourly, error) {
	counts := make(map[int64]int64)
	var usable int
	for _, part := range parts {
		if part == nil {
			continue
		}
		if len(part.T) != len(part.Rides) {
			return nil, fmt.Errorf(
				"partition has %d timestamps and %d counts, %w",
				len(part.T), len(part.Rides), ErrSchemaViolation,
			)
		}
		usable++
		for i, t := range part.T {
			counts[HourKey(timedataset.FloorHour(t))] += part.Rides[i]
		}
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("%d of %d taxi partitions usable, %w", usable, len(parts), ErrNoData)
	}

	merged := fromCounts(counts)
	slog.Debug("merged taxi partitions", "partitions", usable, "hours", merged.Len())
	return merged, nil
}
