package timedataset

import (
	"fmt"
	"math"
	"sort"
	"time"
)

type TimeSlice []time.Time

func (t TimeSlice) StartTime() time.Time {
	var startTime time.Time
	if len(t) < 1 {
		return startTime
	}
	return t[0]
}

func (t TimeSlice) EndTime() time.Time {
	var lastTime time.Time
	if len(t) < 1 {
		return lastTime
	}

	lastTime = t[len(t)-1]
	return lastTime
}

func (t TimeSlice) EstimateFreq() (time.Duration, error) {
	if len(t) < 2 {
		return 0, ErrCannotInferFreq
	}

	frequencies := make(map[time.Duration]int)
	for i := 1; i < len(t); i++ {
		delta := t[i].Sub(t[i-1])
		frequencies[delta] += 1
	}

	var maxCnt int
	maxDelta := time.Duration(math.MaxInt64)

	for delta, cnt := range frequencies {
		if cnt > maxCnt || (cnt == maxCnt && delta < maxDelta) {
			maxCnt = cnt
			maxDelta = delta
		}
	}
	return maxDelta, nil
}

// ValidateIncreasing checks that every timestamp is hour aligned and strictly after the previous
// one. Repeated timestamps are reported as ErrDuplicateTimestamp.
func (t TimeSlice) ValidateIncreasing() error {
	for i := 0; i < len(t); i++ {
		if !IsHourAligned(t[i]) {
			return fmt.Errorf("at index %d (%s), %w", i, t[i], ErrNotHourAligned)
		}
		if i == 0 {
			continue
		}
		if t[i].Equal(t[i-1]) {
			return fmt.Errorf("at index %d (%s), %w", i, t[i], ErrDuplicateTimestamp)
		}
		if t[i].Before(t[i-1]) {
			return fmt.Errorf("at index %d (%s), %w", i, t[i], ErrNonMontonic)
		}
	}
	return nil
}

// ValidateContiguous checks the hourly grid invariant: strictly increasing by exactly one hour
// between consecutive points.
func (t TimeSlice) ValidateContiguous() error {
	if err := t.ValidateIncreasing(); err != nil {
		return err
	}
	for i := 1; i < len(t); i++ {
		if step := t[i].Sub(t[i-1]); step != time.Hour {
			return fmt.Errorf("between %s and %s (%s), %w", t[i-1], t[i], step, ErrHourGap)
		}
	}
	return nil
}

// Search returns the index of the first timestamp at or after tPnt. The slice must be sorted.
func (t TimeSlice) Search(tPnt time.Time) int {
	return sort.Search(len(t), func(i int) bool {
		return !t[i].Before(tPnt)
	})
}
