package timedataset

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func assertSeries(t *testing.T, expected, actual Series) {
	t.Helper()
	if !assert.Len(t, actual, len(expected)) {
		return
	}
	for i := range expected {
		if math.IsNaN(expected[i]) {
			assert.True(t, math.IsNaN(actual[i]), "index %d expected NaN, got %f", i, actual[i])
			continue
		}
		assert.InDelta(t, expected[i], actual[i], 1e-9, "index %d", i)
	}
}

func TestSeriesLag(t *testing.T) {
	nan := math.NaN()
	s := Series{1, 2, 3, 4, 5}

	testData := map[string]struct {
		k        int
		expected Series
	}{
		"zero lag":      {0, Series{1, 2, 3, 4, 5}},
		"lag 1":         {1, Series{nan, 1, 2, 3, 4}},
		"lag 3":         {3, Series{nan, nan, nan, 1, 2}},
		"lag past size": {7, Series{nan, nan, nan, nan, nan}},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assertSeries(t, td.expected, s.Lag(td.k))
		})
	}
}

func TestSeriesDiff(t *testing.T) {
	nan := math.NaN()
	s := Series{1, 4, 9, 16, 25}
	assertSeries(t, Series{nan, 3, 5, 7, 9}, s.Diff(1))
	assertSeries(t, Series{nan, nan, 8, 12, 16}, s.Diff(2))
}

func TestSeriesRollingMean(t *testing.T) {
	nan := math.NaN()
	s := Series{2, 4, 6, 8, 10}

	testData := map[string]struct {
		w              int
		includeCurrent bool
		expected       Series
	}{
		"exclusive window of 1": {1, false, Series{nan, 2, 4, 6, 8}},
		"exclusive window of 3": {3, false, Series{nan, nan, nan, 4, 6}},
		"inclusive window of 3": {3, true, Series{nan, nan, 4, 6, 8}},
		"inclusive window of 1": {1, true, Series{2, 4, 6, 8, 10}},
		"window too large":      {6, false, Series{nan, nan, nan, nan, nan}},
		"zero window":           {0, false, Series{nan, nan, nan, nan, nan}},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assertSeries(t, td.expected, s.RollingMean(td.w, td.includeCurrent))
		})
	}
}

func TestSeriesRollingMeanSkipsUndefined(t *testing.T) {
	nan := math.NaN()
	s := Series{nan, 4, 6, 8, 10}
	assertSeries(t, Series{nan, nan, nan, 5, 7}, s.RollingMean(2, false))
}

func TestSeriesRollingMeanExcludesCurrent(t *testing.T) {
	y := GenerateCountNoise(GenerateDailyWave(GenerateHourlyT(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), 72), 100, 50, 18), 5, 7)
	before := y.RollingMean(24, false)

	// perturbing the current value must not change the feature at that row
	for _, i := range []int{24, 40, 71} {
		mod := make(Series, len(y))
		copy(mod, y)
		mod[i] += 1000
		after := mod.RollingMean(24, false)
		assert.Equal(t, before[i], after[i], "index %d", i)
	}
}
