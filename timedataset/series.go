package timedataset

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Series is a sequence of values aligned to a contiguous hourly grid. Undefined values are NaN.
type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

// Lag returns a new series where out[i] = s[i-k]. The first k points are NaN; values are never
// borrowed from the end of the series.
func (s Series) Lag(k int) Series {
	out := make(Series, len(s))
	for i := range out {
		if i-k < 0 || i-k >= len(s) {
			out[i] = math.NaN()
			continue
		}
		out[i] = s[i-k]
	}
	return out
}

// Diff returns out[i] = s[i] - s[i-k], NaN for the first k points.
func (s Series) Diff(k int) Series {
	out := s.Lag(k)
	for i := range out {
		if math.IsNaN(out[i]) {
			continue
		}
		out[i] = s[i] - out[i]
	}
	return out
}

// RollingMean returns the trailing mean over w points. When includeCurrent is false the window
// ends at i-1, so out[i] never depends on s[i]. Points without a full window are NaN.
func (s Series) RollingMean(w int, includeCurrent bool) Series {
	out := make(Series, len(s))
	if w <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	shift := 1
	if includeCurrent {
		shift = 0
	}

	// running sum over s[lo:hi) where hi = i+1-shift
	var sum float64
	var nanCnt int
	for i := range out {
		hi := i + 1 - shift
		lo := hi - w
		if hi-1 >= 0 {
			v := s[hi-1]
			if math.IsNaN(v) {
				nanCnt++
			} else {
				sum += v
			}
		}
		if lo-1 >= 0 {
			v := s[lo-1]
			if math.IsNaN(v) {
				nanCnt--
			} else {
				sum -= v
			}
		}
		if lo < 0 || nanCnt > 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(w)
	}
	return out
}

// Map applies lambda to every point and returns a new series.
func (s Series) Map(lambda func(float64) float64) Series {
	out := make(Series, len(s))
	for i, v := range s {
		out[i] = lambda(v)
	}
	return out
}
