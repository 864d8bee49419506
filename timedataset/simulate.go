package timedataset

import (
	"math"
	"math/rand/v2"
	"time"
)

// GenerateHourlyT returns n consecutive hours starting at the hour containing start.
func GenerateHourlyT(start time.Time, n int) []time.Time {
	t := make([]time.Time, 0, n)
	ct := FloorHour(start)
	for i := 0; i < n; i++ {
		t = append(t, ct.Add(time.Duration(i)*time.Hour))
	}
	return t
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

// GenerateDailyWave returns a demand-like series with a daily cycle peaking at peakHour (UTC).
func GenerateDailyWave(t []time.Time, base, amp float64, peakHour int) Series {
	n := len(t)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		hod := float64(t[i].Hour() - peakHour)
		val := base + amp*math.Cos(2.0*math.Pi*hod/24.0)
		y = append(y, math.Round(val))
	}
	return Series(y)
}

// GenerateCountNoise adds non-negative integer noise of at most scale to every point.
func GenerateCountNoise(s Series, scale int, seed uint64) Series {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for i := range s {
		s[i] += float64(rng.IntN(scale + 1))
	}
	return s
}
