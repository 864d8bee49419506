package store

import (
	"math"
	"testing"
	"time"

	"github.com/aouyang1/go-ridedemand/aggregate"
	"github.com/aouyang1/go-ridedemand/basetable"
	"github.com/aouyang1/go-ridedemand/calendar"
	"github.com/aouyang1/go-ridedemand/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC)

func hr(h int) time.Time {
	return start.Add(time.Duration(h) * time.Hour)
}

func testStore(t *testing.T) *Store {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func assertFloats(t *testing.T, expected, actual []float64, msg string) {
	require.Len(t, actual, len(expected), msg)
	for i := range expected {
		if math.IsNaN(expected[i]) {
			assert.True(t, math.IsNaN(actual[i]), "%s index %d", msg, i)
			continue
		}
		assert.InDelta(t, expected[i], actual[i], 1e-9, "%s index %d", msg, i)
	}
}

func TestNew(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrNoDir)
}

func TestTaxiRoundTrip(t *testing.T) {
	s := testStore(t)
	th := &aggregate.TaxiHourly{
		T:     []time.Time{hr(0), hr(1), hr(5)},
		Rides: []int64{120, 0, 33},
	}
	require.NoError(t, s.WriteTaxi(th))
	assert.True(t, s.Exists(TaxiFile))

	res, err := s.ReadTaxi()
	require.NoError(t, err)
	assert.Equal(t, th, res)
}

func TestWeatherRoundTrip(t *testing.T) {
	s := testStore(t)
	wh := &aggregate.WeatherHourly{
		T:             []time.Time{hr(0), hr(1)},
		Temperature:   []float64{-3.2, math.NaN()},
		Precipitation: []float64{0, 1.25},
		Windspeed:     []float64{12.5, 8},
		WeatherCode:   []float64{3, 61},
	}
	require.NoError(t, s.WriteWeather(wh))

	res, err := s.ReadWeather()
	require.NoError(t, err)
	assert.Equal(t, wh.T, res.T)
	assertFloats(t, wh.Temperature, res.Temperature, "temperature")
	assertFloats(t, wh.Precipitation, res.Precipitation, "precipitation")
	assertFloats(t, wh.Windspeed, res.Windspeed, "windspeed")
	assertFloats(t, wh.WeatherCode, res.WeatherCode, "weathercode")
}

func TestEventsRoundTrip(t *testing.T) {
	s := testStore(t)
	eh, _, err := aggregate.EventsHourlyFromIntervals(
		[]aggregate.Interval{{Start: hr(1), End: hr(2)}},
		hr(0), hr(3),
	)
	require.NoError(t, err)
	require.NoError(t, s.WriteEvents(eh))

	res, err := s.ReadEvents()
	require.NoError(t, err)
	assert.Equal(t, eh, res)
}

func testBase(n int) *basetable.Table {
	tbl := basetable.NewTable(start, n)
	for i := 0; i < n; i++ {
		tbl.Rides[i] = int64(100 + (i*17)%50)
		tbl.Temperature[i] = float64(i) / 4
		tbl.Precipitation[i] = float64(i%3) / 10
		tbl.Windspeed[i] = 7
		tbl.WeatherCode[i] = 2
		if i%5 == 0 {
			tbl.EventCount[i] = 2
			tbl.HasEvent[i] = 1
		}
	}
	tbl.Temperature[3] = math.NaN()
	return tbl
}

func TestBaseRoundTrip(t *testing.T) {
	s := testStore(t)
	tbl := testBase(10)
	require.NoError(t, s.WriteBase(tbl))

	res, err := s.ReadBase()
	require.NoError(t, err)
	assert.Equal(t, tbl.T, res.T)
	assert.Equal(t, tbl.Rides, res.Rides)
	assert.Equal(t, tbl.EventCount, res.EventCount)
	assert.Equal(t, tbl.HasEvent, res.HasEvent)
	assertFloats(t, tbl.Temperature, res.Temperature, "temperature")
	assert.Equal(t, 1, res.WeatherGaps)
}

func TestFeaturesRoundTrip(t *testing.T) {
	s := testStore(t)
	cal, err := calendar.New(time.FixedZone("EST", -5*60*60), calendar.USFederal, 2024, 2024)
	require.NoError(t, err)

	ft, err := feature.Derive(testBase(200), cal, feature.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, s.WriteFeatures(ft))

	res, err := s.ReadFeatures()
	require.NoError(t, err)
	require.Equal(t, ft.Len(), res.Len())
	assert.Equal(t, ft.Base.T, res.Base.T)
	assert.Equal(t, ft.Base.Rides, res.Base.Rides)

	for _, f := range ft.Features.Labels().Labels() {
		expected, _ := ft.Features.Get(f)
		actual, exists := res.Features.Get(f)
		require.True(t, exists, f.String())
		assertFloats(t, expected, actual, f.String())
	}
	assert.Equal(t, ft.Features.Labels().Len(), res.Features.Labels().Len())
}

func TestReadMissing(t *testing.T) {
	s := testStore(t)

	_, err := s.ReadTaxi()
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.ReadFeatures()
	assert.ErrorIs(t, err, ErrNotFound)
}
