package feature

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/aouyang1/go-ridedemand/basetable"
	"github.com/aouyang1/go-ridedemand/calendar"
	"github.com/aouyang1/go-ridedemand/timedataset"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrNoCalendar   = errors.New("no calendar for calendar features")
	ErrRowMismatch  = errors.New("feature rows do not match base table rows")
	ErrBadThreshold = errors.New("heavy event threshold must be positive")
	ErrEmptyBase    = errors.New("empty base table")
)

const defaultHeavyEventThreshold = 5

var (
	Lags           = []int{1, 24, 168}
	RollingWindows = []int{3, 24}
	Diffs          = []int{1, 24}
)

// ServingColumns is the ordered column list the demand model consumes. Diffs read the current
// hour's rides and stay out of it; they are only persisted with the table.
var ServingColumns = []Feature{
	NewLag(1), NewLag(24), NewLag(168),
	NewRolling(3), NewRolling(24),
	Temperature, Precipitation, Windspeed, IsRain,
	EventCount, HasEvent, HeavyEvent, LogEventCount,
	Hour, DayOfWeek, IsWeekend, IsHoliday,
}

// Options configures feature derivation
type Options struct {
	// RollingIncludeCurrent averages the window ending at the current hour instead of the
	// previous one. Only for parity with models trained on the inclusive window.
	RollingIncludeCurrent bool

	// HeavyEventThreshold is the event count at which an hour counts as a heavy event hour
	HeavyEventThreshold int64
}

func DefaultOptions() Options {
	return Options{HeavyEventThreshold: defaultHeavyEventThreshold}
}

// Table is the base table together with its derived feature columns. Undefined values, such as
// the first k rows of lag_k, are NaN.
type Table struct {
	Base     *basetable.Table
	Features *Set
}

// NewTable pairs a base table with an already derived feature set
func NewTable(base *basetable.Table, features *Set) (*Table, error) {
	if base.Len() != features.Len() {
		return nil, fmt.Errorf(
			"base has %d rows, features have %d, %w",
			base.Len(), features.Len(), ErrRowMismatch,
		)
	}
	return &Table{Base: base, Features: features}, nil
}

// Derive computes every feature column from the base table. Lag, rolling and diff columns at row
// t only read rides at rows t and earlier.
func Derive(base *basetable.Table, cal *calendar.Calendar, opt Options) (*Table, error) {
	if base.Len() == 0 {
		return nil, ErrEmptyBase
	}
	if cal == nil {
		return nil, ErrNoCalendar
	}
	if opt.HeavyEventThreshold <= 0 {
		return nil, fmt.Errorf("threshold %d, %w", opt.HeavyEventThreshold, ErrBadThreshold)
	}
	if err := base.Validate(); err != nil {
		return nil, fmt.Errorf("deriving features, %w", err)
	}

	n := base.Len()
	s := NewSet()

	rides := make(timedataset.Series, n)
	for i, r := range base.Rides {
		rides[i] = float64(r)
	}
	for _, k := range Lags {
		s.Set(NewLag(k), rides.Lag(k))
	}
	for _, w := range RollingWindows {
		s.Set(NewRolling(w), rides.RollingMean(w, opt.RollingIncludeCurrent))
	}
	for _, k := range Diffs {
		s.Set(NewDiff(k), rides.Diff(k))
	}

	calendarFeatures(s, base, cal)
	weatherFeatures(s, base)
	eventFeatures(s, base, opt.HeavyEventThreshold)

	slog.Info("derived features", "rows", n, "columns", s.Labels().Len(), "rolling_include_current", opt.RollingIncludeCurrent)
	return &Table{Base: base, Features: s}, nil
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func calendarFeatures(s *Set, base *basetable.Table, cal *calendar.Calendar) {
	n := base.Len()
	year := make([]float64, n)
	month := make([]float64, n)
	day := make([]float64, n)
	hour := make([]float64, n)
	dow := make([]float64, n)
	weekend := make([]float64, n)
	holiday := make([]float64, n)
	for i, t := range base.T {
		local := cal.Local(t)
		year[i] = float64(local.Year())
		month[i] = float64(local.Month())
		day[i] = float64(local.Day())
		hour[i] = float64(local.Hour())
		dow[i] = float64(cal.DayOfWeek(t))
		weekend[i] = boolFloat(cal.IsWeekend(t))
		holiday[i] = boolFloat(cal.IsHoliday(t))
	}
	s.Set(Year, year).
		Set(Month, month).
		Set(Day, day).
		Set(Hour, hour).
		Set(DayOfWeek, dow).
		Set(IsWeekend, weekend).
		Set(IsHoliday, holiday)
}

func weatherFeatures(s *Set, base *basetable.Table) {
	n := base.Len()
	isRain := make([]float64, n)
	for i, p := range base.Precipitation {
		if math.IsNaN(p) {
			isRain[i] = math.NaN()
			continue
		}
		isRain[i] = boolFloat(p > 0)
	}
	s.Set(Temperature, clone(base.Temperature)).
		Set(Precipitation, clone(base.Precipitation)).
		Set(Windspeed, clone(base.Windspeed)).
		Set(WeatherCode, clone(base.WeatherCode)).
		Set(IsRain, isRain)
}

func eventFeatures(s *Set, base *basetable.Table, threshold int64) {
	n := base.Len()
	count := make([]float64, n)
	has := make([]float64, n)
	logCount := make([]float64, n)
	heavy := make([]float64, n)
	for i, c := range base.EventCount {
		count[i] = float64(c)
		has[i] = float64(base.HasEvent[i])
		logCount[i] = math.Log1p(float64(c))
		heavy[i] = boolFloat(c >= threshold)
	}
	s.Set(EventCount, count).
		Set(HasEvent, has).
		Set(LogEventCount, logCount).
		Set(HeavyEvent, heavy)
}

func clone(data []float64) []float64 {
	res := make([]float64, len(data))
	copy(res, data)
	return res
}

// Len returns the number of rows in the table
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.Base.Len()
}

// Complete reports whether row i has every requested feature defined
func (t *Table) Complete(i int, feats []Feature) bool {
	return t.Features.Complete(i, feats)
}

// Matrix returns the feature matrix of the given rows in the requested column order
func (t *Table) Matrix(feats []Feature, rows []int) (*mat.Dense, error) {
	return t.Features.Matrix(feats, rows)
}

// Target returns the rides of the given rows
func (t *Table) Target(rows []int) []float64 {
	y := make([]float64, len(rows))
	for i, r := range rows {
		y[i] = float64(t.Base.Rides[r])
	}
	return y
}
