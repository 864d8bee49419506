package store

import (
	"fmt"
	"time"

	"github.com/aouyang1/go-ridedemand/aggregate"
	"github.com/aouyang1/go-ridedemand/basetable"
	"github.com/aouyang1/go-ridedemand/feature"
)

type TaxiRow struct {
	Timestamp int64 `parquet:"name=timestamp, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Rides     int64 `parquet:"name=rides, type=INT64"`
}

type WeatherRow struct {
	Timestamp     int64    `parquet:"name=timestamp, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Temperature   *float64 `parquet:"name=temperature_2m, type=DOUBLE, repetitiontype=OPTIONAL"`
	Precipitation *float64 `parquet:"name=precipitation, type=DOUBLE, repetitiontype=OPTIONAL"`
	Windspeed     *float64 `parquet:"name=windspeed_10m, type=DOUBLE, repetitiontype=OPTIONAL"`
	WeatherCode   *float64 `parquet:"name=weathercode, type=DOUBLE, repetitiontype=OPTIONAL"`
}

type EventsRow struct {
	Timestamp  int64 `parquet:"name=timestamp, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	EventCount int64 `parquet:"name=event_count, type=INT64"`
	HasEvent   int64 `parquet:"name=has_event, type=INT64"`
}

// BaseRow is one hour of the joined table with its derived feature columns. Feature columns are
// null in the base table file.
type BaseRow struct {
	Timestamp     int64    `parquet:"name=timestamp, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Rides         int64    `parquet:"name=rides, type=INT64"`
	Temperature   *float64 `parquet:"name=temperature_2m, type=DOUBLE, repetitiontype=OPTIONAL"`
	Precipitation *float64 `parquet:"name=precipitation, type=DOUBLE, repetitiontype=OPTIONAL"`
	Windspeed     *float64 `parquet:"name=windspeed_10m, type=DOUBLE, repetitiontype=OPTIONAL"`
	WeatherCode   *float64 `parquet:"name=weathercode, type=DOUBLE, repetitiontype=OPTIONAL"`
	EventCount    int64    `parquet:"name=event_count, type=INT64"`
	HasEvent      int64    `parquet:"name=has_event, type=INT64"`

	Year          *float64 `parquet:"name=year, type=DOUBLE, repetitiontype=OPTIONAL"`
	Month         *float64 `parquet:"name=month, type=DOUBLE, repetitiontype=OPTIONAL"`
	Day           *float64 `parquet:"name=day, type=DOUBLE, repetitiontype=OPTIONAL"`
	Hour          *float64 `parquet:"name=hour, type=DOUBLE, repetitiontype=OPTIONAL"`
	DayOfWeek     *float64 `parquet:"name=dayofweek, type=DOUBLE, repetitiontype=OPTIONAL"`
	IsWeekend     *float64 `parquet:"name=is_weekend, type=DOUBLE, repetitiontype=OPTIONAL"`
	IsHoliday     *float64 `parquet:"name=is_holiday, type=DOUBLE, repetitiontype=OPTIONAL"`
	IsRain        *float64 `parquet:"name=is_rain, type=DOUBLE, repetitiontype=OPTIONAL"`
	LogEventCount *float64 `parquet:"name=log_event_count, type=DOUBLE, repetitiontype=OPTIONAL"`
	HeavyEvent    *float64 `parquet:"name=heavy_event, type=DOUBLE, repetitiontype=OPTIONAL"`
	Lag1          *float64 `parquet:"name=lag_1, type=DOUBLE, repetitiontype=OPTIONAL"`
	Lag24         *float64 `parquet:"name=lag_24, type=DOUBLE, repetitiontype=OPTIONAL"`
	Lag168        *float64 `parquet:"name=lag_168, type=DOUBLE, repetitiontype=OPTIONAL"`
	RollMean3     *float64 `parquet:"name=roll_mean_3, type=DOUBLE, repetitiontype=OPTIONAL"`
	RollMean24    *float64 `parquet:"name=roll_mean_24, type=DOUBLE, repetitiontype=OPTIONAL"`
	Diff1         *float64 `parquet:"name=diff_1, type=DOUBLE, repetitiontype=OPTIONAL"`
	Diff24        *float64 `parquet:"name=diff_24, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// derivedFeatures are the feature columns that are not copies of base columns, in the order of
// BaseRow.derivedFields.
var derivedFeatures = []feature.Feature{
	feature.Year,
	feature.Month,
	feature.Day,
	feature.Hour,
	feature.DayOfWeek,
	feature.IsWeekend,
	feature.IsHoliday,
	feature.IsRain,
	feature.LogEventCount,
	feature.HeavyEvent,
	feature.NewLag(1),
	feature.NewLag(24),
	feature.NewLag(168),
	feature.NewRolling(3),
	feature.NewRolling(24),
	feature.NewDiff(1),
	feature.NewDiff(24),
}

func (r *BaseRow) derivedFields() []**float64 {
	return []**float64{
		&r.Year,
		&r.Month,
		&r.Day,
		&r.Hour,
		&r.DayOfWeek,
		&r.IsWeekend,
		&r.IsHoliday,
		&r.IsRain,
		&r.LogEventCount,
		&r.HeavyEvent,
		&r.Lag1,
		&r.Lag24,
		&r.Lag168,
		&r.RollMean3,
		&r.RollMean24,
		&r.Diff1,
		&r.Diff24,
	}
}

func (s *Store) WriteTaxi(th *aggregate.TaxiHourly) error {
	rows := make([]TaxiRow, th.Len())
	for i := range rows {
		rows[i] = TaxiRow{Timestamp: toMillis(th.T[i]), Rides: th.Rides[i]}
	}
	return writeRows(s, TaxiFile, rows)
}

func (s *Store) ReadTaxi() (*aggregate.TaxiHourly, error) {
	rows, err := readRows[TaxiRow](s, TaxiFile)
	if err != nil {
		return nil, err
	}
	th := &aggregate.TaxiHourly{
		T:     make([]time.Time, len(rows)),
		Rides: make([]int64, len(rows)),
	}
	for i, r := range rows {
		th.T[i] = fromMillis(r.Timestamp)
		th.Rides[i] = r.Rides
	}
	return th, nil
}

func (s *Store) WriteWeather(wh *aggregate.WeatherHourly) error {
	rows := make([]WeatherRow, wh.Len())
	for i := range rows {
		rows[i] = WeatherRow{
			Timestamp:     toMillis(wh.T[i]),
			Temperature:   nullable(wh.Temperature[i]),
			Precipitation: nullable(wh.Precipitation[i]),
			Windspeed:     nullable(wh.Windspeed[i]),
			WeatherCode:   nullable(wh.WeatherCode[i]),
		}
	}
	return writeRows(s, WeatherFile, rows)
}

func (s *Store) ReadWeather() (*aggregate.WeatherHourly, error) {
	rows, err := readRows[WeatherRow](s, WeatherFile)
	if err != nil {
		return nil, err
	}
	obs := make([]aggregate.WeatherObservation, len(rows))
	for i, r := range rows {
		obs[i] = aggregate.WeatherObservation{
			T:             fromMillis(r.Timestamp),
			Temperature:   value(r.Temperature),
			Precipitation: value(r.Precipitation),
			Windspeed:     value(r.Windspeed),
			WeatherCode:   value(r.WeatherCode),
		}
	}
	return aggregate.WeatherHourlyFromObservations(obs)
}

func (s *Store) WriteEvents(eh *aggregate.EventsHourly) error {
	rows := make([]EventsRow, eh.Len())
	for i := range rows {
		rows[i] = EventsRow{
			Timestamp:  toMillis(eh.T[i]),
			EventCount: eh.EventCount[i],
			HasEvent:   eh.HasEvent[i],
		}
	}
	return writeRows(s, EventsFile, rows)
}

func (s *Store) ReadEvents() (*aggregate.EventsHourly, error) {
	rows, err := readRows[EventsRow](s, EventsFile)
	if err != nil {
		return nil, err
	}
	eh := &aggregate.EventsHourly{
		T:          make([]time.Time, len(rows)),
		EventCount: make([]int64, len(rows)),
		HasEvent:   make([]int64, len(rows)),
	}
	for i, r := range rows {
		eh.T[i] = fromMillis(r.Timestamp)
		eh.EventCount[i] = r.EventCount
		eh.HasEvent[i] = r.HasEvent
	}
	return eh, nil
}

func baseRow(r basetable.Row) BaseRow {
	return BaseRow{
		Timestamp:     toMillis(r.T),
		Rides:         r.Rides,
		Temperature:   nullable(r.Temperature),
		Precipitation: nullable(r.Precipitation),
		Windspeed:     nullable(r.Windspeed),
		WeatherCode:   nullable(r.WeatherCode),
		EventCount:    r.EventCount,
		HasEvent:      r.HasEvent,
	}
}

func (r BaseRow) base() basetable.Row {
	return basetable.Row{
		T:             fromMillis(r.Timestamp),
		Rides:         r.Rides,
		Temperature:   value(r.Temperature),
		Precipitation: value(r.Precipitation),
		Windspeed:     value(r.Windspeed),
		WeatherCode:   value(r.WeatherCode),
		EventCount:    r.EventCount,
		HasEvent:      r.HasEvent,
	}
}

// WriteBase writes the joined table without feature columns
func (s *Store) WriteBase(tbl *basetable.Table) error {
	rows := make([]BaseRow, tbl.Len())
	for i := range rows {
		rows[i] = baseRow(tbl.Row(i))
	}
	return writeRows(s, BaseFile, rows)
}

func (s *Store) readBaseRows(name string) ([]BaseRow, *basetable.Table, error) {
	rows, err := readRows[BaseRow](s, name)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%s has no rows, %w", name, basetable.ErrColumnLength)
	}
	tbl := basetable.NewTable(fromMillis(rows[0].Timestamp), len(rows))
	for i, r := range rows {
		tbl.SetRow(i, r.base())
		if tbl.HasWeather(i) {
			continue
		}
		tbl.WeatherGaps++
	}
	if err := tbl.Validate(); err != nil {
		return nil, nil, fmt.Errorf("reading %s, %w", name, err)
	}
	return rows, tbl, nil
}

// ReadBase reads the joined table without feature columns
func (s *Store) ReadBase() (*basetable.Table, error) {
	_, tbl, err := s.readBaseRows(BaseFile)
	return tbl, err
}

// WriteFeatures writes the joined table together with every derived feature column
func (s *Store) WriteFeatures(ft *feature.Table) error {
	cols := make([][]float64, len(derivedFeatures))
	for j, f := range derivedFeatures {
		col, exists := ft.Features.Get(f)
		if !exists {
			return fmt.Errorf("writing %s, %w", f, feature.ErrUnknownFeature)
		}
		cols[j] = col
	}

	rows := make([]BaseRow, ft.Len())
	for i := range rows {
		rows[i] = baseRow(ft.Base.Row(i))
		for j, field := range rows[i].derivedFields() {
			*field = nullable(cols[j][i])
		}
	}
	return writeRows(s, ModelReadyFile, rows)
}

// ReadFeatures reads the model ready table. Feature columns that copy base columns are rebuilt
// from the base values.
func (s *Store) ReadFeatures() (*feature.Table, error) {
	rows, tbl, err := s.readBaseRows(ModelReadyFile)
	if err != nil {
		return nil, err
	}

	n := len(rows)
	cols := make([][]float64, len(derivedFeatures))
	for j := range cols {
		cols[j] = make([]float64, n)
	}
	for i := range rows {
		for j, field := range rows[i].derivedFields() {
			cols[j][i] = value(*field)
		}
	}

	eventCount := make([]float64, n)
	hasEvent := make([]float64, n)
	for i := 0; i < n; i++ {
		eventCount[i] = float64(tbl.EventCount[i])
		hasEvent[i] = float64(tbl.HasEvent[i])
	}

	set := feature.NewSet().
		Set(feature.Temperature, cloneFloats(tbl.Temperature)).
		Set(feature.Precipitation, cloneFloats(tbl.Precipitation)).
		Set(feature.Windspeed, cloneFloats(tbl.Windspeed)).
		Set(feature.WeatherCode, cloneFloats(tbl.WeatherCode)).
		Set(feature.EventCount, eventCount).
		Set(feature.HasEvent, hasEvent)
	for j, f := range derivedFeatures {
		set.Set(f, cols[j])
	}
	return feature.NewTable(tbl, set)
}

func cloneFloats(data []float64) []float64 {
	res := make([]float64, len(data))
	copy(res, data)
	return res
}
