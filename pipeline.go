// Package ridedemand builds the hourly ride demand tables, from the raw taxi, weather and event
// sources through the joined base table and its features, and loads them for serving.
package ridedemand

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aouyang1/go-ridedemand/aggregate"
	"github.com/aouyang1/go-ridedemand/basetable"
	"github.com/aouyang1/go-ridedemand/calendar"
	"github.com/aouyang1/go-ridedemand/config"
	"github.com/aouyang1/go-ridedemand/feature"
	"github.com/aouyang1/go-ridedemand/metrics"
	"github.com/aouyang1/go-ridedemand/models"
	"github.com/aouyang1/go-ridedemand/serving"
	"github.com/aouyang1/go-ridedemand/source"
	"github.com/aouyang1/go-ridedemand/store"
	"github.com/aouyang1/go-ridedemand/timedataset"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

// Tukey fences used to flag hourly pickup counts worth a look, and the inflation above which a
// serving feature is reported as collinear.
const (
	outlierLowerQuantile = 0.25
	outlierUpperQuantile = 0.75
	outlierTukeyFactor   = 3.0
	collinearVIF         = 10.0
)

var (
	ErrNoConfig       = errors.New("no config")
	ErrNoTrainingRows = errors.New("no rows with every serving feature defined")
)

// Pipeline runs the build stages of one configuration. Each stage reads its inputs from the
// data directory, or the remote sources, and persists its output there.
type Pipeline struct {
	cfg     *config.Config
	store   *store.Store
	metrics *metrics.Recorder
	cal     *calendar.Calendar
	runID   string
}

// New prepares a pipeline. The recorder may be nil.
func New(cfg *config.Config, rec *metrics.Recorder) (*Pipeline, error) {
	if cfg == nil {
		return nil, ErrNoConfig
	}
	st, err := store.New(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	cal, err := calendar.New(cfg.Location(), calendar.USFederal, cfg.Taxi.StartYear, cfg.Taxi.EndYear)
	if err != nil {
		return nil, fmt.Errorf("building holiday calendar, %w", err)
	}

	return &Pipeline{
		cfg:     cfg,
		store:   st,
		metrics: rec,
		cal:     cal,
		runID:   uuid.NewString(),
	}, nil
}

// RunID identifies the stages written by this pipeline in the manifest
func (p *Pipeline) RunID() string {
	return p.runID
}

func (p *Pipeline) Store() *store.Store {
	return p.store
}

func (p *Pipeline) client(name string) *source.Client {
	return source.NewClient(source.ClientConfig{
		Name:                   name,
		Timeout:                p.cfg.HTTP.Timeout,
		MaxConsecutiveFailures: p.cfg.HTTP.MaxConsecutiveFailures,
		OpenTimeout:            p.cfg.HTTP.OpenTimeout,
	}, nil)
}

func (p *Pipeline) finish(stage string, started time.Time, rec *StageRecord) error {
	rec.RunID = p.runID
	rec.StartedAt = started.UTC()
	rec.FinishedAt = time.Now().UTC()
	elapsed := rec.FinishedAt.Sub(rec.StartedAt)

	p.metrics.Stage(stage, rec.Rows, elapsed)
	slog.Info("finished build stage", "stage", stage, "rows", rec.Rows, "elapsed", elapsed, "run_id", p.runID)
	if err := recordStage(p.store.Dir(), stage, rec); err != nil {
		return fmt.Errorf("recording %s stage, %w", stage, err)
	}
	return nil
}

func span(t []time.Time) (time.Time, time.Time) {
	if len(t) == 0 {
		return time.Time{}, time.Time{}
	}
	return t[0], t[len(t)-1]
}

// BuildTaxi fetches every configured month of trip logs, counts pickups per hour and writes the
// merged hourly table. Missing months are skipped; the stage only fails when none is usable.
func (p *Pipeline) BuildTaxi(ctx context.Context) (*aggregate.TaxiHourly, error) {
	started := time.Now()
	ts, err := source.NewTaxiSource(source.TaxiConfig{
		URLFormat:   p.cfg.Taxi.URLFormat,
		Location:    p.cfg.Location(),
		Parallelism: p.cfg.Taxi.Parallelism,
		ClipToMonth: true,
	}, p.client(StageTaxi))
	if err != nil {
		return nil, err
	}

	months := source.MonthsBetween(p.cfg.Taxi.StartYear, p.cfg.Taxi.EndYear)
	slog.Info("building taxi table", "months", len(months), "parallelism", p.cfg.Taxi.Parallelism)

	fetched, err := ts.FetchAll(ctx, months)
	if err != nil {
		return nil, fmt.Errorf("fetching taxi partitions, %w", err)
	}
	p.metrics.MissingPartitions(fetched.MissingCount())
	p.metrics.DroppedPickups(fetched.Dropped)

	var missing []string
	if fetched.Missing != nil {
		for _, err := range fetched.Missing.Errors {
			var partErr *source.PartitionError
			if errors.As(err, &partErr) {
				missing = append(missing, partErr.Month.String())
			}
		}
	}

	taxi, err := aggregate.MergeTaxiPartitions(fetched.Partitions)
	if err != nil {
		if fetched.Missing != nil {
			return nil, fmt.Errorf("%d of %d taxi partitions missing, %w", len(missing), len(months), errors.Join(err, fetched.Missing.ErrorOrNil()))
		}
		return nil, fmt.Errorf("merging taxi partitions, %w", err)
	}
	if len(missing) > 0 {
		slog.Warn("taxi table built without some partitions", "missing", len(missing), "months", missing)
	}

	outliers := taxiOutliers(taxi)
	if len(outliers) > 0 {
		slog.Warn("unusual hourly pickup counts", "hours", len(outliers), "first", outliers[0])
	}

	if err := p.store.WriteTaxi(taxi); err != nil {
		return nil, err
	}

	first, last := span(taxi.T)
	err = p.finish(StageTaxi, started, &StageRecord{
		Rows:              taxi.Len(),
		First:             first,
		Last:              last,
		MissingPartitions: missing,
		DroppedPickups:    fetched.Dropped,
		OutlierHours:      outliers,
		Output:            store.TaxiFile,
	})
	return taxi, err
}

func taxiOutliers(taxi *aggregate.TaxiHourly) []time.Time {
	rides := make(timedataset.Series, len(taxi.Rides))
	for i, r := range taxi.Rides {
		rides[i] = float64(r)
	}
	idx := rides.Outliers(outlierLowerQuantile, outlierUpperQuantile, outlierTukeyFactor)
	if len(idx) == 0 {
		return nil
	}
	hours := make([]time.Time, len(idx))
	for i, j := range idx {
		hours[i] = taxi.T[j]
	}
	return hours
}

// BuildWeather fetches the configured weather range and writes the hourly weather table
func (p *Pipeline) BuildWeather(ctx context.Context) (*aggregate.WeatherHourly, error) {
	started := time.Now()
	ws := source.NewWeatherSource(source.WeatherConfig{
		BaseURL:   p.cfg.Weather.BaseURL,
		Latitude:  p.cfg.Weather.Latitude,
		Longitude: p.cfg.Weather.Longitude,
		StartDate: p.cfg.Weather.StartDate,
		EndDate:   p.cfg.Weather.EndDate,
	}, p.client(StageWeather))

	slog.Info("building weather table", "start", p.cfg.Weather.StartDate, "end", p.cfg.Weather.EndDate)
	obs, err := ws.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching weather, %w", err)
	}
	weather, err := aggregate.WeatherHourlyFromObservations(obs)
	if err != nil {
		return nil, err
	}
	if err := p.store.WriteWeather(weather); err != nil {
		return nil, err
	}

	first, last := span(weather.T)
	err = p.finish(StageWeather, started, &StageRecord{
		Rows:   weather.Len(),
		First:  first,
		Last:   last,
		Output: store.WeatherFile,
	})
	return weather, err
}

// BuildEvents fetches every event starting in the configured range and writes the hourly event
// counts over that range
func (p *Pipeline) BuildEvents(ctx context.Context) (*aggregate.EventsHourly, error) {
	started := time.Now()
	start, end := p.cfg.EventsRange()
	es, err := source.NewEventsSource(source.EventsConfig{
		BaseURL:  p.cfg.Events.BaseURL,
		Domain:   p.cfg.Events.Domain,
		Dataset:  p.cfg.Events.Dataset,
		Start:    start,
		End:      end,
		PageSize: p.cfg.Events.PageSize,
		Location: p.cfg.Location(),
	}, p.client(StageEvents))
	if err != nil {
		return nil, err
	}

	slog.Info("building events table", "start", start, "end", end, "dataset", p.cfg.Events.Dataset)
	intervals, err := es.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching events, %w", err)
	}

	gridStart := timedataset.FloorHour(start)
	gridEnd := timedataset.FloorHour(end.Add(-time.Nanosecond))
	events, clamped, err := aggregate.EventsHourlyFromIntervals(intervals, gridStart, gridEnd)
	if err != nil {
		return nil, err
	}
	p.metrics.ClampedEvents(clamped)

	if err := p.store.WriteEvents(events); err != nil {
		return nil, err
	}
	err = p.finish(StageEvents, started, &StageRecord{
		Rows:          events.Len(),
		First:         gridStart,
		Last:          gridEnd,
		ClampedEvents: clamped,
		Output:        store.EventsFile,
	})
	return events, err
}

// BuildBase joins the persisted hourly tables, derives the features and writes both the base
// table and the model ready table. A missing events table counts as no events.
func (p *Pipeline) BuildBase(ctx context.Context) (*feature.Table, error) {
	started := time.Now()

	taxi, err := p.store.ReadTaxi()
	if err != nil {
		return nil, fmt.Errorf("reading taxi table, %w", err)
	}
	weather, err := p.store.ReadWeather()
	if err != nil {
		return nil, fmt.Errorf("reading weather table, %w", err)
	}
	events, err := p.store.ReadEvents()
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("reading events table, %w", err)
		}
		slog.Warn("no events table, every hour counts zero events", "path", p.store.Path(store.EventsFile))
		events = nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, err := basetable.Join(taxi, weather, events, basetable.JoinOptions{
		AllowWeatherGaps: p.cfg.Join.AllowWeatherGaps,
	})
	if err != nil {
		return nil, fmt.Errorf("joining base table, %w", err)
	}
	if base.WeatherGaps > 0 {
		slog.Error("base table built with hours missing weather, these hours cannot be served",
			"missing", base.WeatherGaps,
		)
	}
	p.metrics.WeatherGaps(base.WeatherGaps)

	if p.cfg.Features.RollingIncludeCurrent {
		slog.Warn("rolling means include the current hour's rides, served predictions see the target")
	}
	ft, err := feature.Derive(base, p.cal, feature.Options{
		RollingIncludeCurrent: p.cfg.Features.RollingIncludeCurrent,
		HeavyEventThreshold:   p.cfg.Features.HeavyEventThreshold,
	})
	if err != nil {
		return nil, err
	}

	if err := p.store.WriteBase(base); err != nil {
		return nil, err
	}
	if err := p.store.WriteFeatures(ft); err != nil {
		return nil, err
	}

	first, last := span(base.T)
	err = p.finish(StageBase, started, &StageRecord{
		Rows:        base.Len(),
		First:       first,
		Last:        last,
		WeatherGaps: base.WeatherGaps,
		Output:      store.ModelReadyFile,
	})
	return ft, err
}

// Build runs every stage in order
func (p *Pipeline) Build(ctx context.Context) (*feature.Table, error) {
	if _, err := p.BuildTaxi(ctx); err != nil {
		return nil, err
	}
	if _, err := p.BuildWeather(ctx); err != nil {
		return nil, err
	}
	if _, err := p.BuildEvents(ctx); err != nil {
		return nil, err
	}
	return p.BuildBase(ctx)
}

// Train fits the baseline linear model on every complete row of the model ready table and saves
// it to the configured model path
func (p *Pipeline) Train(ctx context.Context) (*models.Linear, error) {
	started := time.Now()
	ft, err := p.store.ReadFeatures()
	if err != nil {
		return nil, fmt.Errorf("reading model ready table, %w", err)
	}

	cols := feature.ServingColumns
	rows := make([]int, 0, ft.Len())
	for i := 0; i < ft.Len(); i++ {
		if ft.Complete(i, cols) {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%d rows, %w", ft.Len(), ErrNoTrainingRows)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	x, err := ft.Matrix(cols, rows)
	if err != nil {
		return nil, err
	}
	y := mat.NewDense(len(rows), 1, ft.Target(rows))

	names := feature.Names(cols)
	vif, err := models.VarianceInflation(names, x)
	if err != nil {
		slog.Warn("skipping collinearity check", "error", err)
	}
	for _, name := range names {
		if v := vif[name]; v > collinearVIF {
			slog.Warn("collinear serving feature", "feature", name, "vif", v)
		}
	}

	model, err := models.FitLinear(names, x, y)
	if err != nil {
		return nil, err
	}
	if err := model.Save(p.cfg.Model.Path); err != nil {
		return nil, fmt.Errorf("saving model, %w", err)
	}
	slog.Info("trained linear model", "rows", len(rows), "skipped", ft.Len()-len(rows), "path", p.cfg.Model.Path)

	first, last := ft.Base.T[rows[0]], ft.Base.T[rows[len(rows)-1]]
	err = p.finish(StageTrain, started, &StageRecord{
		Rows:   len(rows),
		First:  first,
		Last:   last,
		Output: p.cfg.Model.Path,
	})
	return model, err
}

// LoadServer loads the model ready table and the model artifact and checks that they agree on
// the serving columns
func (p *Pipeline) LoadServer() (*serving.Server, error) {
	ft, err := p.store.ReadFeatures()
	if err != nil {
		return nil, fmt.Errorf("reading model ready table, %w", err)
	}
	model, err := models.LoadLinear(p.cfg.Model.Path)
	if err != nil {
		return nil, err
	}
	srv, err := serving.New(ft, model, feature.ServingColumns, p.cfg.Location())
	if err != nil {
		return nil, err
	}
	first, last, _ := srv.DataRange()
	slog.Info("loaded serving table", "rows", ft.Len(), "first", first, "last", last, "model", p.cfg.Model.Path)
	return srv, nil
}
