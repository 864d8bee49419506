package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aouyang1/go-ridedemand/aggregate"
	"github.com/aouyang1/go-ridedemand/store"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTaxiURLFormat = "https://d37ci6vzurychx.cloudfront.net/trip-data/yellow_tripdata_%d-%02d.parquet"

	readParallelism = 4
)

// tlcTrip holds the only column of the trip logs the pipeline consumes. Pickup times are naive
// local wall clock readings in microseconds.
type tlcTrip struct {
	PickupDatetime *int64 `parquet:"name=tpep_pickup_datetime, type=INT64, repetitiontype=OPTIONAL"`
}

// TaxiConfig configures the trip log source
type TaxiConfig struct {
	// URLFormat is formatted with the year and month of a partition
	URLFormat string
	// Location of the naive pickup timestamps
	Location *time.Location
	// Parallelism is the number of months fetched at once
	Parallelism int
	// TempDir holds downloaded partitions while they are read. Defaults to the system temp dir.
	TempDir string
	// ClipToMonth drops pickups outside of their partition's month
	ClipToMonth bool
}

type TaxiSource struct {
	cfg    TaxiConfig
	client *Client
}

func NewTaxiSource(cfg TaxiConfig, client *Client) (*TaxiSource, error) {
	if cfg.Location == nil {
		return nil, ErrNoLocation
	}
	if cfg.URLFormat == "" {
		cfg.URLFormat = DefaultTaxiURLFormat
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	return &TaxiSource{cfg: cfg, client: client}, nil
}

// URL returns the address of a monthly partition
func (ts *TaxiSource) URL(m Month) string {
	return fmt.Sprintf(ts.cfg.URLFormat, m.Year, int(m.Month))
}

// FetchMonth downloads one partition and returns its pickup instants
func (ts *TaxiSource) FetchMonth(ctx context.Context, m Month) ([]time.Time, error) {
	resp, err := ts.client.Get(ctx, ts.URL(m))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	f, err := os.CreateTemp(ts.cfg.TempDir, "yellow_tripdata_*.parquet")
	if err != nil {
		return nil, err
	}
	defer os.Remove(f.Name())

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return nil, fmt.Errorf("downloading %s, %w", m, err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	trips, err := store.ReadParquet[tlcTrip](f.Name(), readParallelism)
	if err != nil {
		return nil, fmt.Errorf("%s, %w: %s", m, ErrSchemaViolation, err.Error())
	}

	pickups := make([]time.Time, 0, len(trips))
	for _, trip := range trips {
		if trip.PickupDatetime == nil {
			continue
		}
		pickups = append(pickups, Localize(time.UnixMicro(*trip.PickupDatetime).UTC(), ts.cfg.Location))
	}
	return pickups, nil
}

// TaxiFetch is the outcome of fetching a set of monthly partitions.
type TaxiFetch struct {
	// Partitions holds one slot per requested month, nil when the month is missing
	Partitions []*aggregate.TaxiHourly
	// Missing collects a *PartitionError per missing month
	Missing *multierror.Error
	// Dropped is the number of pickups outside of their partition's month
	Dropped int
}

// MissingCount returns the number of missing partitions
func (tf *TaxiFetch) MissingCount() int {
	if tf.Missing == nil {
		return 0
	}
	return len(tf.Missing.Errors)
}

// FetchAll fetches and aggregates every month. Failed months are logged, recorded as missing and
// skipped. Only context cancellation fails the whole fetch.
func (ts *TaxiSource) FetchAll(ctx context.Context, months []Month) (*TaxiFetch, error) {
	parts := make([]*aggregate.TaxiHourly, len(months))
	errs := make([]error, len(months))
	dropped := make([]int, len(months))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ts.cfg.Parallelism)
	for i, m := range months {
		g.Go(func() error {
			start := time.Now()
			pickups, err := ts.FetchMonth(gctx, m)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				errs[i] = &PartitionError{Month: m, Err: err}
				slog.Warn("skipping taxi partition", "month", m.String(), "error", err.Error())
				return nil
			}

			var window aggregate.Window
			if ts.cfg.ClipToMonth {
				window.Start, window.End = m.Window(ts.cfg.Location)
			}
			parts[i], dropped[i] = aggregate.TaxiHourlyFromPickups(pickups, window)
			slog.Info("aggregated taxi partition",
				"month", m.String(),
				"pickups", len(pickups),
				"hours", parts[i].Len(),
				"dropped", dropped[i],
				"elapsed", time.Since(start),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &TaxiFetch{Partitions: parts}
	for i := range months {
		if errs[i] != nil {
			res.Missing = multierror.Append(res.Missing, errs[i])
		}
		res.Dropped += dropped[i]
	}
	return res, nil
}
