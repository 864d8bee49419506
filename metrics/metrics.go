// Package metrics exposes the pipeline build and dashboard query counters as prometheus
// collectors on a private registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "ridedemand"

// Query outcomes
const (
	QueryOK      = "ok"
	QueryEmpty   = "empty"
	QueryInvalid = "invalid"
	QueryError   = "error"
)

// Recorder holds every collector. A nil Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	stageDuration     *prometheus.HistogramVec
	stageRows         *prometheus.GaugeVec
	missingPartitions prometheus.Counter
	droppedPickups    prometheus.Counter
	clampedEvents     prometheus.Counter
	weatherGaps       prometheus.Gauge

	queries       *prometheus.CounterVec
	queryDuration prometheus.Histogram
	rejectedRows  prometheus.Counter
}

// NewRecorder registers the collectors, plus the go runtime and process collectors, on a new
// registry
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Recorder{
		registry: registry,
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_stage_duration_seconds",
			Help:      "Duration of pipeline build stages.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		stageRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_stage_rows",
			Help:      "Rows written by the last run of each build stage.",
		}, []string{"stage"}),
		missingPartitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "taxi_missing_partitions_total",
			Help:      "Taxi month partitions that could not be fetched or read.",
		}),
		droppedPickups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "taxi_dropped_pickups_total",
			Help:      "Pickups outside their partition month.",
		}),
		clampedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_clamped_total",
			Help:      "Events ending before they start, clamped to their start hour.",
		}),
		weatherGaps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "base_weather_gap_hours",
			Help:      "Hours of the last built base table without weather.",
		}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Prediction queries by outcome.",
		}, []string{"outcome"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Duration of prediction queries.",
			Buckets:   prometheus.DefBuckets,
		}),
		rejectedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_rejected_rows_total",
			Help:      "Queried hours rejected for missing features.",
		}),
	}

	registry.MustRegister(
		r.stageDuration,
		r.stageRows,
		r.missingPartitions,
		r.droppedPickups,
		r.clampedEvents,
		r.weatherGaps,
		r.queries,
		r.queryDuration,
		r.rejectedRows,
	)
	return r
}

// Registry returns the registry to expose over http
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Stage records a finished build stage
func (r *Recorder) Stage(stage string, rows int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	r.stageRows.WithLabelValues(stage).Set(float64(rows))
}

func (r *Recorder) MissingPartitions(n int) {
	if r == nil {
		return
	}
	r.missingPartitions.Add(float64(n))
}

func (r *Recorder) DroppedPickups(n int) {
	if r == nil {
		return
	}
	r.droppedPickups.Add(float64(n))
}

func (r *Recorder) ClampedEvents(n int) {
	if r == nil {
		return
	}
	r.clampedEvents.Add(float64(n))
}

func (r *Recorder) WeatherGaps(n int) {
	if r == nil {
		return
	}
	r.weatherGaps.Set(float64(n))
}

// Query records a prediction query with its outcome and rejected rows
func (r *Recorder) Query(outcome string, rejected int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.queries.WithLabelValues(outcome).Inc()
	r.queryDuration.Observe(elapsed.Seconds())
	r.rejectedRows.Add(float64(rejected))
}
