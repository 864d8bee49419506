// Package serving answers date range queries against the feature table with the predictions of
// a trained model and their error scores.
package serving

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/aouyang1/go-ridedemand/feature"
	"github.com/aouyang1/go-ridedemand/models"
)

var (
	ErrSchemaMismatch = errors.New("model features do not match serving columns")
	ErrInvalidRange   = errors.New("start date is after end date")
	ErrNoTable        = errors.New("no feature table")
	ErrNoModel        = errors.New("no model")
	ErrNoLocation     = errors.New("no location for date ranges")
	ErrPredictLen     = errors.New("model returned a different number of predictions than rows")
)

const DefaultRangeDays = 7

// Point is the actual and predicted rides of one hour
type Point struct {
	T         time.Time `json:"timestamp"`
	Actual    float64   `json:"actual"`
	Predicted float64   `json:"predicted"`
}

// Report is the answer to a date range query. An empty report carries a message instead of
// points and scores.
type Report struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Points   []Point   `json:"points"`
	Scores   *Scores   `json:"scores,omitempty"`
	Rejected int       `json:"rejected"`
	Empty    bool      `json:"empty"`
	Message  string    `json:"message,omitempty"`
}

// Server holds immutable handles on a feature table and a model. Queries only read them and may
// run concurrently.
type Server struct {
	table   *feature.Table
	model   models.Predictor
	columns []feature.Feature
	loc     *time.Location
}

// New checks that the model was trained on exactly the serving columns, in the same order
func New(table *feature.Table, model models.Predictor, columns []feature.Feature, loc *time.Location) (*Server, error) {
	if table == nil {
		return nil, ErrNoTable
	}
	if model == nil {
		return nil, ErrNoModel
	}
	if loc == nil {
		return nil, ErrNoLocation
	}

	want := feature.Names(columns)
	got := model.Features()
	if !slices.Equal(want, got) {
		return nil, fmt.Errorf(
			"model has %d features %v, serving expects %d features %v, %w",
			len(got), got, len(want), want, ErrSchemaMismatch,
		)
	}

	return &Server{
		table:   table,
		model:   model,
		columns: slices.Clone(columns),
		loc:     loc,
	}, nil
}

// Columns returns the serving feature columns in model order
func (s *Server) Columns() []feature.Feature {
	return slices.Clone(s.columns)
}

// DataRange returns the first and last hour of the table
func (s *Server) DataRange() (time.Time, time.Time, bool) {
	n := s.table.Len()
	if n == 0 {
		return time.Time{}, time.Time{}, false
	}
	t := s.table.Base.T
	return t[0], t[n-1], true
}

// DefaultRange returns the dates from the given number of days before the last day of data up to
// that last day, inclusive
func (s *Server) DefaultRange(days int) (time.Time, time.Time, bool) {
	_, last, ok := s.DataRange()
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	if days <= 0 {
		days = DefaultRangeDays
	}
	y, m, d := last.In(s.loc).Date()
	end := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	return end.AddDate(0, 0, -days), end, true
}

// date returns local midnight of the calendar date carried by t, whatever its location
func (s *Server) date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// bounds returns the row span [lo, hi) of every hour from local midnight of start up to but
// excluding local midnight of the day after end
func (s *Server) bounds(start, end time.Time) (int, int) {
	from := start
	to := end.AddDate(0, 0, 1)

	t := s.table.Base.T
	lo := sort.Search(len(t), func(i int) bool { return !t[i].Before(from) })
	hi := sort.Search(len(t), func(i int) bool { return !t[i].Before(to) })
	return lo, hi
}

// Query predicts every hour between the start and end calendar dates, both inclusive and taken in
// the server's location. Rows missing any serving feature are rejected and counted.
func (s *Server) Query(start, end time.Time) (*Report, error) {
	from, to := s.date(start), s.date(end)
	if from.After(to) {
		return nil, fmt.Errorf(
			"start %s, end %s, %w",
			from.Format(time.DateOnly), to.Format(time.DateOnly), ErrInvalidRange,
		)
	}
	report := &Report{Start: from, End: to}

	lo, hi := s.bounds(from, to)
	if lo >= hi {
		report.Empty = true
		report.Message = fmt.Sprintf(
			"no data between %s and %s",
			from.Format(time.DateOnly), to.Format(time.DateOnly),
		)
		return report, nil
	}

	rows := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		if !s.table.Complete(i, s.columns) {
			report.Rejected++
			continue
		}
		rows = append(rows, i)
	}
	if len(rows) == 0 {
		report.Empty = true
		report.Message = fmt.Sprintf(
			"all %d hours between %s and %s have missing features",
			report.Rejected, from.Format(time.DateOnly), to.Format(time.DateOnly),
		)
		return report, nil
	}

	x, err := s.table.Matrix(s.columns, rows)
	if err != nil {
		return nil, fmt.Errorf("building feature matrix, %w", err)
	}
	predicted, err := s.model.Predict(x)
	if err != nil {
		return nil, fmt.Errorf("predicting %d rows, %w", len(rows), err)
	}
	if len(predicted) != len(rows) {
		return nil, fmt.Errorf("%d predictions for %d rows, %w", len(predicted), len(rows), ErrPredictLen)
	}

	actual := s.table.Target(rows)
	report.Points = make([]Point, len(rows))
	for i, r := range rows {
		report.Points[i] = Point{
			T:         s.table.Base.T[r],
			Actual:    actual[i],
			Predicted: predicted[i],
		}
	}

	report.Scores, err = NewScores(predicted, actual)
	if err != nil {
		return nil, err
	}
	return report, nil
}
