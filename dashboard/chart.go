package dashboard

import (
	"math"
	"time"

	"github.com/aouyang1/go-ridedemand/serving"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const axisLayout = "2006-01-02 15:04"

// LineTSeries generates an echart multi-line chart for some arbitrary time/value combination. Each
// series in y must have the same length as t. Time points where any series is NaN are skipped.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64, loc *time.Location) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
		charts.WithInitializationOpts(
			opts.Initialization{
				PageTitle: title,
				Width:     "1200px",
				Height:    "420px",
			},
		),
	)

	lineData := make([][]opts.LineData, len(y))
	for i := range y {
		lineData[i] = make([]opts.LineData, 0, len(t))
	}

	axis := make([]string, 0, len(t))
	for j := range t {
		skip := false
		for i := range y {
			if math.IsNaN(y[i][j]) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		axis = append(axis, t[j].In(loc).Format(axisLayout))
		for i := range y {
			lineData[i] = append(lineData[i], opts.LineData{Value: y[i][j]})
		}
	}

	line = line.SetXAxis(axis)
	for i, series := range seriesName {
		line = line.AddSeries(series, lineData[i])
	}
	return line
}

// LinePredictions charts the actual rides against the model predictions of a report
func LinePredictions(report *serving.Report, loc *time.Location) *charts.Line {
	t := make([]time.Time, len(report.Points))
	actual := make([]float64, len(report.Points))
	predicted := make([]float64, len(report.Points))
	for i, p := range report.Points {
		t[i] = p.T
		actual[i] = p.Actual
		predicted[i] = p.Predicted
	}
	return LineTSeries(
		"Hourly Demand: Actual vs Predicted",
		[]string{"Actual", "Predicted"},
		t,
		[][]float64{actual, predicted},
		loc,
	)
}
