package dashboard

import (
	"bytes"
	"errors"
	"html/template"
	"strings"

	"github.com/aouyang1/go-ridedemand/serving"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/gofiber/fiber/v2"
)

const pageTitle = "NYC Ride Demand"

var summaryTmpl = template.Must(template.New("summary").Parse(`
<div class="summary" style="max-width: 1200px; margin: 0 auto; font-family: sans-serif;">
<h1>{{ .Title }}</h1>
<p>How well the trained model predicts hourly NYC yellow taxi demand for a selected period.</p>
<form method="get" action="/">
  <label>Start date <input type="date" name="start" value="{{ .Start }}"></label>
  <label>End date <input type="date" name="end" value="{{ .End }}"></label>
  <button type="submit">Show</button>
</form>
{{ if .Error }}<p class="error" style="color: #b00020;">{{ .Error }}</p>{{ end }}
{{ if .Message }}<p class="warning" style="color: #8a6d3b;">{{ .Message }}</p>{{ end }}
{{ with .Scores }}
<h2>Metrics for Selected Period</h2>
<table>
  <tr><th>MAE</th><th>RMSE</th><th>MAPE</th></tr>
  <tr><td>{{ printf "%.2f" .MAE }}</td><td>{{ printf "%.2f" .RMSE }}</td><td>{{ printf "%.2f" .MAPE }}%</td></tr>
</table>
<p><b>How to read these metrics:</b></p>
<ul>
  <li><b>MAE (Mean Absolute Error):</b> on average, the model is off by this many rides per hour. Lower is better.</li>
  <li><b>RMSE (Root Mean Squared Error):</b> like MAE, but penalises large mistakes more strongly. Also in rides per hour.</li>
  <li><b>MAPE (Mean Absolute Percentage Error):</b> average error as a percentage of the true demand. Hours without rides count their error as if one ride had been expected.</li>
</ul>
{{ end }}
{{ if .Rejected }}<p>{{ .Rejected }} hours were left out because some of their features are missing.</p>{{ end }}
{{ if .Rows }}
<h2>Actual vs Predicted Rides</h2>
<div style="max-height: 320px; overflow-y: scroll;">
<table>
  <tr><th>Timestamp</th><th>Actual rides</th><th>Predicted rides</th></tr>
  {{ range .Rows }}<tr><td>{{ .T }}</td><td>{{ printf "%.0f" .Actual }}</td><td>{{ printf "%.1f" .Predicted }}</td></tr>
  {{ end }}
</table>
</div>
{{ end }}
</div>
`))

type pageRow struct {
	T         string
	Actual    float64
	Predicted float64
}

type pageView struct {
	Title    string
	Start    string
	End      string
	Error    string
	Message  string
	Scores   *serving.Scores
	Rejected int
	Rows     []pageRow
}

func (d *dashboard) page(c *fiber.Ctx) error {
	view := pageView{Title: pageTitle}
	status := fiber.StatusOK

	report, err := d.query(c)
	if err != nil {
		var fe *fiber.Error
		if !errors.As(err, &fe) {
			return err
		}
		status = fe.Code
		view.Error = fe.Message
		view.Start, view.End = c.Query("start"), c.Query("end")
	}

	var chart bytes.Buffer
	if report != nil {
		view.Start = report.Start.Format(dateLayout)
		view.End = report.End.Format(dateLayout)
		view.Message = report.Message
		view.Scores = report.Scores
		view.Rejected = report.Rejected
		view.Rows = make([]pageRow, len(report.Points))
		for i, p := range report.Points {
			view.Rows[i] = pageRow{
				T:         p.T.In(d.opt.Location).Format(axisLayout),
				Actual:    p.Actual,
				Predicted: p.Predicted,
			}
		}

		if !report.Empty {
			page := components.NewPage()
			page.PageTitle = pageTitle
			page.AddCharts(LinePredictions(report, d.opt.Location))
			if err := page.Render(&chart); err != nil {
				return err
			}
		}
	}

	var summary bytes.Buffer
	if err := summaryTmpl.Execute(&summary, view); err != nil {
		return err
	}

	c.Status(status)
	c.Type("html", "utf-8")
	return c.SendString(assemble(chart.String(), summary.String()))
}

// assemble places the summary at the top of the rendered chart page, or in a page of its own
// when there is no chart
func assemble(chartPage, summary string) string {
	if chartPage == "" {
		return "<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>" + pageTitle + "</title></head>\n<body>\n" +
			summary + "\n</body>\n</html>\n"
	}
	if i := strings.Index(chartPage, "<body>"); i >= 0 {
		i += len("<body>")
		return chartPage[:i] + "\n" + summary + chartPage[i:]
	}
	return chartPage + summary
}
