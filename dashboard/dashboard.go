// Package dashboard serves the prediction report of a date range as JSON and as a rendered chart
// page, along with the prometheus metrics of the process.
package dashboard

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aouyang1/go-ridedemand/metrics"
	"github.com/aouyang1/go-ridedemand/serving"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const dateLayout = "2006-01-02"

var validate = validator.New()

// Options configures the dashboard
type Options struct {
	// DefaultDays is the span shown when a request names no range
	DefaultDays int
	// Location of the calendar dates in requests
	Location     *time.Location
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type dashboard struct {
	srv *serving.Server
	rec *metrics.Recorder
	opt Options
}

// New returns the dashboard app. A nil recorder disables the metrics endpoint.
func New(srv *serving.Server, rec *metrics.Recorder, opt Options) *fiber.App {
	if opt.DefaultDays <= 0 {
		opt.DefaultDays = serving.DefaultRangeDays
	}
	if opt.Location == nil {
		opt.Location = time.UTC
	}
	if opt.ReadTimeout <= 0 {
		opt.ReadTimeout = 10 * time.Second
	}
	if opt.WriteTimeout <= 0 {
		opt.WriteTimeout = 30 * time.Second
	}

	app := fiber.New(fiber.Config{
		AppName:               "ridedemand",
		DisableStartupMessage: true,
		ReadTimeout:           opt.ReadTimeout,
		WriteTimeout:          opt.WriteTimeout,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())

	d := &dashboard{srv: srv, rec: rec, opt: opt}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "ridedemand",
		})
	})
	app.Get("/api/predictions", d.predictions)
	app.Get("/", d.page)
	if rec != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(rec.Registry(), promhttp.HandlerOpts{})))
	}
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		slog.Error("request failed", "path", c.Path(), "error", err.Error())
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// rangeQuery holds the optional date range of a request
type rangeQuery struct {
	Start string `validate:"omitempty,datetime=2006-01-02"`
	End   string `validate:"omitempty,datetime=2006-01-02"`
}

func (d *dashboard) parseRange(c *fiber.Ctx) (time.Time, time.Time, error) {
	q := rangeQuery{
		Start: c.Query("start"),
		End:   c.Query("end"),
	}
	if err := validate.Struct(q); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("dates must be formatted as YYYY-MM-DD, %w", serving.ErrInvalidRange)
	}

	start, end, ok := d.srv.DefaultRange(d.opt.DefaultDays)
	if !ok {
		start, end = time.Now().In(d.opt.Location), time.Now().In(d.opt.Location)
	}
	start, err := parseDate(q.Start, start, d.opt.Location)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err = parseDate(q.End, end, d.opt.Location)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// parseDate reads a YYYY-MM-DD date in loc, or returns fallback when the value is empty
func parseDate(value string, fallback time.Time, loc *time.Location) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	t, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q, %w", value, serving.ErrInvalidRange)
	}
	return t, nil
}

// query runs the requested range and records its outcome
func (d *dashboard) query(c *fiber.Ctx) (*serving.Report, error) {
	started := time.Now()
	start, end, err := d.parseRange(c)
	if err == nil {
		var report *serving.Report
		report, err = d.srv.Query(start, end)
		if err == nil {
			outcome := metrics.QueryOK
			if report.Empty {
				outcome = metrics.QueryEmpty
			}
			d.rec.Query(outcome, report.Rejected, time.Since(started))
			return report, nil
		}
	}

	if errors.Is(err, serving.ErrInvalidRange) {
		d.rec.Query(metrics.QueryInvalid, 0, time.Since(started))
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	d.rec.Query(metrics.QueryError, 0, time.Since(started))
	return nil, err
}

func (d *dashboard) predictions(c *fiber.Ctx) error {
	report, err := d.query(c)
	if err != nil {
		return err
	}
	return c.JSON(report)
}
