package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/aouyang1/go-ridedemand/aggregate"
	"github.com/goccy/go-json"
)

const (
	DefaultSocrataDomain = "data.cityofnewyork.us"
	DefaultEventsDataset = "bkfu-528j"
	DefaultEventsPage    = 50000
)

var socrataLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// EventsConfig configures the city events source
type EventsConfig struct {
	// BaseURL overrides https://<Domain>
	BaseURL string
	Domain  string
	Dataset string
	// Start and End bound event start times to [Start, End)
	Start    time.Time
	End      time.Time
	PageSize int
	// Location of the naive event timestamps
	Location *time.Location
}

type EventsSource struct {
	cfg    EventsConfig
	client *Client
}

func NewEventsSource(cfg EventsConfig, client *Client) (*EventsSource, error) {
	if cfg.Location == nil {
		return nil, ErrNoLocation
	}
	if cfg.Domain == "" {
		cfg.Domain = DefaultSocrataDomain
	}
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultEventsDataset
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://" + cfg.Domain
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultEventsPage
	}
	return &EventsSource{cfg: cfg, client: client}, nil
}

type socrataEvent struct {
	Start string `json:"start_date_time"`
	End   string `json:"end_date_time"`
}

// URL returns the request for the page starting at offset
func (es *EventsSource) URL(offset int) string {
	const floating = "2006-01-02T15:04:05"
	start := es.cfg.Start.In(es.cfg.Location).Format(floating)
	end := es.cfg.End.In(es.cfg.Location).Format(floating)

	values := url.Values{}
	values.Set("$select", "start_date_time,end_date_time")
	values.Set("$where", fmt.Sprintf("start_date_time >= '%s' AND start_date_time < '%s'", start, end))
	values.Set("$order", ":id")
	values.Set("$limit", strconv.Itoa(es.cfg.PageSize))
	values.Set("$offset", strconv.Itoa(offset))
	return fmt.Sprintf("%s/resource/%s.json?%s", es.cfg.BaseURL, es.cfg.Dataset, values.Encode())
}

const (
	startColumn = "start_date_time"

	// maxUnreadableEventShare is the share of records without a readable start above which the
	// dataset no longer matches the expected schema
	maxUnreadableEventShare = 0.5
)

// Fetch pages through the dataset and returns every event as an interval. A missing end time
// makes the event a single instant. A page where no record has a readable start, or a dataset
// where most records lack one, is a schema violation.
func (es *EventsSource) Fetch(ctx context.Context) ([]aggregate.Interval, error) {
	var intervals []aggregate.Interval
	var skipped, total int
	for offset := 0; ; offset += es.cfg.PageSize {
		page, err := es.fetchPage(ctx, offset)
		if err != nil {
			return nil, err
		}
		var readable int
		for _, ev := range page {
			iv, ok := es.interval(ev)
			if !ok {
				skipped++
				continue
			}
			readable++
			intervals = append(intervals, iv)
		}
		total += len(page)
		if len(page) > 0 && readable == 0 {
			return nil, fmt.Errorf(
				"events page at %d has no readable %s in %d records, %w",
				offset, startColumn, len(page), ErrSchemaViolation,
			)
		}
		slog.Debug("fetched events page", "offset", offset, "records", len(page))
		if len(page) < es.cfg.PageSize {
			break
		}
	}
	if skipped > 0 {
		if float64(skipped) > maxUnreadableEventShare*float64(total) {
			return nil, fmt.Errorf(
				"%d of %d events without a readable %s, %w",
				skipped, total, startColumn, ErrSchemaViolation,
			)
		}
		slog.Warn("skipped events without a readable start time", "count", skipped, "total", total)
	}
	return intervals, nil
}

func (es *EventsSource) fetchPage(ctx context.Context, offset int) ([]socrataEvent, error) {
	resp, err := es.client.Get(ctx, es.URL(offset))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var page []socrataEvent
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("events page at %d, %w: %s", offset, ErrSchemaViolation, err.Error())
	}
	return page, nil
}

func (es *EventsSource) interval(ev socrataEvent) (aggregate.Interval, bool) {
	start, ok := parseFloating(ev.Start, es.cfg.Location)
	if !ok {
		return aggregate.Interval{}, false
	}
	iv := aggregate.Interval{Start: start}
	if end, ok := parseFloating(ev.End, es.cfg.Location); ok {
		iv.End = end
	}
	return iv, true
}

func parseFloating(s string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range socrataLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
