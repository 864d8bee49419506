package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/aouyang1/go-ridedemand/aggregate"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsFetchPages(t *testing.T) {
	records := []map[string]string{
		{"start_date_time": "2024-01-01T10:00:00.000", "end_date_time": "2024-01-01T12:00:00.000"},
		{"start_date_time": "2024-01-02T09:00:00.000"},
		{"start_date_time": "not a time", "end_date_time": "2024-01-01T12:00:00.000"},
		{"start_date_time": "2024-01-03T00:00:00", "end_date_time": "2024-01-02T00:00:00"},
		{"start_date_time": "2024-01-04"},
	}

	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "/resource/bkfu-528j.json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t,
			"start_date_time >= '2024-01-01T00:00:00' AND start_date_time < '2025-01-01T00:00:00'",
			q.Get("$where"),
		)
		limit, err := strconv.Atoi(q.Get("$limit"))
		assert.NoError(t, err)
		offset, err := strconv.Atoi(q.Get("$offset"))
		assert.NoError(t, err)

		end := min(offset+limit, len(records))
		page := records[min(offset, len(records)):end]
		out, err := json.Marshal(page)
		assert.NoError(t, err)
		w.Write(out)
	}))
	defer srv.Close()

	es, err := NewEventsSource(EventsConfig{
		BaseURL:  srv.URL,
		Start:    time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC),
		End:      time.Date(2025, 1, 1, 5, 0, 0, 0, time.UTC),
		PageSize: 2,
		Location: est,
	}, NewClient(ClientConfig{Name: "events"}, nil))
	require.NoError(t, err)

	intervals, err := es.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, requests)

	expected := []aggregate.Interval{
		{Start: time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC), End: time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC)},
		{Start: time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC)},
		{Start: time.Date(2024, 1, 3, 5, 0, 0, 0, time.UTC), End: time.Date(2024, 1, 2, 5, 0, 0, 0, time.UTC)},
		{Start: time.Date(2024, 1, 4, 5, 0, 0, 0, time.UTC)},
	}
	assert.Equal(t, expected, intervals)
}

func TestEventsFetchExactPageMultiple(t *testing.T) {
	var offsets []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset := r.URL.Query().Get("$offset")
		offsets = append(offsets, offset)
		if offset == "0" {
			fmt.Fprint(w, `[{"start_date_time": "2024-01-01T10:00:00.000"}]`)
			return
		}
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	es, err := NewEventsSource(EventsConfig{BaseURL: srv.URL, PageSize: 1, Location: est}, NewClient(ClientConfig{Name: "events"}, nil))
	require.NoError(t, err)

	intervals, err := es.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, intervals, 1)
	assert.Equal(t, []string{"0", "1"}, offsets)
}

func TestEventsFetchBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": true}`)
	}))
	defer srv.Close()

	es, err := NewEventsSource(EventsConfig{BaseURL: srv.URL, Location: est}, NewClient(ClientConfig{Name: "events"}, nil))
	require.NoError(t, err)

	_, err = es.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrSchemaViolation)
}

func TestEventsFetchUnreadableStarts(t *testing.T) {
	testData := map[string]struct {
		payload string
		err     error
		count   int
	}{
		"missing start column": {
			payload: `[{"end_date_time": "2024-01-01T12:00:00.000"}, {"end_date_time": "2024-01-02T12:00:00.000"}]`,
			err:     ErrSchemaViolation,
		},
		"unknown layout": {
			payload: `[{"start_date_time": "01/01/2024 10:00 AM"}, {"start_date_time": "01/02/2024 10:00 AM"}]`,
			err:     ErrSchemaViolation,
		},
		"mostly unreadable": {
			payload: `[{"start_date_time": "2024-01-01T10:00:00"}, {"start_date_time": "x"}, {"start_date_time": "y"}]`,
			err:     ErrSchemaViolation,
		},
		"few unreadable": {
			payload: `[{"start_date_time": "2024-01-01T10:00:00"}, {"start_date_time": "2024-01-02T10:00:00"}, {"start_date_time": "y"}]`,
			count:   2,
		},
		"empty dataset": {
			payload: `[]`,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, td.payload)
			}))
			defer srv.Close()

			es, err := NewEventsSource(EventsConfig{BaseURL: srv.URL, Location: est}, NewClient(ClientConfig{Name: "events"}, nil))
			require.NoError(t, err)

			intervals, err := es.Fetch(context.Background())
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, intervals, td.count)
		})
	}
}
