package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

const (
	DefaultTimeout                = 60 * time.Second
	DefaultMaxConsecutiveFailures = 5
)

// ClientConfig configures the HTTP access to a publisher
type ClientConfig struct {
	Name                   string
	Timeout                time.Duration
	MaxConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before letting a probe request through
	OpenTimeout time.Duration
}

// Client issues bounded GET requests behind a circuit breaker. A 404 is an answer, not a
// transport failure, and does not count towards opening the breaker. Requests are never retried.
type Client struct {
	hc      *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewClient(cfg ClientConfig, hc *http.Client) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxConsecutiveFailures == 0 {
		cfg.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
	if hc == nil {
		hc = &http.Client{}
	}
	hc.Timeout = cfg.Timeout

	maxFailures := cfg.MaxConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return &Client{hc: hc, circuit: cb}
}

// Get returns the response of a successful request. The caller closes the body.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	result, err := c.circuit.Execute(func() (interface{}, error) {
		resp, err := c.hc.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusNotFound {
			drain(resp)
			return nil, fmt.Errorf("%s, %w", url, ErrNotFound)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			drain(resp)
			return nil, fmt.Errorf("%s returned %d, %w", url, resp.StatusCode, ErrUnexpectedStatus)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s, %w: %s", url, ErrCircuitOpen, err.Error())
		}
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T from circuit breaker", result)
	}
	return resp, nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
