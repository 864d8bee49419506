package source

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte("hello"))
		case "/missing":
			http.NotFound(w, r)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{Name: "test", Timeout: time.Second}, nil)

	resp, err := c.Get(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	_, err = c.Get(context.Background(), srv.URL+"/missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Get(context.Background(), srv.URL+"/broken")
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestClientBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{
		Name:                   "test",
		Timeout:                time.Second,
		MaxConsecutiveFailures: 2,
		OpenTimeout:            time.Hour,
	}, nil)

	// not found answers never open the breaker
	for i := 0; i < 5; i++ {
		_, err := c.Get(context.Background(), srv.URL+"/missing")
		require.ErrorIs(t, err, ErrNotFound)
	}

	for i := 0; i < 2; i++ {
		_, err := c.Get(context.Background(), srv.URL+"/fail")
		require.ErrorIs(t, err, ErrUnexpectedStatus)
	}
	require.Equal(t, int32(7), hits.Load())

	_, err := c.Get(context.Background(), srv.URL+"/fail")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(7), hits.Load())
}
