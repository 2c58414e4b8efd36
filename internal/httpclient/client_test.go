package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastClient(retries int) *Client {
	return New(Config{Token: "t0k", MaxRetries: retries, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond})
}

func TestDoJSONRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer t0k", r.Header.Get("Authorization"))
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, fastClient(3).DoJSON(context.Background(), http.MethodGet, srv.URL, nil, &out))
	assert.True(t, out.OK)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestDoJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	err := fastClient(3).DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Status)
	assert.Equal(t, "nope", se.Body)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestDoJSONSendsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := fastClient(0).DoJSON(context.Background(), http.MethodPost, srv.URL, map[string]string{"a": "b"}, &struct{}{})
	assert.NoError(t, err)
}

func TestDoJSONHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := fastClient(5).DoJSON(ctx, http.MethodGet, srv.URL, nil, nil)
	assert.Error(t, err)
}
