// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	RetryBaseDelay = time.Millisecond
}

// scripted replies with statuses in order, repeating the last one, and
// records every request body it receives.
type scripted struct {
	statuses []int

	mu     sync.Mutex
	bodies []string
}

func (s *scripted) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	n := len(s.bodies)
	s.bodies = append(s.bodies, string(b))
	s.mu.Unlock()

	if n >= len(s.statuses) {
		n = len(s.statuses) - 1
	}
	w.WriteHeader(s.statuses[n])
}

func (s *scripted) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bodies)
}

func TestDoWithRetry(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []int
		maxRetries int
		wantStatus int
		wantCalls  int
	}{
		{"first attempt succeeds", []int{200}, 3, 200, 1},
		{"throttled then ok", []int{429, 429, 200}, 3, 200, 3},
		{"overloaded then ok", []int{503, 200}, 3, 200, 2},
		{"retries exhausted returns last response", []int{429}, 2, 429, 3},
		{"zero uses default retries", []int{503}, 0, 503, defaultMaxRetries + 1},
		{"server error is not retried", []int{500, 200}, 3, 500, 1},
		{"client error is not retried", []int{401, 200}, 3, 401, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := &scripted{statuses: tt.statuses}
			ts := httptest.NewServer(srv)
			defer ts.Close()

			req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
			require.NoError(t, err)

			resp, err := DoWithRetry(context.Background(), ts.Client(), req, tt.maxRetries)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, srv.calls())
		})
	}
}

func TestDoWithRetry_ReplaysBody(t *testing.T) {
	srv := &scripted{statuses: []int{429, 503, 200}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL, strings.NewReader(`{"model":"m"}`))
	require.NoError(t, err)

	resp, err := DoWithRetry(context.Background(), ts.Client(), req, 3)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, []string{`{"model":"m"}`, `{"model":"m"}`, `{"model":"m"}`}, srv.bodies)
}

func TestDoWithRetry_CancelledDuringBackoff(t *testing.T) {
	old := RetryBaseDelay
	RetryBaseDelay = time.Second
	defer func() { RetryBaseDelay = old }()

	srv := &scripted{statuses: []int{429}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	_, err = DoWithRetry(ctx, ts.Client(), req, 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, srv.calls())
}
