// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/inquiry-engine/internal/router"
	"github.com/pdiddy/inquiry-engine/pkg/types"
)

func TestMain(m *testing.M) {
	// Override backoff to avoid real sleeps in retry tests.
	backoffBase = time.Millisecond
	os.Exit(m.Run())
}

// failNTimesBackend fails its first `failures` calls then succeeds.
type failNTimesBackend struct {
	name      string
	failures  int
	callCount int
	reply     string
	delay     time.Duration
}

func (f *failNTimesBackend) Name() string { return f.name }

func (f *failNTimesBackend) Complete(ctx context.Context, _ []Message, _ Options) (string, error) {
	f.callCount++
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.callCount <= f.failures {
		return "", fmt.Errorf("%w: transient error (call %d)", types.ErrBackendUnavailable, f.callCount)
	}
	return f.reply, nil
}

func publicBatch() router.Batch {
	return router.FindingsBatch([]types.Finding{{DocumentID: "p", Bucket: types.BucketPublic}})
}

func confidentialBatch() router.Batch {
	return router.FindingsBatch([]types.Finding{{DocumentID: "c", Bucket: types.BucketConfidential}})
}

func TestGateway_RoutesByBatch(t *testing.T) {
	cloud := &failNTimesBackend{name: "cloud", reply: "from cloud"}
	local := &failNTimesBackend{name: "local", reply: "from local"}
	g := NewGateway(router.New(nil, nil), cloud, local)

	c, err := g.Complete(context.Background(), Call{Stage: "s", Batch: publicBatch()})
	require.NoError(t, err)
	assert.Equal(t, "from cloud", c.Text)
	assert.Equal(t, types.BackendCloud, c.Label())

	c, err = g.Complete(context.Background(), Call{Stage: "s", Batch: confidentialBatch()})
	require.NoError(t, err)
	assert.Equal(t, "from local", c.Text)
	assert.Equal(t, types.BackendLocal, c.Label())

	assert.Equal(t, 1, cloud.callCount)
	assert.Equal(t, 1, local.callCount)
}

func TestGateway_NoFallbackAcrossBackends(t *testing.T) {
	cloud := &failNTimesBackend{name: "cloud", reply: "leak"}
	local := &failNTimesBackend{name: "local", failures: 100}
	g := NewGateway(router.New(nil, nil), cloud, local, WithRetries(1))

	c, err := g.Complete(context.Background(), Call{Stage: "s", Batch: confidentialBatch()})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrBackendUnavailable)
	assert.Equal(t, router.Local, c.Decision.Backend)
	assert.Zero(t, cloud.callCount, "confidential call never reaches cloud")
	assert.Equal(t, 2, local.callCount)
}

func TestGateway_MissingBackend(t *testing.T) {
	g := NewGateway(router.New(nil, nil), &failNTimesBackend{name: "cloud"}, nil)
	_, err := g.Complete(context.Background(), Call{Stage: "s", Batch: confidentialBatch()})
	assert.ErrorIs(t, err, types.ErrBackendUnavailable)
}

func TestGateway_Retry(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		retries  int
		wantErr  bool
	}{
		{"succeeds first try", 0, 2, false},
		{"succeeds after 2 failures", 2, 2, false},
		{"fails after exhausting retries", 3, 2, true},
		{"no retries", 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &failNTimesBackend{name: "cloud", failures: tt.failures, reply: "ok"}
			g := NewGateway(router.New(nil, nil), b, b, WithRetries(tt.retries))

			_, err := g.Complete(context.Background(), Call{Stage: "s", Batch: publicBatch()})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestGateway_Timeout(t *testing.T) {
	b := &failNTimesBackend{name: "slow", delay: time.Second, reply: "late"}
	g := NewGateway(router.New(nil, nil), b, b, WithTimeout(10*time.Millisecond))

	start := time.Now()
	_, err := g.Complete(context.Background(), Call{Stage: "s", Batch: publicBatch()})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrBackendUnavailable)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestGateway_CancelledContext(t *testing.T) {
	b := &failNTimesBackend{name: "slow", delay: time.Second}
	g := NewGateway(router.New(nil, nil), b, b, WithRetries(3))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Complete(ctx, Call{Stage: "s", Batch: publicBatch()})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, b.callCount)
}

func TestCompleteJSON(t *testing.T) {
	type payload struct {
		IsClear bool `json:"is_clear"`
	}
	b := &failNTimesBackend{name: "cloud", reply: "```json\n{\"is_clear\": true}\n```"}
	g := NewGateway(router.New(nil, nil), b, b)

	v, c, err := CompleteJSON[payload](context.Background(), g, Call{Stage: "s", Batch: publicBatch()})
	require.NoError(t, err)
	assert.True(t, v.IsClear)
	assert.Equal(t, router.Cloud, c.Decision.Backend)

	b.reply = "not json"
	_, _, err = CompleteJSON[payload](context.Background(), g, Call{Stage: "s", Batch: publicBatch()})
	assert.ErrorIs(t, err, types.ErrParseFailure)
}
