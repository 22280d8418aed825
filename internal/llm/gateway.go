// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/inquiry-engine/internal/router"
	"github.com/pdiddy/inquiry-engine/pkg/types"
)

// backoffBase controls the base duration for exponential backoff between
// retried model calls. Tests override this to avoid real sleeps.
var backoffBase = time.Second

// Call is one model invocation issued by a stage.
type Call struct {
	// Stage names the caller for the routing log.
	Stage string

	// Batch is the content the call will expose to the backend.
	Batch router.Batch

	Messages []Message
	Options  Options
}

// Completion is a model response together with the routing decision that
// produced it.
type Completion struct {
	Text     string
	Decision router.Decision
}

// Label returns the backend label for the completion's routing decision.
func (c Completion) Label() types.BackendLabel {
	return c.Decision.Backend.Label()
}

// Gateway consults the router before every model call and dispatches to the
// chosen backend with a per-call timeout and bounded retries.
type Gateway struct {
	router  *router.Router
	cloud   Backend
	local   Backend
	timeout time.Duration
	retries int
	log     *zap.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithTimeout sets the per-attempt deadline. Zero disables it.
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) { g.timeout = d }
}

// WithRetries sets how many times a failed call is retried.
func WithRetries(n int) GatewayOption {
	return func(g *Gateway) { g.retries = n }
}

// WithLogger sets the gateway logger.
func WithLogger(log *zap.Logger) GatewayOption {
	return func(g *Gateway) { g.log = log }
}

// NewGateway creates a Gateway. Either backend may be nil; a call routed to
// a missing backend fails with types.ErrBackendUnavailable and is never
// redirected to the other backend.
func NewGateway(r *router.Router, cloud, local Backend, opts ...GatewayOption) *Gateway {
	g := &Gateway{router: r, cloud: cloud, local: local, log: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Router returns the router the gateway consults.
func (g *Gateway) Router() *router.Router { return g.router }

// Complete routes and executes call. The returned Completion carries the
// routing decision even when err is non-nil.
func (g *Gateway) Complete(ctx context.Context, call Call) (Completion, error) {
	decision := g.router.Choose(ctx, call.Stage, call.Batch)
	out := Completion{Decision: decision}

	backend := g.cloud
	if decision.Backend == router.Local {
		backend = g.local
	}
	if backend == nil {
		return out, fmt.Errorf("%w: no %s backend configured", types.ErrBackendUnavailable, decision.Backend)
	}

	text, err := g.callWithRetry(ctx, backend, call)
	if err != nil {
		g.log.Warn("model call failed",
			zap.String("stage", call.Stage),
			zap.String("backend", backend.Name()),
			zap.Error(err),
		)
		return out, err
	}
	out.Text = text
	return out, nil
}

// callWithRetry calls backend with exponential backoff. Cancellation of the
// parent context ends retries immediately.
func (g *Gateway) callWithRetry(ctx context.Context, backend Backend, call Call) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= g.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, err := g.attempt(ctx, backend, call)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	if g.retries == 0 {
		return "", lastErr
	}
	return "", fmt.Errorf("after %d retries: %w", g.retries, lastErr)
}

func (g *Gateway) attempt(ctx context.Context, backend Backend, call Call) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	text, err := backend.Complete(ctx, call.Messages, call.Options)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, types.ErrBackendUnavailable) {
			return "", fmt.Errorf("%w: %s timed out: %w", types.ErrBackendUnavailable, backend.Name(), err)
		}
		return "", err
	}
	return text, nil
}

// CompleteJSON executes call and decodes the response into T.
func CompleteJSON[T any](ctx context.Context, g *Gateway, call Call) (T, Completion, error) {
	var v T
	c, err := g.Complete(ctx, call)
	if err != nil {
		return v, c, err
	}
	if err := DecodeJSON(c.Text, &v); err != nil {
		return v, c, err
	}
	return v, c, nil
}
