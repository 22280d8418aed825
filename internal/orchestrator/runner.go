// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/inquiry-engine/pkg/types"
)

// runner carries the mutable bookkeeping of one run.
type runner struct {
	res  *types.OrchestratorResult
	emit func(types.Event)
	log  *zap.Logger
}

func (r *runner) event(typ types.EventType, stage, msg string, data any) {
	r.emit(types.Event{
		Type:      typ,
		State:     r.res.State,
		Stage:     stage,
		Message:   msg,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// enter moves the run into state and announces the stage.
func (r *runner) enter(state types.PipelineState, stage, msg string) {
	r.res.State = state
	r.event(types.EventProgress, stage, msg, nil)
}

// record appends the AgentResult for one stage execution.
func (r *runner) record(stage string, start time.Time, out any, err error) {
	a := types.AgentResult{
		Stage:    stage,
		Status:   types.StatusComplete,
		Output:   out,
		Duration: time.Since(start),
	}
	if err != nil {
		a.Status = types.StatusError
		a.Error = err.Error()
		r.log.Warn("stage failed", zap.String("stage", stage), zap.Error(err))
	} else {
		r.log.Debug("stage complete", zap.String("stage", stage), zap.Duration("duration", a.Duration))
	}
	r.res.Agents = append(r.res.Agents, a)
}

// cancelled moves the run into the error state when ctx is done.
func (r *runner) cancelled(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		r.fail(err)
		return true
	}
	return false
}

func (r *runner) fail(err error) {
	r.res.State = types.StateError
	r.res.Metadata[types.MetaError] = err.Error()
	r.event(types.EventError, "", err.Error(), nil)
}
