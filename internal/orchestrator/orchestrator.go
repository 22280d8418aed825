// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orchestrator sequences the clarification, research, verification,
// and answer stages for one request.
//
// Runs move through idle, clarifying, researching, verifying, answering, and
// complete. An ambiguous question stops the run in clarifying. Stage
// failures are recorded as AgentResults and the run continues; only
// cancellation or a panic ends in the error state. Callers always receive a
// structured result and tell outcomes apart by State and Metadata.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/inquiry-engine/internal/answer"
	"github.com/pdiddy/inquiry-engine/internal/clarify"
	"github.com/pdiddy/inquiry-engine/internal/research"
	"github.com/pdiddy/inquiry-engine/pkg/types"
)

const streamBuffer = 16

// Clarifier is the clarification stage.
type Clarifier interface {
	Clarify(ctx context.Context, in clarify.Input) (types.ClarificationResult, error)
}

// Researcher is the research stage.
type Researcher interface {
	Research(ctx context.Context, in research.Input) (types.ResearchResult, error)
}

// Verifier is the verification stage.
type Verifier interface {
	VerifyFindings(ctx context.Context, findings []types.Finding) (types.VerificationReport, error)
}

// Answerer is the answer stage.
type Answerer interface {
	Answer(ctx context.Context, in answer.Input) (types.AnswerResult, error)
}

// AuditFunc receives the confidential document ids surfaced for a user.
type AuditFunc func(ctx context.Context, userID string, documentIDs []string) error

// Stages are the collaborators an Orchestrator drives. Audit is optional.
type Stages struct {
	Clarifier  Clarifier
	Researcher Researcher
	Verifier   Verifier
	Answerer   Answerer
	Audit      AuditFunc
}

// Options configure an Orchestrator.
type Options struct {
	// MaxFindings is the findings ceiling used when a request sets none.
	MaxFindings int

	// UseGraph enables graph augmentation unless a request disables it.
	UseGraph bool
}

// OptionsFromConfig derives Options from engine configuration.
func OptionsFromConfig(cfg types.EngineConfig) Options {
	return Options{MaxFindings: cfg.Research.MaxFindings, UseGraph: cfg.Research.UseGraph}
}

// Orchestrator runs requests through the stage pipeline. It holds no
// per-run state and is safe for concurrent use.
type Orchestrator struct {
	stages Stages
	opts   Options
	log    *zap.Logger
}

// New creates an Orchestrator.
func New(stages Stages, opts Options, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{stages: stages, opts: opts, log: log.Named("orchestrator")}
}

// Run executes req and returns the aggregate result. Progress events are
// delivered to req.Progress, in stage order, before Run returns.
func (o *Orchestrator) Run(ctx context.Context, req types.Request) types.OrchestratorResult {
	emit := func(types.Event) {}
	if req.Progress != nil {
		emit = req.Progress
	}
	return o.run(ctx, req, emit)
}

// Stream executes req in the background and delivers its events on the
// returned channel, which is closed after the final complete, clarification
// or error event. Callers must drain the channel.
func (o *Orchestrator) Stream(ctx context.Context, req types.Request) <-chan types.Event {
	ch := make(chan types.Event, streamBuffer)
	go func() {
		defer close(ch)
		o.run(ctx, req, func(ev types.Event) { ch <- ev })
	}()
	return ch
}

// run is the state machine shared by Run and Stream.
func (o *Orchestrator) run(ctx context.Context, req types.Request, emit func(types.Event)) (res types.OrchestratorResult) {
	start := time.Now()
	runID := uuid.NewString()
	log := o.log.With(zap.String("run_id", runID))
	res = types.OrchestratorResult{
		Query:  req.Query,
		Agents: []types.AgentResult{},
		State:  types.StateIdle,
		Metadata: map[string]any{
			types.MetaRunID:          runID,
			types.MetaNeedsUserInput: false,
		},
	}
	r := &runner{res: &res, emit: emit, log: log}

	defer func() {
		if p := recover(); p != nil {
			log.Error("run panicked", zap.Any("panic", p))
			r.fail(fmt.Errorf("%w: panic: %v", types.ErrStageFailure, p))
		}
		res.Duration = time.Since(start)
		res.Backend = finalBackend(&res)
		log.Info("run finished",
			zap.String("state", string(res.State)),
			zap.Int("agents", len(res.Agents)),
			zap.Duration("duration", res.Duration),
		)
	}()

	log.Info("run started", zap.Bool("clarify", req.RequireClarification), zap.Bool("verify", req.RequireVerification))

	var clar types.ClarificationResult
	if req.RequireClarification {
		if r.cancelled(ctx) {
			return res
		}
		r.enter(types.StateClarifying, types.StageClarifier, "Analyzing the question")
		t := time.Now()
		var err error
		clar, err = o.stages.Clarifier.Clarify(ctx, clarify.Input{
			Query:       req.Query,
			Context:     req.Context,
			History:     req.History,
			Preferences: req.Preferences,
		})
		r.record(types.StageClarifier, t, clar, err)
		res.Clarification = &clar

		if clar.NeedsUserInput() {
			res.Metadata[types.MetaNeedsUserInput] = true
			r.event(types.EventClarificationNeeded, types.StageClarifier, "Clarification needed", clar)
			return res
		}
	}

	if r.cancelled(ctx) {
		return res
	}
	r.enter(types.StateResearching, types.StageResearcher, "Searching the corpus")
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = o.opts.MaxFindings
	}
	t := time.Now()
	found, err := o.stages.Researcher.Research(ctx, research.Input{
		Query:          req.Query,
		ClarifiedQuery: clar.ClarifiedQuery,
		Filters:        clar.Filters,
		MaxResults:     maxResults,
		UseGraph:       o.opts.UseGraph && !req.DisableGraph,
		Requester:      req.UserID,
	})
	r.record(types.StageResearcher, t, found, err)
	res.Research = &found
	r.event(types.EventResearchUpdate, types.StageResearcher,
		fmt.Sprintf("Found %d findings from %d sources", len(found.Findings), len(found.Sources)), found)
	if r.cancelled(ctx) {
		return res
	}
	o.audit(ctx, log, req.UserID, found.Findings)

	report := types.VerificationReport{Results: []types.VerificationResult{}}
	if req.RequireVerification && len(found.Findings) > 0 {
		r.enter(types.StateVerifying, types.StageVerifier, "Verifying claims")
		t := time.Now()
		report, err = o.stages.Verifier.VerifyFindings(ctx, found.Findings)
		r.record(types.StageVerifier, t, report, err)
		r.event(types.EventVerificationUpdate, types.StageVerifier,
			fmt.Sprintf("Verified %d claims", len(report.Results)), report)
		if r.cancelled(ctx) {
			res.Verification = &report
			return res
		}
	}
	res.Verification = &report

	r.enter(types.StateAnswering, types.StageAnswerer, "Writing the answer")
	t = time.Now()
	ans, err := o.stages.Answerer.Answer(ctx, answer.Input{
		Query:           req.Query,
		Findings:        found.Findings,
		Verification:    report.Results,
		Inconsistencies: report.Inconsistencies,
		Context:         &found.Context,
		Style:           style(req.Preferences),
		Language:        req.Preferences["language"],
	})
	r.record(types.StageAnswerer, t, ans, err)
	if ans.Answer == "" {
		ans.Answer = "I'm sorry, I could not produce an answer to your question."
	}
	res.AnswerDetail = &ans
	res.Answer = ans.Answer
	if r.cancelled(ctx) {
		return res
	}

	res.State = types.StateComplete
	res.Metadata[types.MetaFindings] = len(found.Findings)
	res.Metadata[types.MetaEntities] = len(found.Entities)
	res.Metadata[types.MetaVerifiedClaims] = verifiedClaims(report)
	res.Metadata[types.MetaConfidence] = ans.Confidence
	r.event(types.EventComplete, "", "Run complete", ans)
	return res
}

// audit reports confidential findings to the audit hook. Failures are logged.
func (o *Orchestrator) audit(ctx context.Context, log *zap.Logger, userID string, findings []types.Finding) {
	if o.stages.Audit == nil {
		return
	}
	ids := ConfidentialSources(findings)
	if len(ids) == 0 {
		return
	}
	if err := o.stages.Audit(ctx, userID, ids); err != nil {
		log.Warn("confidential access audit failed", zap.Strings("documents", ids), zap.Error(err))
	}
}

// ConfidentialSources returns the distinct confidential document ids in
// findings, in finding order.
func ConfidentialSources(findings []types.Finding) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, f := range findings {
		if !f.Bucket.IsConfidential() || seen[f.DocumentID] {
			continue
		}
		seen[f.DocumentID] = true
		ids = append(ids, f.DocumentID)
	}
	return ids
}

func style(p types.Preferences) types.AnswerStyle {
	if p["style"] == "" {
		return ""
	}
	return p.Style()
}

func verifiedClaims(report types.VerificationReport) int {
	n := 0
	for _, v := range report.Results {
		if v.Verdict == types.VerdictVerified {
			n++
		}
	}
	return n
}

// finalBackend picks the research backend unless research is absent or
// failed, then the answer backend, then unknown.
func finalBackend(res *types.OrchestratorResult) types.BackendLabel {
	if res.Research != nil {
		switch b := res.Research.Backend; b {
		case "", types.BackendError, types.BackendUnknown:
		default:
			return b
		}
	}
	if res.AnswerDetail != nil && res.AnswerDetail.Backend != "" {
		return res.AnswerDetail.Backend
	}
	return types.BackendUnknown
}
