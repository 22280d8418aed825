// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package verify cross-checks claims against sources.
//
// Each source is assessed independently by a model call routed on that
// source together with the claim's own marker, so a public claim checked
// against a public source may go to the cloud while anything touching a
// confidential document stays local. Per-source checks run concurrently and are
// gathered back in source order before the verdict is computed. A failed
// check counts as a neutral source with zero reliability.
package verify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/inquiry-engine/internal/llm"
	"github.com/pdiddy/inquiry-engine/internal/router"
	"github.com/pdiddy/inquiry-engine/pkg/types"
)

const (
	defaultConcurrency = 4
	excerptLen         = 300
)

// Options configure a Stage.
type Options struct {
	// MaxClaims caps the claims checked by VerifyFindings (default 3).
	MaxClaims int

	// MaxSources caps the sources consulted per claim (default 5).
	MaxSources int

	// Concurrency bounds in-flight model calls (default 4).
	Concurrency int

	// DetectInconsistencies enables the pairwise check in VerifyFindings.
	DetectInconsistencies bool
}

// OptionsFromConfig converts verification configuration into Options.
func OptionsFromConfig(cfg types.VerificationConfig) Options {
	return Options{
		MaxClaims:             cfg.MaxClaims,
		MaxSources:            cfg.MaxSources,
		Concurrency:           cfg.Concurrency,
		DetectInconsistencies: cfg.DetectInconsistencies,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxClaims <= 0 {
		o.MaxClaims = 3
	}
	if o.MaxSources <= 0 {
		o.MaxSources = 5
	}
	if o.Concurrency <= 0 {
		o.Concurrency = defaultConcurrency
	}
	return o
}

// Stage is the verification stage.
type Stage struct {
	gw   *llm.Gateway
	opts Options
	log  *zap.Logger
}

// New creates a verification Stage.
func New(gw *llm.Gateway, opts Options, log *zap.Logger) *Stage {
	if log == nil {
		log = zap.NewNop()
	}
	return &Stage{gw: gw, opts: opts.withDefaults(), log: log.Named("verify")}
}

// Claim is a statement to verify together with the confidentiality marker
// of the document it was taken from. The zero Bucket is treated as
// confidential, so a claim of unknown origin never reaches the cloud.
type Claim struct {
	Text   string
	Bucket types.Bucket
}

// ClaimFrom returns the leading-sentence claim of a finding, marked with
// the finding's bucket.
func ClaimFrom(f types.Finding) Claim {
	return Claim{Text: leadingSentence(f.Text), Bucket: f.Bucket}
}

// PublicClaims marks caller-supplied statements as public.
func PublicClaims(texts ...string) []Claim {
	out := make([]Claim, len(texts))
	for i, t := range texts {
		out[i] = Claim{Text: t, Bucket: types.BucketPublic}
	}
	return out
}

// assessment is one source's judgement of a claim.
type assessment struct {
	evidence types.Evidence
	backend  types.BackendLabel
}

type stanceResponse struct {
	Stance      string  `json:"stance"`
	Reliability float64 `json:"reliability"`
	Excerpt     string  `json:"excerpt"`
}

// Verify checks claim against sources. The only error returned is the
// context's when the run is cancelled; individual source failures are
// absorbed as neutral evidence.
func (s *Stage) Verify(ctx context.Context, claim Claim, sources []types.Finding) (types.VerificationResult, error) {
	if len(sources) > s.opts.MaxSources {
		sources = sources[:s.opts.MaxSources]
	}

	assessments := make([]assessment, len(sources))
	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, src := range sources {
		g.Go(func() error {
			assessments[i] = s.assess(ctx, claim, src)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return types.VerificationResult{Claim: claim.Text, Verdict: types.VerdictInconclusive}, err
	}

	return aggregate(claim.Text, assessments), nil
}

func (s *Stage) assess(ctx context.Context, claim Claim, src types.Finding) assessment {
	neutral := types.Evidence{
		DocumentID:   src.DocumentID,
		DocumentName: src.DocumentName,
		Bucket:       src.Bucket,
		Stance:       types.StanceNeutral,
	}

	prompt, err := llm.Render(stancePromptTmpl, struct {
		Claim  string
		Source types.Finding
	}{claim.Text, src})
	if err != nil {
		s.log.Warn("stance fallback", zap.Error(err))
		return assessment{evidence: neutral, backend: types.BackendUnknown}
	}

	batch := router.FindingsBatch([]types.Finding{src}, claim.Text)
	batch.Items = append(batch.Items, claim.Bucket)

	resp, c, err := llm.CompleteJSON[stanceResponse](ctx, s.gw, llm.Call{
		Stage:    types.StageVerifier,
		Batch:    batch,
		Messages: []llm.Message{llm.System(systemPrompt), llm.User(prompt)},
		Options:  llm.Options{Temperature: 0, MaxTokens: 400},
	})
	if err != nil {
		s.log.Warn("stance fallback",
			zap.String("document", src.DocumentID),
			zap.Error(err),
		)
		return assessment{evidence: neutral, backend: c.Label()}
	}

	ev := neutral
	ev.Stance = ParseStance(resp.Stance)
	ev.Reliability = types.Clamp01(resp.Reliability)
	ev.Excerpt = llm.Truncate(resp.Excerpt, excerptLen)
	if ev.Excerpt == "" {
		ev.Excerpt = llm.Truncate(src.Text, excerptLen)
	}
	return assessment{evidence: ev, backend: c.Label()}
}

// ParseStance maps a model's stance string onto a Stance, defaulting to neutral.
func ParseStance(s string) types.Stance {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "support"):
		return types.StanceSupports
	case strings.HasPrefix(s, "contradict"), strings.HasPrefix(s, "refute"):
		return types.StanceContradicts
	default:
		return types.StanceNeutral
	}
}

// aggregate computes the verdict, confidence, reliability, and notes from
// per-source assessments given in source order.
func aggregate(claim string, assessments []assessment) types.VerificationResult {
	res := types.VerificationResult{
		Claim:         claim,
		Supporting:    []types.Evidence{},
		Contradicting: []types.Evidence{},
		SourceCount:   len(assessments),
	}

	var reliability float64
	for _, a := range assessments {
		reliability += a.evidence.Reliability
		res.Backends = append(res.Backends, a.backend)
		switch a.evidence.Stance {
		case types.StanceSupports:
			res.Supporting = append(res.Supporting, a.evidence)
		case types.StanceContradicts:
			res.Contradicting = append(res.Contradicting, a.evidence)
		}
	}

	support, contradict := len(res.Supporting), len(res.Contradicting)
	res.Verdict = Verdict(support, contradict)
	res.Confidence = Confidence(support, contradict, res.SourceCount)
	if res.SourceCount > 0 {
		res.Reliability = types.Clamp01(reliability / float64(res.SourceCount))
	}
	res.Notes = Notes(support, contradict, res.SourceCount, res.Reliability)
	return res
}

// Verdict applies the majority rule; ties are inconclusive.
func Verdict(support, contradict int) types.Verdict {
	switch {
	case support > contradict:
		return types.VerdictVerified
	case contradict > support:
		return types.VerdictContradicted
	default:
		return types.VerdictInconclusive
	}
}

// Confidence maps the support margin over total sources onto [0,1].
func Confidence(support, contradict, total int) float64 {
	if total <= 0 {
		return 0
	}
	return types.Clamp01((float64(support-contradict)/float64(total) + 1) / 2)
}

// Notes renders a deterministic summary of the counts and reliability band.
func Notes(support, contradict, total int, reliability float64) string {
	var b strings.Builder
	switch {
	case support == 0 && contradict == 0:
		b.WriteString("No supporting or contradicting evidence found; needs further investigation.")
	case support == contradict:
		fmt.Fprintf(&b, "Evidence is disputed: %d supporting and %d contradicting of %d sources.", support, contradict, total)
	case support > contradict:
		fmt.Fprintf(&b, "Supported by %d of %d sources (%d contradicting).", support, total, contradict)
	default:
		fmt.Fprintf(&b, "Contradicted by %d of %d sources (%d supporting).", contradict, total, support)
	}
	if total > 0 {
		fmt.Fprintf(&b, " Source reliability is %s (%.2f).", ReliabilityBand(reliability), reliability)
	}
	return b.String()
}

// ReliabilityBand names the band a mean reliability falls in.
func ReliabilityBand(r float64) string {
	switch {
	case r >= 0.7:
		return "high"
	case r >= 0.4:
		return "moderate"
	default:
		return "low"
	}
}

// VerifyAll verifies claims one after another against the same sources.
func (s *Stage) VerifyAll(ctx context.Context, claims []Claim, sources []types.Finding) ([]types.VerificationResult, error) {
	results := make([]types.VerificationResult, 0, len(claims))
	for _, claim := range claims {
		res, err := s.Verify(ctx, claim, sources)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// EvidenceSources converts evidence records into findings so they can be
// used as verification sources. Buckets are preserved.
func EvidenceSources(evidence []types.Evidence) []types.Finding {
	out := make([]types.Finding, len(evidence))
	for i, e := range evidence {
		out[i] = types.Finding{
			DocumentID:   e.DocumentID,
			DocumentName: e.DocumentName,
			Bucket:       e.Bucket,
			Text:         e.Excerpt,
			Score:        e.Reliability,
		}
	}
	return out
}
