// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package answer synthesizes the final answer from research findings and
// verification results.
//
// Every model call in this stage is routed over the union of the findings
// and the verification evidence. One confidential item anywhere in that
// union keeps the whole stage on the local backend.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/inquiry-engine/internal/llm"
	"github.com/pdiddy/inquiry-engine/internal/router"
	"github.com/pdiddy/inquiry-engine/pkg/types"
)

const (
	minKeyPoints        = 3
	maxKeyPoints        = 5
	maxFollowUps        = 5
	maxSources          = 10
	maxFindingsInPrompt = 8
	highConfidence      = 0.7
	lowReliability      = 0.5
	contradictionScale  = 0.8
	findingSnippet      = 400
)

// Options hold stage defaults applied when an Input leaves them empty.
type Options struct {
	Style    types.AnswerStyle
	Language string
}

// OptionsFromConfig converts answer configuration into Options.
func OptionsFromConfig(cfg types.AnswerConfig) Options {
	return Options{Style: cfg.Style, Language: cfg.Language}
}

// Input is the answer stage input.
type Input struct {
	Query           string
	Findings        []types.Finding
	Verification    []types.VerificationResult
	Inconsistencies []types.Inconsistency
	Context         *types.ContextBundle
	Style           types.AnswerStyle
	Language        string
}

// Stage is the answer stage.
type Stage struct {
	gw   *llm.Gateway
	opts Options
	log  *zap.Logger
}

// New creates an answer Stage.
func New(gw *llm.Gateway, opts Options, log *zap.Logger) *Stage {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Style == "" {
		opts.Style = types.StyleComprehensive
	}
	if opts.Language == "" {
		opts.Language = "English"
	}
	return &Stage{gw: gw, opts: opts, log: log.Named("answer")}
}

// Answer produces the final answer. When generation itself fails the
// returned result is a user-facing apology with zero confidence and the
// error wraps types.ErrStageFailure; every other model failure degrades to
// a fallback value.
func (s *Stage) Answer(ctx context.Context, in Input) (types.AnswerResult, error) {
	if in.Style == "" {
		in.Style = s.opts.Style
	}
	if in.Language == "" {
		in.Language = s.opts.Language
	}
	batch := router.FindingsBatch(in.Findings, in.Query).WithEvidence(evidence(in.Verification))

	res := types.AnswerResult{
		Query:     in.Query,
		Type:      s.classify(ctx, in, batch),
		KeyPoints: []string{},
		Sources:   Sources(in.Findings, in.Verification),
		Caveats:   Caveats(in),
		FollowUps: []string{},
	}

	text, c, err := s.generate(ctx, in, res.Type, batch)
	res.Backend = c.Label()
	if err != nil {
		s.log.Warn("answer generation failed", zap.Error(err))
		res.Answer = apology(err)
		res.Confidence = 0
		res.FollowUps = FallbackFollowUps(in.Query)
		return res, fmt.Errorf("%w: generating answer: %w", types.ErrStageFailure, err)
	}
	res.Answer = text
	res.KeyPoints = s.keyPoints(ctx, text, batch)
	res.FollowUps = s.followUps(ctx, in.Query, text, batch)
	res.Confidence = Confidence(in)
	return res, nil
}

func (s *Stage) classify(ctx context.Context, in Input, batch router.Batch) types.AnswerType {
	prompt, err := llm.Render(classifyPromptTmpl, in)
	if err != nil {
		return types.AnswerFactual
	}
	resp, _, err := llm.CompleteJSON[struct {
		Type string `json:"type"`
	}](ctx, s.gw, llm.Call{
		Stage:    types.StageAnswerer,
		Batch:    batch,
		Messages: []llm.Message{llm.System(jsonSystemPrompt), llm.User(prompt)},
		Options:  llm.Options{Temperature: 0, MaxTokens: 50},
	})
	if err != nil {
		s.log.Warn("answer type fallback", zap.Error(err))
		return types.AnswerFactual
	}
	return types.ParseAnswerType(strings.ToLower(strings.TrimSpace(resp.Type)))
}

type generationData struct {
	Query            string
	Language         string
	StyleInstruction string
	Type             types.AnswerType
	Themes           []string
	Verified         []string
	Unverified       []string
	Contradicted     []string
	Conflicts        []string
	HighConfidence   []string
	Other            []string
}

// HasMaterial reports whether any findings or claims reach the prompt.
func (d generationData) HasMaterial() bool {
	return len(d.Verified)+len(d.Unverified)+len(d.Contradicted)+len(d.HighConfidence)+len(d.Other) > 0
}

// generationContext separates claims by verdict and findings by score.
func generationContext(in Input, typ types.AnswerType) generationData {
	d := generationData{
		Query:            in.Query,
		Language:         in.Language,
		StyleInstruction: styleInstructions[types.ParseAnswerStyle(string(in.Style))],
		Type:             typ,
	}
	if in.Context != nil {
		d.Themes = in.Context.Themes
	}
	for _, v := range in.Verification {
		switch v.Verdict {
		case types.VerdictVerified:
			d.Verified = append(d.Verified, v.Claim)
		case types.VerdictContradicted:
			d.Contradicted = append(d.Contradicted, v.Claim)
		default:
			d.Unverified = append(d.Unverified, v.Claim)
		}
	}
	for _, inc := range in.Inconsistencies {
		d.Conflicts = append(d.Conflicts, fmt.Sprintf("%s vs %s: %s", inc.First.DocumentName, inc.Second.DocumentName, inc.Description))
	}
	for i, f := range in.Findings {
		if i == maxFindingsInPrompt {
			break
		}
		line := fmt.Sprintf("[%s] %s", f.DocumentName, llm.Truncate(f.Text, findingSnippet))
		if f.Score > highConfidence {
			d.HighConfidence = append(d.HighConfidence, line)
		} else {
			d.Other = append(d.Other, line)
		}
	}
	return d
}

func (s *Stage) generate(ctx context.Context, in Input, typ types.AnswerType, batch router.Batch) (string, llm.Completion, error) {
	prompt, err := llm.Render(generatePromptTmpl, generationContext(in, typ))
	if err != nil {
		return "", llm.Completion{}, err
	}
	c, err := s.gw.Complete(ctx, llm.Call{
		Stage:    types.StageAnswerer,
		Batch:    batch,
		Messages: []llm.Message{llm.System(systemPrompt), llm.User(prompt)},
		Options:  llm.Options{Temperature: 0.3, MaxTokens: 1500},
	})
	if err != nil {
		return "", c, err
	}
	text := strings.TrimSpace(c.Text)
	if text == "" {
		return "", c, errors.New("model returned an empty answer")
	}
	return text, c, nil
}

// keyPoints asks the model for three to five key points. A short model list
// is topped up from the answer's own sentences; an answer with fewer than
// three sentences can still yield fewer than three points.
func (s *Stage) keyPoints(ctx context.Context, text string, batch router.Batch) []string {
	prompt, err := llm.Render(keyPointsPromptTmpl, struct{ Answer string }{text})
	if err == nil {
		resp, _, err := llm.CompleteJSON[struct {
			KeyPoints []string `json:"key_points"`
		}](ctx, s.gw, llm.Call{
			Stage:    types.StageAnswerer,
			Batch:    batch,
			Messages: []llm.Message{llm.System(jsonSystemPrompt), llm.User(prompt)},
			Options:  llm.Options{Temperature: 0.1, MaxTokens: 400},
		})
		if err == nil {
			points := cleanList(resp.KeyPoints, maxKeyPoints)
			if len(points) >= minKeyPoints {
				return points
			}
			if len(points) > 0 {
				return cleanList(append(points, SplitSentences(text, maxKeyPoints)...), minKeyPoints)
			}
		} else {
			s.log.Warn("key point fallback", zap.Error(err))
		}
	}
	return SplitSentences(text, maxKeyPoints)
}

func (s *Stage) followUps(ctx context.Context, query, text string, batch router.Batch) []string {
	prompt, err := llm.Render(followUpPromptTmpl, struct{ Query, Answer string }{query, text})
	if err == nil {
		resp, _, err := llm.CompleteJSON[struct {
			Questions []string `json:"questions"`
		}](ctx, s.gw, llm.Call{
			Stage:    types.StageAnswerer,
			Batch:    batch,
			Messages: []llm.Message{llm.System(jsonSystemPrompt), llm.User(prompt)},
			Options:  llm.Options{Temperature: 0.5, MaxTokens: 300},
		})
		if err == nil {
			if qs := cleanList(resp.Questions, maxFollowUps); len(qs) > 0 {
				return qs
			}
		} else {
			s.log.Warn("follow-up fallback", zap.Error(err))
		}
	}
	return FallbackFollowUps(query)
}

func apology(err error) string {
	reason := "an internal error occurred"
	if errors.Is(err, types.ErrBackendUnavailable) {
		reason = "the language model backend is unavailable"
	} else if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		reason = "the request was cancelled or timed out"
	}
	return fmt.Sprintf("I'm sorry, I could not generate an answer to your question because %s. Please try again later.", reason)
}

func evidence(results []types.VerificationResult) []types.Evidence {
	var out []types.Evidence
	for _, r := range results {
		out = append(out, r.Supporting...)
		out = append(out, r.Contradicting...)
	}
	return out
}
