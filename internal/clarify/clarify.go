// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package clarify decides whether a question is clear enough to research
// and, when it is not, what to ask the user.
package clarify

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/pdiddy/inquiry-engine/internal/llm"
	"github.com/pdiddy/inquiry-engine/internal/router"
	"github.com/pdiddy/inquiry-engine/pkg/types"
)

const maxQuestions = 5

var systemPrompt = `You are a query analyst for a question-answering system over a private document corpus. ` +
	`Decide whether the user's question is clear enough to research. Respond with a single JSON object and nothing else.`

var clarifyPromptTmpl = template.Must(template.New("clarify").Parse(`Classify the question below as clear or ambiguous.

If it is ambiguous, propose up to 5 short clarifying questions and list the assumptions you would otherwise make.
If it is clear, you may rewrite it into a more precise search query.
You may suggest filter hints using only the keys "bucket" (public or confidential) and "document_type".

Respond with JSON of the form:
{"is_clear": true, "confidence": 0.0-1.0, "clarified_query": "...", "questions": [], "assumptions": [], "filters": {}, "reasoning": "..."}

{{if .History}}Conversation so far:
{{range .History}}- {{.Role}}: {{.Text}}
{{end}}
{{end}}{{if .Context}}Additional context:
{{.Context}}

{{end}}Question:
{{.Query}}
`))

// Input is the clarification stage input.
type Input struct {
	Query       string
	Context     string
	History     []types.Turn
	Preferences types.Preferences
}

// response is the JSON shape requested from the model.
type response struct {
	IsClear        bool           `json:"is_clear"`
	Confidence     float64        `json:"confidence"`
	ClarifiedQuery string         `json:"clarified_query"`
	Questions      []string       `json:"questions"`
	Assumptions    []string       `json:"assumptions"`
	Filters        map[string]any `json:"filters"`
	Reasoning      string         `json:"reasoning"`
}

// Stage is the clarification stage.
type Stage struct {
	gw  *llm.Gateway
	log *zap.Logger
}

// New creates a clarification Stage.
func New(gw *llm.Gateway, log *zap.Logger) *Stage {
	if log == nil {
		log = zap.NewNop()
	}
	return &Stage{gw: gw, log: log.Named("clarify")}
}

// Clarify classifies the query. It never fails the run: when the model is
// unavailable or its output cannot be parsed the query is treated as clear
// with confidence 0.
func (s *Stage) Clarify(ctx context.Context, in Input) (types.ClarificationResult, error) {
	if strings.TrimSpace(in.Query) == "" {
		return types.ClarificationResult{
			IsClear:     true,
			Confidence:  1,
			Questions:   []string{},
			Assumptions: []string{},
			Reasoning:   "empty query",
			Backend:     types.BackendUnknown,
		}, nil
	}

	prompt, err := llm.Render(clarifyPromptTmpl, in)
	if err != nil {
		return types.ClarificationResult{}, err
	}

	texts := []string{in.Query, in.Context}
	for _, turn := range in.History {
		texts = append(texts, turn.Text)
	}

	resp, c, err := llm.CompleteJSON[response](ctx, s.gw, llm.Call{
		Stage:    types.StageClarifier,
		Batch:    router.QueryBatch(texts...),
		Messages: []llm.Message{llm.System(systemPrompt), llm.User(prompt)},
		Options:  llm.Options{Temperature: 0.1, MaxTokens: 800},
	})
	if err != nil {
		s.log.Warn("clarification fallback", zap.Error(err))
		return types.ClarificationResult{
			IsClear:     true,
			Confidence:  0,
			Questions:   []string{},
			Assumptions: []string{},
			Reasoning:   fmt.Sprintf("clarification unavailable: %v", err),
			Backend:     c.Label(),
		}, nil
	}

	return normalize(resp, c.Label()), nil
}

func normalize(resp response, backend types.BackendLabel) types.ClarificationResult {
	out := types.ClarificationResult{
		IsClear:        resp.IsClear,
		Confidence:     types.Clamp01(resp.Confidence),
		ClarifiedQuery: strings.TrimSpace(resp.ClarifiedQuery),
		Questions:      nonEmpty(resp.Questions, maxQuestions),
		Assumptions:    nonEmpty(resp.Assumptions, 0),
		Reasoning:      resp.Reasoning,
		Backend:        backend,
	}
	if out.IsClear {
		out.Questions = []string{}
	}
	for k, v := range resp.Filters {
		if k != "bucket" && k != "document_type" {
			continue
		}
		val := strings.TrimSpace(fmt.Sprint(v))
		if val == "" || v == nil {
			continue
		}
		if out.Filters == nil {
			out.Filters = make(map[string]string)
		}
		out.Filters[k] = val
	}
	return out
}

// nonEmpty trims items, drops blanks, and caps the list at limit (0 = no cap).
func nonEmpty(items []string, limit int) []string {
	out := []string{}
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
