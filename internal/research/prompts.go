// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/pdiddy/inquiry-engine/internal/llm"
	"github.com/pdiddy/inquiry-engine/internal/router"
	"github.com/pdiddy/inquiry-engine/pkg/types"
)

var systemPrompt = `You are a research analyst working over a private document corpus. ` +
	`Base every statement only on the excerpts provided. Respond with a single JSON object and nothing else.`

var themesPromptTmpl = template.Must(template.New("themes").Parse(`Identify the main themes in the excerpts below.

Return between 3 and 5 short themes and any closely related topics worth exploring.

Respond with JSON of the form:
{"themes": ["..."], "related_topics": ["..."]}

Question:
{{.Query}}

Excerpts:
{{range .Summary}}- {{.}}
{{end}}`))

var followUpPromptTmpl = template.Must(template.New("followups").Parse(`Suggest follow-up search queries for the research below.

Propose up to 5 concise queries that would close the listed gaps or deepen the findings.

Respond with JSON of the form:
{"queries": ["..."]}

Original question:
{{.Query}}
{{if .Gaps}}
Information gaps:
{{range .Gaps}}- {{.}}
{{end}}{{end}}{{if .Summary}}
Findings so far:
{{range .Summary}}- {{.}}
{{end}}{{end}}`))

type themesResponse struct {
	Themes        []string `json:"themes"`
	RelatedTopics []string `json:"related_topics"`
}

type followUpResponse struct {
	Queries []string `json:"queries"`
}

type promptData struct {
	Query   string
	Gaps    []string
	Summary []string
}

// themes asks the model for the main themes of findings, keeping at most
// five. A shorter list is kept as returned and never padded. Failures
// return empty lists.
func (s *Stage) themes(ctx context.Context, query string, findings []types.Finding) (themesResponse, llm.Completion) {
	prompt, err := llm.Render(themesPromptTmpl, promptData{Query: query, Summary: summarize(findings)})
	if err != nil {
		s.log.Warn("themes fallback", zap.Error(err))
		return themesResponse{}, llm.Completion{}
	}
	resp, c, err := llm.CompleteJSON[themesResponse](ctx, s.gw, llm.Call{
		Stage:    types.StageResearcher,
		Batch:    router.FindingsBatch(findings, query),
		Messages: []llm.Message{llm.System(systemPrompt), llm.User(prompt)},
		Options:  llm.Options{Temperature: 0.2, MaxTokens: 500},
	})
	if err != nil {
		s.log.Warn("themes fallback", zap.Error(err))
		return themesResponse{}, c
	}
	return themesResponse{
		Themes:        cleanList(resp.Themes, maxThemes),
		RelatedTopics: cleanList(resp.RelatedTopics, maxThemes),
	}, c
}

// followUps asks the model for follow-up queries, falling back to
// templated queries built from the original question.
func (s *Stage) followUps(ctx context.Context, query string, findings []types.Finding, gaps []string) ([]string, llm.Completion) {
	prompt, err := llm.Render(followUpPromptTmpl, promptData{Query: query, Gaps: gaps, Summary: summarize(findings)})
	if err != nil {
		s.log.Warn("follow-up fallback", zap.Error(err))
		return FallbackFollowUps(query), llm.Completion{}
	}
	resp, c, err := llm.CompleteJSON[followUpResponse](ctx, s.gw, llm.Call{
		Stage:    types.StageResearcher,
		Batch:    router.FindingsBatch(findings, query),
		Messages: []llm.Message{llm.System(systemPrompt), llm.User(prompt)},
		Options:  llm.Options{Temperature: 0.4, MaxTokens: 400},
	})
	if err != nil {
		s.log.Warn("follow-up fallback", zap.Error(err))
		return FallbackFollowUps(query), c
	}
	queries := cleanList(resp.Queries, maxFollowUps)
	if len(queries) == 0 {
		return FallbackFollowUps(query), c
	}
	return queries, c
}

// FallbackFollowUps builds three templated follow-up queries.
func FallbackFollowUps(query string) []string {
	q := strings.TrimRight(strings.TrimSpace(query), "?.! ")
	return []string{
		"What are the key details of " + q + "?",
		"What recent changes affect " + q + "?",
		"Which documents discuss " + q + " in more depth?",
	}
}

func cleanList(items []string, limit int) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, item := range items {
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out
}
