// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/inquiry-engine/internal/llm"
	"github.com/pdiddy/inquiry-engine/internal/router"
	"github.com/pdiddy/inquiry-engine/pkg/types"
)

type conflictResponse struct {
	Conflict    bool   `json:"conflict"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

type pair struct {
	first, second types.Finding
}

// DetectInconsistencies asks, for every unordered pair of sources, whether
// they conflict. Conflicts are returned in pair order (0,1), (0,2), ...
// A failed pair check is treated as no conflict.
func (s *Stage) DetectInconsistencies(ctx context.Context, sources []types.Finding) ([]types.Inconsistency, error) {
	if len(sources) > s.opts.MaxSources {
		sources = sources[:s.opts.MaxSources]
	}

	var pairs []pair
	for i := 0; i < len(sources); i++ {
		for j := i + 1; j < len(sources); j++ {
			pairs = append(pairs, pair{sources[i], sources[j]})
		}
	}

	found := make([]*types.Inconsistency, len(pairs))
	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, p := range pairs {
		g.Go(func() error {
			found[i] = s.compare(ctx, p)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := []types.Inconsistency{}
	for _, inc := range found {
		if inc != nil {
			out = append(out, *inc)
		}
	}
	return out, nil
}

func (s *Stage) compare(ctx context.Context, p pair) *types.Inconsistency {
	prompt, err := llm.Render(conflictPromptTmpl, struct {
		First, Second types.Finding
	}{p.first, p.second})
	if err != nil {
		s.log.Warn("conflict check skipped", zap.Error(err))
		return nil
	}

	resp, _, err := llm.CompleteJSON[conflictResponse](ctx, s.gw, llm.Call{
		Stage:    types.StageVerifier,
		Batch:    router.FindingsBatch([]types.Finding{p.first, p.second}),
		Messages: []llm.Message{llm.System(systemPrompt), llm.User(prompt)},
		Options:  llm.Options{Temperature: 0, MaxTokens: 300},
	})
	if err != nil {
		s.log.Warn("conflict check skipped",
			zap.String("first", p.first.DocumentID),
			zap.String("second", p.second.DocumentID),
			zap.Error(err),
		)
		return nil
	}
	if !resp.Conflict {
		return nil
	}
	return &types.Inconsistency{
		First:       types.SourceOf(p.first),
		Second:      types.SourceOf(p.second),
		Description: strings.TrimSpace(resp.Description),
		Severity:    parseSeverity(resp.Severity),
	}
}

func parseSeverity(s string) types.Severity {
	if strings.EqualFold(strings.TrimSpace(s), string(types.SeverityMajor)) {
		return types.SeverityMajor
	}
	return types.SeverityMinor
}
