// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"sort"
	"strings"

	"github.com/pdiddy/inquiry-engine/pkg/types"
)

const maxClaimLen = 300

// SelectClaims picks up to limit claims from findings: the leading sentence
// of each finding, highest score first, without duplicates. A claim whose
// text also appears in a confidential finding is marked confidential.
func SelectClaims(findings []types.Finding, limit int) []Claim {
	claims := []Claim{}
	index := make(map[string]int)
	for _, f := range byScore(findings) {
		c := ClaimFrom(f)
		if c.Text == "" {
			continue
		}
		key := strings.ToLower(c.Text)
		if i, ok := index[key]; ok {
			if c.Bucket.IsConfidential() {
				claims[i].Bucket = types.BucketConfidential
			}
			continue
		}
		if len(claims) == limit {
			continue
		}
		if c.Bucket.IsConfidential() {
			c.Bucket = types.BucketConfidential
		}
		index[key] = len(claims)
		claims = append(claims, c)
	}
	return claims
}

func leadingSentence(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 == len(text) || text[i+1] == ' ' {
				return truncate(strings.TrimSpace(text[:i+1]))
			}
		}
	}
	return truncate(strings.TrimSpace(text))
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) > maxClaimLen {
		return string(r[:maxClaimLen])
	}
	return s
}

// byScore returns a copy of findings sorted by score descending; ties keep
// their retrieval order.
func byScore(findings []types.Finding) []types.Finding {
	out := append([]types.Finding(nil), findings...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// VerifyFindings selects claims from research findings and verifies each
// against the highest-scoring findings, then optionally checks those
// sources for pairwise conflicts.
func (s *Stage) VerifyFindings(ctx context.Context, findings []types.Finding) (types.VerificationReport, error) {
	report := types.VerificationReport{
		Results:         []types.VerificationResult{},
		Inconsistencies: []types.Inconsistency{},
	}

	sources := byScore(findings)
	if len(sources) > s.opts.MaxSources {
		sources = sources[:s.opts.MaxSources]
	}

	results, err := s.VerifyAll(ctx, SelectClaims(findings, s.opts.MaxClaims), sources)
	report.Results = append(report.Results, results...)
	if err != nil {
		return report, err
	}

	if s.opts.DetectInconsistencies && len(sources) > 1 {
		inc, err := s.DetectInconsistencies(ctx, sources)
		if err != nil {
			return report, err
		}
		report.Inconsistencies = inc
	}
	return report, nil
}
