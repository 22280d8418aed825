// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package answer

import (
	"fmt"
	"strings"

	"github.com/pdiddy/inquiry-engine/pkg/types"
)

// Sources deduplicates citations by document id, findings first, then
// verification evidence, capped at ten.
func Sources(findings []types.Finding, results []types.VerificationResult) []types.Source {
	sources := []types.Source{}
	seen := make(map[string]bool)
	add := func(src types.Source) {
		if len(sources) == maxSources || src.DocumentID == "" || seen[src.DocumentID] {
			return
		}
		seen[src.DocumentID] = true
		sources = append(sources, src)
	}
	for _, f := range findings {
		add(types.SourceOf(f))
	}
	for _, e := range evidence(results) {
		add(types.Source{DocumentID: e.DocumentID, DocumentName: e.DocumentName, Bucket: e.Bucket})
	}
	return sources
}

// hasContradiction reports whether verification recorded any contradiction:
// a contradicted verdict, contradicting evidence, or a source conflict.
func hasContradiction(in Input) bool {
	if len(in.Inconsistencies) > 0 {
		return true
	}
	for _, v := range in.Verification {
		if v.Verdict == types.VerdictContradicted || len(v.Contradicting) > 0 {
			return true
		}
	}
	return false
}

// means returns the mean verification confidence and reliability. Without
// verification results both fall back to the mean finding score.
func means(in Input) (confidence, reliability float64) {
	if len(in.Verification) > 0 {
		for _, v := range in.Verification {
			confidence += v.Confidence
			reliability += v.Reliability
		}
		n := float64(len(in.Verification))
		return confidence / n, reliability / n
	}
	if len(in.Findings) == 0 {
		return 0, 0
	}
	var score float64
	for _, f := range in.Findings {
		score += f.Score
	}
	score /= float64(len(in.Findings))
	return score, score
}

// Confidence scores the answer from verification strength, with a flat
// penalty when any contradiction was recorded.
func Confidence(in Input) float64 {
	conf, rel := means(in)
	c := types.Clamp01(0.6*conf + 0.4*rel)
	if hasContradiction(in) {
		c *= contradictionScale
	}
	return c
}

// Caveats lists warnings the reader should see alongside the answer.
func Caveats(in Input) []string {
	var caveats []string

	if len(in.Findings) == 0 {
		caveats = append(caveats, "No supporting documents were found; this answer is not grounded in the corpus.")
	}

	unverified := 0
	for _, v := range in.Verification {
		if v.Verdict == types.VerdictInconclusive {
			unverified++
		}
	}
	if unverified == 1 {
		caveats = append(caveats, "1 claim could not be verified against the available sources.")
	} else if unverified > 1 {
		caveats = append(caveats, fmt.Sprintf("%d claims could not be verified against the available sources.", unverified))
	}

	if hasContradiction(in) {
		caveats = append(caveats, "Some sources contradict each other; treat disputed points with caution.")
	}

	if len(in.Verification) > 0 {
		if _, rel := means(in); rel < lowReliability {
			caveats = append(caveats, fmt.Sprintf("Source reliability is low (mean %.2f); confirm critical details independently.", rel))
		}
	}

	if len(caveats) == 0 {
		caveats = append(caveats, "This answer reflects only the documents available in the corpus and may be incomplete.")
	}
	return caveats
}

// SplitSentences splits text into trimmed sentences, capped at limit.
func SplitSentences(text string, limit int) []string {
	out := []string{}
	var cur strings.Builder
	flush := func() {
		sentence := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(cur.String()), "-*• "))
		cur.Reset()
		if sentence != "" && len(out) < limit {
			out = append(out, sentence)
		}
	}
	runes := []rune(text)
	for i, r := range runes {
		if r == '\n' {
			flush()
			continue
		}
		cur.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && (i+1 == len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n') {
			flush()
		}
	}
	flush()
	return out
}

// FallbackFollowUps builds three templated follow-up questions.
func FallbackFollowUps(query string) []string {
	q := strings.TrimRight(strings.TrimSpace(query), "?.! ")
	return []string{
		"Can you give more detail on " + q + "?",
		"Which documents best support the answer to " + q + "?",
		"How has " + q + " changed over time?",
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
