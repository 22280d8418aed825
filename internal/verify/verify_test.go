// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/inquiry-engine/internal/llm"
	"github.com/pdiddy/inquiry-engine/internal/llm/llmtest"
	"github.com/pdiddy/inquiry-engine/internal/router"
	"github.com/pdiddy/inquiry-engine/pkg/types"
)

const conflictMarker = "Compare the two sources below"

// judge answers stance prompts from tags embedded in the source text and
// conflict prompts when both sources carry a [conflict] tag.
func judge(messages []llm.Message) (string, error) {
	text := llmtest.Text(messages)
	if strings.Contains(text, conflictMarker) {
		if strings.Count(text, "[conflict]") >= 2 {
			return `{"conflict": true, "description": "revenue figures differ", "severity": "MAJOR"}`, nil
		}
		if strings.Count(text, "[bad-pair]") >= 2 {
			return "", fmt.Errorf("%w: reset", types.ErrBackendUnavailable)
		}
		return `{"conflict": false}`, nil
	}
	switch {
	case strings.Contains(text, "[fail]"):
		return "", fmt.Errorf("%w: connection refused", types.ErrBackendUnavailable)
	case strings.Contains(text, "[garbage]"):
		return "the source agrees", nil
	case strings.Contains(text, "[support]"):
		return `{"stance": "supports", "reliability": 0.9, "excerpt": "agrees"}`, nil
	case strings.Contains(text, "[contradict]"):
		return `{"stance": "Contradicts", "reliability": 0.6, "excerpt": "disagrees"}`, nil
	default:
		return `{"stance": "neutral", "reliability": 0.5}`, nil
	}
}

func source(id string, bucket types.Bucket, text string) types.Finding {
	return types.Finding{DocumentID: id, DocumentName: id + ".pdf", Bucket: bucket, Text: text, Score: 0.5}
}

func newStage(opts Options, cloud, local llm.Backend) (*Stage, *router.Router) {
	r := router.New(nil, nil)
	return New(llm.NewGateway(r, cloud, local), opts, nil), r
}

func publicClaim(text string) Claim {
	return Claim{Text: text, Bucket: types.BucketPublic}
}

func claimTexts(claims []Claim) []string {
	out := make([]string, len(claims))
	for i, c := range claims {
		out[i] = c.Text
	}
	return out
}

func TestVerify_VerdictSymmetry(t *testing.T) {
	s, _ := newStage(Options{}, llmtest.New("cloud", judge), nil)
	sources := []types.Finding{
		source("d1", types.BucketPublic, "[support]"),
		source("d2", types.BucketPublic, "[support]"),
		source("d3", types.BucketPublic, "[contradict]"),
		source("d4", types.BucketPublic, "[support]"),
		source("d5", types.BucketPublic, "nothing relevant"),
	}

	res, err := s.Verify(context.Background(), publicClaim("Q1 revenue was $4M"), sources)
	require.NoError(t, err)

	assert.Equal(t, types.VerdictVerified, res.Verdict)
	assert.InDelta(t, 0.7, res.Confidence, 1e-9)
	assert.Equal(t, 5, res.SourceCount)
	require.Len(t, res.Supporting, 3)
	require.Len(t, res.Contradicting, 1)
	assert.Equal(t, []string{"d1", "d2", "d4"}, []string{res.Supporting[0].DocumentID, res.Supporting[1].DocumentID, res.Supporting[2].DocumentID})
	assert.Equal(t, "disagrees", res.Contradicting[0].Excerpt)
	assert.InDelta(t, (0.9*3+0.6+0.5)/5, res.Reliability, 1e-9)
	assert.Contains(t, res.Notes, "Supported by 3 of 5 sources")
	assert.Contains(t, res.Notes, "high")
}

func TestVerify_FailedSourceIsNeutral(t *testing.T) {
	s, _ := newStage(Options{}, llmtest.New("cloud", judge), nil)
	sources := []types.Finding{
		source("d1", types.BucketPublic, "[support]"),
		source("d2", types.BucketPublic, "[fail]"),
		source("d3", types.BucketPublic, "[garbage]"),
		source("d4", types.BucketPublic, "[support]"),
	}

	res, err := s.Verify(context.Background(), publicClaim("claim"), sources)
	require.NoError(t, err)
	assert.Equal(t, types.VerdictVerified, res.Verdict)
	assert.Equal(t, 4, res.SourceCount)
	assert.InDelta(t, 0.75, res.Confidence, 1e-9)
	assert.InDelta(t, 0.45, res.Reliability, 1e-9)
}

func TestVerify_Ties(t *testing.T) {
	tests := []struct {
		name      string
		texts     []string
		wantNotes string
		wantConf  float64
	}{
		{"one each", []string{"[support]", "[contradict]"}, "disputed", 0.5},
		{"all neutral", []string{"a", "b"}, "needs further investigation", 0.5},
		{"no sources", nil, "needs further investigation", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newStage(Options{}, llmtest.New("cloud", judge), nil)
			var sources []types.Finding
			for i, text := range tt.texts {
				sources = append(sources, source(fmt.Sprintf("d%d", i), types.BucketPublic, text))
			}
			res, err := s.Verify(context.Background(), publicClaim("claim"), sources)
			require.NoError(t, err)
			assert.Equal(t, types.VerdictInconclusive, res.Verdict)
			assert.Contains(t, res.Notes, tt.wantNotes)
			assert.InDelta(t, tt.wantConf, res.Confidence, 1e-9)
		})
	}
}

func TestVerify_RoutesPerSource(t *testing.T) {
	cloud := llmtest.New("cloud", judge)
	local := llmtest.New("local", judge)
	s, r := newStage(Options{Concurrency: 1}, cloud, local)

	res, err := s.Verify(context.Background(), publicClaim("claim"), []types.Finding{
		source("pub", types.BucketPublic, "[support]"),
		source("conf", types.BucketConfidential, "[support]"),
	})
	require.NoError(t, err)
	assert.Equal(t, []types.BackendLabel{types.BackendCloud, types.BackendLocal}, res.Backends)
	assert.Equal(t, 1, cloud.Calls())
	assert.Equal(t, 1, local.Calls())
	assert.Equal(t, types.BucketConfidential, res.Supporting[1].Bucket)

	for _, d := range r.Decisions() {
		if d.Confidential > 0 {
			assert.Equal(t, router.Local, d.Backend)
		}
	}
}

func TestVerify_MaxSources(t *testing.T) {
	cloud := llmtest.New("cloud", judge)
	s, _ := newStage(Options{MaxSources: 2}, cloud, nil)

	res, err := s.Verify(context.Background(), publicClaim("claim"), []types.Finding{
		source("d1", types.BucketPublic, "[support]"),
		source("d2", types.BucketPublic, "[support]"),
		source("d3", types.BucketPublic, "[support]"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.SourceCount)
	assert.Equal(t, 2, cloud.Calls())
}

func TestVerify_Cancelled(t *testing.T) {
	s, _ := newStage(Options{}, llmtest.New("cloud", judge), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Verify(ctx, publicClaim("claim"), []types.Finding{source("d1", types.BucketPublic, "[support]")})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestVerifyAll(t *testing.T) {
	cloud := llmtest.New("cloud", judge)
	s, _ := newStage(Options{}, cloud, nil)

	results, err := s.VerifyAll(context.Background(), PublicClaims("first", "second"), []types.Finding{
		source("d1", types.BucketPublic, "[support]"),
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].Claim)
	assert.Equal(t, "second", results[1].Claim)
	assert.Equal(t, 2, cloud.Calls())
}

func TestDetectInconsistencies(t *testing.T) {
	s, _ := newStage(Options{}, llmtest.New("cloud", judge), llmtest.New("local", judge))
	sources := []types.Finding{
		source("d1", types.BucketPublic, "revenue was $4M [conflict] [bad-pair]"),
		source("d2", types.BucketPublic, "the office is in Berlin [bad-pair]"),
		source("d3", types.BucketConfidential, "revenue was $3M [conflict]"),
	}

	got, err := s.DetectInconsistencies(context.Background(), sources)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "d1", got[0].First.DocumentID)
	assert.Equal(t, "d3", got[0].Second.DocumentID)
	assert.Equal(t, types.BucketConfidential, got[0].Second.Bucket)
	assert.Equal(t, types.SeverityMajor, got[0].Severity)
	assert.Equal(t, "revenue figures differ", got[0].Description)
}

func TestDetectInconsistencies_SingleSource(t *testing.T) {
	cloud := llmtest.New("cloud", judge)
	s, _ := newStage(Options{}, cloud, nil)

	got, err := s.DetectInconsistencies(context.Background(), []types.Finding{source("d1", types.BucketPublic, "x")})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, cloud.Calls())
}

func TestSelectClaims(t *testing.T) {
	findings := []types.Finding{
		{Bucket: types.BucketPublic, Text: "Low score claim. More text.", Score: 0.2},
		{Bucket: types.BucketPublic, Text: "Revenue grew 12% in Q1. Costs were flat.", Score: 0.9},
		{Bucket: types.BucketConfidential, Text: "revenue grew 12% in Q1. Duplicate.", Score: 0.8},
		{Bucket: types.BucketPublic, Text: "   ", Score: 0.7},
		{Text: "Version 2.5 shipped in March\nsecond line", Score: 0.6},
	}

	got := SelectClaims(findings, 5)
	assert.Equal(t, []string{
		"Revenue grew 12% in Q1.",
		"Version 2.5 shipped in March",
		"Low score claim.",
	}, claimTexts(got))
	assert.Equal(t, []types.Bucket{
		types.BucketConfidential, // duplicated by a confidential finding
		types.BucketConfidential, // unmarked origin
		types.BucketPublic,
	}, []types.Bucket{got[0].Bucket, got[1].Bucket, got[2].Bucket})

	one := SelectClaims(findings, 1)
	require.Len(t, one, 1)
	assert.Equal(t, "Revenue grew 12% in Q1.", one[0].Text)
	assert.Equal(t, types.BucketConfidential, one[0].Bucket)
	assert.Empty(t, SelectClaims(nil, 3))
}

func TestVerify_ClaimBucketRoutesLocal(t *testing.T) {
	cloud := llmtest.New("cloud", judge)
	local := llmtest.New("local", judge)
	s, _ := newStage(Options{}, cloud, local)
	sources := []types.Finding{source("pub", types.BucketPublic, "[support]")}

	res, err := s.Verify(context.Background(), Claim{Text: "Falcon closed at $91M."}, sources)
	require.NoError(t, err)
	assert.Equal(t, []types.BackendLabel{types.BackendLocal}, res.Backends)
	assert.Zero(t, cloud.Calls())

	res, err = s.Verify(context.Background(), publicClaim("Falcon is a codename."), sources)
	require.NoError(t, err)
	assert.Equal(t, []types.BackendLabel{types.BackendCloud}, res.Backends)
}

func TestVerifyFindings_ConfidentialTextNeverReachesCloud(t *testing.T) {
	cloud := llmtest.New("cloud", judge)
	local := llmtest.New("local", judge)
	s, _ := newStage(Options{DetectInconsistencies: true}, cloud, local)

	findings := []types.Finding{
		{DocumentID: "secret", Bucket: types.BucketConfidential, Score: 0.9,
			Text: "Project Falcon acquisition price is $91M.\n\nSources: board minutes [support]"},
		{DocumentID: "pub", Bucket: types.BucketPublic, Score: 0.8,
			Text: "Falcon is an internal codename. [support]"},
	}

	report, err := s.VerifyFindings(context.Background(), findings)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)

	for _, prompt := range cloud.Prompts() {
		assert.NotContains(t, prompt, "Project Falcon acquisition")
		assert.NotContains(t, prompt, "$91M")
	}
	// The public claim against the public source is the only cloud call.
	assert.Equal(t, 1, cloud.Calls())
	assert.Equal(t, 4, local.Calls())
}

func TestVerifyFindings(t *testing.T) {
	cloud := llmtest.New("cloud", judge)
	s, _ := newStage(Options{MaxClaims: 2, MaxSources: 3, DetectInconsistencies: true}, cloud, nil)

	findings := []types.Finding{
		{DocumentID: "d1", Bucket: types.BucketPublic, Text: "Revenue was $4M. [support] [conflict]", Score: 0.9},
		{DocumentID: "d2", Bucket: types.BucketPublic, Text: "Revenue was $3M. [conflict]", Score: 0.8},
		{DocumentID: "d3", Bucket: types.BucketPublic, Text: "Berlin office opened. [support]", Score: 0.7},
		{DocumentID: "d4", Bucket: types.BucketPublic, Text: "Unused. [support]", Score: 0.1},
	}

	report, err := s.VerifyFindings(context.Background(), findings)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.Equal(t, "Revenue was $4M.", report.Results[0].Claim)
	assert.Equal(t, 3, report.Results[0].SourceCount)
	require.Len(t, report.Inconsistencies, 1)
	assert.Equal(t, "d1", report.Inconsistencies[0].First.DocumentID)
	assert.Equal(t, "d2", report.Inconsistencies[0].Second.DocumentID)
	// 2 claims x 3 sources + 3 pairs
	assert.Equal(t, 9, cloud.Calls())
}

func TestEvidenceSources(t *testing.T) {
	ev := []types.Evidence{{DocumentID: "d1", DocumentName: "one", Bucket: types.BucketConfidential, Excerpt: "x", Reliability: 0.4}}
	got := EvidenceSources(ev)
	require.Len(t, got, 1)
	assert.Equal(t, types.BucketConfidential, got[0].Bucket)
	assert.Equal(t, "x", got[0].Text)
}

func TestParseStance(t *testing.T) {
	tests := map[string]types.Stance{
		"supports":    types.StanceSupports,
		" Supported ": types.StanceSupports,
		"contradicts": types.StanceContradicts,
		"refutes":     types.StanceContradicts,
		"neutral":     types.StanceNeutral,
		"unclear":     types.StanceNeutral,
		"":            types.StanceNeutral,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseStance(in), in)
	}
}

func TestReliabilityBand(t *testing.T) {
	assert.Equal(t, "high", ReliabilityBand(0.7))
	assert.Equal(t, "moderate", ReliabilityBand(0.4))
	assert.Equal(t, "low", ReliabilityBand(0.39))
}
