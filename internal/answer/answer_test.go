// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package answer

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

const (
	classifyMarker  = "Classify the kind of answer"
	generateMarker  = "Write the answer to the question"
	keyPointsMarker = "Extract the key points"
	followUpMarker  = "Suggest follow-up questions"
	answerText      = "Revenue grew 12% in Q1. Costs were flat. Margins improved."
)

func replies(extra ...llmtest.Rule) llmtest.RespondFunc {
	rules := append(extra,
		llmtest.Rule{Marker: classifyMarker, Reply: `{"type": "Comparison"}`},
		llmtest.Rule{Marker: generateMarker, Reply: answerText},
		llmtest.Rule{Marker: keyPointsMarker, Reply: `{"key_points": ["Revenue up 12%", "Costs flat", "Margins up"]}`},
		llmtest.Rule{Marker: followUpMarker, Reply: `{"questions": ["What drove growth?", "What about Q2?", "How do margins compare?"]}`},
	)
	return llmtest.Script(`{}`, rules...)
}

func newStage(cloud, local llm.Backend) (*Stage, *router.Router) {
	r := router.New(nil, nil)
	return New(llm.NewGateway(r, cloud, local), Options{}, nil), r
}

func publicFindings() []types.Finding {
	return []types.Finding{
		{DocumentID: "d1", DocumentName: "Q1 report", Bucket: types.BucketPublic, Text: "Revenue grew 12% in Q1.", Score: 0.8},
		{DocumentID: "d1", DocumentName: "Q1 report", Bucket: types.BucketPublic, Text: "Costs were flat.", Score: 0.6},
		{DocumentID: "d2", DocumentName: "Board deck", Bucket: types.BucketPublic, Text: "Margins improved.", Score: 0.5},
	}
}

func TestAnswer(t *testing.T) {
	cloud := llmtest.New("cloud", replies())
	s, _ := newStage(cloud, nil)

	res, err := s.Answer(context.Background(), Input{
		Query:    "What is our Q1 revenue?",
		Findings: publicFindings(),
		Verification: []types.VerificationResult{
			{Claim: "Revenue grew 12% in Q1.", Verdict: types.VerdictVerified, Confidence: 0.7, Reliability: 0.8},
			{Claim: "Costs were flat.", Verdict: types.VerdictInconclusive, Confidence: 0.5, Reliability: 0.6},
		},
		Context: &types.ContextBundle{Themes: []string{"revenue"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "What is our Q1 revenue?", res.Query)
	assert.Equal(t, answerText, res.Answer)
	assert.Equal(t, types.AnswerComparison, res.Type)
	assert.Equal(t, []string{"Revenue up 12%", "Costs flat", "Margins up"}, res.KeyPoints)
	assert.Len(t, res.FollowUps, 3)
	require.Len(t, res.Sources, 2)
	assert.Equal(t, "d1", res.Sources[0].DocumentID)
	assert.InDelta(t, 0.6*0.6+0.4*0.7, res.Confidence, 1e-9)
	assert.Equal(t, []string{"1 claim could not be verified against the available sources."}, res.Caveats)
	assert.Equal(t, types.BackendCloud, res.Backend)
	assert.Equal(t, 4, cloud.Calls())

	var generation string
	for _, p := range cloud.Prompts() {
		if strings.Contains(p, generateMarker) {
			generation = p
		}
	}
	assert.Contains(t, generation, "Verified claims:\n- Revenue grew 12% in Q1.")
	assert.Contains(t, generation, "Unverified claims:\n- Costs were flat.")
	assert.Contains(t, generation, "High-confidence findings:\n- [Q1 report] Revenue grew 12% in Q1.")
	assert.Contains(t, generation, "Research themes: revenue")
	assert.Contains(t, generation, "The answer type is comparison.")
}

func TestAnswer_StyleAndLanguage(t *testing.T) {
	cloud := llmtest.New("cloud", replies())
	s, _ := newStage(cloud, nil)

	_, err := s.Answer(context.Background(), Input{
		Query:    "q",
		Findings: publicFindings(),
		Style:    types.StyleConcise,
		Language: "German",
	})
	require.NoError(t, err)

	joined := strings.Join(cloud.Prompts(), "\n")
	assert.Contains(t, joined, "in German")
	assert.Contains(t, joined, "at most three sentences")
}

func TestAnswer_ConfidentialEvidenceRoutesWholeStageLocal(t *testing.T) {
	cloud := llmtest.New("cloud", replies())
	local := llmtest.New("local", replies())
	s, r := newStage(cloud, local)

	res, err := s.Answer(context.Background(), Input{
		Query:    "What is our Q1 revenue?",
		Findings: publicFindings(),
		Verification: []types.VerificationResult{{
			Claim:      "Revenue grew 12% in Q1.",
			Verdict:    types.VerdictVerified,
			Confidence: 1,
			Supporting: []types.Evidence{{DocumentID: "secret", Bucket: types.BucketConfidential, Stance: types.StanceSupports}},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, types.BackendLocal, res.Backend)
	assert.Zero(t, cloud.Calls())
	assert.Equal(t, 4, local.Calls())
	for _, d := range r.Decisions() {
		assert.Equal(t, router.Local, d.Backend)
		assert.Equal(t, router.ReasonConfidentialContent, d.Reason)
	}
	require.Len(t, res.Sources, 3)
	assert.Equal(t, types.BucketConfidential, res.Sources[2].Bucket)
}

func TestAnswer_GenerationFailure(t *testing.T) {
	cloud := llmtest.New("cloud", replies(llmtest.Rule{
		Marker: generateMarker,
		Err:    fmt.Errorf("%w: 503", types.ErrBackendUnavailable),
	}))
	s, _ := newStage(cloud, nil)

	res, err := s.Answer(context.Background(), Input{Query: "What is our Q1 revenue?", Findings: publicFindings()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrStageFailure))
	assert.True(t, errors.Is(err, types.ErrBackendUnavailable))

	assert.NotEmpty(t, res.Answer)
	assert.Contains(t, res.Answer, "backend is unavailable")
	assert.Zero(t, res.Confidence)
	assert.Equal(t, FallbackFollowUps("What is our Q1 revenue?"), res.FollowUps)
	assert.Equal(t, types.BackendCloud, res.Backend)
}

func TestAnswer_Fallbacks(t *testing.T) {
	cloud := llmtest.New("cloud", replies(
		llmtest.Rule{Marker: classifyMarker, Reply: "It is factual-ish"},
		llmtest.Rule{Marker: keyPointsMarker, Reply: `{"key_points": []}`},
		llmtest.Rule{Marker: followUpMarker, Err: errors.New("boom")},
	))
	s, _ := newStage(cloud, nil)

	res, err := s.Answer(context.Background(), Input{Query: "What is our Q1 revenue?", Findings: publicFindings()})
	require.NoError(t, err)
	assert.Equal(t, types.AnswerFactual, res.Type)
	assert.Equal(t, []string{"Revenue grew 12% in Q1.", "Costs were flat.", "Margins improved."}, res.KeyPoints)
	assert.Equal(t, FallbackFollowUps("What is our Q1 revenue?"), res.FollowUps)
}

func TestAnswer_KeyPointsTopUp(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		points string
		want   []string
	}{
		{"short list topped up from sentences", answerText, `{"key_points": ["Revenue up 12%"]}`,
			[]string{"Revenue up 12%", "Revenue grew 12% in Q1.", "Costs were flat."}},
		{"duplicate sentence skipped", answerText, `{"key_points": ["costs were flat.", "Margins up"]}`,
			[]string{"costs were flat.", "Margins up", "Revenue grew 12% in Q1."}},
		{"one sentence answer", "Revenue was $4M.", `{"key_points": ["Revenue $4M"]}`,
			[]string{"Revenue $4M", "Revenue was $4M."}},
		{"single sentence fallback", "Revenue was $4M.", `{"key_points": []}`,
			[]string{"Revenue was $4M."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cloud := llmtest.New("cloud", replies(
				llmtest.Rule{Marker: generateMarker, Reply: tt.answer},
				llmtest.Rule{Marker: keyPointsMarker, Reply: tt.points},
			))
			s, _ := newStage(cloud, nil)

			res, err := s.Answer(context.Background(), Input{Query: "What is our Q1 revenue?", Findings: publicFindings()})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.KeyPoints)
		})
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want float64
	}{
		{
			name: "verification means",
			in: Input{Verification: []types.VerificationResult{
				{Verdict: types.VerdictVerified, Confidence: 0.8, Reliability: 0.9},
				{Verdict: types.VerdictVerified, Confidence: 0.6, Reliability: 0.7},
			}},
			want: 0.6*0.7 + 0.4*0.8,
		},
		{
			name: "contradiction penalty",
			in: Input{Verification: []types.VerificationResult{
				{Verdict: types.VerdictContradicted, Confidence: 0.3, Reliability: 0.4},
			}},
			want: (0.6*0.3 + 0.4*0.4) * 0.8,
		},
		{
			name: "inconsistency penalty",
			in: Input{
				Verification:    []types.VerificationResult{{Verdict: types.VerdictVerified, Confidence: 1, Reliability: 1}},
				Inconsistencies: []types.Inconsistency{{Severity: types.SeverityMinor}},
			},
			want: 0.8,
		},
		{
			name: "finding scores without verification",
			in:   Input{Findings: []types.Finding{{Score: 0.8}, {Score: 0.6}}},
			want: 0.7,
		},
		{
			name: "nothing",
			in:   Input{},
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Confidence(tt.in), 1e-9)
		})
	}
}

func TestCaveats(t *testing.T) {
	t.Run("generic", func(t *testing.T) {
		got := Caveats(Input{Findings: publicFindings()})
		assert.Equal(t, []string{"This answer reflects only the documents available in the corpus and may be incomplete."}, got)
	})

	t.Run("warnings", func(t *testing.T) {
		got := Caveats(Input{
			Findings: publicFindings(),
			Verification: []types.VerificationResult{
				{Verdict: types.VerdictInconclusive, Reliability: 0.2},
				{Verdict: types.VerdictInconclusive, Reliability: 0.3},
				{Verdict: types.VerdictContradicted, Reliability: 0.4},
			},
		})
		require.Len(t, got, 3)
		assert.Equal(t, "2 claims could not be verified against the available sources.", got[0])
		assert.Contains(t, got[1], "contradict")
		assert.Contains(t, got[2], "mean 0.30")
	})

	t.Run("no findings", func(t *testing.T) {
		got := Caveats(Input{})
		require.Len(t, got, 1)
		assert.Contains(t, got[0], "No supporting documents")
	})
}

func TestSources(t *testing.T) {
	var findings []types.Finding
	for i := range 12 {
		findings = append(findings, types.Finding{DocumentID: fmt.Sprintf("d%02d", i), Bucket: types.BucketPublic})
	}
	findings = append([]types.Finding{findings[3]}, findings...)

	got := Sources(findings, nil)
	require.Len(t, got, maxSources)
	assert.Equal(t, "d03", got[0].DocumentID)
	assert.Equal(t, "d00", got[1].DocumentID)
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		text  string
		limit int
		want  []string
	}{
		{"One. Two! Three?", 5, []string{"One.", "Two!", "Three?"}},
		{"Version 2.5 shipped. Done.", 5, []string{"Version 2.5 shipped.", "Done."}},
		{"- first point\n- second point\n\n", 5, []string{"first point", "second point"}},
		{"a. b. c. d. e. f. g.", 5, []string{"a.", "b.", "c.", "d.", "e."}},
		{"", 5, []string{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitSentences(tt.text, tt.limit), tt.text)
	}
}
