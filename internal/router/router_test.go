// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/inquiry-engine/pkg/types"
)

type stubDetector struct {
	found bool
	err   error
	calls int
}

func (s *stubDetector) Detect(_ context.Context, _ string) (bool, error) {
	s.calls++
	return s.found, s.err
}

func finding(bucket types.Bucket) types.Finding {
	return types.Finding{DocumentID: "d", Bucket: bucket, Text: "t"}
}

func TestChoose(t *testing.T) {
	tests := []struct {
		name        string
		batch       Batch
		detector    PIIDetector
		wantBackend Kind
		wantReason  Reason
	}{
		{
			name:        "any confidential item routes local",
			batch:       FindingsBatch([]types.Finding{finding(types.BucketPublic), finding(types.BucketConfidential)}),
			wantBackend: Local,
			wantReason:  ReasonConfidentialContent,
		},
		{
			name:        "unknown bucket treated as confidential",
			batch:       FindingsBatch([]types.Finding{finding("restricted")}),
			wantBackend: Local,
			wantReason:  ReasonConfidentialContent,
		},
		{
			name:        "all public routes cloud",
			batch:       FindingsBatch([]types.Finding{finding(types.BucketPublic), finding(types.BucketPublic)}),
			wantBackend: Cloud,
			wantReason:  ReasonPublicContent,
		},
		{
			name:        "public items skip pii screening",
			batch:       FindingsBatch([]types.Finding{finding(types.BucketPublic)}, "mail bob@example.com"),
			detector:    &stubDetector{found: true},
			wantBackend: Cloud,
			wantReason:  ReasonPublicContent,
		},
		{
			name:        "query with pii routes local",
			batch:       QueryBatch("my ssn is 123-45-6789"),
			detector:    NewPatternDetector(),
			wantBackend: Local,
			wantReason:  ReasonPIIInQuery,
		},
		{
			name:        "clean query routes cloud",
			batch:       QueryBatch("What was Q1 revenue?"),
			detector:    NewPatternDetector(),
			wantBackend: Cloud,
			wantReason:  ReasonNoSensitiveContent,
		},
		{
			name:        "detector failure routes local",
			batch:       QueryBatch("anything"),
			detector:    &stubDetector{err: errors.New("detector down")},
			wantBackend: Local,
			wantReason:  ReasonPIICheckFailed,
		},
		{
			name:        "no detector routes cloud",
			batch:       QueryBatch("anything"),
			wantBackend: Cloud,
			wantReason:  ReasonNoSensitiveContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.detector, nil)
			d := r.Choose(context.Background(), "test", tt.batch)
			assert.Equal(t, tt.wantBackend, d.Backend)
			assert.Equal(t, tt.wantReason, d.Reason)
		})
	}
}

func TestChoose_ConfidentialSkipsDetector(t *testing.T) {
	det := &stubDetector{}
	r := New(det, nil)
	r.Choose(context.Background(), "test", FindingsBatch([]types.Finding{finding(types.BucketConfidential)}, "query"))
	assert.Zero(t, det.calls)
}

func TestWithEvidence(t *testing.T) {
	base := FindingsBatch([]types.Finding{finding(types.BucketPublic)}, "q")
	ext := base.WithEvidence([]types.Evidence{{DocumentID: "x", Bucket: types.BucketConfidential}})

	c, p := ext.Composition()
	assert.Equal(t, 1, c)
	assert.Equal(t, 1, p)

	c, _ = base.Composition()
	assert.Zero(t, c, "base batch is not mutated")
}

func TestDecisions_Ordered(t *testing.T) {
	r := New(nil, nil)
	ctx := context.Background()
	r.Choose(ctx, "clarifier", QueryBatch("q"))
	r.Choose(ctx, "researcher", FindingsBatch([]types.Finding{finding(types.BucketConfidential)}))
	r.Choose(ctx, "answerer", FindingsBatch([]types.Finding{finding(types.BucketPublic)}))

	got := r.Decisions()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"clarifier", "researcher", "answerer"}, []string{got[0].Stage, got[1].Stage, got[2].Stage})
	assert.Equal(t, []Kind{Cloud, Local, Cloud}, []Kind{got[0].Backend, got[1].Backend, got[2].Backend})
	assert.Equal(t, 1, got[1].Confidential)
}

func TestKindLabel(t *testing.T) {
	assert.Equal(t, types.BackendLocal, Local.Label())
	assert.Equal(t, types.BackendCloud, Cloud.Label())
	assert.Equal(t, types.BackendUnknown, Kind("").Label())
}

func TestPatternDetector(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"contact jane.doe@example.com", true},
		{"call (555) 123-4567", true},
		{"ssn 123-45-6789", true},
		{"card 4111 1111 1111 1111", true},
		{"What was Q1 2024 revenue?", false},
		{"Summarize the contract terms", false},
	}
	d := NewPatternDetector()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := d.Detect(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
