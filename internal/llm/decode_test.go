// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/inquiry-engine/pkg/types"
)

func TestDecodeJSON(t *testing.T) {
	type out struct {
		Stance string `json:"stance"`
	}

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"bare object", `{"stance":"supports"}`, "supports", false},
		{"fenced", "```json\n{\"stance\":\"neutral\"}\n```", "neutral", false},
		{"fenced without language", "```\n{\"stance\":\"neutral\"}\n```", "neutral", false},
		{"prose around", "Here you go: {\"stance\":\"contradicts\"} hope that helps", "contradicts", false},
		{"no json", "I cannot answer", "", true},
		{"truncated", `{"stance":"supp`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v out
			err := DecodeJSON(tt.input, &v)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrParseFailure)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Stance)
		})
	}
}

func TestDecodeJSON_Array(t *testing.T) {
	var v []string
	require.NoError(t, DecodeJSON("Points:\n[\"a\", \"b\"]", &v))
	assert.Equal(t, []string{"a", "b"}, v)
}
