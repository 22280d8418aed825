// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/inquiry-engine/pkg/types"
)

// DecodeJSON extracts the JSON value from a model response and unmarshals
// it into v. Models often wrap JSON in markdown fences or prose, so the
// outermost object or array is located before decoding. Any failure is
// wrapped with types.ErrParseFailure.
func DecodeJSON(text string, v any) error {
	raw := extractJSON(text)
	if raw == "" {
		return fmt.Errorf("%w: no JSON value in response", types.ErrParseFailure)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: %w", types.ErrParseFailure, err)
	}
	return nil
}

func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if i := strings.LastIndex(text, "```"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return ""
	}
	closer := "}"
	if text[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(text, closer)
	if end < start {
		return ""
	}
	return text[start : end+1]
}
