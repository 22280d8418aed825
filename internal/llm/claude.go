// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/inquiry-engine/internal/httputil"
	"github.com/pdiddy/inquiry-engine/pkg/types"
)

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// ClaudeBackend calls the Anthropic Messages API. It is a cloud backend.
type ClaudeBackend struct {
	APIKey string
	Model  string
	Client *http.Client
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	System      string          `json:"system,omitempty"`
	Messages    []claudeMessage `json:"messages"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

// claudeContent is a content block in the Claude API response.
type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Name implements Backend.
func (c *ClaudeBackend) Name() string { return "anthropic:" + c.Model }

// Complete sends messages to the Claude API. System messages are folded
// into the request's system field.
func (c *ClaudeBackend) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	reqBody := claudeRequest{
		Model:       c.Model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	if reqBody.MaxTokens <= 0 {
		reqBody.MaxTokens = 1024
	}

	var system []string
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		reqBody.Messages = append(reqBody.Messages, claudeMessage{Role: string(m.Role), Content: m.Content})
	}
	reqBody.System = strings.Join(system, "\n\n")

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w: %w", types.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: Claude API returned %d: %s", types.ErrBackendUnavailable, resp.StatusCode, string(body))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("%w: decoding Claude response: %w", types.ErrBackendUnavailable, err)
	}

	var text strings.Builder
	for _, block := range cResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("%w: Claude API returned empty content", types.ErrBackendUnavailable)
	}
	return text.String(), nil
}
