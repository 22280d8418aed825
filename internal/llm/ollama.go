// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/pdiddy/inquiry-engine/pkg/types"
)

// OllamaBackend calls a locally hosted model through an Ollama server. It
// is the only backend allowed to see confidential content.
type OllamaBackend struct {
	client *api.Client
	model  string
}

// NewOllamaBackend creates a local backend talking to the server at host.
func NewOllamaBackend(host, model string, httpClient *http.Client) (*OllamaBackend, error) {
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parsing local model host %q: %w", host, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OllamaBackend{client: api.NewClient(base, httpClient), model: model}, nil
}

// Name implements Backend.
func (o *OllamaBackend) Name() string { return "ollama:" + o.model }

// Complete implements Backend.
func (o *OllamaBackend) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: make([]api.Message, len(messages)),
		Stream:   &stream,
		Options:  map[string]any{"temperature": opts.Temperature},
	}
	if opts.MaxTokens > 0 {
		req.Options["num_predict"] = opts.MaxTokens
	}
	for i, m := range messages {
		req.Messages[i] = api.Message{Role: string(m.Role), Content: m.Content}
	}

	var text strings.Builder
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		text.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: ollama chat: %w", types.ErrBackendUnavailable, err)
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("%w: ollama returned empty content", types.ErrBackendUnavailable)
	}
	return text.String(), nil
}
