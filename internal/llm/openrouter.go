// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"

	"github.com/revrost/go-openrouter"

	"github.com/pdiddy/inquiry-engine/pkg/types"
)

// OpenRouterBackend calls a cloud model through OpenRouter.
type OpenRouterBackend struct {
	client *openrouter.Client
	model  string
}

// NewOpenRouterBackend creates an OpenRouter backend for model.
func NewOpenRouterBackend(apiKey, model string) *OpenRouterBackend {
	return &OpenRouterBackend{client: openrouter.NewClient(apiKey), model: model}
}

// Name implements Backend.
func (o *OpenRouterBackend) Name() string { return "openrouter:" + o.model }

// Complete implements Backend.
func (o *OpenRouterBackend) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	request := openrouter.ChatCompletionRequest{
		Model:       o.model,
		Messages:    toOpenRouter(messages),
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
	}

	response, err := o.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("%w: openrouter completion: %w", types.ErrBackendUnavailable, err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: openrouter returned no choices", types.ErrBackendUnavailable)
	}
	return response.Choices[0].Message.Content.Text, nil
}

func toOpenRouter(messages []Message) []openrouter.ChatCompletionMessage {
	out := make([]openrouter.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := openrouter.ChatMessageRoleUser
		switch m.Role {
		case RoleSystem:
			role = openrouter.ChatMessageRoleSystem
		case RoleAssistant:
			role = openrouter.ChatMessageRoleAssistant
		}
		out[i] = openrouter.ChatCompletionMessage{
			Role:    role,
			Content: openrouter.Content{Text: m.Content},
		}
	}
	return out
}
