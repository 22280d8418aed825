// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm provides the language-model backends and the Gateway every
// stage uses to reach them. Cloud and local backends expose the identical
// call shape so the Gateway can swap them per call according to the
// router's decision.
package llm

import "context"

// Role is a chat message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message sent to a backend.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System returns a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User returns a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Options are per-call generation settings.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Backend completes a conversation. Implementations wrap transport failures
// with types.ErrBackendUnavailable.
type Backend interface {
	Name() string
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
}
