// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llmtest provides a scriptable llm.Backend for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"github.com/pdiddy/inquiry-engine/internal/llm"
)

// RespondFunc produces the reply for one call.
type RespondFunc func(messages []llm.Message) (string, error)

// Backend is a fake llm.Backend that records every call it receives.
type Backend struct {
	Label   string
	Respond RespondFunc

	mu    sync.Mutex
	calls [][]llm.Message
}

// New returns a fake backend that answers with respond.
func New(label string, respond RespondFunc) *Backend {
	return &Backend{Label: label, Respond: respond}
}

// Static returns a fake backend that always answers text.
func Static(label, text string) *Backend {
	return New(label, func([]llm.Message) (string, error) { return text, nil })
}

// Failing returns a fake backend that always fails with err.
func Failing(label string, err error) *Backend {
	return New(label, func([]llm.Message) (string, error) { return "", err })
}

// Name implements llm.Backend.
func (b *Backend) Name() string { return b.Label }

// Complete implements llm.Backend.
func (b *Backend) Complete(ctx context.Context, messages []llm.Message, _ llm.Options) (string, error) {
	b.mu.Lock()
	b.calls = append(b.calls, append([]llm.Message(nil), messages...))
	b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return b.Respond(messages)
}

// Calls returns how many calls the backend received.
func (b *Backend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

// Prompts returns the concatenated prompt text of every call received.
func (b *Backend) Prompts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.calls))
	for i, msgs := range b.calls {
		out[i] = Text(msgs)
	}
	return out
}

// Text joins message contents into one string.
func Text(messages []llm.Message) string {
	parts := make([]string, len(messages))
	for i, m := range messages {
		parts[i] = m.Content
	}
	return strings.Join(parts, "\n")
}

// Rule pairs a prompt marker with a reply.
type Rule struct {
	Marker string
	Reply  string
	Err    error
}

// Script returns a RespondFunc that answers with the first rule whose
// marker appears in the prompt, or fallback when none matches.
func Script(fallback string, rules ...Rule) RespondFunc {
	return func(messages []llm.Message) (string, error) {
		text := Text(messages)
		for _, r := range rules {
			if strings.Contains(text, r.Marker) {
				return r.Reply, r.Err
			}
		}
		return fallback, nil
	}
}
