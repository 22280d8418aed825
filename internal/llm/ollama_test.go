// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/inquiry-engine/pkg/types"
)

func TestOllamaBackend_Complete(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Write([]byte(`{"model":"llama","message":{"role":"assistant","content":"local answer"},"done":true}` + "\n"))
	}))
	defer ts.Close()

	b, err := NewOllamaBackend(ts.URL, "llama", ts.Client())
	require.NoError(t, err)
	assert.Equal(t, "ollama:llama", b.Name())

	text, err := b.Complete(context.Background(), []Message{System("s"), User("u")}, Options{MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "local answer", text)
	assert.Equal(t, "llama", got["model"])
	assert.Equal(t, false, got["stream"])
}

func TestOllamaBackend_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"model not loaded"}`))
	}))
	defer ts.Close()

	b, err := NewOllamaBackend(ts.URL, "llama", ts.Client())
	require.NoError(t, err)
	_, err = b.Complete(context.Background(), []Message{User("u")}, Options{})
	assert.ErrorIs(t, err, types.ErrBackendUnavailable)
}

func TestToOpenRouter(t *testing.T) {
	msgs := toOpenRouter([]Message{System("s"), User("u"), {Role: RoleAssistant, Content: "a"}})
	require.Len(t, msgs, 3)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "assistant", msgs[2].Role)
	assert.Equal(t, "u", msgs[1].Content.Text)
}
