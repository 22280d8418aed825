// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads model credentials from a directory of plain-text
// files. The filename is the key name and the trimmed contents are the value.
// Environment variables take precedence over files.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Known key files.
const (
	AnthropicAPIKey  = "anthropic-api-key"
	OpenRouterAPIKey = "openrouter-api-key"
)

// envVars maps key names onto the environment variables that override them.
var envVars = map[string]string{
	AnthropicAPIKey:  "ANTHROPIC_API_KEY",
	OpenRouterAPIKey: "OPENROUTER_API_KEY",
}

// Store holds loaded secrets.
type Store map[string]string

// Load reads all files in dir. A missing directory is not an error and
// yields an empty Store. Unreadable files are logged and skipped.
func Load(dir string, log *zap.Logger) (Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Store{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	store := make(Store)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			store[name] = value
		}
	}
	return store, nil
}

// Get returns the value for key, preferring its environment variable.
func (s Store) Get(key string) string {
	if env, ok := envVars[key]; ok {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	return s[key]
}
