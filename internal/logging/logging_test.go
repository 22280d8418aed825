// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/inquiry-engine/pkg/types"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.LogConfig
		enabled zapcore.Level
		wantErr bool
	}{
		{"console info", types.LogConfig{Level: "info", Format: "console"}, zapcore.InfoLevel, false},
		{"json debug", types.LogConfig{Level: "DEBUG", Format: "json"}, zapcore.DebugLevel, false},
		{"default format", types.LogConfig{Level: "warn"}, zapcore.WarnLevel, false},
		{"bad level", types.LogConfig{Level: "loud"}, 0, true},
		{"bad format", types.LogConfig{Level: "info", Format: "xml"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(tt.enabled))
			assert.False(t, log.Core().Enabled(tt.enabled-1))
		})
	}
}
