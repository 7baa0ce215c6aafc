package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		format      string
		development bool
		wantErr     bool
	}{
		{name: "production json", level: "info", format: "json"},
		{name: "development console", level: "debug", format: "console", development: true},
		{name: "error level", level: "error", format: "json"},
		{name: "invalid level", level: "verbose", format: "json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level, tt.format, tt.development)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
			logger.Info("test message")
		})
	}
}

func TestWithComponent(t *testing.T) {
	logger, err := NewLogger("info", "json", false)
	require.NoError(t, err)

	child := logger.WithComponent("server")
	require.NotNil(t, child)
	assert.NotSame(t, logger, child)
	child.Info("component-tagged message")
}
