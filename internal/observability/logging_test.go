package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/realm/internal/config"
)

func TestNewLogger_JSON(t *testing.T) {
	cfg := config.LoggingConfig{Level: "info", Format: "json"}
	logger, err := NewLogger(cfg, "combatsim")
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLogger_Console(t *testing.T) {
	cfg := config.LoggingConfig{Level: "debug", Format: "console"}
	logger, err := NewLogger(cfg, "")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	cfg := config.LoggingConfig{Level: "trace", Format: "json"}
	_, err := NewLogger(cfg, "combatsim")
	assert.Error(t, err)
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	cfg := config.LoggingConfig{Level: "info", Format: "xml"}
	_, err := NewLogger(cfg, "combatsim")
	assert.Error(t, err)
}

func TestNewLogger_LevelIsHonoured(t *testing.T) {
	for _, tc := range []struct {
		level    string
		disabled zapcore.Level
	}{
		{"info", zapcore.DebugLevel},
		{"warn", zapcore.InfoLevel},
		{"error", zapcore.WarnLevel},
	} {
		logger, err := NewLogger(config.LoggingConfig{Level: tc.level, Format: "json"}, "combatsim")
		require.NoError(t, err, "level %q should be valid", tc.level)
		assert.False(t, logger.Core().Enabled(tc.disabled), "level %q", tc.level)
	}
}
