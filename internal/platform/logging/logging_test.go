package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/ogurasousui/guard-shifts/internal/platform/config"
)

func TestNew_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  config.LogConfig
		want zapcore.Level
	}{
		{name: "default production", cfg: config.LogConfig{}, want: zapcore.InfoLevel},
		{name: "explicit warn", cfg: config.LogConfig{Level: "warn"}, want: zapcore.WarnLevel},
		{name: "development debug", cfg: config.LogConfig{Development: true}, want: zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			logger, err := New(tt.cfg)
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.want))
			assert.False(t, logger.Core().Enabled(tt.want-1))
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	t.Parallel()

	_, err := New(config.LogConfig{Level: "loud"})
	require.Error(t, err)
}
