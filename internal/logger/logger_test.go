package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/Rrens/groqchat/internal/config"
	"github.com/Rrens/groqchat/internal/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_JSONInProduction(t *testing.T) {
	t.Setenv("ENV", "production")
	var buf bytes.Buffer

	l := logger.Init(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	l.Info().Msg("dropped")
	l.Warn().Str("session_id", "abc").Msg("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "groqchat", entry["service"])
	assert.Equal(t, "abc", entry["session_id"])
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

func TestInit_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(config.LoggingConfig{Level: "loud"}, &buf)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
