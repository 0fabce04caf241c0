package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"DEBUG", DebugLevel},
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"WARN", WarnLevel},
		{"WARNING", WarnLevel},
		{"ERROR", ErrorLevel},
		{"", InfoLevel},
		{"bogus", InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseLevel(tt.input), "input %q", tt.input)
	}
}

func TestZapLoggerWritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewZapLogger(LogConfig{
		Level:  DebugLevel,
		Output: &buf,
	})
	require.NoError(t, err)

	logger.Info("hello", String("vendor", "adobe"), Int("days", 5))
	out := buf.String()
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "adobe")
	assert.Contains(t, out, "INFO")
}

func TestZapLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewZapLogger(LogConfig{
		Level:  WarnLevel,
		Output: &buf,
	})
	require.NoError(t, err)

	logger.Debug("too quiet")
	logger.Info("still too quiet")
	logger.Warn("loud enough")

	out := buf.String()
	assert.NotContains(t, out, "too quiet")
	assert.Contains(t, out, "loud enough")
}

func TestZapLoggerErrorField(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewZapLogger(LogConfig{
		Level:  DebugLevel,
		Output: &buf,
	})
	require.NoError(t, err)

	logger.Error("lookup failed", errors.New("vendor table unavailable"))
	assert.Contains(t, buf.String(), "vendor table unavailable")
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewZapLogger(LogConfig{
		Level:  DebugLevel,
		Output: &buf,
	})
	require.NoError(t, err)

	child := logger.WithFields(String("workflow", "refund"))
	child.Info("evaluated")
	assert.Contains(t, buf.String(), "refund")
}

func TestGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewZapLogger(LogConfig{
		Level:  DebugLevel,
		Output: &buf,
	})
	require.NoError(t, err)

	prev := GetGlobalLogger()
	SetGlobalLogger(logger)
	defer SetGlobalLogger(prev)

	Info("global message")
	assert.Contains(t, buf.String(), "global message")
}
