package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      LogLevel
		want    zerolog.Level
		wantErr bool
	}{
		{LogLevelTrace, zerolog.TraceLevel, false},
		{LogLevelDebug, zerolog.DebugLevel, false},
		{LogLevelInfo, zerolog.InfoLevel, false},
		{LogLevelWarn, zerolog.WarnLevel, false},
		{LogLevelError, zerolog.ErrorLevel, false},
		{LogLevelFatal, zerolog.FatalLevel, false},
		{"verbose", 0, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLoggerWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLoggerWithWriter(&Config{
		Level:     LogLevelInfo,
		Format:    LogFormatJSON,
		Component: "test",
	}, &buf)
	require.NoError(t, err)

	logger.Debug().Msg("dropped")
	logger.Info().Str("k", "v").Msg("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["message"])
	assert.Equal(t, "test", line["component"])
	assert.Equal(t, "v", line["k"])
}

func TestNewLoggerWithWriter_Caller(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLoggerWithWriter(&Config{
		Level:  LogLevelDebug,
		Format: LogFormatJSON,
		Caller: true,
	}, &buf)
	require.NoError(t, err)

	logger.Debug().Msg("with caller")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Contains(t, line["caller"], "logger_test.go")
	assert.NotContains(t, line, "component")
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(&Config{Level: "loud", Format: LogFormatJSON, Output: LogOutputStderr})
	assert.Error(t, err)
}
