package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundnav/pkg/config"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "log output: %s", buf.String())
	return entry
}

func TestNew(t *testing.T) {
	cfg := &config.Config{Env: "development", LogLevel: "warn", LogFormat: "json"}
	log := New(cfg)
	require.NotNil(t, log)
	assert.Equal(t, zerolog.WarnLevel, log.Zerolog().GetLevel())
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", "json")

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warnf("retry attempt: %d", 3)
	entry := decode(t, &buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "retry attempt: 3", entry["message"])
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", "json")

	log.WithModule("resolver").
		WithFund("110011").
		WithFields(map[string]interface{}{"coverage": 62.5}).
		Debug("holdings accepted")

	entry := decode(t, &buf)
	assert.Equal(t, "resolver", entry["module"])
	assert.Equal(t, "110011", entry["fund_code"])
	assert.Equal(t, 62.5, entry["coverage"])
	assert.Equal(t, "holdings accepted", entry["message"])
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "json")

	log.WithError(errors.New("timeout")).Error("nav fetch failed")

	entry := decode(t, &buf)
	assert.Equal(t, "timeout", entry["error"])
	assert.Equal(t, "error", entry["level"])
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Error("nothing happens")
	log.WithField("k", "v").Infof("still %s", "nothing")
}
