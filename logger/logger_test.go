package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLogger(t *testing.T, level string) (*Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	return NewWithWriter(&Config{Level: level, Format: "json"}, "mira", buf), buf
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &out))
	return out
}

func TestJSONOutputCarriesFields(t *testing.T) {
	l, buf := jsonLogger(t, "debug")
	l.WithComponent("discovery").Info("engines reconciled", Fields("added", 2))

	line := lastLine(t, buf)
	assert.Equal(t, "engines reconciled", line["message"])
	assert.Equal(t, "discovery", line[FieldComponent])
	assert.Equal(t, "mira", line["service"])
	assert.EqualValues(t, 2, line["added"])
	assert.Equal(t, "info", line["level"])
}

func TestLevelFiltering(t *testing.T) {
	l, buf := jsonLogger(t, "warn")
	l.Info("dropped")
	l.Debug("dropped")
	assert.Zero(t, buf.Len())

	l.Warn("kept")
	assert.Equal(t, "kept", lastLine(t, buf)["message"])
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	l, buf := jsonLogger(t, "loud")
	l.Debug("dropped")
	assert.Zero(t, buf.Len())
	l.Info("kept")
	assert.Equal(t, "kept", lastLine(t, buf)["message"])
}

func TestWithContextAddsRequestID(t *testing.T) {
	l, buf := jsonLogger(t, "info")
	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	l.WithContext(ctx).Info("handled")
	assert.Equal(t, "req-1", lastLine(t, buf)[FieldRequestID])

	assert.Same(t, l, l.WithContext(context.Background()))
}

func TestWithFields(t *testing.T) {
	l, buf := jsonLogger(t, "info")
	l.WithFields(Fields(FieldEngineKey, "e1")).Error("fetch failed", ErrorFields("fetch", errors.New("boom")))

	line := lastLine(t, buf)
	assert.Equal(t, "boom", line[FieldError])
	assert.Equal(t, "e1", line[FieldEngineKey])
	assert.Equal(t, "error", line["level"])
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().WithComponent("x").WithContext(context.Background()).Info("nothing")
	})
}

func TestConsoleFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewWithWriter(&Config{Level: "info", Format: "console", NoColor: true}, "mira", buf)
	l.Info("hello", Fields("k", "v"))
	assert.Contains(t, buf.String(), "[MIR][INF]")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "k:")

	buf.Reset()
	l.Warn("careful")
	assert.Contains(t, buf.String(), "[MIR][WRN]")
}

func TestGlobalLogger(t *testing.T) {
	prev := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(prev) })

	l, buf := jsonLogger(t, "info")
	SetGlobalLogger(l)
	WithComponent("api").Info("up")
	assert.Equal(t, "api", lastLine(t, buf)[FieldComponent])
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.True(t, cfg.Timestamp)
	assert.NoError(t, cfg.Validate())

	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad level", Config{Level: "verbose", Format: "json"}},
		{"bad format", Config{Level: "info", Format: "xml"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.cfg.Validate())
		})
	}
}

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, map[string]interface{}{"a": 1}, Fields("a", 1, "dangling"))
	assert.Equal(t, map[string]interface{}{"b": 2}, Fields(3, "x", "b", 2))

	ef := ErrorFields("refresh", errors.New("down"))
	assert.Equal(t, "refresh", ef[FieldOperation])
	assert.Equal(t, "down", ef[FieldError])
}
