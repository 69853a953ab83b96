package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("info"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestZapAdapter_FieldsAndErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).WithFields(map[string]interface{}{"function": "GetTableSchema"})

	log.Warn("lookup failed", map[string]interface{}{
		"dataset": "Sales",
		"cause":   errors.New("boom"),
	})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "lookup failed", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "GetTableSchema", ctx["function"])
	assert.Equal(t, "Sales", ctx["dataset"])
	assert.Equal(t, "boom", ctx["cause"])
}

func TestNew_FallsBackOnBadOutput(t *testing.T) {
	l := New("info", "json", "/nonexistent-dir/for/sure/log.txt")
	require.NotNil(t, l)
	l.Info("still logging")
}

func TestNoOpLogger(t *testing.T) {
	log := NewNoOpLogger()
	log.WithError(errors.New("ignored")).Error("nothing", nil)
}
