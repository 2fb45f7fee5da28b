package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel(" warning "))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}

func TestFileSinkWritesEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parley.log")
	Init(Options{Level: "info", File: path, MaxSizeMB: 1})
	defer InitNop()

	Info("conversation_created", "conversation", "c1")
	Debug("hidden_event")
	Sync()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "conversation_created")
	assert.Contains(t, string(b), "\"conversation\":\"c1\"")
	assert.NotContains(t, string(b), "hidden_event")
}

func TestSafeHeadersMasksCredentials(t *testing.T) {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set("X-API-Key", "frontend-key-123")
	ctx.Request.Header.Set("X-User-ID", "user-1")

	out := SafeHeadersFast(&ctx)
	assert.Contains(t, out, "f*****3")
	assert.NotContains(t, out, "frontend-key-123")
	assert.Contains(t, out, "user-1")
}

func TestHelpersNoopWithoutInit(t *testing.T) {
	Log = nil
	assert.NotPanics(t, func() {
		Info("x")
		Warn("y", "k", 1)
		Sync()
	})
}
