package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AutoIsJSONOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("", "", &buf)
	require.NoError(t, err)
	l.Info("decoded", "method", "main", "insts", 4)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "decoded", rec["msg"])
	assert.Equal(t, "main", rec["method"])
	assert.EqualValues(t, 4, rec["insts"])
}

func TestNew_TextAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("warn", "text", &buf)
	require.NoError(t, err)
	l.Info("hidden")
	l.Warn("shown", "kind", "overflow")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.Contains(out, "msg=shown kind=overflow"), out)
}

func TestNew_Errors(t *testing.T) {
	_, err := New("loud", "", &bytes.Buffer{})
	assert.ErrorContains(t, err, `unknown log level "loud"`)
	_, err = New("", "xml", &bytes.Buffer{})
	assert.ErrorContains(t, err, `unknown log format "xml"`)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}

func TestSetup(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	l, err := Setup("debug", "json", &buf)
	require.NoError(t, err)
	assert.Same(t, l, slog.Default())
	slog.Debug("ping")
	assert.Contains(t, buf.String(), `"msg":"ping"`)
}

func TestIsTerminal_NotFile(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}
