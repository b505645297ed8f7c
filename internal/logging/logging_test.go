package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orphanfinder/internal/config"
)

func TestSlogLogger_LevelsAndWith(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	log := NewSlogLogger(slog.New(h))
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.With("step", 3).Warn(ctx, "slow step")

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "msg=dbg")
	assert.Contains(t, out, "a=1")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "step=3")
}

func TestNew_JSONAndLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	l := New(config.LogConfig{Level: "warn", Format: "json"}, &buf)

	l.Info("hidden")
	l.Warn("shown", "k", "v")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "v", rec["k"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel(" DEBUG "))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestOpen(t *testing.T) {
	w, closeFn, err := Open(config.LogConfig{})
	require.NoError(t, err)
	assert.NotNil(t, w)
	assert.NoError(t, closeFn())

	path := filepath.Join(t.TempDir(), "panel.log")
	w, closeFn, err = Open(config.LogConfig{File: path})
	require.NoError(t, err)
	_, err = w.Write([]byte("line\n"))
	require.NoError(t, err)
	assert.NoError(t, closeFn())
}
