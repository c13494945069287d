package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nalberthy/url-shorten/internal/platform/config"
)

func TestNew_JSONWithServiceAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := New(&buf, Options{Level: slog.LevelWarn, Format: "json", ServiceName: "url-shorten"})
	assert.NoError(t, closer.Close())

	logger.Info("dropped")
	logger.Warn("kept", "code", "abc123")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &m))
	assert.Equal(t, "kept", m["msg"])
	assert.Equal(t, "url-shorten", m["service"])
	assert.Equal(t, "abc123", m["code"])
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(&buf, Options{Level: slog.LevelInfo, Format: "TEXT"})
	logger.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestNew_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	var buf bytes.Buffer
	logger, closer := New(&buf, Options{Level: slog.LevelInfo, File: path, MaxSizeMB: 1})
	require.NotNil(t, closer)

	logger.Info("to-file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to-file")
	assert.Contains(t, buf.String(), "to-file")
}

func TestSetup_CloseWithoutFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	closer := Setup(config.Config{LogFormat: "json"})
	require.NotNil(t, closer)
	assert.NoError(t, closer.Close())
}
