package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileLoggerWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "labeler.log")

	logger, closeLogger, err := NewFileLogger(path, "datastore", slog.LevelDebug)
	require.NoError(t, err)

	logger.Info("annotation updated", "annotation_id", 42)
	require.NoError(t, closeLogger())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "annotation updated", entry["msg"])
	assert.Equal(t, "datastore", entry["service"])
	assert.Equal(t, float64(42), entry["annotation_id"])
}

func TestNewFileLoggerRespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labeler.log")

	logger, closeLogger, err := NewFileLogger(path, "datastore", slog.LevelWarn)
	require.NoError(t, err)

	logger.Info("below threshold")
	logger.Warn("at threshold")
	require.NoError(t, closeLogger())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "below threshold")
	assert.Contains(t, string(data), "at threshold")
}

func TestForServiceBeforeInit(t *testing.T) {
	prev := structuredLogger
	structuredLogger = nil
	t.Cleanup(func() { structuredLogger = prev })

	assert.Nil(t, ForService("datastore"))
}
