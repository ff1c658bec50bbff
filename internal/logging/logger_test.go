package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake_JSONLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New().FromWriter(&buf).Level("warn").JSON(true).Make()
	require.NoError(t, err)
	defer closer.Close()

	logger.Info().Msg("hidden")
	logger.Warn().Int64("note_id", 3).Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "warn", entry["level"])
	assert.EqualValues(t, 3, entry["note_id"])
	assert.Contains(t, entry, "time")
}

func TestMake_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New().FromWriter(&buf).Make()
	require.NoError(t, err)

	logger.Info().Str("title", "Trip").Msg("created note")
	assert.Contains(t, buf.String(), "created note")
	assert.Contains(t, buf.String(), "title=Trip")
}

func TestMake_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inkwell.log")
	var buf bytes.Buffer
	logger, closer, err := New().FromWriter(&buf).FromPath(path).JSON(true).Make()
	require.NoError(t, err)

	logger.Error().Msg("to both")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to both")
	assert.Contains(t, buf.String(), "to both")
}

func TestMake_BadLevel(t *testing.T) {
	_, _, err := New().Level("loud").Make()
	assert.Error(t, err)
}
