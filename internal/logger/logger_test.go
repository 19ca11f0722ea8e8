package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("warn", &buf)

	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.Warn().Str("job_id", "42").Msg("visible")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "visible", line["message"])
	assert.Equal(t, "42", line["job_id"])
}

func TestNewWithWriter_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("loud", &buf)

	log.Debug().Msg("debug")
	assert.Zero(t, buf.Len())
	log.Info().Msg("info")
	assert.NotZero(t, buf.Len())
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf).Component("jobs")
	log.Info().Msg("hello")
	assert.Contains(t, buf.String(), `"component":"jobs"`)
}

func TestNew_CreatesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "kandra.log")
	log, err := New("info", path)
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.FileExists(t, path)
}

func TestGet_NoopWhenUninitialized(t *testing.T) {
	prev := Global
	Global = nil
	defer func() { Global = prev }()

	assert.NotNil(t, Get())
	assert.NotNil(t, OrGet(nil))
}
