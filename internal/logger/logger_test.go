package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetLogger(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		InitWithWriter(os.Stdout, "INFO", "text")
	})
}

func TestLevelFiltering(t *testing.T) {
	resetLogger(t)
	var buf bytes.Buffer
	InitWithWriter(&buf, "WARN", "text")

	Debug("debug %d", 1)
	Info("info %d", 2)
	Warn("warn %d", 3)
	Error("error %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "debug 1")
	assert.NotContains(t, out, "info 2")
	assert.Contains(t, out, "warn 3")
	assert.Contains(t, out, "error 4")
}

func TestSetLevel_IgnoresUnknown(t *testing.T) {
	resetLogger(t)
	var buf bytes.Buffer
	InitWithWriter(&buf, "DEBUG", "text")

	SetLevel("chatty")
	assert.True(t, IsDebug())

	Debug("still here")
	assert.Contains(t, buf.String(), "still here")
}

func TestJSONFormat(t *testing.T) {
	resetLogger(t)
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "json")

	Info("opened %s", "test.txt")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "opened test.txt", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestInit_FileOutput(t *testing.T) {
	resetLogger(t)
	path := filepath.Join(t.TempDir(), "snapfiles.log")

	require.NoError(t, Init(Config{Level: "INFO", Format: "text", Output: path}))
	Info("to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestInit_BadFile(t *testing.T) {
	resetLogger(t)
	err := Init(Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "log")})
	assert.Error(t, err)
}
