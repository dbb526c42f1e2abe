package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilnworks/vetro/engine/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadApplicationConfigDefaultsWhenMissing(t *testing.T) {
	config, err := LoadApplicationConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultApplicationConfig(), config)
}

func TestLoadApplicationConfigParsesFile(t *testing.T) {
	path := writeConfig(t, `
name = "Shapes"
start_width = 1920
start_height = 1080
log_level = "debug"
frames_in_flight = 2
debug = true
`)

	config, err := LoadApplicationConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Shapes", config.Name)
	assert.Equal(t, uint32(1920), config.StartWidth)
	assert.Equal(t, uint32(1080), config.StartHeight)
	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, 2, config.FramesInFlight)
	assert.True(t, config.Debug)

	// Unset keys keep their defaults.
	assert.Equal(t, uint32(100), config.StartPosX)
}

func TestLoadApplicationConfigRejectsBadValues(t *testing.T) {
	_, err := LoadApplicationConfig(writeConfig(t, "frames_in_flight = 1\n"))
	assert.ErrorContains(t, err, "frames_in_flight")

	_, err = LoadApplicationConfig(writeConfig(t, "start_width = 0\n"))
	assert.ErrorContains(t, err, "window size")

	_, err = LoadApplicationConfig(writeConfig(t, "this is not toml ["))
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, core.LogLevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, core.LogLevelWarn, ParseLogLevel("WARN"))
	assert.Equal(t, core.LogLevelError, ParseLogLevel("error"))
	assert.Equal(t, core.LogLevelInfo, ParseLogLevel("info"))
	assert.Equal(t, core.LogLevelInfo, ParseLogLevel("bogus"))
}
