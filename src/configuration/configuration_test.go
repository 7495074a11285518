package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeepsDefaults(t *testing.T) {
	settings, err := Parse([]byte("output:\n  port: FluidSynth\n"))
	require.NoError(t, err)
	assert.Equal(t, "FluidSynth", settings.Output.Port)
	assert.Equal(t, uint8(90), settings.Note.Velocity)
	assert.Equal(t, uint8(127), settings.ControlChange.On)
	assert.True(t, settings.WebUI.Enabled)
	assert.Equal(t, "info", settings.Log.Level)
	assert.Equal(t, "localhost:12600", settings.Statsview.Addr)
}

func TestParseEmpty(t *testing.T) {
	settings, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, GetDefaultSettings(), settings)
}

func TestParseFull(t *testing.T) {
	content := `
note:
  velocity: 100
controlChange:
  on: 64
  off: 1
webui:
  enabled: false
  addr: 0.0.0.0:9000
log:
  level: debug
statsview:
  addr: 127.0.0.1:7000
`
	settings, err := Parse([]byte(content))
	require.NoError(t, err)
	assert.Equal(t, uint8(100), settings.Note.Velocity)
	assert.Equal(t, uint8(64), settings.ControlChange.On)
	assert.Equal(t, uint8(1), settings.ControlChange.Off)
	assert.False(t, settings.WebUI.Enabled)
	assert.Equal(t, "0.0.0.0:9000", settings.WebUI.Addr)
	assert.Equal(t, "debug", settings.Log.Level)
	assert.Equal(t, "127.0.0.1:7000", settings.Statsview.Addr)
}

func TestParseRejectsInvalid(t *testing.T) {
	for _, content := range []string{
		"note:\n  velocity: 200\n",
		"note:\n  velocity: 0\n",
		"controlChange:\n  on: -1\n",
		"log:\n  level: verbose\n",
		"unknown: true\n",
		"webui:\n  enabled: maybe\n",
	} {
		_, err := Parse([]byte(content))
		assert.Error(t, err, content)
	}
}

func TestLoadExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "joykontrol.yaml")
	require.NoError(t, os.WriteFile(path, []byte("note:\n  velocity: 42\n"), 0644))

	settings, loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, loaded)
	assert.Equal(t, uint8(42), settings.Note.Velocity)
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseIntegerBounds(t *testing.T) {
	settings, err := Parse([]byte("note:\n  velocity: 127\ncontrolChange:\n  off: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, uint8(127), settings.Note.Velocity)
	assert.Equal(t, uint8(0), settings.ControlChange.Off)

	_, err = Parse([]byte("note:\n  velocity: 1.5\n"))
	assert.Error(t, err)
	_, err = Parse([]byte("note:\n  velocity: \"90\"\n"))
	assert.Error(t, err)
}

func TestSettingsSchemaCompiles(t *testing.T) {
	require.NotNil(t, compiledSchema)
	assert.NoError(t, compiledSchema.Validate(map[string]interface{}{}))
}
