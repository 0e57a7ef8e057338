package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, FormatConsole, cfg.Format)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, (&Config{Level: "loud", Format: FormatJSON}).Validate())
	assert.Error(t, (&Config{Level: "debug", Format: "xml"}).Validate())
	assert.NoError(t, (&Config{Level: "DEBUG", Format: "JSON"}).Validate())
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := WithComponent(New(Config{Level: "debug", Format: FormatJSON}, &buf), "hostq")

	log.Debug().Str(FieldHost, "node.example:443").Msg("admitted")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "admitted", entry["message"])
	assert.Equal(t, "hostq", entry[FieldComponent])
	assert.Equal(t, "node.example:443", entry[FieldHost])
	assert.Contains(t, entry, "time")
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Format: FormatJSON}, &buf)

	log.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: FormatConsole, NoColor: true}, &buf)

	log.Info().Str("host", "a:80").Msg("hello")

	out := buf.String()
	assert.Contains(t, out, "INF")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "host=a:80")
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Error().Msg("dropped")
}
