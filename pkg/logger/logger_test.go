package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"", zerolog.InfoLevel},
		{"   nonsense   ", zerolog.InfoLevel},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ParseLevel(c.in), "ParseLevel(%q)", c.in)
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "info", Format: "json", Component: "engine", Writer: &buf})
	log.Debug().Msg("hidden")
	log.Info().Uint32("id", 0x3D3).Msg("frame")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "frame", line["message"])
	assert.Equal(t, "engine", line["component"])
	assert.Equal(t, float64(0x3D3), line["id"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewConsoleAndNamed(t *testing.T) {
	var buf bytes.Buffer
	log := Named(New(Options{Level: "debug", Writer: &buf}), "client")
	log.Debug().Msg("opened")
	assert.Contains(t, buf.String(), "opened")
	assert.Contains(t, buf.String(), "client")
}

func TestNop(t *testing.T) {
	log := Nop()
	assert.Equal(t, zerolog.Disabled, log.GetLevel())
}
