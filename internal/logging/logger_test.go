package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/newsimpact/internal/config"
)

func TestJSONFormatWritesStructuredLines(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	logger.Info().Str("title", "央行降准").Int("count", 3).Msg("batch finished")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "batch finished", entry["message"])
	assert.Equal(t, "央行降准", entry["title"])
	assert.EqualValues(t, 3, entry["count"])

	raw, ok := entry["time"].(string)
	require.True(t, ok, "json lines carry a timestamp")
	ts, err := time.Parse(time.RFC3339Nano, raw)
	require.NoError(t, err, "json timestamps include the date")
	assert.WithinDuration(t, time.Now(), ts, time.Minute)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "debug", Format: "text"}, &buf)

	logger.Debug().Str("source", "sina").Msg("fetched feed")
	assert.True(t, strings.Contains(buf.String(), "fetched feed"))
}

func TestNopAndOrNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Error().Msg("discarded")
		OrNop(nil).Warn().Msg("discarded")
	})
	l := Nop()
	assert.Same(t, l, OrNop(l))
}

func TestTextFormatUsesClockTime(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "info", Format: "text"}, &buf)

	logger.Info().Msg("started")
	assert.Regexp(t, `^\d{2}:\d{2}:\d{2} INF`, buf.String())
	assert.NotContains(t, buf.String(), "\x1b[", "no colour when not writing to a terminal")
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, isTerminal(&bytes.Buffer{}))

	f, err := os.Create(filepath.Join(t.TempDir(), "log.txt"))
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, isTerminal(f), "regular files are not terminals")
}
