package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("source:\n  url: https://example.com/data.csv\n"))
	require.NoError(t, err)

	assert.Equal(t, "http", c.Source.Type)
	assert.Equal(t, 5000, c.Source.ChunkSize)
	assert.Equal(t, "last_n_records", c.Window.Policy)
	assert.Equal(t, 7, c.Window.Size)
	assert.Equal(t, "wall_clock", c.Window.Anchor)
	assert.Equal(t, "BB_Flag", c.Filters.FlagField)
	assert.Equal(t, "keep_all", c.Filters.Duplicates)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 10*time.Minute, c.Source.Cache.TTL)
	assert.False(t, c.Events.Kafka.Enabled)
}

func TestParseOverridesDefaults(t *testing.T) {
	raw := `
source:
  type: file
  path: ./data.csv
window:
  policy: last_n_days
  size: 30
  anchor: dataset_latest
schema:
  aliases:
    Breakout: [Breakout, breakout]
`
	c, err := Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "file", c.Source.Type)
	assert.Equal(t, "last_n_days", c.Window.Policy)
	assert.Equal(t, 30, c.Window.Size)
	assert.Equal(t, "dataset_latest", c.Window.Anchor)
	assert.Equal(t, []string{"Breakout", "breakout"}, c.Schema.Aliases["Breakout"])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing url", "source:\n  type: http\n"},
		{"missing path", "source:\n  type: file\n"},
		{"unknown source", "source:\n  type: ftp\n"},
		{"unknown policy", "source:\n  url: x\nwindow:\n  policy: weekly\n"},
		{"negative size", "source:\n  url: x\nwindow:\n  size: -1\n"},
		{"unknown anchor", "source:\n  url: x\nwindow:\n  anchor: tomorrow\n"},
		{"unknown duplicates", "source:\n  url: x\nfilters:\n  duplicates: merge\n"},
		{"kafka without brokers", "source:\n  url: x\nevents:\n  kafka:\n    enabled: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source:\n  url: https://example.com/a.csv\n"), 0o600))

	t.Setenv("SCREENER_SOURCE_URL", "https://example.com/b.csv")
	t.Setenv("SCREENER_WINDOW_POLICY", "last_n_days")
	t.Setenv("SCREENER_WINDOW_SIZE", "14")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/b.csv", c.Source.URL)
	assert.Equal(t, "last_n_days", c.Window.Policy)
	assert.Equal(t, 14, c.Window.Size)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Events.Kafka.Brokers)
}

func TestLoadWithEnvRejectsBadNumber(t *testing.T) {
	t.Setenv("SCREENER_SOURCE_URL", "https://example.com/a.csv")
	t.Setenv("SCREENER_WINDOW_SIZE", "seven")
	_, err := LoadWithEnv("")
	assert.Error(t, err)
}

func TestLoadWithEnvFillsMissingSourceFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source:\n  type: http\n"), 0o600))

	t.Setenv("SCREENER_SOURCE_URL", "https://example.com/env.csv")
	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "http", c.Source.Type)
	assert.Equal(t, "https://example.com/env.csv", c.Source.URL)

	_, err = Load(path)
	assert.ErrorContains(t, err, "source.url is required")
}

func TestLoadWithEnvSwitchesSourceType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source:\n  type: http\n"), 0o600))

	t.Setenv("SCREENER_SOURCE_TYPE", "file")
	t.Setenv("SCREENER_SOURCE_PATH", "/data/daily.csv")
	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "file", c.Source.Type)
	assert.Equal(t, "/data/daily.csv", c.Source.Path)
}
