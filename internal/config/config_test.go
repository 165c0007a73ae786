package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, validateConfig(&cfg))
	assert.Equal(t, 1000, cfg.DefaultLimit)
	assert.Equal(t, 5, cfg.SampleSize)
	assert.Equal(t, int64(10000), cfg.SafeRows)
	assert.Equal(t, 0.0, cfg.MinConfidence)
	assert.Len(t, cfg.DownstreamTargets, 4)
	assert.False(t, cfg.Gemini.Enabled)
}

func TestParseMergesOverDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
database: customers.db
default_limit: 250
stage_timeout: 2s
gemini:
  enabled: true
  model: gemini-2.0-flash
`))
	require.NoError(t, err)

	assert.Equal(t, "customers.db", cfg.Database)
	assert.Equal(t, 250, cfg.DefaultLimit)
	assert.Equal(t, 2*time.Second, cfg.StageTimeout.Std())
	assert.True(t, cfg.Gemini.Enabled)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)

	// untouched fields keep their defaults
	assert.Equal(t, 5, cfg.SampleSize)
	assert.Equal(t, int64(10000), cfg.SafeRows)
}

func TestParseRejectsUnknownField(t *testing.T) {
	_, err := Parse([]byte("default_limt: 100\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseRejectsBadDuration(t *testing.T) {
	_, err := Parse([]byte("stage_timeout: soon\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"zero limit", "default_limit: 0", "default_limit must be positive"},
		{"negative sample", "sample_size: -1", "sample_size must be positive"},
		{"confidence above one", "min_confidence: 1.5", "min_confidence must be between 0 and 1"},
		{"empty targets", "downstream_targets: []", "downstream_targets must be non-empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sample_size: 3\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.SampleSize)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
