// Package config loads pipeline configuration from YAML.
//
// Every knob has a safe default, so an absent config file yields a fully
// working pipeline. A present file is parsed strictly: unknown fields are
// rejected to catch typos early.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML can spell timeouts as "10s" or
// "500ms" instead of raw nanoseconds.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in Go syntax.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the underlying time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the complete pipeline configuration.
type Config struct {
	// Database is the SQLite database path. ":memory:" is allowed.
	Database string `yaml:"database,omitempty"`

	// DefaultLimit is the row cap appended to queries without an explicit
	// limit request.
	DefaultLimit int `yaml:"default_limit,omitempty"`

	// SampleSize caps validation samples and stored segment samples.
	SampleSize int `yaml:"sample_size,omitempty"`

	// SafeRows is the estimated-size threshold above which validation
	// attaches a large-result warning.
	SafeRows int64 `yaml:"safe_rows,omitempty"`

	// MinConfidence fails intent parsing below this threshold. Zero keeps
	// the permissive default: low confidence surfaces ambiguous terms but
	// the pipeline proceeds.
	MinConfidence float64 `yaml:"min_confidence,omitempty"`

	// StageTimeout bounds each pipeline stage individually.
	StageTimeout Duration `yaml:"stage_timeout,omitempty"`

	// DownstreamTargets lists the systems each segment is activated in.
	DownstreamTargets []string `yaml:"downstream_targets,omitempty"`

	// LexiconDir optionally overrides the embedded vocabulary with CUE
	// files from disk.
	LexiconDir string `yaml:"lexicon_dir,omitempty"`

	// Gemini enables the NLU parsing strategy when configured.
	Gemini GeminiConfig `yaml:"gemini,omitempty"`
}

// GeminiConfig configures the optional model-backed parsing strategy.
// The API key is never read from YAML; it comes from the environment.
type GeminiConfig struct {
	// Enabled switches intent parsing from the rule-based strategy to the
	// model-backed one.
	Enabled bool `yaml:"enabled,omitempty"`

	// Model overrides the default model name.
	Model string `yaml:"model,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Database:      "bank.db",
		DefaultLimit:  1000,
		SampleSize:    5,
		SafeRows:      10000,
		MinConfidence: 0,
		StageTimeout:  Duration(10 * time.Second),
		DownstreamTargets: []string{
			"CRM_System",
			"Email_Marketing_Platform",
			"Ad_Platform",
			"Analytics_Dashboard",
		},
	}
}

// Load reads a YAML config file and merges it over the defaults.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or fails validation.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes over the defaults with strict field
// validation.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// validateConfig checks ranges on the merged configuration.
func validateConfig(c *Config) error {
	if c.Database == "" {
		return fmt.Errorf("database path is required")
	}
	if c.DefaultLimit <= 0 {
		return fmt.Errorf("default_limit must be positive, got %d", c.DefaultLimit)
	}
	if c.SampleSize <= 0 {
		return fmt.Errorf("sample_size must be positive, got %d", c.SampleSize)
	}
	if c.SafeRows <= 0 {
		return fmt.Errorf("safe_rows must be positive, got %d", c.SafeRows)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be between 0 and 1, got %v", c.MinConfidence)
	}
	if c.StageTimeout <= 0 {
		return fmt.Errorf("stage_timeout must be positive, got %v", c.StageTimeout)
	}
	if len(c.DownstreamTargets) == 0 {
		return fmt.Errorf("downstream_targets must be non-empty")
	}
	return nil
}
