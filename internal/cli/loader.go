package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/roach88/cohort/internal/catalog"
	"github.com/roach88/cohort/internal/config"
	"github.com/roach88/cohort/internal/parser"
	"github.com/roach88/cohort/internal/pipeline"
	"github.com/roach88/cohort/internal/segment"
)

// geminiKeyEnv names the environment variable holding the Gemini API key.
// The key is never read from the config file.
const geminiKeyEnv = "GEMINI_API_KEY"

// loadConfig resolves the effective configuration: defaults, overlaid by the
// config file when one is given, overlaid by the --db flag when set.
func loadConfig(configPath, dbPath string) (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}
	if dbPath != "" {
		cfg.Database = dbPath
	}
	return cfg, nil
}

// buildPipeline opens the database and assembles a pipeline from the
// configuration. The caller must Close the returned catalog.
func buildPipeline(ctx context.Context, cfg config.Config, verbose bool) (*pipeline.Pipeline, *catalog.Catalog, error) {
	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	cat, err := catalog.Open(cfg.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	if cfg.Gemini.Enabled {
		strategy, err := parser.NewGeminiParser(ctx, os.Getenv(geminiKeyEnv), cfg.Gemini.Model)
		if err != nil {
			cat.Close()
			return nil, nil, WrapExitError(ExitCommandError, "failed to initialize gemini strategy", err)
		}
		opts = append(opts, pipeline.WithStrategy("gemini", strategy))
	}

	p, err := pipeline.New(cat, segment.NewStore(), cfg, opts...)
	if err != nil {
		cat.Close()
		return nil, nil, WrapExitError(ExitCommandError, "failed to build pipeline", err)
	}
	return p, cat, nil
}
