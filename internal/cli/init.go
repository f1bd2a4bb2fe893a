// Package cli holds the start-up steps shared by cmd/tracker,
// cmd/tracker-worker, cmd/migrate and cmd/issue-token.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/LiftThanakorn/income-expense-tracker/internal/ai"
	"github.com/LiftThanakorn/income-expense-tracker/internal/backend"
	"github.com/LiftThanakorn/income-expense-tracker/internal/config"
	"github.com/LiftThanakorn/income-expense-tracker/internal/log"
	"github.com/LiftThanakorn/income-expense-tracker/internal/slipstore"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// Bootstrap loads .env and the configuration, validates it and sets up
// logging. It exits the process on an invalid configuration.
func Bootstrap(component string) (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg, component)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// OpenBackend creates the configured persistence backend or exits.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to open backend", log.FieldError, err, "backend", bcfg.Type.String())
		os.Exit(1)
	}
	return res
}

// NewAnalyzer builds the Gemini-backed analyzer. Without GEMINI_API_KEY the
// analyzer still exists but every call fails with an adapter error.
func NewAnalyzer(ctx context.Context, cfg *config.Config, logger *log.Logger) *ai.Analyzer {
	var gen ai.Generator
	if cfg.GeminiAPIKey != "" {
		g, err := ai.NewGeminiGenerator(ctx, cfg.GeminiAPIKey)
		if err != nil {
			logger.Error("Failed to initialize Gemini client", log.FieldError, err)
			os.Exit(1)
		}
		gen = g
	} else {
		logger.Warn("GEMINI_API_KEY not set, slip import and reports will fail")
	}
	return ai.NewAnalyzer(gen, cfg.GeminiModel, logger)
}

// NewSlipArchive returns the GCS archive when SLIP_BUCKET is set. The
// returned close function is never nil.
func NewSlipArchive(ctx context.Context, cfg *config.Config, logger *log.Logger) (slipstore.Archive, func() error) {
	if cfg.SlipBucket == "" {
		return slipstore.Discard{}, func() error { return nil }
	}
	archive, err := slipstore.NewGCSArchive(ctx, cfg.SlipBucket, logger)
	if err != nil {
		logger.Error("Failed to initialize slip archive", log.FieldError, err, "bucket", cfg.SlipBucket)
		os.Exit(1)
	}
	return archive, archive.Close
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
