package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/vk/forcinggate/internal/config"
	"github.com/vk/forcinggate/internal/ctxlog"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	model  *config.Model
}

// NewApp is the constructor for the main application. It loads the
// configuration through loader and panics when it cannot, since nothing can
// run without it.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if appConfig.EnvFile != "" {
		if err := godotenv.Load(appConfig.EnvFile); err != nil {
			panic(fmt.Errorf("failed to load env file %s: %w", appConfig.EnvFile, err))
		}
		logger.Debug("Environment file loaded.", "path", appConfig.EnvFile)
	}

	model, err := loader.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	if !appConfig.Reference.IsZero() {
		model.Run.Reference = appConfig.Reference
	}
	if appConfig.SnapshotPath != "" {
		if model.Snapshot == nil {
			model.Snapshot = &config.Snapshot{}
		}
		model.Snapshot.CSV = appConfig.SnapshotPath
	}
	logger.Debug("Configuration loaded and translated into unified model.", "datasets", len(model.Datasets))

	return &App{
		outW:   outW,
		logger: logger,
		config: appConfig,
		model:  model,
	}
}

// Model returns the loaded configuration model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}
