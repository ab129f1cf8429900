// Package app wires configuration, storage, and services into one
// application core shared by the server binary and tests.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/kestrel/internal/common"
	"github.com/bobmcallan/kestrel/internal/interfaces"
	"github.com/bobmcallan/kestrel/internal/services/backtest"
	"github.com/bobmcallan/kestrel/internal/storage"
)

// App holds all initialized services and storage.
type App struct {
	Config          *common.Config
	Logger          *common.Logger
	Storage         interfaces.StorageManager
	BacktestService interfaces.BacktestService
	StartupTime     time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes configuration, storage, and services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	// Load configuration - check provided path, KESTREL_CONFIG, then binary dir
	if configPath == "" {
		configPath = os.Getenv("KESTREL_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "kestrel.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/kestrel.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage path to binary directory
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}

	logger := common.NewLogger(config.Logging.Level)

	storageManager, err := storage.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a := &App{
		Config:          config,
		Logger:          logger,
		Storage:         storageManager,
		BacktestService: backtest.NewService(storageManager, config, logger),
		StartupTime:     time.Now(),
	}

	// Import price series on startup when a directory is configured.
	if config.Data.ImportDir != "" {
		count, err := storage.ImportDir(context.Background(), storageManager.BarStore(), config.Data.ImportDir, logger)
		if err != nil {
			storageManager.Close()
			return nil, fmt.Errorf("failed to import price data: %w", err)
		}
		logger.Info().Int("symbols", count).Str("dir", config.Data.ImportDir).Msg("Startup import complete")
	}

	return a, nil
}

// NewTestApp builds an App on in-memory storage for tests.
func NewTestApp() *App {
	config := common.NewDefaultConfig()
	logger := common.NewSilentLogger()
	storageManager := storage.NewMemoryManager()

	return &App{
		Config:          config,
		Logger:          logger,
		Storage:         storageManager,
		BacktestService: backtest.NewService(storageManager, config, logger),
		StartupTime:     time.Now(),
	}
}

// Close releases storage resources.
func (a *App) Close() error {
	return a.Storage.Close()
}
