// Package app wires configuration, storage, clients, and services into
// a single application core shared by cmd/finsight-server.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/finsight/internal/clients/eodhd"
	"github.com/bobmcallan/finsight/internal/clients/gemini"
	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/services/analyzer"
	"github.com/bobmcallan/finsight/internal/storage"
)

// App holds all initialized services, clients, and storage.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Storage     interfaces.StorageManager
	Gemini      interfaces.GeminiClient
	Financial   interfaces.FinancialDataClient
	Analyzer    interfaces.AnalyzerService
	StartupTime time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, API clients, and the analyzer service.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	// Get binary directory for self-contained operation
	binDir := getBinaryDir()

	// Load configuration - check provided path, FINSIGHT_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("FINSIGHT_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "finsight.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/finsight.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage paths to binary directory
	if config.Storage.Financial.Path != "" && !filepath.IsAbs(config.Storage.Financial.Path) {
		config.Storage.Financial.Path = filepath.Join(binDir, config.Storage.Financial.Path)
	}
	if config.Storage.Conversation.Path != "" && !filepath.IsAbs(config.Storage.Conversation.Path) {
		config.Storage.Conversation.Path = filepath.Join(binDir, config.Storage.Conversation.Path)
	}

	// Initialize logger
	logger := common.NewLoggerFromConfig(config.Logging)

	// Initialize storage
	storageManager, err := storage.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Resolve API keys
	geminiKey, err := common.ResolveAPIKey("gemini_api_key", config.Clients.Gemini.APIKey)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("gemini API key not configured: %w", err)
	}

	eodhdKey, err := common.ResolveAPIKey("eodhd_api_key", config.Clients.EODHD.APIKey)
	if err != nil {
		logger.Warn().Msg("EODHD API key not configured - company data will be unavailable")
	}

	// Initialize API clients
	geminiClient, err := gemini.NewClient(ctx, geminiKey,
		gemini.WithLogger(logger),
		gemini.WithModel(config.Clients.Gemini.Model),
		gemini.WithLiteModel(config.Clients.Gemini.LiteModel),
	)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}

	eodhdClient := eodhd.NewClient(eodhdKey,
		eodhd.WithLogger(logger),
		eodhd.WithBaseURL(config.Clients.EODHD.BaseURL),
		eodhd.WithRateLimit(config.Clients.EODHD.RateLimit),
		eodhd.WithTimeout(config.Clients.EODHD.GetTimeout()),
	)

	// Initialize the analyzer service
	analyzerService := analyzer.NewService(
		geminiClient,
		eodhdClient,
		storageManager.FinancialStore(),
		storageManager.ConversationStore(),
		config,
		logger,
	)

	a := &App{
		Config:      config,
		Logger:      logger,
		Storage:     storageManager,
		Gemini:      geminiClient,
		Financial:   eodhdClient,
		Analyzer:    analyzerService,
		StartupTime: startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// Close releases storage resources.
func (a *App) Close() {
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("Failed to close storage")
		}
	}
}
