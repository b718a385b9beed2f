// Package common provides shared utilities for Finsight
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Finsight
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Clients     ClientsConfig  `toml:"clients"`
	Analyzer    AnalyzerConfig `toml:"analyzer"`
	Logging     LoggingConfig  `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds storage paths for the two storage areas.
type StorageConfig struct {
	Financial    AreaConfig `toml:"financial"`    // Cached fundamentals + statements (BadgerHold)
	Conversation AreaConfig `toml:"conversation"` // Conversation meta + history (BadgerHold)
}

// AreaConfig holds path configuration for a storage area.
type AreaConfig struct {
	Path string `toml:"path"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EODHD  EODHDConfig  `toml:"eodhd"`
	Gemini GeminiConfig `toml:"gemini"`
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`      // answer generation
	LiteModel string `toml:"lite_model"` // classification, outlines, follow-ups
}

// AnalyzerConfig holds tuning for the question analysis pipeline.
type AnalyzerConfig struct {
	ClassifyTimeout  string `toml:"classify_timeout"`  // per classification call, default "3s"
	DimensionTimeout string `toml:"dimension_timeout"` // section outline generation, default "3s"
	FetchTimeout     string `toml:"fetch_timeout"`     // per data source fetch, default "10s"
	ConversationTTL  string `toml:"conversation_ttl"`  // meta/history expiry, default "15m"
	HistoryPairs     int    `toml:"history_pairs"`     // Q/A pairs injected into prompts, default 3
}

// GetClassifyTimeout parses and returns the classification timeout.
func (c *AnalyzerConfig) GetClassifyTimeout() time.Duration {
	d, err := time.ParseDuration(c.ClassifyTimeout)
	if err != nil {
		return 3 * time.Second
	}
	return d
}

// GetDimensionTimeout parses and returns the dimension generation timeout.
func (c *AnalyzerConfig) GetDimensionTimeout() time.Duration {
	d, err := time.ParseDuration(c.DimensionTimeout)
	if err != nil {
		return 3 * time.Second
	}
	return d
}

// GetFetchTimeout parses and returns the per-source fetch timeout.
func (c *AnalyzerConfig) GetFetchTimeout() time.Duration {
	d, err := time.ParseDuration(c.FetchTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetConversationTTL parses and returns the conversation expiry duration.
func (c *AnalyzerConfig) GetConversationTTL() time.Duration {
	d, err := time.ParseDuration(c.ConversationTTL)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

// GetHistoryPairs returns the number of Q/A pairs to inject into prompts.
func (c *AnalyzerConfig) GetHistoryPairs() int {
	if c.HistoryPairs <= 0 {
		return 3
	}
	return c.HistoryPairs
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Financial:    AreaConfig{Path: "data/financial"},
			Conversation: AreaConfig{Path: "data/conversation"},
		},
		Clients: ClientsConfig{
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
			Gemini: GeminiConfig{
				Model:     "gemini-2.0-flash",
				LiteModel: "gemini-2.0-flash-lite",
			},
		},
		Analyzer: AnalyzerConfig{
			ClassifyTimeout:  "3s",
			DimensionTimeout: "3s",
			FetchTimeout:     "10s",
			ConversationTTL:  "15m",
			HistoryPairs:     3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FINSIGHT_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("FINSIGHT_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("FINSIGHT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("FINSIGHT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("FINSIGHT_DATA_PATH"); path != "" {
		config.Storage.Financial.Path = path + "/financial"
		config.Storage.Conversation.Path = path + "/conversation"
	}

	if model := os.Getenv("FINSIGHT_GEMINI_MODEL"); model != "" {
		config.Clients.Gemini.Model = model
	}
	if model := os.Getenv("FINSIGHT_GEMINI_LITE_MODEL"); model != "" {
		config.Clients.Gemini.LiteModel = model
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves an API key from environment variables with a config fallback
func ResolveAPIKey(name string, fallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"eodhd_api_key":  {"EODHD_API_KEY", "FINSIGHT_EODHD_API_KEY"},
		"gemini_api_key": {"GEMINI_API_KEY", "FINSIGHT_GEMINI_API_KEY", "GOOGLE_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}
