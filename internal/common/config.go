// Package common provides shared utilities for Scribe
package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Scribe
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Clients     ClientsConfig `toml:"clients"`
	Auth        AuthConfig    `toml:"auth"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds SurrealDB connection configuration.
type StorageConfig struct {
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Google GoogleConfig `toml:"google"`
	Gmail  GmailConfig  `toml:"gmail"`
	Gemini GeminiConfig `toml:"gemini"`
}

// GoogleConfig holds the OAuth client credentials used for the Gmail
// consent flow. RedirectURL must match a redirect URI registered with
// the OAuth client in the Google console.
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURL  string `toml:"redirect_url"`
	Timeout      string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *GoogleConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GmailConfig holds Gmail API configuration
type GmailConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *GmailConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// AuthConfig holds token lifecycle and session configuration.
type AuthConfig struct {
	JWTSecret     string `toml:"jwt_secret"`
	TokenExpiry   string `toml:"token_expiry"`   // session JWT lifetime, default "24h"
	RefreshMargin string `toml:"refresh_margin"` // treat credentials as stale this long before true expiry, default "60s"
}

// GetTokenExpiry parses and returns the session token expiry duration.
func (c *AuthConfig) GetTokenExpiry() time.Duration {
	d, err := time.ParseDuration(c.TokenExpiry)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// GetRefreshMargin parses and returns the credential refresh margin.
func (c *AuthConfig) GetRefreshMargin() time.Duration {
	d, err := time.ParseDuration(c.RefreshMargin)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string `toml:"level"`
	Format   string `toml:"format"` // "console" or "json"
	FilePath string `toml:"file_path"`
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
			Address:   "ws://localhost:8000/rpc",
			Namespace: "scribe",
			Database:  "scribe",
			Username:  "root",
			Password:  "root",
		},
		Clients: ClientsConfig{
			Google: GoogleConfig{
				Timeout: "30s",
			},
			Gmail: GmailConfig{
				BaseURL:   "https://gmail.googleapis.com/gmail/v1",
				RateLimit: 5,
				Timeout:   "30s",
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
		},
		Auth: AuthConfig{
			JWTSecret:     "dev-jwt-secret-change-in-production",
			TokenExpiry:   "24h",
			RefreshMargin: "60s",
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

	// Apply environment overrides
	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SCRIBE_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("SCRIBE_HOST"); host != "" {
		config.Server.Host = host
	}

	// PORT is what hosted platforms inject; SCRIBE_PORT wins when both are set.
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if port := os.Getenv("SCRIBE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("SCRIBE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// Storage overrides
	if v := os.Getenv("SCRIBE_STORAGE_ADDRESS"); v != "" {
		config.Storage.Address = v
	}
	if v := os.Getenv("SCRIBE_STORAGE_NAMESPACE"); v != "" {
		config.Storage.Namespace = v
	}
	if v := os.Getenv("SCRIBE_STORAGE_DATABASE"); v != "" {
		config.Storage.Database = v
	}
	if v := os.Getenv("SCRIBE_STORAGE_USERNAME"); v != "" {
		config.Storage.Username = v
	}
	if v := os.Getenv("SCRIBE_STORAGE_PASSWORD"); v != "" {
		config.Storage.Password = v
	}

	// Client overrides
	if v := os.Getenv("SCRIBE_GOOGLE_CLIENT_ID"); v != "" {
		config.Clients.Google.ClientID = v
	}
	if v := os.Getenv("SCRIBE_GOOGLE_CLIENT_SECRET"); v != "" {
		config.Clients.Google.ClientSecret = v
	}
	if v := os.Getenv("SCRIBE_GOOGLE_REDIRECT_URL"); v != "" {
		config.Clients.Google.RedirectURL = v
	}

	// Auth overrides
	if v := os.Getenv("SCRIBE_AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
	if v := os.Getenv("SCRIBE_AUTH_TOKEN_EXPIRY"); v != "" {
		config.Auth.TokenExpiry = v
	}
	if v := os.Getenv("SCRIBE_AUTH_REFRESH_MARGIN"); v != "" {
		config.Auth.RefreshMargin = v
	}
}

// ResolveGeminiKey resolves the Gemini API key from environment or config fallback.
func ResolveGeminiKey(fallback string) (string, error) {
	for _, name := range []string{"GEMINI_API_KEY", "SCRIBE_GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if v := os.Getenv(name); v != "" {
			return v, nil
		}
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", fmt.Errorf("gemini API key not found in environment or config")
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}
