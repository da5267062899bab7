// Package app wires configuration, storage, clients, and services
// together at process start. Everything is constructed once here and
// passed explicitly — no package-level client state.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/scribe-mail/scribe/internal/clients/gemini"
	"github.com/scribe-mail/scribe/internal/clients/gmail"
	"github.com/scribe-mail/scribe/internal/clients/google"
	"github.com/scribe-mail/scribe/internal/common"
	"github.com/scribe-mail/scribe/internal/interfaces"
	"github.com/scribe-mail/scribe/internal/services/draft"
	"github.com/scribe-mail/scribe/internal/services/token"
	"github.com/scribe-mail/scribe/internal/storage/surrealdb"
)

// App holds all initialized services and clients.
type App struct {
	Config       *common.Config
	Logger       *common.Logger
	Storage      interfaces.StorageManager
	GoogleClient interfaces.IdentityClient
	GmailClient  interfaces.MailClient
	GeminiClient interfaces.GeminiClient
	TokenService interfaces.TokenService
	DraftService interfaces.DraftService
	StartupTime  time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes config, logging, storage, clients, and services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	// Load configuration - check provided path, SCRIBE_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("SCRIBE_CONFIG")
	}
	if configPath == "" {
		binDir := getBinaryDir()
		configPath = filepath.Join(binDir, "scribe.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/scribe.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := common.NewLoggerFromConfig(config.Logging)

	// Initialize storage
	storageManager, err := surrealdb.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Initialize API clients
	googleCfg := config.Clients.Google
	if googleCfg.ClientID == "" || googleCfg.ClientSecret == "" {
		logger.Warn().Msg("Google OAuth client not configured - consent flow and mail send will be unavailable")
	}
	googleClient := google.NewClient(googleCfg.ClientID, googleCfg.ClientSecret, googleCfg.RedirectURL,
		google.WithLogger(logger),
		google.WithTimeout(googleCfg.GetTimeout()),
	)

	gmailClient := gmail.NewClient(
		gmail.WithBaseURL(config.Clients.Gmail.BaseURL),
		gmail.WithLogger(logger),
		gmail.WithRateLimit(config.Clients.Gmail.RateLimit),
		gmail.WithTimeout(config.Clients.Gmail.GetTimeout()),
	)

	ctx := context.Background()
	var geminiClient interfaces.GeminiClient
	geminiKey, err := common.ResolveGeminiKey(config.Clients.Gemini.APIKey)
	if err != nil {
		logger.Warn().Msg("Gemini API key not configured - reply drafting will use the fallback reply")
	} else {
		client, err := gemini.NewClient(ctx, geminiKey,
			gemini.WithLogger(logger),
			gemini.WithModel(config.Clients.Gemini.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
		}
		geminiClient = client
	}

	// Initialize services
	tokenService := token.NewService(storageManager.CredentialStore(), googleClient, logger,
		token.WithRefreshMargin(config.Auth.GetRefreshMargin()),
	)
	draftService := draft.NewService(geminiClient, storageManager.DraftStore(), logger)

	return &App{
		Config:       config,
		Logger:       logger,
		Storage:      storageManager,
		GoogleClient: googleClient,
		GmailClient:  gmailClient,
		GeminiClient: geminiClient,
		TokenService: tokenService,
		DraftService: draftService,
		StartupTime:  time.Now(),
	}, nil
}

// Close releases all resources held by the app.
func (a *App) Close() {
	if a.GeminiClient != nil {
		if err := a.GeminiClient.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("Failed to close Gemini client")
		}
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("Failed to close storage")
		}
	}
}
