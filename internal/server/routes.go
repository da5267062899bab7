package server

import (
	"net/http"
	"time"

	"github.com/scribe-mail/scribe/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/config", s.handleConfig)

	// Inbound email
	mux.HandleFunc("/api/webhook/email", s.handleEmailWebhook)
	mux.HandleFunc("/api/drafts/", s.handleDraftByID)
	mux.HandleFunc("/api/drafts", s.handleDraftList)

	// Mail send
	mux.HandleFunc("/api/mail/send", s.handleMailSend)

	// Gmail OAuth
	mux.HandleFunc("/api/auth/gmail/url", s.handleGmailAuthURL)
	mux.HandleFunc("/api/auth/gmail/callback", s.handleGmailCallback)
	mux.HandleFunc("/api/auth/validate", s.handleAuthValidate)
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	uptime := time.Since(s.app.StartupTime).Round(time.Second)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"environment":       s.app.Config.Environment,
		"uptime":            uptime.String(),
		"started_at":        s.app.StartupTime,
		"storage_address":   s.app.Config.Storage.Address,
		"storage_namespace": s.app.Config.Storage.Namespace,
		"storage_database":  s.app.Config.Storage.Database,
		"logging_level":     s.app.Config.Logging.Level,
		"google_configured": s.app.GoogleClient != nil && s.app.Config.Clients.Google.ClientID != "",
		"gemini_configured": s.app.GeminiClient != nil,
		"refresh_margin":    s.app.Config.Auth.RefreshMargin,
	})
}
