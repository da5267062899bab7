package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/scribe-mail/scribe/internal/models"
)

// inboundEmailRequest is the payload posted by the inbound email provider.
type inboundEmailRequest struct {
	InboxID string `json:"inbox_id"`
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// handleEmailWebhook handles POST /api/webhook/email.
// It drafts an AI reply for the inbound email and persists it.
func (s *Server) handleEmailWebhook(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req inboundEmailRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if req.Sender == "" {
		WriteError(w, http.StatusBadRequest, "sender is required")
		return
	}

	email := &models.InboundEmail{
		InboxID: req.InboxID,
		Sender:  req.Sender,
		Subject: req.Subject,
		Body:    req.Body,
	}

	s.logger.Info().
		Str("sender", req.Sender).
		Str("inbox_id", req.InboxID).
		Str("subject", req.Subject).
		Msg("Inbound email received")

	draft, err := s.app.DraftService.DraftReply(r.Context(), email)
	if err != nil {
		s.logger.Error().Err(err).Str("sender", req.Sender).Msg("Failed to store reply draft")
		WriteError(w, http.StatusInternalServerError, "Failed to store reply draft")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":   draft.Status,
		"draft_id": draft.ID,
		"reply":    draft.Reply,
	})
}

// handleDraftList handles GET /api/drafts with optional inbox_id and limit filters.
func (s *Server) handleDraftList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	inboxID := r.URL.Query().Get("inbox_id")
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v < 0 {
			WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = v
	}

	drafts, err := s.app.Storage.DraftStore().ListDrafts(r.Context(), inboxID, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list drafts")
		WriteError(w, http.StatusInternalServerError, "Failed to list drafts")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"drafts": drafts,
		"count":  len(drafts),
	})
}

// handleDraftByID handles GET /api/drafts/{id}.
func (s *Server) handleDraftByID(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/drafts/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "draft id is required in path")
		return
	}

	draft, err := s.app.Storage.DraftStore().GetDraft(r.Context(), id)
	if err != nil {
		s.logger.Debug().Err(err).Str("id", id).Msg("Draft not found")
		WriteError(w, http.StatusNotFound, "Draft not found")
		return
	}

	WriteJSON(w, http.StatusOK, draft)
}
