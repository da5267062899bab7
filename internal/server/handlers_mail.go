package server

import (
	"errors"
	"net/http"

	"github.com/scribe-mail/scribe/internal/clients/gmail"
	"github.com/scribe-mail/scribe/internal/models"
	"github.com/scribe-mail/scribe/internal/services/token"
)

// mailSendRequest is the payload for POST /api/mail/send.
type mailSendRequest struct {
	UserEmail string `json:"user_email"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
}

// handleMailSend handles POST /api/mail/send. It resolves a valid
// access token for the sending user (refreshing if stale) and
// dispatches the message through the Gmail REST API. Failures are
// surfaced to the caller with the provider payload intact; nothing is
// retried.
func (s *Server) handleMailSend(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req mailSendRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if req.UserEmail == "" {
		WriteError(w, http.StatusBadRequest, "user_email is required")
		return
	}
	if req.To == "" {
		WriteError(w, http.StatusBadRequest, "to is required")
		return
	}

	accessToken, err := s.app.TokenService.ResolveAccessToken(r.Context(), req.UserEmail)
	if err != nil {
		var refreshErr *token.CredentialRefreshError
		switch {
		case errors.Is(err, models.ErrCredentialNotFound):
			s.logger.Info().Str("user_email", req.UserEmail).Msg("Mail send rejected - no stored credential")
			WriteErrorWithCode(w, http.StatusUnauthorized,
				"No Gmail authorization on record for this user - complete the consent flow first",
				"credential_not_found")
		case errors.As(err, &refreshErr):
			s.logger.Error().Err(err).Str("user_email", req.UserEmail).Msg("Credential refresh rejected by provider")
			WriteErrorWithCode(w, http.StatusBadGateway, refreshErr.Error(), "refresh_failed")
		default:
			s.logger.Error().Err(err).Str("user_email", req.UserEmail).Msg("Failed to resolve access token")
			WriteError(w, http.StatusInternalServerError, "Failed to resolve access token")
		}
		return
	}

	msg := &models.OutboundMessage{
		From:    req.UserEmail,
		To:      req.To,
		Subject: req.Subject,
		Body:    req.Message,
	}

	messageID, err := s.app.GmailClient.Send(r.Context(), accessToken, msg)
	if err != nil {
		var dispatchErr *gmail.DispatchError
		if errors.As(err, &dispatchErr) {
			s.logger.Error().
				Int("status", dispatchErr.StatusCode).
				Str("user_email", req.UserEmail).
				Msg("Gmail rejected outbound message")
			WriteErrorWithCode(w, http.StatusBadGateway, dispatchErr.Error(), "send_failed")
			return
		}
		s.logger.Error().Err(err).Str("user_email", req.UserEmail).Msg("Failed to send mail")
		WriteError(w, http.StatusInternalServerError, "Failed to send mail")
		return
	}

	s.logger.Info().
		Str("user_email", req.UserEmail).
		Str("to", req.To).
		Str("message_id", messageID).
		Msg("Mail sent")

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":     "sent",
		"message_id": messageID,
	})
}
