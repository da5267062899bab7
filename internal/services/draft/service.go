// Package draft generates AI reply drafts for inbound email
package draft

import (
	"context"
	"fmt"

	"github.com/scribe-mail/scribe/internal/common"
	"github.com/scribe-mail/scribe/internal/interfaces"
	"github.com/scribe-mail/scribe/internal/models"
)

// DefaultConfidence is attached to every stored draft. The model does
// not report calibrated confidence, so a fixed value is recorded for
// downstream triage.
const DefaultConfidence = 0.8

// FallbackReply is stored and returned when the AI call fails, so the
// sender still gets an acknowledgement while a human follows up.
const FallbackReply = "Hi, thanks for your email. Our automated system was unable to generate a reply, " +
	"so a member of our team will follow up with you shortly."

const systemPrompt = "You are an assistant that writes clear, polite, professional email replies. " +
	"Keep replies concise, friendly, and helpful. " +
	"If you are missing key information, ask for clarification."

// Service implements DraftService.
type Service struct {
	gemini interfaces.GeminiClient
	store  interfaces.DraftStore
	logger *common.Logger
}

// NewService creates a new draft service.
// gemini may be nil if no API key is configured — drafting falls back
// to the canned reply.
func NewService(gemini interfaces.GeminiClient, store interfaces.DraftStore, logger *common.Logger) *Service {
	return &Service{
		gemini: gemini,
		store:  store,
		logger: logger,
	}
}

// DraftReply generates a reply for the inbound email, persists the
// draft, and returns it. An AI failure is not an error for the caller:
// the canned fallback reply is stored with status "draft" instead.
func (s *Service) DraftReply(ctx context.Context, email *models.InboundEmail) (*models.EmailDraft, error) {
	reply, err := s.generate(ctx, email)
	if err != nil {
		s.logger.Error().Err(err).
			Str("inbox_id", email.InboxID).
			Str("sender", email.Sender).
			Msg("AI reply generation failed, using fallback")
		reply = FallbackReply
	}

	draft := &models.EmailDraft{
		InboxID:    email.InboxID,
		Sender:     email.Sender,
		Subject:    email.Subject,
		Body:       email.Body,
		Reply:      reply,
		Confidence: DefaultConfidence,
		Status:     models.DraftStatusDraft,
	}

	if err := s.store.SaveDraft(ctx, draft); err != nil {
		return nil, fmt.Errorf("failed to store draft: %w", err)
	}

	return draft, nil
}

func (s *Service) generate(ctx context.Context, email *models.InboundEmail) (string, error) {
	if s.gemini == nil {
		return "", fmt.Errorf("AI client not configured")
	}
	return s.gemini.GenerateContent(ctx, buildReplyPrompt(email))
}

// buildReplyPrompt creates the drafting prompt for an inbound email.
func buildReplyPrompt(email *models.InboundEmail) string {
	return fmt.Sprintf(`%s

You are replying on behalf of a business.

Incoming email:
From: %s
Subject: %s
Body:
%s

Write a full reply email in a professional tone.
Do NOT include 'Subject:' in the reply — only return the email body.`,
		systemPrompt, email.Sender, email.Subject, email.Body)
}

// Compile-time check
var _ interfaces.DraftService = (*Service)(nil)
