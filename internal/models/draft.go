package models

import (
	"errors"
	"time"
)

// ErrDraftNotFound is returned when no draft exists with the given ID.
var ErrDraftNotFound = errors.New("draft not found")

// Draft status values.
const (
	DraftStatusDraft = "draft"
	DraftStatusSent  = "sent"
)

// InboundEmail is the payload delivered by the inbound email webhook.
type InboundEmail struct {
	InboxID string `json:"inbox_id"`
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EmailDraft is a stored AI-drafted reply to an inbound email.
type EmailDraft struct {
	ID         string    `json:"id"`
	InboxID    string    `json:"inbox_id"`
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Reply      string    `json:"reply"`
	Confidence float64   `json:"confidence"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// OutboundMessage describes a mail message to send on a user's behalf.
type OutboundMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
