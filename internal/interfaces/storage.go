// Package interfaces defines service contracts for Scribe
package interfaces

import (
	"context"

	"github.com/scribe-mail/scribe/internal/models"
)

// StorageManager coordinates all storage backends
type StorageManager interface {
	CredentialStore() CredentialStore
	DraftStore() DraftStore

	// Lifecycle
	Close() error
}

// CredentialStore persists OAuth credential records. The store is
// append-only: SaveCredential always creates a new record and no
// update or delete operations are exposed, preserving an audit trail
// and sidestepping partial-write races between concurrent refreshes.
type CredentialStore interface {
	// SaveCredential appends a new credential record.
	SaveCredential(ctx context.Context, record *models.CredentialRecord) error

	// LatestCredential returns the most-recently-created record for the
	// principal, or models.ErrCredentialNotFound when none exists.
	LatestCredential(ctx context.Context, principal string) (*models.CredentialRecord, error)

	// ListCredentials returns all records for a principal, newest first.
	ListCredentials(ctx context.Context, principal string) ([]*models.CredentialRecord, error)
}

// DraftStore persists AI-drafted email replies.
type DraftStore interface {
	SaveDraft(ctx context.Context, draft *models.EmailDraft) error

	// GetDraft returns models.ErrDraftNotFound when no draft has the ID.
	GetDraft(ctx context.Context, id string) (*models.EmailDraft, error)

	// ListDrafts returns drafts newest first, optionally filtered by
	// inbox. limit <= 0 applies the store default.
	ListDrafts(ctx context.Context, inboxID string, limit int) ([]*models.EmailDraft, error)
}
