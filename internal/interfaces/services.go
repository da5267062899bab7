package interfaces

import (
	"context"

	"github.com/scribe-mail/scribe/internal/models"
)

// TokenService resolves a currently-valid access token for a principal,
// transparently refreshing stale credentials.
type TokenService interface {
	// ResolveAccessToken returns a usable access token for the
	// principal. Returns models.ErrCredentialNotFound when the
	// principal has never authorized, or a refresh error when the
	// provider rejects the stored refresh token.
	ResolveAccessToken(ctx context.Context, principal string) (string, error)

	// RecordGrant converts a provider grant into a credential record
	// and appends it to the store.
	RecordGrant(ctx context.Context, principal string, grant *models.TokenGrant) (*models.CredentialRecord, error)
}

// DraftService generates and persists AI reply drafts for inbound email.
type DraftService interface {
	// DraftReply generates a reply for the inbound email, stores the
	// draft, and returns it. AI failures degrade to a canned reply
	// rather than an error.
	DraftReply(ctx context.Context, email *models.InboundEmail) (*models.EmailDraft, error)
}
