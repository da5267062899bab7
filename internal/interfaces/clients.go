package interfaces

import (
	"context"

	"github.com/scribe-mail/scribe/internal/models"
)

// IdentityClient performs token exchanges against the OAuth provider.
type IdentityClient interface {
	// AuthorizationURL returns the provider consent-screen URL. The URL
	// always requests offline access and forced consent so a refresh
	// token is issued on first authorization.
	AuthorizationURL(state string) string

	// ExchangeCode performs the authorization_code grant.
	ExchangeCode(ctx context.Context, code string) (*models.TokenGrant, error)

	// ExchangeRefreshToken performs the refresh_token grant.
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (*models.TokenGrant, error)
}

// MailClient sends mail through the provider's REST API on behalf of
// the owner of the given access token.
type MailClient interface {
	// Send dispatches the message and returns the provider message ID.
	Send(ctx context.Context, accessToken string, msg *models.OutboundMessage) (string, error)
}

// GeminiClient generates AI content
type GeminiClient interface {
	// GenerateContent generates AI content from a prompt
	GenerateContent(ctx context.Context, prompt string) (string, error)

	// Close closes the client
	Close() error
}
