// Package google provides a client for Google's OAuth 2.0 token endpoints
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/scribe-mail/scribe/internal/common"
	"github.com/scribe-mail/scribe/internal/interfaces"
	"github.com/scribe-mail/scribe/internal/models"
)

const (
	DefaultAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	DefaultTokenURL = "https://oauth2.googleapis.com/token"
	DefaultTimeout  = 30 * time.Second

	// GmailSendScope authorizes sending mail on the user's behalf.
	GmailSendScope = "https://www.googleapis.com/auth/gmail.send"
)

// Client implements the IdentityClient interface against Google's
// OAuth 2.0 endpoints.
type Client struct {
	authURL      string
	tokenURL     string
	clientID     string
	clientSecret string
	redirectURL  string
	scope        string
	httpClient   *http.Client
	logger       *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithAuthURL overrides the consent-screen endpoint (used in tests)
func WithAuthURL(authURL string) ClientOption {
	return func(c *Client) {
		c.authURL = authURL
	}
}

// WithTokenURL overrides the token endpoint (used in tests)
func WithTokenURL(tokenURL string) ClientOption {
	return func(c *Client) {
		c.tokenURL = tokenURL
	}
}

// WithScope sets the requested OAuth scope
func WithScope(scope string) ClientOption {
	return func(c *Client) {
		c.scope = scope
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Google OAuth client
func NewClient(clientID, clientSecret, redirectURL string, opts ...ClientOption) *Client {
	c := &Client{
		authURL:      DefaultAuthURL,
		tokenURL:     DefaultTokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		scope:        GmailSendScope,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ProviderError represents a rejection from the token endpoint. It is
// authoritative: the exchange is never retried.
type ProviderError struct {
	StatusCode  int
	Code        string
	Description string
	Body        string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("google token endpoint error: %s (%s, status: %d)", e.Code, e.Description, e.StatusCode)
	}
	return fmt.Sprintf("google token endpoint error (status: %d): %s", e.StatusCode, e.Body)
}

// AuthorizationURL returns the consent-screen URL for the configured
// client. access_type=offline together with prompt=consent guarantees
// Google issues a refresh token on first consent; dropping either
// breaks the refresh path for every later send.
func (c *Client) AuthorizationURL(state string) string {
	params := url.Values{
		"client_id":     {c.clientID},
		"redirect_uri":  {c.redirectURL},
		"response_type": {"code"},
		"scope":         {c.scope},
		"access_type":   {"offline"},
		"prompt":        {"consent"},
	}
	if state != "" {
		params.Set("state", state)
	}
	return c.authURL + "?" + params.Encode()
}

// ExchangeCode performs the authorization_code grant.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*models.TokenGrant, error) {
	return c.exchange(ctx, url.Values{
		"code":          {code},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"redirect_uri":  {c.redirectURL},
		"grant_type":    {"authorization_code"},
	})
}

// ExchangeRefreshToken performs the refresh_token grant. Google's
// refresh responses legitimately omit refresh_token; the caller is
// responsible for carrying the prior one forward.
func (c *Client) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*models.TokenGrant, error) {
	return c.exchange(ctx, url.Values{
		"refresh_token": {refreshToken},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"refresh_token"},
	})
}

// exchange posts a form to the token endpoint and decodes the grant.
func (c *Client) exchange(ctx context.Context, form url.Values) (*models.TokenGrant, error) {
	c.logger.Debug().
		Str("grant_type", form.Get("grant_type")).
		Msg("Exchanging token with Google")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		perr := &ProviderError{StatusCode: resp.StatusCode, Body: string(body)}
		var errBody struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if json.Unmarshal(body, &errBody) == nil {
			perr.Code = errBody.Error
			perr.Description = errBody.ErrorDescription
		}
		return nil, perr
	}

	var grant models.TokenGrant
	if err := json.Unmarshal(body, &grant); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	// A 200 without an access token is still a provider failure.
	if grant.AccessToken == "" {
		return nil, &ProviderError{
			StatusCode:  resp.StatusCode,
			Code:        "invalid_response",
			Description: "token response missing access_token",
			Body:        string(body),
		}
	}

	return &grant, nil
}

// Ensure Client implements IdentityClient
var _ interfaces.IdentityClient = (*Client)(nil)
