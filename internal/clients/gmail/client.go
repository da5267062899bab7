// Package gmail provides a client for the Gmail REST API send endpoint
package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/scribe-mail/scribe/internal/common"
	"github.com/scribe-mail/scribe/internal/interfaces"
	"github.com/scribe-mail/scribe/internal/models"
)

const (
	DefaultBaseURL   = "https://gmail.googleapis.com/gmail/v1"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Client implements the MailClient interface against the Gmail API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Gmail client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// DispatchError represents a rejection from the Gmail send endpoint.
// The provider's response body is carried verbatim; sends are never
// retried since a duplicate send is worse than a visible failure.
type DispatchError struct {
	StatusCode int
	Body       string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("gmail send error (status: %d): %s", e.StatusCode, e.Body)
}

// Send dispatches a message on behalf of the token's owner and returns
// the Gmail message ID.
func (c *Client) Send(ctx context.Context, accessToken string, msg *models.OutboundMessage) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	raw := EncodeRawMessage(msg)
	payload, err := json.Marshal(map[string]string{"raw": raw})
	if err != nil {
		return "", fmt.Errorf("failed to encode send payload: %w", err)
	}

	endpoint := c.baseURL + "/users/me/messages/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("Sending mail via Gmail API")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gmail send request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read gmail response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &DispatchError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse gmail response: %w", err)
	}

	return result.ID, nil
}

// EncodeRawMessage builds the RFC 2822 message and encodes it the way
// the Gmail API requires: base64url without padding.
func EncodeRawMessage(msg *models.OutboundMessage) string {
	var buf bytes.Buffer
	if msg.From != "" {
		fmt.Fprintf(&buf, "From: %s\r\n", msg.From)
	}
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(msg.Body)

	return base64.RawURLEncoding.EncodeToString(buf.Bytes())
}

// Ensure Client implements MailClient
var _ interfaces.MailClient = (*Client)(nil)
