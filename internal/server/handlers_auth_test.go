package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribe-mail/scribe/internal/models"
)

func TestHandleGmailAuthURL(t *testing.T) {
	env := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/gmail/url?email=owner@example.com", nil)
	rec := httptest.NewRecorder()
	env.server.handleGmailAuthURL(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["url"])

	u, err := url.Parse(resp["url"])
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)

	// The state round-trips back to the principal.
	principal, err := decodeOAuthState(state, []byte(env.server.app.Config.Auth.JWTSecret))
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", principal)
}

func TestHandleGmailAuthURL_Validation(t *testing.T) {
	env := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/gmail/url", nil)
	rec := httptest.NewRecorder()
	env.server.handleGmailAuthURL(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/gmail/url?email=not-an-address", nil)
	rec = httptest.NewRecorder()
	env.server.handleGmailAuthURL(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGmailAuthURL_Unconfigured(t *testing.T) {
	env := newTestServer(t)
	env.server.app.Config.Clients.Google.ClientID = ""

	req := httptest.NewRequest(http.MethodGet, "/api/auth/gmail/url?email=owner@example.com", nil)
	rec := httptest.NewRecorder()
	env.server.handleGmailAuthURL(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleGmailCallback(t *testing.T) {
	env := newTestServer(t)
	env.identity.grant = &models.TokenGrant{
		AccessToken:  "tok-1",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		Scope:        "https://www.googleapis.com/auth/gmail.send",
		ExpiresIn:    3599,
	}

	secret := []byte(env.server.app.Config.Auth.JWTSecret)
	state, err := encodeOAuthState("owner@example.com", secret)
	require.NoError(t, err)

	target := "/api/auth/gmail/callback?code=auth-code-1&state=" + url.QueryEscape(state)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	env.server.handleGmailCallback(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "authorized", resp["status"])
	assert.Equal(t, "owner@example.com", resp["email"])
	require.NotEmpty(t, resp["token"])

	assert.Equal(t, "auth-code-1", env.identity.lastCode)

	// The grant is now a stored credential.
	stored, err := env.storage.credentials.LatestCredential(context.Background(), "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", stored.AccessToken)
	assert.Equal(t, "refresh-1", stored.RefreshToken)

	// The session token validates against the same secret.
	claims, err := validateSessionJWT(resp["token"].(string), secret)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", claims["sub"])
}

func TestHandleGmailCallback_InvalidState(t *testing.T) {
	env := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/gmail/callback?code=c&state=tampered.sig", nil)
	rec := httptest.NewRecorder()
	env.server.handleGmailCallback(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGmailCallback_ConsentDenied(t *testing.T) {
	env := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/gmail/callback?error=access_denied", nil)
	rec := httptest.NewRecorder()
	env.server.handleGmailCallback(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "consent_denied", resp.Code)
}

func TestHandleGmailCallback_ExchangeRejected(t *testing.T) {
	env := newTestServer(t)
	env.identity.exchangeErr = fmt.Errorf("invalid_grant: Malformed auth code")

	state, err := encodeOAuthState("owner@example.com", []byte(env.server.app.Config.Auth.JWTSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/gmail/callback?code=bad&state="+url.QueryEscape(state), nil)
	rec := httptest.NewRecorder()
	env.server.handleGmailCallback(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "exchange_failed", resp.Code)
}

func TestHandleAuthValidate(t *testing.T) {
	env := newTestServer(t)

	token, err := signSessionJWT("owner@example.com", &env.server.app.Config.Auth)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/validate", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.server.handleAuthValidate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "owner@example.com", resp["email"])
}

func TestHandleAuthValidate_Rejections(t *testing.T) {
	env := newTestServer(t)

	// No header
	req := httptest.NewRequest(http.MethodPost, "/api/auth/validate", nil)
	rec := httptest.NewRecorder()
	env.server.handleAuthValidate(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Garbage token
	req = httptest.NewRequest(http.MethodPost, "/api/auth/validate", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	env.server.handleAuthValidate(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// resignStatePayload signs an arbitrary payload the way encodeOAuthState does.
func resignStatePayload(payloadJSON, secret []byte) (string, error) {
	payloadB64 := base64.RawURLEncoding.EncodeToString(payloadJSON)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payloadB64))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return payloadB64 + "." + sig, nil
}

func TestOAuthStateExpiry(t *testing.T) {
	secret := []byte("test-secret")

	payload := oauthStatePayload{
		Principal: "owner@example.com",
		Nonce:     "nonce",
		TS:        time.Now().Add(-11 * time.Minute).Unix(),
	}
	payloadJSON, err := json.Marshal(payload)
	require.NoError(t, err)

	state, err := encodeOAuthState("owner@example.com", secret)
	require.NoError(t, err)
	_, err = decodeOAuthState(state, secret)
	require.NoError(t, err)

	// Re-sign an expired payload and verify it is rejected.
	expired, err := resignStatePayload(payloadJSON, secret)
	require.NoError(t, err)
	_, err = decodeOAuthState(expired, secret)
	assert.ErrorContains(t, err, "state expired")

	// Wrong secret fails signature verification.
	_, err = decodeOAuthState(state, []byte("other-secret"))
	assert.ErrorContains(t, err, "invalid state signature")
}
