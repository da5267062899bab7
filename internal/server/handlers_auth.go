package server

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/scribe-mail/scribe/internal/common"
)

// --- JWT helpers ---

// signSessionJWT creates a signed HMAC-SHA256 session token for the
// principal that completed the consent flow.
func signSessionJWT(principal string, config *common.AuthConfig) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": principal,
		"iss": "scribe-server",
		"iat": now.Unix(),
		"exp": now.Add(config.GetTokenExpiry()).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.JWTSecret))
}

// validateSessionJWT parses and validates a session token string.
func validateSessionJWT(tokenString string, secret []byte) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// --- OAuth state parameter encoding ---

type oauthStatePayload struct {
	Principal string `json:"principal"`
	Nonce     string `json:"nonce"`
	TS        int64  `json:"ts"`
}

// encodeOAuthState encodes a principal into a signed state parameter so
// the callback can attribute the grant without server-side session state.
func encodeOAuthState(principal string, secret []byte) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	payload := oauthStatePayload{
		Principal: principal,
		Nonce:     base64.RawURLEncoding.EncodeToString(nonce),
		TS:        time.Now().Unix(),
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal state: %w", err)
	}
	payloadB64 := base64.RawURLEncoding.EncodeToString(payloadJSON)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payloadB64))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return payloadB64 + "." + sig, nil
}

// decodeOAuthState validates and decodes a state parameter, returning the principal.
func decodeOAuthState(state string, secret []byte) (string, error) {
	parts := strings.SplitN(state, ".", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid state format")
	}
	payloadB64, sigB64 := parts[0], parts[1]

	// Verify HMAC
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payloadB64))
	expectedSig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(sigB64), []byte(expectedSig)) {
		return "", fmt.Errorf("invalid state signature")
	}

	// Decode payload
	payloadJSON, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return "", fmt.Errorf("invalid state encoding: %w", err)
	}
	var payload oauthStatePayload
	if err := json.Unmarshal(payloadJSON, &payload); err != nil {
		return "", fmt.Errorf("invalid state payload: %w", err)
	}

	// Check expiry (10 minutes)
	if time.Since(time.Unix(payload.TS, 0)) > 10*time.Minute {
		return "", fmt.Errorf("state expired")
	}

	return payload.Principal, nil
}

// --- Handlers ---

// handleGmailAuthURL handles GET /api/auth/gmail/url?email= and returns
// the Google consent-screen URL for that mailbox.
func (s *Server) handleGmailAuthURL(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	if s.app.Config.Clients.Google.ClientID == "" {
		WriteError(w, http.StatusInternalServerError, "Google OAuth not configured")
		return
	}

	email := r.URL.Query().Get("email")
	if email == "" {
		WriteError(w, http.StatusBadRequest, "email query parameter is required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		WriteError(w, http.StatusBadRequest, "email is not a valid address")
		return
	}

	state, err := encodeOAuthState(email, []byte(s.app.Config.Auth.JWTSecret))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode OAuth state")
		WriteError(w, http.StatusInternalServerError, "Failed to build consent URL")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"url": s.app.GoogleClient.AuthorizationURL(state),
	})
}

// handleGmailCallback handles GET /api/auth/gmail/callback. Google
// redirects here with ?code and ?state after consent; the code is
// exchanged and the resulting credential appended to the store.
func (s *Server) handleGmailCallback(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	if errCode := q.Get("error"); errCode != "" {
		s.logger.Info().Str("error", errCode).Msg("Consent denied at Google")
		WriteErrorWithCode(w, http.StatusBadRequest, "Authorization denied: "+errCode, "consent_denied")
		return
	}

	code := q.Get("code")
	if code == "" {
		WriteError(w, http.StatusBadRequest, "code query parameter is required")
		return
	}

	principal, err := decodeOAuthState(q.Get("state"), []byte(s.app.Config.Auth.JWTSecret))
	if err != nil {
		s.logger.Info().Err(err).Msg("OAuth callback with invalid state")
		WriteError(w, http.StatusBadRequest, "Invalid state parameter")
		return
	}

	grant, err := s.app.GoogleClient.ExchangeCode(r.Context(), code)
	if err != nil {
		s.logger.Error().Err(err).Str("principal", principal).Msg("Code exchange rejected by provider")
		WriteErrorWithCode(w, http.StatusBadGateway, err.Error(), "exchange_failed")
		return
	}

	record, err := s.app.TokenService.RecordGrant(r.Context(), principal, grant)
	if err != nil {
		s.logger.Error().Err(err).Str("principal", principal).Msg("Failed to store credential")
		WriteError(w, http.StatusInternalServerError, "Failed to store credential")
		return
	}

	sessionToken, err := signSessionJWT(principal, &s.app.Config.Auth)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to sign session token")
		WriteError(w, http.StatusInternalServerError, "Failed to sign session token")
		return
	}

	s.logger.Info().
		Str("principal", principal).
		Str("credential_id", record.ID).
		Bool("refresh_token", record.RefreshToken != "").
		Msg("Gmail authorization recorded")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "authorized",
		"email":      principal,
		"expires_at": record.ExpiresAt,
		"token":      sessionToken,
	})
}

// handleAuthValidate handles POST /api/auth/validate - checks a session JWT.
func (s *Server) handleAuthValidate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		WriteError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
		return
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	claims, err := validateSessionJWT(tokenString, []byte(s.app.Config.Auth.JWTSecret))
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		WriteError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"email":  sub,
	})
}
