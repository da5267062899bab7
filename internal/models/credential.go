// Package models defines the domain types shared across Scribe
package models

import (
	"errors"
	"time"
)

// ErrCredentialNotFound is returned when a principal has no stored
// credential record. The caller must complete the consent flow first.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialRecord is one stored snapshot of an OAuth grant for a
// principal. Records are append-only; the record with the latest
// CreatedAt is the principal's current credential.
type CredentialRecord struct {
	ID           string    `json:"id"`
	Principal    string    `json:"principal"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Scope        string    `json:"scope"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// Valid reports whether the access token is still usable at the given
// instant, with margin subtracted from the true expiry so a token about
// to lapse is refreshed proactively.
func (r *CredentialRecord) Valid(now time.Time, margin time.Duration) bool {
	return now.Before(r.ExpiresAt.Add(-margin))
}

// TokenGrant is the transient result of a provider token exchange.
// It is never persisted directly; the caller converts it into a
// CredentialRecord with an absolute expiry.
type TokenGrant struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int    `json:"expires_in"`
}

// Record converts the grant into a CredentialRecord for the principal,
// carrying forward refresh token, token type, and scope from the prior
// record when the provider omitted them. prior may be nil.
func (g *TokenGrant) Record(principal string, prior *CredentialRecord, now time.Time) *CredentialRecord {
	rec := &CredentialRecord{
		Principal:    principal,
		AccessToken:  g.AccessToken,
		RefreshToken: g.RefreshToken,
		TokenType:    g.TokenType,
		Scope:        g.Scope,
		ExpiresAt:    now.Add(time.Duration(g.ExpiresIn) * time.Second),
		CreatedAt:    now,
	}
	if prior != nil {
		if rec.RefreshToken == "" {
			rec.RefreshToken = prior.RefreshToken
		}
		if rec.TokenType == "" {
			rec.TokenType = prior.TokenType
		}
		if rec.Scope == "" {
			rec.Scope = prior.Scope
		}
	}
	return rec
}
