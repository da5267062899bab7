// Package token manages the OAuth credential lifecycle for a principal
package token

import (
	"context"
	"errors"
	"time"

	"github.com/scribe-mail/scribe/internal/common"
	"github.com/scribe-mail/scribe/internal/interfaces"
	"github.com/scribe-mail/scribe/internal/models"
)

// DefaultRefreshMargin is how long before true expiry a credential is
// treated as stale. Refreshing early avoids a token lapsing between the
// staleness check and the actual provider call.
const DefaultRefreshMargin = 60 * time.Second

// CredentialRefreshError wraps a provider rejection during refresh.
// It is fatal for the current request; a provider-level token rejection
// is not transient, so there is no retry.
type CredentialRefreshError struct {
	Principal string
	Err       error
}

func (e *CredentialRefreshError) Error() string {
	return "credential refresh failed for " + e.Principal + ": " + e.Err.Error()
}

func (e *CredentialRefreshError) Unwrap() error {
	return e.Err
}

// Service implements TokenService. Each resolution re-reads the latest
// record from the store; credentials are never cached across calls, so
// the store remains the single source of truth. Concurrent stale-state
// calls for the same principal may each refresh and append a record —
// the append-only store tolerates this (last write wins as "latest"),
// trading a possible duplicate provider call for lock-free operation.
type Service struct {
	store    interfaces.CredentialStore
	identity interfaces.IdentityClient
	logger   *common.Logger
	margin   time.Duration
	now      func() time.Time // injectable clock for testing
}

// ServiceOption configures the service
type ServiceOption func(*Service)

// WithRefreshMargin sets how long before expiry a credential is refreshed.
func WithRefreshMargin(margin time.Duration) ServiceOption {
	return func(s *Service) {
		s.margin = margin
	}
}

// WithClock sets the time source (used in tests).
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new token lifecycle service.
func NewService(store interfaces.CredentialStore, identity interfaces.IdentityClient, logger *common.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		identity: identity,
		logger:   logger,
		margin:   DefaultRefreshMargin,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ResolveAccessToken returns a currently-valid access token for the
// principal. Three states, evaluated fresh on every call:
//
//   - no record:  models.ErrCredentialNotFound — the principal must
//     complete the consent flow first; this service never initiates
//     interactive consent.
//   - valid:      the latest record's access token, no network call.
//   - stale:      refresh via the provider, append a new record, and
//     return the new access token.
func (s *Service) ResolveAccessToken(ctx context.Context, principal string) (string, error) {
	latest, err := s.store.LatestCredential(ctx, principal)
	if err != nil {
		if errors.Is(err, models.ErrCredentialNotFound) {
			return "", models.ErrCredentialNotFound
		}
		return "", err
	}

	if latest.Valid(s.now(), s.margin) {
		return latest.AccessToken, nil
	}

	s.logger.Info().
		Str("principal", principal).
		Time("expired_at", latest.ExpiresAt).
		Msg("Credential stale, refreshing")

	grant, err := s.identity.ExchangeRefreshToken(ctx, latest.RefreshToken)
	if err != nil {
		return "", &CredentialRefreshError{Principal: principal, Err: err}
	}

	rec := grant.Record(principal, latest, s.now())
	if err := s.store.SaveCredential(ctx, rec); err != nil {
		return "", err
	}

	return rec.AccessToken, nil
}

// RecordGrant converts a provider grant (from the authorization-code
// exchange) into a credential record and appends it. The prior record,
// when one exists, supplies any fields the grant omitted.
func (s *Service) RecordGrant(ctx context.Context, principal string, grant *models.TokenGrant) (*models.CredentialRecord, error) {
	prior, err := s.store.LatestCredential(ctx, principal)
	if err != nil && !errors.Is(err, models.ErrCredentialNotFound) {
		return nil, err
	}

	rec := grant.Record(principal, prior, s.now())
	if err := s.store.SaveCredential(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("principal", principal).
		Time("expires_at", rec.ExpiresAt).
		Msg("Credential recorded")
	return rec, nil
}

// Compile-time check
var _ interfaces.TokenService = (*Service)(nil)
