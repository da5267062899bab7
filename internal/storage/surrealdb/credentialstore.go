package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/scribe-mail/scribe/internal/common"
	"github.com/scribe-mail/scribe/internal/interfaces"
	"github.com/scribe-mail/scribe/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// credentialSelectFields lists the fields to select from credential, aliasing record_id to id for struct mapping.
const credentialSelectFields = `record_id as id, principal, access_token, refresh_token,
	token_type, scope, expires_at, created_at`

// CredentialStore implements interfaces.CredentialStore using SurrealDB.
//
// The store is append-only: every SaveCredential creates a new row
// under a fresh record ID, and the current credential for a principal
// is defined as the row with the latest created_at. Nothing is ever
// updated in place, so concurrent refreshes for the same principal
// cannot corrupt each other; the last write simply wins as "latest".
type CredentialStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewCredentialStore creates a new CredentialStore.
func NewCredentialStore(db *surrealdb.DB, logger *common.Logger) *CredentialStore {
	return &CredentialStore{db: db, logger: logger}
}

func (s *CredentialStore) SaveCredential(ctx context.Context, rec *models.CredentialRecord) error {
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("cred_%s", uuid.New().String()[:8])
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	sql := `UPSERT $rid SET
		record_id = $record_id, principal = $principal,
		access_token = $access_token, refresh_token = $refresh_token,
		token_type = $token_type, scope = $scope,
		expires_at = $expires_at, created_at = $created_at`
	vars := map[string]any{
		"rid":           surrealmodels.NewRecordID("credential", rec.ID),
		"record_id":     rec.ID,
		"principal":     rec.Principal,
		"access_token":  rec.AccessToken,
		"refresh_token": rec.RefreshToken,
		"token_type":    rec.TokenType,
		"scope":         rec.Scope,
		"expires_at":    rec.ExpiresAt,
		"created_at":    rec.CreatedAt,
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	s.logger.Debug().
		Str("principal", rec.Principal).
		Str("record_id", rec.ID).
		Time("expires_at", rec.ExpiresAt).
		Msg("Credential record appended")
	return nil
}

func (s *CredentialStore) LatestCredential(ctx context.Context, principal string) (*models.CredentialRecord, error) {
	sql := "SELECT " + credentialSelectFields + " FROM credential WHERE principal = $principal ORDER BY created_at DESC LIMIT 1"
	vars := map[string]any{
		"principal": principal,
	}

	results, err := surrealdb.Query[[]models.CredentialRecord](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, models.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to get latest credential: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, models.ErrCredentialNotFound
	}
	return &(*results)[0].Result[0], nil
}

func (s *CredentialStore) ListCredentials(ctx context.Context, principal string) ([]*models.CredentialRecord, error) {
	sql := "SELECT " + credentialSelectFields + " FROM credential WHERE principal = $principal ORDER BY created_at DESC"
	vars := map[string]any{
		"principal": principal,
	}

	results, err := surrealdb.Query[[]models.CredentialRecord](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	rows := (*results)[0].Result
	records := make([]*models.CredentialRecord, 0, len(rows))
	for i := range rows {
		records = append(records, &rows[i])
	}
	return records, nil
}

// Compile-time check
var _ interfaces.CredentialStore = (*CredentialStore)(nil)
