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

// draftSelectFields lists the fields to select from email_draft, aliasing draft_id to id for struct mapping.
const draftSelectFields = `draft_id as id, inbox_id, sender, subject, body, reply,
	confidence, status, created_at`

// DraftStore implements interfaces.DraftStore using SurrealDB.
type DraftStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewDraftStore creates a new DraftStore.
func NewDraftStore(db *surrealdb.DB, logger *common.Logger) *DraftStore {
	return &DraftStore{db: db, logger: logger}
}

func (s *DraftStore) SaveDraft(ctx context.Context, draft *models.EmailDraft) error {
	if draft.ID == "" {
		draft.ID = fmt.Sprintf("draft_%s", uuid.New().String()[:8])
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = time.Now()
	}
	if draft.Status == "" {
		draft.Status = models.DraftStatusDraft
	}

	sql := `UPSERT $rid SET
		draft_id = $draft_id, inbox_id = $inbox_id, sender = $sender,
		subject = $subject, body = $body, reply = $reply,
		confidence = $confidence, status = $status, created_at = $created_at`
	vars := map[string]any{
		"rid":        surrealmodels.NewRecordID("email_draft", draft.ID),
		"draft_id":   draft.ID,
		"inbox_id":   draft.InboxID,
		"sender":     draft.Sender,
		"subject":    draft.Subject,
		"body":       draft.Body,
		"reply":      draft.Reply,
		"confidence": draft.Confidence,
		"status":     draft.Status,
		"created_at": draft.CreatedAt,
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

func (s *DraftStore) GetDraft(ctx context.Context, id string) (*models.EmailDraft, error) {
	sql := "SELECT " + draftSelectFields + " FROM $rid"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID("email_draft", id),
	}

	results, err := surrealdb.Query[[]models.EmailDraft](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, models.ErrDraftNotFound
		}
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, models.ErrDraftNotFound
	}
	return &(*results)[0].Result[0], nil
}

func (s *DraftStore) ListDrafts(ctx context.Context, inboxID string, limit int) ([]*models.EmailDraft, error) {
	if limit <= 0 {
		limit = 50
	}

	where := ""
	vars := map[string]any{
		"limit": limit,
	}
	if inboxID != "" {
		where = " WHERE inbox_id = $inbox_id"
		vars["inbox_id"] = inboxID
	}

	sql := "SELECT " + draftSelectFields + " FROM email_draft" + where + " ORDER BY created_at DESC LIMIT $limit"

	results, err := surrealdb.Query[[]models.EmailDraft](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	rows := (*results)[0].Result
	drafts := make([]*models.EmailDraft, 0, len(rows))
	for i := range rows {
		drafts = append(drafts, &rows[i])
	}
	return drafts, nil
}

// Compile-time check
var _ interfaces.DraftStore = (*DraftStore)(nil)
