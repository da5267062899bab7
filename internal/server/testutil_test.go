package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/scribe-mail/scribe/internal/app"
	"github.com/scribe-mail/scribe/internal/common"
	"github.com/scribe-mail/scribe/internal/interfaces"
	"github.com/scribe-mail/scribe/internal/models"
	"github.com/scribe-mail/scribe/internal/services/draft"
	"github.com/scribe-mail/scribe/internal/services/token"
	"github.com/stretchr/testify/require"
)

// --- In-memory stores ---

type memCredentialStore struct {
	mu      sync.Mutex
	records []*models.CredentialRecord
}

func (s *memCredentialStore) SaveCredential(_ context.Context, rec *models.CredentialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("cred_%d", len(s.records))
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	cp := *rec
	s.records = append(s.records, &cp)
	return nil
}

func (s *memCredentialStore) LatestCredential(_ context.Context, principal string) (*models.CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.CredentialRecord
	for _, r := range s.records {
		if r.Principal != principal {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, models.ErrCredentialNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *memCredentialStore) ListCredentials(_ context.Context, principal string) ([]*models.CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.CredentialRecord
	for _, r := range s.records {
		if r.Principal == principal {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type memDraftStore struct {
	mu     sync.Mutex
	drafts []*models.EmailDraft
}

func (s *memDraftStore) SaveDraft(_ context.Context, d *models.EmailDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = fmt.Sprintf("draft_%d", len(s.drafts))
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	s.drafts = append(s.drafts, d)
	return nil
}

func (s *memDraftStore) GetDraft(_ context.Context, id string) (*models.EmailDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.drafts {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, models.ErrDraftNotFound
}

func (s *memDraftStore) ListDrafts(_ context.Context, inboxID string, limit int) ([]*models.EmailDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.EmailDraft
	for _, d := range s.drafts {
		if inboxID == "" || d.InboxID == inboxID {
			out = append(out, d)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memStorageManager struct {
	credentials *memCredentialStore
	drafts      *memDraftStore
}

func newMemStorageManager() *memStorageManager {
	return &memStorageManager{
		credentials: &memCredentialStore{},
		drafts:      &memDraftStore{},
	}
}

func (m *memStorageManager) CredentialStore() interfaces.CredentialStore { return m.credentials }
func (m *memStorageManager) DraftStore() interfaces.DraftStore           { return m.drafts }
func (m *memStorageManager) Close() error                                { return nil }

// --- Fake clients ---

type fakeIdentityClient struct {
	grant       *models.TokenGrant
	exchangeErr error
	lastCode    string
}

func (c *fakeIdentityClient) AuthorizationURL(state string) string {
	return "https://accounts.google.test/o/oauth2/v2/auth?access_type=offline&prompt=consent&state=" + state
}

func (c *fakeIdentityClient) ExchangeCode(_ context.Context, code string) (*models.TokenGrant, error) {
	c.lastCode = code
	if c.exchangeErr != nil {
		return nil, c.exchangeErr
	}
	return c.grant, nil
}

func (c *fakeIdentityClient) ExchangeRefreshToken(_ context.Context, _ string) (*models.TokenGrant, error) {
	if c.exchangeErr != nil {
		return nil, c.exchangeErr
	}
	return c.grant, nil
}

type fakeMailClient struct {
	messageID string
	sendErr   error
	lastToken string
	lastMsg   *models.OutboundMessage
}

func (c *fakeMailClient) Send(_ context.Context, accessToken string, msg *models.OutboundMessage) (string, error) {
	c.lastToken = accessToken
	c.lastMsg = msg
	if c.sendErr != nil {
		return "", c.sendErr
	}
	return c.messageID, nil
}

type fakeGeminiClient struct {
	reply string
	err   error
}

func (c *fakeGeminiClient) GenerateContent(_ context.Context, _ string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

func (c *fakeGeminiClient) Close() error { return nil }

// --- Test server ---

type testEnv struct {
	server   *Server
	storage  *memStorageManager
	identity *fakeIdentityClient
	mail     *fakeMailClient
	gemini   *fakeGeminiClient
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()

	storage := newMemStorageManager()
	identity := &fakeIdentityClient{}
	mail := &fakeMailClient{messageID: "msg-1"}
	gemini := &fakeGeminiClient{reply: "Thanks for your email."}

	logger := common.NewSilentLogger()
	cfg := common.NewDefaultConfig()
	cfg.Clients.Google.ClientID = "client-123"
	cfg.Clients.Google.ClientSecret = "secret"
	cfg.Auth.JWTSecret = "test-secret-key"

	a := &app.App{
		Config:       cfg,
		Logger:       logger,
		Storage:      storage,
		GoogleClient: identity,
		GmailClient:  mail,
		GeminiClient: gemini,
		TokenService: token.NewService(storage.credentials, identity, logger),
		DraftService: draft.NewService(gemini, storage.drafts, logger),
		StartupTime:  time.Now(),
	}

	return &testEnv{
		server:   &Server{app: a, logger: logger},
		storage:  storage,
		identity: identity,
		mail:     mail,
		gemini:   gemini,
	}
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}
