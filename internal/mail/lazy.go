package mail

import (
	"context"
	"sync"

	"github.com/haris-cl/inbox-nuke/backend/internal/config"
	"github.com/haris-cl/inbox-nuke/backend/internal/crypto"
	"github.com/haris-cl/inbox-nuke/backend/internal/db"
	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LazyClient defers Gmail client construction until the first call, so the
// server can start before any OAuth tokens have been stored. Once built, the
// client is reused; calls made before credentials exist fail with
// ErrCredentialsNotFound from the store.
type LazyClient struct {
	cfg       *config.Config
	pool      *pgxpool.Pool
	encryptor *crypto.Encryptor

	mu     sync.Mutex
	client *GmailClient
}

var _ Client = (*LazyClient)(nil)

// NewLazyClient returns a Client that loads stored credentials on first use.
func NewLazyClient(cfg *config.Config, pool *pgxpool.Pool, encryptor *crypto.Encryptor) *LazyClient {
	return &LazyClient{cfg: cfg, pool: pool, encryptor: encryptor}
}

func (l *LazyClient) get(ctx context.Context) (*GmailClient, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.client != nil {
		return l.client, nil
	}

	creds, err := db.GetGmailCredentials(ctx, l.pool, l.encryptor)
	if err != nil {
		return nil, err
	}

	client, err := NewGmailClient(ctx, l.cfg, creds)
	if err != nil {
		return nil, err
	}

	l.client = client
	return client, nil
}

// Reset drops the cached client so the next call rebuilds it from freshly
// stored credentials.
func (l *LazyClient) Reset() {
	l.mu.Lock()
	l.client = nil
	l.mu.Unlock()
}

func (l *LazyClient) ListMessageIDs(ctx context.Context, query string, max int64) ([]string, error) {
	client, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return client.ListMessageIDs(ctx, query, max)
}

func (l *LazyClient) GetMessagesMetadata(ctx context.Context, ids []string) ([]*models.MessageMeta, error) {
	client, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return client.GetMessagesMetadata(ctx, ids)
}

func (l *LazyClient) TrashMessages(ctx context.Context, ids []string) (int, error) {
	client, err := l.get(ctx)
	if err != nil {
		return 0, err
	}
	return client.TrashMessages(ctx, ids)
}

func (l *LazyClient) GetOrCreateLabel(ctx context.Context, name string) (string, error) {
	client, err := l.get(ctx)
	if err != nil {
		return "", err
	}
	return client.GetOrCreateLabel(ctx, name)
}

func (l *LazyClient) ListFilters(ctx context.Context) ([]*Filter, error) {
	client, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return client.ListFilters(ctx)
}

func (l *LazyClient) CreateFilter(ctx context.Context, fromEmail string, addLabelIDs, removeLabelIDs []string) (string, error) {
	client, err := l.get(ctx)
	if err != nil {
		return "", err
	}
	return client.CreateFilter(ctx, fromEmail, addLabelIDs, removeLabelIDs)
}

func (l *LazyClient) GetProfile(ctx context.Context) (*Profile, error) {
	client, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return client.GetProfile(ctx)
}
