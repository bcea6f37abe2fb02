package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/haris-cl/inbox-nuke/backend/internal/mail"
	"github.com/haris-cl/inbox-nuke/backend/internal/models"
)

// FakeMailClient is an in-memory mail.Client for tests. Seed it with
// messages and query results, then assert on the recorded mutations.
type FakeMailClient struct {
	mu sync.Mutex

	// QueryResults maps an exact search query to message ids. Queries with a
	// from: prefix fall back to matching seeded messages by sender.
	QueryResults map[string][]string
	Messages     map[string]*models.MessageMeta
	Labels       map[string]string
	Filters      []*mail.Filter

	Trashed []string

	ProfileEmail string

	ListErr    error
	TrashErr   error
	FilterErr  error
	ProfileErr error

	nextFilterID int
	nextLabelID  int
}

// NewFakeMailClient returns an empty fake client.
func NewFakeMailClient() *FakeMailClient {
	return &FakeMailClient{
		QueryResults: make(map[string][]string),
		Messages:     make(map[string]*models.MessageMeta),
		Labels:       make(map[string]string),
		ProfileEmail: "me@example.com",
	}
}

// AddMessage seeds one message.
func (f *FakeMailClient) AddMessage(meta *models.MessageMeta) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Messages[meta.ID] = meta
}

func (f *FakeMailClient) ListMessageIDs(_ context.Context, query string, max int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ListErr != nil {
		return nil, f.ListErr
	}

	ids, ok := f.QueryResults[query]
	if !ok && strings.HasPrefix(query, "from:") {
		// "from:<email> older_than:Nd" style queries match seeded senders.
		fields := strings.Fields(query)
		sender := strings.TrimPrefix(fields[0], "from:")
		for id, meta := range f.Messages {
			if meta.FromEmail == sender {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)
	}

	if int64(len(ids)) > max {
		ids = ids[:max]
	}

	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}

func (f *FakeMailClient) GetMessagesMetadata(_ context.Context, ids []string) ([]*models.MessageMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var metas []*models.MessageMeta
	for _, id := range ids {
		if meta, ok := f.Messages[id]; ok {
			metas = append(metas, meta)
		}
	}
	return metas, nil
}

func (f *FakeMailClient) TrashMessages(_ context.Context, ids []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.TrashErr != nil {
		return 0, f.TrashErr
	}

	for _, id := range ids {
		delete(f.Messages, id)
		f.Trashed = append(f.Trashed, id)
	}
	return len(ids), nil
}

func (f *FakeMailClient) GetOrCreateLabel(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if id, ok := f.Labels[name]; ok {
		return id, nil
	}

	f.nextLabelID++
	id := fmt.Sprintf("Label_%d", f.nextLabelID)
	f.Labels[name] = id
	return id, nil
}

func (f *FakeMailClient) ListFilters(_ context.Context) ([]*mail.Filter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FilterErr != nil {
		return nil, f.FilterErr
	}

	out := make([]*mail.Filter, len(f.Filters))
	copy(out, f.Filters)
	return out, nil
}

func (f *FakeMailClient) CreateFilter(_ context.Context, fromEmail string, addLabelIDs, removeLabelIDs []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FilterErr != nil {
		return "", f.FilterErr
	}

	f.nextFilterID++
	id := fmt.Sprintf("filter-%d", f.nextFilterID)
	f.Filters = append(f.Filters, &mail.Filter{
		ID:             id,
		From:           fromEmail,
		AddLabelIDs:    addLabelIDs,
		RemoveLabelIDs: removeLabelIDs,
	})
	return id, nil
}

func (f *FakeMailClient) GetProfile(_ context.Context) (*mail.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ProfileErr != nil {
		return nil, f.ProfileErr
	}

	return &mail.Profile{
		EmailAddress:  f.ProfileEmail,
		MessagesTotal: int64(len(f.Messages)),
	}, nil
}

// TrashedCount returns how many messages have been trashed so far.
func (f *FakeMailClient) TrashedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Trashed)
}
