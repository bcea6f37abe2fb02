package agent

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/haris-cl/inbox-nuke/backend/internal/mail"
	"github.com/haris-cl/inbox-nuke/backend/internal/models"
)

const mutedLabelName = "Muted"

// FilterManager creates mute filters: matching mail skips the inbox, is
// marked read, and is labelled under "Muted/<domain>" so the user can audit
// what got muted.
type FilterManager struct {
	client mail.Client
	logger *log.Logger

	mu         sync.Mutex
	labelCache map[string]string
}

// NewFilterManager returns a FilterManager over the given mail client.
func NewFilterManager(client mail.Client) *FilterManager {
	return &FilterManager{
		client:     client,
		logger:     log.New(log.Writer(), "[filters] ", log.LstdFlags),
		labelCache: make(map[string]string),
	}
}

// EnsureMuteFilter creates a mute filter for the sender, or returns the id of
// an existing filter on the same from address. The returned bool reports
// whether a new filter was created.
func (m *FilterManager) EnsureMuteFilter(ctx context.Context, sender *models.Sender) (string, bool, error) {
	existing, err := m.findExisting(ctx, sender.Email)
	if err != nil {
		return "", false, err
	}
	if existing != "" {
		m.logger.Printf("filter already exists for %s (%s)", sender.Email, existing)
		return existing, false, nil
	}

	mutedID, err := m.labelID(ctx, mutedLabelName)
	if err != nil {
		return "", false, err
	}

	domainID, err := m.labelID(ctx, mutedLabelName+"/"+sender.Domain)
	if err != nil {
		return "", false, err
	}

	// Removing INBOX archives the message; removing UNREAD marks it read.
	filterID, err := m.client.CreateFilter(ctx, sender.Email,
		[]string{mutedID, domainID},
		[]string{"INBOX", "UNREAD"},
	)
	if err != nil {
		return "", false, fmt.Errorf("failed to create mute filter for %s: %w", sender.Email, err)
	}

	m.logger.Printf("created mute filter for %s (%s)", sender.Email, filterID)
	return filterID, true, nil
}

func (m *FilterManager) findExisting(ctx context.Context, fromEmail string) (string, error) {
	filters, err := m.client.ListFilters(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list existing filters: %w", err)
	}

	for _, f := range filters {
		if f.From == fromEmail {
			return f.ID, nil
		}
	}
	return "", nil
}

func (m *FilterManager) labelID(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	if id, ok := m.labelCache[name]; ok {
		m.mu.Unlock()
		return id, nil
	}
	m.mu.Unlock()

	id, err := m.client.GetOrCreateLabel(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to get or create label %q: %w", name, err)
	}

	m.mu.Lock()
	m.labelCache[name] = id
	m.mu.Unlock()

	return id, nil
}
