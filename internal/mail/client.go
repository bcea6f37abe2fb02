// Package mail abstracts mailbox-provider access behind a capability
// interface so the agent logic never touches the Gmail SDK directly.
package mail

import (
	"context"

	"github.com/haris-cl/inbox-nuke/backend/internal/models"
)

// Filter is a provider-side mail filter.
type Filter struct {
	ID             string
	From           string
	AddLabelIDs    []string
	RemoveLabelIDs []string
}

// Profile is the mailbox summary returned by the provider.
type Profile struct {
	EmailAddress  string
	MessagesTotal int64
}

// Client is the set of mailbox capabilities the agent needs. Implementations
// must translate provider failures through the package's error taxonomy so
// orchestrators can distinguish fatal auth errors from transient ones.
type Client interface {
	// ListMessageIDs runs a search query and returns up to max message ids.
	ListMessageIDs(ctx context.Context, query string, max int64) ([]string, error)

	// GetMessagesMetadata fetches header-level metadata for the given ids.
	// Results may be fewer than ids if individual fetches fail.
	GetMessagesMetadata(ctx context.Context, ids []string) ([]*models.MessageMeta, error)

	// TrashMessages moves messages to trash (never permanent deletion) and
	// returns how many were trashed before any error.
	TrashMessages(ctx context.Context, ids []string) (int, error)

	// GetOrCreateLabel returns the id of the named label, creating it if
	// missing.
	GetOrCreateLabel(ctx context.Context, name string) (string, error)

	// ListFilters returns all existing filters.
	ListFilters(ctx context.Context) ([]*Filter, error)

	// CreateFilter creates a from-based filter and returns its id.
	CreateFilter(ctx context.Context, fromEmail string, addLabelIDs, removeLabelIDs []string) (string, error)

	// GetProfile returns the mailbox profile.
	GetProfile(ctx context.Context) (*Profile, error)
}
