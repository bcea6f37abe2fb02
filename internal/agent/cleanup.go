package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/haris-cl/inbox-nuke/backend/internal/mail"
	"github.com/haris-cl/inbox-nuke/backend/internal/models"
)

// deleteQueryCap bounds one sender's deletion pass. Anything beyond this is
// picked up by the next run.
const deleteQueryCap = 10000

// CleanupResult reports what one deletion pass did.
type CleanupResult struct {
	EmailsDeleted int
	BytesFreed    int64
}

// Deleter trashes old messages from a sender. Messages go to the provider's
// trash, never permanent deletion, so the user has the provider's recovery
// window to change their mind.
type Deleter struct {
	client mail.Client
	logger *log.Logger
}

// NewDeleter returns a Deleter over the given mail client.
func NewDeleter(client mail.Client) *Deleter {
	return &Deleter{
		client: client,
		logger: log.New(log.Writer(), "[cleanup] ", log.LstdFlags),
	}
}

// DeleteOldMessages trashes the sender's messages older than the retention
// window implied by their junk score. The byte count is an estimate summed
// from message metadata; messages whose metadata cannot be fetched are still
// trashed, they just don't contribute to the estimate.
func (d *Deleter) DeleteOldMessages(ctx context.Context, sender *models.Sender) (*CleanupResult, error) {
	days := RetentionWindowDays(sender.JunkScore)
	query := fmt.Sprintf("from:%s older_than:%dd", sender.Email, days)

	ids, err := d.client.ListMessageIDs(ctx, query, deleteQueryCap)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages from %s: %w", sender.Email, err)
	}

	result := &CleanupResult{}
	if len(ids) == 0 {
		return result, nil
	}

	for start := 0; start < len(ids); start += metadataBatchSize {
		end := start + metadataBatchSize
		if end > len(ids) {
			end = len(ids)
		}

		metas, err := d.client.GetMessagesMetadata(ctx, ids[start:end])
		if err != nil {
			if mail.IsAuthError(err) {
				return nil, err
			}
			d.logger.Printf("failed to size a batch from %s, continuing: %v", sender.Email, err)
			continue
		}

		for _, meta := range metas {
			result.BytesFreed += meta.SizeEstimate
		}
	}

	trashed, err := d.client.TrashMessages(ctx, ids)
	result.EmailsDeleted = trashed
	if err != nil {
		return result, fmt.Errorf("failed to trash messages from %s: %w", sender.Email, err)
	}

	d.logger.Printf("trashed %d messages from %s (~%.2f MB)",
		trashed, sender.Email, float64(result.BytesFreed)/(1024*1024))
	return result, nil
}
