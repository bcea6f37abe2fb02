package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reviewItemColumns = `
	id,
	session_id,
	message_id,
	thread_id,
	sender_email,
	sender_name,
	subject,
	snippet,
	received_at,
	size_bytes,
	ai_suggestion,
	reasoning,
	confidence,
	user_decision,
	category,
	wants_unsubscribe,
	has_unsubscribe,
	unsubscribe_url,
	unsubscribe_mailto,
	unsubscribe_one_click,
	created_at
`

// InsertReviewItems bulk-inserts scanned items for a session. Duplicate
// message ids within the session are ignored so a re-scan stays idempotent.
func InsertReviewItems(ctx context.Context, pool *pgxpool.Pool, items []*models.ReviewItem) error {
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(`
			INSERT INTO review_items (
				session_id, message_id, thread_id, sender_email, sender_name,
				subject, snippet, received_at, size_bytes,
				ai_suggestion, reasoning, confidence, category,
				wants_unsubscribe, has_unsubscribe,
				unsubscribe_url, unsubscribe_mailto, unsubscribe_one_click
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
			ON CONFLICT (session_id, message_id) DO NOTHING
		`,
			item.SessionID, item.MessageID, item.ThreadID, item.SenderEmail, item.SenderName,
			item.Subject, item.Snippet, item.ReceivedAt, item.SizeBytes,
			item.AISuggestion, item.Reasoning, item.Confidence, item.Category,
			item.WantsUnsubscribe, item.HasUnsubscribe,
			item.UnsubscribeURL, item.UnsubscribeMailto, item.UnsubscribeOneClick,
		)
	}

	results := pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for range items {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert review item: %w", err)
		}
	}

	return nil
}

// ListReviewItems returns all items of a session, oldest message first.
func ListReviewItems(ctx context.Context, pool *pgxpool.Pool, sessionID string) ([]*models.ReviewItem, error) {
	rows, err := pool.Query(ctx, `
		SELECT `+reviewItemColumns+`
		FROM review_items
		WHERE session_id = $1
		ORDER BY received_at ASC NULLS LAST, id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list review items: %w", err)
	}
	defer rows.Close()

	return collectReviewItems(rows)
}

// ListPendingDeleteItems returns delete suggestions awaiting a user decision.
// In quick mode only suggestions below the confidence threshold are surfaced;
// full mode surfaces them all.
func ListPendingDeleteItems(ctx context.Context, pool *pgxpool.Pool, sessionID string, maxConfidence float64) ([]*models.ReviewItem, error) {
	rows, err := pool.Query(ctx, `
		SELECT `+reviewItemColumns+`
		FROM review_items
		WHERE session_id = $1
		  AND ai_suggestion = 'delete'
		  AND user_decision IS NULL
		  AND confidence < $2
		ORDER BY confidence ASC, id ASC
	`, sessionID, maxConfidence)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending delete items: %w", err)
	}
	defer rows.Close()

	return collectReviewItems(rows)
}

// SetReviewDecision records the user's keep/delete verdict for one message.
func SetReviewDecision(ctx context.Context, pool *pgxpool.Pool, sessionID, messageID string, decision models.Suggestion) error {
	tag, err := pool.Exec(ctx, `
		UPDATE review_items
		SET user_decision = $3
		WHERE session_id = $1 AND message_id = $2
	`, sessionID, messageID, decision)
	if err != nil {
		return fmt.Errorf("failed to set review decision: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrReviewItemNotFound
	}

	return nil
}

// SetUnsubscribePreference records whether the user wants to unsubscribe from
// the item's sender during execution.
func SetUnsubscribePreference(ctx context.Context, pool *pgxpool.Pool, sessionID, messageID string, wants bool) error {
	tag, err := pool.Exec(ctx, `
		UPDATE review_items
		SET wants_unsubscribe = $3
		WHERE session_id = $1 AND message_id = $2
	`, sessionID, messageID, wants)
	if err != nil {
		return fmt.Errorf("failed to set unsubscribe preference: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrReviewItemNotFound
	}

	return nil
}

// DefaultUndecidedToSuggestion fills every missing user decision with the AI
// suggestion. Used by skip-all. Returns the number of items defaulted.
func DefaultUndecidedToSuggestion(ctx context.Context, pool *pgxpool.Pool, sessionID string) (int, error) {
	tag, err := pool.Exec(ctx, `
		UPDATE review_items
		SET user_decision = ai_suggestion
		WHERE session_id = $1 AND user_decision IS NULL
	`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to default undecided items: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// GetReviewItem returns a single item by session and message id.
func GetReviewItem(ctx context.Context, pool *pgxpool.Pool, sessionID, messageID string) (*models.ReviewItem, error) {
	row := pool.QueryRow(ctx, `
		SELECT `+reviewItemColumns+`
		FROM review_items
		WHERE session_id = $1 AND message_id = $2
	`, sessionID, messageID)

	item, err := scanReviewItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReviewItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review item: %w", err)
	}

	return item, nil
}

func collectReviewItems(rows pgx.Rows) ([]*models.ReviewItem, error) {
	var items []*models.ReviewItem
	for rows.Next() {
		item, err := scanReviewItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate review items: %w", err)
	}

	return items, nil
}

func scanReviewItem(row pgx.Row) (*models.ReviewItem, error) {
	var item models.ReviewItem

	err := row.Scan(
		&item.ID,
		&item.SessionID,
		&item.MessageID,
		&item.ThreadID,
		&item.SenderEmail,
		&item.SenderName,
		&item.Subject,
		&item.Snippet,
		&item.ReceivedAt,
		&item.SizeBytes,
		&item.AISuggestion,
		&item.Reasoning,
		&item.Confidence,
		&item.UserDecision,
		&item.Category,
		&item.WantsUnsubscribe,
		&item.HasUnsubscribe,
		&item.UnsubscribeURL,
		&item.UnsubscribeMailto,
		&item.UnsubscribeOneClick,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &item, nil
}
