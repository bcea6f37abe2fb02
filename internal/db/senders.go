package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSenderNotFound is returned when a sender cannot be found.
var ErrSenderNotFound = errors.New("sender not found")

const senderColumns = `
	id,
	email,
	domain,
	display_name,
	message_count,
	unsubscribe_method,
	unsubscribe_mailto,
	unsubscribe_url,
	junk_score,
	unsubscribed,
	unsubscribed_at,
	filter_id,
	processed,
	first_seen_at,
	last_seen_at,
	created_at
`

// UpsertSender inserts or refreshes a discovered sender keyed by email.
// The message count is replaced with the fresh aggregate so re-running
// discovery against an unchanged mailbox leaves the row untouched. The
// unsubscribe method only upgrades (one_click > mailto > http > none; a
// sender seen once with one_click keeps it even if a later message lacks
// the header), and the junk score keeps its maximum.
func UpsertSender(ctx context.Context, pool *pgxpool.Pool, sender *models.Sender) (*models.Sender, error) {
	row := pool.QueryRow(ctx, `
		INSERT INTO senders (
			email,
			domain,
			display_name,
			message_count,
			unsubscribe_method,
			unsubscribe_mailto,
			unsubscribe_url,
			junk_score,
			first_seen_at,
			last_seen_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (email) DO UPDATE SET
			display_name = COALESCE(EXCLUDED.display_name, senders.display_name),
			message_count = EXCLUDED.message_count,
			unsubscribe_method = CASE
				WHEN array_position(ARRAY['none', 'http', 'mailto', 'one_click'], EXCLUDED.unsubscribe_method)
					> array_position(ARRAY['none', 'http', 'mailto', 'one_click'], senders.unsubscribe_method)
				THEN EXCLUDED.unsubscribe_method
				ELSE senders.unsubscribe_method
			END,
			unsubscribe_mailto = COALESCE(senders.unsubscribe_mailto, EXCLUDED.unsubscribe_mailto),
			unsubscribe_url = COALESCE(senders.unsubscribe_url, EXCLUDED.unsubscribe_url),
			junk_score = GREATEST(senders.junk_score, EXCLUDED.junk_score),
			first_seen_at = LEAST(senders.first_seen_at, EXCLUDED.first_seen_at),
			last_seen_at = GREATEST(senders.last_seen_at, EXCLUDED.last_seen_at)
		RETURNING `+senderColumns,
		sender.Email,
		sender.Domain,
		sender.DisplayName,
		sender.MessageCount,
		sender.UnsubscribeMethod,
		sender.UnsubscribeMailto,
		sender.UnsubscribeURL,
		sender.JunkScore,
		sender.FirstSeenAt,
		sender.LastSeenAt,
	)

	saved, err := scanSender(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert sender: %w", err)
	}

	return saved, nil
}

// GetSender returns the sender with the given id.
func GetSender(ctx context.Context, pool *pgxpool.Pool, id int64) (*models.Sender, error) {
	row := pool.QueryRow(ctx, `
		SELECT `+senderColumns+`
		FROM senders
		WHERE id = $1
	`, id)

	sender, err := scanSender(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSenderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sender: %w", err)
	}

	return sender, nil
}

// GetSenderByEmail returns the sender with the given email address.
func GetSenderByEmail(ctx context.Context, pool *pgxpool.Pool, email string) (*models.Sender, error) {
	row := pool.QueryRow(ctx, `
		SELECT `+senderColumns+`
		FROM senders
		WHERE email = $1
	`, email)

	sender, err := scanSender(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSenderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sender by email: %w", err)
	}

	return sender, nil
}

// ListSenders returns all senders ordered by junk score, highest first.
func ListSenders(ctx context.Context, pool *pgxpool.Pool) ([]*models.Sender, error) {
	rows, err := pool.Query(ctx, `
		SELECT `+senderColumns+`
		FROM senders
		ORDER BY junk_score DESC, message_count DESC, email ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list senders: %w", err)
	}
	defer rows.Close()

	var senders []*models.Sender
	for rows.Next() {
		sender, err := scanSender(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sender: %w", err)
		}
		senders = append(senders, sender)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate senders: %w", err)
	}

	return senders, nil
}

// ListUnprocessedSenders returns senders the run pipeline has not finished
// with, ordered the same way as ListSenders.
func ListUnprocessedSenders(ctx context.Context, pool *pgxpool.Pool) ([]*models.Sender, error) {
	rows, err := pool.Query(ctx, `
		SELECT `+senderColumns+`
		FROM senders
		WHERE NOT processed
		ORDER BY junk_score DESC, message_count DESC, email ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed senders: %w", err)
	}
	defer rows.Close()

	var senders []*models.Sender
	for rows.Next() {
		sender, err := scanSender(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sender: %w", err)
		}
		senders = append(senders, sender)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate senders: %w", err)
	}

	return senders, nil
}

// MarkSenderUnsubscribed records a successful unsubscribe.
func MarkSenderUnsubscribed(ctx context.Context, pool *pgxpool.Pool, id int64, at time.Time) error {
	tag, err := pool.Exec(ctx, `
		UPDATE senders
		SET unsubscribed = TRUE, unsubscribed_at = $2
		WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark sender unsubscribed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrSenderNotFound
	}

	return nil
}

// SetSenderFilterID records the provider-side filter created for a sender.
func SetSenderFilterID(ctx context.Context, pool *pgxpool.Pool, id int64, filterID string) error {
	tag, err := pool.Exec(ctx, `
		UPDATE senders
		SET filter_id = $2
		WHERE id = $1
	`, id, filterID)
	if err != nil {
		return fmt.Errorf("failed to set sender filter id: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrSenderNotFound
	}

	return nil
}

// MarkSenderProcessed marks a sender as fully handled by a run.
func MarkSenderProcessed(ctx context.Context, pool *pgxpool.Pool, id int64) error {
	tag, err := pool.Exec(ctx, `
		UPDATE senders
		SET processed = TRUE
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to mark sender processed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrSenderNotFound
	}

	return nil
}

// GetSenderStats aggregates the senders table for reporting.
func GetSenderStats(ctx context.Context, pool *pgxpool.Pool, junkThreshold int) (*models.SenderStats, error) {
	stats := &models.SenderStats{ByMethod: make(map[string]int)}

	err := pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE junk_score >= $1),
			COUNT(*) FILTER (WHERE unsubscribed),
			COUNT(*) FILTER (WHERE filter_id IS NOT NULL),
			COUNT(*) FILTER (WHERE processed),
			COALESCE(SUM(message_count), 0)
		FROM senders
	`, junkThreshold).Scan(
		&stats.TotalSenders,
		&stats.JunkSenders,
		&stats.Unsubscribed,
		&stats.FiltersCreated,
		&stats.Processed,
		&stats.TotalMessages,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sender stats: %w", err)
	}

	rows, err := pool.Query(ctx, `
		SELECT unsubscribe_method, COUNT(*)
		FROM senders
		GROUP BY unsubscribe_method
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count senders by method: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var method string
		var count int
		if err := rows.Scan(&method, &count); err != nil {
			return nil, fmt.Errorf("failed to scan method count: %w", err)
		}
		stats.ByMethod[method] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate method counts: %w", err)
	}

	return stats, nil
}

func scanSender(row pgx.Row) (*models.Sender, error) {
	var sender models.Sender

	err := row.Scan(
		&sender.ID,
		&sender.Email,
		&sender.Domain,
		&sender.DisplayName,
		&sender.MessageCount,
		&sender.UnsubscribeMethod,
		&sender.UnsubscribeMailto,
		&sender.UnsubscribeURL,
		&sender.JunkScore,
		&sender.Unsubscribed,
		&sender.UnsubscribedAt,
		&sender.FilterID,
		&sender.Processed,
		&sender.FirstSeenAt,
		&sender.LastSeenAt,
		&sender.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &sender, nil
}
