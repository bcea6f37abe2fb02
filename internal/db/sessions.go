package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSessionNotFound is returned when a review session cannot be found.
var ErrSessionNotFound = errors.New("review session not found")

// ErrSessionActive is returned when starting a session would overlap an
// active one.
var ErrSessionActive = errors.New("a review session is already active")

// ErrReviewItemNotFound is returned when a review item cannot be found.
var ErrReviewItemNotFound = errors.New("review item not found")

const sessionColumns = `
	id,
	session_id,
	status,
	mode,
	total_emails,
	scanned_emails,
	discoveries,
	confirmation,
	emails_deleted,
	space_freed,
	senders_unsubscribed,
	filters_created,
	error_message,
	created_at,
	started_at,
	completed_at
`

// CreateSession inserts a new scanning session with the given uuid. Fails
// with ErrSessionActive if a non-terminal session already exists.
func CreateSession(ctx context.Context, pool *pgxpool.Pool, sessionID string) (*models.ReviewSession, error) {
	active, err := GetActiveSession(ctx, pool)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}
	if active != nil {
		return nil, ErrSessionActive
	}

	row := pool.QueryRow(ctx, `
		INSERT INTO review_sessions (session_id, status, started_at)
		VALUES ($1, 'scanning', NOW())
		RETURNING `+sessionColumns, sessionID)

	session, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// GetSession returns the session with the given uuid.
func GetSession(ctx context.Context, pool *pgxpool.Pool, sessionID string) (*models.ReviewSession, error) {
	row := pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM review_sessions
		WHERE session_id = $1
	`, sessionID)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// GetActiveSession returns the most recent non-terminal session, or
// ErrSessionNotFound.
func GetActiveSession(ctx context.Context, pool *pgxpool.Pool) (*models.ReviewSession, error) {
	row := pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM review_sessions
		WHERE status NOT IN ('completed', 'failed')
		ORDER BY created_at DESC
		LIMIT 1
	`)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}

	return session, nil
}

// ListSessions returns sessions newest first.
func ListSessions(ctx context.Context, pool *pgxpool.Pool, limit int) ([]*models.ReviewSession, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM review_sessions
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.ReviewSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, nil
}

// UpdateSessionStatus transitions a session, optionally restricted to a set
// of expected current statuses.
func UpdateSessionStatus(ctx context.Context, pool *pgxpool.Pool, sessionID string, to models.SessionStatus, from ...models.SessionStatus) error {
	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	completed := to.Terminal()

	var tag pgconn.CommandTag
	var err error
	if len(from) == 0 {
		tag, err = pool.Exec(ctx, `
			UPDATE review_sessions
			SET status = $2,
			    completed_at = CASE WHEN $3 THEN NOW() ELSE completed_at END
			WHERE session_id = $1
		`, sessionID, to, completed)
	} else {
		tag, err = pool.Exec(ctx, `
			UPDATE review_sessions
			SET status = $2,
			    completed_at = CASE WHEN $3 THEN NOW() ELSE completed_at END
			WHERE session_id = $1 AND status = ANY($4)
		`, sessionID, to, completed, fromStrs)
	}
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// FailSession marks a session failed with the given message.
func FailSession(ctx context.Context, pool *pgxpool.Pool, sessionID, message string) error {
	tag, err := pool.Exec(ctx, `
		UPDATE review_sessions
		SET status = 'failed', error_message = $2, completed_at = NOW()
		WHERE session_id = $1
	`, sessionID, message)
	if err != nil {
		return fmt.Errorf("failed to mark session failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// SetSessionMode records the user's chosen review mode.
func SetSessionMode(ctx context.Context, pool *pgxpool.Pool, sessionID string, mode models.ReviewMode) error {
	tag, err := pool.Exec(ctx, `
		UPDATE review_sessions
		SET mode = $2
		WHERE session_id = $1
	`, sessionID, mode)
	if err != nil {
		return fmt.Errorf("failed to set session mode: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// SaveSessionScanProgress updates scan counters and category discoveries.
func SaveSessionScanProgress(ctx context.Context, pool *pgxpool.Pool, sessionID string, total, scanned int, discoveries map[string]int) error {
	discoveriesJSON, err := json.Marshal(discoveries)
	if err != nil {
		return fmt.Errorf("failed to marshal discoveries: %w", err)
	}

	tag, err := pool.Exec(ctx, `
		UPDATE review_sessions
		SET total_emails = $2, scanned_emails = $3, discoveries = $4
		WHERE session_id = $1
	`, sessionID, total, scanned, discoveriesJSON)
	if err != nil {
		return fmt.Errorf("failed to save scan progress: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// SaveSessionConfirmation freezes the confirmation snapshot on the session.
func SaveSessionConfirmation(ctx context.Context, pool *pgxpool.Pool, sessionID string, confirmation *models.ConfirmationSummary) error {
	confirmationJSON, err := json.Marshal(confirmation)
	if err != nil {
		return fmt.Errorf("failed to marshal confirmation: %w", err)
	}

	tag, err := pool.Exec(ctx, `
		UPDATE review_sessions
		SET confirmation = $2
		WHERE session_id = $1
	`, sessionID, confirmationJSON)
	if err != nil {
		return fmt.Errorf("failed to save confirmation: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// SaveSessionResults records the execution outcome counters.
func SaveSessionResults(ctx context.Context, pool *pgxpool.Pool, sessionID string, emailsDeleted int, spaceFreed int64, sendersUnsubscribed, filtersCreated int) error {
	tag, err := pool.Exec(ctx, `
		UPDATE review_sessions
		SET emails_deleted = $2,
		    space_freed = $3,
		    senders_unsubscribed = $4,
		    filters_created = $5
		WHERE session_id = $1
	`, sessionID, emailsDeleted, spaceFreed, sendersUnsubscribed, filtersCreated)
	if err != nil {
		return fmt.Errorf("failed to save session results: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}

func scanSession(row pgx.Row) (*models.ReviewSession, error) {
	var session models.ReviewSession
	var discoveriesJSON, confirmationJSON []byte

	err := row.Scan(
		&session.ID,
		&session.SessionID,
		&session.Status,
		&session.Mode,
		&session.TotalEmails,
		&session.ScannedEmails,
		&discoveriesJSON,
		&confirmationJSON,
		&session.EmailsDeleted,
		&session.SpaceFreed,
		&session.SendersUnsubscribed,
		&session.FiltersCreated,
		&session.ErrorMessage,
		&session.CreatedAt,
		&session.StartedAt,
		&session.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	session.Discoveries = make(map[string]int)
	if len(discoveriesJSON) > 0 {
		if err := json.Unmarshal(discoveriesJSON, &session.Discoveries); err != nil {
			return nil, fmt.Errorf("failed to unmarshal discoveries: %w", err)
		}
	}

	if len(confirmationJSON) > 0 {
		var confirmation models.ConfirmationSummary
		if err := json.Unmarshal(confirmationJSON, &confirmation); err != nil {
			return nil, fmt.Errorf("failed to unmarshal confirmation: %w", err)
		}
		session.Confirmation = &confirmation
	}

	return &session, nil
}
