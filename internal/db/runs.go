package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRunNotFound is returned when a cleanup run cannot be found.
var ErrRunNotFound = errors.New("cleanup run not found")

// ErrRunActive is returned when starting a run would overlap an active one.
var ErrRunActive = errors.New("a cleanup run is already active")

const runColumns = `
	id,
	status,
	started_at,
	finished_at,
	senders_total,
	senders_processed,
	emails_deleted,
	bytes_freed_estimate,
	progress_cursor,
	sender_order,
	error_message,
	created_at
`

// CreateRun inserts a new pending cleanup run. It fails with ErrRunActive if
// another run is still in a non-terminal state; only one run may act on the
// mailbox at a time.
func CreateRun(ctx context.Context, pool *pgxpool.Pool) (*models.CleanupRun, error) {
	active, err := GetActiveRun(ctx, pool)
	if err != nil && !errors.Is(err, ErrRunNotFound) {
		return nil, err
	}
	if active != nil {
		return nil, ErrRunActive
	}

	row := pool.QueryRow(ctx, `
		INSERT INTO cleanup_runs (status)
		VALUES ('pending')
		RETURNING `+runColumns)

	run, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

// GetRun returns the run with the given id.
func GetRun(ctx context.Context, pool *pgxpool.Pool, id int64) (*models.CleanupRun, error) {
	row := pool.QueryRow(ctx, `
		SELECT `+runColumns+`
		FROM cleanup_runs
		WHERE id = $1
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// GetActiveRun returns the most recent run that is pending, running, or
// paused. Returns ErrRunNotFound if there is none.
func GetActiveRun(ctx context.Context, pool *pgxpool.Pool) (*models.CleanupRun, error) {
	row := pool.QueryRow(ctx, `
		SELECT `+runColumns+`
		FROM cleanup_runs
		WHERE status IN ('pending', 'running', 'paused')
		ORDER BY created_at DESC
		LIMIT 1
	`)

	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active run: %w", err)
	}

	return run, nil
}

// ListRuns returns runs newest first.
func ListRuns(ctx context.Context, pool *pgxpool.Pool, limit int) ([]*models.CleanupRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := pool.Query(ctx, `
		SELECT `+runColumns+`
		FROM cleanup_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.CleanupRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

// GetRunStatus re-reads just the status column. The orchestrator calls this
// at every sender boundary so pause and cancel requests made through the API
// take effect without in-process signalling.
func GetRunStatus(ctx context.Context, pool *pgxpool.Pool, id int64) (models.RunStatus, error) {
	var status models.RunStatus
	err := pool.QueryRow(ctx, `
		SELECT status FROM cleanup_runs WHERE id = $1
	`, id).Scan(&status)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrRunNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get run status: %w", err)
	}

	return status, nil
}

// UpdateRunStatus transitions a run, but only from the expected statuses.
// Returns ErrRunNotFound when the run is missing or not in any of the
// expected states, which makes illegal transitions fail loudly.
func UpdateRunStatus(ctx context.Context, pool *pgxpool.Pool, id int64, to models.RunStatus, from ...models.RunStatus) error {
	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	finished := to.Terminal()

	tag, err := pool.Exec(ctx, `
		UPDATE cleanup_runs
		SET status = $2,
		    finished_at = CASE WHEN $3 THEN NOW() ELSE finished_at END
		WHERE id = $1 AND status = ANY($4)
	`, id, to, finished, fromStrs)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}

	return nil
}

// FailRun marks a run failed and records the error message.
func FailRun(ctx context.Context, pool *pgxpool.Pool, id int64, message string) error {
	_, err := pool.Exec(ctx, `
		UPDATE cleanup_runs
		SET status = 'failed', error_message = $2, finished_at = NOW()
		WHERE id = $1
	`, id, message)
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}

	return nil
}

// SaveRunPlan stores the frozen sender order and total after prioritization.
// The order is computed once per run so pause/resume never reshuffles it.
func SaveRunPlan(ctx context.Context, pool *pgxpool.Pool, id int64, senderOrder []int64) error {
	orderJSON, err := json.Marshal(senderOrder)
	if err != nil {
		return fmt.Errorf("failed to marshal sender order: %w", err)
	}

	tag, err := pool.Exec(ctx, `
		UPDATE cleanup_runs
		SET sender_order = $2, senders_total = $3
		WHERE id = $1
	`, id, orderJSON, len(senderOrder))
	if err != nil {
		return fmt.Errorf("failed to save run plan: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}

	return nil
}

// SaveRunCursor persists the resume point plus the running counters.
func SaveRunCursor(ctx context.Context, pool *pgxpool.Pool, id int64, cursor *models.ProgressCursor, sendersProcessed, emailsDeleted int, bytesFreed int64) error {
	cursorJSON, err := json.Marshal(cursor)
	if err != nil {
		return fmt.Errorf("failed to marshal cursor: %w", err)
	}

	tag, err := pool.Exec(ctx, `
		UPDATE cleanup_runs
		SET progress_cursor = $2,
		    senders_processed = $3,
		    emails_deleted = $4,
		    bytes_freed_estimate = $5
		WHERE id = $1
	`, id, cursorJSON, sendersProcessed, emailsDeleted, bytesFreed)
	if err != nil {
		return fmt.Errorf("failed to save run cursor: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}

	return nil
}

func scanRun(row pgx.Row) (*models.CleanupRun, error) {
	var run models.CleanupRun
	var cursorJSON, orderJSON []byte

	err := row.Scan(
		&run.ID,
		&run.Status,
		&run.StartedAt,
		&run.FinishedAt,
		&run.SendersTotal,
		&run.SendersProcessed,
		&run.EmailsDeleted,
		&run.BytesFreedEstimate,
		&cursorJSON,
		&orderJSON,
		&run.ErrorMessage,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(cursorJSON) > 0 {
		var cursor models.ProgressCursor
		if err := json.Unmarshal(cursorJSON, &cursor); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cursor: %w", err)
		}
		run.Cursor = &cursor
	}

	if len(orderJSON) > 0 {
		if err := json.Unmarshal(orderJSON, &run.SenderOrder); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sender order: %w", err)
		}
	}

	return &run, nil
}
