package db

import (
	"context"
	"fmt"

	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RecordAction appends one audit-log entry. The table is append-only: rows
// are never updated or deleted, so the log stays a faithful history of what
// the agent did to the mailbox.
func RecordAction(ctx context.Context, pool *pgxpool.Pool, action *models.CleanupAction) (*models.CleanupAction, error) {
	err := pool.QueryRow(ctx, `
		INSERT INTO cleanup_actions (run_id, action_type, sender_email, email_count, bytes_freed, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`,
		action.RunID,
		action.ActionType,
		action.SenderEmail,
		action.EmailCount,
		action.BytesFreed,
		action.Notes,
	).Scan(&action.ID, &action.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record action: %w", err)
	}

	return action, nil
}

// ListActionsForRun returns a run's audit entries oldest first.
func ListActionsForRun(ctx context.Context, pool *pgxpool.Pool, runID int64) ([]*models.CleanupAction, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, run_id, action_type, sender_email, email_count, bytes_freed, notes, created_at
		FROM cleanup_actions
		WHERE run_id = $1
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	defer rows.Close()

	var actions []*models.CleanupAction
	for rows.Next() {
		var action models.CleanupAction
		err := rows.Scan(
			&action.ID,
			&action.RunID,
			&action.ActionType,
			&action.SenderEmail,
			&action.EmailCount,
			&action.BytesFreed,
			&action.Notes,
			&action.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		actions = append(actions, &action)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate actions: %w", err)
	}

	return actions, nil
}
