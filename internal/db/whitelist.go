package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrWhitelistEntryNotFound is returned when a whitelist entry cannot be found.
var ErrWhitelistEntryNotFound = errors.New("whitelist entry not found")

// AddWhitelistEntry adds a protected pattern (full email address or bare
// domain). Patterns are stored lowercase; re-adding an existing pattern just
// refreshes its reason.
func AddWhitelistEntry(ctx context.Context, pool *pgxpool.Pool, pattern string, reason *string) (*models.WhitelistEntry, error) {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return nil, fmt.Errorf("whitelist pattern must not be empty")
	}

	var entry models.WhitelistEntry
	err := pool.QueryRow(ctx, `
		INSERT INTO whitelist_entries (pattern, reason)
		VALUES ($1, $2)
		ON CONFLICT (pattern) DO UPDATE SET reason = EXCLUDED.reason
		RETURNING id, pattern, reason, added_at
	`, pattern, reason).Scan(&entry.ID, &entry.Pattern, &entry.Reason, &entry.AddedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add whitelist entry: %w", err)
	}

	return &entry, nil
}

// ListWhitelistEntries returns all whitelist entries, oldest first.
func ListWhitelistEntries(ctx context.Context, pool *pgxpool.Pool) ([]*models.WhitelistEntry, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, pattern, reason, added_at
		FROM whitelist_entries
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list whitelist entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.WhitelistEntry
	for rows.Next() {
		var entry models.WhitelistEntry
		if err := rows.Scan(&entry.ID, &entry.Pattern, &entry.Reason, &entry.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan whitelist entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate whitelist entries: %w", err)
	}

	return entries, nil
}

// RemoveWhitelistEntry deletes a pattern from the whitelist.
func RemoveWhitelistEntry(ctx context.Context, pool *pgxpool.Pool, pattern string) error {
	pattern = strings.ToLower(strings.TrimSpace(pattern))

	tag, err := pool.Exec(ctx, `
		DELETE FROM whitelist_entries WHERE pattern = $1
	`, pattern)
	if err != nil {
		return fmt.Errorf("failed to remove whitelist entry: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrWhitelistEntryNotFound
	}

	return nil
}
