package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/haris-cl/inbox-nuke/backend/internal/crypto"
	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCredentialsNotFound is returned when no Gmail credentials are stored.
var ErrCredentialsNotFound = errors.New("gmail credentials not found")

// SaveGmailCredentials stores the OAuth tokens, encrypted at rest. The table
// holds a single row; saving replaces whatever was there.
func SaveGmailCredentials(ctx context.Context, pool *pgxpool.Pool, encryptor *crypto.Encryptor, creds *models.GmailCredentials) error {
	accessEncrypted, err := encryptor.Encrypt(creds.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	refreshEncrypted, err := encryptor.Encrypt(creds.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO gmail_credentials (id, access_token_encrypted, refresh_token_encrypted, token_expiry, scopes)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			access_token_encrypted = EXCLUDED.access_token_encrypted,
			refresh_token_encrypted = EXCLUDED.refresh_token_encrypted,
			token_expiry = EXCLUDED.token_expiry,
			scopes = EXCLUDED.scopes,
			updated_at = NOW()
	`, accessEncrypted, refreshEncrypted, creds.TokenExpiry, creds.Scopes)
	if err != nil {
		return fmt.Errorf("failed to save gmail credentials: %w", err)
	}

	return nil
}

// GetGmailCredentials loads and decrypts the stored OAuth tokens.
func GetGmailCredentials(ctx context.Context, pool *pgxpool.Pool, encryptor *crypto.Encryptor) (*models.GmailCredentials, error) {
	var creds models.GmailCredentials
	var accessEncrypted, refreshEncrypted []byte

	err := pool.QueryRow(ctx, `
		SELECT access_token_encrypted, refresh_token_encrypted, token_expiry, scopes, updated_at
		FROM gmail_credentials
		WHERE id = 1
	`).Scan(&accessEncrypted, &refreshEncrypted, &creds.TokenExpiry, &creds.Scopes, &creds.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCredentialsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gmail credentials: %w", err)
	}

	creds.AccessToken, err = encryptor.Decrypt(accessEncrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}

	creds.RefreshToken, err = encryptor.Decrypt(refreshEncrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
	}

	return &creds, nil
}
