package db_test

import (
	"context"
	"errors"
	"github.com/haris-cl/inbox-nuke/backend/internal/db"
	"testing"
	"time"

	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/haris-cl/inbox-nuke/backend/internal/testutil"
)

func TestGmailCredentials(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	encryptor := testutil.GetTestEncryptor(t)

	t.Run("missing credentials", func(t *testing.T) {
		_, err := db.GetGmailCredentials(ctx, pool, encryptor)
		if !errors.Is(err, db.ErrCredentialsNotFound) {
			t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
		}
	})

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	creds := &models.GmailCredentials{
		AccessToken:  "ya29.access-token",
		RefreshToken: "1//refresh-token",
		TokenExpiry:  &expiry,
		Scopes:       []string{"https://www.googleapis.com/auth/gmail.modify"},
	}
	if err := db.SaveGmailCredentials(ctx, pool, encryptor, creds); err != nil {
		t.Fatalf("Failed to save credentials: %v", err)
	}

	t.Run("round trip decrypts the tokens", func(t *testing.T) {
		loaded, err := db.GetGmailCredentials(ctx, pool, encryptor)
		if err != nil {
			t.Fatalf("Failed to get credentials: %v", err)
		}
		if loaded.AccessToken != "ya29.access-token" {
			t.Errorf("Access token did not survive the round trip")
		}
		if loaded.RefreshToken != "1//refresh-token" {
			t.Errorf("Refresh token did not survive the round trip")
		}
		if loaded.TokenExpiry == nil || !loaded.TokenExpiry.Equal(expiry) {
			t.Errorf("Expected expiry %v, got %v", expiry, loaded.TokenExpiry)
		}
		if len(loaded.Scopes) != 1 {
			t.Errorf("Expected 1 scope, got %v", loaded.Scopes)
		}
	})

	t.Run("tokens are not stored in plaintext", func(t *testing.T) {
		var stored []byte
		err := pool.QueryRow(ctx, `
			SELECT access_token_encrypted FROM gmail_credentials WHERE id = 1
		`).Scan(&stored)
		if err != nil {
			t.Fatalf("Failed to read raw column: %v", err)
		}
		if string(stored) == "ya29.access-token" {
			t.Error("Access token stored in plaintext")
		}
	})

	t.Run("saving again replaces the row", func(t *testing.T) {
		replacement := &models.GmailCredentials{
			AccessToken:  "ya29.new-access",
			RefreshToken: "1//new-refresh",
		}
		if err := db.SaveGmailCredentials(ctx, pool, encryptor, replacement); err != nil {
			t.Fatalf("Failed to replace credentials: %v", err)
		}

		loaded, err := db.GetGmailCredentials(ctx, pool, encryptor)
		if err != nil {
			t.Fatalf("Failed to get credentials: %v", err)
		}
		if loaded.AccessToken != "ya29.new-access" {
			t.Errorf("Expected replaced access token, got %s", loaded.AccessToken)
		}
		if loaded.TokenExpiry != nil {
			t.Errorf("Expected expiry to be cleared, got %v", loaded.TokenExpiry)
		}
	})
}
