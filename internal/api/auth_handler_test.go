package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/haris-cl/inbox-nuke/backend/internal/testutil"
)

func TestAuthHandler_StatusWithoutCredentials(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	handler := NewAuthHandler(pool, testutil.GetTestEncryptor(t), nil)

	req := httptest.NewRequest("GET", "/api/v1/auth/status", nil)
	rr := httptest.NewRecorder()
	handler.Status(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var status models.AuthStatusResponse
	if err := json.NewDecoder(rr.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if status.HasCredentials || status.TokenValid {
		t.Errorf("Expected no credentials, got %+v", status)
	}
}

func TestAuthHandler_SaveAndStatus(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	var updated bool
	handler := NewAuthHandler(pool, testutil.GetTestEncryptor(t), func() { updated = true })

	expiry := time.Now().Add(time.Hour).UTC()
	rr := postJSON(t, handler.SaveCredentials, "/api/v1/auth/credentials", map[string]any{
		"access_token":  "ya29.test-access",
		"refresh_token": "1//test-refresh",
		"token_expiry":  expiry,
		"scopes":        []string{"https://www.googleapis.com/auth/gmail.modify"},
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !updated {
		t.Error("Expected the update callback to fire")
	}

	req := httptest.NewRequest("GET", "/api/v1/auth/status", nil)
	statusRR := httptest.NewRecorder()
	handler.Status(statusRR, req)

	var status models.AuthStatusResponse
	if err := json.NewDecoder(statusRR.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if !status.HasCredentials {
		t.Error("Expected has_credentials to be true")
	}
	if !status.TokenValid {
		t.Error("Expected token_valid to be true for a future expiry")
	}
}

func TestAuthHandler_ExpiredTokenReportedInvalid(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	handler := NewAuthHandler(pool, testutil.GetTestEncryptor(t), nil)

	expiry := time.Now().Add(-time.Hour).UTC()
	rr := postJSON(t, handler.SaveCredentials, "/api/v1/auth/credentials", map[string]any{
		"access_token":  "ya29.stale",
		"refresh_token": "1//stale",
		"token_expiry":  expiry,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	req := httptest.NewRequest("GET", "/api/v1/auth/status", nil)
	statusRR := httptest.NewRecorder()
	handler.Status(statusRR, req)

	var status models.AuthStatusResponse
	if err := json.NewDecoder(statusRR.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if !status.HasCredentials {
		t.Error("Expected has_credentials to be true")
	}
	if status.TokenValid {
		t.Error("Expected token_valid to be false for an expired token")
	}
}

func TestAuthHandler_SaveValidation(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	handler := NewAuthHandler(pool, testutil.GetTestEncryptor(t), nil)

	rr := postJSON(t, handler.SaveCredentials, "/api/v1/auth/credentials", map[string]any{
		"access_token": "ya29.lonely",
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}
