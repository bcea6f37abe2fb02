package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/haris-cl/inbox-nuke/backend/internal/testutil"
)

func TestWhitelistHandler_CRUD(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	handler := NewWhitelistHandler(pool)

	t.Run("empty list returns an array", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/whitelist", nil)
		rr := httptest.NewRecorder()
		handler.Collection(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}
		if body := rr.Body.String(); body == "null\n" {
			t.Error("Expected an empty array, got null")
		}
	})

	t.Run("add entry", func(t *testing.T) {
		rr := postJSON(t, handler.Collection, "/api/v1/whitelist", map[string]string{
			"pattern": "boss@work.example",
			"reason":  "my manager",
		})

		if rr.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}

		var entry models.WhitelistEntry
		if err := json.NewDecoder(rr.Body).Decode(&entry); err != nil {
			t.Fatalf("Failed to decode entry: %v", err)
		}
		if entry.Pattern != "boss@work.example" {
			t.Errorf("Expected pattern boss@work.example, got %s", entry.Pattern)
		}
	})

	t.Run("list includes the entry", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/whitelist", nil)
		rr := httptest.NewRecorder()
		handler.Collection(rr, req)

		var entries []*models.WhitelistEntry
		if err := json.NewDecoder(rr.Body).Decode(&entries); err != nil {
			t.Fatalf("Failed to decode entries: %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("Expected 1 entry, got %d", len(entries))
		}
	})

	t.Run("blank pattern rejected", func(t *testing.T) {
		rr := postJSON(t, handler.Collection, "/api/v1/whitelist", map[string]string{
			"pattern": "   ",
		})

		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", rr.Code)
		}
	})

	t.Run("delete entry", func(t *testing.T) {
		req := httptest.NewRequest("DELETE", "/api/v1/whitelist/boss@work.example", nil)
		rr := httptest.NewRecorder()
		handler.Item(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("delete missing entry", func(t *testing.T) {
		req := httptest.NewRequest("DELETE", "/api/v1/whitelist/boss@work.example", nil)
		rr := httptest.NewRecorder()
		handler.Item(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", rr.Code)
		}
	})

	t.Run("delete requires DELETE method", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/whitelist/boss@work.example", nil)
		rr := httptest.NewRecorder()
		handler.Item(rr, req)

		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected status 405, got %d", rr.Code)
		}
	})
}
