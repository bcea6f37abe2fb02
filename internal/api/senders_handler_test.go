package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/haris-cl/inbox-nuke/backend/internal/agent"
	"github.com/haris-cl/inbox-nuke/backend/internal/db"
	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/haris-cl/inbox-nuke/backend/internal/testutil"
)

func TestSendersHandler_GetSenders(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	handler := NewSendersHandler(pool)

	t.Run("empty inventory returns an array", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/senders", nil)
		rr := httptest.NewRecorder()
		handler.GetSenders(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}
		if body := rr.Body.String(); body == "null\n" {
			t.Error("Expected an empty array, got null")
		}
	})

	t.Run("lists discovered senders", func(t *testing.T) {
		_, err := db.UpsertSender(context.Background(), pool, &models.Sender{
			Email:             "promo@shop.example",
			Domain:            "shop.example",
			MessageCount:      42,
			UnsubscribeMethod: models.UnsubscribeOneClick,
			JunkScore:         70,
		})
		if err != nil {
			t.Fatalf("Failed to upsert sender: %v", err)
		}

		req := httptest.NewRequest("GET", "/api/v1/senders", nil)
		rr := httptest.NewRecorder()
		handler.GetSenders(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}

		var senders []*models.Sender
		if err := json.NewDecoder(rr.Body).Decode(&senders); err != nil {
			t.Fatalf("Failed to decode senders: %v", err)
		}
		if len(senders) != 1 {
			t.Fatalf("Expected 1 sender, got %d", len(senders))
		}
		if senders[0].Email != "promo@shop.example" {
			t.Errorf("Expected promo@shop.example, got %s", senders[0].Email)
		}
	})
}

func TestSendersHandler_GetStats(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	handler := NewSendersHandler(pool)

	_, err := db.UpsertSender(context.Background(), pool, &models.Sender{
		Email:             "deals@store.example",
		Domain:            "store.example",
		MessageCount:      10,
		UnsubscribeMethod: models.UnsubscribeMailto,
		JunkScore:         80,
	})
	if err != nil {
		t.Fatalf("Failed to upsert sender: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/v1/senders/stats", nil)
	rr := httptest.NewRecorder()
	handler.GetStats(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var summary agent.MailboxSummary
	if err := json.NewDecoder(rr.Body).Decode(&summary); err != nil {
		t.Fatalf("Failed to decode summary: %v", err)
	}
	if summary.Senders == nil {
		t.Fatal("Expected sender stats")
	}
	if summary.Senders.TotalSenders != 1 {
		t.Errorf("Expected 1 sender, got %d", summary.Senders.TotalSenders)
	}
	if summary.Senders.JunkSenders != 1 {
		t.Errorf("Expected 1 junk sender, got %d", summary.Senders.JunkSenders)
	}
	if summary.ActiveRun != nil {
		t.Errorf("Expected no active run, got %+v", summary.ActiveRun)
	}
}
