package db_test

import (
	"context"
	"errors"
	"github.com/haris-cl/inbox-nuke/backend/internal/db"
	"testing"

	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/haris-cl/inbox-nuke/backend/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

func seedReviewSession(t *testing.T, pool *pgxpool.Pool, sessionID string) {
	t.Helper()

	if _, err := db.CreateSession(context.Background(), pool, sessionID); err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	items := []*models.ReviewItem{
		{
			SessionID: sessionID, MessageID: "m1", SenderEmail: "promo@shop.example",
			Subject: "Mega sale", Snippet: "50% off", SizeBytes: 1000,
			AISuggestion: models.SuggestDelete, Reasoning: "Promotional email", Confidence: 0.9,
			Category: "promotions", HasUnsubscribe: true,
		},
		{
			SessionID: sessionID, MessageID: "m2", SenderEmail: "social@network.example",
			Subject: "You have notifications", Snippet: "3 new", SizeBytes: 500,
			AISuggestion: models.SuggestDelete, Reasoning: "Social notification", Confidence: 0.4,
			Category: "social", HasUnsubscribe: true,
		},
		{
			SessionID: sessionID, MessageID: "m3", SenderEmail: "friend@gmail.example",
			Subject: "Lunch tomorrow?", Snippet: "Are you free", SizeBytes: 200,
			AISuggestion: models.SuggestKeep, Reasoning: "Personal email", Confidence: 0.8,
			Category: "other",
		},
	}
	if err := db.InsertReviewItems(context.Background(), pool, items); err != nil {
		t.Fatalf("Failed to insert items: %v", err)
	}
}

func TestReviewItems(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	seedReviewSession(t, pool, "sess-items")

	t.Run("re-insert is idempotent", func(t *testing.T) {
		dupe := []*models.ReviewItem{{
			SessionID: "sess-items", MessageID: "m1", SenderEmail: "promo@shop.example",
			Subject: "Mega sale", AISuggestion: models.SuggestDelete, Reasoning: "dupe", Confidence: 0.9,
			Category: "promotions",
		}}
		if err := db.InsertReviewItems(ctx, pool, dupe); err != nil {
			t.Fatalf("Failed to re-insert: %v", err)
		}

		items, err := db.ListReviewItems(ctx, pool, "sess-items")
		if err != nil {
			t.Fatalf("Failed to list items: %v", err)
		}
		if len(items) != 3 {
			t.Errorf("Expected 3 items, got %d", len(items))
		}
	})

	t.Run("pending deletes respect the confidence ceiling", func(t *testing.T) {
		pending, err := db.ListPendingDeleteItems(ctx, pool, "sess-items", 0.7)
		if err != nil {
			t.Fatalf("Failed to list pending: %v", err)
		}
		if len(pending) != 1 || pending[0].MessageID != "m2" {
			t.Fatalf("Expected only the low-confidence item, got %d items", len(pending))
		}
	})

	t.Run("pending deletes order least confident first", func(t *testing.T) {
		pending, err := db.ListPendingDeleteItems(ctx, pool, "sess-items", 2)
		if err != nil {
			t.Fatalf("Failed to list pending: %v", err)
		}
		if len(pending) != 2 {
			t.Fatalf("Expected 2 pending items, got %d", len(pending))
		}
		if pending[0].MessageID != "m2" || pending[1].MessageID != "m1" {
			t.Errorf("Expected m2 before m1, got %s, %s", pending[0].MessageID, pending[1].MessageID)
		}
	})

	t.Run("decisions and preferences", func(t *testing.T) {
		if err := db.SetReviewDecision(ctx, pool, "sess-items", "m2", models.SuggestKeep); err != nil {
			t.Fatalf("Failed to set decision: %v", err)
		}
		if err := db.SetUnsubscribePreference(ctx, pool, "sess-items", "m2", true); err != nil {
			t.Fatalf("Failed to set preference: %v", err)
		}

		item, err := db.GetReviewItem(ctx, pool, "sess-items", "m2")
		if err != nil {
			t.Fatalf("Failed to get item: %v", err)
		}
		if item.UserDecision == nil || *item.UserDecision != models.SuggestKeep {
			t.Errorf("Expected keep decision, got %v", item.UserDecision)
		}
		if !item.WantsUnsubscribe {
			t.Error("Expected wants_unsubscribe to be set")
		}
		if item.EffectiveDecision() != models.SuggestKeep {
			t.Errorf("Expected effective decision keep, got %s", item.EffectiveDecision())
		}
	})

	t.Run("skip-all defaults the undecided", func(t *testing.T) {
		defaulted, err := db.DefaultUndecidedToSuggestion(ctx, pool, "sess-items")
		if err != nil {
			t.Fatalf("Failed to default items: %v", err)
		}
		// m2 already has a decision; m1 and m3 get their suggestions.
		if defaulted != 2 {
			t.Errorf("Expected 2 defaulted items, got %d", defaulted)
		}

		item, err := db.GetReviewItem(ctx, pool, "sess-items", "m1")
		if err != nil {
			t.Fatalf("Failed to get item: %v", err)
		}
		if item.UserDecision == nil || *item.UserDecision != models.SuggestDelete {
			t.Errorf("Expected defaulted delete, got %v", item.UserDecision)
		}
	})

	t.Run("decision on missing item", func(t *testing.T) {
		err := db.SetReviewDecision(ctx, pool, "sess-items", "nope", models.SuggestKeep)
		if !errors.Is(err, db.ErrReviewItemNotFound) {
			t.Errorf("Expected ErrReviewItemNotFound, got %v", err)
		}
	})
}
