package db_test

import (
	"context"
	"github.com/haris-cl/inbox-nuke/backend/internal/db"
	"testing"

	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/haris-cl/inbox-nuke/backend/internal/testutil"
)

func TestRecordAndListActions(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	run, err := db.CreateRun(ctx, pool)
	if err != nil {
		t.Fatalf("Failed to create run: %v", err)
	}

	actions := []*models.CleanupAction{
		{RunID: run.ID, ActionType: models.ActionUnsubscribe, SenderEmail: "promo@shop.example", Notes: "unsubscribed via one_click"},
		{RunID: run.ID, ActionType: models.ActionFilter, SenderEmail: "promo@shop.example", Notes: "created mute filter"},
		{RunID: run.ID, ActionType: models.ActionDelete, SenderEmail: "promo@shop.example", EmailCount: 17, BytesFreed: 65536, Notes: "deleted messages older than 7 days"},
	}
	for _, a := range actions {
		saved, err := db.RecordAction(ctx, pool, a)
		if err != nil {
			t.Fatalf("Failed to record action: %v", err)
		}
		if saved.ID == 0 {
			t.Error("Expected the saved action to have an id")
		}
	}

	listed, err := db.ListActionsForRun(ctx, pool, run.ID)
	if err != nil {
		t.Fatalf("Failed to list actions: %v", err)
	}

	if len(listed) != 3 {
		t.Fatalf("Expected 3 actions, got %d", len(listed))
	}
	if listed[0].ActionType != models.ActionUnsubscribe || listed[2].ActionType != models.ActionDelete {
		t.Errorf("Expected insertion order, got %s, %s, %s",
			listed[0].ActionType, listed[1].ActionType, listed[2].ActionType)
	}
	if listed[2].EmailCount != 17 || listed[2].BytesFreed != 65536 {
		t.Errorf("Unexpected delete action counters: %+v", listed[2])
	}

	t.Run("actions are scoped to their run", func(t *testing.T) {
		other, err := db.ListActionsForRun(ctx, pool, run.ID+1)
		if err != nil {
			t.Fatalf("Failed to list actions: %v", err)
		}
		if len(other) != 0 {
			t.Errorf("Expected no actions for another run, got %d", len(other))
		}
	})
}
