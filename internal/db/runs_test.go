package db_test

import (
	"context"
	"errors"
	"github.com/haris-cl/inbox-nuke/backend/internal/db"
	"testing"

	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/haris-cl/inbox-nuke/backend/internal/testutil"
)

func TestRunLifecycle(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	run, err := db.CreateRun(ctx, pool)
	if err != nil {
		t.Fatalf("Failed to create run: %v", err)
	}
	if run.Status != models.RunStatusPending {
		t.Errorf("Expected status pending, got %s", run.Status)
	}

	t.Run("only one active run", func(t *testing.T) {
		_, err := db.CreateRun(ctx, pool)
		if !errors.Is(err, db.ErrRunActive) {
			t.Errorf("Expected ErrRunActive, got %v", err)
		}
	})

	t.Run("active run lookup", func(t *testing.T) {
		active, err := db.GetActiveRun(ctx, pool)
		if err != nil {
			t.Fatalf("Failed to get active run: %v", err)
		}
		if active.ID != run.ID {
			t.Errorf("Expected run %d, got %d", run.ID, active.ID)
		}
	})

	t.Run("guarded transition succeeds from expected state", func(t *testing.T) {
		err := db.UpdateRunStatus(ctx, pool, run.ID, models.RunStatusRunning, models.RunStatusPending)
		if err != nil {
			t.Fatalf("Failed to transition to running: %v", err)
		}

		status, err := db.GetRunStatus(ctx, pool, run.ID)
		if err != nil {
			t.Fatalf("Failed to read status: %v", err)
		}
		if status != models.RunStatusRunning {
			t.Errorf("Expected running, got %s", status)
		}
	})

	t.Run("guarded transition fails from wrong state", func(t *testing.T) {
		err := db.UpdateRunStatus(ctx, pool, run.ID, models.RunStatusRunning, models.RunStatusPending)
		if !errors.Is(err, db.ErrRunNotFound) {
			t.Errorf("Expected ErrRunNotFound for illegal transition, got %v", err)
		}
	})

	t.Run("terminal transition sets finished_at", func(t *testing.T) {
		err := db.UpdateRunStatus(ctx, pool, run.ID, models.RunStatusCompleted, models.RunStatusRunning)
		if err != nil {
			t.Fatalf("Failed to complete run: %v", err)
		}

		finished, err := db.GetRun(ctx, pool, run.ID)
		if err != nil {
			t.Fatalf("Failed to get run: %v", err)
		}
		if finished.FinishedAt == nil {
			t.Error("Expected finished_at to be set")
		}
	})

	t.Run("a new run can start after the first finishes", func(t *testing.T) {
		next, err := db.CreateRun(ctx, pool)
		if err != nil {
			t.Fatalf("Failed to create second run: %v", err)
		}
		if next.ID == run.ID {
			t.Error("Expected a new run id")
		}
	})
}

func TestRunPlanAndCursor(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	run, err := db.CreateRun(ctx, pool)
	if err != nil {
		t.Fatalf("Failed to create run: %v", err)
	}

	order := []int64{5, 3, 9}
	if err := db.SaveRunPlan(ctx, pool, run.ID, order); err != nil {
		t.Fatalf("Failed to save plan: %v", err)
	}

	cursor := &models.ProgressCursor{SenderIndex: 1, Step: models.StepFilter}
	if err := db.SaveRunCursor(ctx, pool, run.ID, cursor, 1, 42, 4096); err != nil {
		t.Fatalf("Failed to save cursor: %v", err)
	}

	loaded, err := db.GetRun(ctx, pool, run.ID)
	if err != nil {
		t.Fatalf("Failed to reload run: %v", err)
	}

	if loaded.SendersTotal != 3 {
		t.Errorf("Expected senders_total 3, got %d", loaded.SendersTotal)
	}
	if len(loaded.SenderOrder) != 3 || loaded.SenderOrder[0] != 5 || loaded.SenderOrder[2] != 9 {
		t.Errorf("Sender order did not survive the round trip: %v", loaded.SenderOrder)
	}
	if loaded.Cursor == nil {
		t.Fatal("Expected cursor to be set")
	}
	if loaded.Cursor.SenderIndex != 1 || loaded.Cursor.Step != models.StepFilter {
		t.Errorf("Unexpected cursor: %+v", loaded.Cursor)
	}
	if loaded.SendersProcessed != 1 || loaded.EmailsDeleted != 42 || loaded.BytesFreedEstimate != 4096 {
		t.Errorf("Counters did not survive: %+v", loaded)
	}
}

func TestFailRun(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	run, err := db.CreateRun(ctx, pool)
	if err != nil {
		t.Fatalf("Failed to create run: %v", err)
	}

	if err := db.FailRun(ctx, pool, run.ID, "gmail authentication failed"); err != nil {
		t.Fatalf("Failed to fail run: %v", err)
	}

	failed, err := db.GetRun(ctx, pool, run.ID)
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if failed.Status != models.RunStatusFailed {
		t.Errorf("Expected status failed, got %s", failed.Status)
	}
	if failed.ErrorMessage == nil || *failed.ErrorMessage != "gmail authentication failed" {
		t.Errorf("Expected error message to be recorded, got %v", failed.ErrorMessage)
	}
}

func TestGetRunNotFound(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	_, err := db.GetRun(context.Background(), pool, 404)
	if !errors.Is(err, db.ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}
