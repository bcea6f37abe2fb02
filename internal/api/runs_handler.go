package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/haris-cl/inbox-nuke/backend/internal/agent"
	"github.com/haris-cl/inbox-nuke/backend/internal/db"
	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RunsHandler exposes the autonomous cleanup runs: start, inspect, and the
// pause/resume/cancel controls.
type RunsHandler struct {
	pool         *pgxpool.Pool
	orchestrator *agent.RunOrchestrator
	reporter     *agent.Reporter
}

// NewRunsHandler creates a new RunsHandler instance.
func NewRunsHandler(pool *pgxpool.Pool, orchestrator *agent.RunOrchestrator) *RunsHandler {
	return &RunsHandler{
		pool:         pool,
		orchestrator: orchestrator,
		reporter:     agent.NewReporter(pool),
	}
}

// Collection handles /api/v1/runs.
func (h *RunsHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listRuns(w, r)
	case http.MethodPost:
		h.startRun(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Item handles /api/v1/runs/{id} and /api/v1/runs/{id}/{action}.
func (h *RunsHandler) Item(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/runs/")
	if path == "" || path == r.URL.Path {
		http.Error(w, "run id is required", http.StatusBadRequest)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	runID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		http.Error(w, "run id must be a number", http.StatusBadRequest)
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.getRun(w, r, runID)
		return
	}

	switch parts[1] {
	case "actions":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.listActions(w, r, runID)
	case "pause", "resume", "cancel":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.control(w, r, runID, parts[1])
	default:
		http.NotFound(w, r)
	}
}

// startRun creates a run and launches it in the background. Refused with 409
// while another run or a review session is active: both modes act on the
// same mailbox.
func (h *RunsHandler) startRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, err := db.GetActiveSession(ctx, h.pool); err == nil {
		http.Error(w, "A review session is active", http.StatusConflict)
		return
	} else if !errors.Is(err, db.ErrSessionNotFound) {
		log.Printf("RunsHandler: Failed to check active session: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	run, err := db.CreateRun(ctx, h.pool)
	if errors.Is(err, db.ErrRunActive) {
		http.Error(w, "A cleanup run is already active", http.StatusConflict)
		return
	}
	if err != nil {
		log.Printf("RunsHandler: Failed to create run: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	go func() {
		if err := h.orchestrator.Execute(context.Background(), run.ID); err != nil {
			log.Printf("RunsHandler: Run %d failed: %v", run.ID, err)
		}
	}()

	writeJSON(w, http.StatusCreated, run)
}

func (h *RunsHandler) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	runs, err := db.ListRuns(r.Context(), h.pool, limit)
	if err != nil {
		log.Printf("RunsHandler: Failed to list runs: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if runs == nil {
		runs = []*models.CleanupRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *RunsHandler) getRun(w http.ResponseWriter, r *http.Request, runID int64) {
	progress, err := h.reporter.RunProgress(r.Context(), runID)
	if errors.Is(err, db.ErrRunNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("RunsHandler: Failed to get run %d: %v", runID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, progress)
}

func (h *RunsHandler) listActions(w http.ResponseWriter, r *http.Request, runID int64) {
	ctx := r.Context()

	if _, err := db.GetRun(ctx, h.pool, runID); errors.Is(err, db.ErrRunNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	} else if err != nil {
		log.Printf("RunsHandler: Failed to get run %d: %v", runID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	actions, err := db.ListActionsForRun(ctx, h.pool, runID)
	if err != nil {
		log.Printf("RunsHandler: Failed to list actions for run %d: %v", runID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if actions == nil {
		actions = []*models.CleanupAction{}
	}
	writeJSON(w, http.StatusOK, actions)
}

// control applies a pause/resume/cancel transition. The orchestrator notices
// pause and cancel at the next sender boundary; resume relaunches execution
// from the persisted cursor.
func (h *RunsHandler) control(w http.ResponseWriter, r *http.Request, runID int64, action string) {
	ctx := r.Context()

	var err error
	switch action {
	case "pause":
		err = db.UpdateRunStatus(ctx, h.pool, runID, models.RunStatusPaused,
			models.RunStatusPending, models.RunStatusRunning)
	case "cancel":
		err = db.UpdateRunStatus(ctx, h.pool, runID, models.RunStatusCancelled,
			models.RunStatusPending, models.RunStatusRunning, models.RunStatusPaused)
	case "resume":
		var run *models.CleanupRun
		run, err = db.GetRun(ctx, h.pool, runID)
		if err == nil {
			if run.Status != models.RunStatusPaused {
				http.Error(w, "Run is not paused", http.StatusConflict)
				return
			}
			go func() {
				if execErr := h.orchestrator.Execute(context.Background(), runID); execErr != nil {
					log.Printf("RunsHandler: Resumed run %d failed: %v", runID, execErr)
				}
			}()
		}
	}

	if errors.Is(err, db.ErrRunNotFound) {
		// Either the run does not exist or it is not in a state the
		// transition allows; the guarded UPDATE cannot tell them apart.
		http.Error(w, "Run not found or not in a valid state", http.StatusConflict)
		return
	}
	if err != nil {
		log.Printf("RunsHandler: Failed to %s run %d: %v", action, runID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	status, err := db.GetRunStatus(ctx, h.pool, runID)
	if err != nil {
		log.Printf("RunsHandler: Failed to read run %d status: %v", runID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		ID     int64            `json:"id"`
		Status models.RunStatus `json:"status"`
	}{ID: runID, Status: status})
}
