package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/haris-cl/inbox-nuke/backend/internal/agent"
	"github.com/haris-cl/inbox-nuke/backend/internal/db"
	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionsHandler exposes the interactive cleanup wizard: scan the mailbox,
// review recommendations, confirm, execute.
type SessionsHandler struct {
	pool         *pgxpool.Pool
	orchestrator *agent.SessionOrchestrator
}

// NewSessionsHandler creates a new SessionsHandler instance.
func NewSessionsHandler(pool *pgxpool.Pool, orchestrator *agent.SessionOrchestrator) *SessionsHandler {
	return &SessionsHandler{pool: pool, orchestrator: orchestrator}
}

// Start handles POST /api/v1/cleanup/start. Refused with 409 while an
// autonomous run or another session is active: both modes act on the same
// mailbox.
func (h *SessionsHandler) Start(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()

	if _, err := db.GetActiveRun(ctx, h.pool); err == nil {
		http.Error(w, "A cleanup run is active", http.StatusConflict)
		return
	} else if !errors.Is(err, db.ErrRunNotFound) {
		log.Printf("SessionsHandler: Failed to check active run: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	session, err := h.orchestrator.Start(ctx)
	if errors.Is(err, db.ErrSessionActive) {
		http.Error(w, "A review session is already active", http.StatusConflict)
		return
	}
	if err != nil {
		log.Printf("SessionsHandler: Failed to start session: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	go func() {
		if scanErr := h.orchestrator.Scan(context.Background(), session.SessionID); scanErr != nil {
			log.Printf("SessionsHandler: Scan for session %s failed: %v", session.SessionID, scanErr)
		}
	}()

	writeJSON(w, http.StatusCreated, session)
}

// Active handles GET /api/v1/cleanup/active.
func (h *SessionsHandler) Active(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := db.GetActiveSession(r.Context(), h.pool)
	if errors.Is(err, db.ErrSessionNotFound) {
		http.Error(w, "No active session", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("SessionsHandler: Failed to get active session: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// List handles GET /api/v1/cleanup/sessions.
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	sessions, err := db.ListSessions(r.Context(), h.pool, limit)
	if err != nil {
		log.Printf("SessionsHandler: Failed to list sessions: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if sessions == nil {
		sessions = []*models.ReviewSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// Progress handles GET /api/v1/cleanup/progress/{sid}. Scan progress lives on
// the session row, so this is just a session read.
func (h *SessionsHandler) Progress(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, http.MethodGet, "/api/v1/cleanup/progress/")
	if !ok {
		return
	}
	h.getSession(w, r, sessionID)
}

// Recommendations handles GET /api/v1/cleanup/recommendations/{sid}: every
// scanned item with its suggestion, regardless of mode.
func (h *SessionsHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, http.MethodGet, "/api/v1/cleanup/recommendations/")
	if !ok {
		return
	}
	ctx := r.Context()

	if !h.requireSession(w, ctx, sessionID) {
		return
	}

	items, err := db.ListReviewItems(ctx, h.pool, sessionID)
	if err != nil {
		log.Printf("SessionsHandler: Failed to list items for session %s: %v", sessionID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if items == nil {
		items = []*models.ReviewItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// SetMode handles POST /api/v1/cleanup/mode/{sid}.
func (h *SessionsHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, http.MethodPost, "/api/v1/cleanup/mode/")
	if !ok {
		return
	}

	var req struct {
		Mode models.ReviewMode `json:"mode"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.orchestrator.SetMode(r.Context(), sessionID, req.Mode); err != nil {
		if errors.Is(err, db.ErrSessionNotFound) {
			http.Error(w, "Session not found or not ready for review", http.StatusConflict)
			return
		}
		log.Printf("SessionsHandler: Failed to set mode for session %s: %v", sessionID, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.getSession(w, r, sessionID)
}

// ReviewQueue handles GET /api/v1/cleanup/review-queue/{sid}: the delete
// suggestions the chosen mode wants the user to look at, least confident
// first.
func (h *SessionsHandler) ReviewQueue(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, http.MethodGet, "/api/v1/cleanup/review-queue/")
	if !ok {
		return
	}

	items, err := h.orchestrator.ReviewQueue(r.Context(), sessionID)
	if errors.Is(err, db.ErrSessionNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("SessionsHandler: Failed to build review queue for session %s: %v", sessionID, err)
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	if items == nil {
		items = []*models.ReviewItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// RecordDecision handles POST /api/v1/cleanup/review-decision/{sid}.
func (h *SessionsHandler) RecordDecision(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, http.MethodPost, "/api/v1/cleanup/review-decision/")
	if !ok {
		return
	}

	var req struct {
		MessageID        string            `json:"message_id"`
		Decision         models.Suggestion `json:"decision"`
		WantsUnsubscribe *bool             `json:"wants_unsubscribe,omitempty"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MessageID == "" {
		http.Error(w, "message_id is required", http.StatusBadRequest)
		return
	}

	err := h.orchestrator.RecordDecision(r.Context(), sessionID, req.MessageID, req.Decision, req.WantsUnsubscribe)
	if errors.Is(err, db.ErrReviewItemNotFound) {
		http.Error(w, "Review item not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("SessionsHandler: Failed to record decision for session %s: %v", sessionID, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
	}{Success: true})
}

// SkipAll handles POST /api/v1/cleanup/skip-all/{sid}: every undecided item
// takes its AI suggestion as the decision.
func (h *SessionsHandler) SkipAll(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, http.MethodPost, "/api/v1/cleanup/skip-all/")
	if !ok {
		return
	}

	if !h.requireSession(w, r.Context(), sessionID) {
		return
	}

	defaulted, err := h.orchestrator.SkipAll(r.Context(), sessionID)
	if err != nil {
		log.Printf("SessionsHandler: Failed to skip remaining items for session %s: %v", sessionID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Defaulted int `json:"defaulted"`
	}{Defaulted: defaulted})
}

// Confirmation handles GET /api/v1/cleanup/confirmation/{sid}. Generating the
// summary freezes the plan and moves the session to confirming.
func (h *SessionsHandler) Confirmation(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, http.MethodGet, "/api/v1/cleanup/confirmation/")
	if !ok {
		return
	}

	summary, err := h.orchestrator.Confirm(r.Context(), sessionID)
	if errors.Is(err, db.ErrSessionNotFound) {
		http.Error(w, "Session not found or not reviewable", http.StatusConflict)
		return
	}
	if err != nil {
		log.Printf("SessionsHandler: Failed to build confirmation for session %s: %v", sessionID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// Execute handles POST /api/v1/cleanup/execute/{sid}: launches the confirmed
// plan in the background and responds immediately.
func (h *SessionsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, http.MethodPost, "/api/v1/cleanup/execute/")
	if !ok {
		return
	}

	if !h.requireSession(w, r.Context(), sessionID) {
		return
	}

	go func() {
		if err := h.orchestrator.Execute(context.Background(), sessionID); err != nil {
			log.Printf("SessionsHandler: Execution for session %s failed: %v", sessionID, err)
		}
	}()

	writeJSON(w, http.StatusAccepted, struct {
		SessionID string               `json:"session_id"`
		Status    models.SessionStatus `json:"status"`
	}{SessionID: sessionID, Status: models.SessionExecuting})
}

// Results handles GET /api/v1/cleanup/results/{sid}.
func (h *SessionsHandler) Results(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, http.MethodGet, "/api/v1/cleanup/results/")
	if !ok {
		return
	}

	session, err := db.GetSession(r.Context(), h.pool, sessionID)
	if errors.Is(err, db.ErrSessionNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("SessionsHandler: Failed to get session %s: %v", sessionID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		SessionID           string               `json:"session_id"`
		Status              models.SessionStatus `json:"status"`
		EmailsDeleted       int                  `json:"emails_deleted"`
		SpaceFreed          int64                `json:"space_freed"`
		SendersUnsubscribed int                  `json:"senders_unsubscribed"`
		FiltersCreated      int                  `json:"filters_created"`
		ErrorMessage        *string              `json:"error_message,omitempty"`
	}{
		SessionID:           session.SessionID,
		Status:              session.Status,
		EmailsDeleted:       session.EmailsDeleted,
		SpaceFreed:          session.SpaceFreed,
		SendersUnsubscribed: session.SendersUnsubscribed,
		FiltersCreated:      session.FiltersCreated,
		ErrorMessage:        session.ErrorMessage,
	})
}

// Reopen handles POST /api/v1/cleanup/reopen/{sid}: brings a finished session
// back to review so decisions can be revisited.
func (h *SessionsHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, http.MethodPost, "/api/v1/cleanup/reopen/")
	if !ok {
		return
	}

	err := h.orchestrator.Reopen(r.Context(), sessionID)
	if errors.Is(err, db.ErrSessionNotFound) {
		http.Error(w, "Session not found or not finished", http.StatusConflict)
		return
	}
	if err != nil {
		log.Printf("SessionsHandler: Failed to reopen session %s: %v", sessionID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.getSession(w, r, sessionID)
}

// Abandon handles POST /api/v1/cleanup/abandon/{sid}.
func (h *SessionsHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, http.MethodPost, "/api/v1/cleanup/abandon/")
	if !ok {
		return
	}

	err := h.orchestrator.Abandon(r.Context(), sessionID)
	if errors.Is(err, db.ErrSessionNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("SessionsHandler: Failed to abandon session %s: %v", sessionID, err)
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
	}{Success: true})
}

func (h *SessionsHandler) sessionID(w http.ResponseWriter, r *http.Request, method, prefix string) (string, bool) {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return "", false
	}
	return pathSuffix(w, r, prefix, "session id")
}

func (h *SessionsHandler) getSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	session, err := db.GetSession(r.Context(), h.pool, sessionID)
	if errors.Is(err, db.ErrSessionNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("SessionsHandler: Failed to get session %s: %v", sessionID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// requireSession writes a 404 when the session does not exist. Returns false
// when the caller should stop.
func (h *SessionsHandler) requireSession(w http.ResponseWriter, ctx context.Context, sessionID string) bool {
	if _, err := db.GetSession(ctx, h.pool, sessionID); errors.Is(err, db.ErrSessionNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return false
	} else if err != nil {
		log.Printf("SessionsHandler: Failed to get session %s: %v", sessionID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return false
	}
	return true
}
