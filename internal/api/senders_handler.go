package api

import (
	"log"
	"net/http"

	"github.com/haris-cl/inbox-nuke/backend/internal/agent"
	"github.com/haris-cl/inbox-nuke/backend/internal/db"
	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SendersHandler exposes the discovered-sender inventory and its aggregate
// statistics.
type SendersHandler struct {
	pool     *pgxpool.Pool
	reporter *agent.Reporter
}

// NewSendersHandler creates a new SendersHandler instance.
func NewSendersHandler(pool *pgxpool.Pool) *SendersHandler {
	return &SendersHandler{
		pool:     pool,
		reporter: agent.NewReporter(pool),
	}
}

// GetSenders returns all discovered senders, worst junk score first.
func (h *SendersHandler) GetSenders(w http.ResponseWriter, r *http.Request) {
	senders, err := db.ListSenders(r.Context(), h.pool)
	if err != nil {
		log.Printf("SendersHandler: Failed to list senders: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if senders == nil {
		senders = []*models.Sender{}
	}
	writeJSON(w, http.StatusOK, senders)
}

// GetStats returns the mailbox summary: sender aggregates plus recent runs.
func (h *SendersHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reporter.Summary(r.Context())
	if err != nil {
		log.Printf("SendersHandler: Failed to build summary: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
