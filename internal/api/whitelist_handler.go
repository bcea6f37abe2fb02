package api

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/haris-cl/inbox-nuke/backend/internal/db"
	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WhitelistHandler manages the protected-pattern list. Whitelisted senders
// and domains are never acted on by either cleanup mode.
type WhitelistHandler struct {
	pool *pgxpool.Pool
}

// NewWhitelistHandler creates a new WhitelistHandler instance.
func NewWhitelistHandler(pool *pgxpool.Pool) *WhitelistHandler {
	return &WhitelistHandler{pool: pool}
}

// Collection handles /api/v1/whitelist.
func (h *WhitelistHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.add(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Item handles DELETE /api/v1/whitelist/{pattern}.
func (h *WhitelistHandler) Item(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pattern, ok := pathSuffix(w, r, "/api/v1/whitelist/", "pattern")
	if !ok {
		return
	}

	err := db.RemoveWhitelistEntry(r.Context(), h.pool, pattern)
	if errors.Is(err, db.ErrWhitelistEntryNotFound) {
		http.Error(w, "Whitelist entry not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("WhitelistHandler: Failed to remove entry: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
	}{Success: true})
}

func (h *WhitelistHandler) list(w http.ResponseWriter, r *http.Request) {
	entries, err := db.ListWhitelistEntries(r.Context(), h.pool)
	if err != nil {
		log.Printf("WhitelistHandler: Failed to list entries: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if entries == nil {
		entries = []*models.WhitelistEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *WhitelistHandler) add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pattern string  `json:"pattern"`
		Reason  *string `json:"reason,omitempty"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Pattern) == "" {
		http.Error(w, "pattern is required", http.StatusBadRequest)
		return
	}

	entry, err := db.AddWhitelistEntry(r.Context(), h.pool, req.Pattern, req.Reason)
	if err != nil {
		log.Printf("WhitelistHandler: Failed to add entry: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}
