package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/haris-cl/inbox-nuke/backend/internal/crypto"
	"github.com/haris-cl/inbox-nuke/backend/internal/db"
	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuthHandler reports and updates the stored Gmail OAuth credentials. The
// OAuth dance itself happens out of band; this just receives the tokens.
type AuthHandler struct {
	pool      *pgxpool.Pool
	encryptor *crypto.Encryptor
	onUpdate  func()
}

// NewAuthHandler creates a new AuthHandler instance. onUpdate is called after
// credentials change, so cached Gmail clients can be rebuilt; it may be nil.
func NewAuthHandler(pool *pgxpool.Pool, encryptor *crypto.Encryptor, onUpdate func()) *AuthHandler {
	return &AuthHandler{pool: pool, encryptor: encryptor, onUpdate: onUpdate}
}

// Status handles GET /api/v1/auth/status.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	creds, err := db.GetGmailCredentials(r.Context(), h.pool, h.encryptor)
	if errors.Is(err, db.ErrCredentialsNotFound) {
		writeJSON(w, http.StatusOK, models.AuthStatusResponse{})
		return
	}
	if err != nil {
		log.Printf("AuthHandler: Failed to get credentials: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	status := models.AuthStatusResponse{
		HasCredentials: true,
		TokenExpiry:    creds.TokenExpiry,
	}
	// A missing expiry means the token does not expire as far as we know.
	status.TokenValid = creds.TokenExpiry == nil || creds.TokenExpiry.After(time.Now())

	writeJSON(w, http.StatusOK, status)
}

// SaveCredentials handles POST /api/v1/auth/credentials.
func (h *AuthHandler) SaveCredentials(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		AccessToken  string     `json:"access_token"`
		RefreshToken string     `json:"refresh_token"`
		TokenExpiry  *time.Time `json:"token_expiry,omitempty"`
		Scopes       []string   `json:"scopes,omitempty"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.AccessToken == "" || req.RefreshToken == "" {
		http.Error(w, "access_token and refresh_token are required", http.StatusBadRequest)
		return
	}

	creds := &models.GmailCredentials{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		TokenExpiry:  req.TokenExpiry,
		Scopes:       req.Scopes,
	}
	if err := db.SaveGmailCredentials(r.Context(), h.pool, h.encryptor, creds); err != nil {
		log.Printf("AuthHandler: Failed to save credentials: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if h.onUpdate != nil {
		h.onUpdate()
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
	}{Success: true})
}
