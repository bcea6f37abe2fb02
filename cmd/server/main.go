package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/haris-cl/inbox-nuke/backend/internal/agent"
	"github.com/haris-cl/inbox-nuke/backend/internal/api"
	"github.com/haris-cl/inbox-nuke/backend/internal/auth"
	"github.com/haris-cl/inbox-nuke/backend/internal/config"
	"github.com/haris-cl/inbox-nuke/backend/internal/crypto"
	"github.com/haris-cl/inbox-nuke/backend/internal/db"
	"github.com/haris-cl/inbox-nuke/backend/internal/mail"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.CloseConnection(pool)

	log.Printf("Successfully connected to database")

	server := NewServer(cfg, pool)

	address := ":" + cfg.Port
	log.Printf("Inbox Nuke backend server starting on %s (environment: %s)", address, cfg.Environment)

	if err := http.ListenAndServe(address, server); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// NewServer creates and returns a new HTTP handler for the Inbox Nuke API
// server.
func NewServer(cfg *config.Config, dbPool *pgxpool.Pool) http.Handler {
	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKeyBase64)
	if err != nil {
		log.Fatalf("Failed to create encryptor: %v", err)
	}

	// The Gmail client is lazy so the server comes up before OAuth tokens
	// exist; agent calls fail cleanly until credentials are saved.
	client := mail.NewLazyClient(cfg, dbPool, encryptor)
	submitter := mail.NewSubmitter(cfg)

	runOrchestrator := agent.NewRunOrchestrator(dbPool, client, submitter)
	sessionOrchestrator := agent.NewSessionOrchestrator(dbPool, client, submitter)

	authHandler := api.NewAuthHandler(dbPool, encryptor, client.Reset)
	runsHandler := api.NewRunsHandler(dbPool, runOrchestrator)
	sendersHandler := api.NewSendersHandler(dbPool)
	whitelistHandler := api.NewWhitelistHandler(dbPool)
	sessionsHandler := api.NewSessionsHandler(dbPool, sessionOrchestrator)

	mux := http.NewServeMux()

	mux.HandleFunc("/", handleRoot)

	mux.Handle("/api/v1/auth/status", auth.RequireAuth(http.HandlerFunc(authHandler.Status)))
	mux.Handle("/api/v1/auth/credentials", auth.RequireAuth(http.HandlerFunc(authHandler.SaveCredentials)))

	mux.Handle("/api/v1/runs", auth.RequireAuth(http.HandlerFunc(runsHandler.Collection)))
	mux.Handle("/api/v1/runs/", auth.RequireAuth(http.HandlerFunc(runsHandler.Item)))

	mux.Handle("/api/v1/senders", auth.RequireAuth(http.HandlerFunc(sendersHandler.GetSenders)))
	mux.Handle("/api/v1/senders/stats", auth.RequireAuth(http.HandlerFunc(sendersHandler.GetStats)))

	mux.Handle("/api/v1/whitelist", auth.RequireAuth(http.HandlerFunc(whitelistHandler.Collection)))
	mux.Handle("/api/v1/whitelist/", auth.RequireAuth(http.HandlerFunc(whitelistHandler.Item)))

	mux.Handle("/api/v1/cleanup/start", auth.RequireAuth(http.HandlerFunc(sessionsHandler.Start)))
	mux.Handle("/api/v1/cleanup/active", auth.RequireAuth(http.HandlerFunc(sessionsHandler.Active)))
	mux.Handle("/api/v1/cleanup/sessions", auth.RequireAuth(http.HandlerFunc(sessionsHandler.List)))
	mux.Handle("/api/v1/cleanup/progress/", auth.RequireAuth(http.HandlerFunc(sessionsHandler.Progress)))
	mux.Handle("/api/v1/cleanup/recommendations/", auth.RequireAuth(http.HandlerFunc(sessionsHandler.Recommendations)))
	mux.Handle("/api/v1/cleanup/mode/", auth.RequireAuth(http.HandlerFunc(sessionsHandler.SetMode)))
	mux.Handle("/api/v1/cleanup/review-queue/", auth.RequireAuth(http.HandlerFunc(sessionsHandler.ReviewQueue)))
	mux.Handle("/api/v1/cleanup/review-decision/", auth.RequireAuth(http.HandlerFunc(sessionsHandler.RecordDecision)))
	mux.Handle("/api/v1/cleanup/skip-all/", auth.RequireAuth(http.HandlerFunc(sessionsHandler.SkipAll)))
	mux.Handle("/api/v1/cleanup/confirmation/", auth.RequireAuth(http.HandlerFunc(sessionsHandler.Confirmation)))
	mux.Handle("/api/v1/cleanup/execute/", auth.RequireAuth(http.HandlerFunc(sessionsHandler.Execute)))
	mux.Handle("/api/v1/cleanup/results/", auth.RequireAuth(http.HandlerFunc(sessionsHandler.Results)))
	mux.Handle("/api/v1/cleanup/reopen/", auth.RequireAuth(http.HandlerFunc(sessionsHandler.Reopen)))
	mux.Handle("/api/v1/cleanup/abandon/", auth.RequireAuth(http.HandlerFunc(sessionsHandler.Abandon)))

	return mux
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Inbox Nuke API is running")
}
