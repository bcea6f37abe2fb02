package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/haris-cl/inbox-nuke/backend/internal/db"
	"github.com/haris-cl/inbox-nuke/backend/internal/mail"
	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// reviewQueueCap bounds how many items one review queue response carries.
const reviewQueueCap = 100

// SessionOrchestrator drives the interactive cleanup wizard: scan the
// mailbox, recommend keep/delete per message, let the user review the
// uncertain ones, freeze a confirmation plan, and execute it. Unlike the
// autonomous runner it never touches a message the user has not approved,
// directly or via skip-all.
type SessionOrchestrator struct {
	pool         *pgxpool.Pool
	client       mail.Client
	unsubscriber *Unsubscriber
	filters      *FilterManager
	budget       int
	logger       *log.Logger
}

// NewSessionOrchestrator wires the wizard over the given store, mail client,
// and SMTP submitter.
func NewSessionOrchestrator(pool *pgxpool.Pool, client mail.Client, submitter MailSubmitter) *SessionOrchestrator {
	return &SessionOrchestrator{
		pool:         pool,
		client:       client,
		unsubscriber: NewUnsubscriber(submitter),
		filters:      NewFilterManager(client),
		budget:       DefaultDiscoveryBudget,
		logger:       log.New(log.Writer(), "[session] ", log.LstdFlags),
	}
}

// Start creates a new session and returns its id. Scanning happens in Scan,
// which callers typically launch in the background so the id returns fast.
func (o *SessionOrchestrator) Start(ctx context.Context) (*models.ReviewSession, error) {
	return db.CreateSession(ctx, o.pool, uuid.NewString())
}

// Scan inspects the bulk-mail segments of the mailbox, scores every message,
// and stores the items. On success the session moves to ready_for_review; on
// failure it is marked failed with the error.
func (o *SessionOrchestrator) Scan(ctx context.Context, sessionID string) error {
	if err := o.scan(ctx, sessionID); err != nil {
		o.logger.Printf("session %s: scan failed: %v", sessionID, err)
		if failErr := db.FailSession(ctx, o.pool, sessionID, err.Error()); failErr != nil {
			o.logger.Printf("could not record failure for session %s: %v", sessionID, failErr)
		}
		return err
	}
	return nil
}

func (o *SessionOrchestrator) scan(ctx context.Context, sessionID string) error {
	whitelist, err := db.ListWhitelistEntries(ctx, o.pool)
	if err != nil {
		return err
	}
	recommender := NewRecommender(NewSafetyClassifier(whitelist))

	perQuery := int64(o.budget / len(discoveryQueries))
	if perQuery < 1 {
		perQuery = 1
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, query := range discoveryQueries {
		if err := ctx.Err(); err != nil {
			return err
		}

		queryIDs, err := o.client.ListMessageIDs(ctx, query, perQuery)
		if err != nil {
			if mail.IsAuthError(err) {
				return fmt.Errorf("scan query %q failed: %w", query, err)
			}
			o.logger.Printf("session %s: query %q failed, skipping: %v", sessionID, query, err)
			continue
		}
		for _, id := range queryIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	discoveries := make(map[string]int)
	scanned := 0

	for start := 0; start < len(ids); start += metadataBatchSize {
		end := start + metadataBatchSize
		if end > len(ids) {
			end = len(ids)
		}

		metas, err := o.client.GetMessagesMetadata(ctx, ids[start:end])
		if err != nil {
			return fmt.Errorf("failed to fetch scan metadata: %w", err)
		}

		items := make([]*models.ReviewItem, 0, len(metas))
		for _, meta := range metas {
			item := o.buildItem(sessionID, meta, recommender)
			items = append(items, item)
			discoveries[item.Category]++
		}

		if err := db.InsertReviewItems(ctx, o.pool, items); err != nil {
			return err
		}

		scanned += len(metas)
		if err := db.SaveSessionScanProgress(ctx, o.pool, sessionID, len(ids), scanned, discoveries); err != nil {
			return err
		}
	}

	o.logger.Printf("session %s: scanned %d messages", sessionID, scanned)
	return db.UpdateSessionStatus(ctx, o.pool, sessionID, models.SessionReadyForReview, models.SessionScanning)
}

func (o *SessionOrchestrator) buildItem(sessionID string, meta *models.MessageMeta, recommender *Recommender) *models.ReviewItem {
	rec := recommender.Analyze(meta)
	method, mailto, httpURL := ParseListUnsubscribe(meta.ListUnsubscribe, meta.ListUnsubscribePost)

	item := &models.ReviewItem{
		SessionID:           sessionID,
		MessageID:           meta.ID,
		SenderEmail:         strings.ToLower(meta.FromEmail),
		Subject:             meta.Subject,
		Snippet:             meta.Snippet,
		SizeBytes:           meta.SizeEstimate,
		AISuggestion:        rec.Suggestion,
		Reasoning:           rec.Reasoning,
		Confidence:          rec.Confidence,
		Category:            rec.Category,
		HasUnsubscribe:      method != models.UnsubscribeNone,
		UnsubscribeOneClick: method == models.UnsubscribeOneClick,
	}

	if meta.ThreadID != "" {
		tid := meta.ThreadID
		item.ThreadID = &tid
	}
	if meta.FromName != "" {
		name := meta.FromName
		item.SenderName = &name
	}
	if !meta.Date.IsZero() {
		when := meta.Date
		item.ReceivedAt = &when
	}
	if mailto != "" {
		item.UnsubscribeMailto = &mailto
	}
	if httpURL != "" {
		item.UnsubscribeURL = &httpURL
	}

	return item
}

// SetMode records the review mode and moves the session into reviewing.
func (o *SessionOrchestrator) SetMode(ctx context.Context, sessionID string, mode models.ReviewMode) error {
	if mode != models.ModeQuick && mode != models.ModeFull {
		return fmt.Errorf("unknown review mode %q", mode)
	}

	if err := db.SetSessionMode(ctx, o.pool, sessionID, mode); err != nil {
		return err
	}
	return db.UpdateSessionStatus(ctx, o.pool, sessionID, models.SessionReviewing,
		models.SessionReadyForReview, models.SessionReviewing)
}

// ReviewQueue returns the delete suggestions still awaiting a decision, least
// confident first. Quick mode only surfaces suggestions below the confidence
// threshold; full mode surfaces every one.
func (o *SessionOrchestrator) ReviewQueue(ctx context.Context, sessionID string) ([]*models.ReviewItem, error) {
	session, err := db.GetSession(ctx, o.pool, sessionID)
	if err != nil {
		return nil, err
	}

	maxConfidence := ReviewConfidenceThreshold
	if session.Mode != nil && *session.Mode == models.ModeFull {
		// Confidence never exceeds 1, so this surfaces everything.
		maxConfidence = 2
	}

	items, err := db.ListPendingDeleteItems(ctx, o.pool, sessionID, maxConfidence)
	if err != nil {
		return nil, err
	}

	if len(items) > reviewQueueCap {
		items = items[:reviewQueueCap]
	}
	return items, nil
}

// RecordDecision stores the user's keep/delete verdict for one message, and
// optionally whether they want to unsubscribe from its sender.
func (o *SessionOrchestrator) RecordDecision(ctx context.Context, sessionID, messageID string, decision models.Suggestion, wantsUnsubscribe *bool) error {
	if decision != models.SuggestKeep && decision != models.SuggestDelete {
		return fmt.Errorf("unknown decision %q", decision)
	}

	if err := db.SetReviewDecision(ctx, o.pool, sessionID, messageID, decision); err != nil {
		return err
	}

	if wantsUnsubscribe != nil {
		return db.SetUnsubscribePreference(ctx, o.pool, sessionID, messageID, *wantsUnsubscribe)
	}
	return nil
}

// SkipAll accepts every remaining AI suggestion as the user's decision and
// returns how many items were defaulted.
func (o *SessionOrchestrator) SkipAll(ctx context.Context, sessionID string) (int, error) {
	return db.DefaultUndecidedToSuggestion(ctx, o.pool, sessionID)
}

// Confirm computes the execution plan from the effective decisions, freezes
// it on the session, and moves the session to confirming. The frozen plan is
// what Execute acts on; editing decisions afterwards requires confirming
// again.
func (o *SessionOrchestrator) Confirm(ctx context.Context, sessionID string) (*models.ConfirmationSummary, error) {
	items, err := db.ListReviewItems(ctx, o.pool, sessionID)
	if err != nil {
		return nil, err
	}

	summary := &models.ConfirmationSummary{
		DeleteBySender: make(map[string]int),
		GeneratedAt:    time.Now().UTC(),
	}

	unsubscribe := make(map[string]struct{})
	for _, item := range items {
		switch item.EffectiveDecision() {
		case models.SuggestDelete:
			summary.ToDelete++
			summary.BytesToFree += item.SizeBytes
			summary.DeleteBySender[item.SenderEmail]++
		default:
			summary.ToKeep++
		}

		if item.WantsUnsubscribe && item.HasUnsubscribe {
			unsubscribe[item.SenderEmail] = struct{}{}
		}
	}

	for email := range unsubscribe {
		summary.SendersToUnsubscribe = append(summary.SendersToUnsubscribe, email)
		// Unsubscribed senders also get a mute filter so stragglers that
		// arrive before the list honors the request skip the inbox.
		summary.FiltersToCreate = append(summary.FiltersToCreate, email)
	}

	if err := db.SaveSessionConfirmation(ctx, o.pool, sessionID, summary); err != nil {
		return nil, err
	}

	if err := db.UpdateSessionStatus(ctx, o.pool, sessionID, models.SessionConfirming,
		models.SessionReviewing, models.SessionReadyForReview, models.SessionConfirming); err != nil {
		return nil, err
	}

	return summary, nil
}

// Execute carries out the frozen confirmation plan: trash the approved
// deletions, unsubscribe from the chosen senders, and create their mute
// filters. Partial failures in unsubscribe or filter creation are logged and
// counted, not fatal.
func (o *SessionOrchestrator) Execute(ctx context.Context, sessionID string) error {
	session, err := db.GetSession(ctx, o.pool, sessionID)
	if err != nil {
		return err
	}
	if session.Confirmation == nil {
		return fmt.Errorf("session %s has no confirmed plan", sessionID)
	}

	if err := db.UpdateSessionStatus(ctx, o.pool, sessionID, models.SessionExecuting,
		models.SessionConfirming); err != nil {
		return err
	}

	if err := o.execute(ctx, sessionID, session.Confirmation); err != nil {
		o.logger.Printf("session %s: execution failed: %v", sessionID, err)
		if failErr := db.FailSession(ctx, o.pool, sessionID, err.Error()); failErr != nil {
			o.logger.Printf("could not record failure for session %s: %v", sessionID, failErr)
		}
		return err
	}

	return db.UpdateSessionStatus(ctx, o.pool, sessionID, models.SessionCompleted,
		models.SessionExecuting)
}

func (o *SessionOrchestrator) execute(ctx context.Context, sessionID string, plan *models.ConfirmationSummary) error {
	items, err := db.ListReviewItems(ctx, o.pool, sessionID)
	if err != nil {
		return err
	}

	var deleteIDs []string
	var bytesFreed int64
	bySender := make(map[string]*models.ReviewItem)

	for _, item := range items {
		if item.EffectiveDecision() == models.SuggestDelete {
			deleteIDs = append(deleteIDs, item.MessageID)
			bytesFreed += item.SizeBytes
		}
		if existing, ok := bySender[item.SenderEmail]; !ok || (!existing.HasUnsubscribe && item.HasUnsubscribe) {
			bySender[item.SenderEmail] = item
		}
	}

	deleted := 0
	for start := 0; start < len(deleteIDs); start += metadataBatchSize {
		end := start + metadataBatchSize
		if end > len(deleteIDs) {
			end = len(deleteIDs)
		}

		trashed, err := o.client.TrashMessages(ctx, deleteIDs[start:end])
		deleted += trashed
		if err != nil {
			// Persist what already happened before surfacing the failure.
			if saveErr := db.SaveSessionResults(ctx, o.pool, sessionID, deleted, bytesFreed, 0, 0); saveErr != nil {
				o.logger.Printf("session %s: could not save partial results: %v", sessionID, saveErr)
			}
			return fmt.Errorf("failed to trash approved messages: %w", err)
		}
	}

	unsubscribed := 0
	for _, email := range plan.SendersToUnsubscribe {
		item, ok := bySender[email]
		if !ok {
			continue
		}

		sender := senderFromItem(item)
		if _, err := o.unsubscriber.Unsubscribe(ctx, sender); err != nil {
			o.logger.Printf("session %s: unsubscribe failed for %s: %v", sessionID, email, err)
			continue
		}
		unsubscribed++

		if stored, err := db.GetSenderByEmail(ctx, o.pool, email); err == nil {
			if err := db.MarkSenderUnsubscribed(ctx, o.pool, stored.ID, time.Now().UTC()); err != nil {
				o.logger.Printf("session %s: could not mark %s unsubscribed: %v", sessionID, email, err)
			}
		}
	}

	filtersCreated := 0
	for _, email := range plan.FiltersToCreate {
		sender := &models.Sender{Email: email, Domain: ExtractDomain(email)}
		if _, created, err := o.filters.EnsureMuteFilter(ctx, sender); err != nil {
			o.logger.Printf("session %s: filter creation failed for %s: %v", sessionID, email, err)
		} else if created {
			filtersCreated++
		}
	}

	o.logger.Printf("session %s: deleted %d, unsubscribed %d, filters %d",
		sessionID, deleted, unsubscribed, filtersCreated)
	return db.SaveSessionResults(ctx, o.pool, sessionID, deleted, bytesFreed, unsubscribed, filtersCreated)
}

// Reopen moves a finished session back to ready_for_review so its decisions
// can be revisited and re-confirmed.
func (o *SessionOrchestrator) Reopen(ctx context.Context, sessionID string) error {
	return db.UpdateSessionStatus(ctx, o.pool, sessionID, models.SessionReadyForReview,
		models.SessionCompleted, models.SessionFailed)
}

// Abandon fails a session that is still in progress. Nothing already
// executed is undone.
func (o *SessionOrchestrator) Abandon(ctx context.Context, sessionID string) error {
	session, err := db.GetSession(ctx, o.pool, sessionID)
	if err != nil {
		return err
	}
	if session.Status.Terminal() {
		return fmt.Errorf("session %s already finished with status %s", sessionID, session.Status)
	}
	return db.FailSession(ctx, o.pool, sessionID, "abandoned by user")
}

func senderFromItem(item *models.ReviewItem) *models.Sender {
	sender := &models.Sender{
		Email:             item.SenderEmail,
		Domain:            ExtractDomain(item.SenderEmail),
		UnsubscribeMailto: item.UnsubscribeMailto,
		UnsubscribeURL:    item.UnsubscribeURL,
	}

	switch {
	case item.UnsubscribeOneClick && item.UnsubscribeURL != nil:
		sender.UnsubscribeMethod = models.UnsubscribeOneClick
	case item.UnsubscribeMailto != nil:
		sender.UnsubscribeMethod = models.UnsubscribeMailto
	case item.UnsubscribeURL != nil:
		sender.UnsubscribeMethod = models.UnsubscribeHTTP
	default:
		sender.UnsubscribeMethod = models.UnsubscribeNone
	}

	return sender
}
