package agent

import (
	"context"
	"testing"

	"github.com/haris-cl/inbox-nuke/backend/internal/db"
	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/haris-cl/inbox-nuke/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSessionMailbox(client *testutil.FakeMailClient) {
	client.QueryResults["category:promotions"] = []string{"p1", "p2"}
	client.QueryResults["has:unsubscribe"] = []string{"u1"}

	client.AddMessage(&models.MessageMeta{
		ID:              "p1",
		FromEmail:       "promo@shop.example",
		FromName:        "Shop Promo",
		Subject:         "Mega sale 50% off",
		SizeEstimate:    2048,
		LabelIDs:        []string{"CATEGORY_PROMOTIONS"},
		ListUnsubscribe: "<mailto:unsub@shop.example>",
	})
	client.AddMessage(&models.MessageMeta{
		ID:              "p2",
		FromEmail:       "promo@shop.example",
		Subject:         "Deals this week",
		SizeEstimate:    1024,
		LabelIDs:        []string{"CATEGORY_PROMOTIONS"},
		ListUnsubscribe: "<mailto:unsub@shop.example>",
	})
	// A borderline message: only the unsubscribe header votes for deletion.
	client.AddMessage(&models.MessageMeta{
		ID:              "u1",
		FromEmail:       "friend@social.example",
		Subject:         "photos from the trip",
		SizeEstimate:    512,
		ListUnsubscribe: "<mailto:leave@social.example>",
	})
}

func TestSessionLifecycle(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	client := testutil.NewFakeMailClient()
	seedSessionMailbox(client)
	submitter := &fakeSubmitter{}
	orchestrator := NewSessionOrchestrator(pool, client, submitter)

	session, err := orchestrator.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SessionScanning, session.Status)

	require.NoError(t, orchestrator.Scan(ctx, session.SessionID))

	scanned, err := db.GetSession(ctx, pool, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionReadyForReview, scanned.Status)
	assert.Equal(t, 3, scanned.ScannedEmails)
	assert.NotEmpty(t, scanned.Discoveries)

	require.NoError(t, orchestrator.SetMode(ctx, session.SessionID, models.ModeQuick))

	// Quick mode only surfaces the uncertain delete suggestion.
	queue, err := orchestrator.ReviewQueue(ctx, session.SessionID)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "u1", queue[0].MessageID)

	// The user keeps the borderline message, approves one promo with an
	// unsubscribe, and accepts the remaining suggestion wholesale.
	require.NoError(t, orchestrator.RecordDecision(ctx, session.SessionID, "u1", models.SuggestKeep, nil))
	wants := true
	require.NoError(t, orchestrator.RecordDecision(ctx, session.SessionID, "p1", models.SuggestDelete, &wants))

	defaulted, err := orchestrator.SkipAll(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, defaulted)

	summary, err := orchestrator.Confirm(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ToDelete)
	assert.Equal(t, 1, summary.ToKeep)
	assert.Equal(t, int64(3072), summary.BytesToFree)
	assert.Equal(t, map[string]int{"promo@shop.example": 2}, summary.DeleteBySender)
	assert.Equal(t, []string{"promo@shop.example"}, summary.SendersToUnsubscribe)

	confirmed, err := db.GetSession(ctx, pool, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionConfirming, confirmed.Status)
	require.NotNil(t, confirmed.Confirmation)

	require.NoError(t, orchestrator.Execute(ctx, session.SessionID))

	done, err := db.GetSession(ctx, pool, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, done.Status)
	assert.Equal(t, 2, done.EmailsDeleted)
	assert.Equal(t, int64(3072), done.SpaceFreed)
	assert.Equal(t, 1, done.SendersUnsubscribed)
	assert.Equal(t, 1, done.FiltersCreated)
	assert.NotNil(t, done.CompletedAt)

	// The kept message survived; the approved ones are in trash.
	assert.Contains(t, client.Messages, "u1")
	assert.Equal(t, 2, client.TrashedCount())

	require.Len(t, submitter.sent, 1)
	assert.Equal(t, "unsub@shop.example", submitter.sent[0].to)
}

func TestSessionFullModeSurfacesEverything(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	client := testutil.NewFakeMailClient()
	seedSessionMailbox(client)
	orchestrator := NewSessionOrchestrator(pool, client, &fakeSubmitter{})

	session, err := orchestrator.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, orchestrator.Scan(ctx, session.SessionID))
	require.NoError(t, orchestrator.SetMode(ctx, session.SessionID, models.ModeFull))

	queue, err := orchestrator.ReviewQueue(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Len(t, queue, 3)

	// Least confident first.
	assert.Equal(t, "u1", queue[0].MessageID)
}

func TestSessionOnlyOneActive(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	orchestrator := NewSessionOrchestrator(pool, testutil.NewFakeMailClient(), &fakeSubmitter{})

	_, err := orchestrator.Start(ctx)
	require.NoError(t, err)

	_, err = orchestrator.Start(ctx)
	assert.ErrorIs(t, err, db.ErrSessionActive)
}

func TestSessionAbandonAndReopen(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	client := testutil.NewFakeMailClient()
	seedSessionMailbox(client)
	orchestrator := NewSessionOrchestrator(pool, client, &fakeSubmitter{})

	session, err := orchestrator.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, orchestrator.Scan(ctx, session.SessionID))

	require.NoError(t, orchestrator.Abandon(ctx, session.SessionID))

	abandoned, err := db.GetSession(ctx, pool, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionFailed, abandoned.Status)

	// Abandoning twice is an error: the session already finished.
	require.Error(t, orchestrator.Abandon(ctx, session.SessionID))

	require.NoError(t, orchestrator.Reopen(ctx, session.SessionID))
	reopened, err := db.GetSession(ctx, pool, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionReadyForReview, reopened.Status)
}

func TestSessionExecuteRequiresConfirmation(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	client := testutil.NewFakeMailClient()
	seedSessionMailbox(client)
	orchestrator := NewSessionOrchestrator(pool, client, &fakeSubmitter{})

	session, err := orchestrator.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, orchestrator.Scan(ctx, session.SessionID))

	err = orchestrator.Execute(ctx, session.SessionID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no confirmed plan")
}
