package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/haris-cl/inbox-nuke/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteOldMessages(t *testing.T) {
	client := testutil.NewFakeMailClient()
	for i := 0; i < 3; i++ {
		client.AddMessage(&models.MessageMeta{
			ID:           fmt.Sprintf("m%d", i),
			FromEmail:    "promo@shop.example",
			SizeEstimate: 1024,
		})
	}
	client.AddMessage(&models.MessageMeta{
		ID:        "other",
		FromEmail: "friend@home.example",
	})

	deleter := NewDeleter(client)
	sender := &models.Sender{Email: "promo@shop.example", JunkScore: 90}

	result, err := deleter.DeleteOldMessages(context.Background(), sender)
	require.NoError(t, err)

	assert.Equal(t, 3, result.EmailsDeleted)
	assert.Equal(t, int64(3*1024), result.BytesFreed)
	assert.Equal(t, 3, client.TrashedCount())

	// The other sender's message is untouched.
	assert.Contains(t, client.Messages, "other")
}

func TestDeleteOldMessagesUsesRetentionWindow(t *testing.T) {
	client := testutil.NewFakeMailClient()
	deleter := NewDeleter(client)

	// Only the exact aggressive-window query is seeded: a junk sender must
	// search with older_than:7d to find it.
	client.QueryResults["from:promo@shop.example older_than:7d"] = []string{"x1"}
	result, err := deleter.DeleteOldMessages(context.Background(),
		&models.Sender{Email: "promo@shop.example", JunkScore: 90})
	require.NoError(t, err)
	assert.Equal(t, 1, result.EmailsDeleted)

	// Non-junk senders search the default 30-day window.
	client.QueryResults["from:quiet@shop.example older_than:30d"] = []string{"x2"}
	result, err = deleter.DeleteOldMessages(context.Background(),
		&models.Sender{Email: "quiet@shop.example", JunkScore: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, result.EmailsDeleted)
}

func TestDeleteOldMessagesNothingToDo(t *testing.T) {
	client := testutil.NewFakeMailClient()
	deleter := NewDeleter(client)

	result, err := deleter.DeleteOldMessages(context.Background(),
		&models.Sender{Email: "nobody@shop.example"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.EmailsDeleted)
	assert.Equal(t, int64(0), result.BytesFreed)
	assert.Equal(t, 0, client.TrashedCount())
}

func TestDeleteOldMessagesTrashError(t *testing.T) {
	client := testutil.NewFakeMailClient()
	client.AddMessage(&models.MessageMeta{ID: "m1", FromEmail: "promo@shop.example"})
	client.TrashErr = assert.AnError

	deleter := NewDeleter(client)
	_, err := deleter.DeleteOldMessages(context.Background(),
		&models.Sender{Email: "promo@shop.example", JunkScore: 90})
	require.Error(t, err)
}
