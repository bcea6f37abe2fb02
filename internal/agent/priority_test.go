package agent

import (
	"testing"

	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestPrioritizeSenders(t *testing.T) {
	senders := []*models.Sender{
		{ID: 1, Email: "quiet@a.example", JunkScore: 0, UnsubscribeMethod: models.UnsubscribeNone, MessageCount: 3},
		{ID: 2, Email: "busy@b.example", JunkScore: 0, UnsubscribeMethod: models.UnsubscribeNone, MessageCount: 500},
		{ID: 3, Email: "newsletter@c.example", JunkScore: 70, UnsubscribeMethod: models.UnsubscribeMailto, MessageCount: 10},
		{ID: 4, Email: "promo@d.example", JunkScore: 90, UnsubscribeMethod: models.UnsubscribeNone, MessageCount: 50},
		{ID: 5, Email: "list@e.example", JunkScore: 10, UnsubscribeMethod: models.UnsubscribeHTTP, MessageCount: 5},
	}

	order := PrioritizeSenders(senders)

	// Junk senders first (3 and 4; among them the unsubscribable one leads),
	// then the non-junk sender with an unsubscribe mechanism, then by count.
	assert.Equal(t, []int64{3, 4, 5, 2, 1}, order)
}

func TestPrioritizeSendersStable(t *testing.T) {
	senders := []*models.Sender{
		{ID: 1, Email: "a@x.example", MessageCount: 10},
		{ID: 2, Email: "b@x.example", MessageCount: 10},
		{ID: 3, Email: "c@x.example", MessageCount: 10},
	}

	order := PrioritizeSenders(senders)
	assert.Equal(t, []int64{1, 2, 3}, order)
}

func TestPrioritizeSendersDoesNotMutateInput(t *testing.T) {
	senders := []*models.Sender{
		{ID: 1, MessageCount: 1},
		{ID: 2, JunkScore: 100, MessageCount: 1},
	}

	_ = PrioritizeSenders(senders)
	assert.Equal(t, int64(1), senders[0].ID)
	assert.Equal(t, int64(2), senders[1].ID)
}

func TestPrioritizeSendersEmpty(t *testing.T) {
	order := PrioritizeSenders(nil)
	assert.Empty(t, order)
}
