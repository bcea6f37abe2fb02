package agent

import (
	"testing"

	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestAnalyzePromotionalMessage(t *testing.T) {
	r := NewRecommender(NewSafetyClassifier(nil))

	rec := r.Analyze(&models.MessageMeta{
		FromEmail:       "promo@shop.example",
		Subject:         "Flash sale: 70% off everything",
		LabelIDs:        []string{"CATEGORY_PROMOTIONS"},
		ListUnsubscribe: "<mailto:unsub@shop.example>",
	})

	assert.Equal(t, models.SuggestDelete, rec.Suggestion)
	assert.GreaterOrEqual(t, rec.Confidence, ReviewConfidenceThreshold)
	assert.Equal(t, "promotions", rec.Category)
	assert.NotEmpty(t, rec.Reasoning)
}

func TestAnalyzeWhitelistedSender(t *testing.T) {
	r := NewRecommender(NewSafetyClassifier(whitelistEntries("work.example")))

	rec := r.Analyze(&models.MessageMeta{
		FromEmail: "boss@work.example",
		Subject:   "Quarterly planning",
	})

	assert.Equal(t, models.SuggestKeep, rec.Suggestion)
	assert.Equal(t, "protected", rec.Category)
	assert.GreaterOrEqual(t, rec.Confidence, ReviewConfidenceThreshold)
}

func TestAnalyzeProtectedDomainBeatsPromoSignals(t *testing.T) {
	r := NewRecommender(NewSafetyClassifier(nil))

	// A bank statement that happens to sit in the updates category must
	// still come out as keep.
	rec := r.Analyze(&models.MessageMeta{
		FromEmail:       "noreply@chase.com",
		Subject:         "Your statement is ready",
		LabelIDs:        []string{"CATEGORY_UPDATES"},
		ListUnsubscribe: "<https://chase.com/prefs>",
	})

	assert.Equal(t, models.SuggestKeep, rec.Suggestion)
	assert.Equal(t, "protected", rec.Category)
}

func TestAnalyzeUncertainMessageHasLowConfidence(t *testing.T) {
	r := NewRecommender(NewSafetyClassifier(nil))

	// One weak deletion signal only: the uncertainty band applies.
	rec := r.Analyze(&models.MessageMeta{
		FromEmail:       "friend@social.example",
		Subject:         "photos from the trip",
		ListUnsubscribe: "<mailto:unsub@social.example>",
	})

	assert.Less(t, rec.Confidence, ReviewConfidenceThreshold)
}

func TestAnalyzeStarredMessageKept(t *testing.T) {
	r := NewRecommender(NewSafetyClassifier(nil))

	// The star outweighs the automated-sender pattern.
	rec := r.Analyze(&models.MessageMeta{
		FromEmail: "updates@service.example",
		Subject:   "your weekly report is ready",
		LabelIDs:  []string{"STARRED"},
	})

	assert.Equal(t, models.SuggestKeep, rec.Suggestion)
}

func TestAnalyzeNoSignals(t *testing.T) {
	r := NewRecommender(NewSafetyClassifier(nil))

	rec := r.Analyze(&models.MessageMeta{
		FromEmail: "someone@somewhere.example",
		Subject:   "hey",
	})

	assert.Equal(t, models.SuggestKeep, rec.Suggestion)
	assert.Less(t, rec.Confidence, ReviewConfidenceThreshold)
	assert.Equal(t, "no specific signals detected", rec.Reasoning)
	assert.Equal(t, "other", rec.Category)
}
