package agent

import (
	"strings"

	"github.com/haris-cl/inbox-nuke/backend/internal/models"
)

// ReviewConfidenceThreshold separates suggestions the quick review mode
// trusts from those it surfaces to the user.
const ReviewConfidenceThreshold = 0.7

// Recommendation is a keep/delete suggestion for one message, with the
// signals that produced it.
type Recommendation struct {
	Suggestion models.Suggestion
	Confidence float64
	Reasoning  string
	Category   string
}

// Recommender scores messages for the interactive review flow. It weighs
// protection signals (whitelist, protected domains, security subjects)
// against deletion signals (promotional categories, unsubscribe headers,
// automated-sender patterns) and reports how sure it is.
type Recommender struct {
	classifier *SafetyClassifier
}

// NewRecommender returns a Recommender using the given safety classifier for
// its protection signals.
func NewRecommender(classifier *SafetyClassifier) *Recommender {
	return &Recommender{classifier: classifier}
}

// Analyze scores one message. Scores range -100 (certain keep) to +100
// (certain delete); anything inside ±30 is uncertain and gets a confidence
// below the review threshold so a human sees it.
func (r *Recommender) Analyze(meta *models.MessageMeta) Recommendation {
	keepScore := 0
	deleteScore := 0
	var reasons []string

	verdict := r.classifier.CheckSender(meta.FromEmail)
	switch verdict.Check {
	case CheckWhitelisted:
		keepScore += 100
		reasons = append(reasons, "sender is on your protected list")
	case CheckProtectedDomain:
		keepScore += 80
		reasons = append(reasons, "important domain (financial/government)")
	case CheckImportantSender:
		keepScore += 80
		reasons = append(reasons, "security or account sender")
	}

	if protectedKeyword(meta.Subject) != "" {
		keepScore += 70
		reasons = append(reasons, "security or verification email")
	}

	labels := labelSet(meta.LabelIDs)
	if _, ok := labels["STARRED"]; ok {
		keepScore += 50
		reasons = append(reasons, "message is starred")
	}
	if _, inbox := labels["INBOX"]; inbox {
		if _, primary := labels["CATEGORY_PERSONAL"]; primary {
			keepScore += 30
			reasons = append(reasons, "in primary inbox")
		}
	}

	category := categorize(labels)
	switch category {
	case "promotions":
		deleteScore += 40
		reasons = append(reasons, "categorized as promotions")
	case "social":
		deleteScore += 30
		reasons = append(reasons, "categorized as social")
	}

	if meta.ListUnsubscribe != "" {
		deleteScore += 25
		reasons = append(reasons, "has an unsubscribe option (mailing list)")
	}
	if isJunkSender(strings.ToLower(meta.FromEmail)) {
		deleteScore += 30
		reasons = append(reasons, "sender pattern suggests automated email")
	}
	if isJunkSubject(meta.Subject) {
		deleteScore += 20
		reasons = append(reasons, "subject contains promotional keywords")
	}

	finalScore := deleteScore - keepScore

	var suggestion models.Suggestion
	var confidence float64
	switch {
	case finalScore <= -30:
		suggestion = models.SuggestKeep
		confidence = clampConfidence(float64(-finalScore) / 100)
	case finalScore >= 30:
		suggestion = models.SuggestDelete
		confidence = clampConfidence(float64(finalScore) / 100)
	default:
		if finalScore > 0 {
			suggestion = models.SuggestDelete
		} else {
			suggestion = models.SuggestKeep
		}
		confidence = 0.3 + (abs(finalScore)/100.0)*0.4
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "no specific signals detected")
	}
	if len(reasons) > 3 {
		reasons = reasons[:3]
	}

	if keepScore > deleteScore {
		category = "protected"
	}

	return Recommendation{
		Suggestion: suggestion,
		Confidence: confidence,
		Reasoning:  strings.Join(reasons, "; "),
		Category:   category,
	}
}

func categorize(labels map[string]struct{}) string {
	switch {
	case contains(labels, "CATEGORY_PROMOTIONS"):
		return "promotions"
	case contains(labels, "CATEGORY_SOCIAL"):
		return "social"
	case contains(labels, "CATEGORY_UPDATES"):
		return "updates"
	case contains(labels, "CATEGORY_FORUMS"):
		return "newsletters"
	default:
		return "other"
	}
}

func labelSet(labels []string) map[string]struct{} {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[strings.ToUpper(l)] = struct{}{}
	}
	return set
}

func contains(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

func clampConfidence(c float64) float64 {
	if c > 1 {
		return 1
	}
	return c
}

func abs(n int) float64 {
	if n < 0 {
		return float64(-n)
	}
	return float64(n)
}
