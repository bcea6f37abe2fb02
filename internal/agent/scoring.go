package agent

// Junk scoring is deliberately fixed rather than configurable: the audit log
// must stay reproducible across runs of the same mailbox.
const (
	scoreSenderPattern  = 40
	scoreSubjectKeyword = 30
	scoreHasUnsubscribe = 30

	// JunkThreshold is the score at or above which a sender is treated as
	// junk: eligible for mute filters and the aggressive retention window.
	JunkThreshold = 60

	aggressiveWindowDays = 7
	defaultWindowDays    = 30
)

// JunkScore rates how likely a message is junk, 0-100. Sender patterns are
// worth 40 points, subject patterns 30, a List-Unsubscribe header 30.
func JunkScore(senderEmail, subject string, hasUnsubscribe bool) int {
	score := 0

	if isJunkSender(senderEmail) {
		score += scoreSenderPattern
	}
	if isJunkSubject(subject) {
		score += scoreSubjectKeyword
	}
	if hasUnsubscribe {
		score += scoreHasUnsubscribe
	}

	if score > 100 {
		score = 100
	}
	return score
}

// RetentionWindowDays returns how far back deletion reaches for a sender
// with the given score. Junk senders get the aggressive 7-day window;
// everything else keeps the last 30 days.
func RetentionWindowDays(junkScore int) int {
	if junkScore >= JunkThreshold {
		return aggressiveWindowDays
	}
	return defaultWindowDays
}

func isJunkSender(email string) bool {
	if email == "" {
		return false
	}
	for _, pattern := range rules.junkSender {
		if pattern.MatchString(email) {
			return true
		}
	}
	return false
}

func isJunkSubject(subject string) bool {
	if subject == "" {
		return false
	}
	for _, pattern := range rules.junkSubject {
		if pattern.MatchString(subject) {
			return true
		}
	}
	return false
}
