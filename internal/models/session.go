package models

import "time"

// SessionStatus is the lifecycle state of an interactive review session.
type SessionStatus string

const (
	SessionScanning       SessionStatus = "scanning"
	SessionReadyForReview SessionStatus = "ready_for_review"
	SessionReviewing      SessionStatus = "reviewing"
	SessionConfirming     SessionStatus = "confirming"
	SessionExecuting      SessionStatus = "executing"
	SessionCompleted      SessionStatus = "completed"
	SessionFailed         SessionStatus = "failed"
)

// Terminal reports whether the session has finished (successfully or not).
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

// ReviewMode controls how much of the scan the user reviews by hand.
// Quick mode only surfaces low-confidence delete suggestions; full mode
// surfaces every delete suggestion.
type ReviewMode string

const (
	ModeQuick ReviewMode = "quick"
	ModeFull  ReviewMode = "full"
)

// Suggestion is a keep/delete verdict, either AI-suggested or user-decided.
type Suggestion string

const (
	SuggestKeep   Suggestion = "keep"
	SuggestDelete Suggestion = "delete"
)

// ReviewSession is one run of the interactive cleanup wizard.
type ReviewSession struct {
	ID                  int64                `json:"-"`
	SessionID           string               `json:"session_id"`
	Status              SessionStatus        `json:"status"`
	Mode                *ReviewMode          `json:"mode,omitempty"`
	TotalEmails         int                  `json:"total_emails"`
	ScannedEmails       int                  `json:"scanned_emails"`
	Discoveries         map[string]int       `json:"discoveries"`
	Confirmation        *ConfirmationSummary `json:"confirmation,omitempty"`
	EmailsDeleted       int                  `json:"emails_deleted"`
	SpaceFreed          int64                `json:"space_freed"`
	SendersUnsubscribed int                  `json:"senders_unsubscribed"`
	FiltersCreated      int                  `json:"filters_created"`
	ErrorMessage        *string              `json:"error_message,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
	StartedAt           *time.Time           `json:"started_at,omitempty"`
	CompletedAt         *time.Time           `json:"completed_at,omitempty"`
}

// ReviewItem is one scanned message with its recommendation and, once the
// user has weighed in, their decision.
type ReviewItem struct {
	ID                  int64       `json:"id"`
	SessionID           string      `json:"session_id"`
	MessageID           string      `json:"message_id"`
	ThreadID            *string     `json:"thread_id,omitempty"`
	SenderEmail         string      `json:"sender_email"`
	SenderName          *string     `json:"sender_name,omitempty"`
	Subject             string      `json:"subject"`
	Snippet             string      `json:"snippet"`
	ReceivedAt          *time.Time  `json:"received_at,omitempty"`
	SizeBytes           int64       `json:"size_bytes"`
	AISuggestion        Suggestion  `json:"ai_suggestion"`
	Reasoning           string      `json:"reasoning"`
	Confidence          float64     `json:"confidence"`
	UserDecision        *Suggestion `json:"user_decision,omitempty"`
	Category            string      `json:"category"`
	WantsUnsubscribe    bool        `json:"wants_unsubscribe"`
	HasUnsubscribe      bool        `json:"has_unsubscribe"`
	UnsubscribeURL      *string     `json:"unsubscribe_url,omitempty"`
	UnsubscribeMailto   *string     `json:"unsubscribe_mailto,omitempty"`
	UnsubscribeOneClick bool        `json:"unsubscribe_one_click"`
	CreatedAt           time.Time   `json:"created_at"`
}

// EffectiveDecision returns the user's decision where present, falling back
// to the AI suggestion.
func (i *ReviewItem) EffectiveDecision() Suggestion {
	if i.UserDecision != nil {
		return *i.UserDecision
	}
	return i.AISuggestion
}

// ConfirmationSummary is the frozen plan the user approves before execution.
// Once written to the session it never changes, even if decisions are edited
// afterwards; a new confirmation must be generated instead.
type ConfirmationSummary struct {
	ToDelete             int            `json:"to_delete"`
	ToKeep               int            `json:"to_keep"`
	BytesToFree          int64          `json:"bytes_to_free"`
	DeleteBySender       map[string]int `json:"delete_by_sender"`
	SendersToUnsubscribe []string       `json:"senders_to_unsubscribe"`
	FiltersToCreate      []string       `json:"filters_to_create"`
	GeneratedAt          time.Time      `json:"generated_at"`
}
