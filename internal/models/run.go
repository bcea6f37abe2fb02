package models

import "time"

// RunStatus is the lifecycle state of a cleanup run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusPaused    RunStatus = "paused"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether the run can no longer make progress.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// RunStep identifies a stage of the per-sender pipeline. The cursor records
// the step that should execute next, so a resumed run never repeats a
// completed stage for the same sender.
type RunStep string

const (
	StepSafety      RunStep = "safety"
	StepUnsubscribe RunStep = "unsubscribe"
	StepFilter      RunStep = "filter"
	StepDelete      RunStep = "delete"
)

// ProgressCursor is the persisted resume point of a run: the index into the
// run's frozen sender order plus the next pipeline step for that sender.
type ProgressCursor struct {
	SenderIndex int     `json:"sender_index"`
	Step        RunStep `json:"step"`
}

// CleanupRun is one autonomous cleanup pass over the mailbox.
type CleanupRun struct {
	ID                 int64           `json:"id"`
	Status             RunStatus       `json:"status"`
	StartedAt          time.Time       `json:"started_at"`
	FinishedAt         *time.Time      `json:"finished_at,omitempty"`
	SendersTotal       int             `json:"senders_total"`
	SendersProcessed   int             `json:"senders_processed"`
	EmailsDeleted      int             `json:"emails_deleted"`
	BytesFreedEstimate int64           `json:"bytes_freed_estimate"`
	Cursor             *ProgressCursor `json:"progress_cursor,omitempty"`
	SenderOrder        []int64         `json:"-"`
	ErrorMessage       *string         `json:"error_message,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// ActionType categorizes an audit-log entry.
type ActionType string

const (
	ActionDelete      ActionType = "delete"
	ActionUnsubscribe ActionType = "unsubscribe"
	ActionFilter      ActionType = "filter"
	ActionSkip        ActionType = "skip"
	ActionError       ActionType = "error"
)

// CleanupAction is one append-only audit record. Every pipeline stage writes
// its own row before the run's cursor advances past it.
type CleanupAction struct {
	ID          int64      `json:"id"`
	RunID       int64      `json:"run_id"`
	ActionType  ActionType `json:"action_type"`
	SenderEmail string     `json:"sender_email"`
	EmailCount  int        `json:"email_count"`
	BytesFreed  int64      `json:"bytes_freed"`
	Notes       string     `json:"notes"`
	CreatedAt   time.Time  `json:"created_at"`
}
