package agent

import (
	"context"
	"errors"

	"github.com/haris-cl/inbox-nuke/backend/internal/db"
	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// recentActionCount bounds the audit-log tail included in progress reports.
const recentActionCount = 20

// RunProgress is the live view of a cleanup run for the dashboard.
type RunProgress struct {
	RunID            int64                   `json:"run_id"`
	Status           models.RunStatus        `json:"status"`
	SendersTotal     int                     `json:"senders_total"`
	SendersProcessed int                     `json:"senders_processed"`
	PercentComplete  float64                 `json:"percent_complete"`
	EmailsDeleted    int                     `json:"emails_deleted"`
	BytesFreed       int64                   `json:"bytes_freed_estimate"`
	CurrentSender    *string                 `json:"current_sender,omitempty"`
	CurrentStep      *models.RunStep         `json:"current_step,omitempty"`
	ErrorMessage     *string                 `json:"error_message,omitempty"`
	RecentActions    []*models.CleanupAction `json:"recent_actions"`
}

// MailboxSummary aggregates the stored state for the dashboard home view.
type MailboxSummary struct {
	Senders   *models.SenderStats  `json:"senders"`
	ActiveRun *models.CleanupRun   `json:"active_run,omitempty"`
	LastRuns  []*models.CleanupRun `json:"last_runs"`
}

// Reporter builds progress and summary views from the store. It is
// read-only: reporting never mutates run or session state.
type Reporter struct {
	pool *pgxpool.Pool
}

// NewReporter returns a Reporter over the given store.
func NewReporter(pool *pgxpool.Pool) *Reporter {
	return &Reporter{pool: pool}
}

// RunProgress reports where a run stands, including the sender and step the
// cursor points at and the tail of the audit log.
func (r *Reporter) RunProgress(ctx context.Context, runID int64) (*RunProgress, error) {
	run, err := db.GetRun(ctx, r.pool, runID)
	if err != nil {
		return nil, err
	}

	progress := &RunProgress{
		RunID:            run.ID,
		Status:           run.Status,
		SendersTotal:     run.SendersTotal,
		SendersProcessed: run.SendersProcessed,
		EmailsDeleted:    run.EmailsDeleted,
		BytesFreed:       run.BytesFreedEstimate,
		ErrorMessage:     run.ErrorMessage,
	}

	if run.SendersTotal > 0 {
		progress.PercentComplete = float64(run.SendersProcessed) / float64(run.SendersTotal) * 100
	}

	if run.Cursor != nil && !run.Status.Terminal() &&
		run.Cursor.SenderIndex < len(run.SenderOrder) {
		step := run.Cursor.Step
		progress.CurrentStep = &step

		sender, err := db.GetSender(ctx, r.pool, run.SenderOrder[run.Cursor.SenderIndex])
		if err == nil {
			email := sender.Email
			progress.CurrentSender = &email
		} else if !errors.Is(err, db.ErrSenderNotFound) {
			return nil, err
		}
	}

	actions, err := db.ListActionsForRun(ctx, r.pool, runID)
	if err != nil {
		return nil, err
	}
	if len(actions) > recentActionCount {
		actions = actions[len(actions)-recentActionCount:]
	}
	progress.RecentActions = actions

	return progress, nil
}

// Summary aggregates sender stats and recent runs for the dashboard.
func (r *Reporter) Summary(ctx context.Context) (*MailboxSummary, error) {
	stats, err := db.GetSenderStats(ctx, r.pool, JunkThreshold)
	if err != nil {
		return nil, err
	}

	summary := &MailboxSummary{Senders: stats}

	active, err := db.GetActiveRun(ctx, r.pool)
	if err != nil && !errors.Is(err, db.ErrRunNotFound) {
		return nil, err
	}
	summary.ActiveRun = active

	runs, err := db.ListRuns(ctx, r.pool, 5)
	if err != nil {
		return nil, err
	}
	summary.LastRuns = runs

	return summary, nil
}
