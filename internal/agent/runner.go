package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/haris-cl/inbox-nuke/backend/internal/db"
	"github.com/haris-cl/inbox-nuke/backend/internal/mail"
	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pipelineSteps is the fixed per-sender stage order.
var pipelineSteps = []models.RunStep{
	models.StepSafety,
	models.StepUnsubscribe,
	models.StepFilter,
	models.StepDelete,
}

func stepIndex(step models.RunStep) int {
	for i, s := range pipelineSteps {
		if s == step {
			return i
		}
	}
	return 0
}

// RunOrchestrator drives an autonomous cleanup run: discovery, safety
// screening, unsubscribing, mute filters, and deletion, sender by sender.
// All progress lives in the database; the orchestrator holds no state of its
// own, so a crashed or paused run resumes exactly where its cursor points.
type RunOrchestrator struct {
	pool         *pgxpool.Pool
	client       mail.Client
	discoverer   *Discoverer
	unsubscriber *Unsubscriber
	filters      *FilterManager
	deleter      *Deleter
	budget       int
	logger       *log.Logger
}

// NewRunOrchestrator wires the pipeline over the given store, mail client,
// and SMTP submitter.
func NewRunOrchestrator(pool *pgxpool.Pool, client mail.Client, submitter MailSubmitter) *RunOrchestrator {
	return &RunOrchestrator{
		pool:         pool,
		client:       client,
		discoverer:   NewDiscoverer(pool, client),
		unsubscriber: NewUnsubscriber(submitter),
		filters:      NewFilterManager(client),
		deleter:      NewDeleter(client),
		budget:       DefaultDiscoveryBudget,
		logger:       log.New(log.Writer(), "[runner] ", log.LstdFlags),
	}
}

// Execute runs or resumes the given run until it completes, fails, or an
// operator pauses or cancels it through the API. Pause and cancel requests
// are observed at sender boundaries by re-reading the run status from the
// database.
func (o *RunOrchestrator) Execute(ctx context.Context, runID int64) error {
	run, err := db.GetRun(ctx, o.pool, runID)
	if err != nil {
		return err
	}

	if run.Status.Terminal() {
		return fmt.Errorf("run %d already finished with status %s", runID, run.Status)
	}

	if err := db.UpdateRunStatus(ctx, o.pool, runID, models.RunStatusRunning,
		models.RunStatusPending, models.RunStatusPaused); err != nil {
		return fmt.Errorf("run %d cannot start: %w", runID, err)
	}

	if err := o.run(ctx, run); err != nil {
		o.logger.Printf("run %d failed: %v", runID, err)
		if failErr := db.FailRun(ctx, o.pool, runID, err.Error()); failErr != nil {
			o.logger.Printf("could not record failure for run %d: %v", runID, failErr)
		}
		return err
	}

	return nil
}

func (o *RunOrchestrator) run(ctx context.Context, run *models.CleanupRun) error {
	runID := run.ID

	// First execution plans the run: discover senders, freeze their order.
	// Resumed runs keep the frozen order so pausing never reshuffles it.
	if len(run.SenderOrder) == 0 {
		o.logger.Printf("run %d: discovering senders", runID)
		if _, err := o.discoverer.Discover(ctx, o.budget); err != nil {
			return fmt.Errorf("discovery failed: %w", err)
		}

		senders, err := db.ListUnprocessedSenders(ctx, o.pool)
		if err != nil {
			return err
		}

		run.SenderOrder = PrioritizeSenders(senders)
		if err := db.SaveRunPlan(ctx, o.pool, runID, run.SenderOrder); err != nil {
			return err
		}
		o.logger.Printf("run %d: planned %d senders", runID, len(run.SenderOrder))
	}

	cursor := models.ProgressCursor{Step: models.StepSafety}
	if run.Cursor != nil {
		cursor = *run.Cursor
	}

	processed := run.SendersProcessed
	deleted := run.EmailsDeleted
	bytesFreed := run.BytesFreedEstimate

	save := func() error {
		return db.SaveRunCursor(ctx, o.pool, runID, &cursor, processed, deleted, bytesFreed)
	}

	for cursor.SenderIndex < len(run.SenderOrder) {
		stopped, err := o.shouldStop(ctx, runID)
		if err != nil {
			return err
		}
		if stopped {
			o.logger.Printf("run %d: stopping at sender %d/%d", runID, cursor.SenderIndex, len(run.SenderOrder))
			return save()
		}

		senderID := run.SenderOrder[cursor.SenderIndex]
		sender, err := db.GetSender(ctx, o.pool, senderID)
		if errors.Is(err, db.ErrSenderNotFound) {
			cursor = models.ProgressCursor{SenderIndex: cursor.SenderIndex + 1, Step: models.StepSafety}
			continue
		}
		if err != nil {
			return err
		}

		if sender.Processed {
			cursor = models.ProgressCursor{SenderIndex: cursor.SenderIndex + 1, Step: models.StepSafety}
			if err := save(); err != nil {
				return err
			}
			continue
		}

		result, err := o.processSender(ctx, runID, sender, &cursor, save)
		if err != nil {
			return err
		}

		deleted += result.EmailsDeleted
		bytesFreed += result.BytesFreed

		if err := db.MarkSenderProcessed(ctx, o.pool, sender.ID); err != nil {
			return err
		}
		processed++

		cursor = models.ProgressCursor{SenderIndex: cursor.SenderIndex + 1, Step: models.StepSafety}
		if err := save(); err != nil {
			return err
		}
	}

	if err := save(); err != nil {
		return err
	}

	if err := db.UpdateRunStatus(ctx, o.pool, runID, models.RunStatusCompleted, models.RunStatusRunning); err != nil {
		return err
	}

	o.logger.Printf("run %d: completed, %d senders processed, %d emails deleted", runID, processed, deleted)
	return nil
}

// processSender walks one sender through the pipeline, starting at the
// cursor's step. Every stage records its own audit row before the cursor
// moves past it; unsubscribe and filter failures are logged and recorded but
// never abort the run, only auth failures do.
func (o *RunOrchestrator) processSender(ctx context.Context, runID int64, sender *models.Sender, cursor *models.ProgressCursor, save func() error) (*CleanupResult, error) {
	result := &CleanupResult{}
	start := stepIndex(cursor.Step)

	advance := func(next int) error {
		if next < len(pipelineSteps) {
			cursor.Step = pipelineSteps[next]
		}
		return save()
	}

	for i := start; i < len(pipelineSteps); i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		switch pipelineSteps[i] {
		case models.StepSafety:
			verdict, err := o.checkSafety(ctx, sender)
			if err != nil {
				return result, err
			}
			if verdict.Protected {
				o.logger.Printf("run %d: skipping protected sender %s (%s)", runID, sender.Email, verdict.Reason)
				if _, err := db.RecordAction(ctx, o.pool, &models.CleanupAction{
					RunID:       runID,
					ActionType:  models.ActionSkip,
					SenderEmail: sender.Email,
					Notes:       "Protected: " + verdict.Reason,
				}); err != nil {
					return result, err
				}
				return result, nil
			}

		case models.StepUnsubscribe:
			if sender.UnsubscribeMethod != models.UnsubscribeNone && !sender.Unsubscribed {
				if err := o.unsubscribe(ctx, runID, sender); err != nil {
					return result, err
				}
			}

		case models.StepFilter:
			if sender.FilterID == nil {
				if err := o.muteFilter(ctx, runID, sender); err != nil {
					return result, err
				}
			}

		case models.StepDelete:
			cleanup, err := o.deleter.DeleteOldMessages(ctx, sender)
			if err != nil && mail.IsAuthError(err) {
				return result, err
			}
			if cleanup != nil {
				result.EmailsDeleted += cleanup.EmailsDeleted
				result.BytesFreed += cleanup.BytesFreed
			}

			action := &models.CleanupAction{
				RunID:       runID,
				ActionType:  models.ActionDelete,
				SenderEmail: sender.Email,
			}
			if cleanup != nil {
				action.EmailCount = cleanup.EmailsDeleted
				action.BytesFreed = cleanup.BytesFreed
			}
			if err != nil {
				action.ActionType = models.ActionError
				action.Notes = err.Error()
			} else {
				action.Notes = fmt.Sprintf("deleted messages older than %d days", RetentionWindowDays(sender.JunkScore))
			}
			if _, recErr := db.RecordAction(ctx, o.pool, action); recErr != nil {
				return result, recErr
			}
		}

		if err := advance(i + 1); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (o *RunOrchestrator) checkSafety(ctx context.Context, sender *models.Sender) (SafetyVerdict, error) {
	whitelist, err := db.ListWhitelistEntries(ctx, o.pool)
	if err != nil {
		return SafetyVerdict{}, err
	}
	return NewSafetyClassifier(whitelist).CheckSender(sender.Email), nil
}

func (o *RunOrchestrator) unsubscribe(ctx context.Context, runID int64, sender *models.Sender) error {
	method, err := o.unsubscriber.Unsubscribe(ctx, sender)

	action := &models.CleanupAction{
		RunID:       runID,
		ActionType:  models.ActionUnsubscribe,
		SenderEmail: sender.Email,
	}

	if err != nil {
		o.logger.Printf("run %d: unsubscribe failed for %s: %v", runID, sender.Email, err)
		action.ActionType = models.ActionSkip
		action.Notes = "unsubscribe failed: " + err.Error()
		_, recErr := db.RecordAction(ctx, o.pool, action)
		return recErr
	}

	if err := db.MarkSenderUnsubscribed(ctx, o.pool, sender.ID, time.Now().UTC()); err != nil {
		return err
	}
	sender.Unsubscribed = true

	action.Notes = fmt.Sprintf("unsubscribed via %s", method)
	_, recErr := db.RecordAction(ctx, o.pool, action)
	return recErr
}

func (o *RunOrchestrator) muteFilter(ctx context.Context, runID int64, sender *models.Sender) error {
	filterID, created, err := o.filters.EnsureMuteFilter(ctx, sender)

	action := &models.CleanupAction{
		RunID:       runID,
		ActionType:  models.ActionFilter,
		SenderEmail: sender.Email,
	}

	if err != nil {
		o.logger.Printf("run %d: filter creation failed for %s: %v", runID, sender.Email, err)
		if mail.IsAuthError(err) {
			return err
		}
		action.ActionType = models.ActionError
		action.Notes = err.Error()
		_, recErr := db.RecordAction(ctx, o.pool, action)
		return recErr
	}

	if err := db.SetSenderFilterID(ctx, o.pool, sender.ID, filterID); err != nil {
		return err
	}
	fid := filterID
	sender.FilterID = &fid

	if created {
		action.Notes = "created mute filter " + filterID
	} else {
		action.Notes = "reused existing filter " + filterID
	}
	_, recErr := db.RecordAction(ctx, o.pool, action)
	return recErr
}

// shouldStop re-reads the run status so pause and cancel requests made
// through the API take effect without any in-process signalling.
func (o *RunOrchestrator) shouldStop(ctx context.Context, runID int64) (bool, error) {
	status, err := db.GetRunStatus(ctx, o.pool, runID)
	if err != nil {
		return false, err
	}
	return status == models.RunStatusPaused || status == models.RunStatusCancelled, nil
}
