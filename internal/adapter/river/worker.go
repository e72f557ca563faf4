package river

import (
	"context"
	"errors"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/kudoware/kudos/internal/app"
	"github.com/kudoware/kudos/internal/domain"
)

// ModerationItemWorker processes one bulk batch item per job. Terminal
// outcomes land in the batch tracker; retry scheduling stays with
// River: permanent failures are cancelled so they never retry,
// transient ones return the error and pick up River's exponential
// backoff until the attempt budget runs out.
type ModerationItemWorker struct {
	river.WorkerDefaults[ModerationItemArgs]

	svc     *app.ModerationService
	tracker *app.BatchTracker
}

// NewModerationItemWorker creates the worker for bulk batch items.
func NewModerationItemWorker(svc *app.ModerationService, tracker *app.BatchTracker) *ModerationItemWorker {
	return &ModerationItemWorker{svc: svc, tracker: tracker}
}

// Work processes a single batch item.
func (w *ModerationItemWorker) Work(ctx context.Context, job *river.Job[ModerationItemArgs]) error {
	args := job.Args

	if w.tracker.Cancelled(args.BatchID) {
		w.tracker.RecordSkipped(args.BatchID, args.TestimonialID)
		return nil
	}

	_, err := w.svc.Moderate(ctx, args.TestimonialID, domain.Action(args.Action), args.Actor, args.Reason)
	if err == nil {
		w.tracker.RecordSuccess(args.BatchID, args.TestimonialID)
		return nil
	}

	if !domain.IsRetryable(err) {
		w.tracker.RecordFailure(args.BatchID, args.TestimonialID, domain.FailureKind(err))
		slog.InfoContext(ctx, "batch item failed permanently",
			"batch_id", args.BatchID,
			"testimonial_id", args.TestimonialID,
			"kind", domain.FailureKind(err),
			"attempt", job.Attempt,
		)
		return river.JobCancel(err)
	}

	if job.Attempt >= job.MaxAttempts {
		// Last attempt; the transient failure is now terminal.
		w.tracker.RecordFailure(args.BatchID, args.TestimonialID, domain.FailurePermanent)
		slog.WarnContext(ctx, "batch item exhausted retries",
			"batch_id", args.BatchID,
			"testimonial_id", args.TestimonialID,
			"attempt", job.Attempt,
			"error", err,
		)
		return err
	}

	slog.InfoContext(ctx, "batch item will retry",
		"batch_id", args.BatchID,
		"testimonial_id", args.TestimonialID,
		"attempt", job.Attempt,
		"error", err,
	)
	return err
}

// NotificationWorker delivers queued notification jobs through the
// injected sender. It loads the testimonial at delivery time so the
// message reflects the record's current state.
type NotificationWorker struct {
	river.WorkerDefaults[NotificationArgs]

	store  domain.TestimonialStore
	sender domain.NotificationSender
}

// NewNotificationWorker creates the notification delivery worker.
func NewNotificationWorker(store domain.TestimonialStore, sender domain.NotificationSender) *NotificationWorker {
	return &NotificationWorker{store: store, sender: sender}
}

// Work delivers a single notification job.
func (w *NotificationWorker) Work(ctx context.Context, job *river.Job[NotificationArgs]) error {
	t, err := w.store.GetByID(ctx, job.Args.TestimonialID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Deleted out from under the queue; nothing to notify.
			return river.JobCancel(err)
		}
		return err
	}

	if t.AuthorEmail == "" {
		return nil
	}

	payload := map[string]string{
		"author_name":      t.AuthorName,
		"status":           string(t.Status),
		"actor":            job.Args.Actor,
		"rejection_reason": t.RejectionReason,
	}

	if err := w.sender.Send(ctx, job.Args.Template, t.AuthorEmail, payload); err != nil {
		return err
	}

	slog.InfoContext(ctx, "notification sent",
		"testimonial_id", t.ID,
		"template", job.Args.Template,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}

// LogSender is a NotificationSender that only logs. Stands in until a
// real mail or webhook sender is injected.
type LogSender struct{}

// Compile-time check: LogSender implements domain.NotificationSender.
var _ domain.NotificationSender = (*LogSender)(nil)

// Send logs the would-be delivery.
func (LogSender) Send(ctx context.Context, template, recipient string, payload map[string]string) error {
	slog.InfoContext(ctx, "notification",
		"template", template,
		"recipient", recipient,
		"status", payload["status"],
	)
	return nil
}
