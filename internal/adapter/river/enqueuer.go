package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/kudoware/kudos/internal/domain"
)

// Compile-time check: Enqueuer implements domain.ItemEnqueuer.
var _ domain.ItemEnqueuer = (*Enqueuer)(nil)

// Enqueuer routes bulk batch items onto the River queue, one job per
// id, each with the bounded retry budget attached.
type Enqueuer struct {
	client      *Client
	maxAttempts int
}

// NewEnqueuer creates an enqueuer backed by the given River client.
// maxAttempts bounds retries per item; <= 0 selects River's default.
func NewEnqueuer(client *Client, maxAttempts int) *Enqueuer {
	return &Enqueuer{client: client, maxAttempts: maxAttempts}
}

// EnqueueItems inserts one job per id in a single round trip.
func (e *Enqueuer) EnqueueItems(ctx context.Context, batchID string, ids []string, action domain.Action, actor, reason string) error {
	params := make([]river.InsertManyParams, len(ids))
	for i, id := range ids {
		params[i] = river.InsertManyParams{
			Args: ModerationItemArgs{
				BatchID:       batchID,
				TestimonialID: id,
				Action:        string(action),
				Actor:         actor,
				Reason:        reason,
			},
		}
		if e.maxAttempts > 0 {
			params[i].InsertOpts = &river.InsertOpts{MaxAttempts: e.maxAttempts}
		}
	}

	if _, err := e.client.InsertMany(ctx, params); err != nil {
		return &domain.TransientError{Op: "enqueuing batch items", Err: err}
	}
	return nil
}

// NotificationEnqueuer subscribes to the transition-event bus and
// enqueues a notification job for every moderation decision. Delivery
// itself happens in the worker, never inline; a broken notifier can
// not corrupt moderation state.
type NotificationEnqueuer struct {
	client *Client
}

// Compile-time check: NotificationEnqueuer implements domain.TransitionSubscriber.
var _ domain.TransitionSubscriber = (*NotificationEnqueuer)(nil)

// NewNotificationEnqueuer creates a bus subscriber backed by the queue.
func NewNotificationEnqueuer(client *Client) *NotificationEnqueuer {
	return &NotificationEnqueuer{client: client}
}

// templates maps decision outcomes to notification templates.
var templates = map[domain.Status]string{
	domain.StatusApproved: "testimonial_approved",
	domain.StatusRejected: "testimonial_rejected",
	domain.StatusFeatured: "testimonial_featured",
}

// OnTransition enqueues the matching notification job, if any.
func (n *NotificationEnqueuer) OnTransition(ctx context.Context, event domain.TransitionEvent) {
	if event.Kind != domain.EventKindStatus || event.Action == domain.ActionSubmit {
		return
	}
	template, ok := templates[event.To]
	if !ok {
		return
	}

	_, err := n.client.Insert(ctx, NotificationArgs{
		TestimonialID: event.TestimonialID,
		Template:      template,
		Actor:         event.Actor,
	}, nil)
	if err != nil {
		// Dropping a notification must not fail the transition.
		slog.ErrorContext(ctx, "enqueuing notification",
			"testimonial_id", event.TestimonialID,
			"template", template,
			"error", err,
		)
	}
}
