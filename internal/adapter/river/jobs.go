package river

import (
	"database/sql"

	"github.com/riverqueue/river"
)

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// ModerationItemArgs is one bulk batch item. River serializes this as
// JSON into its job queue table; each item is an independent job, so
// retry and backoff apply per item, never per batch.
type ModerationItemArgs struct {
	BatchID       string `json:"batch_id"`
	TestimonialID string `json:"testimonial_id"`
	Action        string `json:"action"`
	Actor         string `json:"actor"`
	Reason        string `json:"reason,omitempty"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (ModerationItemArgs) Kind() string { return "moderation.item" }

// NotificationArgs asks the notification worker to deliver one
// templated message. It carries only the testimonial id; the worker
// loads the fresh record, so a stale snapshot is never mailed out.
type NotificationArgs struct {
	TestimonialID string `json:"testimonial_id"`
	Template      string `json:"template"`
	Actor         string `json:"actor"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (NotificationArgs) Kind() string { return "testimonial.notify" }
