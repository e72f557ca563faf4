package domain

import (
	"context"
	"time"
)

// TestimonialStore defines the persistence contract. Update is a
// compare-and-set: it applies the given record only while the stored
// version still equals expectedVersion, returning the persisted record
// with its incremented version, or a VersionConflictError.
type TestimonialStore interface {
	Create(ctx context.Context, t Testimonial) error
	GetByID(ctx context.Context, id string) (Testimonial, error)
	Update(ctx context.Context, t Testimonial, expectedVersion int64) (Testimonial, error)
	List(ctx context.Context, filter ListFilter) ([]Testimonial, error)
	Aggregate(ctx context.Context, policy StatsPolicy) (Aggregate, error)
}

// ListFilter holds optional criteria for listing testimonials.
type ListFilter struct {
	Status     *Status
	CategoryID string
	Limit      int
	Offset     int
}

// Cache defines the key/value contract consumed by the coordinator and
// the read paths. DeleteMatching removes every key matching a glob
// pattern and reports how many were dropped.
type Cache interface {
	Get(ctx context.Context, key string) (any, bool)
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	Delete(ctx context.Context, key string)
	DeleteMatching(ctx context.Context, pattern string) int
}

// TransitionValidator checks whether an action is permitted from the
// current status and yields the destination status.
type TransitionValidator interface {
	Apply(ctx context.Context, current Status, action Action) (Status, error)
}

// TransitionSubscriber receives every transition event, synchronously,
// in registration order, before the mutating call returns.
type TransitionSubscriber interface {
	OnTransition(ctx context.Context, event TransitionEvent)
}

// ItemEnqueuer routes bulk batch items onto the durable job queue.
// Implemented by the river adapter; every id becomes one independent
// job with the queue's retry policy attached.
type ItemEnqueuer interface {
	EnqueueItems(ctx context.Context, batchID string, ids []string, action Action, actor, reason string) error
}

// NotificationSender delivers a templated notification. Only ever
// invoked from queued jobs, never inline from the moderation path.
type NotificationSender interface {
	Send(ctx context.Context, template, recipient string, payload map[string]string) error
}
