package domain

import "time"

// EventKind distinguishes status transitions from response annotations.
type EventKind string

const (
	EventKindStatus   EventKind = "status"
	EventKindResponse EventKind = "response"
)

// TransitionEvent is the immutable record of a successful mutation.
// It is the only channel through which cache invalidation and
// statistics learn of changes; neither calls back into the store on
// the hot path, so the event carries the category and rating too.
type TransitionEvent struct {
	TestimonialID string
	Kind          EventKind
	Action        Action
	From          Status
	To            Status
	Actor         string
	CategoryID    string
	Rating        int
	OccurredAt    time.Time
}

// CrossesPublicBoundary reports whether the transition changes which
// public read paths the testimonial appears on. Transitions staying
// entirely inside the public set or entirely outside it do not force
// list-key invalidation.
func (e TransitionEvent) CrossesPublicBoundary() bool {
	return e.From.IsPublic() != e.To.IsPublic()
}
