package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kudoware/kudos/internal/domain"
)

// ModerationService is the authority on testimonial lifecycle
// correctness. Every mutation goes through it: transition validation,
// the optimistic version check, the moderation-field invariants, and
// the emission of the transition event.
type ModerationService struct {
	store     domain.TestimonialStore
	validator domain.TransitionValidator
	bus       *Bus

	// requireApproval controls the intake state: when off,
	// submissions are persisted directly as approved.
	requireApproval bool

	now func() time.Time
}

// NewModerationService creates a service with the given adapters.
func NewModerationService(store domain.TestimonialStore, validator domain.TransitionValidator, bus *Bus, requireApproval bool) *ModerationService {
	return &ModerationService{
		store:           store,
		validator:       validator,
		bus:             bus,
		requireApproval: requireApproval,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// SubmitInput carries a new testimonial submission.
type SubmitInput struct {
	AuthorName  string
	AuthorEmail string
	Content     string
	Rating      int
	CategoryID  string
	Source      domain.Source
}

// Submit persists a new testimonial. It starts pending, or approved
// when the approval requirement is configured off.
func (s *ModerationService) Submit(ctx context.Context, in SubmitInput) (domain.Testimonial, error) {
	if strings.TrimSpace(in.AuthorName) == "" {
		return domain.Testimonial{}, &domain.ValidationError{Field: "author_name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(in.Content) == "" {
		return domain.Testimonial{}, &domain.ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if in.Rating < 1 || in.Rating > domain.MaxRating {
		return domain.Testimonial{}, &domain.ValidationError{
			Field:  "rating",
			Reason: fmt.Sprintf("must be between 1 and %d", domain.MaxRating),
		}
	}

	t := domain.NewTestimonial(uuid.NewString(), in.AuthorName, in.AuthorEmail, in.Content, in.Rating, in.CategoryID, in.Source)

	from := t.Status
	if !s.requireApproval {
		now := s.now()
		t.Status = domain.StatusApproved
		t.ApprovedBy = "system"
		t.ApprovedAt = &now
	}

	if err := s.store.Create(ctx, t); err != nil {
		return domain.Testimonial{}, fmt.Errorf("creating testimonial: %w", err)
	}

	s.bus.Publish(ctx, domain.TransitionEvent{
		TestimonialID: t.ID,
		Kind:          domain.EventKindStatus,
		Action:        domain.ActionSubmit,
		From:          from,
		To:            t.Status,
		Actor:         in.AuthorName,
		CategoryID:    t.CategoryID,
		Rating:        t.Rating,
		OccurredAt:    s.now(),
	})

	return t, nil
}

// Approve moves a pending or rejected testimonial to approved, stamping
// the approval fields.
func (s *ModerationService) Approve(ctx context.Context, id string, expectedVersion int64, actor string) (domain.Testimonial, error) {
	return s.moderate(ctx, id, expectedVersion, domain.ActionApprove, actor, "")
}

// Reject moves a testimonial to rejected. The reason is mandatory and
// is the only place a rejection reason is ever written.
func (s *ModerationService) Reject(ctx context.Context, id string, expectedVersion int64, actor, reason string) (domain.Testimonial, error) {
	return s.moderate(ctx, id, expectedVersion, domain.ActionReject, actor, reason)
}

// Feature promotes an approved testimonial to the featured set.
func (s *ModerationService) Feature(ctx context.Context, id string, expectedVersion int64, actor string) (domain.Testimonial, error) {
	return s.moderate(ctx, id, expectedVersion, domain.ActionFeature, actor, "")
}

// Archive soft-hides a testimonial. Terminal; valid from any other status.
func (s *ModerationService) Archive(ctx context.Context, id string, expectedVersion int64, actor string) (domain.Testimonial, error) {
	return s.moderate(ctx, id, expectedVersion, domain.ActionArchive, actor, "")
}

// Moderate dispatches a bulk action by name, using the stored version
// as the expected version. The reload-then-apply shape means a version
// conflict here always signals a concurrent edit, which the bulk
// retry policy treats as transient.
func (s *ModerationService) Moderate(ctx context.Context, id string, action domain.Action, actor, reason string) (domain.Testimonial, error) {
	switch action {
	case domain.ActionApprove, domain.ActionReject, domain.ActionFeature, domain.ActionArchive:
		return s.moderate(ctx, id, currentVersion, action, actor, reason)
	default:
		return domain.Testimonial{}, &domain.InvalidActionError{Action: string(action)}
	}
}

// Respond attaches an official response. Status never changes, but the
// version still bumps and a response-kind event is emitted.
func (s *ModerationService) Respond(ctx context.Context, id string, expectedVersion int64, actor, response string) (domain.Testimonial, error) {
	if strings.TrimSpace(response) == "" {
		return domain.Testimonial{}, &domain.ValidationError{Field: "response", Reason: "must not be empty"}
	}

	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domain.Testimonial{}, err
	}
	if expectedVersion != currentVersion && expectedVersion != t.Version {
		return domain.Testimonial{}, &domain.VersionConflictError{ID: id, Expected: expectedVersion}
	}

	now := s.now()
	t.Response = response
	t.ResponseBy = actor
	t.ResponseAt = &now

	updated, err := s.store.Update(ctx, t, t.Version)
	if err != nil {
		return domain.Testimonial{}, err
	}

	s.bus.Publish(ctx, domain.TransitionEvent{
		TestimonialID: updated.ID,
		Kind:          domain.EventKindResponse,
		Action:        domain.ActionRespond,
		From:          updated.Status,
		To:            updated.Status,
		Actor:         actor,
		CategoryID:    updated.CategoryID,
		Rating:        updated.Rating,
		OccurredAt:    now,
	})

	return updated, nil
}

// currentVersion tells moderate to trust whatever version is stored
// instead of checking against a caller-supplied one.
const currentVersion int64 = -1

func (s *ModerationService) moderate(ctx context.Context, id string, expectedVersion int64, action domain.Action, actor, reason string) (domain.Testimonial, error) {
	if action == domain.ActionReject && strings.TrimSpace(reason) == "" {
		return domain.Testimonial{}, &domain.ValidationError{Field: "reason", Reason: "rejection requires a non-empty reason"}
	}

	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domain.Testimonial{}, err
	}
	if expectedVersion != currentVersion && expectedVersion != t.Version {
		// Fail before validating the transition so a stale caller
		// reloads instead of acting on an outdated status.
		return domain.Testimonial{}, &domain.VersionConflictError{ID: id, Expected: expectedVersion}
	}

	from := t.Status
	to, err := s.validator.Apply(ctx, from, action)
	if err != nil {
		return domain.Testimonial{}, err
	}

	now := s.now()
	switch action {
	case domain.ActionApprove:
		t.ApprovedBy = actor
		t.ApprovedAt = &now
		t.RejectionReason = ""
	case domain.ActionReject:
		t.RejectionReason = reason
		t.ApprovedBy = ""
		t.ApprovedAt = nil
	case domain.ActionFeature:
		// Approval fields carry over from the approved state.
	case domain.ActionArchive:
		t.ApprovedBy = ""
		t.ApprovedAt = nil
		t.RejectionReason = ""
	}
	t.Status = to

	updated, err := s.store.Update(ctx, t, t.Version)
	if err != nil {
		return domain.Testimonial{}, err
	}

	s.bus.Publish(ctx, domain.TransitionEvent{
		TestimonialID: updated.ID,
		Kind:          domain.EventKindStatus,
		Action:        action,
		From:          from,
		To:            to,
		Actor:         actor,
		CategoryID:    updated.CategoryID,
		Rating:        updated.Rating,
		OccurredAt:    now,
	})

	return updated, nil
}
