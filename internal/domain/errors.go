package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrNotFound = errors.New("testimonial not found")
	// ErrPermissionDenied exists for the HTTP mapping; the capability
	// check itself happens in an authorization collaborator before a
	// request reaches this core.
	ErrPermissionDenied = errors.New("actor lacks moderation permission")
)

// ValidationError is returned when a required input is missing or out
// of range (empty rejection reason, empty response text, bad rating).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransitionError is returned when the current status does not permit
// the requested action.
type TransitionError struct {
	Action  Action
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("action %q is not valid from status %q", e.Action, e.Current)
}

// InvalidActionError is returned when a bulk request names an action
// outside the moderation vocabulary. Detected before any item is
// touched.
type InvalidActionError struct {
	Action string
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("unknown moderation action %q", e.Action)
}

// VersionConflictError is the optimistic-concurrency failure: the
// write's expected version no longer matches the stored version.
// The losing writer must reload and decide whether to retry.
type VersionConflictError struct {
	ID       string
	Expected int64
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("testimonial %q changed since version %d", e.ID, e.Expected)
}

// TransientError wraps infrastructure failures (store, cache, queue
// temporarily unavailable) that may succeed on a later attempt.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s temporarily unavailable: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsRetryable reports whether a failure may succeed if retried.
// Version conflicts qualify: in a bulk run they mean a concurrent
// editor won the race, and reloading picks up the fresh version.
func IsRetryable(err error) bool {
	var vc *VersionConflictError
	var tr *TransientError
	return errors.As(err, &vc) || errors.As(err, &tr)
}

// Failure kinds recorded in per-item bulk reports.
const (
	FailureValidation        = "validation"
	FailureInvalidTransition = "invalid_transition"
	FailureInvalidAction     = "invalid_action"
	FailureVersionConflict   = "version_conflict"
	FailureNotFound          = "not_found"
	FailureTransient         = "transient"
	FailurePermanent         = "permanent_failure"
	FailureInternal          = "internal"
)

// FailureKind maps an error to the stable name used in batch reports.
func FailureKind(err error) string {
	var ve *ValidationError
	var te *TransitionError
	var ae *InvalidActionError
	var vc *VersionConflictError
	var tr *TransientError
	switch {
	case errors.As(err, &ve):
		return FailureValidation
	case errors.As(err, &te):
		return FailureInvalidTransition
	case errors.As(err, &ae):
		return FailureInvalidAction
	case errors.As(err, &vc):
		return FailureVersionConflict
	case errors.Is(err, ErrNotFound):
		return FailureNotFound
	case errors.As(err, &tr):
		return FailureTransient
	default:
		return FailureInternal
	}
}
