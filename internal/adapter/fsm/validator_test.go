package fsm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kudoware/kudos/internal/adapter/fsm"
	"github.com/kudoware/kudos/internal/domain"
)

func TestApply_ValidTransitions(t *testing.T) {
	validator := fsm.New()
	ctx := context.Background()

	for _, tr := range domain.Transitions {
		got, err := validator.Apply(ctx, tr.Src, tr.Action)
		if err != nil {
			t.Errorf("%s from %s: unexpected error: %v", tr.Action, tr.Src, err)
			continue
		}
		if got != tr.Dst {
			t.Errorf("%s from %s = %q, want %q", tr.Action, tr.Src, got, tr.Dst)
		}
	}
}

func TestApply_InvalidTransitions(t *testing.T) {
	validator := fsm.New()
	ctx := context.Background()

	tests := []struct {
		current domain.Status
		action  domain.Action
	}{
		{domain.StatusApproved, domain.ActionApprove}, // strict: not a no-op
		{domain.StatusFeatured, domain.ActionApprove},
		{domain.StatusPending, domain.ActionFeature},
		{domain.StatusRejected, domain.ActionFeature},
		{domain.StatusArchived, domain.ActionApprove},
		{domain.StatusArchived, domain.ActionReject},
		{domain.StatusArchived, domain.ActionFeature},
		{domain.StatusArchived, domain.ActionArchive},
	}

	for _, tt := range tests {
		_, err := validator.Apply(ctx, tt.current, tt.action)
		if err == nil {
			t.Errorf("%s from %s: expected error, got nil", tt.action, tt.current)
			continue
		}

		var trErr *domain.TransitionError
		if !errors.As(err, &trErr) {
			t.Errorf("%s from %s: error type = %T, want *domain.TransitionError", tt.action, tt.current, err)
			continue
		}
		if trErr.Action != tt.action || trErr.Current != tt.current {
			t.Errorf("error = %v, want action %q from %q", trErr, tt.action, tt.current)
		}
	}
}

func TestApply_UnknownAction(t *testing.T) {
	validator := fsm.New()

	_, err := validator.Apply(context.Background(), domain.StatusPending, "promote")
	var trErr *domain.TransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("error type = %T, want *domain.TransitionError", err)
	}
}
