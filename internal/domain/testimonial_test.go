package domain_test

import (
	"testing"
	"time"

	"github.com/kudoware/kudos/internal/domain"
)

func TestNewTestimonial(t *testing.T) {
	before := time.Now().UTC()
	tm := domain.NewTestimonial("id-1", "Ada", "ada@example.com", "Great service", 5, "cat-1", domain.SourceWebsite)
	after := time.Now().UTC()

	if tm.ID != "id-1" {
		t.Errorf("ID = %q, want %q", tm.ID, "id-1")
	}
	if tm.Status != domain.StatusPending {
		t.Errorf("Status = %q, want %q", tm.Status, domain.StatusPending)
	}
	if tm.Version != 1 {
		t.Errorf("Version = %d, want 1", tm.Version)
	}
	if tm.Rating != 5 {
		t.Errorf("Rating = %d, want 5", tm.Rating)
	}
	if tm.ApprovedAt != nil {
		t.Error("ApprovedAt should be nil on a new testimonial")
	}
	if tm.RejectionReason != "" {
		t.Errorf("RejectionReason = %q, want empty", tm.RejectionReason)
	}
	if tm.CreatedAt.Before(before) || tm.CreatedAt.After(after) {
		t.Errorf("CreatedAt = %v, want between %v and %v", tm.CreatedAt, before, after)
	}
	if tm.UpdatedAt != tm.CreatedAt {
		t.Error("UpdatedAt should equal CreatedAt on a new testimonial")
	}
}

func TestNewTestimonial_DefaultSource(t *testing.T) {
	tm := domain.NewTestimonial("id-1", "Ada", "", "text", 4, "", "")
	if tm.Source != domain.SourceWebsite {
		t.Errorf("Source = %q, want %q", tm.Source, domain.SourceWebsite)
	}
}

func TestStatus_IsPublic(t *testing.T) {
	public := map[domain.Status]bool{
		domain.StatusPending:  false,
		domain.StatusApproved: true,
		domain.StatusRejected: false,
		domain.StatusFeatured: true,
		domain.StatusArchived: false,
	}
	for status, want := range public {
		if got := status.IsPublic(); got != want {
			t.Errorf("%s.IsPublic() = %v, want %v", status, got, want)
		}
	}
}

func TestTransitions_AllBulkActionsHaveEntries(t *testing.T) {
	for _, action := range domain.BulkActions {
		found := false
		for _, tr := range domain.Transitions {
			if tr.Action == action {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("action %q has no transition defined", action)
		}
	}
}

func TestTransitions_ArchiveIsTerminal(t *testing.T) {
	for _, tr := range domain.Transitions {
		if tr.Src == domain.StatusArchived {
			t.Errorf("transition %q defined from archived; archived is terminal", tr.Action)
		}
	}
}

func TestTransitions_ArchiveFromEveryOtherStatus(t *testing.T) {
	sources := make(map[domain.Status]bool)
	for _, tr := range domain.Transitions {
		if tr.Action == domain.ActionArchive {
			sources[tr.Src] = true
		}
	}
	for _, status := range domain.Statuses {
		if status == domain.StatusArchived {
			continue
		}
		if !sources[status] {
			t.Errorf("archive not permitted from %q", status)
		}
	}
}

func TestTransitionEvent_CrossesPublicBoundary(t *testing.T) {
	tests := []struct {
		from, to domain.Status
		want     bool
	}{
		{domain.StatusPending, domain.StatusApproved, true},
		{domain.StatusApproved, domain.StatusRejected, true},
		{domain.StatusApproved, domain.StatusFeatured, false},
		{domain.StatusFeatured, domain.StatusArchived, true},
		{domain.StatusPending, domain.StatusRejected, false},
		{domain.StatusRejected, domain.StatusArchived, false},
	}
	for _, tt := range tests {
		event := domain.TransitionEvent{From: tt.from, To: tt.to}
		if got := event.CrossesPublicBoundary(); got != tt.want {
			t.Errorf("%s -> %s: CrossesPublicBoundary() = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
