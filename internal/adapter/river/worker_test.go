package river_test

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"testing"
	"time"

	goriver "github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	_ "modernc.org/sqlite"

	"github.com/kudoware/kudos/internal/adapter/fsm"
	riveradapter "github.com/kudoware/kudos/internal/adapter/river"
	"github.com/kudoware/kudos/internal/adapter/sqlite"
	"github.com/kudoware/kudos/internal/app"
	"github.com/kudoware/kudos/internal/domain"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := t.TempDir() + "/kudos_test.db"
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		t.Fatalf("setting WAL: %v", err)
	}

	return db
}

type fixture struct {
	store   *sqlite.TestimonialStore
	svc     *app.ModerationService
	tracker *app.BatchTracker
	worker  *riveradapter.ModerationItemWorker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := sqlite.NewFromDB(setupTestDB(t))
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	svc := app.NewModerationService(store, fsm.New(), app.NewBus(), true)
	tracker := app.NewBatchTracker()
	return &fixture{
		store:   store,
		svc:     svc,
		tracker: tracker,
		worker:  riveradapter.NewModerationItemWorker(svc, tracker),
	}
}

func (f *fixture) seed(t *testing.T, id string, status domain.Status) {
	t.Helper()
	tm := domain.NewTestimonial(id, "Ada", "ada@example.com", "Solid", 5, "", domain.SourceWebsite)
	tm.Status = status
	if err := f.store.Create(context.Background(), tm); err != nil {
		t.Fatalf("seeding %s: %v", id, err)
	}
}

func itemJob(batchID, testimonialID string, action domain.Action, attempt, maxAttempts int) *goriver.Job[riveradapter.ModerationItemArgs] {
	return &goriver.Job[riveradapter.ModerationItemArgs]{
		JobRow: &rivertype.JobRow{Attempt: attempt, MaxAttempts: maxAttempts},
		Args: riveradapter.ModerationItemArgs{
			BatchID:       batchID,
			TestimonialID: testimonialID,
			Action:        string(action),
			Actor:         "mod-1",
		},
	}
}

func TestModerationItemWorker_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, "t-1", domain.StatusPending)
	f.tracker.Register("b-1", domain.ActionApprove, 1, nil)

	if err := f.worker.Work(ctx, itemJob("b-1", "t-1", domain.ActionApprove, 1, 4)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status, err := f.tracker.Status("b-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(status.Succeeded, []string{"t-1"}) || !status.Complete {
		t.Errorf("status = %+v, want t-1 succeeded, complete", status)
	}

	stored, err := f.store.GetByID(ctx, "t-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Status != domain.StatusApproved {
		t.Errorf("Status = %q, want %q", stored.Status, domain.StatusApproved)
	}
}

func TestModerationItemWorker_SkipsCancelledBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, "t-1", domain.StatusPending)
	f.tracker.Register("b-1", domain.ActionApprove, 1, nil)
	if err := f.tracker.Cancel("b-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := f.worker.Work(ctx, itemJob("b-1", "t-1", domain.ActionApprove, 1, 4)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status, _ := f.tracker.Status("b-1")
	if !slices.Equal(status.Skipped, []string{"t-1"}) {
		t.Errorf("skipped = %v, want [t-1]", status.Skipped)
	}

	stored, _ := f.store.GetByID(ctx, "t-1")
	if stored.Status != domain.StatusPending {
		t.Errorf("Status = %q, cancelled items must not be moderated", stored.Status)
	}
}

func TestModerationItemWorker_InvalidTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, "t-1", domain.StatusArchived)
	f.tracker.Register("b-1", domain.ActionApprove, 1, nil)

	err := f.worker.Work(ctx, itemJob("b-1", "t-1", domain.ActionApprove, 1, 4))
	if err == nil {
		t.Fatal("expected an error to cancel the job")
	}
	var trErr *domain.TransitionError
	if !errors.As(err, &trErr) {
		t.Errorf("error = %v, want wrapped TransitionError", err)
	}

	status, _ := f.tracker.Status("b-1")
	if len(status.Failed) != 1 {
		t.Fatalf("failed = %v, want one entry", status.Failed)
	}
	if status.Failed[0].Kind != domain.FailureInvalidTransition {
		t.Errorf("failure kind = %q, want %q", status.Failed[0].Kind, domain.FailureInvalidTransition)
	}
	if !status.Complete {
		t.Error("single-item batch should be complete")
	}
}

func TestModerationItemWorker_NotFound(t *testing.T) {
	f := newFixture(t)

	f.tracker.Register("b-1", domain.ActionArchive, 1, nil)

	err := f.worker.Work(context.Background(), itemJob("b-1", "ghost", domain.ActionArchive, 1, 4))
	if err == nil {
		t.Fatal("expected an error to cancel the job")
	}

	status, _ := f.tracker.Status("b-1")
	if len(status.Failed) != 1 || status.Failed[0].Kind != domain.FailureNotFound {
		t.Errorf("failed = %v, want ghost/%s", status.Failed, domain.FailureNotFound)
	}
}

// brokenStore makes every write fail transiently.
type brokenStore struct {
	domain.TestimonialStore
}

func (s brokenStore) Update(context.Context, domain.Testimonial, int64) (domain.Testimonial, error) {
	return domain.Testimonial{}, &domain.TransientError{Op: "updating testimonial", Err: errors.New("database is locked")}
}

func TestModerationItemWorker_TransientFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, "t-1", domain.StatusPending)
	svc := app.NewModerationService(brokenStore{f.store}, fsm.New(), app.NewBus(), true)
	worker := riveradapter.NewModerationItemWorker(svc, f.tracker)

	f.tracker.Register("b-1", domain.ActionApprove, 1, nil)

	// Attempts remain: the job errors for a retry and nothing is terminal.
	if err := worker.Work(ctx, itemJob("b-1", "t-1", domain.ActionApprove, 1, 4)); err == nil {
		t.Fatal("expected an error to trigger a retry")
	}
	status, _ := f.tracker.Status("b-1")
	if status.Pending != 1 || status.Complete {
		t.Errorf("status = %+v, want still pending", status)
	}

	// Final attempt: the transient failure goes terminal.
	if err := worker.Work(ctx, itemJob("b-1", "t-1", domain.ActionApprove, 4, 4)); err == nil {
		t.Fatal("expected the final attempt to still error")
	}
	status, _ = f.tracker.Status("b-1")
	if len(status.Failed) != 1 || status.Failed[0].Kind != domain.FailurePermanent {
		t.Errorf("failed = %v, want t-1/%s", status.Failed, domain.FailurePermanent)
	}
	if !status.Complete {
		t.Error("batch should be complete after retries are exhausted")
	}
}

// sinkSender records deliveries for assertions.
type sinkSender struct {
	sent chan string
}

func (s *sinkSender) Send(_ context.Context, template, recipient string, _ map[string]string) error {
	s.sent <- template + ":" + recipient
	return nil
}

func TestNotificationWorker_Delivers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, "t-1", domain.StatusApproved)

	sender := &sinkSender{sent: make(chan string, 1)}
	worker := riveradapter.NewNotificationWorker(f.store, sender)

	job := &goriver.Job[riveradapter.NotificationArgs]{
		JobRow: &rivertype.JobRow{Attempt: 1, MaxAttempts: 4},
		Args: riveradapter.NotificationArgs{
			TestimonialID: "t-1",
			Template:      "testimonial_approved",
			Actor:         "mod-1",
		},
	}
	if err := worker.Work(ctx, job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case got := <-sender.sent:
		if got != "testimonial_approved:ada@example.com" {
			t.Errorf("delivery = %q, want approved template to ada", got)
		}
	default:
		t.Fatal("nothing was delivered")
	}
}

func TestNotificationWorker_SkipsMissingEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tm := domain.NewTestimonial("t-1", "Anon", "", "Fine", 3, "", domain.SourceOther)
	tm.Status = domain.StatusApproved
	if err := f.store.Create(ctx, tm); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	sender := &sinkSender{sent: make(chan string, 1)}
	worker := riveradapter.NewNotificationWorker(f.store, sender)

	job := &goriver.Job[riveradapter.NotificationArgs]{
		JobRow: &rivertype.JobRow{Attempt: 1, MaxAttempts: 4},
		Args:   riveradapter.NotificationArgs{TestimonialID: "t-1", Template: "testimonial_approved"},
	}
	if err := worker.Work(ctx, job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Error("no delivery expected without an author email")
	}
}

// End to end: a bulk batch flows dispatcher -> queue -> worker -> tracker.
func TestBulkBatch_EndToEnd(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	store, err := sqlite.NewFromDB(db)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	svc := app.NewModerationService(store, fsm.New(), app.NewBus(), true)
	tracker := app.NewBatchTracker()

	client, err := riveradapter.Setup(ctx, db, riveradapter.Config{MaxWorkers: 2}, svc, tracker, store, riveradapter.LogSender{})
	if err != nil {
		t.Fatalf("river setup: %v", err)
	}
	if err := client.Start(ctx); err != nil {
		t.Fatalf("river start: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Stop(stopCtx); err != nil {
			t.Errorf("river stop: %v", err)
		}
	})

	seedOne := func(id string, status domain.Status) {
		tm := domain.NewTestimonial(id, "Ada", "", "Good", 4, "", domain.SourceWebsite)
		tm.Status = status
		if err := store.Create(ctx, tm); err != nil {
			t.Fatalf("seeding %s: %v", id, err)
		}
	}
	seedOne("t-1", domain.StatusPending)
	seedOne("t-2", domain.StatusArchived) // approve will fail permanently
	seedOne("t-3", domain.StatusPending)

	dispatcher := app.NewBulkDispatcher(riveradapter.NewEnqueuer(client, 4), tracker, 0, nil)

	handle, err := dispatcher.Submit(ctx, []string{"t-1", "t-2", "t-3"}, domain.ActionApprove, "mod-1", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done, err := tracker.Done(handle.BatchID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for the batch")
	}

	status, err := dispatcher.Status(handle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(status.Succeeded) != 2 {
		t.Errorf("succeeded = %v, want t-1 and t-3", status.Succeeded)
	}
	if len(status.Failed) != 1 || status.Failed[0].ID != "t-2" {
		t.Fatalf("failed = %v, want just t-2", status.Failed)
	}
	if status.Failed[0].Kind != domain.FailureInvalidTransition {
		t.Errorf("failure kind = %q, want %q", status.Failed[0].Kind, domain.FailureInvalidTransition)
	}

	for _, id := range []string{"t-1", "t-3"} {
		stored, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stored.Status != domain.StatusApproved {
			t.Errorf("%s status = %q, want approved", id, stored.Status)
		}
	}
}
