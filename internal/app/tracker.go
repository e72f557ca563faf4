package app

import (
	"errors"
	"sync"
	"time"

	"github.com/kudoware/kudos/internal/domain"
)

// ErrUnknownBatch is returned when a batch id has no tracked state.
var ErrUnknownBatch = errors.New("unknown batch")

// ItemFailure records one item's terminal failure inside a batch.
type ItemFailure struct {
	ID   string `json:"id"`
	Kind string `json:"error"`
}

// BatchStatus is the point-in-time view of a bulk batch. A batch is
// complete once every item has a terminal outcome: success, failure,
// or skipped after cancellation.
type BatchStatus struct {
	ID          string
	Action      domain.Action
	Total       int
	Succeeded   []string
	Failed      []ItemFailure
	Skipped     []string
	Pending     int
	Cancelled   bool
	Complete    bool
	SubmittedAt time.Time
}

type batch struct {
	id          string
	action      domain.Action
	total       int
	succeeded   []string
	failed      []ItemFailure
	skipped     []string
	cancelled   bool
	submittedAt time.Time

	done       chan struct{}
	onComplete func(BatchStatus)
}

func (b *batch) terminal() int {
	return len(b.succeeded) + len(b.failed) + len(b.skipped)
}

func (b *batch) status() BatchStatus {
	terminal := b.terminal()
	return BatchStatus{
		ID:          b.id,
		Action:      b.action,
		Total:       b.total,
		Succeeded:   append([]string(nil), b.succeeded...),
		Failed:      append([]ItemFailure(nil), b.failed...),
		Skipped:     append([]string(nil), b.skipped...),
		Pending:     b.total - terminal,
		Cancelled:   b.cancelled,
		Complete:    terminal >= b.total,
		SubmittedAt: b.submittedAt,
	}
}

// BatchTracker holds per-batch outcome state, written by queue workers
// and read by the polling API. In-memory: batch progress is
// observability state, not durable state; the jobs themselves live in
// the queue and survive restarts.
type BatchTracker struct {
	mu      sync.Mutex
	batches map[string]*batch
}

// NewBatchTracker creates an empty tracker.
func NewBatchTracker() *BatchTracker {
	return &BatchTracker{batches: make(map[string]*batch)}
}

// Register starts tracking a batch of total items. The optional
// onComplete callback fires once, when the last item goes terminal.
func (t *BatchTracker) Register(id string, action domain.Action, total int, onComplete func(BatchStatus)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.batches[id] = &batch{
		id:          id,
		action:      action,
		total:       total,
		submittedAt: time.Now().UTC(),
		done:        make(chan struct{}),
		onComplete:  onComplete,
	}
}

// RecordSuccess marks one item succeeded.
func (t *BatchTracker) RecordSuccess(batchID, itemID string) {
	t.record(batchID, func(b *batch) {
		b.succeeded = append(b.succeeded, itemID)
	})
}

// RecordFailure marks one item terminally failed with the given kind.
func (t *BatchTracker) RecordFailure(batchID, itemID, kind string) {
	t.record(batchID, func(b *batch) {
		b.failed = append(b.failed, ItemFailure{ID: itemID, Kind: kind})
	})
}

// RecordSkipped marks one item skipped due to cancellation.
func (t *BatchTracker) RecordSkipped(batchID, itemID string) {
	t.record(batchID, func(b *batch) {
		b.skipped = append(b.skipped, itemID)
	})
}

func (t *BatchTracker) record(batchID string, apply func(*batch)) {
	t.mu.Lock()
	b, ok := t.batches[batchID]
	if !ok {
		t.mu.Unlock()
		return
	}
	apply(b)

	var fire func(BatchStatus)
	var snapshot BatchStatus
	if b.terminal() >= b.total {
		select {
		case <-b.done:
			// Already closed; a duplicate delivery re-recorded an item.
		default:
			close(b.done)
			fire = b.onComplete
			snapshot = b.status()
		}
	}
	t.mu.Unlock()

	if fire != nil {
		fire(snapshot)
	}
}

// Cancel marks a batch cancelled. Items not yet picked up by a worker
// are skipped; items already running finish normally.
func (t *BatchTracker) Cancel(batchID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.batches[batchID]
	if !ok {
		return ErrUnknownBatch
	}
	b.cancelled = true
	return nil
}

// Cancelled reports whether the batch has been cancelled. Unknown
// batches read as cancelled so orphaned jobs do not run moderation.
func (t *BatchTracker) Cancelled(batchID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.batches[batchID]
	if !ok {
		return true
	}
	return b.cancelled
}

// Status returns the batch's current view.
func (t *BatchTracker) Status(batchID string) (BatchStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.batches[batchID]
	if !ok {
		return BatchStatus{}, ErrUnknownBatch
	}
	return b.status(), nil
}

// Done returns a channel closed when the batch completes.
func (t *BatchTracker) Done(batchID string) (<-chan struct{}, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.batches[batchID]
	if !ok {
		return nil, ErrUnknownBatch
	}
	return b.done, nil
}
