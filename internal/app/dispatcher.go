package app

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/kudoware/kudos/internal/domain"
)

// JobHandle identifies a submitted bulk batch for polling.
type JobHandle struct {
	BatchID string
}

// BulkDispatcher partitions a bulk moderation request into independent
// per-item jobs on the queue and tracks partial success per batch. One
// item's failure never blocks or rolls back another's success.
type BulkDispatcher struct {
	enqueuer  domain.ItemEnqueuer
	tracker   *BatchTracker
	chunkSize int
	logger    *slog.Logger
}

// DefaultChunkSize bounds how many items go to the queue per insert,
// so large batches never arrive as one unbounded burst.
const DefaultChunkSize = 100

// NewBulkDispatcher creates a dispatcher. chunkSize <= 0 selects
// DefaultChunkSize.
func NewBulkDispatcher(enqueuer domain.ItemEnqueuer, tracker *BatchTracker, chunkSize int, logger *slog.Logger) *BulkDispatcher {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BulkDispatcher{
		enqueuer:  enqueuer,
		tracker:   tracker,
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// Submit validates the request eagerly and enqueues one job per id.
// An unknown action or a reject without a reason fails fast before any
// item is touched or any job exists. The optional onComplete callback
// fires once the final item reaches a terminal outcome.
func (d *BulkDispatcher) Submit(ctx context.Context, ids []string, action domain.Action, actor, reason string, onComplete func(BatchStatus)) (JobHandle, error) {
	if !slices.Contains(domain.BulkActions, action) {
		return JobHandle{}, &domain.InvalidActionError{Action: string(action)}
	}
	if action == domain.ActionReject && strings.TrimSpace(reason) == "" {
		return JobHandle{}, &domain.ValidationError{Field: "reason", Reason: "bulk reject requires a non-empty reason"}
	}
	if len(ids) == 0 {
		return JobHandle{}, &domain.ValidationError{Field: "ids", Reason: "must not be empty"}
	}

	batchID := uuid.NewString()
	d.tracker.Register(batchID, action, len(ids), onComplete)

	for chunk := range slices.Chunk(ids, d.chunkSize) {
		if err := d.enqueuer.EnqueueItems(ctx, batchID, chunk, action, actor, reason); err != nil {
			// The batch still reports item by item: a chunk that
			// never reached the queue records each id as a transient
			// failure rather than failing the whole group.
			d.logger.ErrorContext(ctx, "enqueue chunk failed",
				"batch_id", batchID,
				"items", len(chunk),
				"error", err,
			)
			for _, id := range chunk {
				d.tracker.RecordFailure(batchID, id, domain.FailureTransient)
			}
		}
	}

	d.logger.InfoContext(ctx, "bulk batch submitted",
		"batch_id", batchID,
		"action", action,
		"items", len(ids),
	)

	return JobHandle{BatchID: batchID}, nil
}

// Status returns the batch's per-item breakdown.
func (d *BulkDispatcher) Status(handle JobHandle) (BatchStatus, error) {
	return d.tracker.Status(handle.BatchID)
}

// Cancel marks the batch cancelled; queued items are skipped as their
// jobs surface, running items finish. Cooperative, not preemptive.
func (d *BulkDispatcher) Cancel(handle JobHandle) error {
	return d.tracker.Cancel(handle.BatchID)
}
