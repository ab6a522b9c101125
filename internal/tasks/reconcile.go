package tasks

import (
	"context"
	"fmt"

	"github.com/saberlist/saberlist/internal/models"
)

const defaultBatchSize = 200

// Reconciler merges a crawl's song stream into persistent storage.
//
// Songs are buffered into bounded batches, each committed in one transaction.
// The seen set is scoped to a single reconciliation and discarded afterward:
// unranking decisions are tied strictly to one completed crawl. The caller
// must invoke Complete only after the stream finished cleanly; on an aborted
// crawl the reconciler is simply dropped, keeping committed batches and
// performing no unranking.
type Reconciler struct {
	store     SongStore
	batchSize int
	batch     []models.Song
	seen      map[int64]struct{}
	committed models.BatchResult
}

// NewReconciler creates a Reconciler committing through the given store.
func NewReconciler(store SongStore, batchSize int) *Reconciler {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Reconciler{
		store:     store,
		batchSize: batchSize,
		batch:     make([]models.Song, 0, batchSize),
		seen:      make(map[int64]struct{}),
	}
}

// Observe takes one song from the stream, marking it seen and committing a
// batch once the buffer is full.
func (r *Reconciler) Observe(ctx context.Context, song models.Song) error {
	r.seen[song.UID] = struct{}{}
	r.batch = append(r.batch, song)

	if len(r.batch) >= r.batchSize {
		return r.flush(ctx)
	}
	return nil
}

// Committed returns the counters of batches committed so far. After an
// aborted crawl these reflect exactly what storage kept.
func (r *Reconciler) Committed() models.BatchResult {
	return r.committed
}

// SeenCount returns the number of distinct songs observed this run.
func (r *Reconciler) SeenCount() int {
	return len(r.seen)
}

// Complete flushes the remaining batch and performs the unranking pass in a
// single separate transaction. Must only be called after the full stream was
// consumed without error; a partial crawl must never trigger mass unranking.
func (r *Reconciler) Complete(ctx context.Context) (*models.SyncOutcome, error) {
	if err := r.flush(ctx); err != nil {
		return nil, err
	}

	unranked, err := r.store.UnrankUnseen(ctx, r.seen)
	if err != nil {
		return nil, fmt.Errorf("unranking pass failed: %w", err)
	}

	return &models.SyncOutcome{
		Inserted:  r.committed.Inserted,
		Updated:   r.committed.Updated,
		Unchanged: r.committed.Unchanged,
		Unranked:  unranked,
	}, nil
}

func (r *Reconciler) flush(ctx context.Context) error {
	if len(r.batch) == 0 {
		return nil
	}

	result, err := r.store.UpsertBatch(ctx, r.batch)
	if err != nil {
		return fmt.Errorf("batch commit failed: %w", err)
	}

	r.committed.Add(result)
	r.batch = r.batch[:0]
	return nil
}
