package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/saberlist/saberlist/internal/models"
	"github.com/saberlist/saberlist/internal/services"
	"github.com/saberlist/saberlist/internal/shared"
	"golang.org/x/time/rate"
)

const defaultMaxPages = 100

// SongStore defines the storage operations the engine needs.
// This abstraction allows for easier testing and decoupling from concrete implementation.
type SongStore interface {
	UpsertBatch(ctx context.Context, songs []models.Song) (models.BatchResult, error)
	UnrankUnseen(ctx context.Context, seen map[int64]struct{}) (int, error)
}

// RunStore records finished sync runs.
type RunStore interface {
	Record(ctx context.Context, run *models.SyncRun) error
}

// CrawlEngine orchestrates one crawl-then-reconcile run against a catalog.
//
// A run is sequential: page N+1 is not requested until page N's songs have
// been handed to the reconciler, keeping outstanding network concurrency at
// one in flight.
type CrawlEngine struct {
	catalog   services.Catalog
	songs     SongStore
	runs      RunStore
	logger    *log.Logger
	limiter   *rate.Limiter
	maxPages  int
	batchSize int
}

// EngineOpts contains configuration options for creating a CrawlEngine.
type EngineOpts struct {
	Catalog   services.Catalog
	Songs     SongStore
	Runs      RunStore // optional; runs are not recorded when nil
	Logger    *log.Logger
	MaxPages  int     // safety valve against pathological pagination
	BatchSize int     // songs per storage transaction
	RateLimit float64 // page requests per second, 0 disables pacing
}

// NewCrawlEngine creates a new CrawlEngine with the provided dependencies.
func NewCrawlEngine(opts EngineOpts) *CrawlEngine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaultMaxPages
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &CrawlEngine{
		catalog:   opts.Catalog,
		songs:     opts.Songs,
		runs:      opts.Runs,
		logger:    opts.Logger,
		limiter:   limiter,
		maxPages:  opts.MaxPages,
		batchSize: opts.BatchSize,
	}
}

// Crawl walks the catalog from page 0 and hands each song to emit in server
// page order. The stream is finite and non-restartable; any fetch failure
// aborts it.
//
// Within one crawl a UID is emitted at most once: pagination overlap caused
// by concurrent server-side re-ranking is dropped silently and counted.
func (e *CrawlEngine) Crawl(ctx context.Context, progress chan<- ProgressUpdate, emit func(models.Song) error) (*models.CrawlStats, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog service not initialized", shared.ErrInvalidInput)
	}

	stats := &models.CrawlStats{}
	emitted := make(map[int64]struct{})

	for page := 0; ; page++ {
		if page >= e.maxPages {
			stats.StopReason = models.StopMaxPages
			e.logger.Warn("crawl hit page ceiling", "max_pages", e.maxPages)
			break
		}

		// Cooperative cancellation point between page fetches. Committed
		// batches stay valid; the run is reported as aborted.
		select {
		case <-ctx.Done():
			return stats, fmt.Errorf("%w: %v", shared.ErrCrawlAborted, ctx.Err())
		default:
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return stats, fmt.Errorf("%w: %v", shared.ErrCrawlAborted, err)
			}
		}

		sendProgress(progress, fetchPageUpdate(page, stats.Fetched))

		result, err := e.catalog.RankedPage(ctx, page)
		if err != nil {
			return stats, fmt.Errorf("fetching page %d: %w", page, err)
		}
		stats.Pages++

		if len(result.Songs) == 0 {
			stats.StopReason = models.StopEmptyPage
			break
		}

		for _, raw := range result.Songs {
			if _, dup := emitted[raw.UID]; dup {
				stats.Duplicates++
				continue
			}
			emitted[raw.UID] = struct{}{}

			if err := emit(raw.Song()); err != nil {
				return stats, err
			}
			stats.Fetched++
		}

		e.logger.Debug("page crawled", "page", page, "songs", len(result.Songs), "last", result.Last)

		if result.Last {
			stats.StopReason = models.StopLastPage
			break
		}
	}

	return stats, nil
}

// Sync performs a full crawl-then-reconcile run and returns its outcome.
//
// Insert/update batches commit incrementally; the unranking pass runs only
// after the whole stream completed. A failed crawl keeps committed batches,
// performs no unranking, records a failed run and returns the error.
func (e *CrawlEngine) Sync(ctx context.Context, progress chan<- ProgressUpdate) (*models.SyncOutcome, error) {
	if e.songs == nil {
		return nil, fmt.Errorf("%w: song store not initialized", shared.ErrInvalidInput)
	}

	startedAt := time.Now().UTC()
	rec := NewReconciler(e.songs, e.batchSize)

	stats, err := e.Crawl(ctx, progress, func(song models.Song) error {
		return rec.Observe(ctx, song)
	})
	if err != nil {
		e.recordRun(ctx, startedAt, stats, rec.Committed(), 0, err)
		return nil, err
	}

	e.logger.Info("crawl complete",
		"pages", stats.Pages, "songs", stats.Fetched,
		"duplicates", stats.Duplicates, "stop", stats.StopReason)

	sendProgress(progress, reconcileUpdate(rec.SeenCount()))

	outcome, err := rec.Complete(ctx)
	if err != nil {
		e.recordRun(ctx, startedAt, stats, rec.Committed(), 0, err)
		return nil, err
	}
	outcome.Crawl = *stats

	sendProgress(progress, unrankUpdate(outcome.Unranked))
	e.recordRun(ctx, startedAt, stats, rec.Committed(), outcome.Unranked, nil)

	return outcome, nil
}

// recordRun persists the run outcome. Recording failures are logged, not
// propagated: the sync result matters more than its bookkeeping.
func (e *CrawlEngine) recordRun(ctx context.Context, startedAt time.Time, stats *models.CrawlStats, committed models.BatchResult, unranked int, runErr error) {
	if e.runs == nil {
		return
	}

	finishedAt := time.Now().UTC()
	run := models.SyncRun{
		StartedAt:  startedAt,
		FinishedAt: &finishedAt,
		Status:     models.RunCompleted,
		Outcome: models.SyncOutcome{
			Inserted:  committed.Inserted,
			Updated:   committed.Updated,
			Unchanged: committed.Unchanged,
			Unranked:  unranked,
		},
	}
	if stats != nil {
		run.Outcome.Crawl = *stats
	}
	if runErr != nil {
		run.Status = models.RunFailed
		run.Error = runErr.Error()
	}

	if err := e.runs.Record(ctx, &run); err != nil {
		e.logger.Error("failed to record sync run", "err", err)
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}
