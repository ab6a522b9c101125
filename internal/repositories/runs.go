package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/saberlist/saberlist/internal/models"
	"github.com/saberlist/saberlist/internal/shared"
)

// RunRepository records the outcome of reconciliation passes.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Record inserts a finished sync run. A missing ID is generated.
func (r *RunRepository) Record(ctx context.Context, run *models.SyncRun) error {
	if run.ID == "" {
		run.ID = shared.GenerateID()
	}
	if run.Status != models.RunCompleted && run.Status != models.RunFailed {
		return fmt.Errorf("%w: invalid run status %q", shared.ErrInvalidInput, run.Status)
	}

	query := `
		INSERT INTO sync_runs (id, started_at, finished_at, pages, fetched, duplicates, inserted, updated, unchanged, unranked, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var finishedAt any
	if run.FinishedAt != nil {
		finishedAt = *run.FinishedAt
	}

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.StartedAt,
		finishedAt,
		run.Outcome.Crawl.Pages,
		run.Outcome.Crawl.Fetched,
		run.Outcome.Crawl.Duplicates,
		run.Outcome.Inserted,
		run.Outcome.Updated,
		run.Outcome.Unchanged,
		run.Outcome.Unranked,
		string(run.Status),
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert sync run: %v", shared.ErrStorage, err)
	}

	return nil
}

// Get retrieves a sync run by ID.
func (r *RunRepository) Get(ctx context.Context, id string) (*models.SyncRun, error) {
	query := `
		SELECT id, started_at, finished_at, pages, fetched, duplicates, inserted, updated, unchanged, unranked, status, error
		FROM sync_runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %s", shared.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan sync run: %v", shared.ErrStorage, err)
	}

	return run, nil
}

// List retrieves the most recent sync runs, newest first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]models.SyncRun, error) {
	query := `
		SELECT id, started_at, finished_at, pages, fetched, duplicates, inserted, updated, unchanged, unranked, status, error
		FROM sync_runs
		ORDER BY started_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query sync runs: %v", shared.ErrStorage, err)
	}
	defer rows.Close()

	var runs []models.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan sync run: %v", shared.ErrStorage, err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %v", shared.ErrStorage, err)
	}

	return runs, nil
}

func scanRun(row scanner) (*models.SyncRun, error) {
	var (
		run        models.SyncRun
		finishedAt sql.NullTime
		status     string
		runErr     sql.NullString
	)

	err := row.Scan(
		&run.ID,
		&run.StartedAt,
		&finishedAt,
		&run.Outcome.Crawl.Pages,
		&run.Outcome.Crawl.Fetched,
		&run.Outcome.Crawl.Duplicates,
		&run.Outcome.Inserted,
		&run.Outcome.Updated,
		&run.Outcome.Unchanged,
		&run.Outcome.Unranked,
		&status,
		&runErr,
	)
	if err != nil {
		return nil, err
	}

	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	run.Status = models.RunStatus(status)
	if runErr.Valid {
		run.Error = runErr.String
	}

	return &run, nil
}
