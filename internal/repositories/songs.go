package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/saberlist/saberlist/internal/models"
	"github.com/saberlist/saberlist/internal/shared"
)

// unrankChunkSize bounds the IN clause of the unranking update.
const unrankChunkSize = 500

// SongRepository persists catalog songs keyed by leaderboard UID.
type SongRepository struct {
	db *sql.DB
}

// NewSongRepository creates a new SongRepository with the given database connection
func NewSongRepository(db *sql.DB) *SongRepository {
	return &SongRepository{db: db}
}

// SongFilter narrows a song listing. Zero values mean "no filter".
type SongFilter struct {
	Status   models.SongStatus
	Mapper   string
	MinStars float64
	Limit    int
}

// UpsertBatch applies one batch of crawled songs in a single transaction.
//
// Absent UIDs are inserted as ranked; present rows are updated only when a
// mutable field changed, which restores previously unranked songs to ranked.
// Unchanged rows are counted but not written, keeping reconciliation
// idempotent.
func (r *SongRepository) UpsertBatch(ctx context.Context, songs []models.Song) (models.BatchResult, error) {
	var result models.BatchResult
	if len(songs) == 0 {
		return result, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("%w: failed to begin transaction: %v", shared.ErrStorage, err)
	}
	defer tx.Rollback()

	selectStmt, err := tx.PrepareContext(ctx, `
		SELECT name, artist, mapper, beatmap_hash, bpm, diff, stars, status
		FROM songs
		WHERE uid = ?
	`)
	if err != nil {
		return result, fmt.Errorf("%w: failed to prepare lookup: %v", shared.ErrStorage, err)
	}
	defer selectStmt.Close()

	insertStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO songs (uid, name, artist, mapper, beatmap_hash, bpm, diff, stars, status, ranked_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return result, fmt.Errorf("%w: failed to prepare insert: %v", shared.ErrStorage, err)
	}
	defer insertStmt.Close()

	updateStmt, err := tx.PrepareContext(ctx, `
		UPDATE songs
		SET name = ?, artist = ?, mapper = ?, beatmap_hash = ?, bpm = ?, diff = ?, stars = ?, status = ?, updated_at = ?, unranked_at = NULL
		WHERE uid = ?
	`)
	if err != nil {
		return result, fmt.Errorf("%w: failed to prepare update: %v", shared.ErrStorage, err)
	}
	defer updateStmt.Close()

	now := time.Now().UTC()

	for _, song := range songs {
		if err := song.Validate(); err != nil {
			return result, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}

		var existing models.Song
		err := selectStmt.QueryRowContext(ctx, song.UID).Scan(
			&existing.Name, &existing.Artist, &existing.Mapper, &existing.Hash,
			&existing.BPM, &existing.Diff, &existing.Stars, &existing.Status,
		)

		switch {
		case err == sql.ErrNoRows:
			if _, err := insertStmt.ExecContext(ctx,
				song.UID, song.Name, song.Artist, song.Mapper, song.Hash, song.BPM, song.Diff, song.Stars,
				string(models.StatusRanked), now, now,
			); err != nil {
				return result, fmt.Errorf("%w: failed to insert song %d: %v", shared.ErrStorage, song.UID, err)
			}
			result.Inserted++

		case err != nil:
			return result, fmt.Errorf("%w: failed to look up song %d: %v", shared.ErrStorage, song.UID, err)

		case existing.Changed(song):
			if _, err := updateStmt.ExecContext(ctx,
				song.Name, song.Artist, song.Mapper, song.Hash, song.BPM, song.Diff, song.Stars,
				string(models.StatusRanked), now, song.UID,
			); err != nil {
				return result, fmt.Errorf("%w: failed to update song %d: %v", shared.ErrStorage, song.UID, err)
			}
			result.Updated++

		default:
			result.Unchanged++
		}
	}

	if err := tx.Commit(); err != nil {
		return models.BatchResult{}, fmt.Errorf("%w: failed to commit batch: %v", shared.ErrStorage, err)
	}

	return result, nil
}

// UnrankUnseen transitions every ranked row whose UID is not in the seen set
// to unranked, in a single all-or-nothing transaction. Rows are never deleted
// so previously emitted playlists keep resolving.
func (r *SongRepository) UnrankUnseen(ctx context.Context, seen map[int64]struct{}) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to begin transaction: %v", shared.ErrStorage, err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT uid FROM songs WHERE status = ?`, string(models.StatusRanked))
	if err != nil {
		return 0, fmt.Errorf("%w: failed to query ranked songs: %v", shared.ErrStorage, err)
	}

	var unseen []int64
	for rows.Next() {
		var uid int64
		if err := rows.Scan(&uid); err != nil {
			rows.Close()
			return 0, fmt.Errorf("%w: failed to scan uid: %v", shared.ErrStorage, err)
		}
		if _, ok := seen[uid]; !ok {
			unseen = append(unseen, uid)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("%w: row iteration error: %v", shared.ErrStorage, err)
	}
	rows.Close()

	now := time.Now().UTC()

	for start := 0; start < len(unseen); start += unrankChunkSize {
		end := start + unrankChunkSize
		if end > len(unseen) {
			end = len(unseen)
		}
		chunk := unseen[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		query := fmt.Sprintf(
			`UPDATE songs SET status = ?, unranked_at = ?, updated_at = ? WHERE uid IN (%s)`,
			placeholders,
		)

		args := make([]any, 0, len(chunk)+3)
		args = append(args, string(models.StatusUnranked), now, now)
		for _, uid := range chunk {
			args = append(args, uid)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("%w: failed to unrank songs: %v", shared.ErrStorage, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: failed to commit unranking: %v", shared.ErrStorage, err)
	}

	return len(unseen), nil
}

// Get retrieves a song by UID.
func (r *SongRepository) Get(ctx context.Context, uid int64) (*models.Song, error) {
	query := `
		SELECT uid, name, artist, mapper, beatmap_hash, bpm, diff, stars, status, ranked_at, updated_at, unranked_at
		FROM songs
		WHERE uid = ?
	`

	song, err := scanSong(r.db.QueryRowContext(ctx, query, uid))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: uid %d", shared.ErrSongNotFound, uid)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan song: %v", shared.ErrStorage, err)
	}

	return song, nil
}

// ListRanked retrieves all currently ranked songs in arbitrary order.
// Ordering is the playlist builder's concern.
func (r *SongRepository) ListRanked(ctx context.Context) ([]models.Song, error) {
	return r.List(ctx, SongFilter{Status: models.StatusRanked})
}

// List retrieves songs matching the given filter, ordered by stars descending.
func (r *SongRepository) List(ctx context.Context, filter SongFilter) ([]models.Song, error) {
	builder := sq.Select("uid", "name", "artist", "mapper", "beatmap_hash", "bpm", "diff", "stars", "status", "ranked_at", "updated_at", "unranked_at").
		From("songs").
		OrderBy("stars DESC", "uid ASC")

	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.Mapper != "" {
		builder = builder.Where(sq.Eq{"mapper": filter.Mapper})
	}
	if filter.MinStars > 0 {
		builder = builder.Where(sq.GtOrEq{"stars": filter.MinStars})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build query: %v", shared.ErrStorage, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query songs: %v", shared.ErrStorage, err)
	}
	defer rows.Close()

	var songs []models.Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan song: %v", shared.ErrStorage, err)
		}
		songs = append(songs, *song)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %v", shared.ErrStorage, err)
	}

	return songs, nil
}

// CountByStatus returns the number of stored songs per status.
func (r *SongRepository) CountByStatus(ctx context.Context) (map[models.SongStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM songs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to count songs: %v", shared.ErrStorage, err)
	}
	defer rows.Close()

	counts := make(map[models.SongStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("%w: failed to scan count: %v", shared.ErrStorage, err)
		}
		counts[models.SongStatus(status)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %v", shared.ErrStorage, err)
	}

	return counts, nil
}

// scanner abstracts sql.Row and sql.Rows for song scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanSong(row scanner) (*models.Song, error) {
	var (
		song       models.Song
		status     string
		unrankedAt sql.NullTime
	)

	err := row.Scan(
		&song.UID, &song.Name, &song.Artist, &song.Mapper, &song.Hash,
		&song.BPM, &song.Diff, &song.Stars,
		&status, &song.RankedAt, &song.UpdatedAt, &unrankedAt,
	)
	if err != nil {
		return nil, err
	}

	song.Status = models.SongStatus(status)
	if unrankedAt.Valid {
		song.UnrankedAt = &unrankedAt.Time
	}

	return &song, nil
}
