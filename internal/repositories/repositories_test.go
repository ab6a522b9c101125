package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/saberlist/saberlist/internal/models"
	"github.com/saberlist/saberlist/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func rankedSong(uid int64, name, hash string, stars float64) models.Song {
	return models.Song{
		UID:    uid,
		Name:   name,
		Mapper: "mapper",
		Hash:   hash,
		Stars:  stars,
		Status: models.StatusRanked,
	}
}

func TestSongRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("UpsertBatch", func(t *testing.T) {
		t.Run("Insert", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewSongRepository(db)
			result, err := repo.UpsertBatch(ctx, []models.Song{
				rankedSong(1, "One", "aa", 5.2),
				rankedSong(2, "Two", "bb", 7.8),
			})
			if err != nil {
				t.Fatalf("failed to upsert batch: %v", err)
			}

			if result.Inserted != 2 || result.Updated != 0 || result.Unchanged != 0 {
				t.Errorf("expected 2 inserted, got %+v", result)
			}

			song, err := repo.Get(ctx, 1)
			if err != nil {
				t.Fatalf("failed to get song: %v", err)
			}
			if song.Status != models.StatusRanked {
				t.Errorf("expected ranked status, got %s", song.Status)
			}
			if song.RankedAt.IsZero() {
				t.Error("ranked_at should be set on insert")
			}
		})

		t.Run("Unchanged Is Idempotent", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewSongRepository(db)
			batch := []models.Song{rankedSong(1, "One", "aa", 5.2)}

			if _, err := repo.UpsertBatch(ctx, batch); err != nil {
				t.Fatalf("failed to upsert batch: %v", err)
			}

			result, err := repo.UpsertBatch(ctx, batch)
			if err != nil {
				t.Fatalf("failed to upsert batch again: %v", err)
			}
			if result.Inserted != 0 || result.Updated != 0 || result.Unchanged != 1 {
				t.Errorf("expected 1 unchanged, got %+v", result)
			}
		})

		t.Run("Update On Field Drift", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewSongRepository(db)
			if _, err := repo.UpsertBatch(ctx, []models.Song{rankedSong(1, "One", "aa", 5.2)}); err != nil {
				t.Fatalf("failed to upsert batch: %v", err)
			}

			// Difficulty re-balance changes stars under the same UID.
			result, err := repo.UpsertBatch(ctx, []models.Song{rankedSong(1, "One", "aa", 6.0)})
			if err != nil {
				t.Fatalf("failed to upsert batch: %v", err)
			}
			if result.Updated != 1 {
				t.Errorf("expected 1 updated, got %+v", result)
			}

			song, err := repo.Get(ctx, 1)
			if err != nil {
				t.Fatalf("failed to get song: %v", err)
			}
			if song.Stars != 6.0 {
				t.Errorf("expected stars 6.0, got %f", song.Stars)
			}
		})

		t.Run("Restores Unranked Song", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewSongRepository(db)
			if _, err := repo.UpsertBatch(ctx, []models.Song{rankedSong(1, "One", "aa", 5.2)}); err != nil {
				t.Fatalf("failed to upsert batch: %v", err)
			}
			if _, err := repo.UnrankUnseen(ctx, map[int64]struct{}{}); err != nil {
				t.Fatalf("failed to unrank: %v", err)
			}

			result, err := repo.UpsertBatch(ctx, []models.Song{rankedSong(1, "One", "aa", 5.2)})
			if err != nil {
				t.Fatalf("failed to upsert batch: %v", err)
			}
			if result.Updated != 1 {
				t.Errorf("reappearing song should be updated back to ranked, got %+v", result)
			}

			song, err := repo.Get(ctx, 1)
			if err != nil {
				t.Fatalf("failed to get song: %v", err)
			}
			if song.Status != models.StatusRanked {
				t.Errorf("expected ranked status, got %s", song.Status)
			}
			if song.UnrankedAt != nil {
				t.Error("unranked_at should be cleared on restoration")
			}
		})

		t.Run("Persists Wire Metadata", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewSongRepository(db)
			song := rankedSong(1, "One", "aa", 5.2)
			song.Artist = "Artist"
			song.BPM = 180
			song.Diff = "_ExpertPlus_SoloStandard"

			if _, err := repo.UpsertBatch(ctx, []models.Song{song}); err != nil {
				t.Fatalf("failed to upsert batch: %v", err)
			}

			stored, err := repo.Get(ctx, 1)
			if err != nil {
				t.Fatalf("failed to get song: %v", err)
			}
			if stored.Artist != "Artist" || stored.BPM != 180 || stored.Diff != "_ExpertPlus_SoloStandard" {
				t.Errorf("wire metadata not persisted: %+v", stored)
			}

			// A BPM change alone is field drift and must update the row.
			song.BPM = 175
			result, err := repo.UpsertBatch(ctx, []models.Song{song})
			if err != nil {
				t.Fatalf("failed to upsert batch: %v", err)
			}
			if result.Updated != 1 {
				t.Errorf("expected bpm drift to update, got %+v", result)
			}
		})

		t.Run("Empty Batch", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewSongRepository(db)
			result, err := repo.UpsertBatch(ctx, nil)
			if err != nil {
				t.Fatalf("empty batch should succeed: %v", err)
			}
			if result != (models.BatchResult{}) {
				t.Errorf("expected zero result, got %+v", result)
			}
		})

		t.Run("Invalid Song Rejected", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewSongRepository(db)
			_, err := repo.UpsertBatch(ctx, []models.Song{{UID: 0, Hash: "aa", Status: models.StatusRanked}})
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	})

	t.Run("UnrankUnseen", func(t *testing.T) {
		t.Run("Flips Missing Songs", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewSongRepository(db)
			if _, err := repo.UpsertBatch(ctx, []models.Song{
				rankedSong(1, "One", "aa", 5.2),
				rankedSong(2, "Two", "bb", 7.8),
				rankedSong(3, "Three", "cc", 3.1),
			}); err != nil {
				t.Fatalf("failed to upsert batch: %v", err)
			}

			unranked, err := repo.UnrankUnseen(ctx, map[int64]struct{}{1: {}, 3: {}})
			if err != nil {
				t.Fatalf("failed to unrank: %v", err)
			}
			if unranked != 1 {
				t.Errorf("expected 1 unranked, got %d", unranked)
			}

			song, err := repo.Get(ctx, 2)
			if err != nil {
				t.Fatalf("failed to get song: %v", err)
			}
			if song.Status != models.StatusUnranked {
				t.Errorf("expected unranked status, got %s", song.Status)
			}
			if song.UnrankedAt == nil {
				t.Error("unranked_at should be set")
			}
		})

		t.Run("No Rows Deleted", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewSongRepository(db)
			if _, err := repo.UpsertBatch(ctx, []models.Song{rankedSong(1, "One", "aa", 5.2)}); err != nil {
				t.Fatalf("failed to upsert batch: %v", err)
			}
			if _, err := repo.UnrankUnseen(ctx, map[int64]struct{}{}); err != nil {
				t.Fatalf("failed to unrank: %v", err)
			}

			if _, err := repo.Get(ctx, 1); err != nil {
				t.Errorf("unranked song should still exist: %v", err)
			}
		})

		t.Run("Skips Already Unranked", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewSongRepository(db)
			if _, err := repo.UpsertBatch(ctx, []models.Song{rankedSong(1, "One", "aa", 5.2)}); err != nil {
				t.Fatalf("failed to upsert batch: %v", err)
			}
			if _, err := repo.UnrankUnseen(ctx, map[int64]struct{}{}); err != nil {
				t.Fatalf("failed to unrank: %v", err)
			}

			unranked, err := repo.UnrankUnseen(ctx, map[int64]struct{}{})
			if err != nil {
				t.Fatalf("failed to unrank: %v", err)
			}
			if unranked != 0 {
				t.Errorf("already unranked songs should not count again, got %d", unranked)
			}
		})

		t.Run("Empty Database", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewSongRepository(db)
			unranked, err := repo.UnrankUnseen(ctx, map[int64]struct{}{})
			if err != nil {
				t.Fatalf("failed to unrank: %v", err)
			}
			if unranked != 0 {
				t.Errorf("expected 0 unranked, got %d", unranked)
			}
		})
	})

	t.Run("Get Not Found", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSongRepository(db)
		_, err := repo.Get(ctx, 999)
		if !errors.Is(err, shared.ErrSongNotFound) {
			t.Errorf("expected ErrSongNotFound, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSongRepository(db)
		if _, err := repo.UpsertBatch(ctx, []models.Song{
			rankedSong(1, "One", "aa", 5.2),
			rankedSong(2, "Two", "bb", 7.8),
			rankedSong(3, "Three", "cc", 3.1),
		}); err != nil {
			t.Fatalf("failed to upsert batch: %v", err)
		}
		if _, err := repo.UnrankUnseen(ctx, map[int64]struct{}{1: {}, 2: {}}); err != nil {
			t.Fatalf("failed to unrank: %v", err)
		}

		t.Run("Ordered By Stars Descending", func(t *testing.T) {
			songs, err := repo.List(ctx, SongFilter{})
			if err != nil {
				t.Fatalf("failed to list songs: %v", err)
			}
			if len(songs) != 3 {
				t.Fatalf("expected 3 songs, got %d", len(songs))
			}
			for i := 1; i < len(songs); i++ {
				if songs[i].Stars > songs[i-1].Stars {
					t.Errorf("songs out of order at %d: %f > %f", i, songs[i].Stars, songs[i-1].Stars)
				}
			}
		})

		t.Run("Filter By Status", func(t *testing.T) {
			songs, err := repo.List(ctx, SongFilter{Status: models.StatusUnranked})
			if err != nil {
				t.Fatalf("failed to list songs: %v", err)
			}
			if len(songs) != 1 || songs[0].UID != 3 {
				t.Errorf("expected only song 3 unranked, got %+v", songs)
			}
		})

		t.Run("Filter By Min Stars", func(t *testing.T) {
			songs, err := repo.List(ctx, SongFilter{MinStars: 5.0})
			if err != nil {
				t.Fatalf("failed to list songs: %v", err)
			}
			if len(songs) != 2 {
				t.Errorf("expected 2 songs at or above 5.0 stars, got %d", len(songs))
			}
		})

		t.Run("Limit", func(t *testing.T) {
			songs, err := repo.List(ctx, SongFilter{Limit: 1})
			if err != nil {
				t.Fatalf("failed to list songs: %v", err)
			}
			if len(songs) != 1 {
				t.Fatalf("expected 1 song, got %d", len(songs))
			}
			if songs[0].UID != 2 {
				t.Errorf("expected hardest song first, got uid %d", songs[0].UID)
			}
		})

		t.Run("ListRanked", func(t *testing.T) {
			songs, err := repo.ListRanked(ctx)
			if err != nil {
				t.Fatalf("failed to list ranked songs: %v", err)
			}
			if len(songs) != 2 {
				t.Errorf("expected 2 ranked songs, got %d", len(songs))
			}
		})
	})

	t.Run("CountByStatus", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSongRepository(db)
		if _, err := repo.UpsertBatch(ctx, []models.Song{
			rankedSong(1, "One", "aa", 5.2),
			rankedSong(2, "Two", "bb", 7.8),
		}); err != nil {
			t.Fatalf("failed to upsert batch: %v", err)
		}
		if _, err := repo.UnrankUnseen(ctx, map[int64]struct{}{1: {}}); err != nil {
			t.Fatalf("failed to unrank: %v", err)
		}

		counts, err := repo.CountByStatus(ctx)
		if err != nil {
			t.Fatalf("failed to count songs: %v", err)
		}
		if counts[models.StatusRanked] != 1 || counts[models.StatusUnranked] != 1 {
			t.Errorf("unexpected counts: %+v", counts)
		}
	})
}

func TestRunRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Record And Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		finished := time.Now().UTC()
		run := &models.SyncRun{
			StartedAt:  finished.Add(-time.Minute),
			FinishedAt: &finished,
			Status:     models.RunCompleted,
			Outcome: models.SyncOutcome{
				Crawl:    models.CrawlStats{Pages: 3, Fetched: 2500, Duplicates: 2, StopReason: models.StopLastPage},
				Inserted: 10,
				Updated:  5,
				Unranked: 1,
			},
		}

		if err := repo.Record(ctx, run); err != nil {
			t.Fatalf("failed to record run: %v", err)
		}
		if run.ID == "" {
			t.Error("run ID should be generated when empty")
		}

		retrieved, err := repo.Get(ctx, run.ID)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if retrieved.Status != models.RunCompleted {
			t.Errorf("expected completed status, got %s", retrieved.Status)
		}
		if retrieved.Outcome.Crawl.Pages != 3 || retrieved.Outcome.Inserted != 10 {
			t.Errorf("outcome not preserved: %+v", retrieved.Outcome)
		}
		if retrieved.FinishedAt == nil {
			t.Error("finished_at should be preserved")
		}
	})

	t.Run("Invalid Status Rejected", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		err := repo.Record(ctx, &models.SyncRun{StartedAt: time.Now(), Status: "running"})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Get Not Found", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		_, err := repo.Get(ctx, "missing")
		if !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("List Newest First", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		base := time.Now().UTC()
		for i := 0; i < 3; i++ {
			run := &models.SyncRun{
				StartedAt: base.Add(time.Duration(i) * time.Hour),
				Status:    models.RunCompleted,
			}
			if err := repo.Record(ctx, run); err != nil {
				t.Fatalf("failed to record run %d: %v", i, err)
			}
		}

		runs, err := repo.List(ctx, 2)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(runs))
		}
		if !runs[0].StartedAt.After(runs[1].StartedAt) {
			t.Error("runs should be ordered newest first")
		}
	})

	t.Run("Failed Run Keeps Error", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := &models.SyncRun{
			StartedAt: time.Now().UTC(),
			Status:    models.RunFailed,
			Error:     "fetching page 2: transient fetch failure",
		}
		if err := repo.Record(ctx, run); err != nil {
			t.Fatalf("failed to record run: %v", err)
		}

		retrieved, err := repo.Get(ctx, run.ID)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if retrieved.Error != run.Error {
			t.Errorf("expected error %q, got %q", run.Error, retrieved.Error)
		}
	})
}
