package models

import (
	"fmt"
	"time"
)

// SongStatus describes whether a song is currently part of the ranked catalog.
type SongStatus string

const (
	StatusRanked   SongStatus = "ranked"
	StatusUnranked SongStatus = "unranked"
)

// Song is the canonical catalog entity, keyed by the ScoreSaber leaderboard UID.
//
// The UID is the single source of truth for identity: two fetches of the same
// UID merge into one stored row regardless of field drift (difficulty
// re-balances, renames). Multiple difficulties of the same map carry the same
// beatmap hash under different UIDs.
type Song struct {
	UID        int64      // Stable external identifier, unique
	Name       string     // Display name, including the sub name when present
	Artist     string     // Song author
	Mapper     string     // Level author
	Hash       string     // Beatmap content hash, lowercase hex
	BPM        int
	Diff       string     // Difficulty label as served by the API
	Stars      float64    // Star difficulty, the playlist sort key
	Status     SongStatus
	RankedAt   time.Time  // First sighting in a crawl
	UpdatedAt  time.Time
	UnrankedAt *time.Time // Set when the song drops out of a full crawl
}

// Validate checks if the song's data is valid and returns an error if not.
func (s Song) Validate() error {
	if s.UID <= 0 {
		return fmt.Errorf("song UID must be positive, got %d", s.UID)
	}
	if s.Hash == "" {
		return fmt.Errorf("song %d has no beatmap hash", s.UID)
	}
	if s.Status != StatusRanked && s.Status != StatusUnranked {
		return fmt.Errorf("song %d has invalid status %q", s.UID, s.Status)
	}
	return nil
}

// Changed reports whether any mutable field differs from the incoming song.
// Identity (UID) and bookkeeping timestamps are not compared.
func (s Song) Changed(incoming Song) bool {
	return s.Name != incoming.Name ||
		s.Artist != incoming.Artist ||
		s.Mapper != incoming.Mapper ||
		s.Hash != incoming.Hash ||
		s.BPM != incoming.BPM ||
		s.Diff != incoming.Diff ||
		s.Stars != incoming.Stars ||
		s.Status != incoming.Status
}

// Crawl termination reasons.
const (
	StopLastPage  = "last-page"
	StopEmptyPage = "empty-page"
	StopMaxPages  = "max-pages"
)

// CrawlStats describes a single paginated traversal of the remote catalog.
type CrawlStats struct {
	Pages      int    // Pages fetched
	Fetched    int    // Songs emitted downstream
	Duplicates int    // Songs dropped by in-crawl dedupe
	StopReason string // One of the Stop* reasons
}

// BatchResult holds the per-transaction counters of one upsert batch.
type BatchResult struct {
	Inserted  int
	Updated   int
	Unchanged int
}

// Add accumulates another batch into the receiver.
func (b *BatchResult) Add(other BatchResult) {
	b.Inserted += other.Inserted
	b.Updated += other.Updated
	b.Unchanged += other.Unchanged
}

// SyncOutcome is the result of one reconciliation pass.
//
// Running the same catalog through reconciliation twice yields a second
// outcome with zero inserted, updated and unranked songs.
type SyncOutcome struct {
	Crawl     CrawlStats
	Inserted  int
	Updated   int
	Unchanged int
	Unranked  int // Ranked rows not seen in this crawl, transitioned to unranked
}

// RunStatus is the terminal state of a recorded sync run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// SyncRun is the persisted record of one reconciliation pass.
type SyncRun struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Outcome    SyncOutcome
	Status     RunStatus
	Error      string // Failure cause for failed runs, empty otherwise
}
