// package services defines interface Catalog for interacting with remote leaderboard APIs
package services

import (
	"context"
	"strings"

	"github.com/saberlist/saberlist/internal/models"
)

// Catalog defines the interface for a paginated remote song catalog.
//
// Pages must be requested in strictly increasing order starting at 0 for a
// given crawl; random access is not supported by implementations.
type Catalog interface {
	// RankedPage fetches one page of the ranked catalog.
	RankedPage(ctx context.Context, page int) (*RankedPage, error)

	// Name returns the name of the catalog service (e.g., "ScoreSaber")
	Name() string
}

// RawSong is the wire representation of one leaderboard entry.
//
// Field names follow the ScoreSaber get-leaderboards payload. The "id" field
// is the beatmap content hash, not the identity key; the leaderboard UID is.
type RawSong struct {
	UID         int64   `json:"uid"`
	Hash        string  `json:"id"`
	Name        string  `json:"name"`
	SubName     string  `json:"songSubName"`
	SongAuthor  string  `json:"songAuthorName"`
	LevelAuthor string  `json:"levelAuthorName"`
	BPM         int     `json:"bpm"`
	Diff        string  `json:"diff"`
	Stars       float64 `json:"stars"`
}

// RankedPage represents one decoded page of the ranked catalog.
type RankedPage struct {
	Songs []RawSong
	Last  bool // End-of-catalog signal, inferred from a short page
}

// Song normalizes a wire record into the domain entity: hash lowercased,
// sub name folded into the display name, level author as the mapper.
func (r RawSong) Song() models.Song {
	name := strings.TrimSpace(r.Name)
	if sub := strings.TrimSpace(r.SubName); sub != "" {
		name = name + " " + sub
	}

	return models.Song{
		UID:    r.UID,
		Name:   name,
		Artist: r.SongAuthor,
		Mapper: r.LevelAuthor,
		Hash:   strings.ToLower(r.Hash),
		BPM:    r.BPM,
		Diff:   r.Diff,
		Stars:  r.Stars,
		Status: models.StatusRanked,
	}
}
