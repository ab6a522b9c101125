// package playlist derives the Beat Saber playlist artifact from storage.
//
// The playlist is disposable: regenerated wholesale on every run, never
// patched in place.
package playlist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/saberlist/saberlist/internal/models"
)

// RankedLister provides the ranked songs the playlist is derived from.
type RankedLister interface {
	ListRanked(ctx context.Context) ([]models.Song, error)
}

// Playlist is the external bplist representation consumed by Beat Saber
// playlist managers.
type Playlist struct {
	Title       string  `json:"playlistTitle"`
	Author      string  `json:"playlistAuthor"`
	Description string  `json:"playlistDescription"`
	Songs       []Entry `json:"songs"`
}

// Entry is one playlist song entry.
type Entry struct {
	Name   string  `json:"songName"`
	Hash   string  `json:"hash"`
	Mapper string  `json:"levelAuthorName"`
	Stars  float64 `json:"stars"`

	// uid of the difficulty that contributed the entry; kept for the
	// deterministic tie-break, not serialized.
	uid int64
}

// Builder renders playlists from the stored catalog.
type Builder struct {
	songs       RankedLister
	title       string
	author      string
	description string
}

// BuilderOpts contains configuration options for creating a Builder.
type BuilderOpts struct {
	Songs       RankedLister
	Title       string
	Author      string
	Description string
}

// NewBuilder creates a new playlist Builder.
func NewBuilder(opts BuilderOpts) *Builder {
	if opts.Title == "" {
		opts.Title = "ScoreSaber Ranked"
	}
	return &Builder{
		songs:       opts.Songs,
		title:       opts.Title,
		author:      opts.Author,
		description: opts.Description,
	}
}

// Build queries all ranked songs and derives a deterministic playlist:
// entries sorted by star difficulty descending, ties broken by UID ascending.
//
// Several difficulties of one map share a beatmap hash; the playlist carries
// one entry per hash, sorted by the hash's maximum stars. An empty ranked set
// yields an empty, still-valid playlist.
func (b *Builder) Build(ctx context.Context) (*Playlist, error) {
	songs, err := b.songs.ListRanked(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranked songs: %w", err)
	}

	byHash := make(map[string]Entry)
	for _, song := range songs {
		entry := Entry{
			Name:   song.Name,
			Hash:   song.Hash,
			Mapper: song.Mapper,
			Stars:  song.Stars,
			uid:    song.UID,
		}

		best, ok := byHash[song.Hash]
		if !ok || entry.Stars > best.Stars || (entry.Stars == best.Stars && entry.uid < best.uid) {
			byHash[song.Hash] = entry
		}
	}

	entries := make([]Entry, 0, len(byHash))
	for _, entry := range byHash {
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Stars != entries[j].Stars {
			return entries[i].Stars > entries[j].Stars
		}
		return entries[i].uid < entries[j].uid
	})

	return &Playlist{
		Title:       b.title,
		Author:      b.author,
		Description: b.description,
		Songs:       entries,
	}, nil
}

// Write builds the playlist and regenerates the file at path in full.
func (b *Builder) Write(ctx context.Context, path string) (*Playlist, error) {
	pl, err := b.Build(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(pl, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal playlist: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write playlist: %w", err)
	}

	return pl, nil
}
