package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/saberlist/saberlist/internal/models"
	"github.com/saberlist/saberlist/internal/repositories"
	"github.com/saberlist/saberlist/internal/shared"
	"github.com/urfave/cli/v3"
)

// SongsList lists stored songs matching the given filters.
func (r *Runner) SongsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	filter := repositories.SongFilter{
		Mapper:   cmd.String("mapper"),
		MinStars: cmd.Float("min-stars"),
		Limit:    cmd.Int("limit"),
	}

	switch status := cmd.String("status"); status {
	case "":
	case string(models.StatusRanked), string(models.StatusUnranked):
		filter.Status = models.SongStatus(status)
	default:
		return fmt.Errorf("%w: status must be 'ranked' or 'unranked', got %q", shared.ErrInvalidFlag, status)
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	songs, err := repositories.NewSongRepository(db).List(ctx, filter)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(songs, true)
	}

	if len(songs) == 0 {
		r.writePlain("No songs found.\n")
		return nil
	}

	for _, song := range songs {
		marker := " "
		if song.Status == models.StatusUnranked {
			marker = "✗"
		}
		r.writePlain("%s %6.2f★  %-10d %s by %s\n", marker, song.Stars, song.UID, song.Name, song.Mapper)
	}
	r.writePlain("\n%d songs\n", len(songs))

	return nil
}

// RunsList lists recent sync runs, newest first.
func (r *Runner) RunsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := repositories.NewRunRepository(db).List(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, true)
	}

	if len(runs) == 0 {
		r.writePlain("No sync runs recorded yet.\n")
		return nil
	}

	for _, run := range runs {
		status := "✓"
		if run.Status == models.RunFailed {
			status = "✗"
		}
		r.writePlain("%s %s (%s)  pages=%d fetched=%d inserted=%d updated=%d unranked=%d\n",
			status,
			formatTime(run.StartedAt),
			humanize.Time(run.StartedAt),
			run.Outcome.Crawl.Pages,
			run.Outcome.Crawl.Fetched,
			run.Outcome.Inserted,
			run.Outcome.Updated,
			run.Outcome.Unranked,
		)
		if run.Error != "" {
			r.writePlain("    error: %s\n", run.Error)
		}
	}

	return nil
}
