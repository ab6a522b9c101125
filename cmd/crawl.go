package main

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/saberlist/saberlist/internal/models"
	"github.com/saberlist/saberlist/internal/playlist"
	"github.com/saberlist/saberlist/internal/repositories"
	"github.com/saberlist/saberlist/internal/tasks"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

// CrawlRun crawls the full ranked catalog and reconciles it into storage.
func (r *Runner) CrawlRun(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	songRepo := repositories.NewSongRepository(db)
	runRepo := repositories.NewRunRepository(db)
	engine := r.newEngine(songRepo, runRepo, cmd.Int("max-pages"))

	r.logger.Info("starting crawl", "base_url", r.config.ScoreSaber.BaseURL, "dry_run", cmd.Bool("dry-run"))

	bar := newCrawlBar()
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			if update.Phase == tasks.FetchPage {
				bar.Set(update.Count)
			}
		}
	}()

	if cmd.Bool("dry-run") {
		stats, err := engine.Crawl(ctx, progressCh, func(models.Song) error { return nil })
		close(progressCh)
		<-done
		bar.Finish()
		if err != nil {
			return err
		}

		r.writePlainHeader("Dry Run Complete")
		r.writeCrawlStats(stats)
		return nil
	}

	outcome, err := engine.Sync(ctx, progressCh)
	close(progressCh)
	<-done
	bar.Finish()

	if err != nil {
		return err
	}

	r.writePlainHeader("Sync Complete")
	r.writeCrawlStats(&outcome.Crawl)
	r.writePlain("Inserted:   %s\n", humanize.Comma(int64(outcome.Inserted)))
	r.writePlain("Updated:    %s\n", humanize.Comma(int64(outcome.Updated)))
	r.writePlain("Unchanged:  %s\n", humanize.Comma(int64(outcome.Unchanged)))
	r.writePlain("Unranked:   %s\n", humanize.Comma(int64(outcome.Unranked)))

	if cmd.Bool("playlist") {
		output := cmd.String("output")
		if output == "" {
			output = r.config.Playlist.Output
		}

		builder := playlist.NewBuilder(playlist.BuilderOpts{
			Songs:       songRepo,
			Title:       r.config.Playlist.Title,
			Author:      r.config.Playlist.Author,
			Description: r.config.Playlist.Description,
		})

		pl, err := builder.Write(ctx, output)
		if err != nil {
			return err
		}
		r.writePlain("\nPlaylist written to %s (%d songs)\n", output, len(pl.Songs))
	}

	return nil
}

func (r *Runner) writeCrawlStats(stats *models.CrawlStats) {
	r.writePlain("Pages:      %d (stopped: %s)\n", stats.Pages, stats.StopReason)
	r.writePlain("Fetched:    %s\n", humanize.Comma(int64(stats.Fetched)))
	r.writePlain("Duplicates: %d\n", stats.Duplicates)
}

func newCrawlBar() *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Crawling"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("songs"),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}
