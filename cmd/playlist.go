package main

import (
	"context"

	"github.com/saberlist/saberlist/internal/playlist"
	"github.com/saberlist/saberlist/internal/repositories"
	"github.com/urfave/cli/v3"
)

// PlaylistBuild derives the bplist playlist from local storage only.
func (r *Runner) PlaylistBuild(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	builder := playlist.NewBuilder(playlist.BuilderOpts{
		Songs:       repositories.NewSongRepository(db),
		Title:       r.config.Playlist.Title,
		Author:      r.config.Playlist.Author,
		Description: r.config.Playlist.Description,
	})

	output := cmd.String("output")
	if output == "" {
		pl, err := builder.Build(ctx)
		if err != nil {
			return err
		}
		return r.writeJSON(pl, cmd.Bool("pretty"))
	}

	pl, err := builder.Write(ctx, output)
	if err != nil {
		return err
	}

	r.logger.Info("playlist written", "path", output, "songs", len(pl.Songs))
	r.writePlain("Playlist written to %s (%d songs)\n", output, len(pl.Songs))
	return nil
}
