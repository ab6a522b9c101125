// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles initial setup: config file, database, migrations.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file, initialize the database and run migrations",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "force-config",
				Usage: "Overwrite the config file with defaults even if it exists",
			},
		},
		Action: r.Setup,
	}
}

// crawlCommand handles catalog crawling and reconciliation.
func crawlCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "crawl",
		Usage: "Crawl the ranked catalog",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Crawl the full catalog and reconcile it into local storage",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "max-pages",
						Usage: "Override the page ceiling for this run",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Fetch and report without writing to storage",
					},
					&cli.BoolFlag{
						Name:  "playlist",
						Usage: "Regenerate the playlist file after a successful sync",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Playlist output path (defaults to the configured one)",
					},
				},
				Action: r.CrawlRun,
			},
		},
	}
}

// playlistCommand handles playlist derivation from storage.
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlist",
		Usage: "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "Derive the bplist playlist from local storage (no network)",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path; prints to stdout when omitted",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.PlaylistBuild,
			},
		},
	}
}

// songsCommand handles queries over the stored catalog.
func songsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "songs",
		Usage: "Stored catalog operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List stored songs",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "status",
						Usage: "Filter by status (ranked or unranked)",
					},
					&cli.StringFlag{
						Name:  "mapper",
						Usage: "Filter by level author",
					},
					&cli.FloatFlag{
						Name:  "min-stars",
						Usage: "Minimum star difficulty",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of songs to return",
						Value: 50,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SongsList,
			},
		},
	}
}

// runsCommand handles sync run history.
func runsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Sync run history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent sync runs",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to return",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.RunsList,
			},
		},
	}
}
