package main

import (
	"context"
	"fmt"
	"os"

	"github.com/saberlist/saberlist/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file if missing, opens the database and applies migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	_, statErr := os.Stat(path)
	if os.IsNotExist(statErr) || cmd.Bool("force-config") {
		if statErr == nil {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to replace config file: %w", err)
			}
		}
		if err := shared.CreateConfigFile(path); err != nil {
			return err
		}
		r.logger.Info("config file created", "path", path)
		r.writePlain("Created %s, adjust it before the first crawl if needed.\n", path)
	}

	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	r.logger.Info("database ready", "path", r.config.Database.Path)
	r.writePlain("Database initialized at %s\n", r.config.Database.Path)
	return nil
}
