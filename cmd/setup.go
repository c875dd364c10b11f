package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/livewatch/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase creates the database at the configured path and applies pending migrations.
//
// With --rollback it instead reverts the most recent migration.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	path := r.config.Database.Path
	r.logger.Info("initializing database", "path", path)

	db, err := shared.NewDatabase(path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if cmd.Bool("rollback") {
		if err := shared.RollbackMigration(ctx, db); err != nil {
			return err
		}
	} else {
		applied, err := shared.RunMigrations(ctx, db)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		r.logger.Info("migrations applied", "count", applied)
	}

	version, err := shared.CurrentVersion(ctx, db)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Database %s at version %d\n", path, version)
}

// SetupConfig writes the example config to the --config path. An existing file is left alone.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	if err := r.writePlain("✓ Wrote %s\n", path); err != nil {
		return err
	}
	return r.writePlain("Set twitch.client_id and twitch.client_secret, or LIVEWATCH_TWITCH_CLIENT_ID and LIVEWATCH_TWITCH_CLIENT_SECRET\n")
}
