package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nar-st/motortest/internal/db"
)

func migrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate {up|down|status}",
		Short: "Manage the results ledger schema",
	}
	action := func(use, short string, fn func(*db.DB) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path := a.cfg.GetDatabasePath()
				if path == "" {
					return errors.New("results ledger is disabled: database_path is empty")
				}
				// Opened without migrating; the action owns the schema.
				d, err := db.OpenDB(path, a.log.Logger)
				if err != nil {
					return fmt.Errorf("open ledger %s: %w", path, err)
				}
				defer d.Close()
				if err := fn(d); err != nil {
					return err
				}
				return a.printVersion(d)
			},
		}
	}
	cmd.AddCommand(
		action("up", "Apply all pending migrations", func(d *db.DB) error {
			a.log.Info("Running migrations...")
			return d.MigrateUp(migrations)
		}),
		action("down", "Roll back one migration", func(d *db.DB) error {
			a.log.Info("Rolling back one migration...")
			return d.MigrateDown(migrations)
		}),
		action("status", "Show the current schema version", func(*db.DB) error { return nil }),
	)
	return cmd
}

func (a *app) printVersion(d *db.DB) error {
	version, dirty, err := d.MigrateVersion(migrations)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Current version: %d\n", version)
	fmt.Fprintf(a.stdout, "Dirty: %v\n", dirty)
	if dirty {
		fmt.Fprintln(a.stdout, "A migration failed mid-execution; inspect the database before retrying.")
	}
	return nil
}
