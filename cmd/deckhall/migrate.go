// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/deckhall/deckhall/internal/config"
	"github.com/deckhall/deckhall/internal/store"
)

// NewMigrateCmd creates the migrate subcommand and its children. A nil
// factory opens store.Migrator.
func NewMigrateCmd(factory MigratorFactory) *cobra.Command {
	if factory == nil {
		factory = defaultMigratorFactory
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Run all pending database migrations against the PostgreSQL database.
The database URL comes from DATABASE_URL, --database-url or the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateUp(cmd, factory)
		},
	}
	config.RegisterFlags(cmd.PersistentFlags())

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateUp(cmd, factory)
		},
	}

	var confirmed bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration, dropping all tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirmed {
				return oops.Code("CONFIRMATION_REQUIRED").Errorf("migrate down drops all data; pass --yes to continue")
			}
			return withMigrator(cmd, factory, func(m Migrator) error {
				cmd.Println("Rolling back migrations...")
				if err := m.Down(); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "roll back migrations").Wrap(err)
				}
				cmd.Println("Rollback completed successfully")
				return nil
			})
		},
	}
	down.Flags().BoolVar(&confirmed, "yes", false, "confirm dropping all data")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, factory, func(m Migrator) error {
				st, err := m.Status()
				if err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "read migration status").Wrap(err)
				}
				printStatus(cmd, st)
				return nil
			})
		},
	}

	force := &cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied and clear the dirty flag",
		Long: `Record VERSION as the applied schema version without running any SQL.
Use it to recover after a failed migration left the schema dirty.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(cmd, factory, func(m Migrator) error {
				if err := m.Force(version); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "force version").With("version", version).Wrap(err)
				}
				cmd.Printf("Forced schema version to %d\n", version)
				return nil
			})
		},
	}

	cmd.AddCommand(up, down, status, force)
	return cmd
}

func runMigrateUp(cmd *cobra.Command, factory MigratorFactory) error {
	return withMigrator(cmd, factory, func(m Migrator) error {
		cmd.Println("Running migrations...")
		if err := m.Up(); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
		}
		cmd.Println("Migrations completed successfully")
		return nil
	})
}

// withMigrator loads the database URL, opens a migrator, runs fn and closes
// the migrator.
func withMigrator(cmd *cobra.Command, factory MigratorFactory, fn func(Migrator) error) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.ValidateDatabase(); err != nil {
		return err
	}

	cmd.Println("Connecting to database...")
	m, err := factory(cfg.Database.URL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "open migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			cmd.PrintErrf("warning: closing migrator: %v\n", closeErr)
		}
	}()

	return fn(m)
}

func printStatus(cmd *cobra.Command, st store.MigrationStatus) {
	current := "none"
	if st.Version > 0 {
		current = fmt.Sprintf("%d", st.Version)
		if name, err := store.MigrationName(st.Version); err == nil && name != "" {
			current = name
		}
	}
	cmd.Printf("Current version: %s\n", current)
	if st.Dirty {
		cmd.Println("Schema is DIRTY: fix the failed migration, then run 'deckhall migrate force VERSION'")
	}

	if len(st.Pending) == 0 {
		cmd.Println("Pending: none")
		return
	}
	pending := make([]string, 0, len(st.Pending))
	for _, v := range st.Pending {
		pending = append(pending, fmt.Sprintf("%d", v))
	}
	cmd.Printf("Pending: %s\n", strings.Join(pending, ", "))
}

// parseForceVersion reads the leading integer of s.
func parseForceVersion(s string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(s, "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Wrap(err)
	}
	return version, nil
}
