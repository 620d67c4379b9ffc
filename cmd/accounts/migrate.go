// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/accounts/pkg/errutil"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return newMigrateCmd(nil)
}

func newMigrateCmd(deps *MigrateDeps) *cobra.Command {
	if deps == nil {
		deps = &MigrateDeps{}
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = defaultMigratorFactory
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  `Apply, roll back or inspect the embedded PostgreSQL schema migrations.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator) error {
				if err := m.Up(); err != nil {
					return err //nolint:wrapcheck // migrator errors carry their own codes
				}
				version, _, err := m.Version()
				if err != nil {
					return err //nolint:wrapcheck // migrator errors carry their own codes
				}
				cmd.Printf("Schema is at version %d\n", version)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (drops all account data)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator) error {
				if err := m.Down(); err != nil {
					return err //nolint:wrapcheck // migrator errors carry their own codes
				}
				cmd.Println("All migrations rolled back")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the applied and pending migration versions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err //nolint:wrapcheck // migrator errors carry their own codes
				}
				pending, err := m.Pending()
				if err != nil {
					return err //nolint:wrapcheck // migrator errors carry their own codes
				}

				cmd.Printf("Version: %d\n", version)
				if dirty {
					cmd.Println("Dirty: true (the last migration failed partway; fix the schema before migrating)")
				}
				if len(pending) == 0 {
					cmd.Println("Pending: none")
					return nil
				}
				names := make([]string, len(pending))
				for i, v := range pending {
					names[i] = formatVersion(v)
				}
				cmd.Printf("Pending: %s\n", strings.Join(names, ", "))
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(cmd *cobra.Command, deps *MigrateDeps, fn func(Migrator) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			With("field", "database.url").
			Errorf("a database url is required (set DATABASE_URL or --database-url)")
	}

	migrator, err := deps.MigratorFactory(cfg.Database.URL)
	if err != nil {
		return err //nolint:wrapcheck // migrator errors carry their own codes
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			errutil.LogError(nil, "closing migrator", closeErr)
		}
	}()

	return fn(migrator)
}

func formatVersion(v uint) string {
	return fmt.Sprintf("%06d", v)
}
