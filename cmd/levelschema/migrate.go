package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tordrt/levelschema/internal/migrations"
)

func newMigrateCmd(a *app) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Manage the schema version of the common tables. Use subcommands 'up', 'down', 'reset', 'status', 'version' or 'bootstrap'.`,
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Create levels and max_id and apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMigrator(cmd.Context(), func(m *migrations.Migrator) error {
				versions, err := m.Up(cmd.Context())
				if err != nil {
					return err
				}
				if len(versions) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date")
					return nil
				}
				for _, v := range versions {
					fmt.Fprintf(cmd.OutOrStdout(), "Applied migration %05d\n", v)
				}
				return nil
			})
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the database by one version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMigrator(cmd.Context(), func(m *migrations.Migrator) error {
				v, err := m.Down(cmd.Context())
				if err != nil {
					return err
				}
				if v == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to roll back")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rolled back migration %05d\n", v)
				return nil
			})
		},
	}

	var confirmed bool
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop levels and max_id by rolling back every migration",
		Long:  `Roll back every applied migration. All rows in levels and max_id are lost; run 'migrate up' to start over with a fresh seed.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return errors.New("reset drops levels and max_id; pass --yes to confirm")
			}
			return a.withMigrator(cmd.Context(), func(m *migrations.Migrator) error {
				versions, err := m.Reset(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %d migration(s)\n", len(versions))
				return nil
			})
		},
	}
	resetCmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm that all level data may be dropped")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Dump the migration status for the current DB",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMigrator(cmd.Context(), func(m *migrations.Migrator) error {
				statuses, err := m.Status(cmd.Context())
				if err != nil {
					return err
				}
				for _, s := range statuses {
					state := "pending"
					if s.Applied {
						state = "applied"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%05d  %-8s %s\n", s.Version, state, s.Path)
				}
				return nil
			})
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMigrator(cmd.Context(), func(m *migrations.Migrator) error {
				v, err := m.Version(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			})
		},
	}

	bootstrapCmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Migrate only when the database has never been migrated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMigrator(cmd.Context(), func(m *migrations.Migrator) error {
				if err := m.EnsureBootstrapped(cmd.Context()); err != nil {
					return err
				}
				return m.Validate(cmd.Context())
			})
		},
	}

	migrateCmd.AddCommand(upCmd, downCmd, resetCmd, statusCmd, versionCmd, bootstrapCmd)
	return migrateCmd
}

func (a *app) withMigrator(ctx context.Context, fn func(m *migrations.Migrator) error) error {
	conn, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer a.closeConn(conn)

	m, err := migrations.NewMigrator(conn.Dialect, conn.DB, a.log)
	if err != nil {
		return fmt.Errorf("failed to prepare migrations: %w", err)
	}
	return fn(m)
}
