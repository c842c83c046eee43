package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pesio-ai/be-hr-approvals/internal/config"
	"github.com/pesio-ai/be-hr-approvals/internal/database"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withDB(cmd, func(db *database.DB) error {
				if err := db.Migrate(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print migration status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withDB(cmd, func(db *database.DB) error {
				return db.MigrationStatus(cmd.Context())
			})
		},
	})
	return cmd
}

// withDB requires the postgres backend and opens it without auto-migration.
func (o *rootOptions) withDB(cmd *cobra.Command, fn func(db *database.DB) error) error {
	a, err := o.open(cmd.Context(), openSettings{envFile: o.envFile, skipMigrate: true})
	if err != nil {
		return err
	}
	defer a.Close()
	if a.stores.DB == nil {
		return fmt.Errorf("migrations need APPROVAL_STORAGE=%s, got %q", config.StoragePostgres, a.cfg.Approval.Storage)
	}
	return fn(a.stores.DB)
}
