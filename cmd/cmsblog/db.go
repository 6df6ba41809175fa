package main

import (
	"github.com/spf13/cobra"

	"github.com/SherPsu/cms-blog/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, db, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()
		return database.Migrate(cmd.Context(), db)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert the most recent migration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, db, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()
		return database.Rollback(cmd.Context(), db)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which migrations are applied",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, db, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()
		return database.Status(cmd.Context(), db, cmd.OutOrStdout())
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default admin account and categories if missing",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, db, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.Migrate(cmd.Context(), db); err != nil {
			return err
		}
		return database.Seed(db)
	},
}

func init() {
	migrateCmd.AddCommand(migrateDownCmd, migrateStatusCmd)
}
