package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/pi-work/internal/api/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Applies pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		appLogger := newLogger()
		defer appLogger.Close()

		db, err := openDatabase(cfg, appLogger)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(storage.Migrations, storage.MigrationsDir); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}

		successColor.Fprintln(cmd.OutOrStdout(), "✓ Database schema is up to date")
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.AddCommand(migrateCmd)
}
