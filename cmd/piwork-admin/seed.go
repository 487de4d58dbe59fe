package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/pi-work/internal/api/storage"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Inserts the sample jobs when the jobs table is empty",
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

		store := storage.NewStorage(db.GetDB())
		inserted, err := store.SeedJobs(cmd.Context(), storage.SampleJobs(time.Now().UTC()))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if inserted == 0 {
			warnColor.Fprintln(out, "Jobs table already has rows, nothing seeded")
			return nil
		}
		successColor.Fprintf(out, "✓ Seeded %d sample jobs\n", inserted)
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.AddCommand(seedCmd)
}
