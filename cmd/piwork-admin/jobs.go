package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/pi-work/internal/api/domain"
	"github.com/cuongbtq/pi-work/internal/api/storage"
)

const maxListedJobs = 100

var (
	jobsCategory string
	jobsLimit    int
	outputJSON   bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Lists open jobs, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if jobsLimit <= 0 || jobsLimit > maxListedJobs {
			return fmt.Errorf("--limit must be between 1 and %d", maxListedJobs)
		}

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
		rows, err := store.ListJobs(cmd.Context(), storage.JobFilter{Category: jobsCategory, PageSize: jobsLimit})
		if err != nil {
			return err
		}
		if len(rows) > jobsLimit {
			rows = rows[:jobsLimit]
		}

		jobs := make([]domain.Job, 0, len(rows))
		for _, row := range rows {
			jobs = append(jobs, row.ToDomain())
		}

		if outputJSON {
			return writeJSON(cmd.OutOrStdout(), jobs)
		}
		return printJobs(cmd.OutOrStdout(), jobs)
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Lists the categories that have open jobs",
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

		categories, err := storage.NewStorage(db.GetDB()).ListCategories(cmd.Context())
		if err != nil {
			return err
		}

		if outputJSON {
			return writeJSON(cmd.OutOrStdout(), categories)
		}
		return printCategories(cmd.OutOrStdout(), categories)
	},
}

func printJobs(w io.Writer, jobs []domain.Job) error {
	if len(jobs) == 0 {
		dimColor.Fprintln(w, "No open jobs")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "JOB ID\tTITLE\tCATEGORY\tPAYMENT\tEMPLOYER\tACCEPTS\tREJECTS")
	for _, job := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s π\t%s\t%d\t%d\n",
			job.ID,
			job.Title,
			job.Category,
			job.Payment.String(),
			job.Employer,
			job.AcceptCount,
			job.RejectCount,
		)
	}
	return tw.Flush()
}

func printCategories(w io.Writer, categories []string) error {
	titleColor.Fprintln(w, domain.AllCategories)
	for _, c := range categories {
		fmt.Fprintf(w, "  %s\n", c)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	jobsCmd.Flags().StringVar(&jobsCategory, "category", domain.AllCategories, "Only list jobs in this category")
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 20, "Maximum number of jobs to list")
	jobsCmd.Flags().BoolVar(&outputJSON, "json", false, "Output as JSON")
	categoriesCmd.Flags().BoolVar(&outputJSON, "json", false, "Output as JSON")

	rootCmd.AddCommand(jobsCmd, categoriesCmd)
}
