package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cuongbtq/pi-work/internal/config"
	"github.com/cuongbtq/pi-work/shared/logger"
	"github.com/cuongbtq/pi-work/shared/postgresql"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:          "piwork-admin",
	Short:        "piwork-admin is the operator CLI for Pi Work.",
	Long:         `A CLI for administering the Pi Work marketplace: applying schema migrations, seeding sample jobs and inspecting the job queue.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	cobra.OnInitialize(loadEnv)

	defaultConfigPath := os.Getenv("PIWORK_ADMIN_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
}

func loadEnv() {
	if err := godotenv.Load(); err != nil && verbose {
		log.Println("No .env file found, using environment variables or flags")
	}
}

// loadConfig reads the config file named by --config
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger logs to stderr so command output stays clean on stdout
func newLogger() *logger.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	l, err := logger.New(&logger.Config{
		Level:      level,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: time.Kitchen,
	})
	if err != nil {
		return logger.NewDefault()
	}
	return l
}

// openDatabase connects to the configured database after validating its settings
func openDatabase(cfg *config.Config, appLogger *logger.Logger) (*postgresql.Client, error) {
	if err := cfg.ValidateDatabaseConfig(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	client, err := postgresql.NewClient(cfg.Database.PostgreSQL(), appLogger.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	return client, nil
}
