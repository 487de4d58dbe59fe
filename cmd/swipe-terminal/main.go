package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/cuongbtq/pi-work/internal/config"
	"github.com/cuongbtq/pi-work/internal/dispatcher"
	"github.com/cuongbtq/pi-work/internal/jobclient"
	"github.com/cuongbtq/pi-work/internal/payment"
	"github.com/cuongbtq/pi-work/shared/logger"
)

// defaultLogFile keeps logs off the screen the UI draws on
const defaultLogFile = "swipe-terminal.log"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("SWIPE_TERMINAL_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/swipe-terminal/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateClientConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logCfg := cfg.Logging.Logger(defaultLogFile)
	if logCfg.Output == "stdout" || logCfg.Output == "stderr" {
		logCfg.Output = defaultLogFile
	}
	appLogger, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	provider, err := payment.NewProvider(cfg.Client.PaymentMode, cfg.Client.WalletBridgeURL, appLogger.WithGroup("wallet").Logger)
	if err != nil {
		return fmt.Errorf("failed to create payment provider: %w", err)
	}

	appLogger.Info("Swipe terminal starting",
		slog.String("api", cfg.Client.APIBaseURL),
		slog.String("payment_provider", provider.Name()),
		slog.String("user_id", cfg.Client.UserID),
	)

	client := jobclient.New(cfg.Client.APIBaseURL, cfg.Client.RequestTimeout, appLogger.Logger)

	d := dispatcher.New(dispatcher.Options{
		Jobs:             client,
		Backend:          client,
		Provider:         provider,
		UserID:           cfg.Client.UserID,
		Scopes:           cfg.Client.Scopes,
		Logger:           appLogger.With("user_id", cfg.Client.UserID).Logger,
		MessageTTL:       cfg.Client.MessageTTL,
		HandshakeTimeout: cfg.Client.HandshakeTimeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(
		newModel(ctx, d, cfg.Client.UnitsPerCell, appLogger.Logger),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithReportFocus(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		appLogger.Error("error running program", slog.Any("error", err))
		return fmt.Errorf("error running program: %w", err)
	}

	appLogger.Info("Swipe terminal shut down")
	return nil
}
