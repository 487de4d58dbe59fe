package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/pi-work/internal/api/handler"
	"github.com/cuongbtq/pi-work/internal/api/router"
	"github.com/cuongbtq/pi-work/internal/api/storage"
	"github.com/cuongbtq/pi-work/internal/config"
	"github.com/cuongbtq/pi-work/internal/pi"
	"github.com/cuongbtq/pi-work/shared/logger"
	"github.com/cuongbtq/pi-work/shared/postgresql"
	"github.com/cuongbtq/pi-work/shared/rabbitmq"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := logger.New(cfg.Logging.Logger("stdout"))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbClient, err := postgresql.NewClient(cfg.Database.PostgreSQL(), appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	if cfg.Database.AutoMigrate {
		if err := dbClient.Migrate(storage.Migrations, storage.MigrationsDir); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	store := storage.NewStorage(dbClient.GetDB())

	if cfg.Server.SeedOnStartup {
		inserted, err := store.SeedJobs(ctx, storage.SampleJobs(time.Now()))
		if err != nil {
			return fmt.Errorf("failed to seed jobs: %w", err)
		}
		appLogger.Info("Sample jobs seeded", slog.Int("inserted", inserted))
	}

	rabbitClient, err := rabbitmq.NewClient(cfg.RabbitMQ.Broker(), appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	deps := &handler.Dependencies{
		Logger:      appLogger.Logger,
		Store:       store,
		Publisher:   rabbitClient,
		Health:      handler.HealthCheckers{dbClient, rabbitClient},
		ServiceName: cfg.App.Name,
	}
	if cfg.PaymentsEnabled() {
		piLogger := appLogger.WithAttrs(slog.String("component", "pi_platform"))
		deps.Payments = pi.NewClient(cfg.Pi.BaseURL, cfg.Pi.APIKey, cfg.Pi.Timeout, piLogger.Logger)
	} else {
		appLogger.Warn("No Pi API key configured, payment endpoints are disabled")
	}

	r := initRouter(cfg, deps)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		appLogger.Info("Starting HTTP server",
			slog.String("address", addr),
			slog.Bool("payments_enabled", cfg.PaymentsEnabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return waitForShutdown(gctx, rabbitClient.NotifyClose(), srv, cfg.Server.ShutdownTimeout, appLogger.Logger)
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("API service stopped with error", slog.Any("error", err))
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

var errBrokerClosed = errors.New("RabbitMQ channel closed")

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// waitForShutdown blocks until ctx ends or the broker drops its channel, then
// drains srv. Losing the broker is an error so the process exits non-zero.
func waitForShutdown(ctx context.Context, brokerClosed <-chan *amqp.Error, srv shutdowner, timeout time.Duration, appLogger *slog.Logger) error {
	var stopErr error

	select {
	case <-ctx.Done():
	case amqpErr := <-brokerClosed:
		stopErr = errBrokerClosed
		if amqpErr != nil {
			stopErr = fmt.Errorf("%w: %w", errBrokerClosed, amqpErr)
		}
		appLogger.Error("RabbitMQ channel closed", slog.String("error", stopErr.Error()))
	}

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Join(stopErr, fmt.Errorf("server forced to shutdown: %w", err))
	}
	return stopErr
}

// initRouter sets the gin mode for the environment and builds the router
func initRouter(cfg *config.Config, deps *handler.Dependencies) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(deps, cfg.Server.RateLimit)
}
