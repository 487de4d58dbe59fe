package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/pi-work/internal/config"
	"github.com/cuongbtq/pi-work/internal/worker"
	"github.com/cuongbtq/pi-work/internal/worker/domain"
	workerstorage "github.com/cuongbtq/pi-work/internal/worker/storage"
	"github.com/cuongbtq/pi-work/shared/logger"
	"github.com/cuongbtq/pi-work/shared/postgresql"
	"github.com/cuongbtq/pi-work/shared/rabbitmq"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := logger.New(cfg.Logging.Logger("stdout"))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting worker service",
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

	rabbitClient, err := rabbitmq.NewClient(cfg.RabbitMQ.Broker(), appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	id := workerID()
	workerLogger := appLogger.With("worker_id", id)

	w := worker.NewWorker(&worker.Config{
		Logger:       workerLogger.Logger,
		Store:        workerstorage.NewStorage(dbClient.GetDB(), workerLogger.Logger),
		Consumer:     rabbitClient,
		WorkerID:     id,
		Concurrency:  cfg.Worker.Concurrency,
		EventTimeout: cfg.Worker.EventTimeout,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := w.Start(gctx)
		if errors.Is(err, domain.ErrDeliveriesClosed) {
			return fmt.Errorf("event consumer stopped: %w", err)
		}
		return err
	})

	appLogger.Info("Worker service started")

	waitErr := g.Wait()
	if waitErr != nil {
		appLogger.Error("Worker stopped with error", slog.Any("error", waitErr))
	} else {
		appLogger.Info("Shutting down worker...")
	}

	if !stopWithin(w, cfg.Worker.ShutdownTimeout) {
		appLogger.Warn("Worker shutdown timeout exceeded, in-flight events will be redelivered",
			slog.Duration("timeout", cfg.Worker.ShutdownTimeout),
		)
	}

	appLogger.Info("Worker service shutdown complete")
	return waitErr
}

// workerID names this process as a consumer: hostname plus a random suffix
func workerID() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "worker"
	}
	return fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8])
}

// stopWithin waits for in-flight events to finish and reports whether they did in time
func stopWithin(w *worker.Worker, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
