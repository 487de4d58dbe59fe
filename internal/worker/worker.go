package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apidomain "github.com/cuongbtq/pi-work/internal/api/domain"
	"github.com/cuongbtq/pi-work/internal/events"
	amqp "github.com/rabbitmq/amqp091-go"
)

// EventStore applies event side effects to the database
type EventStore interface {
	ApplySwipe(ctx context.Context, swipeID, jobID string, action apidomain.Action) (bool, error)
	MarkJobFilled(ctx context.Context, jobID string) (bool, error)
}

// Consumer delivers messages from the events queue with manual acknowledgement
type Consumer interface {
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// Config holds worker configuration
type Config struct {
	Logger       *slog.Logger
	Store        EventStore
	Consumer     Consumer
	WorkerID     string
	Concurrency  int
	EventTimeout time.Duration
}

// eventMessage is a validated event waiting for a pool goroutine
type eventMessage struct {
	envelope events.Envelope
	delivery amqp.Delivery
}

// Worker consumes events and applies them with a pool of goroutines
type Worker struct {
	logger       *slog.Logger
	store        EventStore
	consumer     Consumer
	workerID     string
	concurrency  int
	eventTimeout time.Duration
	jobsChan     chan *eventMessage
	wg           sync.WaitGroup
	stopChan     chan struct{}
	stopOnce     sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &Worker{
		logger:       cfg.Logger,
		store:        cfg.Store,
		consumer:     cfg.Consumer,
		workerID:     cfg.WorkerID,
		concurrency:  concurrency,
		eventTimeout: cfg.EventTimeout,
		jobsChan:     make(chan *eventMessage, concurrency),
		stopChan:     make(chan struct{}),
	}
}

// Start consumes events until ctx is canceled, returning nil, or until the
// broker closes the delivery channel, returning domain.ErrDeliveriesClosed.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("event_timeout", w.eventTimeout),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	w.spawnWorkerPool(ctx)
	return w.startMessageDispatcher(ctx, deliveries)
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
