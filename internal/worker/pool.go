package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/pi-work/internal/worker/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the main processing loop for each worker goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Debug("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-w.stopChan:
			w.logger.Debug("Worker goroutine stopping - stopChan closed",
				slog.String("worker_name", workerName),
			)
			return

		case <-ctx.Done():
			w.logger.Debug("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case msg := <-w.jobsChan:
			w.handle(ctx, workerName, msg)
		}
	}
}

// handle processes one event and acknowledges it
func (w *Worker) handle(ctx context.Context, workerName string, msg *eventMessage) {
	env, delivery := msg.envelope, msg.delivery

	err := w.processEvent(ctx, env)
	if err == nil {
		if ackErr := delivery.Ack(false); ackErr != nil {
			w.logger.Error("Failed to ACK message",
				slog.String("worker_name", workerName),
				slog.String("event_id", env.ID),
				slog.String("error", ackErr.Error()),
			)
			return
		}
		w.logger.Info("Event processed",
			slog.String("worker_name", workerName),
			slog.String("event_id", env.ID),
			slog.String("event_type", env.Type),
		)
		return
	}

	requeue := shouldRequeue(err, delivery.Redelivered)
	w.logger.Error("Event processing failed",
		slog.String("worker_name", workerName),
		slog.String("event_id", env.ID),
		slog.String("event_type", env.Type),
		slog.Bool("requeue", requeue),
		slog.String("error", err.Error()),
	)

	if nackErr := delivery.Nack(false, requeue); nackErr != nil {
		w.logger.Error("Failed to NACK message",
			slog.String("worker_name", workerName),
			slog.String("event_id", env.ID),
			slog.String("error", nackErr.Error()),
		)
	}
}

// shouldRequeue requeues transient failures once; a redelivered message is dropped
func shouldRequeue(err error, redelivered bool) bool {
	if redelivered {
		return false
	}

	var retryableErr *domain.RetryableError
	return errors.As(err, &retryableErr)
}
