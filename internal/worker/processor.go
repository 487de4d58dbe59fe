package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apidomain "github.com/cuongbtq/pi-work/internal/api/domain"
	"github.com/cuongbtq/pi-work/internal/events"
	"github.com/cuongbtq/pi-work/internal/worker/domain"
	"github.com/google/uuid"
)

// processEvent applies one event within the event timeout
func (w *Worker) processEvent(ctx context.Context, env events.Envelope) error {
	if w.eventTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.eventTimeout)
		defer cancel()
	}

	switch env.Type {
	case events.TypeSwipeRecorded:
		return w.processSwipe(ctx, env)
	case events.TypePaymentCompleted:
		return w.processPayment(ctx, env)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownEventType, env.Type)
	}
}

func (w *Worker) processSwipe(ctx context.Context, env events.Envelope) error {
	var swipe events.SwipeRecorded
	if err := env.DecodePayload(&swipe); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	if err := validateIDs(swipe.SwipeID, swipe.JobID); err != nil {
		return err
	}
	action, err := apidomain.ParseAction(swipe.Action)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	applied, err := w.store.ApplySwipe(ctx, swipe.SwipeID, swipe.JobID, action)
	if err != nil {
		if errors.Is(err, domain.ErrSwipeNotFound) {
			return err
		}
		return domain.NewRetryableError(fmt.Errorf("failed to apply swipe: %w", err))
	}

	w.logger.Info("Swipe event handled",
		slog.String("swipe_id", swipe.SwipeID),
		slog.String("job_id", swipe.JobID),
		slog.String("action", string(action)),
		slog.Bool("applied", applied),
	)

	return nil
}

func (w *Worker) processPayment(ctx context.Context, env events.Envelope) error {
	var paid events.PaymentCompleted
	if err := env.DecodePayload(&paid); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	if err := validateIDs(paid.JobID); err != nil {
		return err
	}

	filled, err := w.store.MarkJobFilled(ctx, paid.JobID)
	if err != nil {
		return domain.NewRetryableError(fmt.Errorf("failed to fill job: %w", err))
	}

	w.logger.Info("Payment event handled",
		slog.String("payment_id", paid.PaymentID),
		slog.String("job_id", paid.JobID),
		slog.String("amount", paid.Amount.String()),
		slog.Bool("filled", filled),
	)

	return nil
}

func validateIDs(ids ...string) error {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return fmt.Errorf("%w: %q is not a UUID", domain.ErrInvalidPayload, id)
		}
	}
	return nil
}
