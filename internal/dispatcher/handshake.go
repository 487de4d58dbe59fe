package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/pi-work/internal/api/domain"
	"github.com/cuongbtq/pi-work/internal/payment"
)

// Handshake tracks one wallet payment for an accepted job
type Handshake struct {
	ID        int
	JobID     string
	Employer  string
	Amount    string
	PaymentID string
	TxID      string
	Phase     payment.Phase
	StartedAt time.Time
	Err       error
}

// InFlight reports whether the handshake still blocks actions on its job
func (h *Handshake) InFlight() bool {
	return h != nil && !h.Phase.Terminal()
}

func (d *Dispatcher) startHandshake(job domain.Job) []Effect {
	d.endHandshake()
	d.handshakeCtx, d.cancelHandshake = context.WithCancel(context.Background())

	d.handshakeSeq++
	hs := &Handshake{
		ID:        d.handshakeSeq,
		JobID:     job.ID,
		Employer:  job.Employer,
		Amount:    job.Payment.String(),
		Phase:     payment.Initiated,
		StartedAt: d.now(),
	}
	d.state.Handshake = hs

	req := payment.PaymentRequest{
		Amount: job.Payment,
		Memo:   fmt.Sprintf("Payment for %s", job.Title),
		Metadata: map[string]string{
			"job_id":  job.ID,
			"user_id": d.userID,
		},
	}

	d.logger.Info("Payment handshake started",
		slog.Int("handshake_id", hs.ID),
		slog.String("job_id", job.ID),
		slog.String("amount", hs.Amount),
	)

	effects := []Effect{d.createPaymentEffect(d.handshakeCtx, hs.ID, req)}
	if d.handshakeTimeout > 0 {
		effects = append(effects, d.timerEffect(EffectHandshakeTimeout, d.handshakeTimeout, HandshakeTimedOut{HandshakeID: hs.ID}))
	}
	return effects
}

// live returns the handshake id refers to when it is still in flight
func (d *Dispatcher) live(id int) *Handshake {
	hs := d.state.Handshake
	if hs == nil || hs.ID != id || !hs.InFlight() {
		return nil
	}
	return hs
}

func (d *Dispatcher) onPaymentStarted(ev PaymentStarted) []Effect {
	hs := d.live(ev.HandshakeID)
	if hs == nil {
		d.logger.Debug("Ignoring stale payment start", slog.Int("handshake_id", ev.HandshakeID))
		return nil
	}

	if ev.Err != nil {
		if errors.Is(ev.Err, payment.ErrProviderUnavailable) {
			// wallet went away between sign-in and accept: record the decision as a demo accept
			d.logger.Warn("Payment provider unavailable, falling back to demo accept",
				slog.String("job_id", hs.JobID),
				slog.String("error", ev.Err.Error()),
			)
			d.endHandshake()
			d.state.Handshake = nil
			d.state.Session = nil
			d.demoPending = hs.JobID
			return []Effect{d.recordDecisionEffect(hs.JobID, domain.ActionAccept)}
		}
		return d.failHandshake(hs, fmt.Errorf("%w: %w", ErrHandshakeErrored, ev.Err))
	}

	d.callbacks = ev.Callbacks
	return []Effect{awaitCallbackEffect(d.handshakeCtx, hs.ID, d.callbacks)}
}

func (d *Dispatcher) onPaymentCallback(ev PaymentCallback) []Effect {
	hs := d.live(ev.HandshakeID)
	if hs == nil {
		d.logger.Debug("Ignoring stale payment callback",
			slog.Int("handshake_id", ev.HandshakeID),
			slog.String("phase", ev.Callback.Phase.String()),
		)
		return nil
	}

	if ev.Closed {
		if hs.Phase == payment.ReadyForCompletion {
			return nil
		}
		return d.failHandshake(hs, fmt.Errorf("%w: wallet closed the payment", ErrHandshakeErrored))
	}

	cb := ev.Callback
	d.logger.Info("Payment callback",
		slog.Int("handshake_id", hs.ID),
		slog.String("phase", cb.Phase.String()),
		slog.String("payment_id", cb.PaymentID),
	)

	switch cb.Phase {
	case payment.ReadyForApproval:
		if cb.PaymentID == "" {
			return d.failHandshake(hs, fmt.Errorf("%w: wallet sent no payment id", ErrHandshakeErrored))
		}
		hs.Phase = payment.ReadyForApproval
		hs.PaymentID = cb.PaymentID
		return []Effect{
			d.notifyApprovalEffect(hs.ID, cb.PaymentID),
			awaitCallbackEffect(d.handshakeCtx, hs.ID, d.callbacks),
		}

	case payment.ReadyForCompletion:
		hs.Phase = payment.ReadyForCompletion
		if cb.PaymentID != "" {
			hs.PaymentID = cb.PaymentID
		}
		hs.TxID = cb.TxID
		return []Effect{d.notifyCompletionEffect(hs.ID, hs.PaymentID, hs.TxID)}

	case payment.Cancelled:
		hs.Phase = payment.Cancelled
		hs.Err = ErrHandshakeCancelled
		d.endHandshake()
		return []Effect{d.notify(MessageInfo, "Payment cancelled.", ErrHandshakeCancelled)}

	case payment.Errored:
		err := ErrHandshakeErrored
		if cb.Err != nil {
			err = fmt.Errorf("%w: %w", ErrHandshakeErrored, cb.Err)
		}
		return d.failHandshake(hs, err)

	default:
		// phases the wallet never reports are skipped
		return []Effect{awaitCallbackEffect(d.handshakeCtx, hs.ID, d.callbacks)}
	}
}

func (d *Dispatcher) onApprovalNotified(ev ApprovalNotified) []Effect {
	if ev.Err == nil {
		d.logger.Info("Payment approved", slog.String("payment_id", ev.PaymentID))
		return nil
	}

	d.logger.Error("Payment approval failed",
		slog.String("payment_id", ev.PaymentID),
		slog.String("error", ev.Err.Error()),
	)
	if d.live(ev.HandshakeID) == nil {
		return nil
	}
	return []Effect{d.notify(MessageError, "Payment approval failed on the server.", ev.Err)}
}

func (d *Dispatcher) onCompletionNotified(ev CompletionNotified) []Effect {
	hs := d.live(ev.HandshakeID)
	if hs == nil {
		d.logger.Warn("Completion arrived for a stale handshake",
			slog.Int("handshake_id", ev.HandshakeID),
			slog.String("payment_id", ev.PaymentID),
		)
		return nil
	}

	if ev.Err != nil {
		d.logger.Error("Payment completion failed",
			slog.String("payment_id", ev.PaymentID),
			slog.String("error", ev.Err.Error()),
		)
		return d.failHandshake(hs, fmt.Errorf("%w: %w", ErrHandshakeErrored, ev.Err))
	}

	hs.Phase = payment.Completed
	d.endHandshake()
	d.advancePast(hs.JobID)
	return []Effect{d.notify(MessageSuccess,
		fmt.Sprintf("Payment of %s π to %s completed!", hs.Amount, hs.Employer), nil)}
}

func (d *Dispatcher) onHandshakeTimedOut(ev HandshakeTimedOut) []Effect {
	hs := d.live(ev.HandshakeID)
	// completion is bounded by the API client timeout once the wallet has signed
	if hs == nil || hs.Phase == payment.ReadyForCompletion {
		return nil
	}
	d.logger.Warn("Payment handshake timed out",
		slog.Int("handshake_id", hs.ID),
		slog.String("phase", hs.Phase.String()),
		slog.Duration("elapsed", d.now().Sub(hs.StartedAt)),
	)
	return d.failHandshake(hs, ErrHandshakeTimeout)
}

func (d *Dispatcher) failHandshake(hs *Handshake, err error) []Effect {
	hs.Phase = payment.Errored
	hs.Err = err
	d.endHandshake()

	d.logger.Error("Payment handshake failed",
		slog.Int("handshake_id", hs.ID),
		slog.String("job_id", hs.JobID),
		slog.String("error", err.Error()),
	)

	text := "Payment failed. Please try again."
	if errors.Is(err, ErrHandshakeTimeout) {
		text = "Payment timed out. Please try again."
	}
	return []Effect{d.notify(MessageError, text, err)}
}

// endHandshake drops the wallet channel and cancels whatever the live
// handshake still has running with the provider
func (d *Dispatcher) endHandshake() {
	d.callbacks = nil
	if d.cancelHandshake != nil {
		d.cancelHandshake()
		d.cancelHandshake = nil
	}
}
