package dispatcher

import (
	"context"
	"time"

	"github.com/cuongbtq/pi-work/internal/api/domain"
	"github.com/cuongbtq/pi-work/internal/payment"
)

// Effect names
const (
	EffectAuthenticate     = "authenticate"
	EffectLoadCategories   = "load_categories"
	EffectLoadJobs         = "load_jobs"
	EffectRecordDecision   = "record_decision"
	EffectCreatePayment    = "create_payment"
	EffectAwaitCallback    = "await_callback"
	EffectNotifyApproval   = "notify_approval"
	EffectNotifyCompletion = "notify_completion"
	EffectExpireMessage    = "expire_message"
	EffectHandshakeTimeout = "handshake_timeout"
)

// Effect is work the dispatcher wants done off its loop.
// Run must not touch dispatcher state; its Event goes back through Handle.
type Effect struct {
	Name string
	Run  func(ctx context.Context) Event
}

// IsTimer reports whether the effect only waits on the clock
func (e Effect) IsTimer() bool {
	return e.Name == EffectExpireMessage || e.Name == EffectHandshakeTimeout
}

func (d *Dispatcher) authenticateEffect() Effect {
	provider, scopes := d.provider, d.scopes
	return Effect{Name: EffectAuthenticate, Run: func(ctx context.Context) Event {
		session, err := provider.Authenticate(ctx, scopes)
		return Authenticated{Session: session, Err: err}
	}}
}

func (d *Dispatcher) loadCategoriesEffect() Effect {
	jobs := d.jobs
	return Effect{Name: EffectLoadCategories, Run: func(ctx context.Context) Event {
		categories, err := jobs.ListCategories(ctx)
		return CategoriesLoaded{Categories: categories, Err: err}
	}}
}

func (d *Dispatcher) loadJobsEffect(gen int, category string) Effect {
	jobs := d.jobs
	return Effect{Name: EffectLoadJobs, Run: func(ctx context.Context) Event {
		list, err := jobs.ListJobs(ctx, category)
		return JobsLoaded{Gen: gen, Category: category, Jobs: list, Err: err}
	}}
}

func (d *Dispatcher) recordDecisionEffect(jobID string, action domain.Action) Effect {
	jobs, userID := d.jobs, d.userID
	return Effect{Name: EffectRecordDecision, Run: func(ctx context.Context) Event {
		msg, err := jobs.RecordDecision(ctx, jobID, userID, action)
		return DecisionRecorded{JobID: jobID, Action: action, Message: msg, Err: err}
	}}
}

func (d *Dispatcher) createPaymentEffect(scope context.Context, id int, req payment.PaymentRequest) Effect {
	provider := d.provider
	return Effect{Name: EffectCreatePayment, Run: func(ctx context.Context) Event {
		callbacks, err := provider.CreatePayment(within(ctx, scope), req)
		return PaymentStarted{HandshakeID: id, Callbacks: callbacks, Err: err}
	}}
}

func awaitCallbackEffect(scope context.Context, id int, callbacks <-chan payment.Callback) Effect {
	return Effect{Name: EffectAwaitCallback, Run: func(ctx context.Context) Event {
		ctx = within(ctx, scope)
		select {
		case cb, ok := <-callbacks:
			return PaymentCallback{HandshakeID: id, Callback: cb, Closed: !ok}
		case <-ctx.Done():
			return PaymentCallback{HandshakeID: id, Closed: true}
		}
	}}
}

func (d *Dispatcher) notifyApprovalEffect(id int, paymentID string) Effect {
	backend := d.backend
	return Effect{Name: EffectNotifyApproval, Run: func(ctx context.Context) Event {
		err := backend.NotifyApproval(ctx, paymentID)
		return ApprovalNotified{HandshakeID: id, PaymentID: paymentID, Err: err}
	}}
}

func (d *Dispatcher) notifyCompletionEffect(id int, paymentID, txID string) Effect {
	backend := d.backend
	return Effect{Name: EffectNotifyCompletion, Run: func(ctx context.Context) Event {
		err := backend.NotifyCompletion(ctx, paymentID, txID)
		return CompletionNotified{HandshakeID: id, PaymentID: paymentID, TxID: txID, Err: err}
	}}
}

func (d *Dispatcher) timerEffect(name string, delay time.Duration, ev Event) Effect {
	after := d.after
	return Effect{Name: name, Run: func(ctx context.Context) Event {
		select {
		case <-after(delay):
		case <-ctx.Done():
		}
		return ev
	}}
}

// within returns a context that ends with ctx or with scope, whichever is first.
// The payment relay outlives the effect, so it is released by scope, not by Run returning.
func within(ctx, scope context.Context) context.Context {
	if scope == nil {
		return ctx
	}
	bound, cancel := context.WithCancel(ctx)
	context.AfterFunc(scope, cancel)
	return bound
}
