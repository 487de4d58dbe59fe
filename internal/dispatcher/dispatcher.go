// Package dispatcher turns swipe decisions into recorded swipes and wallet payments.
//
// A Dispatcher is a state machine owned by one goroutine. Decide, SetCategory,
// Refresh and Handle mutate state and return Effects; the caller runs each
// Effect elsewhere and passes the resulting Event back into Handle.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/cuongbtq/pi-work/internal/api/domain"
	"github.com/cuongbtq/pi-work/internal/payment"
	"github.com/cuongbtq/pi-work/internal/swipe"
)

const (
	DefaultMessageTTL       = 3 * time.Second
	DefaultHandshakeTimeout = 3 * time.Minute
	DefaultUserID           = "demo_user"
)

// DefaultScopes are requested from the wallet on sign-in
var DefaultScopes = []string{"payments", "username"}

// JobProvider serves the job queue and records decisions
type JobProvider interface {
	ListJobs(ctx context.Context, category string) ([]domain.Job, error)
	ListCategories(ctx context.Context) ([]string, error)
	RecordDecision(ctx context.Context, jobID, userID string, action domain.Action) (string, error)
}

// PaymentBackend approves and completes wallet payments server side
type PaymentBackend interface {
	NotifyApproval(ctx context.Context, paymentID string) error
	NotifyCompletion(ctx context.Context, paymentID, txID string) error
}

type Options struct {
	Jobs     JobProvider
	Backend  PaymentBackend
	Provider payment.Provider
	UserID   string
	Scopes   []string
	Logger   *slog.Logger

	// MessageTTL defaults to DefaultMessageTTL
	MessageTTL time.Duration
	// HandshakeTimeout bounds the wait on the wallet; zero disables it
	HandshakeTimeout time.Duration

	Now   func() time.Time
	After func(time.Duration) <-chan time.Time
}

// State is what the terminal renders
type State struct {
	Jobs       []domain.Job
	Cursor     int
	Category   string
	Categories []string
	Loading    bool
	Session    *payment.WalletSession
	Handshake  *Handshake
	Message    *Message
}

type Dispatcher struct {
	jobs     JobProvider
	backend  PaymentBackend
	provider payment.Provider
	userID   string
	scopes   []string
	logger   *slog.Logger

	messageTTL       time.Duration
	handshakeTimeout time.Duration
	now              func() time.Time
	after            func(time.Duration) <-chan time.Time

	state        State
	fetchGen     int
	msgSeq       int
	handshakeSeq int
	callbacks    <-chan payment.Callback

	// scope of the live handshake; cancelling it releases the wallet
	handshakeCtx    context.Context
	cancelHandshake context.CancelFunc

	// job id of a demo accept waiting for its DecisionRecorded
	demoPending string
}

func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		jobs:             opts.Jobs,
		backend:          opts.Backend,
		provider:         opts.Provider,
		userID:           opts.UserID,
		scopes:           opts.Scopes,
		logger:           opts.Logger,
		messageTTL:       opts.MessageTTL,
		handshakeTimeout: opts.HandshakeTimeout,
		now:              opts.Now,
		after:            opts.After,
		state:            State{Category: domain.AllCategories, Categories: []string{domain.AllCategories}},
	}

	if d.provider == nil {
		d.provider = payment.Demo{}
	}
	if d.userID == "" {
		d.userID = DefaultUserID
	}
	if d.scopes == nil {
		d.scopes = DefaultScopes
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.messageTTL <= 0 {
		d.messageTTL = DefaultMessageTTL
	}
	if d.handshakeTimeout < 0 {
		d.handshakeTimeout = 0
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.after == nil {
		d.after = time.After
	}

	return d
}

// Init signs in to the wallet and loads the first queue
func (d *Dispatcher) Init() []Effect {
	return []Effect{
		d.authenticateEffect(),
		d.loadCategoriesEffect(),
		d.fetch(domain.AllCategories),
	}
}

// Current returns the job at the cursor
func (d *Dispatcher) Current() (domain.Job, bool) {
	if d.Exhausted() {
		return domain.Job{}, false
	}
	return d.state.Jobs[d.state.Cursor], true
}

// Exhausted reports whether every job in the queue has been decided
func (d *Dispatcher) Exhausted() bool {
	return d.state.Cursor >= len(d.state.Jobs)
}

// Pending reports whether an accept for the current job is still in flight
func (d *Dispatcher) Pending() bool {
	return d.demoPending != "" || d.state.Handshake.InFlight()
}

// Snapshot returns a copy of the state safe to keep across Handle calls
func (d *Dispatcher) Snapshot() State {
	s := d.state
	s.Jobs = slices.Clone(d.state.Jobs)
	s.Categories = slices.Clone(d.state.Categories)
	if d.state.Session != nil {
		session := *d.state.Session
		s.Session = &session
	}
	if d.state.Handshake != nil {
		hs := *d.state.Handshake
		s.Handshake = &hs
	}
	if d.state.Message != nil {
		msg := *d.state.Message
		s.Message = &msg
	}
	return s
}

// Decide acts on the job at the cursor
func (d *Dispatcher) Decide(decision swipe.Decision) ([]Effect, error) {
	if decision == swipe.None {
		return nil, nil
	}

	job, ok := d.Current()
	if !ok {
		return nil, ErrQueueExhausted
	}
	if d.Pending() {
		return []Effect{d.notify(MessageInfo, actionPendingText, ErrActionPending)}, ErrActionPending
	}

	d.logger.Info("Decision",
		slog.String("job_id", job.ID),
		slog.String("decision", decision.String()),
	)

	switch decision {
	case swipe.Reject:
		d.state.Cursor++
		return []Effect{d.recordDecisionEffect(job.ID, domain.ActionReject)}, nil

	case swipe.Accept:
		if d.state.Session == nil {
			d.demoPending = job.ID
			return []Effect{d.recordDecisionEffect(job.ID, domain.ActionAccept)}, nil
		}
		return d.startHandshake(job), nil

	default:
		return nil, fmt.Errorf("unknown decision %d", int(decision))
	}
}

// SetCategory replaces the queue with the jobs of category
func (d *Dispatcher) SetCategory(category string) ([]Effect, error) {
	if d.Pending() {
		return nil, ErrActionPending
	}
	if category == "" {
		category = domain.AllCategories
	}
	return []Effect{d.fetch(category)}, nil
}

// Refresh reloads the queue for the current category
func (d *Dispatcher) Refresh() ([]Effect, error) {
	return d.SetCategory(d.state.Category)
}

func (d *Dispatcher) fetch(category string) Effect {
	d.fetchGen++
	d.state.Loading = true
	return d.loadJobsEffect(d.fetchGen, category)
}

// Handle applies the result of an effect
func (d *Dispatcher) Handle(ev Event) []Effect {
	switch ev := ev.(type) {
	case Authenticated:
		return d.onAuthenticated(ev)
	case CategoriesLoaded:
		return d.onCategoriesLoaded(ev)
	case JobsLoaded:
		return d.onJobsLoaded(ev)
	case DecisionRecorded:
		return d.onDecisionRecorded(ev)
	case PaymentStarted:
		return d.onPaymentStarted(ev)
	case PaymentCallback:
		return d.onPaymentCallback(ev)
	case ApprovalNotified:
		return d.onApprovalNotified(ev)
	case CompletionNotified:
		return d.onCompletionNotified(ev)
	case HandshakeTimedOut:
		return d.onHandshakeTimedOut(ev)
	case MessageExpired:
		d.expire(ev.Seq)
		return nil
	default:
		d.logger.Warn("Unhandled dispatcher event", slog.String("type", fmt.Sprintf("%T", ev)))
		return nil
	}
}

func (d *Dispatcher) onAuthenticated(ev Authenticated) []Effect {
	if ev.Err == nil && ev.Session != nil {
		d.state.Session = ev.Session
		d.logger.Info("Wallet signed in",
			slog.String("provider", d.provider.Name()),
			slog.String("username", ev.Session.Username),
		)
		return nil
	}

	if ev.Err == nil || errors.Is(ev.Err, payment.ErrProviderUnavailable) {
		d.logger.Info("No wallet available, running in demo mode", slog.String("provider", d.provider.Name()))
		return nil
	}

	d.logger.Error("Wallet sign-in failed", slog.String("error", ev.Err.Error()))
	err := fmt.Errorf("%w: %w", ErrAuthenticationFailed, ev.Err)
	return []Effect{d.notify(MessageError, "Wallet sign-in failed, payments run in demo mode.", err)}
}

func (d *Dispatcher) onCategoriesLoaded(ev CategoriesLoaded) []Effect {
	if ev.Err != nil {
		d.logger.Error("Error fetching categories", slog.String("error", ev.Err.Error()))
		return nil
	}

	categories := []string{domain.AllCategories}
	for _, c := range ev.Categories {
		if c != domain.AllCategories {
			categories = append(categories, c)
		}
	}
	d.state.Categories = categories
	return nil
}

func (d *Dispatcher) onJobsLoaded(ev JobsLoaded) []Effect {
	if ev.Gen != d.fetchGen {
		d.logger.Debug("Dropping stale job list", slog.Int("gen", ev.Gen), slog.Int("latest", d.fetchGen))
		return nil
	}
	d.state.Loading = false

	if ev.Err != nil {
		d.logger.Error("Error fetching jobs",
			slog.String("category", ev.Category),
			slog.String("error", ev.Err.Error()),
		)
		err := fmt.Errorf("%w: %w", ErrFetchFailed, ev.Err)
		return []Effect{d.notify(MessageError, fetchFailedText, err)}
	}

	d.state.Jobs = ev.Jobs
	d.state.Cursor = 0
	d.state.Category = ev.Category
	// an accept still waiting on the old queue must not move the new cursor
	d.demoPending = ""

	d.logger.Info("Jobs loaded", slog.String("category", ev.Category), slog.Int("count", len(ev.Jobs)))
	return nil
}

func (d *Dispatcher) onDecisionRecorded(ev DecisionRecorded) []Effect {
	if ev.Err != nil {
		d.logger.Error("Error processing swipe",
			slog.String("job_id", ev.JobID),
			slog.String("action", string(ev.Action)),
			slog.String("error", ev.Err.Error()),
		)
	}

	if ev.Action != domain.ActionAccept || d.demoPending != ev.JobID {
		if ev.Err != nil {
			return []Effect{d.notify(MessageError, swipeFailedText, ev.Err)}
		}
		return []Effect{d.notify(MessageInfo, ev.Message, nil)}
	}

	d.demoPending = ""
	job, _ := d.Current()
	d.advancePast(ev.JobID)

	if ev.Err != nil {
		return []Effect{d.notify(MessageError, swipeFailedText, ev.Err)}
	}
	text := fmt.Sprintf("%s Demo payment of %s π to %s.", ev.Message, job.Payment.String(), job.Employer)
	return []Effect{d.notify(MessageSuccess, text, nil)}
}

// advancePast moves the cursor forward if jobID is still the current job
func (d *Dispatcher) advancePast(jobID string) {
	if job, ok := d.Current(); ok && job.ID == jobID {
		d.state.Cursor++
	}
}
