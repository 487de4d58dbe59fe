package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apidomain "github.com/cuongbtq/pi-work/internal/api/domain"
	"github.com/cuongbtq/pi-work/internal/events"
	"github.com/cuongbtq/pi-work/internal/worker/domain"
	"github.com/cuongbtq/pi-work/shared/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSwipeID = "6f1c2b8e-3d4a-4f5b-9c6d-7e8f9a0b1c2d"
	testJobID   = "0b6f4a1e-2c3d-4e5f-8a9b-0c1d2e3f4a5b"
)

type fakeStore struct {
	mu       sync.Mutex
	swipeErr error
	fillErr  error
	swipes   []string
	filled   []string
}

func (f *fakeStore) ApplySwipe(_ context.Context, swipeID, jobID string, action apidomain.Action) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.swipeErr != nil {
		return false, f.swipeErr
	}
	f.swipes = append(f.swipes, swipeID+":"+string(action))
	return true, nil
}

func (f *fakeStore) MarkJobFilled(_ context.Context, jobID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fillErr != nil {
		return false, f.fillErr
	}
	f.filled = append(f.filled, jobID)
	return true, nil
}

type ackResult struct {
	tag     uint64
	acked   bool
	requeue bool
}

// fakeAcknowledger stands in for the amqp channel behind a delivery
type fakeAcknowledger struct {
	results chan ackResult
}

func newFakeAcknowledger() *fakeAcknowledger {
	return &fakeAcknowledger{results: make(chan ackResult, 16)}
}

func (a *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	a.results <- ackResult{tag: tag, acked: true}
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	a.results <- ackResult{tag: tag, requeue: requeue}
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAcknowledger) next(t *testing.T) ackResult {
	t.Helper()
	select {
	case r := <-a.results:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ack")
		return ackResult{}
	}
}

type fakeConsumer struct {
	deliveries chan amqp.Delivery
	err        error
}

func (c *fakeConsumer) Consume(string) (<-chan amqp.Delivery, error) {
	return c.deliveries, c.err
}

func envelope(t *testing.T, eventType string, payload any) events.Envelope {
	t.Helper()
	env, err := events.New(eventType, payload, time.Now())
	require.NoError(t, err)
	return env
}

func body(t *testing.T, env events.Envelope) []byte {
	t.Helper()
	raw, err := env.Marshal()
	require.NoError(t, err)
	return raw
}

func newTestWorker(store EventStore, consumer Consumer) *Worker {
	return NewWorker(&Config{
		Logger:       logger.NewDiscard().Logger,
		Store:        store,
		Consumer:     consumer,
		WorkerID:     "worker-test",
		Concurrency:  2,
		EventTimeout: time.Second,
	})
}

func TestWorker_ProcessEvent(t *testing.T) {
	swipe := events.SwipeRecorded{SwipeID: testSwipeID, JobID: testJobID, UserID: "demo_user", Action: "accept"}
	paid := events.PaymentCompleted{PaymentID: "pay-1", JobID: testJobID, TxID: "tx-1", Amount: decimal.NewFromInt(50)}

	tests := []struct {
		name          string
		env           events.Envelope
		store         *fakeStore
		wantErr       error
		wantRetryable bool
		wantSwipes    []string
		wantFilled    []string
	}{
		{
			name:       "swipe recorded",
			env:        envelope(t, events.TypeSwipeRecorded, swipe),
			store:      &fakeStore{},
			wantSwipes: []string{testSwipeID + ":accept"},
		},
		{
			name:       "payment completed",
			env:        envelope(t, events.TypePaymentCompleted, paid),
			store:      &fakeStore{},
			wantFilled: []string{testJobID},
		},
		{
			name:    "unknown type",
			env:     envelope(t, "job.deleted", swipe),
			store:   &fakeStore{},
			wantErr: domain.ErrUnknownEventType,
		},
		{
			name:    "swipe with invalid action",
			env:     envelope(t, events.TypeSwipeRecorded, events.SwipeRecorded{SwipeID: testSwipeID, JobID: testJobID, Action: "maybe"}),
			store:   &fakeStore{},
			wantErr: domain.ErrInvalidPayload,
		},
		{
			name:    "swipe with bad job id",
			env:     envelope(t, events.TypeSwipeRecorded, events.SwipeRecorded{SwipeID: testSwipeID, JobID: "42", Action: "reject"}),
			store:   &fakeStore{},
			wantErr: domain.ErrInvalidPayload,
		},
		{
			name:    "payload of the wrong shape",
			env:     events.Envelope{ID: testSwipeID, Type: events.TypePaymentCompleted, Payload: []byte(`"oops"`)},
			store:   &fakeStore{},
			wantErr: domain.ErrInvalidPayload,
		},
		{
			name:    "swipe never stored",
			env:     envelope(t, events.TypeSwipeRecorded, swipe),
			store:   &fakeStore{swipeErr: domain.ErrSwipeNotFound},
			wantErr: domain.ErrSwipeNotFound,
		},
		{
			name:          "database failure on swipe",
			env:           envelope(t, events.TypeSwipeRecorded, swipe),
			store:         &fakeStore{swipeErr: errors.New("connection reset")},
			wantRetryable: true,
		},
		{
			name:          "database failure on payment",
			env:           envelope(t, events.TypePaymentCompleted, paid),
			store:         &fakeStore{fillErr: errors.New("connection reset")},
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorker(tt.store, nil)

			err := w.processEvent(context.Background(), tt.env)

			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				assert.False(t, shouldRequeue(err, false))
			case tt.wantRetryable:
				var retryable *domain.RetryableError
				require.ErrorAs(t, err, &retryable)
				assert.True(t, shouldRequeue(err, false))
			default:
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantSwipes, tt.store.swipes)
			assert.Equal(t, tt.wantFilled, tt.store.filled)
		})
	}
}

func TestShouldRequeue(t *testing.T) {
	retryable := domain.NewRetryableError(errors.New("timeout"))

	assert.True(t, shouldRequeue(retryable, false))
	assert.False(t, shouldRequeue(retryable, true), "a redelivered message is not requeued again")
	assert.False(t, shouldRequeue(domain.ErrInvalidPayload, false))
	assert.False(t, shouldRequeue(errors.New("unknown"), false))
}

func TestWorker_StartAcknowledgesDeliveries(t *testing.T) {
	store := &fakeStore{}
	consumer := &fakeConsumer{deliveries: make(chan amqp.Delivery)}
	acker := newFakeAcknowledger()
	w := newTestWorker(store, consumer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	swipe := envelope(t, events.TypeSwipeRecorded, events.SwipeRecorded{SwipeID: testSwipeID, JobID: testJobID, Action: "reject"})

	consumer.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 1, Body: body(t, swipe)}
	assert.Equal(t, ackResult{tag: 1, acked: true}, acker.next(t))

	consumer.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 2, Body: []byte("not json")}
	assert.Equal(t, ackResult{tag: 2, requeue: false}, acker.next(t))

	store.mu.Lock()
	store.swipeErr = errors.New("connection reset")
	store.mu.Unlock()

	consumer.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 3, Body: body(t, swipe)}
	assert.Equal(t, ackResult{tag: 3, requeue: true}, acker.next(t))

	consumer.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 4, Body: body(t, swipe), Redelivered: true}
	assert.Equal(t, ackResult{tag: 4, requeue: false}, acker.next(t))

	close(consumer.deliveries)
	select {
	case err := <-done:
		require.ErrorIs(t, err, domain.ErrDeliveriesClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not return after the delivery channel closed")
	}

	w.Stop()
	assert.Equal(t, []string{testSwipeID + ":reject"}, store.swipes)
}

func TestWorker_StartReturnsOnCancel(t *testing.T) {
	w := newTestWorker(&fakeStore{}, &fakeConsumer{deliveries: make(chan amqp.Delivery)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not return after cancel")
	}
	w.Stop()
}

func TestWorker_StartConsumeError(t *testing.T) {
	w := newTestWorker(&fakeStore{}, &fakeConsumer{err: errors.New("channel closed")})

	err := w.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start consuming")
}
