package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types published by the API service and consumed by the worker
const (
	TypeSwipeRecorded    = "swipe.recorded"
	TypePaymentCompleted = "payment.completed"
)

var ErrInvalidEnvelope = errors.New("invalid event envelope")

// Envelope wraps every event published on the events exchange
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type SwipeRecorded struct {
	SwipeID string `json:"swipe_id"`
	JobID   string `json:"job_id"`
	UserID  string `json:"user_id"`
	Action  string `json:"action"`
}

type PaymentCompleted struct {
	PaymentID string          `json:"payment_id"`
	JobID     string          `json:"job_id"`
	TxID      string          `json:"txid"`
	Amount    decimal.Decimal `json:"amount"`
}

// New wraps payload in an envelope with a fresh id
func New(eventType string, payload any, occurredAt time.Time) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	return Envelope{
		ID:         uuid.New().String(),
		Type:       eventType,
		OccurredAt: occurredAt.UTC(),
		Payload:    raw,
	}, nil
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a message body and checks the envelope header
func Decode(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}

	if _, err := uuid.Parse(env.ID); err != nil {
		return Envelope{}, fmt.Errorf("%w: id %q is not a UUID", ErrInvalidEnvelope, env.ID)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrInvalidEnvelope)
	}
	if len(env.Payload) == 0 {
		return Envelope{}, fmt.Errorf("%w: missing payload", ErrInvalidEnvelope)
	}

	return env, nil
}

func (e Envelope) DecodePayload(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrInvalidEnvelope, e.Type, err)
	}
	return nil
}
