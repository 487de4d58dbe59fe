package domain

import "errors"

var (
	// ErrUnknownEventType is returned for events the worker has no handler for
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrInvalidPayload is returned when an event payload is malformed or incomplete
	ErrInvalidPayload = errors.New("invalid event payload")

	// ErrSwipeNotFound is returned when a swipe event refers to a swipe that was never stored
	ErrSwipeNotFound = errors.New("swipe not found")

	// ErrDeliveriesClosed is returned by Start when the broker stops delivering
	ErrDeliveriesClosed = errors.New("delivery channel closed")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
