package dispatcher

import "errors"

var (
	ErrAuthenticationFailed = errors.New("wallet authentication failed")
	ErrHandshakeCancelled   = errors.New("payment cancelled")
	ErrHandshakeErrored     = errors.New("payment failed")
	ErrHandshakeTimeout     = errors.New("payment timed out waiting for the wallet")
	ErrFetchFailed          = errors.New("could not load jobs")
	ErrQueueExhausted       = errors.New("no job is currently displayed")
	ErrActionPending        = errors.New("an action for the current job is still in progress")
)
