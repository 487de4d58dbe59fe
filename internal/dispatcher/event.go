package dispatcher

import (
	"github.com/cuongbtq/pi-work/internal/api/domain"
	"github.com/cuongbtq/pi-work/internal/payment"
)

// Event is the result of an effect, fed back into Dispatcher.Handle
type Event interface {
	event()
}

type Authenticated struct {
	Session *payment.WalletSession
	Err     error
}

type CategoriesLoaded struct {
	Categories []string
	Err        error
}

// JobsLoaded answers the fetch numbered Gen; older fetches are dropped
type JobsLoaded struct {
	Gen      int
	Category string
	Jobs     []domain.Job
	Err      error
}

type DecisionRecorded struct {
	JobID   string
	Action  domain.Action
	Message string
	Err     error
}

type PaymentStarted struct {
	HandshakeID int
	Callbacks   <-chan payment.Callback
	Err         error
}

// PaymentCallback carries one wallet callback; Closed means the channel ended
type PaymentCallback struct {
	HandshakeID int
	Callback    payment.Callback
	Closed      bool
}

type ApprovalNotified struct {
	HandshakeID int
	PaymentID   string
	Err         error
}

type CompletionNotified struct {
	HandshakeID int
	PaymentID   string
	TxID        string
	Err         error
}

type HandshakeTimedOut struct {
	HandshakeID int
}

type MessageExpired struct {
	Seq int
}

func (Authenticated) event()      {}
func (CategoriesLoaded) event()   {}
func (JobsLoaded) event()         {}
func (DecisionRecorded) event()   {}
func (PaymentStarted) event()     {}
func (PaymentCallback) event()    {}
func (ApprovalNotified) event()   {}
func (CompletionNotified) event() {}
func (HandshakeTimedOut) event()  {}
func (MessageExpired) event()     {}
