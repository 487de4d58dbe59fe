// Package payment defines the wallet-side payment handshake and its providers.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
)

// ErrProviderUnavailable means no wallet SDK is reachable; callers fall back to demo behaviour
var ErrProviderUnavailable = errors.New("payment provider unavailable")

// Phase is the state of a payment handshake
type Phase int

const (
	Initiated Phase = iota
	ReadyForApproval
	ReadyForCompletion
	Cancelled
	Errored
	Completed
)

func (p Phase) String() string {
	switch p {
	case Initiated:
		return "initiated"
	case ReadyForApproval:
		return "ready_for_approval"
	case ReadyForCompletion:
		return "ready_for_completion"
	case Cancelled:
		return "cancelled"
	case Errored:
		return "errored"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether no further transition can follow p
func (p Phase) Terminal() bool {
	return p == Cancelled || p == Errored || p == Completed
}

// WalletSession is the identity returned by a successful authentication
type WalletSession struct {
	UserID      string
	Username    string
	AccessToken string
}

type PaymentRequest struct {
	Amount   decimal.Decimal
	Memo     string
	Metadata map[string]string
}

// Callback is one asynchronous notification from the wallet
type Callback struct {
	Phase     Phase
	PaymentID string
	TxID      string
	Err       error
}

// Provider is a wallet capable of authenticating a user and running a payment.
// The callback channel is closed after ReadyForCompletion, Cancelled or Errored.
type Provider interface {
	Name() string
	Authenticate(ctx context.Context, scopes []string) (*WalletSession, error)
	CreatePayment(ctx context.Context, req PaymentRequest) (<-chan Callback, error)
}

const (
	ModeDemo = "demo"
	ModeLive = "live"
)

// NewProvider picks the provider for mode once at startup
func NewProvider(mode, bridgeURL string, logger *slog.Logger) (Provider, error) {
	switch mode {
	case ModeDemo, "":
		return Demo{}, nil
	case ModeLive:
		if bridgeURL == "" {
			return nil, fmt.Errorf("live payment mode requires a wallet bridge url")
		}
		return NewBridge(bridgeURL, logger), nil
	default:
		return nil, fmt.Errorf("unknown payment mode %q", mode)
	}
}
