package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// Frame types exchanged with the wallet bridge
const (
	frameAuthenticate       = "authenticate"
	frameAuthResult         = "auth_result"
	frameCreatePayment      = "create_payment"
	frameReadyForApproval   = "ready_for_approval"
	frameReadyForCompletion = "ready_for_completion"
	frameCancelled          = "cancelled"
	frameError              = "error"
)

const (
	handshakeTimeout = 10 * time.Second
	writeWait        = 10 * time.Second
)

type bridgeUser struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
}

type bridgePayment struct {
	Amount   decimal.Decimal   `json:"amount"`
	Memo     string            `json:"memo"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type bridgeFrame struct {
	Type        string         `json:"type"`
	Scopes      []string       `json:"scopes,omitempty"`
	Payment     *bridgePayment `json:"payment,omitempty"`
	User        *bridgeUser    `json:"user,omitempty"`
	AccessToken string         `json:"access_token,omitempty"`
	PaymentID   string         `json:"payment_id,omitempty"`
	TxID        string         `json:"txid,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Bridge is the live provider. It relays requests as JSON frames over a
// WebSocket to the page hosting the Pi SDK, one connection per operation.
type Bridge struct {
	url    string
	dialer *websocket.Dialer
	logger *slog.Logger
}

func NewBridge(url string, logger *slog.Logger) *Bridge {
	return &Bridge{
		url:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		logger: logger,
	}
}

func (b *Bridge) Name() string { return ModeLive }

func (b *Bridge) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := b.dialer.DialContext(ctx, b.url, nil)
	if err != nil {
		b.logger.Warn("Wallet bridge unreachable",
			slog.String("url", b.url),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return conn, nil
}

func send(conn *websocket.Conn, frame bridgeFrame) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(frame)
}

// closeOnDone closes conn when ctx ends so a blocked read returns
func closeOnDone(ctx context.Context, conn *websocket.Conn) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	return func() { close(done) }
}

func (b *Bridge) Authenticate(ctx context.Context, scopes []string) (*WalletSession, error) {
	conn, err := b.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	stop := closeOnDone(ctx, conn)
	defer stop()

	if err := send(conn, bridgeFrame{Type: frameAuthenticate, Scopes: scopes}); err != nil {
		return nil, fmt.Errorf("failed to send authenticate: %w", err)
	}

	var reply bridgeFrame
	if err := conn.ReadJSON(&reply); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to read auth result: %w", err)
	}

	if reply.Type != frameAuthResult {
		return nil, fmt.Errorf("unexpected frame %q while authenticating", reply.Type)
	}
	if reply.Error != "" {
		return nil, errors.New(reply.Error)
	}
	if reply.User == nil || reply.User.UID == "" {
		return nil, errors.New("auth result carries no user")
	}

	return &WalletSession{
		UserID:      reply.User.UID,
		Username:    reply.User.Username,
		AccessToken: reply.AccessToken,
	}, nil
}

func (b *Bridge) CreatePayment(ctx context.Context, req PaymentRequest) (<-chan Callback, error) {
	conn, err := b.dial(ctx)
	if err != nil {
		return nil, err
	}

	frame := bridgeFrame{
		Type: frameCreatePayment,
		Payment: &bridgePayment{
			Amount:   req.Amount,
			Memo:     req.Memo,
			Metadata: req.Metadata,
		},
	}
	if err := send(conn, frame); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send create_payment: %w", err)
	}

	callbacks := make(chan Callback, 4)
	go b.relay(ctx, conn, callbacks)

	return callbacks, nil
}

// relay turns bridge frames into callbacks until a final one is delivered
func (b *Bridge) relay(ctx context.Context, conn *websocket.Conn, callbacks chan<- Callback) {
	defer close(callbacks)
	defer conn.Close()
	stop := closeOnDone(ctx, conn)
	defer stop()

	for {
		var frame bridgeFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			deliver(ctx, callbacks, Callback{Phase: Errored, Err: fmt.Errorf("wallet bridge closed: %w", err)})
			return
		}

		cb, final := callbackFor(frame)
		b.logger.Debug("Wallet bridge callback",
			slog.String("phase", cb.Phase.String()),
			slog.String("payment_id", cb.PaymentID),
		)
		if !deliver(ctx, callbacks, cb) || final {
			return
		}
	}
}

func deliver(ctx context.Context, callbacks chan<- Callback, cb Callback) bool {
	select {
	case callbacks <- cb:
		return true
	case <-ctx.Done():
		return false
	}
}

func callbackFor(frame bridgeFrame) (Callback, bool) {
	switch frame.Type {
	case frameReadyForApproval:
		return Callback{Phase: ReadyForApproval, PaymentID: frame.PaymentID}, false
	case frameReadyForCompletion:
		return Callback{Phase: ReadyForCompletion, PaymentID: frame.PaymentID, TxID: frame.TxID}, true
	case frameCancelled:
		return Callback{Phase: Cancelled, PaymentID: frame.PaymentID}, true
	case frameError:
		msg := frame.Error
		if msg == "" {
			msg = "wallet reported an error"
		}
		return Callback{Phase: Errored, PaymentID: frame.PaymentID, Err: errors.New(msg)}, true
	default:
		return Callback{Phase: Errored, PaymentID: frame.PaymentID, Err: fmt.Errorf("unexpected frame %q", frame.Type)}, true
	}
}
