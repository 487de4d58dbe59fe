package payment

import "context"

// Demo is the provider used when no wallet is present
type Demo struct{}

func (Demo) Name() string { return ModeDemo }

func (Demo) Authenticate(context.Context, []string) (*WalletSession, error) {
	return nil, ErrProviderUnavailable
}

func (Demo) CreatePayment(context.Context, PaymentRequest) (<-chan Callback, error) {
	return nil, ErrProviderUnavailable
}
