// Package payment wraps the external payment provider. Sessions are opaque
// handles; provider-specific confirmation UIs are out of scope, so the default
// provider confirms server-side.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DeclinedError is a provider-side refusal (card declined, fraud check). It is
// retryable: the cart is untouched and the shopper may reattempt.
type DeclinedError struct {
	ProviderID string
	Reason     string
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("payment declined by %s: %s", e.ProviderID, e.Reason)
}

// Session is the provider-side handle for one payment attempt.
type Session struct {
	ID         string
	ProviderID string
	Amount     int64
	Currency   string
	CreatedAt  time.Time
}

type Provider interface {
	ID() string
	// CreateSession opens a payment session for the given amount. No cart
	// state is touched; the session only becomes part of the cart once the
	// checkout layer registers it with the commerce backend.
	CreateSession(ctx context.Context, cartID string, amount int64, currency string) (*Session, error)
	// ConfirmSession completes the provider round trip for the session.
	ConfirmSession(ctx context.Context, sessionID string) error
}

// SystemProvider is the default no-external-call provider, used for test
// orders and regions without a configured gateway.
type SystemProvider struct{}

func (SystemProvider) ID() string { return "pp_system_default" }

func (SystemProvider) CreateSession(_ context.Context, cartID string, amount int64, currency string) (*Session, error) {
	return &Session{
		ID:         "ps_" + uuid.NewString(),
		ProviderID: "pp_system_default",
		Amount:     amount,
		Currency:   currency,
		CreatedAt:  time.Now(),
	}, nil
}

func (SystemProvider) ConfirmSession(context.Context, string) error {
	return nil
}
