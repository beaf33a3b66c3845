package cartref

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("cart binding not found")

// Binding ties a browser session to its server-side cart. The storefront
// holds no cart state of its own, only this pointer.
type Binding struct {
	SessionID  string    `bson:"_id"`
	CartID     string    `bson:"cart_id"`
	CustomerID string    `bson:"customer_id,omitempty"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

type Store interface {
	Get(ctx context.Context, sessionID string) (*Binding, error)
	Bind(ctx context.Context, binding *Binding) error
	Unbind(ctx context.Context, sessionID string) error
}
