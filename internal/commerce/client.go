// Package commerce is the client boundary to the remote commerce backend. The
// backend owns carts, the catalog, pricing and orders; this package only
// exposes the request/response operations the storefront needs and translates
// backend failures into errors the checkout layer can classify.
package commerce

import (
	"context"
	"errors"
	"fmt"

	"github.com/cakebox/storefront/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// RejectionError is a well-formed request the backend declined, e.g. a
// shipping option that is not valid for the cart's address. The cart is
// unchanged when this is returned. Field is set when the rejection points at a
// single input field.
type RejectionError struct {
	Code    string
	Message string
	Field   string
}

func (e *RejectionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("backend rejected %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("backend rejected request: %s", e.Message)
}

// CartUpdate is a partial cart mutation. Nil fields are left untouched.
type CartUpdate struct {
	Email           *string         `json:"email,omitempty"`
	ShippingAddress *domain.Address `json:"shipping_address,omitempty"`
	BillingAddress  *domain.Address `json:"billing_address,omitempty"`
}

// Client is the commerce backend consumed by the checkout flow. Every call is
// a network round trip; mutations return the refreshed cart snapshot, which
// the caller must treat as the new canonical state.
type Client interface {
	CreateCart(ctx context.Context, regionID string) (*domain.Cart, error)
	GetCart(ctx context.Context, cartID string) (*domain.Cart, error)
	UpdateCart(ctx context.Context, cartID string, update CartUpdate) (*domain.Cart, error)
	AddLineItem(ctx context.Context, cartID, variantID string, quantity int) (*domain.Cart, error)
	UpdateLineItem(ctx context.Context, cartID, itemID string, quantity int) (*domain.Cart, error)
	RemoveLineItem(ctx context.Context, cartID, itemID string) (*domain.Cart, error)
	ListShippingOptions(ctx context.Context, cartID string) ([]domain.ShippingOption, error)
	AddShippingMethod(ctx context.Context, cartID, optionID string) (*domain.Cart, error)
	SetPaymentCollection(ctx context.Context, cartID string, collection domain.PaymentCollection) (*domain.Cart, error)
	CompleteCart(ctx context.Context, cartID string) (*domain.Order, error)
}
