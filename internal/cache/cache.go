package cache

import (
	"context"
	"errors"

	"github.com/cakebox/storefront/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// SnapshotCache holds short-lived copies of backend reads: cart snapshots and
// per-cart shipping options. It is an availability optimisation only; the
// backend stays authoritative and mutators refresh the cached snapshot with
// every acknowledged write.
type SnapshotCache interface {
	GetCart(ctx context.Context, cartID string) (*domain.Cart, error)
	SetCart(ctx context.Context, cartID string, cart *domain.Cart) error
	DeleteCart(ctx context.Context, cartID string) error

	GetShippingOptions(ctx context.Context, cartID string) ([]domain.ShippingOption, error)
	SetShippingOptions(ctx context.Context, cartID string, options []domain.ShippingOption) error

	// FlushPrefix removes every key under the given prefix, used by the
	// cache-invalidation webhook when catalog data changes upstream.
	FlushPrefix(ctx context.Context, prefix string) error
}
