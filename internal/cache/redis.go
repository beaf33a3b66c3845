package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/cakebox/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	CartPrefix            = "cart:"
	ShippingOptionsPrefix = "shipping-options:"
)

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 5 * time.Minute,
	}
}

func (r *RedisCache) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, CartPrefix+cartID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &cart, nil
}

func (r *RedisCache) SetCart(ctx context.Context, cartID string, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := r.client.Set(ctx, CartPrefix+cartID, data, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) DeleteCart(ctx context.Context, cartID string) error {
	if err := r.client.Del(ctx, CartPrefix+cartID).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisCache) GetShippingOptions(ctx context.Context, cartID string) ([]domain.ShippingOption, error) {
	data, err := r.client.Get(ctx, ShippingOptionsPrefix+cartID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var options []domain.ShippingOption
	if err := json.Unmarshal(data, &options); err != nil {
		return nil, fmt.Errorf("unmarshal shipping options failed: %w", err)
	}
	return options, nil
}

func (r *RedisCache) SetShippingOptions(ctx context.Context, cartID string, options []domain.ShippingOption) error {
	data, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("marshal shipping options failed: %w", err)
	}
	if err := r.client.Set(ctx, ShippingOptionsPrefix+cartID, data, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) FlushPrefix(ctx context.Context, prefix string) error {
	iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis delete failed: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	return nil
}

// ttl adds jitter so a burst of writes does not expire all at once.
func (r *RedisCache) ttl() time.Duration {
	return r.baseTTL + time.Duration(rand.Intn(60))*time.Second
}
