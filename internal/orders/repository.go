// Package orders keeps a local record of placed orders. The commerce backend
// owns the order itself; the record exists so a duplicate placement for the
// same cart can be detected after restarts, and so an order-placed event can
// be published reliably through an outbox.
package orders

import (
	"context"
	"errors"
	"time"

	"github.com/cakebox/storefront/internal/domain"
)

var (
	ErrOrderNotFound = errors.New("placed order not found")
	ErrDuplicateCart = errors.New("an order for this cart was already placed")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OutboxEvent is an order-placed event awaiting publication.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type OrderRepository interface {
	RecordPlacedOrder(ctx context.Context, order *domain.Order) error
	GetPlacedOrderByCartID(ctx context.Context, cartID string) (*domain.Order, error)
	GetUnpublishedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventPublished(ctx context.Context, id int64) error
	RunMigrations(*Credentials) error
	Close() error
}
