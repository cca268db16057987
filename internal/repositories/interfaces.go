package repositories

import (
	"context"
	"time"

	domain "github.com/sundai-club/shop/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Carts() CartRepository
	PendingOrders() PendingOrderRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CartRepository stores one cart per shopper session. Get returns an empty cart, not an error,
// for unknown sessions.
type CartRepository interface {
	Get(ctx context.Context, sessionID string) (domain.Cart, error)
	Put(ctx context.Context, cart domain.Cart) error
}

// PendingOrderRepository persists the idempotency record created with each payment session.
// Records are never deleted.
type PendingOrderRepository interface {
	// Create stores a new record and returns a conflict error when the payment session is known.
	Create(ctx context.Context, order domain.PendingCheckoutOrder) error
	// Get returns a RepositoryError with IsNotFound when the payment session is unknown.
	Get(ctx context.Context, paymentSessionID string) (domain.PendingCheckoutOrder, error)
	// MarkFulfilled flips the record to fulfilled once. A second call returns the stored record
	// unchanged.
	MarkFulfilled(ctx context.Context, paymentSessionID string, fulfillmentOrderID int64, at time.Time) (domain.PendingCheckoutOrder, error)
}

// OrderLogRepository persists order history rows.
type OrderLogRepository interface {
	Insert(ctx context.Context, record domain.OrderRecord) (string, error)
	Update(ctx context.Context, id string, update domain.OrderRecordUpdate) error
	FindByStripeSession(ctx context.Context, sessionID string) (domain.OrderRecord, error)
	ListByEmail(ctx context.Context, email string) ([]domain.OrderRecord, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
