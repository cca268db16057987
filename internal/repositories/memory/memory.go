// Package memory keeps carts and pending checkout orders in process memory. State is lost on
// restart, which suits local development and single-instance demos.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	domain "github.com/sundai-club/shop/internal/domain"
	"github.com/sundai-club/shop/internal/repositories"
)

// Registry serves in-memory repositories.
type Registry struct {
	carts   *CartStore
	pending *PendingOrderStore
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs empty stores.
func NewRegistry() *Registry {
	return &Registry{carts: NewCartStore(), pending: NewPendingOrderStore()}
}

func (r *Registry) Close(context.Context) error { return nil }

func (r *Registry) Carts() repositories.CartRepository { return r.carts }

func (r *Registry) PendingOrders() repositories.PendingOrderRepository { return r.pending }

// CartStore maps session ids to carts.
type CartStore struct {
	mu    sync.RWMutex
	carts map[string]domain.Cart
}

var _ repositories.CartRepository = (*CartStore)(nil)

func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[string]domain.Cart)}
}

func (s *CartStore) Get(_ context.Context, sessionID string) (domain.Cart, error) {
	sessionID = strings.TrimSpace(sessionID)
	s.mu.RLock()
	cart, ok := s.carts[sessionID]
	s.mu.RUnlock()
	if !ok {
		return domain.Cart{SessionID: sessionID, Entries: []domain.CartEntry{}}, nil
	}
	return cloneCart(cart), nil
}

// Put replaces the session cart. An empty cart removes the session entry.
func (s *CartStore) Put(_ context.Context, cart domain.Cart) error {
	sessionID := strings.TrimSpace(cart.SessionID)
	if sessionID == "" {
		return repositories.NewStoreError("cart.put", repositories.StoreErrorConflict, errEmptySession)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cart.IsEmpty() {
		delete(s.carts, sessionID)
		return nil
	}
	s.carts[sessionID] = cloneCart(cart)
	return nil
}

// PendingOrderStore maps payment session ids to pending checkout orders.
type PendingOrderStore struct {
	mu     sync.Mutex
	orders map[string]domain.PendingCheckoutOrder
}

var _ repositories.PendingOrderRepository = (*PendingOrderStore)(nil)

func NewPendingOrderStore() *PendingOrderStore {
	return &PendingOrderStore{orders: make(map[string]domain.PendingCheckoutOrder)}
}

func (s *PendingOrderStore) Create(_ context.Context, order domain.PendingCheckoutOrder) error {
	key := strings.TrimSpace(order.PaymentSessionID)
	if key == "" {
		return repositories.NewStoreError("pending.create", repositories.StoreErrorConflict, errEmptySession)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[key]; exists {
		return repositories.NewStoreError("pending.create", repositories.StoreErrorConflict, nil)
	}
	s.orders[key] = clonePending(order)
	return nil
}

func (s *PendingOrderStore) Get(_ context.Context, paymentSessionID string) (domain.PendingCheckoutOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[strings.TrimSpace(paymentSessionID)]
	if !ok {
		return domain.PendingCheckoutOrder{}, repositories.NewStoreError("pending.get", repositories.StoreErrorNotFound, nil)
	}
	return clonePending(order), nil
}

func (s *PendingOrderStore) MarkFulfilled(_ context.Context, paymentSessionID string, fulfillmentOrderID int64, at time.Time) (domain.PendingCheckoutOrder, error) {
	key := strings.TrimSpace(paymentSessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[key]
	if !ok {
		return domain.PendingCheckoutOrder{}, repositories.NewStoreError("pending.mark_fulfilled", repositories.StoreErrorNotFound, nil)
	}
	if order.Fulfilled {
		return clonePending(order), nil
	}
	at = at.UTC()
	order.Fulfilled = true
	order.FulfillmentOrderID = fulfillmentOrderID
	order.FulfilledAt = &at
	order.UpdatedAt = at
	s.orders[key] = order
	return clonePending(order), nil
}

func cloneCart(cart domain.Cart) domain.Cart {
	cart.Entries = append([]domain.CartEntry{}, cart.Entries...)
	return cart
}

func clonePending(order domain.PendingCheckoutOrder) domain.PendingCheckoutOrder {
	order.FulfillmentOrder = append([]byte(nil), order.FulfillmentOrder...)
	order.Summary.Lines = append([]domain.LineItem(nil), order.Summary.Lines...)
	if order.FulfilledAt != nil {
		at := *order.FulfilledAt
		order.FulfilledAt = &at
	}
	return order
}
