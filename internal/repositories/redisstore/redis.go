// Package redisstore keeps carts and pending checkout orders in Redis so several API instances
// can share shopper state.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	domain "github.com/sundai-club/shop/internal/domain"
	"github.com/sundai-club/shop/internal/repositories"
)

const (
	cartKeyPrefix    = "cart:"
	pendingKeyPrefix = "pending:"

	markFulfilledAttempts = 5
)

func cartKey(sessionID string) string {
	return fmt.Sprintf("%s%s", cartKeyPrefix, sessionID)
}

func pendingKey(paymentSessionID string) string {
	return fmt.Sprintf("%s%s", pendingKeyPrefix, paymentSessionID)
}

// Registry serves Redis backed repositories from a shared client.
type Registry struct {
	client  *redis.Client
	carts   *CartStore
	pending *PendingOrderStore
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry wires stores around client. Carts expire after cartTTL of inactivity; a zero
// TTL keeps them forever.
func NewRegistry(client *redis.Client, cartTTL time.Duration) (*Registry, error) {
	if client == nil {
		return nil, errors.New("redisstore: client is required")
	}
	return &Registry{
		client:  client,
		carts:   NewCartStore(client, cartTTL),
		pending: NewPendingOrderStore(client),
	}, nil
}

// Close releases the underlying client.
func (r *Registry) Close(context.Context) error {
	return r.client.Close()
}

func (r *Registry) Carts() repositories.CartRepository { return r.carts }

func (r *Registry) PendingOrders() repositories.PendingOrderRepository { return r.pending }

// Ping reports whether Redis answers. Used by the readiness probe.
func (r *Registry) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// CartStore persists carts as JSON documents keyed by session.
type CartStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ repositories.CartRepository = (*CartStore)(nil)

func NewCartStore(client *redis.Client, ttl time.Duration) *CartStore {
	return &CartStore{client: client, ttl: ttl}
}

func (s *CartStore) Get(ctx context.Context, sessionID string) (domain.Cart, error) {
	sessionID = strings.TrimSpace(sessionID)
	empty := domain.Cart{SessionID: sessionID, Entries: []domain.CartEntry{}}

	raw, err := s.client.Get(ctx, cartKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return empty, nil
	}
	if err != nil {
		return domain.Cart{}, unavailable("cart.get", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return domain.Cart{}, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	cart.SessionID = sessionID
	if cart.Entries == nil {
		cart.Entries = []domain.CartEntry{}
	}
	return cart, nil
}

// Put writes the cart and refreshes its expiry. Empty carts delete the key.
func (s *CartStore) Put(ctx context.Context, cart domain.Cart) error {
	sessionID := strings.TrimSpace(cart.SessionID)
	if sessionID == "" {
		return repositories.NewStoreError("cart.put", repositories.StoreErrorConflict, errors.New("session id is required"))
	}
	key := cartKey(sessionID)
	if cart.IsEmpty() {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return unavailable("cart.delete", err)
		}
		return nil
	}

	cart.SessionID = sessionID
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return unavailable("cart.put", err)
	}
	return nil
}

// PendingOrderStore persists pending checkout orders without expiry.
type PendingOrderStore struct {
	client *redis.Client
}

var _ repositories.PendingOrderRepository = (*PendingOrderStore)(nil)

func NewPendingOrderStore(client *redis.Client) *PendingOrderStore {
	return &PendingOrderStore{client: client}
}

func (s *PendingOrderStore) Create(ctx context.Context, order domain.PendingCheckoutOrder) error {
	key := strings.TrimSpace(order.PaymentSessionID)
	if key == "" {
		return repositories.NewStoreError("pending.create", repositories.StoreErrorConflict, errors.New("payment session id is required"))
	}
	payload, err := json.Marshal(toPendingDocument(order))
	if err != nil {
		return fmt.Errorf("marshal pending order failed: %w", err)
	}
	created, err := s.client.SetNX(ctx, pendingKey(key), payload, 0).Result()
	if err != nil {
		return unavailable("pending.create", err)
	}
	if !created {
		return repositories.NewStoreError("pending.create", repositories.StoreErrorConflict, nil)
	}
	return nil
}

func (s *PendingOrderStore) Get(ctx context.Context, paymentSessionID string) (domain.PendingCheckoutOrder, error) {
	return s.load(ctx, s.client, "pending.get", pendingKey(strings.TrimSpace(paymentSessionID)))
}

// MarkFulfilled flips the record inside an optimistic WATCH transaction and retries when another
// writer touched the key first.
func (s *PendingOrderStore) MarkFulfilled(ctx context.Context, paymentSessionID string, fulfillmentOrderID int64, at time.Time) (domain.PendingCheckoutOrder, error) {
	key := pendingKey(strings.TrimSpace(paymentSessionID))
	at = at.UTC()

	var result domain.PendingCheckoutOrder
	txf := func(tx *redis.Tx) error {
		order, err := s.load(ctx, tx, "pending.mark_fulfilled", key)
		if err != nil {
			return err
		}
		if order.Fulfilled {
			result = order
			return nil
		}
		order.Fulfilled = true
		order.FulfillmentOrderID = fulfillmentOrderID
		order.FulfilledAt = &at
		order.UpdatedAt = at

		payload, err := json.Marshal(toPendingDocument(order))
		if err != nil {
			return fmt.Errorf("marshal pending order failed: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err == nil {
			result = order
		}
		return err
	}

	for attempt := 0; attempt < markFulfilledAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) {
			return domain.PendingCheckoutOrder{}, err
		}
		return domain.PendingCheckoutOrder{}, unavailable("pending.mark_fulfilled", err)
	}
	return domain.PendingCheckoutOrder{}, repositories.NewStoreError("pending.mark_fulfilled", repositories.StoreErrorConflict, redis.TxFailedErr)
}

func (s *PendingOrderStore) load(ctx context.Context, cmd getter, op, key string) (domain.PendingCheckoutOrder, error) {
	raw, err := cmd.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PendingCheckoutOrder{}, repositories.NewStoreError(op, repositories.StoreErrorNotFound, nil)
	}
	if err != nil {
		return domain.PendingCheckoutOrder{}, unavailable(op, err)
	}
	var doc pendingDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.PendingCheckoutOrder{}, fmt.Errorf("unmarshal pending order failed: %w", err)
	}
	return doc.toDomain(), nil
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func unavailable(op string, err error) error {
	return repositories.NewStoreError(op, repositories.StoreErrorUnavailable, err)
}
