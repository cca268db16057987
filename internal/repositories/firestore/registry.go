package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/sundai-club/shop/internal/platform/firestore"
	"github.com/sundai-club/shop/internal/repositories"
)

// Registry serves Firestore repositories sharing a single provider.
type Registry struct {
	provider *pfirestore.Provider
	carts    *CartRepository
	pending  *PendingOrderRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry builds every Firestore repository on provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry requires provider")
	}
	carts, err := NewCartRepository(provider)
	if err != nil {
		return nil, err
	}
	pending, err := NewPendingOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	return &Registry{provider: provider, carts: carts, pending: pending}, nil
}

// Close releases the provider's client.
func (r *Registry) Close(ctx context.Context) error {
	return r.provider.Close(ctx)
}

func (r *Registry) Carts() repositories.CartRepository { return r.carts }

func (r *Registry) PendingOrders() repositories.PendingOrderRepository { return r.pending }
