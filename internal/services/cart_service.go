package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sundai-club/shop/internal/repositories"
)

// CartServiceDeps wires the dependencies required by the cart service.
type CartServiceDeps struct {
	Store   repositories.CartRepository
	Catalog CatalogService
	Clock   func() time.Time
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

type cartService struct {
	store   repositories.CartRepository
	catalog CatalogService
	now     func() time.Time
	logger  func(ctx context.Context, event string, fields map[string]any)
	locks   *keyedMutex
}

var _ CartService = (*cartService)(nil)

// NewCartService constructs the per-session cart service.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Store == nil {
		return nil, errors.New("cart service: store is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("cart service: catalog is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &cartService{
		store:   deps.Store,
		catalog: deps.Catalog,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
		locks:  newKeyedMutex(),
	}, nil
}

func (s *cartService) Cart(ctx context.Context, sessionID string) (Cart, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Cart{}, fmt.Errorf("cart: session id is required: %w", ErrInvalidInput)
	}
	cart, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return Cart{}, fmt.Errorf("cart: load: %w", err)
	}
	cart.SessionID = sessionID
	return cart, nil
}

func (s *cartService) Lines(ctx context.Context, sessionID string) ([]CartLine, error) {
	cart, err := s.Cart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	lines := make([]CartLine, 0, len(cart.Entries))
	for idx, entry := range cart.Entries {
		line := CartLine{Index: idx, Entry: entry}
		if product, err := s.catalog.Product(ctx, entry.ProductID); err == nil {
			line.Product = &product
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// AddItem appends an entry after checking the product offers the size. Variant ids are filled
// from the catalog when the caller did not supply them.
func (s *cartService) AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error) {
	if cmd.Quantity <= 0 {
		return Cart{}, ErrInvalidQuantity
	}
	product, err := s.catalog.Product(ctx, cmd.ProductID)
	if err != nil {
		return Cart{}, err
	}
	size := strings.TrimSpace(cmd.Size)
	if !slices.Contains(product.Sizes, size) {
		return Cart{}, ErrSizeNotAvailable
	}

	entry := CartEntry{
		ProductID:     product.ID,
		Size:          size,
		Quantity:      cmd.Quantity,
		VariantID:     cmd.VariantID,
		SyncVariantID: cmd.SyncVariantID,
		UnitPrice:     strings.TrimSpace(cmd.UnitPrice),
	}
	if entry.VariantID == 0 && entry.SyncVariantID == 0 {
		if variant, ok := ResolveVariant(product, entry); ok {
			entry.VariantID = variant.ID
			entry.SyncVariantID = variant.SyncVariantID
		}
	}

	return s.mutate(ctx, cmd.SessionID, func(cart *Cart) error {
		cart.Entries = append(cart.Entries, entry)
		return nil
	})
}

func (s *cartService) RemoveItem(ctx context.Context, sessionID string, index int) (Cart, error) {
	return s.mutate(ctx, sessionID, func(cart *Cart) error {
		if index < 0 || index >= len(cart.Entries) {
			return ErrCartItemNotFound
		}
		cart.Entries = slices.Delete(cart.Entries, index, index+1)
		return nil
	})
}

func (s *cartService) Clear(ctx context.Context, sessionID string) error {
	_, err := s.mutate(ctx, sessionID, func(cart *Cart) error {
		cart.Entries = nil
		return nil
	})
	return err
}

// mutate runs a read-modify-write on the session cart under the session lock.
func (s *cartService) mutate(ctx context.Context, sessionID string, fn func(*Cart) error) (Cart, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Cart{}, fmt.Errorf("cart: session id is required: %w", ErrInvalidInput)
	}
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	cart, err := s.Cart(ctx, sessionID)
	if err != nil {
		return Cart{}, err
	}
	if err := fn(&cart); err != nil {
		return Cart{}, err
	}
	cart.UpdatedAt = s.now()
	if err := s.store.Put(ctx, cart); err != nil {
		s.logger(ctx, "cart.save_failed", map[string]any{"error": err.Error()})
		return Cart{}, fmt.Errorf("cart: save: %w", err)
	}
	return cart, nil
}
