package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sundai-club/shop/internal/printful"
)

const (
	catalogSourceStore   = "store"
	catalogSourceCatalog = "catalog"
)

// CatalogServiceDeps wires the dependencies required by the catalog service.
type CatalogServiceDeps struct {
	Provider CatalogProvider
	Clock    func() time.Time
	// TTL bounds how long a snapshot is served. Zero keeps it until Invalidate or Refresh.
	TTL    time.Duration
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type catalogService struct {
	provider CatalogProvider
	now      func() time.Time
	ttl      time.Duration
	logger   func(ctx context.Context, event string, fields map[string]any)

	mu       sync.RWMutex
	snapshot *CatalogSnapshot
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService constructs the catalog cache.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Provider == nil {
		return nil, errors.New("catalog service: provider is required")
	}
	if deps.TTL < 0 {
		return nil, errors.New("catalog service: ttl must not be negative")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &catalogService{
		provider: deps.Provider,
		now: func() time.Time {
			return clock().UTC()
		},
		ttl:    deps.TTL,
		logger: logger,
	}, nil
}

func (s *catalogService) Products(ctx context.Context) []Product {
	return s.Snapshot(ctx).Products
}

func (s *catalogService) Product(ctx context.Context, productID int64) (Product, error) {
	for _, product := range s.Products(ctx) {
		if product.ID == productID {
			return product, nil
		}
	}
	return Product{}, ErrCatalogProductNotFound
}

func (s *catalogService) ProductsByCategory(ctx context.Context, category string) []Product {
	category = strings.TrimSpace(category)
	products := s.Products(ctx)
	filtered := make([]Product, 0, len(products))
	for _, product := range products {
		if strings.EqualFold(product.Category, category) {
			filtered = append(filtered, product)
		}
	}
	return filtered
}

// Snapshot returns the cached catalog, fetching it when empty or expired. Fetches run outside
// the lock, so concurrent cold reads may fetch more than once and the last write wins.
func (s *catalogService) Snapshot(ctx context.Context) CatalogSnapshot {
	s.mu.RLock()
	current := s.snapshot
	s.mu.RUnlock()
	if current != nil && !s.expired(*current) {
		return *current
	}
	return s.load(ctx)
}

func (s *catalogService) Refresh(ctx context.Context) CatalogSnapshot {
	s.Invalidate()
	return s.load(ctx)
}

// Sync asks the provider to resync store products, then rebuilds the cache.
func (s *catalogService) Sync(ctx context.Context) (CatalogSnapshot, error) {
	if _, err := s.provider.SyncProducts(ctx); err != nil {
		s.logger(ctx, "catalog.sync_failed", map[string]any{"error": err.Error()})
		return CatalogSnapshot{}, upstreamError("sync_products", err)
	}
	return s.Refresh(ctx), nil
}

func (s *catalogService) Invalidate() {
	s.mu.Lock()
	s.snapshot = nil
	s.mu.Unlock()
}

func (s *catalogService) expired(snapshot CatalogSnapshot) bool {
	if s.ttl <= 0 {
		return false
	}
	return s.now().Sub(snapshot.FetchedAt) >= s.ttl
}

func (s *catalogService) load(ctx context.Context) CatalogSnapshot {
	snapshot, ok := s.fetch(ctx)
	if !ok {
		return snapshot
	}
	s.mu.Lock()
	s.snapshot = &snapshot
	s.mu.Unlock()
	return snapshot
}

// fetch lists store products when a store is configured, falling back to the public catalog.
// ok is false when no listing succeeded; the empty result is then not cached.
func (s *catalogService) fetch(ctx context.Context) (CatalogSnapshot, bool) {
	started := s.now()
	var (
		raw    []printful.Product
		source string
		err    error
	)
	if s.provider.HasStore() {
		raw, err = s.provider.ListStoreProducts(ctx)
		source = catalogSourceStore
		if err != nil {
			s.logger(ctx, "catalog.store_listing_failed", map[string]any{"error": err.Error()})
		}
	}
	if source == "" || err != nil {
		raw, err = s.provider.ListCatalogProducts(ctx)
		source = catalogSourceCatalog
	}
	if err != nil {
		s.logger(ctx, "catalog.listing_failed", map[string]any{"error": err.Error()})
		return CatalogSnapshot{Products: []Product{}, Source: source, FetchedAt: started}, false
	}

	entries := make([]RawCatalogEntry, 0, len(raw))
	var dropped []SkippedProduct
	for _, product := range raw {
		if product.DecodeError != "" {
			dropped = append(dropped, SkippedProduct{ID: product.ID, Name: product.Name, Reason: "malformed listing: " + product.DecodeError})
			continue
		}
		if product.IsIgnored {
			dropped = append(dropped, SkippedProduct{ID: product.ID, Name: product.DisplayName(), Reason: "ignored in store"})
			continue
		}
		entries = append(entries, s.expand(ctx, product, source))
	}

	products, skipped := NormalizeCatalog(entries)
	skipped = append(dropped, skipped...)
	for _, skip := range skipped {
		s.logger(ctx, "catalog.product_skipped", map[string]any{
			"productId": skip.ID,
			"reason":    skip.Reason,
		})
	}
	s.logger(ctx, "catalog.loaded", map[string]any{
		"source":     source,
		"products":   len(products),
		"skipped":    len(skipped),
		"durationMs": s.now().Sub(started).Milliseconds(),
	})
	return CatalogSnapshot{
		Products:  products,
		Skipped:   skipped,
		Source:    source,
		FetchedAt: started,
	}, true
}

// expand loads full variant detail for listings that only carry a variant count. Any failure
// leaves the product without variants.
func (s *catalogService) expand(ctx context.Context, product printful.Product, source string) RawCatalogEntry {
	entry := RawCatalogEntry{Product: product}
	if product.Variants.IsList {
		entry.Variants = product.Variants.Items
		return entry
	}
	if product.DeclaredVariantCount() <= 0 {
		return entry
	}

	var (
		detail printful.ProductDetail
		err    error
	)
	if source == catalogSourceStore {
		detail, err = s.provider.StoreProduct(ctx, product.ID)
	} else {
		detail, err = s.provider.CatalogProduct(ctx, product.ID)
	}
	if err == nil {
		if detail.SyncProduct != nil {
			entry.Detail = detail.SyncProduct
		} else if detail.Product != nil {
			entry.Detail = detail.Product
		}
		entry.Variants = detail.AllVariants()
		if len(entry.Variants) > 0 {
			return entry
		}
	} else {
		s.logger(ctx, "catalog.detail_failed", map[string]any{
			"productId": product.ID,
			"error":     err.Error(),
		})
	}

	variants, err := s.provider.CatalogVariants(ctx, product.ID)
	if err != nil {
		s.logger(ctx, "catalog.variants_failed", map[string]any{
			"productId": product.ID,
			"error":     err.Error(),
		})
		return entry
	}
	entry.Variants = variants
	return entry
}
