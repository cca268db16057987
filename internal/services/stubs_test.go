package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	domain "github.com/sundai-club/shop/internal/domain"
	"github.com/sundai-club/shop/internal/payments"
	"github.com/sundai-club/shop/internal/printful"
	"github.com/sundai-club/shop/internal/repositories"
)

type stubCatalogProvider struct {
	hasStore            bool
	listStoreFunc       func(ctx context.Context) ([]printful.Product, error)
	listCatalogFunc     func(ctx context.Context) ([]printful.Product, error)
	storeProductFunc    func(ctx context.Context, id int64) (printful.ProductDetail, error)
	catalogProductFunc  func(ctx context.Context, id int64) (printful.ProductDetail, error)
	catalogVariantsFunc func(ctx context.Context, id int64) ([]printful.Variant, error)
	syncFunc            func(ctx context.Context) (json.RawMessage, error)

	mu    sync.Mutex
	calls map[string]int
}

func (s *stubCatalogProvider) record(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[name]++
}

func (s *stubCatalogProvider) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *stubCatalogProvider) HasStore() bool { return s.hasStore }

func (s *stubCatalogProvider) ListStoreProducts(ctx context.Context) ([]printful.Product, error) {
	s.record("listStore")
	if s.listStoreFunc == nil {
		return nil, errors.New("store listing not stubbed")
	}
	return s.listStoreFunc(ctx)
}

func (s *stubCatalogProvider) ListCatalogProducts(ctx context.Context) ([]printful.Product, error) {
	s.record("listCatalog")
	if s.listCatalogFunc == nil {
		return nil, errors.New("catalog listing not stubbed")
	}
	return s.listCatalogFunc(ctx)
}

func (s *stubCatalogProvider) StoreProduct(ctx context.Context, id int64) (printful.ProductDetail, error) {
	s.record("storeProduct")
	if s.storeProductFunc == nil {
		return printful.ProductDetail{}, errors.New("store product not stubbed")
	}
	return s.storeProductFunc(ctx, id)
}

func (s *stubCatalogProvider) CatalogProduct(ctx context.Context, id int64) (printful.ProductDetail, error) {
	s.record("catalogProduct")
	if s.catalogProductFunc == nil {
		return printful.ProductDetail{}, errors.New("catalog product not stubbed")
	}
	return s.catalogProductFunc(ctx, id)
}

func (s *stubCatalogProvider) CatalogVariants(ctx context.Context, id int64) ([]printful.Variant, error) {
	s.record("catalogVariants")
	if s.catalogVariantsFunc == nil {
		return nil, errors.New("catalog variants not stubbed")
	}
	return s.catalogVariantsFunc(ctx, id)
}

func (s *stubCatalogProvider) SyncProducts(ctx context.Context) (json.RawMessage, error) {
	s.record("sync")
	if s.syncFunc == nil {
		return json.RawMessage(`{}`), nil
	}
	return s.syncFunc(ctx)
}

// staticCatalog serves a fixed product list.
type staticCatalog struct {
	products []Product
}

func (c *staticCatalog) Products(context.Context) []Product { return c.products }

func (c *staticCatalog) Product(_ context.Context, id int64) (Product, error) {
	for _, product := range c.products {
		if product.ID == id {
			return product, nil
		}
	}
	return Product{}, ErrCatalogProductNotFound
}

func (c *staticCatalog) ProductsByCategory(context.Context, string) []Product { return c.products }

func (c *staticCatalog) Snapshot(context.Context) CatalogSnapshot {
	return CatalogSnapshot{Products: c.products, Source: catalogSourceStore}
}

func (c *staticCatalog) Refresh(ctx context.Context) CatalogSnapshot { return c.Snapshot(ctx) }

func (c *staticCatalog) Sync(ctx context.Context) (CatalogSnapshot, error) {
	return c.Snapshot(ctx), nil
}

func (c *staticCatalog) Invalidate() {}

type stubCostProvider struct {
	shippingFunc func(ctx context.Context, req printful.ShippingRequest) ([]printful.ShippingRate, error)
	estimateFunc func(ctx context.Context, req printful.OrderRequest) (printful.CostEstimate, error)
}

func (s *stubCostProvider) ShippingRates(ctx context.Context, req printful.ShippingRequest) ([]printful.ShippingRate, error) {
	if s.shippingFunc == nil {
		return nil, nil
	}
	return s.shippingFunc(ctx, req)
}

func (s *stubCostProvider) EstimateCosts(ctx context.Context, req printful.OrderRequest) (printful.CostEstimate, error) {
	if s.estimateFunc == nil {
		return printful.CostEstimate{}, nil
	}
	return s.estimateFunc(ctx, req)
}

type stubOrderProvider struct {
	createFunc    func(ctx context.Context, req printful.OrderRequest, confirm bool) (printful.Order, error)
	confirmFunc   func(ctx context.Context, id int64) (printful.Order, error)
	orderFunc     func(ctx context.Context, id int64) (printful.Order, error)
	shipmentsFunc func(ctx context.Context, id int64) ([]printful.Shipment, error)

	mu          sync.Mutex
	createCalls int
}

func (s *stubOrderProvider) CreateOrder(ctx context.Context, req printful.OrderRequest, confirm bool) (printful.Order, error) {
	s.mu.Lock()
	s.createCalls++
	s.mu.Unlock()
	if s.createFunc == nil {
		return printful.Order{}, errors.New("create order not stubbed")
	}
	return s.createFunc(ctx, req, confirm)
}

func (s *stubOrderProvider) creates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createCalls
}

func (s *stubOrderProvider) ConfirmOrder(ctx context.Context, id int64) (printful.Order, error) {
	if s.confirmFunc == nil {
		return printful.Order{}, errors.New("confirm not stubbed")
	}
	return s.confirmFunc(ctx, id)
}

func (s *stubOrderProvider) Order(ctx context.Context, id int64) (printful.Order, error) {
	if s.orderFunc == nil {
		return printful.Order{}, errors.New("order not stubbed")
	}
	return s.orderFunc(ctx, id)
}

func (s *stubOrderProvider) OrderShipments(ctx context.Context, id int64) ([]printful.Shipment, error) {
	if s.shipmentsFunc == nil {
		return nil, errors.New("shipments not stubbed")
	}
	return s.shipmentsFunc(ctx, id)
}

type stubStoreProvider struct {
	countriesFunc func(ctx context.Context) ([]printful.Country, error)
	storeFunc     func(ctx context.Context) (printful.Store, error)
}

func (s *stubStoreProvider) Countries(ctx context.Context) ([]printful.Country, error) {
	return s.countriesFunc(ctx)
}

func (s *stubStoreProvider) StoreInfo(ctx context.Context) (printful.Store, error) {
	return s.storeFunc(ctx)
}

type memoryCartRepository struct {
	mu     sync.Mutex
	carts  map[string]domain.Cart
	putErr error
}

func newMemoryCartRepository() *memoryCartRepository {
	return &memoryCartRepository{carts: map[string]domain.Cart{}}
}

func (r *memoryCartRepository) Get(_ context.Context, sessionID string) (domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.carts[sessionID]
	if !ok {
		return domain.Cart{SessionID: sessionID, Entries: []domain.CartEntry{}}, nil
	}
	cart.Entries = append([]domain.CartEntry(nil), cart.Entries...)
	return cart, nil
}

func (r *memoryCartRepository) Put(_ context.Context, cart domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.putErr != nil {
		return r.putErr
	}
	cart.Entries = append([]domain.CartEntry(nil), cart.Entries...)
	r.carts[cart.SessionID] = cart
	return nil
}

type memoryPendingOrders struct {
	mu       sync.Mutex
	orders   map[string]domain.PendingCheckoutOrder
	markErr  error
	markHits int
}

func newMemoryPendingOrders() *memoryPendingOrders {
	return &memoryPendingOrders{orders: map[string]domain.PendingCheckoutOrder{}}
}

func (r *memoryPendingOrders) Create(_ context.Context, order domain.PendingCheckoutOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.PaymentSessionID]; ok {
		return repositories.NewStoreError("create_pending_order", repositories.StoreErrorConflict, nil)
	}
	r.orders[order.PaymentSessionID] = order
	return nil
}

func (r *memoryPendingOrders) Get(_ context.Context, paymentSessionID string) (domain.PendingCheckoutOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[paymentSessionID]
	if !ok {
		return domain.PendingCheckoutOrder{}, repositories.NewStoreError("get_pending_order", repositories.StoreErrorNotFound, nil)
	}
	return order, nil
}

func (r *memoryPendingOrders) MarkFulfilled(_ context.Context, paymentSessionID string, orderID int64, at time.Time) (domain.PendingCheckoutOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markHits++
	if r.markErr != nil {
		return domain.PendingCheckoutOrder{}, r.markErr
	}
	order := r.orders[paymentSessionID]
	order.Fulfilled = true
	order.FulfillmentOrderID = orderID
	order.FulfilledAt = &at
	order.UpdatedAt = at
	r.orders[paymentSessionID] = order
	return order, nil
}

type stubPayments struct {
	createFunc   func(ctx context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error)
	retrieveFunc func(ctx context.Context, id string) (payments.CheckoutSession, error)

	mu            sync.Mutex
	retrieveCalls int
}

func (s *stubPayments) CreateCheckoutSession(ctx context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error) {
	return s.createFunc(ctx, req)
}

func (s *stubPayments) RetrieveCheckoutSession(ctx context.Context, id string) (payments.CheckoutSession, error) {
	s.mu.Lock()
	s.retrieveCalls++
	s.mu.Unlock()
	return s.retrieveFunc(ctx, id)
}

type recordingOrderLog struct {
	mu      sync.Mutex
	records []OrderRecord
	updates map[string][]OrderRecordUpdate
}

func (r *recordingOrderLog) Record(_ context.Context, record OrderRecord) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return "rec-1"
}

func (r *recordingOrderLog) Update(_ context.Context, id string, update OrderRecordUpdate) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updates == nil {
		r.updates = map[string][]OrderRecordUpdate{}
	}
	r.updates[id] = append(r.updates[id], update)
	return true
}

func (r *recordingOrderLog) FindByStripeSession(context.Context, string) (OrderRecord, bool) {
	return OrderRecord{}, false
}

func (r *recordingOrderLog) ListByEmail(context.Context, string) []OrderRecord { return nil }

type recordingPublisher struct {
	mu     sync.Mutex
	events []OrderEvent
	err    error
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, event OrderEvent) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return "msg-1", p.err
}

// teeProduct is a two-size shirt with store variants priced at 20.00.
func teeProduct() Product {
	return Product{
		ID:       7,
		Name:     "SundAI Tee",
		Category: categoryApparel,
		Price:    20,
		Sizes:    []string{"M", "L"},
		InStock:  true,
		ImageURL: "https://files.example/tee.png",
		Variants: []Variant{
			{ID: 4012, SyncVariantID: 9001, Name: "SundAI Tee / M", Size: "M", RetailPrice: 20, Available: true},
			{ID: 4013, SyncVariantID: 9002, Name: "SundAI Tee / L", Size: "L", RetailPrice: 20, Available: true},
		},
	}
}

// stickerProduct is a one-size catalog product priced at 5.00.
func stickerProduct() Product {
	return Product{
		ID:       8,
		Name:     "Sticker",
		Category: categoryAccessories,
		Price:    5,
		Sizes:    []string{domain.DefaultSizeLabel},
		InStock:  true,
		Variants: []Variant{
			{ID: 5100, Name: "Sticker", Size: domain.DefaultSizeLabel, RetailPrice: 5, Available: true},
		},
	}
}

func validRecipient() Recipient {
	return Recipient{
		Name:        "Ada Lovelace",
		Address1:    "1 Main St",
		City:        "Boston",
		StateCode:   "ma",
		Zip:         "02110",
		CountryCode: "us",
		Email:       "ada@example.com",
	}
}
