package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/sundai-club/shop/internal/platform/requestctx"
	"github.com/sundai-club/shop/internal/printful"
	"github.com/sundai-club/shop/internal/services"
)

type stubCatalogService struct {
	products   []services.Product
	productErr error
	syncFunc   func(ctx context.Context) (services.CatalogSnapshot, error)
}

func (s *stubCatalogService) Products(context.Context) []services.Product { return s.products }

func (s *stubCatalogService) Product(_ context.Context, id int64) (services.Product, error) {
	if s.productErr != nil {
		return services.Product{}, s.productErr
	}
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return services.Product{}, services.ErrCatalogProductNotFound
}

func (s *stubCatalogService) ProductsByCategory(_ context.Context, category string) []services.Product {
	out := []services.Product{}
	for _, p := range s.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

func (s *stubCatalogService) Snapshot(context.Context) services.CatalogSnapshot {
	return services.CatalogSnapshot{Products: s.products}
}

func (s *stubCatalogService) Refresh(ctx context.Context) services.CatalogSnapshot {
	return s.Snapshot(ctx)
}

func (s *stubCatalogService) Sync(ctx context.Context) (services.CatalogSnapshot, error) {
	return s.syncFunc(ctx)
}

func (s *stubCatalogService) Invalidate() {}

type stubCartService struct {
	cartFunc   func(ctx context.Context, sessionID string) (services.Cart, error)
	linesFunc  func(ctx context.Context, sessionID string) ([]services.CartLine, error)
	addFunc    func(ctx context.Context, cmd services.AddCartItemCommand) (services.Cart, error)
	removeFunc func(ctx context.Context, sessionID string, index int) (services.Cart, error)
	clearFunc  func(ctx context.Context, sessionID string) error
}

func (s *stubCartService) Cart(ctx context.Context, sessionID string) (services.Cart, error) {
	return s.cartFunc(ctx, sessionID)
}

func (s *stubCartService) Lines(ctx context.Context, sessionID string) ([]services.CartLine, error) {
	return s.linesFunc(ctx, sessionID)
}

func (s *stubCartService) AddItem(ctx context.Context, cmd services.AddCartItemCommand) (services.Cart, error) {
	return s.addFunc(ctx, cmd)
}

func (s *stubCartService) RemoveItem(ctx context.Context, sessionID string, index int) (services.Cart, error) {
	return s.removeFunc(ctx, sessionID, index)
}

func (s *stubCartService) Clear(ctx context.Context, sessionID string) error {
	return s.clearFunc(ctx, sessionID)
}

type stubCostService struct {
	computeFunc func(ctx context.Context, cart services.Cart, recipient services.Recipient) (services.OrderDetails, error)
}

func (s *stubCostService) Compute(ctx context.Context, cart services.Cart, recipient services.Recipient) (services.OrderDetails, error) {
	return s.computeFunc(ctx, cart, recipient)
}

func (s *stubCostService) ShippingRates(context.Context, services.Cart, services.Recipient) ([]services.ShippingOption, error) {
	return nil, nil
}

type stubCheckoutService struct {
	createFunc   func(ctx context.Context, cmd services.CreateCheckoutCommand) (services.CheckoutResult, error)
	completeFunc func(ctx context.Context, cmd services.CompleteCheckoutCommand) (services.CompletionResult, error)
}

func (s *stubCheckoutService) CreateSession(ctx context.Context, cmd services.CreateCheckoutCommand) (services.CheckoutResult, error) {
	return s.createFunc(ctx, cmd)
}

func (s *stubCheckoutService) Complete(ctx context.Context, cmd services.CompleteCheckoutCommand) (services.CompletionResult, error) {
	return s.completeFunc(ctx, cmd)
}

type stubFulfillmentService struct {
	estimateFunc  func(ctx context.Context, sessionID string, recipient services.Recipient) ([]services.ShippingOption, error)
	countriesFunc func(ctx context.Context) ([]printful.Country, error)
	storeFunc     func(ctx context.Context) (printful.Store, error)
	createFunc    func(ctx context.Context, cmd services.CreateFulfillmentOrderCommand) (services.FulfillmentOrder, error)
	confirmFunc   func(ctx context.Context, id int64) (services.FulfillmentOrder, error)
	statusFunc    func(ctx context.Context, id int64) (services.FulfillmentOrder, error)
}

func (s *stubFulfillmentService) ShippingEstimate(ctx context.Context, sessionID string, recipient services.Recipient) ([]services.ShippingOption, error) {
	return s.estimateFunc(ctx, sessionID, recipient)
}

func (s *stubFulfillmentService) Countries(ctx context.Context) ([]printful.Country, error) {
	return s.countriesFunc(ctx)
}

func (s *stubFulfillmentService) StoreInfo(ctx context.Context) (printful.Store, error) {
	return s.storeFunc(ctx)
}

func (s *stubFulfillmentService) CreateOrder(ctx context.Context, cmd services.CreateFulfillmentOrderCommand) (services.FulfillmentOrder, error) {
	return s.createFunc(ctx, cmd)
}

func (s *stubFulfillmentService) ConfirmOrder(ctx context.Context, id int64) (services.FulfillmentOrder, error) {
	return s.confirmFunc(ctx, id)
}

func (s *stubFulfillmentService) OrderStatus(ctx context.Context, id int64) (services.FulfillmentOrder, error) {
	return s.statusFunc(ctx, id)
}

type stubOrderLogService struct {
	listFunc func(ctx context.Context, email string) []services.OrderRecord
}

func (s *stubOrderLogService) Record(context.Context, services.OrderRecord) string { return "" }

func (s *stubOrderLogService) Update(context.Context, string, services.OrderRecordUpdate) bool {
	return false
}

func (s *stubOrderLogService) FindByStripeSession(context.Context, string) (services.OrderRecord, bool) {
	return services.OrderRecord{}, false
}

func (s *stubOrderLogService) ListByEmail(ctx context.Context, email string) []services.OrderRecord {
	return s.listFunc(ctx, email)
}

var (
	_ services.CatalogService     = (*stubCatalogService)(nil)
	_ services.CartService        = (*stubCartService)(nil)
	_ services.CostService        = (*stubCostService)(nil)
	_ services.CheckoutService    = (*stubCheckoutService)(nil)
	_ services.FulfillmentService = (*stubFulfillmentService)(nil)
	_ services.OrderLogService    = (*stubOrderLogService)(nil)
)

// serve routes a request through registrar mounted at prefix, attaching sessionID when set.
func serve(t *testing.T, registrar RouteRegistrar, prefix, method, target, sessionID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if sessionID != "" {
		req = req.WithContext(requestctx.WithSessionID(req.Context(), sessionID))
	}

	router := chi.NewRouter()
	if prefix == "" {
		registrar(router)
	} else {
		router.Route(prefix, func(r chi.Router) { registrar(r) })
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return body
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rr.Code, rr.Body.String())
	}
}

func teeProduct() services.Product {
	priceRange := "$20.00 - $24.00"
	return services.Product{
		ID:         7,
		Name:       "Sundai Tee",
		Category:   "apparel",
		Price:      20,
		PriceRange: &priceRange,
		ImageURL:   "https://cdn.example.com/tee.png",
		Sizes:      []string{"M", "L"},
		InStock:    true,
		Variants: []services.Variant{
			{ID: 101, SyncVariantID: 9001, Size: "M", RetailPrice: 20, Currency: "USD", Available: true},
			{ID: 102, SyncVariantID: 9002, Size: "L", RetailPrice: 24, Currency: "USD", Available: true},
		},
	}
}

func mugProduct() services.Product {
	return services.Product{ID: 8, Name: "Mug", Category: "accessories", Price: 12, Sizes: []string{"11oz"}, InStock: true}
}

func validRecipientPayload() recipientPayload {
	return recipientPayload{
		Name:        "Ada Lovelace",
		Address1:    "1 Main St",
		City:        "Boston",
		StateCode:   "MA",
		Zip:         "02110",
		CountryCode: "US",
		Email:       "ada@example.com",
	}
}
