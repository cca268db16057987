package services

import (
	"context"
	"encoding/json"
	"time"

	domain "github.com/sundai-club/shop/internal/domain"
	"github.com/sundai-club/shop/internal/printful"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Product              = domain.Product
	Variant              = domain.Variant
	SkippedProduct       = domain.SkippedProduct
	Cart                 = domain.Cart
	CartEntry            = domain.CartEntry
	SkippedCartEntry     = domain.SkippedCartEntry
	Recipient            = domain.Recipient
	LineItem             = domain.LineItem
	CostBreakdown        = domain.CostBreakdown
	PendingCheckoutOrder = domain.PendingCheckoutOrder
	OrderRecord          = domain.OrderRecord
	OrderRecordUpdate    = domain.OrderRecordUpdate
	SystemHealthReport   = domain.SystemHealthReport
)

// CatalogService serves the normalised product catalog from an in-process cache.
type CatalogService interface {
	Products(ctx context.Context) []Product
	Product(ctx context.Context, productID int64) (Product, error)
	ProductsByCategory(ctx context.Context, category string) []Product
	Snapshot(ctx context.Context) CatalogSnapshot
	Refresh(ctx context.Context) CatalogSnapshot
	Sync(ctx context.Context) (CatalogSnapshot, error)
	Invalidate()
}

// CartService manages the per-session cart.
type CartService interface {
	Cart(ctx context.Context, sessionID string) (Cart, error)
	Lines(ctx context.Context, sessionID string) ([]CartLine, error)
	AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error)
	RemoveItem(ctx context.Context, sessionID string, index int) (Cart, error)
	Clear(ctx context.Context, sessionID string) error
}

// CostService reconciles cart totals against the fulfillment provider.
type CostService interface {
	Compute(ctx context.Context, cart Cart, recipient Recipient) (OrderDetails, error)
	ShippingRates(ctx context.Context, cart Cart, recipient Recipient) ([]ShippingOption, error)
}

// CheckoutService drives a cart through payment and fulfillment.
type CheckoutService interface {
	CreateSession(ctx context.Context, cmd CreateCheckoutCommand) (CheckoutResult, error)
	Complete(ctx context.Context, cmd CompleteCheckoutCommand) (CompletionResult, error)
}

// FulfillmentService exposes direct provider operations that bypass payment.
type FulfillmentService interface {
	ShippingEstimate(ctx context.Context, sessionID string, recipient Recipient) ([]ShippingOption, error)
	Countries(ctx context.Context) ([]printful.Country, error)
	StoreInfo(ctx context.Context) (printful.Store, error)
	CreateOrder(ctx context.Context, cmd CreateFulfillmentOrderCommand) (FulfillmentOrder, error)
	ConfirmOrder(ctx context.Context, orderID int64) (FulfillmentOrder, error)
	OrderStatus(ctx context.Context, orderID int64) (FulfillmentOrder, error)
}

// OrderLogService records order history. Every method is best-effort: failures are logged and
// zero values returned.
type OrderLogService interface {
	Record(ctx context.Context, record OrderRecord) string
	Update(ctx context.Context, id string, update OrderRecordUpdate) bool
	FindByStripeSession(ctx context.Context, sessionID string) (OrderRecord, bool)
	ListByEmail(ctx context.Context, email string) []OrderRecord
}

// SystemService aggregates utility endpoints.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// CatalogProvider is the provider surface used to build the catalog.
type CatalogProvider interface {
	HasStore() bool
	ListStoreProducts(ctx context.Context) ([]printful.Product, error)
	ListCatalogProducts(ctx context.Context) ([]printful.Product, error)
	StoreProduct(ctx context.Context, id int64) (printful.ProductDetail, error)
	CatalogProduct(ctx context.Context, id int64) (printful.ProductDetail, error)
	CatalogVariants(ctx context.Context, id int64) ([]printful.Variant, error)
	SyncProducts(ctx context.Context) (json.RawMessage, error)
}

// CostProvider quotes shipping and authoritative costs.
type CostProvider interface {
	ShippingRates(ctx context.Context, req printful.ShippingRequest) ([]printful.ShippingRate, error)
	EstimateCosts(ctx context.Context, req printful.OrderRequest) (printful.CostEstimate, error)
}

// OrderProvider creates and inspects provider orders.
type OrderProvider interface {
	CreateOrder(ctx context.Context, req printful.OrderRequest, confirm bool) (printful.Order, error)
	ConfirmOrder(ctx context.Context, id int64) (printful.Order, error)
	Order(ctx context.Context, id int64) (printful.Order, error)
	OrderShipments(ctx context.Context, id int64) ([]printful.Shipment, error)
}

// StoreProvider exposes store metadata.
type StoreProvider interface {
	Countries(ctx context.Context) ([]printful.Country, error)
	StoreInfo(ctx context.Context) (printful.Store, error)
}

// OrderEventPublisher emits order lifecycle events.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) (string, error)
}

// CatalogSnapshot is the cached catalog along with what was dropped during normalisation.
type CatalogSnapshot struct {
	Products  []Product
	Skipped   []SkippedProduct
	Source    string
	FetchedAt time.Time
}

// CartLine is a cart entry joined with its catalog product for display.
type CartLine struct {
	Index   int
	Entry   CartEntry
	Product *Product
}

// AddCartItemCommand adds a product size to a session cart.
type AddCartItemCommand struct {
	SessionID     string
	ProductID     int64
	Size          string
	Quantity      int
	VariantID     int64
	SyncVariantID int64
	UnitPrice     string
}

// ShippingOption is a normalised shipping rate.
type ShippingOption struct {
	ID       string
	Name     string
	Rate     float64
	Currency string
	MinDays  int
	MaxDays  int
}

// OrderDetails is the reconciled order produced for estimates and checkout.
type OrderDetails struct {
	Breakdown          CostBreakdown
	Items              []printful.OrderItem
	Recipient          printful.Recipient
	ShippingMethod     string
	ProviderCosts      json.RawMessage
	ProviderRetailCost json.RawMessage
	Skipped            []SkippedCartEntry
	Partial            bool
}

// CreateCheckoutCommand opens a payment session for the session cart.
type CreateCheckoutCommand struct {
	SessionID      string
	Recipient      Recipient
	SuccessURL     string
	CancelURL      string
	IdempotencyKey string
}

// CheckoutResult is returned after a payment session is opened.
type CheckoutResult struct {
	PaymentSessionID string
	RedirectURL      string
	ExpiresAt        time.Time
	Summary          CostBreakdown
	Partial          bool
	Skipped          []SkippedCartEntry
}

// CompleteCheckoutCommand completes a paid payment session.
type CompleteCheckoutCommand struct {
	SessionID        string
	PaymentSessionID string
}

// CompletionResult is returned once the paid order was submitted for fulfillment.
type CompletionResult struct {
	PaymentSessionID   string
	FulfillmentOrderID int64
	Summary            CostBreakdown
	AlreadyFulfilled   bool
}

// CreateFulfillmentOrderCommand creates a provider order straight from the cart.
type CreateFulfillmentOrderCommand struct {
	SessionID string
	Recipient Recipient
	Confirm   bool
}

// FulfillmentOrder is a provider order with its shipments.
type FulfillmentOrder struct {
	Order     printful.Order
	Shipments []printful.Shipment
	Summary   *CostBreakdown
}

// OrderEvent is published when a paid order is fulfilled or fails fulfillment.
type OrderEvent struct {
	Type               string    `json:"type"`
	PaymentSessionID   string    `json:"paymentSessionId"`
	AppSessionID       string    `json:"appSessionId,omitempty"`
	OrderRecordID      string    `json:"orderRecordId,omitempty"`
	FulfillmentOrderID int64     `json:"fulfillmentOrderId,omitempty"`
	Total              float64   `json:"total"`
	Currency           string    `json:"currency"`
	Error              string    `json:"error,omitempty"`
	OccurredAt         time.Time `json:"occurredAt"`
}

// Order event types.
const (
	OrderEventFulfilled = "order.fulfilled"
	OrderEventFailed    = "order.failed"
)
