package domain

import (
	"time"
)

// PlaceholderImageURL is served when neither the provider nor a variant exposes an image.
const PlaceholderImageURL = "/static/images/placeholder.svg"

// DefaultSizeLabel is applied to variants that carry no size information.
const DefaultSizeLabel = "One Size"

// DefaultCountryCode is assumed for recipients that omit a country.
const DefaultCountryCode = "US"

// Product is a normalised catalog entry built from the fulfillment provider's listing.
type Product struct {
	ID          int64
	ExternalID  string
	Name        string
	Description string
	Category    string
	Price       float64
	PriceRange  *string
	ImageURL    string
	Sizes       []string
	InStock     bool
	Variants    []Variant
}

// Variant is the per-size record retained for cart resolution and provider payloads.
type Variant struct {
	ID            int64
	SyncVariantID int64
	Name          string
	Size          string
	RetailPrice   float64
	Currency      string
	Available     bool
	ImageURL      string
}

// HasProviderReference reports whether the variant can be addressed in a provider order.
func (v Variant) HasProviderReference() bool {
	return v.ID > 0 || v.SyncVariantID > 0
}

// SkippedProduct records a raw provider product that could not be normalised.
type SkippedProduct struct {
	ID     int64
	Name   string
	Reason string
}

// CartEntry is a single line in a session cart.
type CartEntry struct {
	ProductID     int64  `json:"product_id"`
	Size          string `json:"size"`
	Quantity      int    `json:"quantity"`
	VariantID     int64  `json:"variant_id,omitempty"`
	SyncVariantID int64  `json:"sync_variant_id,omitempty"`
	UnitPrice     string `json:"price,omitempty"`
}

// Cart is the per-session ordered list of entries.
type Cart struct {
	SessionID string      `json:"session_id"`
	Entries   []CartEntry `json:"entries"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// IsEmpty reports whether the cart has no entries.
func (c Cart) IsEmpty() bool {
	return len(c.Entries) == 0
}

// SkippedCartEntry describes a cart entry left out of a provider payload.
type SkippedCartEntry struct {
	Index     int
	ProductID int64
	Size      string
	Reason    string
}

// Recipient is the shipping destination for estimates and orders.
type Recipient struct {
	Name        string
	Address1    string
	Address2    string
	City        string
	StateCode   string
	Zip         string
	CountryCode string
	Email       string
	Phone       string
}

// LineItem is a reallocated per-line price used for checkout display and payment items.
type LineItem struct {
	ProductID     int64
	VariantID     int64
	SyncVariantID int64
	Name          string
	Size          string
	ImageURL      string
	Quantity      int
	UnitPrice     float64
	Total         float64
}

// IsExact reports whether UnitPrice × Quantity reproduces Total to the cent.
func (l LineItem) IsExact() bool {
	diff := l.UnitPrice*float64(l.Quantity) - l.Total
	return diff < 0.005 && diff > -0.005
}

// Cost provenance labels surfaced to clients.
const (
	CostSourcePrintful  = "printful"
	CostSourceEstimated = "estimated"

	ShippingNoteEstimated    = "Estimated"
	ShippingNoteFallback     = "Fallback estimate"
	ShippingNoteProviderRate = "Provider rate"

	TaxNoteEstimated = "Estimated"
	TaxNoteProvider  = "Provider"
)

// CostBreakdown captures the reconciled order totals.
type CostBreakdown struct {
	Subtotal     float64
	Shipping     float64
	ShippingNote string
	Tax          float64
	TaxNote      string
	Total        float64
	Currency     string
	CostSource   string
	Lines        []LineItem
}

// PendingCheckoutOrder is the idempotency record created alongside a payment session.
type PendingCheckoutOrder struct {
	ID                 string
	PaymentSessionID   string
	AppSessionID       string
	OrderRecordID      string
	ExternalID         string
	CustomerEmail      string
	FulfillmentOrder   []byte
	Summary            CostBreakdown
	Fulfilled          bool
	FulfillmentOrderID int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
	FulfilledAt        *time.Time
}

// Order log status values.
const (
	OrderStatusPending           = "pending"
	OrderStatusSubmitted         = "submitted"
	OrderStatusFulfillmentFailed = "fulfillment_failed"

	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

// OrderRecord mirrors the persisted order log row.
type OrderRecord struct {
	ID                       string
	StripeCheckoutSessionID  string
	PrintfulOrderID          *int64
	AppSessionID             string
	CustomerName             string
	CustomerEmail            string
	CustomerPhone            string
	ShippingAddress          map[string]any
	OrderStatus              string
	PaymentStatus            string
	Currency                 string
	Subtotal                 float64
	ShippingCost             float64
	TaxAmount                float64
	TotalAmount              float64
	Items                    []map[string]any
	PrintfulOrderData        map[string]any
	PrintfulCostData         map[string]any
	PrintfulRetailCosts      map[string]any
	PrintfulShippingMethodID string
	ShippingNote             string
	TaxNote                  string
	CostSource               string
	StripePaymentIntentID    string
	StripeCustomerID         string
	Metadata                 map[string]any
	ErrorMessage             string
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// OrderRecordUpdate carries the mutable subset of an order record. Nil fields are left unchanged.
type OrderRecordUpdate struct {
	PrintfulOrderID       *int64
	OrderStatus           *string
	PaymentStatus         *string
	StripePaymentIntentID *string
	StripeCustomerID      *string
	PrintfulOrderData     map[string]any
	ErrorMessage          *string
}

// IsEmpty reports whether the update changes nothing.
func (u OrderRecordUpdate) IsEmpty() bool {
	return u.PrintfulOrderID == nil && u.OrderStatus == nil && u.PaymentStatus == nil &&
		u.StripePaymentIntentID == nil && u.StripeCustomerID == nil && u.PrintfulOrderData == nil &&
		u.ErrorMessage == nil
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Service     string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}
