package printful

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a money value that Printful sends as a quoted string, a bare number, or null.
type Amount struct {
	Value decimal.Decimal
	Valid bool
}

// NewAmount wraps a float as a valid Amount rounded to cents.
func NewAmount(v float64) Amount {
	return Amount{Value: decimal.NewFromFloat(v).Round(2), Valid: true}
}

// UnmarshalJSON accepts "12.50", 12.5, "" and null. Unparseable values decode as invalid.
func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = Amount{}
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		return nil
	}
	raw = strings.TrimSpace(strings.Trim(raw, `"`))
	if raw == "" {
		return nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	a.Value = value
	a.Valid = true
	return nil
}

// MarshalJSON emits the amount as a two-decimal string, the format Printful expects for retail prices.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(a.Value.StringFixed(2))
}

// Float returns the amount as float64.
func (a Amount) Float() float64 {
	f, _ := a.Value.Float64()
	return f
}

// Variants is the product-level variants field. Store listings send a count; detail responses send the array.
type Variants struct {
	Count  int
	Items  []Variant
	IsList bool
}

// UnmarshalJSON decodes either an integer count or an array of variants.
func (v *Variants) UnmarshalJSON(data []byte) error {
	*v = Variants{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '[' {
		v.IsList = true
		if err := json.Unmarshal(trimmed, &v.Items); err != nil {
			return fmt.Errorf("printful: decode variants array: %w", err)
		}
		v.Count = len(v.Items)
		return nil
	}
	var count json.Number
	if err := json.Unmarshal(bytes.Trim(trimmed, `"`), &count); err != nil {
		return fmt.Errorf("printful: variants is neither count nor array: %s", string(trimmed))
	}
	n, err := count.Int64()
	if err != nil {
		return fmt.Errorf("printful: variants count %q: %w", count, err)
	}
	v.Count = int(n)
	return nil
}

// Status is an availability_status that is a plain string on store variants and a list of
// per-region objects on catalog variants.
type Status string

// UnmarshalJSON keeps string values and reduces region lists to "active" when any region is in stock.
func (s *Status) UnmarshalJSON(data []byte) error {
	*s = ""
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '"' {
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return err
		}
		*s = Status(strings.ToLower(strings.TrimSpace(value)))
		return nil
	}
	if trimmed[0] == '[' {
		var regions []struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(trimmed, &regions); err != nil {
			return nil
		}
		for _, region := range regions {
			if strings.EqualFold(region.Status, "in_stock") || strings.EqualFold(region.Status, "active") {
				*s = "active"
				return nil
			}
		}
		if len(regions) > 0 {
			*s = "discontinued"
		}
	}
	return nil
}

// File is a print or mockup file attached to a store variant.
type File struct {
	Type         string `json:"type"`
	PreviewURL   string `json:"preview_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	URL          string `json:"url"`
}

// VariantProduct is the catalog reference embedded in a store variant.
type VariantProduct struct {
	VariantID int64  `json:"variant_id"`
	ProductID int64  `json:"product_id"`
	Image     string `json:"image"`
	Name      string `json:"name"`
}

// Variant is a raw variant from either the store (sync) or catalog endpoints.
type Variant struct {
	ID                 int64           `json:"id"`
	VariantID          int64           `json:"variant_id"`
	SyncProductID      int64           `json:"sync_product_id"`
	ProductID          int64           `json:"product_id"`
	ExternalID         string          `json:"external_id"`
	Name               string          `json:"name"`
	Size               string          `json:"size"`
	Color              string          `json:"color"`
	RetailPrice        Amount          `json:"retail_price"`
	Price              Amount          `json:"price"`
	Currency           string          `json:"currency"`
	InStock            *bool           `json:"in_stock"`
	Available          *bool           `json:"available"`
	AvailabilityStatus Status          `json:"availability_status"`
	Image              string          `json:"image"`
	Files              []File          `json:"files"`
	Product            *VariantProduct `json:"product"`
}

// IsSyncVariant reports whether the record came from the store (sync) endpoints, where id is the
// sync variant id and variant_id references the catalog.
func (v Variant) IsSyncVariant() bool {
	return v.SyncProductID > 0 || v.VariantID > 0
}

// CatalogVariantID returns the provider catalog variant id.
func (v Variant) CatalogVariantID() int64 {
	if v.IsSyncVariant() {
		if v.VariantID > 0 {
			return v.VariantID
		}
		if v.Product != nil {
			return v.Product.VariantID
		}
		return 0
	}
	return v.ID
}

// SyncVariantID returns the store variant id, or zero for catalog variants.
func (v Variant) SyncVariantID() int64 {
	if v.IsSyncVariant() {
		return v.ID
	}
	return 0
}

// Product is a raw product from the store listing (/store/products) or the catalog (/products).
type Product struct {
	ID           int64    `json:"id"`
	ExternalID   string   `json:"external_id"`
	Name         string   `json:"name"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Type         string   `json:"type"`
	TypeName     string   `json:"type_name"`
	ThumbnailURL string   `json:"thumbnail_url"`
	Image        string   `json:"image"`
	Variants     Variants `json:"variants"`
	VariantCount int      `json:"variant_count"`
	IsIgnored    bool     `json:"is_ignored"`

	// DecodeError is set when the listing entry could not be decoded. Only ID and Name are
	// then populated, on a best-effort basis.
	DecodeError string `json:"-"`
}

// decodeProducts decodes a listing page entry by entry so one malformed product does not
// fail the whole page.
func decodeProducts(items []json.RawMessage) []Product {
	products := make([]Product, 0, len(items))
	for _, item := range items {
		var product Product
		if err := json.Unmarshal(item, &product); err != nil {
			products = append(products, brokenProduct(item, err))
			continue
		}
		products = append(products, product)
	}
	return products
}

func brokenProduct(item json.RawMessage, cause error) Product {
	var fields map[string]json.RawMessage
	_ = json.Unmarshal(item, &fields)
	product := Product{DecodeError: cause.Error()}
	var id json.Number
	if err := json.Unmarshal(bytes.Trim(fields["id"], `"`), &id); err == nil {
		product.ID, _ = id.Int64()
	}
	for _, key := range []string{"name", "title"} {
		var name string
		if json.Unmarshal(fields[key], &name) == nil && strings.TrimSpace(name) != "" {
			product.Name = strings.TrimSpace(name)
			break
		}
	}
	return product
}

// DisplayName prefers the store name over the catalog title.
func (p Product) DisplayName() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return strings.TrimSpace(p.Title)
}

// Thumbnail returns the product-level image.
func (p Product) Thumbnail() string {
	if url := strings.TrimSpace(p.ThumbnailURL); url != "" {
		return url
	}
	return strings.TrimSpace(p.Image)
}

// DeclaredVariantCount is the number of variants the listing advertises without embedding them.
func (p Product) DeclaredVariantCount() int {
	if p.Variants.IsList {
		return 0
	}
	if p.Variants.Count > 0 {
		return p.Variants.Count
	}
	return p.VariantCount
}

// ProductDetail is the detail payload. Store detail uses sync_product/sync_variants, catalog detail
// uses product/variants.
type ProductDetail struct {
	SyncProduct  *Product  `json:"sync_product"`
	SyncVariants []Variant `json:"sync_variants"`
	Product      *Product  `json:"product"`
	Variants     []Variant `json:"variants"`
}

// AllVariants returns whichever variant list the payload carried.
func (d ProductDetail) AllVariants() []Variant {
	if len(d.SyncVariants) > 0 {
		return d.SyncVariants
	}
	return d.Variants
}

// Recipient is the shipping destination in Printful's wire format.
type Recipient struct {
	Name        string `json:"name"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city"`
	StateCode   string `json:"state_code,omitempty"`
	CountryCode string `json:"country_code"`
	Zip         string `json:"zip"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// OrderItem references a variant by exactly one of VariantID or SyncVariantID.
type OrderItem struct {
	VariantID     int64   `json:"variant_id,omitempty"`
	SyncVariantID int64   `json:"sync_variant_id,omitempty"`
	ExternalID    string  `json:"external_id,omitempty"`
	Name          string  `json:"name,omitempty"`
	Quantity      int     `json:"quantity"`
	RetailPrice   *Amount `json:"retail_price,omitempty"`
}

// RetailCosts is the locally computed cost block sent alongside estimates and orders.
type RetailCosts struct {
	Currency string `json:"currency,omitempty"`
	Subtotal Amount `json:"subtotal"`
	Discount Amount `json:"discount"`
	Shipping Amount `json:"shipping"`
	Tax      Amount `json:"tax"`
	Total    Amount `json:"total,omitempty"`
}

// ShippingRequest is the body for shipping rate quotes.
type ShippingRequest struct {
	Recipient Recipient   `json:"recipient"`
	Items     []OrderItem `json:"items"`
	Currency  string      `json:"currency,omitempty"`
}

// ShippingRate is a single quoted rate.
type ShippingRate struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Rate            Amount `json:"rate"`
	Currency        string `json:"currency"`
	MinDeliveryDays int    `json:"minDeliveryDays"`
	MaxDeliveryDays int    `json:"maxDeliveryDays"`
}

// OrderRequest is the body for order creation and cost estimation.
type OrderRequest struct {
	ExternalID  string       `json:"external_id,omitempty"`
	Shipping    string       `json:"shipping,omitempty"`
	Recipient   Recipient    `json:"recipient"`
	Items       []OrderItem  `json:"items"`
	RetailCosts *RetailCosts `json:"retail_costs,omitempty"`
}

// Costs is a provider cost block. Missing fields decode as invalid amounts.
type Costs struct {
	Currency string `json:"currency"`
	Subtotal Amount `json:"subtotal"`
	Discount Amount `json:"discount"`
	Shipping Amount `json:"shipping"`
	Tax      Amount `json:"tax"`
	VAT      Amount `json:"vat"`
	Total    Amount `json:"total"`
}

// IsEmpty reports whether the block carried none of the fields reconciliation reads.
func (c Costs) IsEmpty() bool {
	return !c.Subtotal.Valid && !c.Shipping.Valid && !c.Tax.Valid && !c.Total.Valid
}

// CostEstimate is the estimate-costs response. Raw holds the undecoded payload for audit storage.
type CostEstimate struct {
	Costs       *Costs          `json:"costs"`
	RetailCosts *Costs          `json:"retail_costs"`
	Raw         json.RawMessage `json:"-"`
}

// Authoritative returns the cost block reconciliation should use: costs, else retail_costs.
func (e CostEstimate) Authoritative() (Costs, bool) {
	if e.Costs != nil && !e.Costs.IsEmpty() {
		return *e.Costs, true
	}
	if e.RetailCosts != nil && !e.RetailCosts.IsEmpty() {
		return *e.RetailCosts, true
	}
	return Costs{}, false
}

// Shipment is a single parcel of an order.
type Shipment struct {
	ID             int64  `json:"id"`
	Carrier        string `json:"carrier"`
	Service        string `json:"service"`
	TrackingNumber string `json:"tracking_number"`
	TrackingURL    string `json:"tracking_url"`
	ShipDate       string `json:"ship_date"`
	Reshipment     bool   `json:"reshipment"`
}

// Order is a provider order.
type Order struct {
	ID          int64           `json:"id"`
	ExternalID  string          `json:"external_id"`
	Status      string          `json:"status"`
	Shipping    string          `json:"shipping"`
	Created     int64           `json:"created"`
	Updated     int64           `json:"updated"`
	Recipient   Recipient       `json:"recipient"`
	Costs       *Costs          `json:"costs"`
	RetailCosts *Costs          `json:"retail_costs"`
	Shipments   []Shipment      `json:"shipments"`
	Raw         json.RawMessage `json:"-"`
}

// State is a country subdivision.
type State struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Country is a supported shipping destination.
type Country struct {
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	States []State `json:"states"`
}

// Store is the merchant store behind the API key.
type Store struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Website  string `json:"website"`
	Currency string `json:"currency"`
}
