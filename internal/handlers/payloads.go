package handlers

import (
	"strings"
	"time"

	"github.com/sundai-club/shop/internal/services"
)

type variantPayload struct {
	ID            int64   `json:"id"`
	SyncVariantID int64   `json:"sync_variant_id,omitempty"`
	Name          string  `json:"name"`
	Size          string  `json:"size"`
	RetailPrice   float64 `json:"retail_price"`
	Currency      string  `json:"currency"`
	Available     bool    `json:"available"`
	ImageURL      string  `json:"image_url,omitempty"`
}

type productPayload struct {
	ID          int64            `json:"id"`
	ExternalID  string           `json:"external_id,omitempty"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Price       float64          `json:"price"`
	PriceRange  *string          `json:"price_range"`
	ImageURL    string           `json:"image_url"`
	Sizes       []string         `json:"sizes"`
	InStock     bool             `json:"in_stock"`
	Variants    []variantPayload `json:"variants,omitempty"`
}

func buildProductPayload(p services.Product, withVariants bool) productPayload {
	payload := productPayload{
		ID:          p.ID,
		ExternalID:  p.ExternalID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		PriceRange:  p.PriceRange,
		ImageURL:    p.ImageURL,
		Sizes:       append([]string{}, p.Sizes...),
		InStock:     p.InStock,
	}
	if withVariants {
		payload.Variants = make([]variantPayload, 0, len(p.Variants))
		for _, v := range p.Variants {
			payload.Variants = append(payload.Variants, variantPayload{
				ID:            v.ID,
				SyncVariantID: v.SyncVariantID,
				Name:          v.Name,
				Size:          v.Size,
				RetailPrice:   v.RetailPrice,
				Currency:      v.Currency,
				Available:     v.Available,
				ImageURL:      v.ImageURL,
			})
		}
	}
	return payload
}

func buildProductList(products []services.Product) []productPayload {
	out := make([]productPayload, 0, len(products))
	for _, p := range products {
		out = append(out, buildProductPayload(p, false))
	}
	return out
}

type recipientPayload struct {
	Name        string `json:"name"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city"`
	StateCode   string `json:"state_code,omitempty"`
	Zip         string `json:"zip"`
	CountryCode string `json:"country_code"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

func (p recipientPayload) toService() services.Recipient {
	return services.Recipient{
		Name:        strings.TrimSpace(p.Name),
		Address1:    strings.TrimSpace(p.Address1),
		Address2:    strings.TrimSpace(p.Address2),
		City:        strings.TrimSpace(p.City),
		StateCode:   strings.TrimSpace(p.StateCode),
		Zip:         strings.TrimSpace(p.Zip),
		CountryCode: strings.TrimSpace(p.CountryCode),
		Email:       strings.TrimSpace(p.Email),
		Phone:       strings.TrimSpace(p.Phone),
	}
}

type lineItemPayload struct {
	ProductID     int64   `json:"product_id"`
	VariantID     int64   `json:"variant_id"`
	SyncVariantID int64   `json:"sync_variant_id,omitempty"`
	Name          string  `json:"name"`
	Size          string  `json:"size"`
	ImageURL      string  `json:"image_url,omitempty"`
	Quantity      int     `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
	Total         float64 `json:"total"`
}

type breakdownPayload struct {
	Subtotal     float64           `json:"subtotal"`
	Shipping     float64           `json:"shipping"`
	ShippingNote string            `json:"shipping_note"`
	Tax          float64           `json:"tax"`
	TaxNote      string            `json:"tax_note"`
	Total        float64           `json:"total"`
	Currency     string            `json:"currency"`
	CostSource   string            `json:"cost_source"`
	Lines        []lineItemPayload `json:"line_items"`
}

func buildBreakdownPayload(b services.CostBreakdown) breakdownPayload {
	lines := make([]lineItemPayload, 0, len(b.Lines))
	for _, l := range b.Lines {
		lines = append(lines, lineItemPayload{
			ProductID:     l.ProductID,
			VariantID:     l.VariantID,
			SyncVariantID: l.SyncVariantID,
			Name:          l.Name,
			Size:          l.Size,
			ImageURL:      l.ImageURL,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
			Total:         l.Total,
		})
	}
	return breakdownPayload{
		Subtotal:     b.Subtotal,
		Shipping:     b.Shipping,
		ShippingNote: b.ShippingNote,
		Tax:          b.Tax,
		TaxNote:      b.TaxNote,
		Total:        b.Total,
		Currency:     b.Currency,
		CostSource:   b.CostSource,
		Lines:        lines,
	}
}

type skippedPayload struct {
	Index     int    `json:"index"`
	ProductID int64  `json:"product_id"`
	Size      string `json:"size"`
	Reason    string `json:"reason"`
}

func buildSkippedPayload(skipped []services.SkippedCartEntry) []skippedPayload {
	out := make([]skippedPayload, 0, len(skipped))
	for _, s := range skipped {
		out = append(out, skippedPayload{Index: s.Index, ProductID: s.ProductID, Size: s.Size, Reason: s.Reason})
	}
	return out
}

type shippingOptionPayload struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Rate     float64 `json:"rate"`
	Currency string  `json:"currency"`
	MinDays  int     `json:"min_delivery_days,omitempty"`
	MaxDays  int     `json:"max_delivery_days,omitempty"`
}

func buildShippingOptions(options []services.ShippingOption) []shippingOptionPayload {
	out := make([]shippingOptionPayload, 0, len(options))
	for _, o := range options {
		out = append(out, shippingOptionPayload{
			ID:       o.ID,
			Name:     o.Name,
			Rate:     o.Rate,
			Currency: o.Currency,
			MinDays:  o.MinDays,
			MaxDays:  o.MaxDays,
		})
	}
	return out
}

type orderRecordPayload struct {
	ID                      string           `json:"id"`
	StripeCheckoutSessionID string           `json:"stripe_checkout_session_id"`
	PrintfulOrderID         *int64           `json:"printful_order_id"`
	CustomerName            string           `json:"customer_name"`
	CustomerEmail           string           `json:"customer_email"`
	OrderStatus             string           `json:"order_status"`
	PaymentStatus           string           `json:"payment_status"`
	Currency                string           `json:"currency"`
	Subtotal                float64          `json:"subtotal"`
	ShippingCost            float64          `json:"shipping_cost"`
	TaxAmount               float64          `json:"tax_amount"`
	TotalAmount             float64          `json:"total_amount"`
	Items                   []map[string]any `json:"items"`
	ShippingAddress         map[string]any   `json:"shipping_address"`
	CostSource              string           `json:"cost_source"`
	ErrorMessage            string           `json:"error_message,omitempty"`
	CreatedAt               string           `json:"created_at"`
	UpdatedAt               string           `json:"updated_at"`
}

func buildOrderRecordPayload(r services.OrderRecord) orderRecordPayload {
	return orderRecordPayload{
		ID:                      r.ID,
		StripeCheckoutSessionID: r.StripeCheckoutSessionID,
		PrintfulOrderID:         r.PrintfulOrderID,
		CustomerName:            r.CustomerName,
		CustomerEmail:           r.CustomerEmail,
		OrderStatus:             r.OrderStatus,
		PaymentStatus:           r.PaymentStatus,
		Currency:                r.Currency,
		Subtotal:                r.Subtotal,
		ShippingCost:            r.ShippingCost,
		TaxAmount:               r.TaxAmount,
		TotalAmount:             r.TotalAmount,
		Items:                   r.Items,
		ShippingAddress:         r.ShippingAddress,
		CostSource:              r.CostSource,
		ErrorMessage:            r.ErrorMessage,
		CreatedAt:               formatTime(r.CreatedAt),
		UpdatedAt:               formatTime(r.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
