package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	domain "github.com/sundai-club/shop/internal/domain"
	"github.com/sundai-club/shop/internal/printful"
	"github.com/sundai-club/shop/internal/services"
)

func newPricingHandlers(cart services.Cart, compute func(context.Context, services.Cart, services.Recipient) (services.OrderDetails, error), fulfillment *stubFulfillmentService) *PricingHandlers {
	carts := &stubCartService{
		cartFunc: func(_ context.Context, sessionID string) (services.Cart, error) {
			cart.SessionID = sessionID
			return cart, nil
		},
	}
	if fulfillment == nil {
		fulfillment = &stubFulfillmentService{}
	}
	return NewPricingHandlers(carts, &stubCostService{computeFunc: compute}, fulfillment)
}

func sampleDetails() services.OrderDetails {
	return services.OrderDetails{
		Breakdown: services.CostBreakdown{
			Subtotal:     24,
			Shipping:     4.99,
			ShippingNote: "Flat Rate (3-5 business days)",
			Tax:          2.04,
			TaxNote:      domain.TaxNoteEstimated,
			Total:        31.03,
			Currency:     "USD",
			CostSource:   domain.CostSourceEstimated,
			Lines:        []services.LineItem{{ProductID: 7, VariantID: 102, Name: "Sundai Tee", Size: "L", Quantity: 1, UnitPrice: 24, Total: 24}},
		},
		ShippingMethod: "STANDARD",
		Skipped:        []services.SkippedCartEntry{{Index: 1, ProductID: 99, Size: "M", Reason: "product not found"}},
		Partial:        true,
	}
}

func TestPricingHandlersCostEstimate(t *testing.T) {
	var gotRecipient services.Recipient
	handlers := newPricingHandlers(
		services.Cart{Entries: []services.CartEntry{{ProductID: 7, Size: "L", Quantity: 1}}},
		func(_ context.Context, cart services.Cart, recipient services.Recipient) (services.OrderDetails, error) {
			gotRecipient = recipient
			return sampleDetails(), nil
		},
		nil,
	)

	rr := serve(t, handlers.Routes, "", http.MethodPost, "/costs/estimate", "sess-1", map[string]any{"recipient": validRecipientPayload()})
	expectStatus(t, rr, http.StatusOK)
	body := decodeBody(t, rr)
	summary := body["summary"].(map[string]any)
	if summary["total"] != 31.03 || summary["cost_source"] != domain.CostSourceEstimated {
		t.Fatalf("unexpected summary %v", summary)
	}
	if len(summary["line_items"].([]any)) != 1 {
		t.Fatalf("expected one line item, got %v", summary["line_items"])
	}
	if body["partial"] != true || len(body["skipped"].([]any)) != 1 {
		t.Fatalf("expected partial flag with skipped entry, got %v", body)
	}
	if gotRecipient.CountryCode != "US" || gotRecipient.Email != "ada@example.com" {
		t.Fatalf("unexpected recipient %+v", gotRecipient)
	}

	rr = serve(t, handlers.Routes, "", http.MethodPost, "/costs/total", "sess-1", map[string]any{"recipient": validRecipientPayload()})
	expectStatus(t, rr, http.StatusOK)
	body = decodeBody(t, rr)
	if body["total"] != 31.03 || body["shipping"] != 4.99 {
		t.Fatalf("unexpected totals %v", body)
	}
	if _, ok := body["line_items"]; ok {
		t.Fatal("totals payload should not carry lines")
	}
}

func TestPricingHandlersCostErrors(t *testing.T) {
	handlers := newPricingHandlers(services.Cart{}, func(context.Context, services.Cart, services.Recipient) (services.OrderDetails, error) {
		t.Fatal("empty cart should not be priced")
		return services.OrderDetails{}, nil
	}, nil)
	rr := serve(t, handlers.Routes, "", http.MethodPost, "/costs/estimate", "sess-1", map[string]any{"recipient": validRecipientPayload()})
	expectStatus(t, rr, http.StatusBadRequest)

	handlers = newPricingHandlers(
		services.Cart{Entries: []services.CartEntry{{ProductID: 7, Size: "L", Quantity: 1}}},
		func(context.Context, services.Cart, services.Recipient) (services.OrderDetails, error) {
			return services.OrderDetails{}, services.ErrInvalidRecipient
		},
		nil,
	)
	rr = serve(t, handlers.Routes, "", http.MethodPost, "/costs/total", "sess-1", map[string]any{"recipient": map[string]any{}})
	expectStatus(t, rr, http.StatusBadRequest)

	rr = serve(t, handlers.Routes, "", http.MethodPost, "/costs/total", "sess-1", nil)
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestPricingHandlersShippingEstimate(t *testing.T) {
	fulfillment := &stubFulfillmentService{
		estimateFunc: func(_ context.Context, sessionID string, _ services.Recipient) ([]services.ShippingOption, error) {
			if sessionID == "empty" {
				return nil, services.ErrEmptyCart
			}
			return []services.ShippingOption{{ID: "STANDARD", Name: "Flat Rate", Rate: 4.99, Currency: "USD", MinDays: 3, MaxDays: 5}}, nil
		},
	}
	handlers := newPricingHandlers(services.Cart{}, nil, fulfillment)

	rr := serve(t, handlers.Routes, "", http.MethodPost, "/shipping/estimate", "sess-1", map[string]any{"recipient": validRecipientPayload()})
	expectStatus(t, rr, http.StatusOK)
	options := decodeBody(t, rr)["shipping_options"].([]any)
	first := options[0].(map[string]any)
	if first["id"] != "STANDARD" || first["min_delivery_days"] != float64(3) {
		t.Fatalf("unexpected option %v", first)
	}

	rr = serve(t, handlers.Routes, "", http.MethodPost, "/shipping/estimate", "empty", map[string]any{"recipient": validRecipientPayload()})
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestPricingHandlersCountries(t *testing.T) {
	fulfillment := &stubFulfillmentService{
		countriesFunc: func(context.Context) ([]printful.Country, error) {
			return []printful.Country{{Code: "US", Name: "United States"}}, nil
		},
	}
	handlers := newPricingHandlers(services.Cart{}, nil, fulfillment)

	rr := serve(t, handlers.Routes, "", http.MethodGet, "/countries", "", nil)
	expectStatus(t, rr, http.StatusOK)
	if countries := decodeBody(t, rr)["countries"].([]any); len(countries) != 1 {
		t.Fatalf("expected one country, got %v", countries)
	}

	fulfillment.countriesFunc = func(context.Context) ([]printful.Country, error) {
		return nil, errors.Join(services.ErrUpstreamUnavailable, errors.New("countries"))
	}
	rr = serve(t, handlers.Routes, "", http.MethodGet, "/countries", "", nil)
	expectStatus(t, rr, http.StatusInternalServerError)
}
