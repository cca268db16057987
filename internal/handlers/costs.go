package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sundai-club/shop/internal/platform/httpx"
	"github.com/sundai-club/shop/internal/services"
)

// PricingHandlers quotes shipping and reconciled costs for the session cart.
type PricingHandlers struct {
	carts       services.CartService
	costs       services.CostService
	fulfillment services.FulfillmentService
}

// NewPricingHandlers constructs the shipping and cost estimate handlers.
func NewPricingHandlers(carts services.CartService, costs services.CostService, fulfillment services.FulfillmentService) *PricingHandlers {
	return &PricingHandlers{carts: carts, costs: costs, fulfillment: fulfillment}
}

// Routes registers /shipping/estimate, /costs/* and /countries on the API root.
func (h *PricingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/shipping/estimate", h.shippingEstimate)
	r.Post("/costs/estimate", h.costEstimate)
	r.Post("/costs/total", h.costTotal)
	r.Get("/countries", h.countries)
}

type recipientRequest struct {
	Recipient recipientPayload `json:"recipient"`
}

func (h *PricingHandlers) available(w http.ResponseWriter, r *http.Request) bool {
	if h.carts == nil || h.costs == nil || h.fulfillment == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("pricing_unavailable", "pricing service is unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

func (h *PricingHandlers) shippingEstimate(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req recipientRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	ctx := r.Context()
	options, err := h.fulfillment.ShippingEstimate(ctx, sessionID, req.Recipient.toService())
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"shipping_options": buildShippingOptions(options)})
}

func (h *PricingHandlers) compute(w http.ResponseWriter, r *http.Request) (services.OrderDetails, bool) {
	if !h.available(w, r) {
		return services.OrderDetails{}, false
	}
	sessionID, ok := requireSession(w, r)
	if !ok {
		return services.OrderDetails{}, false
	}
	var req recipientRequest
	if !decodeJSONBody(w, r, &req) {
		return services.OrderDetails{}, false
	}
	ctx := r.Context()
	cart, err := h.carts.Cart(ctx, sessionID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return services.OrderDetails{}, false
	}
	if cart.IsEmpty() {
		writeServiceError(ctx, w, services.ErrEmptyCart)
		return services.OrderDetails{}, false
	}
	details, err := h.costs.Compute(ctx, cart, req.Recipient.toService())
	if err != nil {
		writeServiceError(ctx, w, err)
		return services.OrderDetails{}, false
	}
	return details, true
}

func (h *PricingHandlers) costEstimate(w http.ResponseWriter, r *http.Request) {
	details, ok := h.compute(w, r)
	if !ok {
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"summary":         buildBreakdownPayload(details.Breakdown),
		"shipping_method": details.ShippingMethod,
		"partial":         details.Partial,
		"skipped":         buildSkippedPayload(details.Skipped),
	})
}

func (h *PricingHandlers) costTotal(w http.ResponseWriter, r *http.Request) {
	details, ok := h.compute(w, r)
	if !ok {
		return
	}
	b := details.Breakdown
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"subtotal":    b.Subtotal,
		"shipping":    b.Shipping,
		"tax":         b.Tax,
		"total":       b.Total,
		"currency":    b.Currency,
		"cost_source": b.CostSource,
	})
}

func (h *PricingHandlers) countries(w http.ResponseWriter, r *http.Request) {
	if h.fulfillment == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("pricing_unavailable", "fulfillment service is unavailable", http.StatusServiceUnavailable))
		return
	}
	ctx := r.Context()
	countries, err := h.fulfillment.Countries(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"countries": countries})
}
