package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sundai-club/shop/internal/platform/httpx"
	"github.com/sundai-club/shop/internal/printful"
	"github.com/sundai-club/shop/internal/services"
)

// FulfillmentHandlers exposes direct provider order operations and store metadata.
type FulfillmentHandlers struct {
	fulfillment services.FulfillmentService
}

// NewFulfillmentHandlers constructs fulfillment handlers.
func NewFulfillmentHandlers(fulfillment services.FulfillmentService) *FulfillmentHandlers {
	return &FulfillmentHandlers{fulfillment: fulfillment}
}

// Routes registers /fulfillment/orders and /store on the API root.
func (h *FulfillmentHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/fulfillment/orders", h.createOrder)
	r.Get("/fulfillment/orders/{orderId}", h.orderStatus)
	r.Post("/fulfillment/orders/{orderId}/confirm", h.confirmOrder)
	r.Get("/store", h.storeInfo)
}

type createFulfillmentOrderRequest struct {
	Recipient recipientPayload `json:"recipient"`
	Confirm   bool             `json:"confirm"`
}

type fulfillmentOrderPayload struct {
	Order     printful.Order      `json:"order"`
	Shipments []printful.Shipment `json:"shipments"`
	Summary   *breakdownPayload   `json:"summary,omitempty"`
}

func buildFulfillmentOrderPayload(order services.FulfillmentOrder) fulfillmentOrderPayload {
	payload := fulfillmentOrderPayload{Order: order.Order, Shipments: order.Shipments}
	if payload.Shipments == nil {
		payload.Shipments = []printful.Shipment{}
	}
	if order.Summary != nil {
		summary := buildBreakdownPayload(*order.Summary)
		payload.Summary = &summary
	}
	return payload
}

func (h *FulfillmentHandlers) available(w http.ResponseWriter, r *http.Request) bool {
	if h.fulfillment == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("fulfillment_unavailable", "fulfillment service is unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

func (h *FulfillmentHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req createFulfillmentOrderRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	ctx := r.Context()
	order, err := h.fulfillment.CreateOrder(ctx, services.CreateFulfillmentOrderCommand{
		SessionID: sessionID,
		Recipient: req.Recipient.toService(),
		Confirm:   req.Confirm,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildFulfillmentOrderPayload(order))
}

func (h *FulfillmentHandlers) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := parseID(chi.URLParam(r, "orderId"))
	if !ok {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "order id must be a positive integer", http.StatusBadRequest))
	}
	return id, ok
}

func (h *FulfillmentHandlers) orderStatus(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	order, err := h.fulfillment.OrderStatus(ctx, id)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildFulfillmentOrderPayload(order))
}

func (h *FulfillmentHandlers) confirmOrder(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	order, err := h.fulfillment.ConfirmOrder(ctx, id)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildFulfillmentOrderPayload(order))
}

func (h *FulfillmentHandlers) storeInfo(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	ctx := r.Context()
	store, err := h.fulfillment.StoreInfo(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, store)
}
