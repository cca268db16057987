package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sundai-club/shop/internal/platform/httpx"
	"github.com/sundai-club/shop/internal/services"
)

const idempotencyHeader = "Idempotency-Key"

// CheckoutHandlers drives the payment checkout for the current shopper session.
type CheckoutHandlers struct {
	checkout services.CheckoutService
}

// NewCheckoutHandlers constructs checkout handlers.
func NewCheckoutHandlers(checkout services.CheckoutService) *CheckoutHandlers {
	return &CheckoutHandlers{checkout: checkout}
}

// Routes wires the /checkout endpoints onto the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/session", h.createSession)
	r.Post("/complete", h.complete)
}

type createCheckoutRequest struct {
	Recipient  recipientPayload `json:"recipient"`
	SuccessURL string           `json:"success_url"`
	CancelURL  string           `json:"cancel_url"`
}

type completeCheckoutRequest struct {
	SessionID string `json:"session_id"`
}

func (h *CheckoutHandlers) available(w http.ResponseWriter, r *http.Request) bool {
	if h.checkout == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("checkout_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

func (h *CheckoutHandlers) createSession(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req createCheckoutRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	ctx := r.Context()
	result, err := h.checkout.CreateSession(ctx, services.CreateCheckoutCommand{
		SessionID:      sessionID,
		Recipient:      req.Recipient.toService(),
		SuccessURL:     strings.TrimSpace(req.SuccessURL),
		CancelURL:      strings.TrimSpace(req.CancelURL),
		IdempotencyKey: r.Header.Get(idempotencyHeader),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	payload := map[string]any{
		"session_id": result.PaymentSessionID,
		"url":        result.RedirectURL,
		"summary":    buildBreakdownPayload(result.Summary),
		"partial":    result.Partial,
		"skipped":    buildSkippedPayload(result.Skipped),
	}
	if !result.ExpiresAt.IsZero() {
		payload["expires_at"] = result.ExpiresAt.UTC().Format(time.RFC3339)
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *CheckoutHandlers) complete(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req completeCheckoutRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	ctx := r.Context()
	if strings.TrimSpace(req.SessionID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "session_id is required", http.StatusBadRequest))
		return
	}
	result, err := h.checkout.Complete(ctx, services.CompleteCheckoutCommand{
		SessionID:        sessionID,
		PaymentSessionID: strings.TrimSpace(req.SessionID),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success":              true,
		"session_id":           result.PaymentSessionID,
		"fulfillment_order_id": result.FulfillmentOrderID,
		"already_fulfilled":    result.AlreadyFulfilled,
		"summary":              buildBreakdownPayload(result.Summary),
	})
}
