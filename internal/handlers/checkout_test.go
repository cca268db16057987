package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sundai-club/shop/internal/platform/requestctx"
	"github.com/sundai-club/shop/internal/services"
)

func TestCheckoutHandlersCreateSession(t *testing.T) {
	var got services.CreateCheckoutCommand
	checkout := &stubCheckoutService{
		createFunc: func(_ context.Context, cmd services.CreateCheckoutCommand) (services.CheckoutResult, error) {
			got = cmd
			return services.CheckoutResult{
				PaymentSessionID: "cs_test_1",
				RedirectURL:      "https://checkout.stripe.com/c/cs_test_1",
				ExpiresAt:        time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
				Summary:          services.CostBreakdown{Total: 31.03, Currency: "USD"},
			}, nil
		},
	}
	handlers := NewCheckoutHandlers(checkout)

	rr := serve(t, handlers.Routes, "/checkout", http.MethodPost, "/checkout/session", "sess-1", map[string]any{
		"recipient":   validRecipientPayload(),
		"success_url": "https://shop.example.com/success",
		"cancel_url":  "https://shop.example.com/cart",
	})
	expectStatus(t, rr, http.StatusOK)
	body := decodeBody(t, rr)
	if body["session_id"] != "cs_test_1" || body["url"] != "https://checkout.stripe.com/c/cs_test_1" {
		t.Fatalf("unexpected payload %v", body)
	}
	if body["expires_at"] != "2024-01-02T00:00:00Z" {
		t.Fatalf("unexpected expiry %v", body["expires_at"])
	}
	if got.SessionID != "sess-1" || got.SuccessURL != "https://shop.example.com/success" || got.Recipient.Name != "Ada Lovelace" {
		t.Fatalf("unexpected command %+v", got)
	}
}

func TestCheckoutHandlersForwardsIdempotencyKey(t *testing.T) {
	var key string
	checkout := &stubCheckoutService{
		createFunc: func(_ context.Context, cmd services.CreateCheckoutCommand) (services.CheckoutResult, error) {
			key = cmd.IdempotencyKey
			return services.CheckoutResult{PaymentSessionID: "cs_1"}, nil
		},
	}
	router := NewRouter(
		WithAPIMiddlewares(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(requestctx.WithSessionID(r.Context(), "sess-1")))
			})
		}),
		WithCheckoutRoutes(NewCheckoutHandlers(checkout).Routes),
	)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/session", strings.NewReader(`{"recipient":{"name":"Ada"}}`))
	req.Header.Set(idempotencyHeader, "key-123")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	expectStatus(t, rr, http.StatusOK)
	if key != "key-123" {
		t.Fatalf("expected idempotency key forwarded, got %q", key)
	}
}

func TestCheckoutHandlersCreateSessionErrors(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
		code   string
	}{
		"stripe missing":  {services.ErrStripeNotConfigured, http.StatusServiceUnavailable, "payments_not_configured"},
		"empty cart":      {services.ErrEmptyCart, http.StatusBadRequest, "invalid_request"},
		"invalid address": {services.ErrInvalidRecipient, http.StatusBadRequest, "invalid_request"},
		"stripe failure":  {fmt.Errorf("%w: create_checkout_session: boom", services.ErrUpstreamUnavailable), http.StatusInternalServerError, "upstream_unavailable"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			handlers := NewCheckoutHandlers(&stubCheckoutService{
				createFunc: func(context.Context, services.CreateCheckoutCommand) (services.CheckoutResult, error) {
					return services.CheckoutResult{}, tc.err
				},
			})
			rr := serve(t, handlers.Routes, "/checkout", http.MethodPost, "/checkout/session", "sess-1", map[string]any{"recipient": validRecipientPayload()})
			expectStatus(t, rr, tc.status)
			if decodeBody(t, rr)["error"] != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, rr.Body.String())
			}
		})
	}
}

func TestCheckoutHandlersComplete(t *testing.T) {
	var got services.CompleteCheckoutCommand
	checkout := &stubCheckoutService{
		completeFunc: func(_ context.Context, cmd services.CompleteCheckoutCommand) (services.CompletionResult, error) {
			got = cmd
			switch cmd.PaymentSessionID {
			case "cs_unpaid":
				return services.CompletionResult{}, services.ErrPaymentNotCompleted
			case "cs_missing":
				return services.CompletionResult{}, services.ErrNoSuchPendingOrder
			case "cs_design":
				return services.CompletionResult{}, fmt.Errorf("%w: Missing print file", services.ErrMissingDesignFiles)
			case "cs_rejected":
				return services.CompletionResult{}, fmt.Errorf("%w: invalid variant", services.ErrFulfillmentFailed)
			}
			return services.CompletionResult{PaymentSessionID: cmd.PaymentSessionID, FulfillmentOrderID: 42, AlreadyFulfilled: true}, nil
		},
	}
	handlers := NewCheckoutHandlers(checkout)

	rr := serve(t, handlers.Routes, "/checkout", http.MethodPost, "/checkout/complete", "sess-1", map[string]any{"session_id": "cs_ok"})
	expectStatus(t, rr, http.StatusOK)
	body := decodeBody(t, rr)
	if body["fulfillment_order_id"] != float64(42) || body["already_fulfilled"] != true {
		t.Fatalf("unexpected payload %v", body)
	}
	if got.SessionID != "sess-1" || got.PaymentSessionID != "cs_ok" {
		t.Fatalf("unexpected command %+v", got)
	}

	for id, status := range map[string]int{
		"cs_unpaid":   http.StatusBadRequest,
		"cs_missing":  http.StatusNotFound,
		"cs_design":   http.StatusBadRequest,
		"cs_rejected": http.StatusInternalServerError,
	} {
		rr = serve(t, handlers.Routes, "/checkout", http.MethodPost, "/checkout/complete", "sess-1", map[string]any{"session_id": id})
		expectStatus(t, rr, status)
		if id == "cs_design" && !strings.Contains(decodeBody(t, rr)["message"].(string), "contact support") {
			t.Fatalf("expected support remediation, got %s", rr.Body.String())
		}
	}

	rr = serve(t, handlers.Routes, "/checkout", http.MethodPost, "/checkout/complete", "sess-1", map[string]any{"session_id": " "})
	expectStatus(t, rr, http.StatusBadRequest)
}
