package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sundai-club/shop/internal/services"
)

func TestWriteServiceErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrCartItemNotFound, http.StatusNotFound, "not_found"},
		{services.ErrOrderNotFound, http.StatusNotFound, "not_found"},
		{services.ErrNoSuchPendingOrder, http.StatusNotFound, "checkout_not_found"},
		{services.ErrInvalidQuantity, http.StatusBadRequest, "invalid_request"},
		{services.ErrNoPriceableItems, http.StatusBadRequest, "invalid_request"},
		{services.ErrPaymentNotCompleted, http.StatusBadRequest, "payment_not_completed"},
		{fmt.Errorf("%w: no print files", services.ErrMissingDesignFiles), http.StatusBadRequest, "missing_design_files"},
		{services.ErrStripeNotConfigured, http.StatusServiceUnavailable, "payments_not_configured"},
		{fmt.Errorf("%w: order rejected", services.ErrFulfillmentFailed), http.StatusInternalServerError, "fulfillment_failed"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		writeServiceError(context.Background(), rr, tc.err)
		expectStatus(t, rr, tc.status)
		if body := decodeBody(t, rr); body["error"] != tc.code {
			t.Fatalf("%v: expected code %s, got %v", tc.err, tc.code, body["error"])
		}
	}
}

func TestUpstreamErrorNamesOperation(t *testing.T) {
	rr := httptest.NewRecorder()
	writeServiceError(context.Background(), rr, fmt.Errorf("%w: shipping_rates: 502", services.ErrUpstreamUnavailable))
	expectStatus(t, rr, http.StatusInternalServerError)
	if msg := decodeBody(t, rr)["message"].(string); !strings.Contains(msg, "shipping_rates") {
		t.Fatalf("expected operation in message, got %q", msg)
	}
}

func TestReadLimitedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("   "))
	if _, err := readLimitedBody(req, 10); !errors.Is(err, errEmptyBody) {
		t.Fatalf("expected errEmptyBody, got %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("a", 11)))
	if _, err := readLimitedBody(req, 10); !errors.Is(err, errBodyTooLarge) {
		t.Fatalf("expected errBodyTooLarge, got %v", err)
	}
}

func TestDecodeJSONBodyTooLarge(t *testing.T) {
	payload := `{"size":"` + strings.Repeat("x", maxRequestBodySize) + `"}`
	rr := serve(t, NewCartHandlers(&stubCartService{}).Routes, "/cart", http.MethodPost, "/cart", "sess-1", payload)
	expectStatus(t, rr, http.StatusRequestEntityTooLarge)
}
