package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sundai-club/shop/internal/platform/httpx"
	"github.com/sundai-club/shop/internal/platform/requestctx"
	"github.com/sundai-club/shop/internal/services"
)

const (
	maxRequestBodySize = 16 * 1024

	supportMessage = "Your payment was received but one of the products is missing its design files. " +
		"Please contact support with your checkout reference so we can complete the order."
)

var (
	errEmptyBody    = errors.New("request body is required")
	errBodyTooLarge = errors.New("request body too large")
)

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = maxRequestBodySize
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// decodeJSONBody reads a bounded JSON body into dst and writes the 4xx response itself on failure.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	ctx := r.Context()
	body, err := readLimitedBody(r, maxRequestBodySize)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return false
	}
	return true
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	httpx.WriteJSON(w, status, payload)
}

// requireSession returns the shopper session id attached by the session middleware.
func requireSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(requestctx.SessionID(r.Context()))
	if id == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("session_required", "a shopper session is required", http.StatusBadRequest))
		return "", false
	}
	return id, true
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	return id, err == nil && id > 0
}

// writeServiceError maps service sentinels onto HTTP statuses.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	var apiErr httpx.Error
	switch {
	case errors.Is(err, services.ErrStripeNotConfigured):
		apiErr = httpx.NewError("payments_not_configured", "payment processing is not configured", http.StatusServiceUnavailable)
	case errors.Is(err, services.ErrMissingDesignFiles):
		apiErr = httpx.NewError("missing_design_files", supportMessage, http.StatusBadRequest).
			WithDetails(map[string]any{"detail": err.Error()})
	case errors.Is(err, services.ErrPaymentNotCompleted):
		apiErr = httpx.NewError("payment_not_completed", "payment has not been completed", http.StatusBadRequest)
	case errors.Is(err, services.ErrNoSuchPendingOrder):
		apiErr = httpx.NewError("checkout_not_found", "no pending checkout for this session", http.StatusNotFound)
	case errors.Is(err, services.ErrCartItemNotFound):
		apiErr = httpx.NewError("not_found", "Cart item not found", http.StatusNotFound)
	case errors.Is(err, services.ErrCatalogProductNotFound):
		apiErr = httpx.NewError("not_found", "Product not found", http.StatusNotFound)
	case errors.Is(err, services.ErrNotFound):
		apiErr = httpx.NewError("not_found", err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrSizeNotAvailable):
		apiErr = httpx.NewError("size_not_available", "Size not available", http.StatusBadRequest)
	case errors.Is(err, services.ErrInvalidInput):
		apiErr = httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrFulfillmentFailed):
		apiErr = httpx.NewError("fulfillment_failed", err.Error(), http.StatusInternalServerError)
	case errors.Is(err, services.ErrUpstreamUnavailable):
		apiErr = httpx.NewError("upstream_unavailable", err.Error(), http.StatusInternalServerError)
	case errors.Is(err, context.DeadlineExceeded):
		apiErr = httpx.NewError("timeout", "request timed out", http.StatusGatewayTimeout)
	default:
		requestctx.Logger(ctx).Sugar().Errorw("unhandled service error", "error", err)
		apiErr = httpx.NewError("internal_error", fmt.Sprintf("internal error: %v", err), http.StatusInternalServerError)
	}
	httpx.WriteError(ctx, w, apiErr)
}
