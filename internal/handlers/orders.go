package handlers

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sundai-club/shop/internal/platform/httpx"
	"github.com/sundai-club/shop/internal/platform/pagination"
	"github.com/sundai-club/shop/internal/services"
)

// OrderHistoryHandlers lists order log rows for a customer email.
type OrderHistoryHandlers struct {
	orders services.OrderLogService
}

// NewOrderHistoryHandlers constructs order history handlers.
func NewOrderHistoryHandlers(orders services.OrderLogService) *OrderHistoryHandlers {
	return &OrderHistoryHandlers{orders: orders}
}

// Routes wires the /orders endpoints onto the provided router.
func (h *OrderHistoryHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listOrders)
}

func (h *OrderHistoryHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_log_unavailable", "order history is unavailable", http.StatusServiceUnavailable))
		return
	}
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "email query parameter is required", http.StatusBadRequest))
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "email is invalid", http.StatusBadRequest))
		return
	}

	page, err := pagination.FromRequest(r, pagination.Options{})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	records, next := pagination.Slice(h.orders.ListByEmail(ctx, email), page)
	items := make([]orderRecordPayload, 0, len(records))
	for _, record := range records {
		items = append(items, buildOrderRecordPayload(record))
	}
	resp := map[string]any{"orders": items}
	if next != "" {
		resp["next_page_token"] = next
	}
	writeJSONResponse(w, http.StatusOK, resp)
}
