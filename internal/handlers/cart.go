package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sundai-club/shop/internal/platform/httpx"
	"github.com/sundai-club/shop/internal/services"
)

// CartHandlers exposes the cart of the current shopper session.
type CartHandlers struct {
	carts services.CartService
}

// NewCartHandlers constructs cart handlers. Requests must pass through the session middleware.
func NewCartHandlers(carts services.CartService) *CartHandlers {
	return &CartHandlers{carts: carts}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Post("/", h.addItem)
	r.Delete("/", h.clearCart)
	r.Delete("/{index}", h.removeItem)
}

type addCartItemRequest struct {
	ProductID     int64       `json:"product_id"`
	Size          string      `json:"size"`
	Quantity      *int        `json:"quantity"`
	VariantID     int64       `json:"variant_id"`
	SyncVariantID int64       `json:"sync_variant_id"`
	Price         json.Number `json:"price"`
}

type cartProductSummary struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"image_url"`
	Category string  `json:"category"`
}

type cartLinePayload struct {
	Index         int                 `json:"index"`
	ProductID     int64               `json:"product_id"`
	Size          string              `json:"size"`
	Quantity      int                 `json:"quantity"`
	VariantID     int64               `json:"variant_id,omitempty"`
	SyncVariantID int64               `json:"sync_variant_id,omitempty"`
	Price         string              `json:"price,omitempty"`
	Product       *cartProductSummary `json:"product"`
}

func (h *CartHandlers) available(w http.ResponseWriter, r *http.Request) bool {
	if h.carts == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	lines, err := h.carts.Lines(ctx, sessionID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(lines))
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var req addCartItemRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.ProductID <= 0 || strings.TrimSpace(req.Size) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product_id and size are required", http.StatusBadRequest))
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	cart, err := h.carts.AddItem(ctx, services.AddCartItemCommand{
		SessionID:     sessionID,
		ProductID:     req.ProductID,
		Size:          req.Size,
		Quantity:      quantity,
		VariantID:     req.VariantID,
		SyncVariantID: req.SyncVariantID,
		UnitPrice:     req.Price.String(),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{
		"success": true,
		"count":   len(cart.Entries),
	})
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	index, err := strconv.Atoi(strings.TrimSpace(chi.URLParam(r, "index")))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "index must be an integer", http.StatusBadRequest))
		return
	}
	cart, err := h.carts.RemoveItem(ctx, sessionID, index)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(cart.Entries),
	})
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	if err := h.carts.Clear(ctx, sessionID); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"success": true, "count": 0})
}

func buildCartPayload(lines []services.CartLine) map[string]any {
	items := make([]cartLinePayload, 0, len(lines))
	quantity := 0
	for _, line := range lines {
		item := cartLinePayload{
			Index:         line.Index,
			ProductID:     line.Entry.ProductID,
			Size:          line.Entry.Size,
			Quantity:      line.Entry.Quantity,
			VariantID:     line.Entry.VariantID,
			SyncVariantID: line.Entry.SyncVariantID,
			Price:         line.Entry.UnitPrice,
		}
		if line.Product != nil {
			item.Product = &cartProductSummary{
				ID:       line.Product.ID,
				Name:     line.Product.Name,
				Price:    line.Product.Price,
				ImageURL: line.Product.ImageURL,
				Category: line.Product.Category,
			}
		}
		quantity += line.Entry.Quantity
		items = append(items, item)
	}
	return map[string]any{
		"items":    items,
		"count":    len(items),
		"quantity": quantity,
	}
}
