package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sundai-club/shop/internal/platform/httpx"
	"github.com/sundai-club/shop/internal/services"
)

// ProductHandlers serves the cached catalog.
type ProductHandlers struct {
	catalog services.CatalogService
}

// NewProductHandlers constructs catalog handlers.
func NewProductHandlers(catalog services.CatalogService) *ProductHandlers {
	return &ProductHandlers{catalog: catalog}
}

// Routes wires the /products endpoints onto the provided router.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listProducts)
	r.Post("/sync", h.syncProducts)
	r.Get("/category/{category}", h.listCategory)
	r.Get("/{productId}", h.getProduct)
}

func (h *ProductHandlers) available(w http.ResponseWriter, r *http.Request) bool {
	if h.catalog == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

func (h *ProductHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	ctx := r.Context()
	var products []services.Product
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		products = h.catalog.ProductsByCategory(ctx, category)
	} else {
		products = h.catalog.Products(ctx)
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"products": buildProductList(products)})
}

func (h *ProductHandlers) listCategory(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	category := strings.TrimSpace(chi.URLParam(r, "category"))
	products := h.catalog.ProductsByCategory(r.Context(), category)
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"category": category,
		"products": buildProductList(products),
	})
}

func (h *ProductHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	ctx := r.Context()
	id, ok := parseID(chi.URLParam(r, "productId"))
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id must be a positive integer", http.StatusBadRequest))
		return
	}
	product, err := h.catalog.Product(ctx, id)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildProductPayload(product, true))
}

func (h *ProductHandlers) syncProducts(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	ctx := r.Context()
	snapshot, err := h.catalog.Sync(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	skipped := make([]map[string]any, 0, len(snapshot.Skipped))
	for _, s := range snapshot.Skipped {
		skipped = append(skipped, map[string]any{"id": s.ID, "name": s.Name, "reason": s.Reason})
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success":   true,
		"count":     len(snapshot.Products),
		"source":    snapshot.Source,
		"fetchedAt": formatTime(snapshot.FetchedAt),
		"skipped":   skipped,
	})
}
