package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sundai-club/shop/internal/services"
)

func TestProductHandlersList(t *testing.T) {
	handlers := NewProductHandlers(&stubCatalogService{products: []services.Product{teeProduct(), mugProduct()}})

	rr := serve(t, handlers.Routes, "/products", http.MethodGet, "/products", "", nil)
	expectStatus(t, rr, http.StatusOK)
	products := decodeBody(t, rr)["products"].([]any)
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	first := products[0].(map[string]any)
	if first["image_url"] != "https://cdn.example.com/tee.png" || first["in_stock"] != true {
		t.Fatalf("unexpected product payload %v", first)
	}
	if first["price_range"] != "$20.00 - $24.00" {
		t.Fatalf("expected price range, got %v", first["price_range"])
	}
	if _, ok := first["variants"]; ok {
		t.Fatal("list payload should omit variants")
	}

	rr = serve(t, handlers.Routes, "/products", http.MethodGet, "/products?category=accessories", "", nil)
	expectStatus(t, rr, http.StatusOK)
	products = decodeBody(t, rr)["products"].([]any)
	if len(products) != 1 || products[0].(map[string]any)["name"] != "Mug" {
		t.Fatalf("expected accessories only, got %v", products)
	}
}

func TestProductHandlersCategoryRoute(t *testing.T) {
	handlers := NewProductHandlers(&stubCatalogService{products: []services.Product{teeProduct(), mugProduct()}})

	rr := serve(t, handlers.Routes, "/products", http.MethodGet, "/products/category/apparel", "", nil)
	expectStatus(t, rr, http.StatusOK)
	body := decodeBody(t, rr)
	if body["category"] != "apparel" || len(body["products"].([]any)) != 1 {
		t.Fatalf("unexpected category payload %v", body)
	}

	rr = serve(t, handlers.Routes, "/products", http.MethodGet, "/products/category/unknown", "", nil)
	expectStatus(t, rr, http.StatusOK)
	if got := decodeBody(t, rr)["products"].([]any); len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}
}

func TestProductHandlersGet(t *testing.T) {
	handlers := NewProductHandlers(&stubCatalogService{products: []services.Product{teeProduct()}})

	rr := serve(t, handlers.Routes, "/products", http.MethodGet, "/products/7", "", nil)
	expectStatus(t, rr, http.StatusOK)
	body := decodeBody(t, rr)
	if variants := body["variants"].([]any); len(variants) != 2 {
		t.Fatalf("expected variants on detail payload, got %v", body["variants"])
	}

	rr = serve(t, handlers.Routes, "/products", http.MethodGet, "/products/99", "", nil)
	expectStatus(t, rr, http.StatusNotFound)
	if decodeBody(t, rr)["message"] != "Product not found" {
		t.Fatalf("unexpected not found message %s", rr.Body.String())
	}

	rr = serve(t, handlers.Routes, "/products", http.MethodGet, "/products/abc", "", nil)
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestProductHandlersSync(t *testing.T) {
	fetched := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	catalog := &stubCatalogService{
		syncFunc: func(context.Context) (services.CatalogSnapshot, error) {
			return services.CatalogSnapshot{
				Products:  []services.Product{teeProduct()},
				Skipped:   []services.SkippedProduct{{ID: 3, Name: "Poster", Reason: "no sizes"}},
				Source:    "store",
				FetchedAt: fetched,
			}, nil
		},
	}
	handlers := NewProductHandlers(catalog)

	rr := serve(t, handlers.Routes, "/products", http.MethodPost, "/products/sync", "", nil)
	expectStatus(t, rr, http.StatusOK)
	body := decodeBody(t, rr)
	if body["count"] != float64(1) || body["source"] != "store" {
		t.Fatalf("unexpected sync payload %v", body)
	}
	if skipped := body["skipped"].([]any); len(skipped) != 1 {
		t.Fatalf("expected skipped product, got %v", skipped)
	}

	catalog.syncFunc = func(context.Context) (services.CatalogSnapshot, error) {
		return services.CatalogSnapshot{}, errors.Join(services.ErrUpstreamUnavailable, errors.New("sync_products: 502"))
	}
	rr = serve(t, handlers.Routes, "/products", http.MethodPost, "/products/sync", "", nil)
	expectStatus(t, rr, http.StatusInternalServerError)
}

func TestProductHandlersWithoutCatalog(t *testing.T) {
	rr := serve(t, NewProductHandlers(nil).Routes, "/products", http.MethodGet, "/products", "", nil)
	expectStatus(t, rr, http.StatusServiceUnavailable)
}
