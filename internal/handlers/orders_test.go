package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	domain "github.com/sundai-club/shop/internal/domain"
	"github.com/sundai-club/shop/internal/services"
)

func TestOrderHistoryHandlersList(t *testing.T) {
	orderID := int64(42)
	var gotEmail string
	orders := &stubOrderLogService{
		listFunc: func(_ context.Context, email string) []services.OrderRecord {
			gotEmail = email
			return []services.OrderRecord{{
				ID:                      "rec-1",
				StripeCheckoutSessionID: "cs_1",
				PrintfulOrderID:         &orderID,
				CustomerEmail:           email,
				OrderStatus:             domain.OrderStatusSubmitted,
				PaymentStatus:           domain.PaymentStatusPaid,
				TotalAmount:             31.03,
				CreatedAt:               time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			}}
		},
	}
	handlers := NewOrderHistoryHandlers(orders)

	rr := serve(t, handlers.Routes, "/orders", http.MethodGet, "/orders?email=ada@example.com", "", nil)
	expectStatus(t, rr, http.StatusOK)
	items := decodeBody(t, rr)["orders"].([]any)
	first := items[0].(map[string]any)
	if first["printful_order_id"] != float64(42) || first["order_status"] != domain.OrderStatusSubmitted {
		t.Fatalf("unexpected record %v", first)
	}
	if first["created_at"] != "2024-01-01T00:00:00Z" {
		t.Fatalf("unexpected created_at %v", first["created_at"])
	}
	if gotEmail != "ada@example.com" {
		t.Fatalf("unexpected email %q", gotEmail)
	}
}

func TestOrderHistoryHandlersValidation(t *testing.T) {
	handlers := NewOrderHistoryHandlers(&stubOrderLogService{
		listFunc: func(context.Context, string) []services.OrderRecord { return []services.OrderRecord{} },
	})

	rr := serve(t, handlers.Routes, "/orders", http.MethodGet, "/orders", "", nil)
	expectStatus(t, rr, http.StatusBadRequest)

	rr = serve(t, handlers.Routes, "/orders", http.MethodGet, "/orders?email=not-an-email", "", nil)
	expectStatus(t, rr, http.StatusBadRequest)

	rr = serve(t, handlers.Routes, "/orders", http.MethodGet, "/orders?email=nobody@example.com", "", nil)
	expectStatus(t, rr, http.StatusOK)
	if items := decodeBody(t, rr)["orders"].([]any); len(items) != 0 {
		t.Fatalf("expected empty list, got %v", items)
	}
}

func TestOrderHistoryHandlersPaginates(t *testing.T) {
	records := make([]services.OrderRecord, 3)
	for i := range records {
		records[i] = services.OrderRecord{ID: string(rune('a' + i)), CustomerEmail: "ada@example.com"}
	}
	handlers := NewOrderHistoryHandlers(&stubOrderLogService{
		listFunc: func(context.Context, string) []services.OrderRecord { return records },
	})

	rr := serve(t, handlers.Routes, "/orders", http.MethodGet, "/orders?email=ada@example.com&page_size=2", "", nil)
	expectStatus(t, rr, http.StatusOK)
	body := decodeBody(t, rr)
	if items := body["orders"].([]any); len(items) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(items))
	}
	next, _ := body["next_page_token"].(string)
	if next == "" {
		t.Fatal("expected next_page_token")
	}

	rr = serve(t, handlers.Routes, "/orders", http.MethodGet, "/orders?email=ada@example.com&page_size=2&page_token="+next, "", nil)
	expectStatus(t, rr, http.StatusOK)
	body = decodeBody(t, rr)
	items := body["orders"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["id"] != "c" {
		t.Fatalf("unexpected last page %v", items)
	}
	if _, ok := body["next_page_token"]; ok {
		t.Fatal("expected no token on the last page")
	}

	rr = serve(t, handlers.Routes, "/orders", http.MethodGet, "/orders?email=ada@example.com&page_size=zero", "", nil)
	expectStatus(t, rr, http.StatusBadRequest)
}
