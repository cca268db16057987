package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/sundai-club/shop/internal/printful"
	"github.com/sundai-club/shop/internal/services"
)

func TestFulfillmentHandlersCreateOrder(t *testing.T) {
	var got services.CreateFulfillmentOrderCommand
	fulfillment := &stubFulfillmentService{
		createFunc: func(_ context.Context, cmd services.CreateFulfillmentOrderCommand) (services.FulfillmentOrder, error) {
			got = cmd
			return services.FulfillmentOrder{
				Order:   printful.Order{ID: 42, Status: "pending"},
				Summary: &services.CostBreakdown{Total: 26.69, Currency: "USD"},
			}, nil
		},
	}
	handlers := NewFulfillmentHandlers(fulfillment)

	rr := serve(t, handlers.Routes, "", http.MethodPost, "/fulfillment/orders", "sess-1", map[string]any{
		"recipient": validRecipientPayload(),
		"confirm":   true,
	})
	expectStatus(t, rr, http.StatusCreated)
	body := decodeBody(t, rr)
	if body["order"].(map[string]any)["id"] != float64(42) {
		t.Fatalf("unexpected order %v", body["order"])
	}
	if shipments := body["shipments"].([]any); len(shipments) != 0 {
		t.Fatalf("expected empty shipments, got %v", shipments)
	}
	if body["summary"].(map[string]any)["total"] != 26.69 {
		t.Fatalf("unexpected summary %v", body["summary"])
	}
	if !got.Confirm || got.SessionID != "sess-1" {
		t.Fatalf("unexpected command %+v", got)
	}

	fulfillment.createFunc = func(context.Context, services.CreateFulfillmentOrderCommand) (services.FulfillmentOrder, error) {
		return services.FulfillmentOrder{}, fmt.Errorf("%w: Missing print file", services.ErrMissingDesignFiles)
	}
	rr = serve(t, handlers.Routes, "", http.MethodPost, "/fulfillment/orders", "sess-1", map[string]any{"recipient": validRecipientPayload()})
	expectStatus(t, rr, http.StatusBadRequest)
	if decodeBody(t, rr)["error"] != "missing_design_files" {
		t.Fatalf("unexpected error %s", rr.Body.String())
	}
}

func TestFulfillmentHandlersOrderStatusAndConfirm(t *testing.T) {
	fulfillment := &stubFulfillmentService{
		statusFunc: func(_ context.Context, id int64) (services.FulfillmentOrder, error) {
			if id == 404 {
				return services.FulfillmentOrder{}, services.ErrOrderNotFound
			}
			return services.FulfillmentOrder{
				Order:     printful.Order{ID: id, Status: "fulfilled"},
				Shipments: []printful.Shipment{{ID: 1, Carrier: "USPS", TrackingNumber: "9400"}},
			}, nil
		},
		confirmFunc: func(_ context.Context, id int64) (services.FulfillmentOrder, error) {
			if id == 3 {
				return services.FulfillmentOrder{}, fmt.Errorf("%w: confirm_order: timeout", services.ErrUpstreamUnavailable)
			}
			return services.FulfillmentOrder{Order: printful.Order{ID: id, Status: "inprocess"}}, nil
		},
	}
	handlers := NewFulfillmentHandlers(fulfillment)

	rr := serve(t, handlers.Routes, "", http.MethodGet, "/fulfillment/orders/12", "", nil)
	expectStatus(t, rr, http.StatusOK)
	shipments := decodeBody(t, rr)["shipments"].([]any)
	if shipments[0].(map[string]any)["tracking_number"] != "9400" {
		t.Fatalf("unexpected shipments %v", shipments)
	}

	rr = serve(t, handlers.Routes, "", http.MethodGet, "/fulfillment/orders/404", "", nil)
	expectStatus(t, rr, http.StatusNotFound)

	rr = serve(t, handlers.Routes, "", http.MethodGet, "/fulfillment/orders/0", "", nil)
	expectStatus(t, rr, http.StatusBadRequest)

	rr = serve(t, handlers.Routes, "", http.MethodPost, "/fulfillment/orders/12/confirm", "", nil)
	expectStatus(t, rr, http.StatusOK)
	if decodeBody(t, rr)["order"].(map[string]any)["status"] != "inprocess" {
		t.Fatalf("unexpected confirm payload %s", rr.Body.String())
	}

	rr = serve(t, handlers.Routes, "", http.MethodPost, "/fulfillment/orders/3/confirm", "", nil)
	expectStatus(t, rr, http.StatusInternalServerError)
}

func TestFulfillmentHandlersStoreInfo(t *testing.T) {
	fulfillment := &stubFulfillmentService{
		storeFunc: func(context.Context) (printful.Store, error) {
			return printful.Store{ID: 5, Name: "Sundai Merch", Currency: "USD"}, nil
		},
	}
	handlers := NewFulfillmentHandlers(fulfillment)

	rr := serve(t, handlers.Routes, "", http.MethodGet, "/store", "", nil)
	expectStatus(t, rr, http.StatusOK)
	if decodeBody(t, rr)["name"] != "Sundai Merch" {
		t.Fatalf("unexpected store payload %s", rr.Body.String())
	}

	fulfillment.storeFunc = func(context.Context) (printful.Store, error) {
		return printful.Store{}, errors.Join(services.ErrUpstreamUnavailable, errors.New("store_info"))
	}
	rr = serve(t, handlers.Routes, "", http.MethodGet, "/store", "", nil)
	expectStatus(t, rr, http.StatusInternalServerError)
}
