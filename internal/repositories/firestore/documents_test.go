package firestore

import (
	"testing"
	"time"

	domain "github.com/sundai-club/shop/internal/domain"
)

func TestPendingOrderDocumentRoundTrip(t *testing.T) {
	fulfilledAt := time.Date(2024, 5, 1, 8, 0, 0, 0, time.FixedZone("EST", -5*3600))
	order := domain.PendingCheckoutOrder{
		ID:               "01A",
		PaymentSessionID: "cs_1",
		AppSessionID:     "sess-1",
		ExternalID:       "sm_01A",
		FulfillmentOrder: []byte(`{}`),
		Fulfilled:        true,
		FulfilledAt:      &fulfilledAt,
		Summary: domain.CostBreakdown{
			Subtotal: 36,
			Total:    44.05,
			Lines:    []domain.LineItem{{ProductID: 7, Name: "Tee", Size: "M", Quantity: 2, UnitPrice: 18, Total: 36}},
		},
	}

	got := newPendingOrderDocument(order).toDomain("cs_1")
	if got.PaymentSessionID != "cs_1" || got.AppSessionID != "sess-1" || !got.Fulfilled {
		t.Fatalf("unexpected order %+v", got)
	}
	if len(got.Summary.Lines) != 1 || got.Summary.Lines[0].Total != 36 {
		t.Fatalf("expected line items preserved, got %+v", got.Summary.Lines)
	}
	if got.FulfilledAt == nil || got.FulfilledAt.Location() != time.UTC || !got.FulfilledAt.Equal(fulfilledAt) {
		t.Fatalf("expected utc fulfilled time, got %v", got.FulfilledAt)
	}
}

func TestCartDocumentRoundTrip(t *testing.T) {
	cart := domain.Cart{
		SessionID: "sess-1",
		Entries:   []domain.CartEntry{{ProductID: 7, Size: "L", Quantity: 1, SyncVariantID: 9002}},
	}
	got := newCartDocument(cart, time.Unix(0, 0)).toDomain("sess-1")
	if len(got.Entries) != 1 || got.Entries[0].SyncVariantID != 9002 {
		t.Fatalf("unexpected entries %+v", got.Entries)
	}

	empty := cartDocument{}.toDomain("sess-2")
	if empty.Entries == nil {
		t.Fatal("expected non-nil entries")
	}
}
