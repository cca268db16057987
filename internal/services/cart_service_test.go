package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestCartService(t *testing.T, store *memoryCartRepository, now time.Time) CartService {
	t.Helper()
	svc, err := NewCartService(CartServiceDeps{
		Store:   store,
		Catalog: &staticCatalog{products: []Product{teeProduct(), stickerProduct()}},
		Clock:   func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}
	return svc
}

func TestCartServiceAddItemResolvesVariant(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store := newMemoryCartRepository()
	svc := newTestCartService(t, store, now)

	cart, err := svc.AddItem(context.Background(), AddCartItemCommand{
		SessionID: "sess-1",
		ProductID: 7,
		Size:      " L ",
		Quantity:  2,
		UnitPrice: "$20.00",
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(cart.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(cart.Entries))
	}
	entry := cart.Entries[0]
	if entry.Size != "L" || entry.Quantity != 2 {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.VariantID != 4013 || entry.SyncVariantID != 9002 {
		t.Fatalf("expected variant ids filled, got %+v", entry)
	}
	if !cart.UpdatedAt.Equal(now) {
		t.Fatalf("expected updatedAt %s, got %s", now, cart.UpdatedAt)
	}

	stored, _ := store.Get(context.Background(), "sess-1")
	if len(stored.Entries) != 1 {
		t.Fatalf("expected entry persisted, got %+v", stored)
	}
}

func TestCartServiceAddItemKeepsClientVariantIDs(t *testing.T) {
	svc := newTestCartService(t, newMemoryCartRepository(), time.Now())
	cart, err := svc.AddItem(context.Background(), AddCartItemCommand{
		SessionID: "sess-1",
		ProductID: 7,
		Size:      "M",
		Quantity:  1,
		VariantID: 4012,
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if cart.Entries[0].VariantID != 4012 || cart.Entries[0].SyncVariantID != 0 {
		t.Fatalf("client ids should be kept as sent, got %+v", cart.Entries[0])
	}
}

func TestCartServiceAddItemValidation(t *testing.T) {
	svc := newTestCartService(t, newMemoryCartRepository(), time.Now())
	ctx := context.Background()

	cases := []struct {
		name string
		cmd  AddCartItemCommand
		want error
	}{
		{"unknown product", AddCartItemCommand{SessionID: "s", ProductID: 99, Size: "M", Quantity: 1}, ErrCatalogProductNotFound},
		{"unknown size", AddCartItemCommand{SessionID: "s", ProductID: 7, Size: "XXL", Quantity: 1}, ErrSizeNotAvailable},
		{"zero quantity", AddCartItemCommand{SessionID: "s", ProductID: 7, Size: "M", Quantity: 0}, ErrInvalidQuantity},
		{"missing session", AddCartItemCommand{ProductID: 7, Size: "M", Quantity: 1}, ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddItem(ctx, tc.cmd)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCartServiceRemoveAndClear(t *testing.T) {
	svc := newTestCartService(t, newMemoryCartRepository(), time.Now())
	ctx := context.Background()
	for _, size := range []string{"M", "L"} {
		if _, err := svc.AddItem(ctx, AddCartItemCommand{SessionID: "s", ProductID: 7, Size: size, Quantity: 1}); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
	}

	cart, err := svc.RemoveItem(ctx, "s", 0)
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if len(cart.Entries) != 1 || cart.Entries[0].Size != "L" {
		t.Fatalf("unexpected cart after remove %+v", cart.Entries)
	}

	if _, err := svc.RemoveItem(ctx, "s", 5); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("expected ErrCartItemNotFound, got %v", err)
	}
	if _, err := svc.RemoveItem(ctx, "s", -1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found family, got %v", err)
	}

	if err := svc.Clear(ctx, "s"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	cart, _ = svc.Cart(ctx, "s")
	if !cart.IsEmpty() {
		t.Fatalf("expected empty cart, got %+v", cart.Entries)
	}
}

func TestCartServiceLinesJoinProducts(t *testing.T) {
	store := newMemoryCartRepository()
	store.carts["s"] = Cart{SessionID: "s", Entries: []CartEntry{
		{ProductID: 7, Size: "M", Quantity: 1},
		{ProductID: 404, Size: "M", Quantity: 1},
	}}
	svc := newTestCartService(t, store, time.Now())

	lines, err := svc.Lines(context.Background(), "s")
	if err != nil {
		t.Fatalf("Lines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Product == nil || lines[0].Product.Name != "SundAI Tee" {
		t.Fatalf("expected product joined, got %+v", lines[0])
	}
	if lines[1].Product != nil || lines[1].Index != 1 {
		t.Fatalf("expected unknown product left empty, got %+v", lines[1])
	}
}

func TestCartServiceSaveFailure(t *testing.T) {
	store := newMemoryCartRepository()
	store.putErr = errors.New("redis down")
	svc := newTestCartService(t, store, time.Now())

	_, err := svc.AddItem(context.Background(), AddCartItemCommand{SessionID: "s", ProductID: 8, Size: "One Size", Quantity: 1})
	if err == nil || !errors.Is(err, store.putErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
