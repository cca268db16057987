package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/sundai-club/shop/internal/domain"
	pfirestore "github.com/sundai-club/shop/internal/platform/firestore"
	"github.com/sundai-club/shop/internal/repositories"
)

const cartCollection = "carts"

// CartRepository persists one cart document per shopper session.
type CartRepository struct {
	base  *pfirestore.BaseRepository[cartDocument]
	clock func() time.Time
}

var _ repositories.CartRepository = (*CartRepository)(nil)

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{
		base:  pfirestore.NewBaseRepository[cartDocument](provider, cartCollection),
		clock: time.Now,
	}, nil
}

// Get loads the cart for the session. Missing documents yield an empty cart.
func (r *CartRepository) Get(ctx context.Context, sessionID string) (domain.Cart, error) {
	sessionID = strings.TrimSpace(sessionID)
	doc, err := r.base.Get(ctx, sessionID)
	if err != nil {
		if pfirestore.IsNotFound(err) {
			return domain.Cart{SessionID: sessionID, Entries: []domain.CartEntry{}}, nil
		}
		return domain.Cart{}, err
	}
	return doc.Data.toDomain(sessionID), nil
}

// Put upserts the session cart. An empty cart deletes the document.
func (r *CartRepository) Put(ctx context.Context, cart domain.Cart) error {
	sessionID := strings.TrimSpace(cart.SessionID)
	if sessionID == "" {
		return errors.New("cart repository: session id is required")
	}
	if cart.IsEmpty() {
		return r.base.Delete(ctx, sessionID)
	}
	updatedAt := cart.UpdatedAt.UTC()
	if cart.UpdatedAt.IsZero() {
		updatedAt = r.clock().UTC()
	}
	return r.base.Set(ctx, sessionID, newCartDocument(cart, updatedAt))
}

type cartDocument struct {
	Entries   []cartEntryDocument `firestore:"entries"`
	UpdatedAt time.Time           `firestore:"updatedAt"`
}

type cartEntryDocument struct {
	ProductID     int64  `firestore:"productId"`
	Size          string `firestore:"size"`
	Quantity      int    `firestore:"quantity"`
	VariantID     int64  `firestore:"variantId,omitempty"`
	SyncVariantID int64  `firestore:"syncVariantId,omitempty"`
	UnitPrice     string `firestore:"price,omitempty"`
}

func newCartDocument(cart domain.Cart, updatedAt time.Time) cartDocument {
	entries := make([]cartEntryDocument, 0, len(cart.Entries))
	for _, entry := range cart.Entries {
		entries = append(entries, cartEntryDocument{
			ProductID:     entry.ProductID,
			Size:          entry.Size,
			Quantity:      entry.Quantity,
			VariantID:     entry.VariantID,
			SyncVariantID: entry.SyncVariantID,
			UnitPrice:     entry.UnitPrice,
		})
	}
	return cartDocument{Entries: entries, UpdatedAt: updatedAt}
}

func (d cartDocument) toDomain(sessionID string) domain.Cart {
	entries := make([]domain.CartEntry, 0, len(d.Entries))
	for _, entry := range d.Entries {
		entries = append(entries, domain.CartEntry{
			ProductID:     entry.ProductID,
			Size:          entry.Size,
			Quantity:      entry.Quantity,
			VariantID:     entry.VariantID,
			SyncVariantID: entry.SyncVariantID,
			UnitPrice:     entry.UnitPrice,
		})
	}
	return domain.Cart{SessionID: sessionID, Entries: entries, UpdatedAt: d.UpdatedAt.UTC()}
}
