package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/sundai-club/shop/internal/domain"
	pfirestore "github.com/sundai-club/shop/internal/platform/firestore"
	"github.com/sundai-club/shop/internal/repositories"
)

const pendingOrderCollection = "pending_checkout_orders"

// PendingOrderRepository stores pending checkout orders keyed by payment session id.
type PendingOrderRepository struct {
	base     *pfirestore.BaseRepository[pendingOrderDocument]
	provider *pfirestore.Provider
}

var _ repositories.PendingOrderRepository = (*PendingOrderRepository)(nil)

// NewPendingOrderRepository constructs the Firestore pending order repository.
func NewPendingOrderRepository(provider *pfirestore.Provider) (*PendingOrderRepository, error) {
	if provider == nil {
		return nil, errors.New("pending order repository requires firestore provider")
	}
	return &PendingOrderRepository{
		base:     pfirestore.NewBaseRepository[pendingOrderDocument](provider, pendingOrderCollection),
		provider: provider,
	}, nil
}

// Create writes the record and reports a conflict when the payment session already exists.
func (r *PendingOrderRepository) Create(ctx context.Context, order domain.PendingCheckoutOrder) error {
	id := strings.TrimSpace(order.PaymentSessionID)
	if id == "" {
		return errors.New("pending order repository: payment session id is required")
	}
	return r.base.Create(ctx, id, newPendingOrderDocument(order))
}

func (r *PendingOrderRepository) Get(ctx context.Context, paymentSessionID string) (domain.PendingCheckoutOrder, error) {
	doc, err := r.base.Get(ctx, strings.TrimSpace(paymentSessionID))
	if err != nil {
		return domain.PendingCheckoutOrder{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// MarkFulfilled flips the fulfilled flag inside a transaction so only the first caller wins.
func (r *PendingOrderRepository) MarkFulfilled(ctx context.Context, paymentSessionID string, fulfillmentOrderID int64, at time.Time) (domain.PendingCheckoutOrder, error) {
	ref, err := r.base.DocumentRef(ctx, strings.TrimSpace(paymentSessionID))
	if err != nil {
		return domain.PendingCheckoutOrder{}, err
	}
	at = at.UTC()

	var result domain.PendingCheckoutOrder
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snapshot, err := tx.Get(ref)
		if err != nil {
			return pfirestore.WrapError(pendingOrderCollection+".mark_fulfilled", err)
		}
		doc, err := r.base.Decode(snapshot)
		if err != nil {
			return err
		}
		if doc.Data.Fulfilled {
			result = doc.Data.toDomain(doc.ID)
			return nil
		}

		data := doc.Data
		data.Fulfilled = true
		data.FulfillmentOrderID = fulfillmentOrderID
		data.FulfilledAt = &at
		data.UpdatedAt = at
		if err := tx.Set(ref, data); err != nil {
			return err
		}
		result = data.toDomain(doc.ID)
		return nil
	})
	if err != nil {
		return domain.PendingCheckoutOrder{}, err
	}
	return result, nil
}

type pendingOrderDocument struct {
	ID                 string                `firestore:"id"`
	AppSessionID       string                `firestore:"appSessionId"`
	OrderRecordID      string                `firestore:"orderRecordId,omitempty"`
	ExternalID         string                `firestore:"externalId"`
	CustomerEmail      string                `firestore:"customerEmail,omitempty"`
	FulfillmentOrder   []byte                `firestore:"fulfillmentOrder"`
	Summary            costBreakdownDocument `firestore:"summary"`
	Fulfilled          bool                  `firestore:"fulfilled"`
	FulfillmentOrderID int64                 `firestore:"fulfillmentOrderId,omitempty"`
	CreatedAt          time.Time             `firestore:"createdAt"`
	UpdatedAt          time.Time             `firestore:"updatedAt"`
	FulfilledAt        *time.Time            `firestore:"fulfilledAt,omitempty"`
}

type costBreakdownDocument struct {
	Subtotal     float64            `firestore:"subtotal"`
	Shipping     float64            `firestore:"shipping"`
	ShippingNote string             `firestore:"shippingNote"`
	Tax          float64            `firestore:"tax"`
	TaxNote      string             `firestore:"taxNote"`
	Total        float64            `firestore:"total"`
	Currency     string             `firestore:"currency"`
	CostSource   string             `firestore:"costSource"`
	Lines        []lineItemDocument `firestore:"lines"`
}

type lineItemDocument struct {
	ProductID     int64   `firestore:"productId"`
	VariantID     int64   `firestore:"variantId,omitempty"`
	SyncVariantID int64   `firestore:"syncVariantId,omitempty"`
	Name          string  `firestore:"name"`
	Size          string  `firestore:"size"`
	ImageURL      string  `firestore:"imageUrl,omitempty"`
	Quantity      int     `firestore:"quantity"`
	UnitPrice     float64 `firestore:"unitPrice"`
	Total         float64 `firestore:"total"`
}

func newPendingOrderDocument(order domain.PendingCheckoutOrder) pendingOrderDocument {
	lines := make([]lineItemDocument, 0, len(order.Summary.Lines))
	for _, line := range order.Summary.Lines {
		lines = append(lines, lineItemDocument(line))
	}
	summary := order.Summary
	doc := pendingOrderDocument{
		ID:                 order.ID,
		AppSessionID:       order.AppSessionID,
		OrderRecordID:      order.OrderRecordID,
		ExternalID:         order.ExternalID,
		CustomerEmail:      order.CustomerEmail,
		FulfillmentOrder:   order.FulfillmentOrder,
		Fulfilled:          order.Fulfilled,
		FulfillmentOrderID: order.FulfillmentOrderID,
		CreatedAt:          order.CreatedAt.UTC(),
		UpdatedAt:          order.UpdatedAt.UTC(),
		Summary: costBreakdownDocument{
			Subtotal:     summary.Subtotal,
			Shipping:     summary.Shipping,
			ShippingNote: summary.ShippingNote,
			Tax:          summary.Tax,
			TaxNote:      summary.TaxNote,
			Total:        summary.Total,
			Currency:     summary.Currency,
			CostSource:   summary.CostSource,
			Lines:        lines,
		},
	}
	if order.FulfilledAt != nil {
		at := order.FulfilledAt.UTC()
		doc.FulfilledAt = &at
	}
	return doc
}

func (d pendingOrderDocument) toDomain(paymentSessionID string) domain.PendingCheckoutOrder {
	lines := make([]domain.LineItem, 0, len(d.Summary.Lines))
	for _, line := range d.Summary.Lines {
		lines = append(lines, domain.LineItem(line))
	}
	order := domain.PendingCheckoutOrder{
		ID:                 d.ID,
		PaymentSessionID:   paymentSessionID,
		AppSessionID:       d.AppSessionID,
		OrderRecordID:      d.OrderRecordID,
		ExternalID:         d.ExternalID,
		CustomerEmail:      d.CustomerEmail,
		FulfillmentOrder:   d.FulfillmentOrder,
		Fulfilled:          d.Fulfilled,
		FulfillmentOrderID: d.FulfillmentOrderID,
		CreatedAt:          d.CreatedAt.UTC(),
		UpdatedAt:          d.UpdatedAt.UTC(),
		Summary: domain.CostBreakdown{
			Subtotal:     d.Summary.Subtotal,
			Shipping:     d.Summary.Shipping,
			ShippingNote: d.Summary.ShippingNote,
			Tax:          d.Summary.Tax,
			TaxNote:      d.Summary.TaxNote,
			Total:        d.Summary.Total,
			Currency:     d.Summary.Currency,
			CostSource:   d.Summary.CostSource,
			Lines:        lines,
		},
	}
	if d.FulfilledAt != nil {
		at := d.FulfilledAt.UTC()
		order.FulfilledAt = &at
	}
	return order
}
