package redisstore

import (
	"time"

	domain "github.com/sundai-club/shop/internal/domain"
)

type pendingDocument struct {
	ID                 string               `json:"id"`
	PaymentSessionID   string               `json:"payment_session_id"`
	AppSessionID       string               `json:"app_session_id"`
	OrderRecordID      string               `json:"order_record_id,omitempty"`
	ExternalID         string               `json:"external_id"`
	CustomerEmail      string               `json:"customer_email,omitempty"`
	FulfillmentOrder   []byte               `json:"fulfillment_order"`
	Summary            domain.CostBreakdown `json:"summary"`
	Fulfilled          bool                 `json:"fulfilled"`
	FulfillmentOrderID int64                `json:"fulfillment_order_id,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
	FulfilledAt        *time.Time           `json:"fulfilled_at,omitempty"`
}

func toPendingDocument(order domain.PendingCheckoutOrder) pendingDocument {
	return pendingDocument{
		ID:                 order.ID,
		PaymentSessionID:   order.PaymentSessionID,
		AppSessionID:       order.AppSessionID,
		OrderRecordID:      order.OrderRecordID,
		ExternalID:         order.ExternalID,
		CustomerEmail:      order.CustomerEmail,
		FulfillmentOrder:   order.FulfillmentOrder,
		Summary:            order.Summary,
		Fulfilled:          order.Fulfilled,
		FulfillmentOrderID: order.FulfillmentOrderID,
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
		FulfilledAt:        order.FulfilledAt,
	}
}

func (d pendingDocument) toDomain() domain.PendingCheckoutOrder {
	return domain.PendingCheckoutOrder{
		ID:                 d.ID,
		PaymentSessionID:   d.PaymentSessionID,
		AppSessionID:       d.AppSessionID,
		OrderRecordID:      d.OrderRecordID,
		ExternalID:         d.ExternalID,
		CustomerEmail:      d.CustomerEmail,
		FulfillmentOrder:   d.FulfillmentOrder,
		Summary:            d.Summary,
		Fulfilled:          d.Fulfilled,
		FulfillmentOrderID: d.FulfillmentOrderID,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
		FulfilledAt:        d.FulfilledAt,
	}
}
