package payments

import (
	"context"
	"errors"
	"time"
)

// Status enumerates the normalised checkout payment states.
type Status string

const (
	// StatusPending indicates the customer has not finished paying.
	StatusPending Status = "pending"
	// StatusPaid indicates the processor reports the session as paid.
	StatusPaid Status = "paid"
	// StatusNoPaymentRequired indicates a zero-amount session that needs no capture.
	StatusNoPaymentRequired Status = "no_payment_required"
	// StatusExpired indicates the session expired before payment.
	StatusExpired Status = "expired"
)

// ErrNotConfigured is returned when no processor credentials are available.
var ErrNotConfigured = errors.New("payments: payment processor is not configured")

// CheckoutLineItem describes a single line item to include in a checkout session. Amount is the
// unit amount in the smallest currency unit.
type CheckoutLineItem struct {
	Name        string
	Description string
	SKU         string
	ImageURL    string
	Quantity    int64
	Amount      int64
	Currency    string
}

// ShippingAddress is forwarded to the processor so receipts carry the destination.
type ShippingAddress struct {
	Name       string
	Phone      string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// CheckoutSessionRequest captures the payload required to create a checkout session.
type CheckoutSessionRequest struct {
	Currency          string
	CustomerEmail     string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
	Metadata          map[string]string
	IdempotencyKey    string
	Items             []CheckoutLineItem
	Shipping          *ShippingAddress
}

// CheckoutSession represents the session returned to the client.
type CheckoutSession struct {
	ID            string
	Provider      string
	RedirectURL   string
	IntentID      string
	CustomerID    string
	CustomerEmail string
	Status        Status
	AmountTotal   int64
	Currency      string
	Metadata      map[string]string
	ExpiresAt     time.Time
	Raw           map[string]any
}

// IsPaid reports whether the processor considers the session settled.
func (s CheckoutSession) IsPaid() bool {
	return s.Status == StatusPaid
}

// Provider defines the contract for payment processor adapters.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
	RetrieveCheckoutSession(ctx context.Context, id string) (CheckoutSession, error)
}
