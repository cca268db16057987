package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"github.com/sundai-club/shop/internal/platform/textutil"
)

// Stripe rejects metadata beyond these bounds.
var stripeMetadataLimits = textutil.MapLimits{MaxKeyLen: 40, MaxValueLen: 500, MaxEntries: 50}

// StripeLogger defines the logging contract for Stripe provider operations.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeClients struct {
	sessions stripeSessionAPI
}

// StripeProviderConfig configures the StripeProvider.
type StripeProviderConfig struct {
	APIKey   string
	Timeout  time.Duration
	Backends *stripe.Backends
	Logger   StripeLogger
	Clock    func() time.Time
	Clients  *stripeClients
}

// StripeProvider implements the Provider interface using Stripe Checkout.
type StripeProvider struct {
	api    stripeClients
	clock  func() time.Time
	logger StripeLogger
}

// NewStripeProvider constructs a Stripe Provider using the given configuration.
func NewStripeProvider(cfg StripeProviderConfig) (*StripeProvider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.Clients == nil {
		return nil, ErrNotConfigured
	}

	var clients stripeClients
	if cfg.Clients != nil {
		clients = *cfg.Clients
	} else {
		backends := cfg.Backends
		if backends == nil && cfg.Timeout > 0 {
			backends = stripe.NewBackends(&http.Client{Timeout: cfg.Timeout})
		}
		sc := client.New(apiKey, backends)
		clients = stripeClients{sessions: sc.CheckoutSessions}
	}

	if clients.sessions == nil {
		return nil, errors.New("stripe: incomplete client configuration")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &StripeProvider{
		api: clients,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// CreateCheckoutSession creates a Stripe Checkout session in payment mode.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error) {
	if p == nil {
		return CheckoutSession{}, errors.New("stripe: provider is nil")
	}
	if len(req.Items) == 0 {
		return CheckoutSession{}, errors.New("stripe: at least one line item is required")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		PaymentMethodTypes: stripe.StringSlice([]string{
			string(stripe.PaymentMethodTypeCard),
		}),
	}

	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	if email := strings.TrimSpace(req.CustomerEmail); email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	if ref := strings.TrimSpace(req.ClientReferenceID); ref != "" {
		params.ClientReferenceID = stripe.String(ref)
	}
	metadata := textutil.NormalizeStringMap(req.Metadata, stripeMetadataLimits)
	if metadata != nil {
		params.Metadata = metadata
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		line := &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(max(item.Quantity, 1)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(defaultString(item.Currency, req.Currency))),
				UnitAmount: stripe.Int64(item.Amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		}
		if item.Description != "" {
			line.PriceData.ProductData.Description = stripe.String(textutil.Truncate(item.Description, 500))
		}
		if item.ImageURL != "" && strings.HasPrefix(item.ImageURL, "https://") {
			line.PriceData.ProductData.Images = stripe.StringSlice([]string{item.ImageURL})
		}
		if item.SKU != "" {
			line.PriceData.ProductData.Metadata = map[string]string{
				"sku": item.SKU,
			}
		}
		lineItems = append(lineItems, line)
	}
	params.LineItems = lineItems

	params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{}
	if metadata != nil {
		params.PaymentIntentData.Metadata = copyMetadata(metadata)
	}
	if ship := req.Shipping; ship != nil && strings.TrimSpace(ship.Line1) != "" {
		params.PaymentIntentData.Shipping = &stripe.ShippingDetailsParams{
			Name: stripe.String(ship.Name),
			Address: &stripe.AddressParams{
				Line1:      stripe.String(ship.Line1),
				City:       stripe.String(ship.City),
				PostalCode: stripe.String(ship.PostalCode),
				Country:    stripe.String(ship.Country),
			},
		}
		if ship.Line2 != "" {
			params.PaymentIntentData.Shipping.Address.Line2 = stripe.String(ship.Line2)
		}
		if ship.State != "" {
			params.PaymentIntentData.Shipping.Address.State = stripe.String(ship.State)
		}
		if ship.Phone != "" {
			params.PaymentIntentData.Shipping.Phone = stripe.String(ship.Phone)
		}
	}

	session, err := p.api.sessions.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	result := p.toCheckoutSession(session)
	p.logger(ctx, "payments.stripe.session.created", map[string]any{
		"sessionId":   result.ID,
		"currency":    result.Currency,
		"amountTotal": result.AmountTotal,
		"lineItems":   len(lineItems),
	})
	return result, nil
}

// RetrieveCheckoutSession fetches a Stripe Checkout session and normalises its payment status.
func (p *StripeProvider) RetrieveCheckoutSession(ctx context.Context, id string) (CheckoutSession, error) {
	if p == nil {
		return CheckoutSession{}, errors.New("stripe: provider is nil")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return CheckoutSession{}, errors.New("stripe: session id is required")
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")

	session, err := p.api.sessions.Get(id, params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("stripe: retrieve checkout session: %w", err)
	}
	result := p.toCheckoutSession(session)
	p.logger(ctx, "payments.stripe.session.retrieved", map[string]any{
		"sessionId": result.ID,
		"status":    string(result.Status),
	})
	return result, nil
}

func (p *StripeProvider) toCheckoutSession(session *stripe.CheckoutSession) CheckoutSession {
	if session == nil {
		return CheckoutSession{Provider: "stripe"}
	}

	intentID := ""
	if session.PaymentIntent != nil {
		intentID = session.PaymentIntent.ID
	}
	customerID := ""
	if session.Customer != nil {
		customerID = session.Customer.ID
	}
	email := session.CustomerEmail
	if email == "" && session.CustomerDetails != nil {
		email = session.CustomerDetails.Email
	}

	expiresAt := p.clock().Add(24 * time.Hour)
	if session.ExpiresAt != 0 {
		expiresAt = time.Unix(session.ExpiresAt, 0).UTC()
	}

	raw := map[string]any{}
	if data, err := json.Marshal(session); err == nil {
		_ = json.Unmarshal(data, &raw)
	} else {
		raw["session"] = session
	}

	return CheckoutSession{
		ID:            session.ID,
		Provider:      "stripe",
		RedirectURL:   session.URL,
		IntentID:      intentID,
		CustomerID:    customerID,
		CustomerEmail: email,
		Status:        stripeSessionStatus(session),
		AmountTotal:   session.AmountTotal,
		Currency:      strings.ToUpper(string(session.Currency)),
		Metadata:      session.Metadata,
		ExpiresAt:     expiresAt,
		Raw:           raw,
	}
}

func stripeSessionStatus(session *stripe.CheckoutSession) Status {
	switch session.PaymentStatus {
	case stripe.CheckoutSessionPaymentStatusPaid:
		return StatusPaid
	case stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		return StatusNoPaymentRequired
	}
	if session.Status == stripe.CheckoutSessionStatusExpired {
		return StatusExpired
	}
	return StatusPending
}

func copyMetadata(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
