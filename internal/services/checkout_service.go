package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	domain "github.com/sundai-club/shop/internal/domain"
	"github.com/sundai-club/shop/internal/payments"
	"github.com/sundai-club/shop/internal/printful"
	"github.com/sundai-club/shop/internal/repositories"
)

const externalIDPrefix = "sm_"

// Provider messages that mean the product has no printable artwork attached.
var missingDesignMarkers = []string{
	"print file",
	"missing file",
	"design file",
	"no files",
	"printfile",
}

// CheckoutServiceDeps wires the dependencies required by the checkout orchestrator. A nil
// Payments provider makes every checkout fail with ErrStripeNotConfigured.
type CheckoutServiceDeps struct {
	Carts         CartService
	Costs         CostService
	Payments      payments.Provider
	Fulfillment   OrderProvider
	PendingOrders repositories.PendingOrderRepository
	OrderLog      OrderLogService
	Events        OrderEventPublisher
	SuccessURL    string
	CancelURL     string
	AutoConfirm   bool
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        func(ctx context.Context, event string, fields map[string]any)
}

type checkoutService struct {
	carts       CartService
	costs       CostService
	payments    payments.Provider
	fulfillment OrderProvider
	pending     repositories.PendingOrderRepository
	orderLog    OrderLogService
	events      OrderEventPublisher
	successURL  string
	cancelURL   string
	autoConfirm bool
	now         func() time.Time
	newID       func() string
	logger      func(ctx context.Context, event string, fields map[string]any)
	locks       *keyedMutex
}

var _ CheckoutService = (*checkoutService)(nil)

// NewCheckoutService constructs the checkout orchestrator validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Carts == nil {
		return nil, errors.New("checkout service: cart service is required")
	}
	if deps.Costs == nil {
		return nil, errors.New("checkout service: cost service is required")
	}
	if deps.Fulfillment == nil {
		return nil, errors.New("checkout service: fulfillment provider is required")
	}
	if deps.PendingOrders == nil {
		return nil, errors.New("checkout service: pending order repository is required")
	}

	orderLog := deps.OrderLog
	if orderLog == nil {
		orderLog = NewOrderLogService(OrderLogServiceDeps{})
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &checkoutService{
		carts:       deps.Carts,
		costs:       deps.Costs,
		payments:    deps.Payments,
		fulfillment: deps.Fulfillment,
		pending:     deps.PendingOrders,
		orderLog:    orderLog,
		events:      deps.Events,
		successURL:  strings.TrimSpace(deps.SuccessURL),
		cancelURL:   strings.TrimSpace(deps.CancelURL),
		autoConfirm: deps.AutoConfirm,
		now: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
		locks:  newKeyedMutex(),
	}, nil
}

// CreateSession reconciles the cart, opens a payment session and stores the pending order.
func (s *checkoutService) CreateSession(ctx context.Context, cmd CreateCheckoutCommand) (CheckoutResult, error) {
	if s.payments == nil {
		return CheckoutResult{}, ErrStripeNotConfigured
	}
	cart, err := s.carts.Cart(ctx, cmd.SessionID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if cart.IsEmpty() {
		return CheckoutResult{}, ErrEmptyCart
	}

	details, err := s.costs.Compute(ctx, cart, cmd.Recipient)
	if err != nil {
		return CheckoutResult{}, err
	}
	breakdown := details.Breakdown

	items := paymentLineItems(breakdown)
	if len(items) == 0 {
		return CheckoutResult{}, ErrNoPriceableItems
	}
	if cents := toCents(breakdown.Shipping); cents > 0 {
		items = append(items, payments.CheckoutLineItem{
			Name:        "Shipping",
			Description: breakdown.ShippingNote,
			Quantity:    1,
			Amount:      cents,
		})
	}
	if cents := toCents(breakdown.Tax); cents > 0 {
		items = append(items, payments.CheckoutLineItem{
			Name:        "Tax",
			Description: breakdown.TaxNote,
			Quantity:    1,
			Amount:      cents,
		})
	}

	externalID := externalIDPrefix + s.newID()
	order := printful.OrderRequest{
		ExternalID: externalID,
		Shipping:   details.ShippingMethod,
		Recipient:  details.Recipient,
		Items:      details.Items,
		RetailCosts: &printful.RetailCosts{
			Currency: breakdown.Currency,
			Subtotal: printful.NewAmount(breakdown.Subtotal),
			Shipping: printful.NewAmount(breakdown.Shipping),
			Tax:      printful.NewAmount(breakdown.Tax),
			Total:    printful.NewAmount(breakdown.Total),
		},
	}
	payload, err := json.Marshal(order)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("checkout: encode fulfillment order: %w", err)
	}

	successURL := firstNonEmpty(cmd.SuccessURL, s.successURL)
	cancelURL := firstNonEmpty(cmd.CancelURL, s.cancelURL)
	if successURL == "" || cancelURL == "" {
		return CheckoutResult{}, fmt.Errorf("checkout: success and cancel urls are required: %w", ErrInvalidInput)
	}

	session, err := s.payments.CreateCheckoutSession(ctx, payments.CheckoutSessionRequest{
		Currency:          breakdown.Currency,
		CustomerEmail:     details.Recipient.Email,
		ClientReferenceID: externalID,
		SuccessURL:        successURL,
		CancelURL:         cancelURL,
		IdempotencyKey:    strings.TrimSpace(cmd.IdempotencyKey),
		Metadata: map[string]string{
			"external_id": externalID,
			"cost_source": breakdown.CostSource,
		},
		Items:    items,
		Shipping: shippingAddress(details.Recipient),
	})
	if err != nil {
		s.logger(ctx, "checkout.session_failed", map[string]any{"error": err.Error()})
		return CheckoutResult{}, upstreamError("create_checkout_session", err)
	}

	now := s.now()
	recordID := s.orderLog.Record(ctx, orderRecord(cmd.SessionID, session.ID, order, details))
	pending := PendingCheckoutOrder{
		ID:               externalID,
		PaymentSessionID: session.ID,
		AppSessionID:     cart.SessionID,
		OrderRecordID:    recordID,
		ExternalID:       externalID,
		CustomerEmail:    details.Recipient.Email,
		FulfillmentOrder: payload,
		Summary:          breakdown,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.pending.Create(ctx, pending); err != nil {
		s.logger(ctx, "checkout.pending_persist_failed", map[string]any{
			"paymentSessionId": session.ID,
			"error":            err.Error(),
		})
		return CheckoutResult{}, fmt.Errorf("checkout: persist pending order: %w", err)
	}

	s.logger(ctx, "checkout.session_created", map[string]any{
		"paymentSessionId": session.ID,
		"externalId":       externalID,
		"total":            breakdown.Total,
		"costSource":       breakdown.CostSource,
		"partial":          details.Partial,
	})

	return CheckoutResult{
		PaymentSessionID: session.ID,
		RedirectURL:      session.RedirectURL,
		ExpiresAt:        session.ExpiresAt,
		Summary:          breakdown,
		Partial:          details.Partial,
		Skipped:          details.Skipped,
	}, nil
}

// Complete verifies payment and submits the stored order for fulfillment. A completed pending
// order is returned as-is without contacting any provider. Calls for the same payment session
// are serialised.
func (s *checkoutService) Complete(ctx context.Context, cmd CompleteCheckoutCommand) (CompletionResult, error) {
	paymentSessionID := strings.TrimSpace(cmd.PaymentSessionID)
	if paymentSessionID == "" {
		return CompletionResult{}, ErrNoSuchPendingOrder
	}
	unlock := s.locks.Lock(paymentSessionID)
	defer unlock()

	pending, err := s.pending.Get(ctx, paymentSessionID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return CompletionResult{}, ErrNoSuchPendingOrder
		}
		return CompletionResult{}, fmt.Errorf("checkout: load pending order: %w", err)
	}
	if pending.AppSessionID != strings.TrimSpace(cmd.SessionID) {
		return CompletionResult{}, ErrNoSuchPendingOrder
	}
	if pending.Fulfilled {
		return completionResult(pending, true), nil
	}

	if s.payments == nil {
		return CompletionResult{}, ErrStripeNotConfigured
	}
	session, err := s.payments.RetrieveCheckoutSession(ctx, paymentSessionID)
	if err != nil {
		return CompletionResult{}, upstreamError("retrieve_checkout_session", err)
	}
	if !session.IsPaid() {
		return CompletionResult{}, ErrPaymentNotCompleted
	}

	paid := domain.PaymentStatusPaid
	s.orderLog.Update(ctx, pending.OrderRecordID, OrderRecordUpdate{
		PaymentStatus:         &paid,
		StripePaymentIntentID: optionalString(session.IntentID),
		StripeCustomerID:      optionalString(session.CustomerID),
	})

	var order printful.OrderRequest
	if err := json.Unmarshal(pending.FulfillmentOrder, &order); err != nil {
		return CompletionResult{}, fmt.Errorf("checkout: decode stored fulfillment order: %w", err)
	}

	created, err := s.fulfillment.CreateOrder(ctx, order, s.autoConfirm)
	if err != nil {
		return CompletionResult{}, s.fulfillmentFailure(ctx, pending, err)
	}

	if err := s.carts.Clear(ctx, pending.AppSessionID); err != nil {
		s.logger(ctx, "checkout.cart_clear_failed", map[string]any{"error": err.Error()})
	}

	updated, err := s.pending.MarkFulfilled(ctx, paymentSessionID, created.ID, s.now())
	if err != nil {
		s.logger(ctx, "checkout.mark_fulfilled_failed", map[string]any{
			"paymentSessionId":   paymentSessionID,
			"fulfillmentOrderId": created.ID,
			"error":              err.Error(),
		})
		updated = pending
		updated.Fulfilled = true
		updated.FulfillmentOrderID = created.ID
	}

	submitted := domain.OrderStatusSubmitted
	orderID := created.ID
	s.orderLog.Update(ctx, pending.OrderRecordID, OrderRecordUpdate{
		PrintfulOrderID:   &orderID,
		OrderStatus:       &submitted,
		PrintfulOrderData: rawToMap(created.Raw),
	})
	s.publish(ctx, OrderEvent{
		Type:               OrderEventFulfilled,
		PaymentSessionID:   paymentSessionID,
		AppSessionID:       pending.AppSessionID,
		OrderRecordID:      pending.OrderRecordID,
		FulfillmentOrderID: created.ID,
		Total:              pending.Summary.Total,
		Currency:           pending.Summary.Currency,
		OccurredAt:         s.now(),
	})
	s.logger(ctx, "checkout.completed", map[string]any{
		"paymentSessionId":   paymentSessionID,
		"fulfillmentOrderId": created.ID,
	})
	return completionResult(updated, false), nil
}

func (s *checkoutService) fulfillmentFailure(ctx context.Context, pending PendingCheckoutOrder, err error) error {
	message := printful.ErrorMessage(err)
	sentinel := ErrFulfillmentFailed
	if mentionsMissingDesign(message) {
		sentinel = ErrMissingDesignFiles
	}
	s.logger(ctx, "checkout.fulfillment_failed", map[string]any{
		"paymentSessionId": pending.PaymentSessionID,
		"missingDesign":    errors.Is(sentinel, ErrMissingDesignFiles),
		"error":            err.Error(),
	})

	failed := domain.OrderStatusFulfillmentFailed
	s.orderLog.Update(ctx, pending.OrderRecordID, OrderRecordUpdate{
		OrderStatus:  &failed,
		ErrorMessage: &message,
	})
	s.publish(ctx, OrderEvent{
		Type:             OrderEventFailed,
		PaymentSessionID: pending.PaymentSessionID,
		AppSessionID:     pending.AppSessionID,
		OrderRecordID:    pending.OrderRecordID,
		Total:            pending.Summary.Total,
		Currency:         pending.Summary.Currency,
		Error:            message,
		OccurredAt:       s.now(),
	})
	return fmt.Errorf("%w: %s", sentinel, message)
}

func (s *checkoutService) publish(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "checkout.event_publish_failed", map[string]any{
			"type":  event.Type,
			"error": err.Error(),
		})
	}
}

func completionResult(pending PendingCheckoutOrder, already bool) CompletionResult {
	return CompletionResult{
		PaymentSessionID:   pending.PaymentSessionID,
		FulfillmentOrderID: pending.FulfillmentOrderID,
		Summary:            pending.Summary,
		AlreadyFulfilled:   already,
	}
}

// paymentLineItems builds one payment line per reallocated line with a positive amount. Lines
// whose unit price cannot reproduce their total are charged as a single unit of the total.
func paymentLineItems(breakdown CostBreakdown) []payments.CheckoutLineItem {
	items := make([]payments.CheckoutLineItem, 0, len(breakdown.Lines)+2)
	for _, line := range breakdown.Lines {
		name := line.Name
		if line.Size != "" && line.Size != domain.DefaultSizeLabel {
			name = fmt.Sprintf("%s (%s)", line.Name, line.Size)
		}
		item := payments.CheckoutLineItem{
			Name:     name,
			SKU:      lineSKU(line),
			ImageURL: line.ImageURL,
			Quantity: int64(line.Quantity),
			Amount:   toCents(line.UnitPrice),
		}
		if !line.IsExact() {
			item.Name = fmt.Sprintf("%s x %d", name, line.Quantity)
			item.Quantity = 1
			item.Amount = toCents(line.Total)
		}
		if item.Amount <= 0 || item.Quantity <= 0 {
			continue
		}
		items = append(items, item)
	}
	return items
}

func lineSKU(line LineItem) string {
	if line.SyncVariantID > 0 {
		return fmt.Sprintf("sync-%d", line.SyncVariantID)
	}
	if line.VariantID > 0 {
		return fmt.Sprintf("variant-%d", line.VariantID)
	}
	return ""
}

func shippingAddress(r printful.Recipient) *payments.ShippingAddress {
	return &payments.ShippingAddress{
		Name:       r.Name,
		Phone:      r.Phone,
		Line1:      r.Address1,
		Line2:      r.Address2,
		City:       r.City,
		State:      r.StateCode,
		PostalCode: r.Zip,
		Country:    r.CountryCode,
	}
}

func orderRecord(appSessionID, paymentSessionID string, order printful.OrderRequest, details OrderDetails) OrderRecord {
	breakdown := details.Breakdown
	items := make([]map[string]any, 0, len(breakdown.Lines))
	for _, line := range breakdown.Lines {
		items = append(items, map[string]any{
			"product_id":      line.ProductID,
			"variant_id":      line.VariantID,
			"sync_variant_id": line.SyncVariantID,
			"name":            line.Name,
			"size":            line.Size,
			"quantity":        line.Quantity,
			"unit_price":      line.UnitPrice,
			"total":           line.Total,
		})
	}
	recipient := details.Recipient
	return OrderRecord{
		StripeCheckoutSessionID: paymentSessionID,
		AppSessionID:            appSessionID,
		CustomerName:            recipient.Name,
		CustomerEmail:           recipient.Email,
		CustomerPhone:           recipient.Phone,
		ShippingAddress: map[string]any{
			"address1":     recipient.Address1,
			"address2":     recipient.Address2,
			"city":         recipient.City,
			"state_code":   recipient.StateCode,
			"country_code": recipient.CountryCode,
			"zip":          recipient.Zip,
		},
		OrderStatus:              domain.OrderStatusPending,
		PaymentStatus:            domain.PaymentStatusPending,
		Currency:                 breakdown.Currency,
		Subtotal:                 breakdown.Subtotal,
		ShippingCost:             breakdown.Shipping,
		TaxAmount:                breakdown.Tax,
		TotalAmount:              breakdown.Total,
		Items:                    items,
		PrintfulOrderData:        structToMap(order),
		PrintfulCostData:         rawToMap(details.ProviderCosts),
		PrintfulRetailCosts:      rawToMap(details.ProviderRetailCost),
		PrintfulShippingMethodID: details.ShippingMethod,
		ShippingNote:             breakdown.ShippingNote,
		TaxNote:                  breakdown.TaxNote,
		CostSource:               breakdown.CostSource,
		Metadata: map[string]any{
			"external_id": order.ExternalID,
			"partial":     details.Partial,
			"skipped":     len(details.Skipped),
		},
	}
}

func mentionsMissingDesign(message string) bool {
	lower := strings.ToLower(message)
	for _, marker := range missingDesignMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func toCents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Shift(2).Round(0).IntPart()
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func rawToMap(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func structToMap(value any) map[string]any {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	return rawToMap(raw)
}
