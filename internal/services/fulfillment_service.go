package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/sundai-club/shop/internal/printful"
)

// FulfillmentServiceDeps wires the provider passthrough service.
type FulfillmentServiceDeps struct {
	Carts       CartService
	Costs       CostService
	Orders      OrderProvider
	Store       StoreProvider
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type fulfillmentService struct {
	carts  CartService
	costs  CostService
	orders OrderProvider
	store  StoreProvider
	newID  func() string
	logger func(ctx context.Context, event string, fields map[string]any)
}

var _ FulfillmentService = (*fulfillmentService)(nil)

// NewFulfillmentService constructs the passthrough service for provider operations.
func NewFulfillmentService(deps FulfillmentServiceDeps) (FulfillmentService, error) {
	if deps.Carts == nil {
		return nil, errors.New("fulfillment service: cart service is required")
	}
	if deps.Costs == nil {
		return nil, errors.New("fulfillment service: cost service is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("fulfillment service: order provider is required")
	}
	if deps.Store == nil {
		return nil, errors.New("fulfillment service: store provider is required")
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &fulfillmentService{
		carts:  deps.Carts,
		costs:  deps.Costs,
		orders: deps.Orders,
		store:  deps.Store,
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *fulfillmentService) ShippingEstimate(ctx context.Context, sessionID string, recipient Recipient) ([]ShippingOption, error) {
	cart, err := s.carts.Cart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}
	return s.costs.ShippingRates(ctx, cart, recipient)
}

func (s *fulfillmentService) Countries(ctx context.Context) ([]printful.Country, error) {
	countries, err := s.store.Countries(ctx)
	if err != nil {
		return nil, upstreamError("countries", err)
	}
	return countries, nil
}

func (s *fulfillmentService) StoreInfo(ctx context.Context) (printful.Store, error) {
	store, err := s.store.StoreInfo(ctx)
	if err != nil {
		return printful.Store{}, upstreamError("store_info", err)
	}
	return store, nil
}

// CreateOrder submits the session cart straight to the provider without payment, carrying the
// reconciled retail costs.
func (s *fulfillmentService) CreateOrder(ctx context.Context, cmd CreateFulfillmentOrderCommand) (FulfillmentOrder, error) {
	cart, err := s.carts.Cart(ctx, cmd.SessionID)
	if err != nil {
		return FulfillmentOrder{}, err
	}
	if cart.IsEmpty() {
		return FulfillmentOrder{}, ErrEmptyCart
	}
	details, err := s.costs.Compute(ctx, cart, cmd.Recipient)
	if err != nil {
		return FulfillmentOrder{}, err
	}
	breakdown := details.Breakdown

	req := printful.OrderRequest{
		ExternalID: externalIDPrefix + s.newID(),
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
	order, err := s.orders.CreateOrder(ctx, req, cmd.Confirm)
	if err != nil {
		message := printful.ErrorMessage(err)
		s.logger(ctx, "fulfillment.create_failed", map[string]any{"error": err.Error()})
		if mentionsMissingDesign(message) {
			return FulfillmentOrder{}, fmt.Errorf("%w: %s", ErrMissingDesignFiles, message)
		}
		return FulfillmentOrder{}, fmt.Errorf("%w: %s", ErrFulfillmentFailed, message)
	}
	s.logger(ctx, "fulfillment.order_created", map[string]any{
		"fulfillmentOrderId": order.ID,
		"confirmed":          cmd.Confirm,
		"partial":            details.Partial,
	})
	return FulfillmentOrder{Order: order, Shipments: order.Shipments, Summary: &breakdown}, nil
}

func (s *fulfillmentService) ConfirmOrder(ctx context.Context, orderID int64) (FulfillmentOrder, error) {
	if orderID <= 0 {
		return FulfillmentOrder{}, fmt.Errorf("fulfillment: order id must be positive: %w", ErrInvalidInput)
	}
	order, err := s.orders.ConfirmOrder(ctx, orderID)
	if err != nil {
		return FulfillmentOrder{}, s.orderError("confirm_order", err)
	}
	return FulfillmentOrder{Order: order, Shipments: order.Shipments}, nil
}

// OrderStatus returns the provider order with its shipments. A shipment lookup failure keeps the
// shipments embedded in the order.
func (s *fulfillmentService) OrderStatus(ctx context.Context, orderID int64) (FulfillmentOrder, error) {
	if orderID <= 0 {
		return FulfillmentOrder{}, fmt.Errorf("fulfillment: order id must be positive: %w", ErrInvalidInput)
	}
	order, err := s.orders.Order(ctx, orderID)
	if err != nil {
		return FulfillmentOrder{}, s.orderError("order_status", err)
	}
	shipments, err := s.orders.OrderShipments(ctx, orderID)
	if err != nil {
		s.logger(ctx, "fulfillment.shipments_failed", map[string]any{
			"fulfillmentOrderId": orderID,
			"error":              err.Error(),
		})
		shipments = order.Shipments
	}
	if shipments == nil {
		shipments = []printful.Shipment{}
	}
	return FulfillmentOrder{Order: order, Shipments: shipments}, nil
}

func (s *fulfillmentService) orderError(op string, err error) error {
	if printful.IsNotFound(err) {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, strings.TrimSpace(printful.ErrorMessage(err)))
	}
	return upstreamError(op, err)
}
