package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the parent of every lookup failure.
	ErrNotFound = errors.New("not found")
	// ErrCatalogProductNotFound indicates the product id is not in the catalog.
	ErrCatalogProductNotFound = fmt.Errorf("catalog: product %w", ErrNotFound)
	// ErrCartItemNotFound indicates a cart index outside the cart.
	ErrCartItemNotFound = fmt.Errorf("cart: item %w", ErrNotFound)
	// ErrOrderNotFound indicates the provider has no such order.
	ErrOrderNotFound = fmt.Errorf("fulfillment: order %w", ErrNotFound)

	// ErrInvalidInput is the parent of every validation failure.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSizeNotAvailable indicates the requested size is not offered by the product.
	ErrSizeNotAvailable = fmt.Errorf("cart: size not available: %w", ErrInvalidInput)
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = fmt.Errorf("cart: quantity must be positive: %w", ErrInvalidInput)
	// ErrEmptyCart indicates the cart has no entries that resolve to provider items.
	ErrEmptyCart = fmt.Errorf("checkout: cart is empty: %w", ErrInvalidInput)
	// ErrInvalidRecipient indicates the shipping recipient failed validation.
	ErrInvalidRecipient = fmt.Errorf("checkout: invalid recipient: %w", ErrInvalidInput)
	// ErrNoPriceableItems indicates every computed line amount was zero or negative.
	ErrNoPriceableItems = fmt.Errorf("checkout: no priceable items: %w", ErrInvalidInput)

	// ErrUpstreamUnavailable indicates a provider call failed and no fallback applies.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrPaymentNotCompleted indicates the payment session is not paid.
	ErrPaymentNotCompleted = errors.New("checkout: payment not completed")
	// ErrMissingDesignFiles indicates the provider rejected the order for missing print files
	// after the customer was charged.
	ErrMissingDesignFiles = errors.New("checkout: product is missing design files")
	// ErrFulfillmentFailed indicates the provider rejected the paid order for another reason.
	ErrFulfillmentFailed = errors.New("checkout: fulfillment order failed")
	// ErrStripeNotConfigured indicates no payment processor is wired.
	ErrStripeNotConfigured = errors.New("checkout: payment processor is not configured")
	// ErrNoSuchPendingOrder indicates no pending order matches the payment session for this shopper.
	ErrNoSuchPendingOrder = errors.New("checkout: no pending order for session")
)

// upstreamError wraps a provider failure with the operation that failed.
func upstreamError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, op, err)
}
