package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	domain "github.com/sundai-club/shop/internal/domain"
	"github.com/sundai-club/shop/internal/printful"
)

const defaultCurrency = "USD"

var cent = decimal.New(1, -2)

// CostServiceDeps wires the dependencies required by the cost reconciler.
type CostServiceDeps struct {
	Provider         CostProvider
	Catalog          CatalogService
	TaxRate          float64
	FallbackShipping float64
	Currency         string
	Logger           func(ctx context.Context, event string, fields map[string]any)
}

type costService struct {
	provider         CostProvider
	catalog          CatalogService
	taxRate          decimal.Decimal
	fallbackShipping decimal.Decimal
	currency         string
	logger           func(ctx context.Context, event string, fields map[string]any)
}

var _ CostService = (*costService)(nil)

// NewCostService constructs the order cost reconciler.
func NewCostService(deps CostServiceDeps) (CostService, error) {
	if deps.Provider == nil {
		return nil, errors.New("cost service: provider is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("cost service: catalog is required")
	}
	if deps.TaxRate < 0 || deps.TaxRate >= 1 {
		return nil, errors.New("cost service: tax rate must be in [0, 1)")
	}
	if deps.FallbackShipping < 0 {
		return nil, errors.New("cost service: fallback shipping must not be negative")
	}

	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &costService{
		provider:         deps.Provider,
		catalog:          deps.Catalog,
		taxRate:          decimal.NewFromFloat(deps.TaxRate),
		fallbackShipping: decimal.NewFromFloat(deps.FallbackShipping),
		currency:         currency,
		logger:           logger,
	}, nil
}

// resolvedOrder is the provider-facing view of a cart.
type resolvedOrder struct {
	recipient printful.Recipient
	items     []printful.OrderItem
	lines     []LineItem
	subtotal  decimal.Decimal
	skipped   []SkippedCartEntry
}

func (s *costService) resolve(ctx context.Context, cart Cart, recipient Recipient) (resolvedOrder, error) {
	normalized, err := NormalizeRecipient(recipient)
	if err != nil {
		return resolvedOrder{}, err
	}
	resolved, skipped := ResolveCart(s.catalog.Products(ctx), cart.Entries)
	if len(resolved) == 0 {
		return resolvedOrder{}, ErrEmptyCart
	}

	order := resolvedOrder{
		recipient: providerRecipient(normalized),
		items:     make([]printful.OrderItem, 0, len(resolved)),
		lines:     make([]LineItem, 0, len(resolved)),
		skipped:   skipped,
	}
	for _, entry := range resolved {
		unit := entry.UnitPrice.Round(2)
		retail := printful.Amount{Value: unit, Valid: true}
		item := printful.OrderItem{
			Name:        entry.Product.Name,
			Quantity:    entry.Entry.Quantity,
			RetailPrice: &retail,
		}
		if entry.Variant.SyncVariantID > 0 {
			item.SyncVariantID = entry.Variant.SyncVariantID
		} else {
			item.VariantID = entry.Variant.ID
		}
		order.items = append(order.items, item)

		qty := decimal.NewFromInt(int64(entry.Entry.Quantity))
		order.subtotal = order.subtotal.Add(entry.Amount())
		image := entry.Variant.ImageURL
		if image == "" {
			image = entry.Product.ImageURL
		}
		order.lines = append(order.lines, LineItem{
			ProductID:     entry.Product.ID,
			VariantID:     entry.Variant.ID,
			SyncVariantID: entry.Variant.SyncVariantID,
			Name:          entry.Product.Name,
			Size:          entry.Variant.Size,
			ImageURL:      image,
			Quantity:      entry.Entry.Quantity,
			UnitPrice:     toFloat(unit),
			Total:         toFloat(unit.Mul(qty)),
		})
	}
	return order, nil
}

// Compute builds the order cost breakdown. Provider shipping and estimate failures fall back to
// local values and never fail the call.
func (s *costService) Compute(ctx context.Context, cart Cart, recipient Recipient) (OrderDetails, error) {
	order, err := s.resolve(ctx, cart, recipient)
	if err != nil {
		return OrderDetails{}, err
	}

	subtotal := order.subtotal
	breakdown := CostBreakdown{
		Currency:   s.currency,
		CostSource: domain.CostSourceEstimated,
		TaxNote:    domain.TaxNoteEstimated,
	}

	shipping := s.fallbackShipping
	shippingMethod := ""
	rateFound := false
	rates, err := s.provider.ShippingRates(ctx, printful.ShippingRequest{
		Recipient: order.recipient,
		Items:     order.items,
		Currency:  s.currency,
	})
	switch {
	case err != nil:
		s.logger(ctx, "costs.shipping_rates_failed", map[string]any{"error": err.Error()})
		breakdown.ShippingNote = domain.ShippingNoteFallback
	case len(rates) == 0 || !rates[0].Rate.Valid:
		breakdown.ShippingNote = domain.ShippingNoteEstimated
	default:
		shipping = rates[0].Rate.Value
		shippingMethod = rates[0].ID
		rateFound = true
		breakdown.ShippingNote = rateNote(rates[0])
	}

	tax := subtotal.Mul(s.taxRate)

	details := OrderDetails{
		Items:          order.items,
		Recipient:      order.recipient,
		ShippingMethod: shippingMethod,
		Skipped:        order.skipped,
		Partial:        len(order.skipped) > 0,
	}

	estimate, err := s.provider.EstimateCosts(ctx, printful.OrderRequest{
		Shipping:  shippingMethod,
		Recipient: order.recipient,
		Items:     order.items,
		RetailCosts: &printful.RetailCosts{
			Currency: s.currency,
			Subtotal: printful.Amount{Value: subtotal.Round(2), Valid: true},
			Shipping: printful.Amount{Value: shipping.Round(2), Valid: true},
			Tax:      printful.Amount{Value: tax.Round(2), Valid: true},
			Total:    printful.Amount{Value: subtotal.Add(shipping).Add(tax).Round(2), Valid: true},
		},
	})
	if err != nil {
		s.logger(ctx, "costs.estimate_failed", map[string]any{"error": err.Error()})
	}

	lines := order.lines
	if costs, ok := estimate.Authoritative(); err == nil && ok {
		subtotal = pick(costs.Subtotal, subtotal)
		shipping = pick(costs.Shipping, shipping)
		tax = pick(costs.Tax, tax)
		breakdown.TaxNote = domain.TaxNoteProvider
		if !rateFound {
			breakdown.ShippingNote = domain.ShippingNoteProviderRate
		}
		breakdown.CostSource = domain.CostSourcePrintful
		if currency := strings.ToUpper(strings.TrimSpace(costs.Currency)); currency != "" {
			breakdown.Currency = currency
		}
		lines = ReallocateLines(order.lines, subtotal.Round(2))
		if estimate.Costs != nil {
			details.ProviderCosts, _ = json.Marshal(estimate.Costs)
		}
		if estimate.RetailCosts != nil {
			details.ProviderRetailCost, _ = json.Marshal(estimate.RetailCosts)
		}
		if costs.Total.Valid {
			expected := subtotal.Round(2).Add(shipping.Round(2)).Add(tax.Round(2))
			if costs.Total.Value.Round(2).Sub(expected).Abs().GreaterThanOrEqual(cent) {
				s.logger(ctx, "costs.total_mismatch", map[string]any{
					"providerTotal": costs.Total.Value.StringFixed(2),
					"computedTotal": expected.StringFixed(2),
				})
			}
		}
	}

	breakdown.Subtotal = toFloat(subtotal.Round(2))
	breakdown.Shipping = toFloat(shipping.Round(2))
	breakdown.Tax = toFloat(tax.Round(2))
	breakdown.Total = toFloat(subtotal.Round(2).Add(shipping.Round(2)).Add(tax.Round(2)))
	breakdown.Lines = lines
	details.Breakdown = breakdown

	if details.Partial {
		s.logger(ctx, "costs.partial_cart", map[string]any{"skipped": len(order.skipped)})
	}
	return details, nil
}

// ShippingRates quotes shipping for the resolvable part of the cart.
func (s *costService) ShippingRates(ctx context.Context, cart Cart, recipient Recipient) ([]ShippingOption, error) {
	order, err := s.resolve(ctx, cart, recipient)
	if err != nil {
		return nil, err
	}
	rates, err := s.provider.ShippingRates(ctx, printful.ShippingRequest{
		Recipient: order.recipient,
		Items:     order.items,
		Currency:  s.currency,
	})
	if err != nil {
		return nil, upstreamError("shipping_rates", err)
	}
	options := make([]ShippingOption, 0, len(rates))
	for _, rate := range rates {
		currency := strings.ToUpper(strings.TrimSpace(rate.Currency))
		if currency == "" {
			currency = s.currency
		}
		options = append(options, ShippingOption{
			ID:       rate.ID,
			Name:     rate.Name,
			Rate:     toFloat(rate.Rate.Value.Round(2)),
			Currency: currency,
			MinDays:  rate.MinDeliveryDays,
			MaxDays:  rate.MaxDeliveryDays,
		})
	}
	return options, nil
}

// ReallocateLines rescales line unit prices so the lines sum to desired. Prices scale by
// desired/current, or split evenly when every line was free. A remainder of a cent or more is
// applied to the last line's unit price. Each line's Total is exact and the totals always sum to
// desired; the last line's UnitPrice × Quantity may miss its Total by less than a cent per unit
// when the remainder does not divide by its quantity.
func ReallocateLines(lines []LineItem, desired decimal.Decimal) []LineItem {
	if len(lines) == 0 {
		return nil
	}
	out := make([]LineItem, len(lines))
	copy(out, lines)

	current := decimal.Zero
	totalQty := int64(0)
	for _, line := range out {
		current = current.Add(decimal.NewFromFloat(line.UnitPrice).Mul(decimal.NewFromInt(int64(line.Quantity))))
		totalQty += int64(line.Quantity)
	}

	units := make([]decimal.Decimal, len(out))
	switch {
	case current.IsPositive():
		factor := desired.Div(current)
		for i, line := range out {
			units[i] = decimal.NewFromFloat(line.UnitPrice).Mul(factor).Round(2)
		}
	case totalQty > 0:
		perUnit := desired.Div(decimal.NewFromInt(totalQty)).Round(2)
		for i := range out {
			units[i] = perUnit
		}
	default:
		return out
	}

	sum := decimal.Zero
	for i, line := range out {
		sum = sum.Add(units[i].Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	last := len(out) - 1
	lastQty := decimal.NewFromInt(int64(out[last].Quantity))
	diff := desired.Sub(sum)
	if diff.Abs().GreaterThanOrEqual(cent) && out[last].Quantity > 0 {
		units[last] = units[last].Add(diff.Div(lastQty)).Round(2)
	}

	others := decimal.Zero
	for i := range out {
		out[i].UnitPrice = toFloat(units[i])
		if i == last {
			continue
		}
		total := units[i].Mul(decimal.NewFromInt(int64(out[i].Quantity)))
		out[i].Total = toFloat(total)
		others = others.Add(total)
	}
	out[last].Total = toFloat(desired.Sub(others))
	return out
}

func pick(amount printful.Amount, fallback decimal.Decimal) decimal.Decimal {
	if amount.Valid {
		return amount.Value
	}
	return fallback
}

func rateNote(rate printful.ShippingRate) string {
	name := strings.TrimSpace(rate.Name)
	if name == "" {
		name = strings.TrimSpace(rate.ID)
	}
	if name == "" {
		return domain.ShippingNoteProviderRate
	}
	return name + " via Printful"
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
