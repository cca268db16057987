package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ResolvedEntry is a cart entry matched to a provider-addressable variant.
type ResolvedEntry struct {
	Index     int
	Entry     CartEntry
	Product   Product
	Variant   Variant
	UnitPrice decimal.Decimal
}

// Amount is the unrounded line total.
func (r ResolvedEntry) Amount() decimal.Decimal {
	return r.UnitPrice.Mul(decimal.NewFromInt(int64(r.Entry.Quantity)))
}

// ResolveVariant finds the variant a cart entry refers to: by sync variant id, then by variant id
// against either id of each variant, then by size label.
func ResolveVariant(product Product, entry CartEntry) (Variant, bool) {
	if entry.SyncVariantID > 0 {
		for _, v := range product.Variants {
			if v.SyncVariantID == entry.SyncVariantID {
				return v, true
			}
		}
	}
	if entry.VariantID > 0 {
		for _, v := range product.Variants {
			if v.ID == entry.VariantID || v.SyncVariantID == entry.VariantID {
				return v, true
			}
		}
	}
	size := strings.TrimSpace(entry.Size)
	if size != "" {
		for _, v := range product.Variants {
			if v.Size == size {
				return v, true
			}
		}
	}
	return Variant{}, false
}

// ResolveUnitPrice uses the captured price when it parses as a positive number, else the
// product price.
func ResolveUnitPrice(product Product, entry CartEntry) decimal.Decimal {
	if captured := strings.TrimSpace(entry.UnitPrice); captured != "" {
		if price, err := decimal.NewFromString(strings.TrimPrefix(captured, "$")); err == nil && price.IsPositive() {
			return price
		}
	}
	return decimal.NewFromFloat(product.Price)
}

// ResolveCart resolves every entry against the catalog. Entries that cannot be addressed in a
// provider order are returned in skipped and never fail the call.
func ResolveCart(products []Product, entries []CartEntry) ([]ResolvedEntry, []SkippedCartEntry) {
	byID := make(map[int64]Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	resolved := make([]ResolvedEntry, 0, len(entries))
	var skipped []SkippedCartEntry
	for idx, entry := range entries {
		skip := func(reason string) {
			skipped = append(skipped, SkippedCartEntry{
				Index:     idx,
				ProductID: entry.ProductID,
				Size:      entry.Size,
				Reason:    reason,
			})
		}
		if entry.Quantity <= 0 {
			skip("quantity must be positive")
			continue
		}
		product, ok := byID[entry.ProductID]
		if !ok {
			skip("product not found")
			continue
		}
		variant, ok := ResolveVariant(product, entry)
		if !ok {
			skip(fmt.Sprintf("no variant matches size %q", entry.Size))
			continue
		}
		if !variant.HasProviderReference() {
			skip("variant has no provider reference")
			continue
		}
		resolved = append(resolved, ResolvedEntry{
			Index:     idx,
			Entry:     entry,
			Product:   product,
			Variant:   variant,
			UnitPrice: ResolveUnitPrice(product, entry),
		})
	}
	return resolved, skipped
}
