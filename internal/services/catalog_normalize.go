package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	domain "github.com/sundai-club/shop/internal/domain"
	"github.com/sundai-club/shop/internal/printful"
)

const (
	categoryApparel     = "apparel"
	categoryAccessories = "accessories"
)

var (
	descriptionPolicy = bluemonday.StrictPolicy()
	hundred           = decimal.NewFromInt(100)
)

// RawCatalogEntry pairs a listed provider product with the variants fetched for it.
type RawCatalogEntry struct {
	Product  printful.Product
	Detail   *printful.Product
	Variants []printful.Variant
}

// NormalizeCatalog converts raw provider products into catalog products. Entries that cannot be
// converted are returned in skipped rather than failing the batch.
func NormalizeCatalog(entries []RawCatalogEntry) ([]Product, []SkippedProduct) {
	products := make([]Product, 0, len(entries))
	var skipped []SkippedProduct
	for _, entry := range entries {
		product, err := NormalizeProduct(entry)
		if err != nil {
			skipped = append(skipped, SkippedProduct{
				ID:     entry.Product.ID,
				Name:   entry.Product.DisplayName(),
				Reason: err.Error(),
			})
			continue
		}
		products = append(products, product)
	}
	return products, skipped
}

// NormalizeProduct converts a single raw provider product.
func NormalizeProduct(entry RawCatalogEntry) (Product, error) {
	raw := entry.Product
	if raw.ID <= 0 {
		return Product{}, errors.New("product id is missing")
	}
	name := raw.DisplayName()
	if name == "" && entry.Detail != nil {
		name = entry.Detail.DisplayName()
	}
	if name == "" {
		return Product{}, fmt.Errorf("product %d has no name", raw.ID)
	}

	variants := make([]Variant, 0, len(entry.Variants))
	sizes := make([]string, 0, len(entry.Variants))
	seenSizes := make(map[string]struct{}, len(entry.Variants))
	inStock := false
	var minPrice, maxPrice decimal.Decimal
	priced := false

	for _, rv := range entry.Variants {
		size := variantSize(rv)
		if _, ok := seenSizes[size]; !ok {
			seenSizes[size] = struct{}{}
			sizes = append(sizes, size)
		}

		available := variantAvailable(rv)
		if available {
			inStock = true
		}

		price, ok := variantPrice(rv)
		if ok && price.IsPositive() {
			if !priced || price.LessThan(minPrice) {
				minPrice = price
			}
			if !priced || price.GreaterThan(maxPrice) {
				maxPrice = price
			}
			priced = true
		}

		retail, _ := price.Round(2).Float64()
		variants = append(variants, Variant{
			ID:            rv.CatalogVariantID(),
			SyncVariantID: rv.SyncVariantID(),
			Name:          strings.TrimSpace(rv.Name),
			Size:          size,
			RetailPrice:   retail,
			Currency:      strings.ToUpper(strings.TrimSpace(rv.Currency)),
			Available:     available,
			ImageURL:      variantImage(rv),
		})
	}
	if len(sizes) == 0 {
		sizes = append(sizes, domain.DefaultSizeLabel)
	}

	product := Product{
		ID:          raw.ID,
		ExternalID:  strings.TrimSpace(raw.ExternalID),
		Name:        name,
		Description: sanitizeDescription(raw, entry.Detail),
		Category:    inferCategory(sizes),
		ImageURL:    selectImage(raw, entry.Detail, entry.Variants),
		Sizes:       sizes,
		InStock:     inStock,
		Variants:    variants,
	}

	if priced {
		product.Price, _ = minPrice.Round(2).Float64()
		if !minPrice.Equal(maxPrice) {
			label := fmt.Sprintf("$%s - $%s", minPrice.StringFixed(2), maxPrice.StringFixed(2))
			product.PriceRange = &label
		}
	}
	return product, nil
}

// variantSize prefers the explicit size, then the last " / " segment of the name, then the
// whole name. Only an unnamed variant is "One Size".
func variantSize(v printful.Variant) string {
	if size := strings.TrimSpace(v.Size); size != "" {
		return size
	}
	name := strings.TrimSpace(v.Name)
	if idx := strings.LastIndex(name, " / "); idx >= 0 {
		if size := strings.TrimSpace(name[idx+3:]); size != "" {
			return size
		}
	}
	if name != "" {
		return name
	}
	return domain.DefaultSizeLabel
}

// variantAvailable reads in_stock, then available, then availability_status.
func variantAvailable(v printful.Variant) bool {
	switch {
	case v.InStock != nil:
		return *v.InStock
	case v.Available != nil:
		return *v.Available
	default:
		status := strings.ToLower(strings.TrimSpace(string(v.AvailabilityStatus)))
		return status == "available" || status == "active"
	}
}

// variantPrice uses retail_price verbatim, else price in cents.
func variantPrice(v printful.Variant) (decimal.Decimal, bool) {
	if v.RetailPrice.Valid {
		return v.RetailPrice.Value, true
	}
	if v.Price.Valid {
		return v.Price.Value.Div(hundred), true
	}
	return decimal.Zero, false
}

func variantImage(v printful.Variant) string {
	for _, file := range v.Files {
		kind := strings.ToLower(strings.TrimSpace(file.Type))
		if (kind == "preview" || kind == "mockup") && strings.TrimSpace(file.PreviewURL) != "" {
			return strings.TrimSpace(file.PreviewURL)
		}
	}
	if v.Product != nil && strings.TrimSpace(v.Product.Image) != "" {
		return strings.TrimSpace(v.Product.Image)
	}
	return strings.TrimSpace(v.Image)
}

func selectImage(raw printful.Product, detail *printful.Product, variants []printful.Variant) string {
	for _, v := range variants {
		for _, file := range v.Files {
			kind := strings.ToLower(strings.TrimSpace(file.Type))
			if (kind == "preview" || kind == "mockup") && strings.TrimSpace(file.PreviewURL) != "" {
				return strings.TrimSpace(file.PreviewURL)
			}
		}
	}
	for _, v := range variants {
		if v.Product != nil && strings.TrimSpace(v.Product.Image) != "" {
			return strings.TrimSpace(v.Product.Image)
		}
		if image := strings.TrimSpace(v.Image); image != "" {
			return image
		}
	}
	if thumb := raw.Thumbnail(); thumb != "" {
		return thumb
	}
	if detail != nil {
		if thumb := detail.Thumbnail(); thumb != "" {
			return thumb
		}
	}
	return domain.PlaceholderImageURL
}

func sanitizeDescription(raw printful.Product, detail *printful.Product) string {
	text := raw.Description
	if strings.TrimSpace(text) == "" && detail != nil {
		text = detail.Description
	}
	return strings.TrimSpace(descriptionPolicy.Sanitize(text))
}

// inferCategory treats anything sold in real sizes as apparel.
func inferCategory(sizes []string) string {
	for _, size := range sizes {
		if size != domain.DefaultSizeLabel {
			return categoryApparel
		}
	}
	return categoryAccessories
}
