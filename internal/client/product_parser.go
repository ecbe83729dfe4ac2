package client

import (
	"fmt"
	"strings"

	"grocery/catalog/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// NormalizeProduct converts a raw catalog record into a domain.Product.
// Only a missing id rejects the record; every other field falls back to its default.
func NormalizeProduct(raw domain.RawProduct) (domain.Product, error) {
	id := stringField(raw, "id")
	if id == "" {
		return domain.Product{}, fmt.Errorf("%w: missing id", domain.ErrRejectedRecord)
	}

	prices := priceInstructions(raw)

	name := stringField(raw, "display_name")
	if name == "" {
		name = stringField(raw, "name")
	}
	if name == "" {
		name = domain.DefaultProductName
	}

	thumbnail := stringField(raw, "thumbnail")
	if thumbnail == "" {
		thumbnail = domain.DefaultThumbnailURL
	}

	status := stringField(raw, "status")
	if status == "" {
		status = domain.DefaultStatus
	}

	return domain.Product{
		ID:                id,
		Name:              name,
		Brand:             stringField(raw, "brand"),
		Slug:              stringField(raw, "slug"),
		ThumbnailURL:      thumbnail,
		Packaging:         stringField(raw, "packaging"),
		UnitPrice:         priceField(prices, "unit_price", domain.DefaultUnitPrice),
		ReferencePrice:    priceField(prices, "reference_price", ""),
		UnitSize:          floatField(prices, "unit_size", domain.DefaultUnitSize),
		SizeFormat:        stringField(prices, "size_format"),
		BulkPrice:         priceField(prices, "bulk_price", ""),
		PreviousUnitPrice: priceField(prices, "previous_unit_price", ""),
		IsDiscounted:      boolField(prices, "price_decreased"),
		Status:            status,
		PurchaseLimit:     intField(raw, "limit", domain.DefaultPurchaseLimit),
		ShareURL:          stringField(raw, "share_url"),
		CategoryNames:     categoryNames(raw["categories"]),
	}, nil
}

// priceInstructions returns the nested price block, or the record itself when
// upstream flattened the prices into the product
func priceInstructions(raw domain.RawProduct) map[string]any {
	nested, err := cast.ToStringMapE(raw["price_instructions"])
	if err != nil || len(nested) == 0 {
		return raw
	}
	return nested
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// priceField keeps the upstream string representation of a valid decimal
func priceField(m map[string]any, key, def string) string {
	s := stringField(m, key)
	if s == "" {
		return def
	}
	if _, err := decimal.NewFromString(s); err != nil {
		return def
	}
	return s
}

func floatField(m map[string]any, key string, def float64) float64 {
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return def
	}
	return f
}

func intField(m map[string]any, key string, def int) int {
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return i
}

func boolField(m map[string]any, key string) bool {
	v, ok := m[key]
	if !ok || v == nil {
		return false
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false
	}
	return b
}

// categoryNames accepts a list of {name: ...} objects or plain strings
func categoryNames(v any) []string {
	items, err := cast.ToSliceE(v)
	if err != nil || len(items) == 0 {
		return nil
	}

	names := make([]string, 0, len(items))
	for _, item := range items {
		switch c := item.(type) {
		case map[string]any:
			if name := stringField(c, "name"); name != "" {
				names = append(names, name)
			}
		case string:
			if name := strings.TrimSpace(c); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

// SearchableText is the lowercased "name brand packaging" text that queries are
// matched against before a record is normalized
func SearchableText(raw domain.RawProduct) string {
	name := stringField(raw, "display_name")
	if name == "" {
		name = stringField(raw, "name")
	}
	return strings.ToLower(name + " " + stringField(raw, "brand") + " " + stringField(raw, "packaging"))
}
