package service

import (
	"strings"

	"grocery/catalog/internal/domain"

	"github.com/shopspring/decimal"
)

// compiledFilters is domain.Filters with the bounds parsed once per search.
// A bound that does not parse is treated as absent.
type compiledFilters struct {
	minPrice     decimal.Decimal
	hasMin       bool
	maxPrice     decimal.Decimal
	hasMax       bool
	category     string
	discountOnly bool
}

func compileFilters(f domain.Filters) compiledFilters {
	c := compiledFilters{
		category:     strings.ToLower(strings.TrimSpace(f.Category)),
		discountOnly: f.DiscountOnly,
	}
	c.minPrice, c.hasMin = parsePrice(f.MinPrice)
	c.maxPrice, c.hasMax = parsePrice(f.MaxPrice)
	return c
}

func parsePrice(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func (c compiledFilters) allows(p domain.Product) bool {
	if c.hasMin || c.hasMax {
		// an unparsable product price leaves the price filters inapplicable
		if price, ok := parsePrice(p.UnitPrice); ok {
			if c.hasMin && price.LessThan(c.minPrice) {
				return false
			}
			if c.hasMax && price.GreaterThan(c.maxPrice) {
				return false
			}
		}
	}

	if c.category != "" && !strings.Contains(strings.ToLower(p.CategoryLabel), c.category) {
		return false
	}

	if c.discountOnly && !p.IsDiscounted {
		return false
	}

	return true
}
