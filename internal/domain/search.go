package domain

import (
	"strconv"
	"time"
)

// Filters narrows a search. Prices are kept as the caller sent them and parsed
// at the point of use; an unparsable bound is ignored.
type Filters struct {
	MinPrice     string `json:"min_price,omitempty"`
	MaxPrice     string `json:"max_price,omitempty"`
	Category     string `json:"category,omitempty"`
	DiscountOnly bool   `json:"discount_only,omitempty"`
}

// Map returns the active filters keyed by name
func (f Filters) Map() map[string]string {
	m := make(map[string]string)
	if f.MinPrice != "" {
		m["min_price"] = f.MinPrice
	}
	if f.MaxPrice != "" {
		m["max_price"] = f.MaxPrice
	}
	if f.Category != "" {
		m["category"] = f.Category
	}
	if f.DiscountOnly {
		m["discount_only"] = strconv.FormatBool(f.DiscountOnly)
	}
	return m
}

type SearchStats struct {
	SubcategoriesVisited   int `json:"subcategories_visited"`
	SubcategoriesSucceeded int `json:"subcategories_succeeded"`
	SubcategoriesFailed    int `json:"subcategories_failed"`
}

type SearchResult struct {
	Products              []Product         `json:"products"`
	Query                 string            `json:"query"`
	TotalFound            int               `json:"total_found"`
	SearchDurationSeconds float64           `json:"search_duration_seconds"`
	AppliedFilters        map[string]string `json:"applied_filters"`
	Stats                 SearchStats       `json:"stats"`
	FromCache             bool              `json:"from_cache"`
	CachedAt              time.Time         `json:"cached_at,omitempty"`
}

// Clone returns a deep copy so cached results are never shared with callers
func (r SearchResult) Clone() SearchResult {
	out := r
	if r.Products != nil {
		out.Products = make([]Product, len(r.Products))
		for i, p := range r.Products {
			out.Products[i] = p.Clone()
		}
	}
	if r.AppliedFilters != nil {
		out.AppliedFilters = make(map[string]string, len(r.AppliedFilters))
		for k, v := range r.AppliedFilters {
			out.AppliedFilters[k] = v
		}
	}
	return out
}

// CacheStats describes the caches for operational visibility. The first
// fields cover the search cache.
type CacheStats struct {
	EntryCount   int       `json:"entry_count"`
	MaxSize      int       `json:"max_size"`
	TTLSeconds   int       `json:"ttl_seconds"`
	OldestAccess time.Time `json:"oldest_access,omitempty"`
	NewestAccess time.Time `json:"newest_access,omitempty"`

	TreeStoredAt        time.Time `json:"tree_stored_at,omitempty"`
	CachedSubcategories int       `json:"cached_subcategories"`
}
