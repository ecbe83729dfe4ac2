package domain

// Default values applied by the product normalizer when upstream omits a field
const (
	DefaultProductName   = "Sin nombre"
	DefaultThumbnailURL  = "/static/img/no-image.png"
	DefaultUnitPrice     = "0"
	DefaultUnitSize      = 1.0
	DefaultStatus        = "available"
	DefaultPurchaseLimit = 999
)

// RawProduct is a single product record as decoded from the catalog API.
// Every field is optional and loosely typed.
type RawProduct map[string]any

type Product struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Brand             string   `json:"brand,omitempty"`
	Slug              string   `json:"slug,omitempty"`
	ThumbnailURL      string   `json:"thumbnail_url"`
	Packaging         string   `json:"packaging,omitempty"`
	UnitPrice         string   `json:"unit_price"`                    // e.g. "1.45"
	ReferencePrice    string   `json:"reference_price,omitempty"`     // price per kg/l
	UnitSize          float64  `json:"unit_size"`                     // 1 when unknown
	SizeFormat        string   `json:"size_format,omitempty"`         // kg, l, ud
	BulkPrice         string   `json:"bulk_price,omitempty"`          // price of the bulk unit
	PreviousUnitPrice string   `json:"previous_unit_price,omitempty"` // set when discounted
	IsDiscounted      bool     `json:"is_discounted"`
	Status            string   `json:"status"`
	PurchaseLimit     int      `json:"purchase_limit"`
	ShareURL          string   `json:"share_url,omitempty"`
	CategoryNames     []string `json:"category_names,omitempty"`

	// Assigned by the search service, not by upstream
	CategoryLabel    string `json:"category_label,omitempty"`
	SubcategoryLabel string `json:"subcategory_label,omitempty"`
	Score            int    `json:"score"`
}

// Clone returns a copy that shares no slices with p
func (p Product) Clone() Product {
	if p.CategoryNames != nil {
		p.CategoryNames = append([]string(nil), p.CategoryNames...)
	}
	return p
}
