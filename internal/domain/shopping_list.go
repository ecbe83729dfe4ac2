package domain

import "time"

// ShoppingListItem is what the search engine hands to the shopping list store
type ShoppingListItem struct {
	Owner     string    `json:"owner"`
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	UnitPrice string    `json:"unit_price"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}
