package domain

// CategoryNode is one node of the catalog category tree. Top-level nodes hold
// subcategories in Categories; the tree is never mutated once fetched.
type CategoryNode struct {
	ID         int            `json:"id"`
	Name       string         `json:"name"`
	Categories []CategoryNode `json:"categories,omitempty"`
}

// Subcategory is a flattened second-level node together with its parent's name
type Subcategory struct {
	ID         int
	Name       string
	ParentName string
}

// Subcategories flattens a category tree into its second-level nodes in tree order
func Subcategories(tree []CategoryNode) []Subcategory {
	subs := make([]Subcategory, 0)
	for _, category := range tree {
		for _, sub := range category.Categories {
			subs = append(subs, Subcategory{
				ID:         sub.ID,
				Name:       sub.Name,
				ParentName: category.Name,
			})
		}
	}
	return subs
}
