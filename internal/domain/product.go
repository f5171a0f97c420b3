package domain

// CatalogItem is a sellable product in the shape clients consume.
type CatalogItem struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"`
	Images        []string `json:"images"`
	Sizes         []string `json:"sizes"`
	Category      string   `json:"category"`
	Features      []string `json:"features"`
	Stock         int      `json:"stock"`
	IsNew         bool     `json:"isNew"`
	IsPreOrder    bool     `json:"isPreOrder"`
}

// HasSize reports whether size is one of the item's offered sizes.
func (i CatalogItem) HasSize(size string) bool {
	for _, s := range i.Sizes {
		if s == size {
			return true
		}
	}
	return false
}
