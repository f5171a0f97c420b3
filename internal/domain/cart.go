package domain

// CartLine is one aggregated entry in a shopper's cart, unique per (ItemID, Variant).
type CartLine struct {
	LineID    string       `json:"lineId"`
	ItemID    string       `json:"itemId"`
	Variant   string       `json:"variant"`
	Quantity  int          `json:"quantity"`
	UnitPrice float64      `json:"unitPrice"`
	Snapshot  ItemSnapshot `json:"itemSnapshot"`
}

// ItemSnapshot keeps the fields needed to display a line even after the
// catalog item is gone.
type ItemSnapshot struct {
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"`
	Image         string   `json:"image,omitempty"`
	Category      string   `json:"category,omitempty"`
	IsPreOrder    bool     `json:"isPreOrder,omitempty"`
}

// Cart is derived from its lines and never stored on its own.
type Cart struct {
	Lines []CartLine `json:"lines"`
	Total float64    `json:"total"`
	Count int        `json:"count"`
}

// SnapshotOf captures the display fields of item.
func SnapshotOf(item CatalogItem) ItemSnapshot {
	snap := ItemSnapshot{
		Name:       item.Name,
		Price:      item.Price,
		Category:   item.Category,
		IsPreOrder: item.IsPreOrder,
	}
	if item.OriginalPrice != nil {
		v := *item.OriginalPrice
		snap.OriginalPrice = &v
	}
	if len(item.Images) > 0 {
		snap.Image = item.Images[0]
	}
	return snap
}

// NewCart copies lines and recomputes total and count from them.
func NewCart(lines []CartLine) Cart {
	out := Cart{Lines: make([]CartLine, len(lines))}
	copy(out.Lines, lines)
	for _, line := range lines {
		out.Total += line.UnitPrice * float64(line.Quantity)
		out.Count += line.Quantity
	}
	return out
}
