package types

// InventorySnapshot is the active stock row joined to a product, if any.
type InventorySnapshot struct {
	PriceMinor *int64 `json:"priceMinor,omitempty"`
	Currency   string `json:"currency,omitempty"`
	Quantity   *int   `json:"quantity,omitempty"`
	Supplier   string `json:"supplier,omitempty"`
}

// CatalogHit is a product row returned by retrieval, with its rank score.
type CatalogHit struct {
	ID               int64              `json:"id"`
	SKU              string             `json:"sku"`
	Brand            string             `json:"brand"`
	Family           string             `json:"family"`
	Index            float64            `json:"index"`
	Aspheric         bool               `json:"aspheric"`
	Photochromic     bool               `json:"photochromic"`
	PhotochromicTech string             `json:"photochromicTech,omitempty"`
	BlueCut          bool               `json:"blueCut"`
	Coatings         []string           `json:"coatings"`
	Description      string             `json:"description,omitempty"`
	Inventory        *InventorySnapshot `json:"inventory,omitempty"`
	Score            float64            `json:"score"`
}

func (h CatalogHit) Purchasable() bool {
	return h.Inventory != nil
}

// InStock reports whether a known positive quantity is on hand.
func (h CatalogHit) InStock() bool {
	return h.Inventory != nil && h.Inventory.Quantity != nil && *h.Inventory.Quantity > 0
}

// QuantityKnown reports whether the stock quantity is known.
func (h CatalogHit) QuantityKnown() bool {
	return h.Inventory != nil && h.Inventory.Quantity != nil
}

// PriceRange is the min/max active price of a filtered product set.
type PriceRange struct {
	MinMinor int64  `json:"minMinor"`
	MaxMinor int64  `json:"maxMinor"`
	Currency string `json:"currency"`
	Found    bool   `json:"found"`
}
