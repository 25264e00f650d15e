package catalog

import (
	"fmt"
	"strings"

	"github.com/easeaico/lens-assistant/internal/types"
)

// Columns gates the optional price and stock columns.
type Columns struct {
	Price bool
	Stock bool
}

// FormatHits renders hits as compact prompt lines. Identical input yields
// byte-identical output.
func FormatHits(hits []types.CatalogHit, cols Columns) string {
	if len(hits) == 0 {
		return "No matching products in the catalog."
	}
	var b strings.Builder
	for i, h := range hits {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- SKU %s | %s %s | index %.2f", h.SKU, h.Brand, h.Family, h.Index)
		if h.Aspheric {
			b.WriteString(" | aspheric")
		}
		if h.Photochromic {
			b.WriteString(" | photochromic")
			if h.PhotochromicTech != "" {
				fmt.Fprintf(&b, " (%s)", h.PhotochromicTech)
			}
		}
		if h.BlueCut {
			b.WriteString(" | blue-cut")
		}
		if len(h.Coatings) > 0 {
			fmt.Fprintf(&b, " | coatings %s", strings.Join(h.Coatings, ","))
		}
		if cols.Price {
			fmt.Fprintf(&b, " | price %s", formatPrice(h.Inventory))
		}
		if cols.Stock {
			fmt.Fprintf(&b, " | stock %s", FormatQuantity(h))
		}
	}
	return b.String()
}

// FormatQuantity renders the literal stock quantity, or N/A when unknown.
func FormatQuantity(h types.CatalogHit) string {
	if !h.QuantityKnown() {
		return "N/A"
	}
	return fmt.Sprintf("%d", *h.Inventory.Quantity)
}

func formatPrice(inv *types.InventorySnapshot) string {
	if inv == nil || inv.PriceMinor == nil {
		return "unknown"
	}
	return formatMinor(*inv.PriceMinor, inv.Currency)
}

// FormatPriceRange renders the aggregate price range, or "" when none was found.
func FormatPriceRange(pr types.PriceRange) string {
	if !pr.Found {
		return ""
	}
	return fmt.Sprintf("Price range for matching products: %s to %s.",
		formatMinor(pr.MinMinor, pr.Currency), formatMinor(pr.MaxMinor, pr.Currency))
}

func formatMinor(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign, amount = "-", -amount
	}
	out := fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
	if currency != "" {
		out += " " + currency
	}
	return out
}
