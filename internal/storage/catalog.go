package storage

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/easeaico/lens-assistant/internal/catalog"
	"github.com/easeaico/lens-assistant/internal/types"
)

const activeInventoryExists = "EXISTS (SELECT 1 FROM inventory inv WHERE inv.product_id = %s.id AND inv.active)"

type catalogRepo struct {
	db *gorm.DB
}

// NewCatalogRepo returns the catalog read side.
func NewCatalogRepo(db *gorm.DB) catalog.Store {
	return &catalogRepo{db: db}
}

// QueryProducts returns filtered products in id order, each with its coatings
// and its most recent active inventory row.
func (r *catalogRepo) QueryProducts(ctx context.Context, filter catalog.ProductFilter) ([]types.CatalogHit, error) {
	db := r.db.WithContext(ctx)

	var products []productModel
	query := applyProductFilter(db.Model(&productModel{}), filter, "products")
	if err := query.Order("products.id ASC").Find(&products).Error; err != nil {
		return nil, classify(err, "query products")
	}
	if len(products) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}

	var coatings []productCoatingModel
	if err := db.Where("product_id IN ?", ids).
		Order("product_id ASC, id ASC").
		Find(&coatings).Error; err != nil {
		return nil, classify(err, "query product coatings")
	}

	var stock []inventoryModel
	if err := db.Where("product_id IN ? AND active = ?", ids, true).
		Order("product_id ASC, updated_at DESC, id DESC").
		Find(&stock).Error; err != nil {
		return nil, classify(err, "query inventory")
	}

	return assembleHits(products, coatings, stock), nil
}

// PriceRange returns min/max active prices for the filtered products, in the
// currency most rows are priced in.
func (r *catalogRepo) PriceRange(ctx context.Context, filter catalog.ProductFilter) (types.PriceRange, error) {
	var rows []priceRow
	query := r.db.WithContext(ctx).
		Table("inventory").
		Select("inventory.currency AS currency, MIN(inventory.price_minor) AS min_minor, MAX(inventory.price_minor) AS max_minor, COUNT(*) AS row_count").
		Joins("JOIN products ON products.id = inventory.product_id").
		Where("inventory.active AND inventory.price_minor IS NOT NULL")
	filter.RequireActiveInventory = false
	query = applyProductFilter(query, filter, "products")
	if err := query.Group("inventory.currency").Scan(&rows).Error; err != nil {
		return types.PriceRange{}, classify(err, "query price range")
	}
	return pickPriceRange(rows), nil
}

type priceRow struct {
	Currency string
	MinMinor int64
	MaxMinor int64
	RowCount int64
}

func pickPriceRange(rows []priceRow) types.PriceRange {
	var best *priceRow
	for i := range rows {
		row := &rows[i]
		if best == nil || row.RowCount > best.RowCount ||
			(row.RowCount == best.RowCount && row.Currency < best.Currency) {
			best = row
		}
	}
	if best == nil {
		return types.PriceRange{}
	}
	return types.PriceRange{
		MinMinor: best.MinMinor,
		MaxMinor: best.MaxMinor,
		Currency: best.Currency,
		Found:    true,
	}
}

func applyProductFilter(query *gorm.DB, filter catalog.ProductFilter, table string) *gorm.DB {
	if filter.SKU != "" {
		query = query.Where("UPPER("+table+".sku) = ?", strings.ToUpper(filter.SKU))
	}
	if filter.Brand != "" {
		query = query.Where("LOWER("+table+".brand) = ?", strings.ToLower(filter.Brand))
	}
	if filter.RequirePhotochromic {
		query = query.Where(table+".photochromic = ?", true)
	}
	if filter.RequireBlueCut {
		query = query.Where(table+".blue_cut = ?", true)
	}
	if filter.RequireActiveInventory {
		query = query.Where(fmt.Sprintf(activeInventoryExists, table))
	}
	return query
}

// assembleHits joins products with coatings and the first (most recent)
// inventory row per product. Inputs must be ordered by product id.
func assembleHits(products []productModel, coatings []productCoatingModel, stock []inventoryModel) []types.CatalogHit {
	coatingsByProduct := make(map[int64][]string, len(products))
	for _, c := range coatings {
		coatingsByProduct[c.ProductID] = append(coatingsByProduct[c.ProductID], c.Code)
	}
	inventoryByProduct := make(map[int64]*types.InventorySnapshot, len(products))
	for _, inv := range stock {
		if _, seen := inventoryByProduct[inv.ProductID]; seen {
			continue
		}
		inventoryByProduct[inv.ProductID] = &types.InventorySnapshot{
			PriceMinor: inv.PriceMinor,
			Currency:   inv.Currency,
			Quantity:   inv.Quantity,
			Supplier:   inv.Supplier,
		}
	}

	hits := make([]types.CatalogHit, 0, len(products))
	for _, p := range products {
		hits = append(hits, types.CatalogHit{
			ID:               p.ID,
			SKU:              p.SKU,
			Brand:            p.Brand,
			Family:           p.Family,
			Index:            p.LensIndex,
			Aspheric:         p.Aspheric,
			Photochromic:     p.Photochromic,
			PhotochromicTech: p.PhotochromicTech,
			BlueCut:          p.BlueCut,
			Coatings:         coatingsByProduct[p.ID],
			Description:      p.Description,
			Inventory:        inventoryByProduct[p.ID],
		})
	}
	return hits
}
