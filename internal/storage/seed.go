package storage

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedInventory is the stock line of a seeded product.
type SeedInventory struct {
	PriceMinor *int64 `yaml:"price_minor"`
	Currency   string `yaml:"currency"`
	Quantity   *int   `yaml:"quantity"`
	Supplier   string `yaml:"supplier"`
}

// SeedProduct is one product entry of a catalog seed file.
type SeedProduct struct {
	SKU              string         `yaml:"sku"`
	Brand            string         `yaml:"brand"`
	Family           string         `yaml:"family"`
	Index            float64        `yaml:"index"`
	Aspheric         bool           `yaml:"aspheric"`
	Photochromic     bool           `yaml:"photochromic"`
	PhotochromicTech string         `yaml:"photochromic_tech"`
	BlueCut          bool           `yaml:"blue_cut"`
	Coatings         []string       `yaml:"coatings"`
	Description      string         `yaml:"description"`
	Inventory        *SeedInventory `yaml:"inventory"`
}

type seedFile struct {
	Products []SeedProduct `yaml:"products"`
}

// LoadSeedFile reads and validates a YAML catalog.
func LoadSeedFile(path string) ([]SeedProduct, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes a YAML catalog and normalizes SKUs and coating codes.
func ParseSeed(data []byte) ([]SeedProduct, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	seen := make(map[string]bool, len(file.Products))
	for i := range file.Products {
		p := &file.Products[i]
		p.SKU = strings.ToUpper(strings.TrimSpace(p.SKU))
		if p.SKU == "" || p.Brand == "" || p.Index <= 0 {
			return nil, fmt.Errorf("product #%d: sku, brand and index are required", i+1)
		}
		if seen[p.SKU] {
			return nil, fmt.Errorf("product #%d: duplicate sku %s", i+1, p.SKU)
		}
		seen[p.SKU] = true
		for j, c := range p.Coatings {
			p.Coatings[j] = strings.ToUpper(strings.TrimSpace(c))
		}
		if p.Inventory != nil {
			p.Inventory.Currency = strings.ToUpper(p.Inventory.Currency)
		}
	}
	return file.Products, nil
}

// SeedCatalog upserts products by SKU, replaces their coatings and, when an
// inventory line is given, makes it the only active one.
func (s *Store) SeedCatalog(ctx context.Context, products []SeedProduct) (int, error) {
	count := 0
	for _, p := range products {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return seedProduct(tx, p)
		})
		if err != nil {
			return count, classify(err, "seed product "+p.SKU)
		}
		count++
	}
	return count, nil
}

func seedProduct(tx *gorm.DB, p SeedProduct) error {
	now := time.Now().UTC()
	record := productModel{
		SKU:              p.SKU,
		Brand:            p.Brand,
		Family:           p.Family,
		LensIndex:        p.Index,
		Aspheric:         p.Aspheric,
		Photochromic:     p.Photochromic,
		PhotochromicTech: p.PhotochromicTech,
		BlueCut:          p.BlueCut,
		Description:      p.Description,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sku"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"brand", "family", "lens_index", "aspheric", "photochromic",
			"photochromic_tech", "blue_cut", "description", "updated_at",
		}),
	}).Create(&record).Error; err != nil {
		return err
	}
	// The upsert does not return the id of an updated row on every driver.
	if err := tx.Where("sku = ?", p.SKU).Take(&record).Error; err != nil {
		return err
	}

	if err := tx.Where("product_id = ?", record.ID).Delete(&productCoatingModel{}).Error; err != nil {
		return err
	}
	for _, code := range p.Coatings {
		if err := tx.Create(&productCoatingModel{ProductID: record.ID, Code: code}).Error; err != nil {
			return err
		}
	}

	if p.Inventory == nil {
		return nil
	}
	if err := tx.Model(&inventoryModel{}).
		Where("product_id = ? AND active", record.ID).
		Update("active", false).Error; err != nil {
		return err
	}
	return tx.Create(&inventoryModel{
		ProductID:  record.ID,
		PriceMinor: p.Inventory.PriceMinor,
		Currency:   p.Inventory.Currency,
		Quantity:   p.Inventory.Quantity,
		Supplier:   p.Inventory.Supplier,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}).Error
}
