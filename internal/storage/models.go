package storage

import "time"

type chatSessionModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Title     string `gorm:"not null"`
	Language  string
	Summary   string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

func (chatSessionModel) TableName() string {
	return "chat_sessions"
}

type chatMessageModel struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	SessionID string    `gorm:"type:uuid;not null;index:idx_chat_messages_session_created,priority:1"`
	Role      string    `gorm:"not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime:false;index:idx_chat_messages_session_created,priority:2"`
	UpdatedAt time.Time
}

func (chatMessageModel) TableName() string {
	return "chat_messages"
}

// memoryModel maps to the memories table, one row per (scope, key).
type memoryModel struct {
	ID        uint   `gorm:"primaryKey"`
	Scope     string `gorm:"not null;uniqueIndex:idx_memories_scope_key"`
	Key       string `gorm:"not null;uniqueIndex:idx_memories_scope_key"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (memoryModel) TableName() string {
	return "memories"
}

type productModel struct {
	ID               int64   `gorm:"primaryKey"`
	SKU              string  `gorm:"column:sku;not null;uniqueIndex"`
	Brand            string  `gorm:"not null;index"`
	Family           string
	LensIndex        float64 `gorm:"column:lens_index;not null"`
	Aspheric         bool
	Photochromic     bool
	PhotochromicTech string
	BlueCut          bool
	Description      string `gorm:"type:text"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (productModel) TableName() string {
	return "products"
}

type productCoatingModel struct {
	ID        int64  `gorm:"primaryKey"`
	ProductID int64  `gorm:"not null;index"`
	Code      string `gorm:"not null"`
}

func (productCoatingModel) TableName() string {
	return "product_coatings"
}

// inventoryModel is a supplier stock row; at most one active row per product
// is read, the most recently updated.
type inventoryModel struct {
	ID         int64 `gorm:"primaryKey"`
	ProductID  int64 `gorm:"not null;index:idx_inventory_product_active,priority:1"`
	PriceMinor *int64
	Currency   string
	Quantity   *int
	Supplier   string
	Active     bool `gorm:"not null;default:true;index:idx_inventory_product_active,priority:2"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (inventoryModel) TableName() string {
	return "inventory"
}

func allModels() []any {
	return []any{
		&chatSessionModel{},
		&chatMessageModel{},
		&memoryModel{},
		&productModel{},
		&productCoatingModel{},
		&inventoryModel{},
	}
}
