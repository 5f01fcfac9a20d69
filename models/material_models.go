package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Material is one catalog entry.
type Material struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Category  string          `gorm:"not null;uniqueIndex:idx_material_identity" json:"category"`
	ItemName  string          `gorm:"not null;uniqueIndex:idx_material_identity" json:"itemName"`
	Size      string          `gorm:"uniqueIndex:idx_material_identity" json:"size"`
	Unit      string          `gorm:"uniqueIndex:idx_material_identity" json:"unit"`
	Price     decimal.Decimal `gorm:"type:numeric(14,2);uniqueIndex:idx_material_identity" json:"price"`
	Image     string          `json:"image"`
	Vendors   pq.StringArray  `gorm:"type:text[]" json:"vendors"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (Material) TableName() string {
	return "materials"
}

// MaterialFilter carries the catalog query parameters.
type MaterialFilter struct {
	Search     string `form:"search"`
	Category   string `form:"category"`
	PriceRange string `form:"priceRange"`
	Sort       string `form:"sort"`
}
