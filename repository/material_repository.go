package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mace-backend/models"
	"mace-backend/utils"
)

type MaterialRepository struct {
	db *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

// priceRanges maps the catalog filter values to [min, max) bounds; a zero
// max means unbounded.
var priceRanges = map[string][2]int64{
	"0-50":    {0, 50},
	"50-100":  {50, 100},
	"100-500": {100, 500},
	"500+":    {500, 0},
}

var materialSorts = map[string]string{
	"price-asc":  "price ASC, item_name ASC",
	"price-desc": "price DESC, item_name ASC",
	"name-asc":   "item_name ASC, size ASC",
	"name-desc":  "item_name DESC, size ASC",
}

func (r *MaterialRepository) ListMaterials(ctx context.Context, f models.MaterialFilter) ([]models.Material, error) {
	ctx, cancel := utils.QueryContext(ctx, utils.DefaultQueryTimeout)
	defer cancel()

	q := r.db.WithContext(ctx).Model(&models.Material{})
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(item_name) LIKE ? OR LOWER(category) LIKE ?", like, like)
	}
	if c := strings.TrimSpace(f.Category); c != "" && !strings.EqualFold(c, "all") {
		q = q.Where("category = ?", c)
	}
	if f.PriceRange != "" {
		bounds, ok := priceRanges[f.PriceRange]
		if !ok {
			return nil, fmt.Errorf("%w: unknown priceRange %q", utils.ErrValidation, f.PriceRange)
		}
		q = q.Where("price >= ?", decimal.NewFromInt(bounds[0]))
		if bounds[1] > 0 {
			q = q.Where("price < ?", decimal.NewFromInt(bounds[1]))
		}
	}
	order := "category ASC, item_name ASC, size ASC"
	if f.Sort != "" {
		o, ok := materialSorts[f.Sort]
		if !ok {
			return nil, fmt.Errorf("%w: unknown sort %q", utils.ErrValidation, f.Sort)
		}
		order = o
	}

	var materials []models.Material
	if err := q.Order(order).Find(&materials).Error; err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return materials, nil
}

func (r *MaterialRepository) ListCategories(ctx context.Context) ([]string, error) {
	ctx, cancel := utils.QueryContext(ctx, utils.FastQueryTimeout)
	defer cancel()

	var categories []string
	err := r.db.WithContext(ctx).Model(&models.Material{}).
		Distinct("category").Where("category <> ''").Order("category ASC").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// UpsertMaterial inserts or refreshes the image and vendors of the material
// identified by (category, item name, size, unit, price).
func (r *MaterialRepository) UpsertMaterial(ctx context.Context, m *models.Material) error {
	ctx, cancel := utils.QueryContext(ctx, utils.DefaultQueryTimeout)
	defer cancel()

	updates := []string{"vendors", "updated_at"}
	if m.Image != "" {
		updates = append(updates, "image")
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "category"}, {Name: "item_name"}, {Name: "size"}, {Name: "unit"}, {Name: "price"},
		},
		DoUpdates: clause.AssignmentColumns(updates),
	}).Create(m).Error
	if err != nil {
		return fmt.Errorf("upsert material %q: %w", m.ItemName, err)
	}
	return nil
}
