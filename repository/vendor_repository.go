package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"mace-backend/models"
	"mace-backend/utils"
)

type VendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) *VendorRepository {
	return &VendorRepository{db: db}
}

func (r *VendorRepository) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	ctx, cancel := utils.QueryContext(ctx, utils.DefaultQueryTimeout)
	defer cancel()

	var vendors []models.Vendor
	if err := r.db.WithContext(ctx).Order("name ASC, id ASC").Find(&vendors).Error; err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	return vendors, nil
}

// FindVendorByName is an exact match; when names repeat the oldest row wins.
func (r *VendorRepository) FindVendorByName(ctx context.Context, name string) (*models.Vendor, error) {
	return r.first(ctx, "name = ?", name)
}

// FindVendorByEmail matches case-insensitively.
func (r *VendorRepository) FindVendorByEmail(ctx context.Context, email string) (*models.Vendor, error) {
	return r.first(ctx, "LOWER(email) = LOWER(?)", email)
}

func (r *VendorRepository) first(ctx context.Context, query string, arg string) (*models.Vendor, error) {
	ctx, cancel := utils.QueryContext(ctx, utils.FastQueryTimeout)
	defer cancel()

	var v models.Vendor
	err := r.db.WithContext(ctx).Where(query, arg).Order("id ASC").First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("vendor %q: %w", arg, utils.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find vendor %q: %w", arg, err)
	}
	return &v, nil
}

func (r *VendorRepository) CreateVendor(ctx context.Context, v *models.Vendor) error {
	ctx, cancel := utils.QueryContext(ctx, utils.DefaultQueryTimeout)
	defer cancel()

	if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
		return fmt.Errorf("create vendor %q: %w", v.Name, err)
	}
	return nil
}

func (r *VendorRepository) DeleteVendorByName(ctx context.Context, name string) (int64, error) {
	ctx, cancel := utils.QueryContext(ctx, utils.DefaultQueryTimeout)
	defer cancel()

	res := r.db.WithContext(ctx).Where("name = ?", name).Delete(&models.Vendor{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete vendor %q: %w", name, res.Error)
	}
	return res.RowsAffected, nil
}

// ReplaceAllVendors swaps the directory contents atomically.
func (r *VendorRepository) ReplaceAllVendors(ctx context.Context, vendors []models.Vendor) error {
	ctx, cancel := utils.QueryContext(ctx, utils.SlowQueryTimeout)
	defer cancel()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Vendor{}).Error; err != nil {
			return fmt.Errorf("clear vendors: %w", err)
		}
		if len(vendors) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(vendors, 200).Error; err != nil {
			return fmt.Errorf("insert vendors: %w", err)
		}
		return nil
	})
}
