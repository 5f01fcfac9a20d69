package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"mace-backend/models"
	"mace-backend/utils"
)

type ReplyRepository struct {
	db *gorm.DB
}

func NewReplyRepository(db *gorm.DB) *ReplyRepository {
	return &ReplyRepository{db: db}
}

// CreateReplyItems inserts every row of one submission or none of them.
func (r *ReplyRepository) CreateReplyItems(ctx context.Context, items []models.VendorReplyItem) error {
	if len(items) == 0 {
		return nil
	}
	ctx, cancel := utils.QueryContext(ctx, utils.DefaultQueryTimeout)
	defer cancel()

	if err := r.db.WithContext(ctx).Create(&items).Error; err != nil {
		return fmt.Errorf("create reply items for %s: %w", items[0].ReplyID, err)
	}
	return nil
}

// ListReplyItems returns all rows of an rfq in insertion order.
func (r *ReplyRepository) ListReplyItems(ctx context.Context, rfqID string) ([]models.VendorReplyItem, error) {
	ctx, cancel := utils.QueryContext(ctx, utils.DefaultQueryTimeout)
	defer cancel()

	var items []models.VendorReplyItem
	if err := r.db.WithContext(ctx).Where("rfq_id = ?", rfqID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list reply items for %s: %w", rfqID, err)
	}
	return items, nil
}

// MarkAwarded flips every row of the (rfq, item, vendor) triple to awarded.
// Rows of other vendors keep their status.
func (r *ReplyRepository) MarkAwarded(ctx context.Context, rfqID, itemName, vendorName string) (int64, error) {
	ctx, cancel := utils.QueryContext(ctx, utils.DefaultQueryTimeout)
	defer cancel()

	res := r.db.WithContext(ctx).Model(&models.VendorReplyItem{}).
		Where("rfq_id = ? AND item_name = ? AND vendor_name = ?", rfqID, itemName, vendorName).
		Update("status", models.ReplyStatusAwarded)
	if res.Error != nil {
		return 0, fmt.Errorf("award %s/%s/%s: %w", rfqID, itemName, vendorName, res.Error)
	}
	return res.RowsAffected, nil
}

// LatestReplyItem returns the newest row of the triple.
func (r *ReplyRepository) LatestReplyItem(ctx context.Context, rfqID, itemName, vendorName string) (*models.VendorReplyItem, error) {
	ctx, cancel := utils.QueryContext(ctx, utils.FastQueryTimeout)
	defer cancel()

	var item models.VendorReplyItem
	err := r.db.WithContext(ctx).
		Where("rfq_id = ? AND item_name = ? AND vendor_name = ?", rfqID, itemName, vendorName).
		Order("id DESC").First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("reply item %s/%s/%s: %w", rfqID, itemName, vendorName, utils.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find reply item: %w", err)
	}
	return &item, nil
}
