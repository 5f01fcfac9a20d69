package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"mace-backend/models"
	"mace-backend/utils"
)

type RFQRepository struct {
	db *gorm.DB
}

func NewRFQRepository(db *gorm.DB) *RFQRepository {
	return &RFQRepository{db: db}
}

func (r *RFQRepository) CreateRFQ(ctx context.Context, rfq *models.RFQ) error {
	ctx, cancel := utils.QueryContext(ctx, utils.DefaultQueryTimeout)
	defer cancel()

	if err := r.db.WithContext(ctx).Create(rfq).Error; err != nil {
		return fmt.Errorf("create rfq %s: %w", rfq.ID, err)
	}
	return nil
}

func (r *RFQRepository) GetRFQ(ctx context.Context, id string) (*models.RFQ, error) {
	ctx, cancel := utils.QueryContext(ctx, utils.FastQueryTimeout)
	defer cancel()

	var rfq models.RFQ
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rfq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("rfq %s: %w", id, utils.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get rfq %s: %w", id, err)
	}
	return &rfq, nil
}

// UpdateAwardSummary writes the aggregate award and purchase order columns.
// Items are never touched.
func (r *RFQRepository) UpdateAwardSummary(ctx context.Context, rfq *models.RFQ) error {
	ctx, cancel := utils.QueryContext(ctx, utils.DefaultQueryTimeout)
	defer cancel()

	res := r.db.WithContext(ctx).Model(&models.RFQ{}).Where("id = ?", rfq.ID).Updates(map[string]interface{}{
		"status":                 rfq.Status,
		"awarded_vendor_name":    rfq.AwardedVendorName,
		"awarded_reply_id":       rfq.AwardedReplyID,
		"awarded_total_price":    rfq.AwardedTotalPrice,
		"awarded_lead_time_days": rfq.AwardedLeadTimeDays,
		"decision_at":            rfq.DecisionAt,
		"po_number":              rfq.PONumber,
		"po_date":                rfq.PODate,
		"po_notes":               rfq.PONotes,
	})
	if res.Error != nil {
		return fmt.Errorf("update award summary %s: %w", rfq.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("rfq %s: %w", rfq.ID, utils.ErrNotFound)
	}
	return nil
}

// ReplaceAllRFQs clears the table and inserts rfqs in one transaction.
func (r *RFQRepository) ReplaceAllRFQs(ctx context.Context, rfqs []models.RFQ) error {
	ctx, cancel := utils.QueryContext(ctx, utils.SlowQueryTimeout)
	defer cancel()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.RFQ{}).Error; err != nil {
			return fmt.Errorf("clear rfqs: %w", err)
		}
		if len(rfqs) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rfqs, 100).Error; err != nil {
			return fmt.Errorf("insert rfqs: %w", err)
		}
		return nil
	})
}
