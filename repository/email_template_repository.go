package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"mace-backend/models"
	"mace-backend/utils"
)

type EmailTemplateRepository struct {
	db *gorm.DB
}

func NewEmailTemplateRepository(db *gorm.DB) *EmailTemplateRepository {
	return &EmailTemplateRepository{db: db}
}

// FindActiveTemplate returns the active default template for a type, or
// nil when none is stored.
func (r *EmailTemplateRepository) FindActiveTemplate(ctx context.Context, templateType string) (*models.EmailTemplate, error) {
	ctx, cancel := utils.QueryContext(ctx, utils.FastQueryTimeout)
	defer cancel()

	var t models.EmailTemplate
	err := r.db.WithContext(ctx).
		Where("template_type = ? AND is_active = ? AND is_default = ?", templateType, true, true).
		Order("updated_at DESC").First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find email template %s: %w", templateType, err)
	}
	return &t, nil
}

func (r *EmailTemplateRepository) ListTemplates(ctx context.Context, templateType string) ([]models.EmailTemplate, error) {
	ctx, cancel := utils.QueryContext(ctx, utils.DefaultQueryTimeout)
	defer cancel()

	q := r.db.WithContext(ctx).Order("template_type ASC, id ASC")
	if templateType != "" {
		q = q.Where("template_type = ?", templateType)
	}
	var templates []models.EmailTemplate
	if err := q.Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("list email templates: %w", err)
	}
	return templates, nil
}

func (r *EmailTemplateRepository) GetTemplate(ctx context.Context, id uint) (*models.EmailTemplate, error) {
	ctx, cancel := utils.QueryContext(ctx, utils.FastQueryTimeout)
	defer cancel()

	var t models.EmailTemplate
	err := r.db.WithContext(ctx).First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("email template %d: %w", id, utils.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get email template %d: %w", id, err)
	}
	return &t, nil
}

// SaveTemplate inserts or updates t. A default template clears the default
// flag of the other templates of its type in the same transaction.
func (r *EmailTemplateRepository) SaveTemplate(ctx context.Context, t *models.EmailTemplate) error {
	ctx, cancel := utils.QueryContext(ctx, utils.DefaultQueryTimeout)
	defer cancel()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if t.IsDefault {
			err := tx.Model(&models.EmailTemplate{}).
				Where("template_type = ? AND id <> ?", t.TemplateType, t.ID).
				Update("is_default", false).Error
			if err != nil {
				return fmt.Errorf("clear default %s: %w", t.TemplateType, err)
			}
		}
		if err := tx.Save(t).Error; err != nil {
			return fmt.Errorf("save email template: %w", err)
		}
		return nil
	})
}

func (r *EmailTemplateRepository) DeleteTemplate(ctx context.Context, id uint) error {
	ctx, cancel := utils.QueryContext(ctx, utils.DefaultQueryTimeout)
	defer cancel()

	res := r.db.WithContext(ctx).Delete(&models.EmailTemplate{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete email template %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("email template %d: %w", id, utils.ErrNotFound)
	}
	return nil
}
