package models

import "time"

// Vendor is a known supplier. Name is the lookup key used by RFQ items.
type Vendor struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;index" json:"name" binding:"required" validate:"required"`
	Email     string    `gorm:"not null;index" json:"email" binding:"required,email" validate:"required,email"`
	Phone     string    `json:"phone"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Vendor) TableName() string {
	return "vendors"
}
