package models

import (
	"time"

	"github.com/lib/pq"
)

// Email template types used by the RFQ workflow.
const (
	TemplateRFQVendor         = "rfq_vendor"
	TemplateAwardAccess       = "award_access"
	TemplateReplyConfirmation = "reply_confirmation"
	TemplateVendorAward       = "vendor_award"
	TemplateRequesterAward    = "requester_award"
)

// EmailTemplate represents the email_templates table. An active default row
// for a type replaces the built-in template of that type.
type EmailTemplate struct {
	ID           uint           `gorm:"primaryKey" json:"id" example:"1"`
	Name         string         `json:"name" example:"Vendor RFQ"`
	Subject      string         `gorm:"not null" json:"subject" example:"RFQ Request {{project_name}}"`
	Body         string         `gorm:"type:text;not null" json:"body" example:"Hello {{vendor_name}}"`
	TemplateType string         `gorm:"not null;index" json:"template_type" example:"rfq_vendor"`
	IsDefault    bool           `json:"is_default" example:"true"`
	IsActive     bool           `json:"is_active" example:"true"`
	CC           pq.StringArray `gorm:"type:text[]" json:"cc,omitempty"`
	BCC          pq.StringArray `gorm:"type:text[]" json:"bcc,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (EmailTemplate) TableName() string {
	return "email_templates"
}

// EmailData carries the template variables. Plain fields are escaped when
// substituted; the *HTML fields are already rendered markup.
type EmailData struct {
	To             string
	RFQID          string
	ProjectName    string
	ProjectAddress string
	NeededBy       string
	ProjectNotes   string
	RequesterName  string
	RequesterEmail string
	RequesterPhone string
	VendorName     string
	VendorEmail    string
	ItemName       string
	ReplyID        string
	Link           string
	Total          string
	ItemsHTML      string
	FilesHTML      string
}

// EmailTemplateRequest is the admin payload for creating or replacing a
// template.
type EmailTemplateRequest struct {
	Name         string   `json:"name" binding:"required" example:"Vendor RFQ"`
	Subject      string   `json:"subject" binding:"required" example:"RFQ Request {{project_name}}"`
	Body         string   `json:"body" binding:"required"`
	TemplateType string   `json:"template_type" binding:"required" example:"rfq_vendor"`
	IsDefault    bool     `json:"is_default"`
	IsActive     *bool    `json:"is_active"`
	CC           []string `json:"cc"`
	BCC          []string `json:"bcc"`
}

var TemplateTypes = []string{
	TemplateRFQVendor,
	TemplateAwardAccess,
	TemplateReplyConfirmation,
	TemplateVendorAward,
	TemplateRequesterAward,
}
