package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const RFQStatusAwarded = "awarded"

// ProjectInfo is the requester and project block of the quote form.
type ProjectInfo struct {
	RequesterName  string `json:"requesterName"`
	RequesterEmail string `json:"requesterEmail"`
	RequesterPhone string `json:"requesterPhone"`
	ProjectName    string `json:"projectName"`
	SiteAddress    string `json:"siteAddress"`
	NeededBy       string `json:"neededBy"`
	Notes          string `json:"notes"`
}

// RFQ is one quote request. Items is written once at creation; the award
// and purchase order columns are a summary filled in later.
type RFQ struct {
	ID             string         `gorm:"primaryKey;type:varchar(64)" json:"rfqId"`
	RequesterName  string         `gorm:"not null" json:"requesterName"`
	RequesterEmail string         `gorm:"not null;index" json:"requesterEmail"`
	RequesterPhone string         `gorm:"not null" json:"requesterPhone"`
	ProjectName    string         `json:"projectName"`
	ProjectAddress string         `json:"projectAddress"`
	NeededBy       string         `json:"neededBy"`
	Notes          string         `json:"notes"`
	Items          datatypes.JSON `gorm:"type:jsonb;not null" json:"items"`
	Vendors        pq.StringArray `gorm:"type:text[]" json:"vendors"`
	FolderLink     string         `json:"folderLink"`
	FileLinks      pq.StringArray `gorm:"type:text[]" json:"fileLinks"`

	Status              string              `json:"status,omitempty"`
	AwardedVendorName   string              `json:"awardedVendorName,omitempty"`
	AwardedReplyID      string              `json:"awardedReplyId,omitempty"`
	AwardedTotalPrice   decimal.NullDecimal `gorm:"type:numeric(14,2)" json:"awardedTotalPrice"`
	AwardedLeadTimeDays *int                `json:"awardedLeadTimeDays,omitempty"`
	DecisionAt          *time.Time          `json:"decisionAt,omitempty"`
	PONumber            string              `gorm:"column:po_number" json:"poNumber,omitempty"`
	PODate              *time.Time          `gorm:"column:po_date" json:"poDate,omitempty"`
	PONotes             string              `gorm:"column:po_notes" json:"poNotes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (RFQ) TableName() string {
	return "rfqs"
}

// LineItems parses the stored item list.
func (r *RFQ) LineItems() ([]LineItem, error) {
	if len(r.Items) == 0 {
		return nil, nil
	}
	var items []LineItem
	if err := json.Unmarshal(r.Items, &items); err != nil {
		return nil, fmt.Errorf("rfq %s has unreadable items: %w", r.ID, err)
	}
	return items, nil
}

func (r *RFQ) SetLineItems(items []LineItem) error {
	b, err := json.Marshal(items)
	if err != nil {
		return err
	}
	r.Items = datatypes.JSON(b)
	return nil
}

// Project rebuilds the form view of the requester and project fields.
func (r *RFQ) Project() ProjectInfo {
	return ProjectInfo{
		RequesterName:  r.RequesterName,
		RequesterEmail: r.RequesterEmail,
		RequesterPhone: r.RequesterPhone,
		ProjectName:    r.ProjectName,
		SiteAddress:    r.ProjectAddress,
		NeededBy:       r.NeededBy,
		Notes:          r.Notes,
	}
}
