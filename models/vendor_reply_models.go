package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"mace-backend/utils"
)

const ReplyStatusAwarded = "awarded"

// VendorReplyItem is one vendor's quote for one item of one RFQ. All rows of
// a single submission share ReplyID.
type VendorReplyItem struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	RFQID          string          `gorm:"column:rfq_id;not null;index:idx_reply_lookup,priority:1" json:"rfqId"`
	ReplyID        string          `gorm:"not null;index" json:"replyId"`
	VendorName     string          `gorm:"not null;index:idx_reply_lookup,priority:3" json:"vendorName"`
	VendorEmail    string          `gorm:"not null" json:"vendorEmail"`
	ItemName       string          `gorm:"not null;index:idx_reply_lookup,priority:2" json:"itemName"`
	Size           string          `json:"size"`
	Unit           string          `json:"unit"`
	Quantity       decimal.Decimal `gorm:"type:numeric(14,3)" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:numeric(14,2)" json:"unitPrice"`
	TotalPrice     decimal.Decimal `gorm:"type:numeric(14,2)" json:"totalPrice"`
	Discount       decimal.Decimal `gorm:"type:numeric(14,2)" json:"discount"`
	DeliveryCharge decimal.Decimal `gorm:"type:numeric(14,2)" json:"deliveryCharge"`
	LeadTime       *time.Time      `gorm:"type:date" json:"leadTime"`
	Substitutions  string          `json:"substitutions"`
	Notes          string          `json:"notes"`
	FileLink       string          `json:"fileLink"`
	Status         string          `gorm:"index" json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (VendorReplyItem) TableName() string {
	return "vendor_reply_items"
}

func (v VendorReplyItem) IsAwarded() bool {
	return v.Status == ReplyStatusAwarded
}

// ItemReply is a vendor's answer for one item as submitted by the reply form.
type ItemReply struct {
	ItemName      string          `json:"itemName"`
	UnitPrice     decimal.Decimal `json:"pricing"`
	LeadTime      string          `json:"leadTime"`
	Substitutions string          `json:"substitutions"`
	Notes         string          `json:"notes"`
}

var (
	replyNameKeys  = []string{"itemName", "item_name", "name", "Item Name"}
	replyPriceKeys = []string{"pricing", "price", "unitPrice", "unit_price"}
	replyLeadKeys  = []string{"leadTime", "lead_time"}
	replySubKeys   = []string{"substitutions", "substitution"}
	replyNotesKeys = []string{"notes", "note"}
)

func (r *ItemReply) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: item reply must be an object", utils.ErrValidation)
	}
	price, err := pickDecimal(raw, replyPriceKeys)
	if err != nil {
		return fmt.Errorf("item reply pricing: %w", err)
	}
	*r = ItemReply{
		ItemName:      pickString(raw, replyNameKeys),
		UnitPrice:     price,
		LeadTime:      pickString(raw, replyLeadKeys),
		Substitutions: pickString(raw, replySubKeys),
		Notes:         pickString(raw, replyNotesKeys),
	}
	return nil
}
