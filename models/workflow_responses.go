package models

import "github.com/shopspring/decimal"

// CreateRFQResponse summarizes a distribution run. The three email counters
// always add up to the number of distinct vendors named by the items.
type CreateRFQResponse struct {
	RFQID          string   `json:"rfqId" example:"01HZX3J6Q4V8N2K7M5T9B1C0DE"`
	FolderLink     string   `json:"folderLink"`
	FileLinks      []string `json:"fileLinks"`
	SheetUpdated   bool     `json:"sheetUpdated"`
	EmailsSent     int      `json:"emailsSent"`
	EmailsSkipped  int      `json:"emailsSkipped"`
	EmailsFailed   int      `json:"emailsFailed"`
	SkippedVendors []string `json:"skippedVendors"`
	AwardEmailSent bool     `json:"awardEmailSent"`
}

type VendorItemsResponse struct {
	RFQID       string      `json:"rfqId"`
	VendorName  string      `json:"vendorName"`
	VendorEmail string      `json:"vendorEmail"`
	Project     ProjectInfo `json:"project"`
	Items       []LineItem  `json:"items"`
}

type VendorReplyResponse struct {
	ReplyID               string          `json:"replyId"`
	ItemsProcessed        int             `json:"itemsProcessed"`
	FilesUploaded         int             `json:"filesUploaded"`
	ReplyFolderLink       string          `json:"replyFolderLink"`
	ConfirmationEmailSent bool            `json:"confirmationEmailSent"`
	SheetUpdated          bool            `json:"sheetUpdated"`
	Subtotal              decimal.Decimal `json:"subtotal"`
	FinalTotal            decimal.Decimal `json:"finalTotal"`
	Vendor                VendorSummary   `json:"vendor"`
}

type VendorSummary struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// VendorQuote is one vendor's entry under an award group.
type VendorQuote struct {
	VendorName     string          `json:"vendorName"`
	VendorEmail    string          `json:"vendorEmail"`
	ReplyID        string          `json:"replyId"`
	QuotedPrice    decimal.Decimal `json:"quotedPrice"`
	TotalPrice     decimal.Decimal `json:"totalPrice"`
	DeliveryCharge decimal.Decimal `json:"deliveryCharge"`
	Discount       decimal.Decimal `json:"discount"`
	LeadTime       string          `json:"leadTime"`
	Substitutions  string          `json:"substitutions"`
	Notes          string          `json:"notes"`
	FileLink       string          `json:"fileLink"`
	Size           string          `json:"size"`
	Unit           string          `json:"unit"`
	Quantity       decimal.Decimal `json:"quantity"`
	Status         string          `json:"status"`
}

// AwardGroup collects every quote for one item name.
type AwardGroup struct {
	ItemName       string          `json:"itemName"`
	RequestedPrice decimal.Decimal `json:"requestedPrice"`
	Quantity       decimal.Decimal `json:"quantity"`
	Unit           string          `json:"unit"`
	Vendors        []VendorQuote   `json:"vendors"`
}

type AwardItemsResponse struct {
	RFQID   string       `json:"rfqId"`
	Project ProjectInfo  `json:"project"`
	Items   []AwardGroup `json:"items"`
}

type AwardRequest struct {
	ItemName   string `json:"item_name" binding:"required" example:"2x4 Stud"`
	VendorName string `json:"vendor_name" binding:"required" example:"Acme"`
}

type AwardResponse struct {
	Success            bool  `json:"success"`
	Updated            int64 `json:"updated"`
	RequesterEmailSent bool  `json:"requesterEmailSent"`
	VendorEmailSent    bool  `json:"vendorEmailSent"`
}

type PurchaseOrderRequest struct {
	PONotes string `json:"po_notes"`
}

type SyncResponse struct {
	Processed int      `json:"processed"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
}
