package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"mace-backend/models"
	"mace-backend/repository"
	"mace-backend/utils"
)

const moduleReply = "vendor_reply"

// ReplySubmission is a parsed vendor reply form. Files are keyed by the
// index of the item reply they belong to.
type ReplySubmission struct {
	Items          []models.ItemReply
	DeliveryCharge decimal.Decimal
	Discount       decimal.Decimal
	SummaryNotes   string
	Files          map[int][]Attachment
}

type ReplyService struct {
	rfqs    RFQStore
	vendors VendorDirectory
	replies ReplyStore
	mailer  Mailer
	sheets  SheetMirror
	files   FileStore
	tokens  *utils.TokenManager
	log     *logrus.Logger
	now     func() time.Time
}

func NewReplyService(rfqs RFQStore, vendors VendorDirectory, replies ReplyStore, mailer Mailer, sheets SheetMirror,
	files FileStore, tokens *utils.TokenManager, logger *logrus.Logger) *ReplyService {
	return &ReplyService{
		rfqs:    rfqs,
		vendors: vendors,
		replies: replies,
		mailer:  mailer,
		sheets:  sheets,
		files:   files,
		tokens:  tokens,
		log:     logger,
		now:     time.Now,
	}
}

// ReconcileReplies pairs every reply with the original line item it answers.
// An exact name match over the whole RFQ wins; otherwise the reply's position
// in the vendor's own item list is used. A reply that matches neither way
// rejects the whole submission.
func ReconcileReplies(all, vendorItems []models.LineItem, replies []models.ItemReply) ([]models.LineItem, error) {
	byName := make(map[string]models.LineItem, len(all))
	for _, it := range all {
		if _, dup := byName[it.Name]; !dup {
			byName[it.Name] = it
		}
	}
	positional := vendorItems
	if len(positional) == 0 {
		positional = all
	}

	matched := make([]models.LineItem, len(replies))
	for i, r := range replies {
		if it, ok := byName[r.ItemName]; ok {
			matched[i] = it
			continue
		}
		if i < len(positional) {
			matched[i] = positional[i]
			continue
		}
		return nil, fmt.Errorf("%w: reply %d (%q) does not match any requested item", utils.ErrValidation, i+1, r.ItemName)
	}
	return matched, nil
}

func parseLeadTime(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d, nil
		}
	}
	return nil, fmt.Errorf("%w: lead time %q is not a date (YYYY-MM-DD)", utils.ErrValidation, s)
}

// Authorize checks the vendor link before the request body is read.
func (s *ReplyService) Authorize(rfqID, token string) error {
	_, err := s.tokens.VerifyVendor(token, rfqID)
	return err
}

// Submit stores one vendor reply. Token, vendor, item reconciliation and the
// row insert are on the critical path; files, the sheet row and the
// confirmation email are not.
func (s *ReplyService) Submit(ctx context.Context, rfqID, token string, sub ReplySubmission) (*models.VendorReplyResponse, error) {
	claims, err := s.tokens.VerifyVendor(token, rfqID)
	if err != nil {
		return nil, err
	}
	vendor, err := s.vendors.FindVendorByEmail(ctx, claims.Email)
	if err != nil {
		return nil, err
	}
	if len(sub.Items) == 0 {
		return nil, fmt.Errorf("%w: itemReplies must be a non-empty array", utils.ErrValidation)
	}
	if sub.DeliveryCharge.IsNegative() || sub.Discount.IsNegative() {
		return nil, fmt.Errorf("%w: deliveryCharges and discount cannot be negative", utils.ErrValidation)
	}

	rfq, err := s.rfqs.GetRFQ(ctx, rfqID)
	if err != nil {
		return nil, err
	}
	originals, err := rfq.LineItems()
	if err != nil {
		return nil, err
	}
	matched, err := ReconcileReplies(originals, itemsForVendor(originals, claims.VendorName), sub.Items)
	if err != nil {
		return nil, err
	}

	leadTimes := make([]*time.Time, len(sub.Items))
	for i, r := range sub.Items {
		if r.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: price for %q cannot be negative", utils.ErrValidation, matched[i].Name)
		}
		if leadTimes[i], err = parseLeadTime(r.LeadTime); err != nil {
			return nil, err
		}
	}

	now := s.now()
	replyID := repository.NewReplyID(rfqID, vendor.Email, now)
	logger := s.log.WithFields(logrus.Fields{"rfqId": rfqID, "replyId": replyID})

	folder, fileLinks, uploaded := s.storeReplyFiles(ctx, replyID, sub.Files)

	rows := make([]models.VendorReplyItem, len(sub.Items))
	subtotal := decimal.Zero
	for i, r := range sub.Items {
		orig := matched[i]
		total := r.UnitPrice.Mul(orig.Quantity)
		subtotal = subtotal.Add(total)
		rows[i] = models.VendorReplyItem{
			RFQID:          rfqID,
			ReplyID:        replyID,
			VendorName:     vendor.Name,
			VendorEmail:    vendor.Email,
			ItemName:       orig.Name,
			Size:           orig.Size,
			Unit:           orig.Unit,
			Quantity:       orig.Quantity,
			UnitPrice:      r.UnitPrice,
			TotalPrice:     total,
			Discount:       sub.Discount,
			DeliveryCharge: sub.DeliveryCharge,
			LeadTime:       leadTimes[i],
			Substitutions:  r.Substitutions,
			Notes:          r.Notes,
			FileLink:       strings.Join(fileLinks[i], ","),
		}
	}
	finalTotal := subtotal.Add(sub.DeliveryCharge).Sub(sub.Discount)

	if err := s.replies.CreateReplyItems(ctx, rows); err != nil {
		return nil, err
	}

	sheet := try(s.log, moduleReply, "AppendVendorReply", replyID, func() error {
		itemsJSON, err := json.Marshal(rows)
		if err != nil {
			return err
		}
		return s.sheets.AppendVendorReply(ctx, ReplySheetRow{
			RFQID:          rfqID,
			ReplyID:        replyID,
			VendorName:     vendor.Name,
			VendorEmail:    vendor.Email,
			SubmittedAt:    now,
			ItemsJSON:      string(itemsJSON),
			Subtotal:       subtotal.StringFixed(2),
			DeliveryCharge: sub.DeliveryCharge.StringFixed(2),
			Discount:       sub.Discount.StringFixed(2),
			FinalTotal:     finalTotal.StringFixed(2),
			SummaryNotes:   sub.SummaryNotes,
			FolderLink:     folder.Link,
		})
	})

	confirm := try(s.log, moduleReply, "sendReplyConfirmation", replyID, func() error {
		data := projectEmailData(rfq)
		data.To = vendor.Email
		data.VendorName = vendor.Name
		data.VendorEmail = vendor.Email
		data.ReplyID = replyID
		data.Total = finalTotal.StringFixed(2)
		data.ItemsHTML = replyItemsHTML(rows)
		return s.mailer.Send(ctx, models.TemplateReplyConfirmation, data)
	})

	logger.WithFields(logrus.Fields{"items": len(rows), "files": uploaded}).Info("vendor reply stored")
	return &models.VendorReplyResponse{
		ReplyID:               replyID,
		ItemsProcessed:        len(rows),
		FilesUploaded:         uploaded,
		ReplyFolderLink:       folder.Link,
		ConfirmationEmailSent: confirm.OK(),
		SheetUpdated:          sheet.OK(),
		Subtotal:              subtotal,
		FinalTotal:            finalTotal,
		Vendor:                models.VendorSummary{Name: vendor.Name, Email: vendor.Email},
	}, nil
}

// storeReplyFiles uploads the per-item files into one folder for the reply.
// Failures only drop links.
func (s *ReplyService) storeReplyFiles(ctx context.Context, replyID string, files map[int][]Attachment) (Folder, map[int][]string, int) {
	links := map[int][]string{}
	if len(files) == 0 || s.files == nil {
		return Folder{}, links, 0
	}
	var folder Folder
	if a := try(s.log, moduleReply, "CreateFolder", replyID, func() error {
		var err error
		folder, err = s.files.CreateFolder(ctx, "Reply-"+replyID)
		return err
	}); !a.OK() {
		return Folder{}, links, 0
	}

	indexes := make([]int, 0, len(files))
	for idx := range files {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	uploaded := 0
	for _, idx := range indexes {
		for _, att := range files[idx] {
			var link string
			a := try(s.log, moduleReply, "UploadReplyFile", att.Filename, func() error {
				var err error
				link, err = uploadAttachment(ctx, s.files, folder, att)
				return err
			})
			if a.OK() {
				links[idx] = append(links[idx], link)
				uploaded++
			}
		}
	}
	return folder, links, uploaded
}
