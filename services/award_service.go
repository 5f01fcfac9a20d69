package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"mace-backend/config"
	"mace-backend/models"
	"mace-backend/utils"
)

const moduleAward = "award"

type AwardService struct {
	rfqs    RFQStore
	vendors VendorDirectory
	replies ReplyStore
	mailer  Mailer
	tokens  *utils.TokenManager
	links   Links
	log     *logrus.Logger
	now     func() time.Time
}

func NewAwardService(rfqs RFQStore, vendors VendorDirectory, replies ReplyStore, mailer Mailer,
	tokens *utils.TokenManager, links Links, logger *logrus.Logger) *AwardService {
	return &AwardService{
		rfqs:    rfqs,
		vendors: vendors,
		replies: replies,
		mailer:  mailer,
		tokens:  tokens,
		links:   links,
		log:     logger,
		now:     time.Now,
	}
}

func leadTimeString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// GroupReplies groups reply rows by item name, in the order item names first
// appear. Requested price, quantity and unit come from the RFQ's own item of
// that name when there is one.
func GroupReplies(rows []models.VendorReplyItem, originals []models.LineItem) []models.AwardGroup {
	byName := map[string]models.LineItem{}
	for _, it := range originals {
		if _, dup := byName[it.Name]; !dup {
			byName[it.Name] = it
		}
	}

	groups := []models.AwardGroup{}
	index := map[string]int{}
	for _, r := range rows {
		i, ok := index[r.ItemName]
		if !ok {
			g := models.AwardGroup{ItemName: r.ItemName, Quantity: r.Quantity, Unit: r.Unit}
			if orig, found := byName[r.ItemName]; found {
				g.RequestedPrice = orig.Price
				g.Quantity = orig.Quantity
				g.Unit = orig.Unit
			}
			i = len(groups)
			index[r.ItemName] = i
			groups = append(groups, g)
		}
		groups[i].Vendors = append(groups[i].Vendors, models.VendorQuote{
			VendorName:     r.VendorName,
			VendorEmail:    r.VendorEmail,
			ReplyID:        r.ReplyID,
			QuotedPrice:    r.UnitPrice,
			TotalPrice:     r.TotalPrice,
			DeliveryCharge: r.DeliveryCharge,
			Discount:       r.Discount,
			LeadTime:       leadTimeString(r.LeadTime),
			Substitutions:  r.Substitutions,
			Notes:          r.Notes,
			FileLink:       r.FileLink,
			Size:           r.Size,
			Unit:           r.Unit,
			Quantity:       r.Quantity,
			Status:         r.Status,
		})
	}
	return groups
}

// Items is the award page read path.
func (s *AwardService) Items(ctx context.Context, rfqID, token string) (*models.AwardItemsResponse, error) {
	if _, err := s.tokens.VerifyRequester(token, rfqID); err != nil {
		return nil, err
	}
	return s.loadGroups(ctx, rfqID)
}

func (s *AwardService) loadGroups(ctx context.Context, rfqID string) (*models.AwardItemsResponse, error) {
	rfq, err := s.rfqs.GetRFQ(ctx, rfqID)
	if err != nil {
		return nil, err
	}
	originals, err := rfq.LineItems()
	if err != nil {
		return nil, err
	}
	rows, err := s.replies.ListReplyItems(ctx, rfqID)
	if err != nil {
		return nil, err
	}
	return &models.AwardItemsResponse{
		RFQID:   rfqID,
		Project: rfq.Project(),
		Items:   GroupReplies(rows, originals),
	}, nil
}

// Award marks the vendor's rows for an item as awarded and notifies both
// sides. Awarding the same item again, to the same or another vendor, is
// allowed and leaves earlier winners untouched.
func (s *AwardService) Award(ctx context.Context, rfqID, token string, req models.AwardRequest) (*models.AwardResponse, error) {
	claims, err := s.tokens.VerifyRequester(token, rfqID)
	if err != nil {
		return nil, err
	}
	itemName := strings.TrimSpace(req.ItemName)
	vendorName := strings.TrimSpace(req.VendorName)
	if itemName == "" || vendorName == "" {
		return nil, fmt.Errorf("%w: item_name and vendor_name are required", utils.ErrValidation)
	}

	updated, err := s.replies.MarkAwarded(ctx, rfqID, itemName, vendorName)
	if err != nil {
		return nil, err
	}
	if updated == 0 {
		return nil, fmt.Errorf("%w: no items updated", utils.ErrNotFound)
	}

	logger := s.log.WithFields(logrus.Fields{"rfqId": rfqID, "item": itemName, "vendor": vendorName})
	resp := &models.AwardResponse{Success: true, Updated: updated}

	vendorEmail := s.winnerEmail(ctx, rfqID, itemName, vendorName)
	rfq, err := s.rfqs.GetRFQ(ctx, rfqID)
	if err != nil {
		config.LogError(s.log, moduleAward, "Award", "rfq details unavailable for notifications", rfqID, err)
		rfq = nil
	}

	data := models.EmailData{RFQID: rfqID}
	if rfq != nil {
		data = projectEmailData(rfq)
	}
	data.ItemName = itemName
	data.VendorName = vendorName
	data.VendorEmail = vendorEmail

	resp.RequesterEmailSent = try(s.log, moduleAward, "sendRequesterAward", rfqID, func() error {
		d := data
		d.To = claims.Email
		d.Link = s.links.Award(rfqID, token)
		return s.mailer.Send(ctx, models.TemplateRequesterAward, d)
	}).OK()

	if vendorEmail != "" && rfq != nil {
		resp.VendorEmailSent = try(s.log, moduleAward, "sendVendorAward", vendorName, func() error {
			d := data
			d.To = vendorEmail
			return s.mailer.Send(ctx, models.TemplateVendorAward, d)
		}).OK()
	} else {
		logger.Warn("vendor award notification not sent: vendor email or rfq details missing")
	}

	logger.WithField("updated", updated).Info("item awarded")
	return resp, nil
}

// winnerEmail prefers the directory's current address and falls back to the
// one captured with the reply.
func (s *AwardService) winnerEmail(ctx context.Context, rfqID, itemName, vendorName string) string {
	v, err := newVendorResolver(s.vendors).resolve(ctx, vendorName)
	if err == nil {
		return v.Email
	}
	if !errors.Is(err, utils.ErrNotFound) {
		config.LogError(s.log, moduleAward, "winnerEmail", "vendor lookup failed", vendorName, err)
	}
	row, err := s.replies.LatestReplyItem(ctx, rfqID, itemName, vendorName)
	if err != nil {
		config.LogError(s.log, moduleAward, "winnerEmail", "no reply row for vendor", vendorName, err)
		return ""
	}
	return row.VendorEmail
}
