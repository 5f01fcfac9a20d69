package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"

	"mace-backend/models"
	"mace-backend/repository"
	"mace-backend/utils"
)

// PurchaseOrder is the award outcome of an RFQ rendered for the buyer.
type PurchaseOrder struct {
	Number       string
	Date         time.Time
	RFQ          *models.RFQ
	Lines        []models.VendorReplyItem
	Adjustments  decimal.Decimal
	Total        decimal.Decimal
	LeadTimeDays *int
	Vendors      []string
	ReplyIDs     []string
	Notes        string
	Link         string
}

// BuildPurchaseOrder totals the awarded rows. Delivery charges and
// discounts are per submission, so they are counted once per reply id.
func BuildPurchaseOrder(rfq *models.RFQ, rows []models.VendorReplyItem, at time.Time) (*PurchaseOrder, error) {
	po := &PurchaseOrder{RFQ: rfq, Date: at}
	seenVendor := map[string]bool{}
	seenReply := map[string]bool{}
	maxLead := -1

	for _, r := range rows {
		if !r.IsAwarded() {
			continue
		}
		po.Lines = append(po.Lines, r)
		po.Total = po.Total.Add(r.TotalPrice)
		if !seenVendor[r.VendorName] {
			seenVendor[r.VendorName] = true
			po.Vendors = append(po.Vendors, r.VendorName)
		}
		if !seenReply[r.ReplyID] {
			seenReply[r.ReplyID] = true
			po.ReplyIDs = append(po.ReplyIDs, r.ReplyID)
			po.Adjustments = po.Adjustments.Add(r.DeliveryCharge).Sub(r.Discount)
		}
		if r.LeadTime != nil {
			days := int(math.Ceil(r.LeadTime.Sub(at).Hours() / 24))
			if days < 0 {
				days = 0
			}
			if days > maxLead {
				maxLead = days
			}
		}
	}
	if len(po.Lines) == 0 {
		return nil, fmt.Errorf("%w: no awarded items on rfq %s", utils.ErrNotFound, rfq.ID)
	}
	po.Total = po.Total.Add(po.Adjustments)
	if maxLead >= 0 {
		po.LeadTimeDays = &maxLead
	}
	sort.SliceStable(po.Lines, func(i, j int) bool {
		return po.Lines[i].VendorName < po.Lines[j].VendorName
	})
	return po, nil
}

// PurchaseOrder records the award summary on the RFQ and renders the PO. An
// RFQ keeps its PO number across regenerations.
func (s *AwardService) PurchaseOrder(ctx context.Context, rfqID, token string, req models.PurchaseOrderRequest) (*PurchaseOrder, []byte, error) {
	if _, err := s.tokens.VerifyRequester(token, rfqID); err != nil {
		return nil, nil, err
	}
	rfq, err := s.rfqs.GetRFQ(ctx, rfqID)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.replies.ListReplyItems(ctx, rfqID)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	po, err := BuildPurchaseOrder(rfq, rows, now)
	if err != nil {
		return nil, nil, err
	}

	po.Number = rfq.PONumber
	if po.Number == "" {
		po.Number = repository.GeneratePONumber(now)
	}
	po.Notes = strings.TrimSpace(req.PONotes)
	po.Link = s.links.Award(rfqID, token)

	rfq.Status = models.RFQStatusAwarded
	rfq.AwardedVendorName = strings.Join(po.Vendors, ", ")
	rfq.AwardedReplyID = strings.Join(po.ReplyIDs, ", ")
	rfq.AwardedTotalPrice = decimal.NewNullDecimal(po.Total.Round(2))
	rfq.AwardedLeadTimeDays = po.LeadTimeDays
	rfq.DecisionAt = &now
	rfq.PONumber = po.Number
	rfq.PODate = &now
	rfq.PONotes = po.Notes
	if err := s.rfqs.UpdateAwardSummary(ctx, rfq); err != nil {
		return nil, nil, err
	}

	pdf, err := RenderPurchaseOrderPDF(po)
	if err != nil {
		return nil, nil, err
	}
	return po, pdf, nil
}

func RenderPurchaseOrderPDF(po *PurchaseOrder) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(130, 10, "PURCHASE ORDER")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(130, 6, fmt.Sprintf("PO No: %s", po.Number))
	pdf.Ln(6)
	pdf.Cell(130, 6, fmt.Sprintf("PO Date: %s", po.Date.Format("02-Jan-2006")))
	pdf.Ln(6)
	pdf.Cell(130, 6, fmt.Sprintf("RFQ: %s", po.RFQ.ID))
	pdf.Ln(10)

	qr, err := purchaseOrderQR(po.Link, po.Number)
	if err != nil {
		return nil, err
	}
	pdf.RegisterImageOptionsReader("po-qr", gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qr))
	pdf.ImageOptions("po-qr", 150, 10, 50, 0, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(95, 8, "Buyer")
	pdf.Cell(95, 8, "Project")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	y := pdf.GetY()
	pdf.MultiCell(90, 6, tr(fmt.Sprintf("%s\n%s\n%s", po.RFQ.RequesterName, po.RFQ.RequesterEmail, po.RFQ.RequesterPhone)), "", "", false)
	pdf.SetXY(105, y)
	pdf.MultiCell(90, 6, tr(fmt.Sprintf("%s\n%s\nNeeded by: %s", po.RFQ.ProjectName, po.RFQ.ProjectAddress, po.RFQ.NeededBy)), "", "", false)
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(240, 240, 240)
	widths := []float64{50, 40, 22, 26, 26, 26}
	for i, h := range []string{"Item", "Vendor", "Qty", "Unit Price", "Total", "Lead Time"} {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, l := range po.Lines {
		lead := leadTimeString(l.LeadTime)
		cells := []string{
			tr(l.ItemName), tr(l.VendorName), fmt.Sprintf("%s %s", l.Quantity.String(), tr(l.Unit)),
			l.UnitPrice.StringFixed(2), l.TotalPrice.StringFixed(2), lead,
		}
		for i, v := range cells {
			align := "L"
			if i >= 2 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 7, v, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(164, 7, "Delivery less discounts", "1", 0, "R", false, 0, "")
	pdf.CellFormat(26, 7, po.Adjustments.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)
	pdf.CellFormat(164, 7, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(26, 7, po.Total.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.Ln(10)

	if po.Notes != "" {
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(190, 6, "Notes")
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(190, 6, tr(po.Notes), "", "", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render purchase order: %w", err)
	}
	return buf.Bytes(), nil
}

// purchaseOrderQR encodes link as a QR code with caption printed beneath it.
func purchaseOrderQR(link, caption string) ([]byte, error) {
	qr, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr code generation failed: %w", err)
	}
	qrImg := qr.Image(256)
	size := qrImg.Bounds().Dx()
	lineHeight := 24

	img := image.NewRGBA(image.Rect(0, 0, size, size+lineHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, 0, size, size), qrImg, image.Point{}, draw.Src)

	face := inconsolata.Bold8x16
	width := font.MeasureString(face, caption).Ceil()
	x := (size - width) / 2
	if x < 0 {
		x = 0
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot:  fixed.P(x, size+lineHeight-6),
	}
	d.DrawString(caption)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
