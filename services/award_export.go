package services

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mace-backend/models"
)

const comparisonSheet = "Award Comparison"

var comparisonHeaders = []string{
	"Item", "Requested Price", "Quantity", "Unit", "Vendor", "Vendor Email", "Unit Price", "Total",
	"Delivery Charge", "Discount", "Lead Time", "Substitutions", "Notes", "Status", "Files",
}

// ExportComparison renders every quote of an RFQ into an xlsx workbook.
func (s *AwardService) ExportComparison(ctx context.Context, rfqID, token string) ([]byte, string, error) {
	resp, err := s.Items(ctx, rfqID, token)
	if err != nil {
		return nil, "", err
	}
	f, err := buildComparisonWorkbook(resp)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), fmt.Sprintf("rfq-%s-quotes.xlsx", rfqID), nil
}

func buildComparisonWorkbook(resp *models.AwardItemsResponse) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", comparisonSheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"1F4E78"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	awardedStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C6EFCE"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	for i, h := range comparisonHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(comparisonSheet, cell, h)
	}
	lastCol, _ := excelize.CoordinatesToCellName(len(comparisonHeaders), 1)
	f.SetCellStyle(comparisonSheet, "A1", lastCol, headerStyle)

	titleCaser := cases.Title(language.Und)
	row := 2
	for _, g := range resp.Items {
		requested, _ := g.RequestedPrice.Float64()
		qty, _ := g.Quantity.Float64()
		for _, v := range g.Vendors {
			price, _ := v.QuotedPrice.Float64()
			total, _ := v.TotalPrice.Float64()
			delivery, _ := v.DeliveryCharge.Float64()
			discount, _ := v.Discount.Float64()
			values := []interface{}{
				g.ItemName, requested, qty, g.Unit, v.VendorName, v.VendorEmail, price, total,
				delivery, discount, v.LeadTime, v.Substitutions, v.Notes, titleCaser.String(v.Status), v.FileLink,
			}
			start, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(comparisonSheet, start, &values); err != nil {
				return nil, err
			}
			if v.Status == models.ReplyStatusAwarded {
				end, _ := excelize.CoordinatesToCellName(len(comparisonHeaders), row)
				f.SetCellStyle(comparisonSheet, start, end, awardedStyle)
			}
			row++
		}
	}
	f.SetColWidth(comparisonSheet, "A", "A", 28)
	f.SetColWidth(comparisonSheet, "E", "F", 24)
	f.SetColWidth(comparisonSheet, "L", "O", 30)
	return f, nil
}
