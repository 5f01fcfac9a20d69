package services

import (
	"fmt"
	"html"
	"strings"

	"mace-backend/models"
)

func lineItemsHTML(items []models.LineItem) string {
	var b strings.Builder
	b.WriteString(`<table border="1" cellpadding="6" cellspacing="0"><tr><th>Category</th><th>Item</th><th>Size</th><th>Unit</th><th>Quantity</th></tr>`)
	for _, it := range items {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
			html.EscapeString(it.Category), html.EscapeString(it.Name), html.EscapeString(it.Size),
			html.EscapeString(it.Unit), it.Quantity.String())
	}
	b.WriteString("</table>")
	return b.String()
}

func replyItemsHTML(rows []models.VendorReplyItem) string {
	var b strings.Builder
	b.WriteString(`<table border="1" cellpadding="6" cellspacing="0"><tr><th>Item</th><th>Quantity</th><th>Unit price</th><th>Total</th><th>Lead time</th></tr>`)
	for _, r := range rows {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s %s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
			html.EscapeString(r.ItemName), r.Quantity.String(), html.EscapeString(r.Unit),
			r.UnitPrice.StringFixed(2), r.TotalPrice.StringFixed(2), leadTimeString(r.LeadTime))
	}
	b.WriteString("</table>")
	return b.String()
}

func fileLinksHTML(links []string) string {
	if len(links) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("<h3>Attachments</h3><ul>")
	for _, l := range links {
		e := html.EscapeString(l)
		fmt.Fprintf(&b, `<li><a href="%s">%s</a></li>`, e, e)
	}
	b.WriteString("</ul>")
	return b.String()
}

func projectEmailData(rfq *models.RFQ) models.EmailData {
	return models.EmailData{
		RFQID:          rfq.ID,
		ProjectName:    rfq.ProjectName,
		ProjectAddress: rfq.ProjectAddress,
		NeededBy:       rfq.NeededBy,
		ProjectNotes:   rfq.Notes,
		RequesterName:  rfq.RequesterName,
		RequesterEmail: rfq.RequesterEmail,
		RequesterPhone: rfq.RequesterPhone,
	}
}
