package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"mace-backend/models"
	"mace-backend/utils"
)

type awardFixture struct {
	rfqs    *memRFQs
	vendors *memVendors
	replies *memReplies
	mailer  *fakeMailer
	tokens  *utils.TokenManager
	svc     *AwardService
	now     time.Time
}

func newAwardFixture(t *testing.T) *awardFixture {
	f := &awardFixture{
		rfqs: newMemRFQs(),
		vendors: &memVendors{vendors: []models.Vendor{
			{ID: 1, Name: "Acme Supply", Email: "sales@acme.test"},
			{ID: 2, Name: "Beta Lumber", Email: "quotes@beta.test"},
		}},
		replies: &memReplies{},
		mailer:  &fakeMailer{},
		tokens:  utils.NewTokenManager(testSecret),
		now:     time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC),
	}
	f.rfqs.rfqs["rfq-1"] = storedRFQ(t, "rfq-1", testItems())
	lead := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	f.replies.rows = []models.VendorReplyItem{
		{RFQID: "rfq-1", ReplyID: "r-acme", VendorName: "Acme Supply", VendorEmail: "old@acme.test", ItemName: "2x4 Stud",
			Quantity: decimal.NewFromInt(100), UnitPrice: decimal.NewFromFloat(3.5), TotalPrice: decimal.NewFromInt(350),
			DeliveryCharge: decimal.NewFromInt(50), Discount: decimal.NewFromInt(10), LeadTime: &lead},
		{RFQID: "rfq-1", ReplyID: "r-beta", VendorName: "Beta Lumber", VendorEmail: "quotes@beta.test", ItemName: "2x4 Stud",
			Quantity: decimal.NewFromInt(100), UnitPrice: decimal.NewFromInt(4), TotalPrice: decimal.NewFromInt(400)},
		{RFQID: "rfq-1", ReplyID: "r-acme", VendorName: "Acme Supply", VendorEmail: "old@acme.test", ItemName: "Drywall 1/2",
			Quantity: decimal.NewFromInt(40), UnitPrice: decimal.NewFromInt(11), TotalPrice: decimal.NewFromInt(440),
			DeliveryCharge: decimal.NewFromInt(50), Discount: decimal.NewFromInt(10)},
		{RFQID: "rfq-2", ReplyID: "r-other", VendorName: "Acme Supply", ItemName: "2x4 Stud"},
	}
	f.svc = NewAwardService(f.rfqs, f.vendors, f.replies, f.mailer, f.tokens, Links{BaseURL: "https://app.test"}, quietLogger())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *awardFixture) requesterToken(t *testing.T, rfqID string) string {
	t.Helper()
	tok, err := f.tokens.IssueRequesterToken("dana@example.com", rfqID)
	require.NoError(t, err)
	return tok
}

func TestGroupReplies(t *testing.T) {
	f := newAwardFixture(t)
	rows, _ := f.replies.ListReplyItems(context.Background(), "rfq-1")

	groups := GroupReplies(rows, testItems())
	require.Len(t, groups, 2)
	assert.Equal(t, "2x4 Stud", groups[0].ItemName)
	assert.Equal(t, "4", groups[0].RequestedPrice.String())
	assert.Equal(t, "ea", groups[0].Unit)
	require.Len(t, groups[0].Vendors, 2)
	assert.Equal(t, "Acme Supply", groups[0].Vendors[0].VendorName)
	assert.Equal(t, "2026-03-12", groups[0].Vendors[0].LeadTime)
	assert.Equal(t, "Beta Lumber", groups[0].Vendors[1].VendorName)
	assert.Equal(t, "Drywall 1/2", groups[1].ItemName)
}

func TestGroupReplies_UnknownItemKeepsReplyValues(t *testing.T) {
	rows := []models.VendorReplyItem{{ItemName: "Mystery", Unit: "box", Quantity: decimal.NewFromInt(2)}}
	groups := GroupReplies(rows, testItems())
	require.Len(t, groups, 1)
	assert.Equal(t, "box", groups[0].Unit)
	assert.True(t, groups[0].RequestedPrice.IsZero())
}

func TestItems_RequiresRequesterToken(t *testing.T) {
	f := newAwardFixture(t)
	resp, err := f.svc.Items(context.Background(), "rfq-1", f.requesterToken(t, "rfq-1"))
	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, "Harbor Lofts", resp.Project.ProjectName)

	vendorTok, err := f.tokens.IssueVendorToken("Acme Supply", "sales@acme.test", "rfq-1")
	require.NoError(t, err)
	_, err = f.svc.Items(context.Background(), "rfq-1", vendorTok)
	assert.ErrorIs(t, err, utils.ErrForbidden)

	_, err = f.svc.Items(context.Background(), "rfq-1", f.requesterToken(t, "rfq-2"))
	assert.ErrorIs(t, err, utils.ErrForbidden)
}

func TestAward_MarksRowsAndNotifies(t *testing.T) {
	f := newAwardFixture(t)
	resp, err := f.svc.Award(context.Background(), "rfq-1", f.requesterToken(t, "rfq-1"),
		models.AwardRequest{ItemName: "2x4 Stud", VendorName: "Acme Supply"})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.EqualValues(t, 1, resp.Updated)
	assert.True(t, resp.RequesterEmailSent)
	assert.True(t, resp.VendorEmailSent)
	assert.True(t, f.replies.rows[0].IsAwarded())
	assert.False(t, f.replies.rows[1].IsAwarded())
	assert.False(t, f.replies.rows[3].IsAwarded(), "other rfqs are untouched")

	assert.Equal(t, []string{"dana@example.com"}, f.mailer.sentTo(models.TemplateRequesterAward))
	assert.Equal(t, []string{"sales@acme.test"}, f.mailer.sentTo(models.TemplateVendorAward), "directory address wins")
}

func TestAward_TokenScope(t *testing.T) {
	vendorTok, err := utils.NewTokenManager(testSecret).IssueVendorToken("Acme Supply", "sales@acme.test", "rfq-1")
	require.NoError(t, err)
	otherRFQ, err := utils.NewTokenManager(testSecret).IssueRequesterToken("dana@example.com", "rfq-2")
	require.NoError(t, err)

	cases := []struct {
		name  string
		token string
		want  error
	}{
		{"requester token for another rfq", otherRFQ, utils.ErrForbidden},
		{"vendor token", vendorTok, utils.ErrForbidden},
		{"garbage token", "not-a-token", utils.ErrUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAwardFixture(t)
			_, err := f.svc.Award(context.Background(), "rfq-1", tc.token,
				models.AwardRequest{ItemName: "2x4 Stud", VendorName: "Acme Supply"})
			require.ErrorIs(t, err, tc.want)
			for _, row := range f.replies.rows {
				assert.False(t, row.IsAwarded(), row.ReplyID)
			}
			assert.Empty(t, f.mailer.sent)
		})
	}
}

func TestAward_NoMatchingRowsIsNotFound(t *testing.T) {
	f := newAwardFixture(t)
	_, err := f.svc.Award(context.Background(), "rfq-1", f.requesterToken(t, "rfq-1"),
		models.AwardRequest{ItemName: "2x4 Stud", VendorName: "Gamma Concrete"})
	require.ErrorIs(t, err, utils.ErrNotFound)
	assert.Equal(t, 404, utils.StatusFromError(err))
	assert.Empty(t, f.mailer.sent)
}

// Awarding an already awarded item is accepted and the earlier winner keeps
// its status. Whether a second award should instead be rejected, or replace
// the first, is an open product question; this test pins today's behavior.
func TestAward_ReawardIsPermissive(t *testing.T) {
	f := newAwardFixture(t)
	tok := f.requesterToken(t, "rfq-1")
	ctx := context.Background()

	_, err := f.svc.Award(ctx, "rfq-1", tok, models.AwardRequest{ItemName: "2x4 Stud", VendorName: "Acme Supply"})
	require.NoError(t, err)
	again, err := f.svc.Award(ctx, "rfq-1", tok, models.AwardRequest{ItemName: "2x4 Stud", VendorName: "Acme Supply"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, again.Updated)
	assert.Len(t, f.mailer.sentTo(models.TemplateVendorAward), 2, "no dedup of notifications")

	_, err = f.svc.Award(ctx, "rfq-1", tok, models.AwardRequest{ItemName: "2x4 Stud", VendorName: "Beta Lumber"})
	require.NoError(t, err)

	assert.True(t, f.replies.rows[0].IsAwarded())
	assert.True(t, f.replies.rows[1].IsAwarded())
}

func TestAward_VendorFallsBackToReplyEmail(t *testing.T) {
	f := newAwardFixture(t)
	f.vendors.vendors = nil
	resp, err := f.svc.Award(context.Background(), "rfq-1", f.requesterToken(t, "rfq-1"),
		models.AwardRequest{ItemName: "Drywall 1/2", VendorName: "Acme Supply"})
	require.NoError(t, err)
	assert.True(t, resp.VendorEmailSent)
	assert.Equal(t, []string{"old@acme.test"}, f.mailer.sentTo(models.TemplateVendorAward))
}

func TestAward_EmailFailuresAreReported(t *testing.T) {
	f := newAwardFixture(t)
	f.mailer.failTo = map[string]bool{"dana@example.com": true, "sales@acme.test": true}
	resp, err := f.svc.Award(context.Background(), "rfq-1", f.requesterToken(t, "rfq-1"),
		models.AwardRequest{ItemName: "2x4 Stud", VendorName: "Acme Supply"})
	require.NoError(t, err)
	assert.False(t, resp.RequesterEmailSent)
	assert.False(t, resp.VendorEmailSent)
	assert.True(t, f.replies.rows[0].IsAwarded())
}

func TestAward_ValidatesBody(t *testing.T) {
	f := newAwardFixture(t)
	_, err := f.svc.Award(context.Background(), "rfq-1", f.requesterToken(t, "rfq-1"),
		models.AwardRequest{ItemName: " ", VendorName: "Acme Supply"})
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestBuildPurchaseOrder(t *testing.T) {
	f := newAwardFixture(t)
	f.replies.rows[0].Status = models.ReplyStatusAwarded
	f.replies.rows[2].Status = models.ReplyStatusAwarded
	f.replies.rows[1].Status = models.ReplyStatusAwarded

	rows, _ := f.replies.ListReplyItems(context.Background(), "rfq-1")
	po, err := BuildPurchaseOrder(f.rfqs.rfqs["rfq-1"], rows, f.now)
	require.NoError(t, err)

	assert.Len(t, po.Lines, 3)
	assert.Equal(t, []string{"Acme Supply", "Beta Lumber"}, po.Vendors)
	assert.Equal(t, []string{"r-acme", "r-beta"}, po.ReplyIDs)
	assert.Equal(t, "40", po.Adjustments.String(), "delivery less discount counted once per reply")
	assert.Equal(t, "1230", po.Total.String())
	require.NotNil(t, po.LeadTimeDays)
	assert.Equal(t, 7, *po.LeadTimeDays)
}

func TestBuildPurchaseOrder_RequiresAnAward(t *testing.T) {
	f := newAwardFixture(t)
	rows, _ := f.replies.ListReplyItems(context.Background(), "rfq-1")
	_, err := BuildPurchaseOrder(f.rfqs.rfqs["rfq-1"], rows, f.now)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestPurchaseOrder_RecordsSummaryAndRendersPDF(t *testing.T) {
	f := newAwardFixture(t)
	f.replies.rows[0].Status = models.ReplyStatusAwarded
	tok := f.requesterToken(t, "rfq-1")

	po, pdf, err := f.svc.PurchaseOrder(context.Background(), "rfq-1", tok, models.PurchaseOrderRequest{PONotes: " Deliver to gate B "})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
	assert.Regexp(t, `^PO-20260305-[A-Z]{2}\d{5}$`, po.Number)

	stored := f.rfqs.rfqs["rfq-1"]
	assert.Equal(t, models.RFQStatusAwarded, stored.Status)
	assert.Equal(t, "Acme Supply", stored.AwardedVendorName)
	assert.Equal(t, "r-acme", stored.AwardedReplyID)
	assert.Equal(t, "390", stored.AwardedTotalPrice.Decimal.String())
	assert.Equal(t, "Deliver to gate B", stored.PONotes)
	assert.Equal(t, po.Number, stored.PONumber)

	again, _, err := f.svc.PurchaseOrder(context.Background(), "rfq-1", tok, models.PurchaseOrderRequest{})
	require.NoError(t, err)
	assert.Equal(t, po.Number, again.Number)
}

func TestExportComparison(t *testing.T) {
	f := newAwardFixture(t)
	f.replies.rows[1].Status = models.ReplyStatusAwarded

	data, name, err := f.svc.ExportComparison(context.Background(), "rfq-1", f.requesterToken(t, "rfq-1"))
	require.NoError(t, err)
	assert.Equal(t, "rfq-rfq-1-quotes.xlsx", name)

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows(comparisonSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, comparisonHeaders[0], rows[0][0])
	assert.Equal(t, "2x4 Stud", rows[1][0])
	assert.Equal(t, "Beta Lumber", rows[2][4])
	assert.Equal(t, "Awarded", rows[2][13])
}
