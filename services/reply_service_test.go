package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mace-backend/models"
	"mace-backend/utils"
)

type replyFixture struct {
	rfqs    *memRFQs
	vendors *memVendors
	replies *memReplies
	mailer  *fakeMailer
	sheets  *fakeSheets
	files   *fakeFiles
	tokens  *utils.TokenManager
	svc     *ReplyService
}

func storedRFQ(t *testing.T, id string, items []models.LineItem) *models.RFQ {
	t.Helper()
	p := testProject()
	rfq := &models.RFQ{
		ID:             id,
		RequesterName:  p.RequesterName,
		RequesterEmail: p.RequesterEmail,
		RequesterPhone: p.RequesterPhone,
		ProjectName:    p.ProjectName,
		ProjectAddress: p.SiteAddress,
	}
	require.NoError(t, rfq.SetLineItems(items))
	return rfq
}

func newReplyFixture(t *testing.T) *replyFixture {
	f := &replyFixture{
		rfqs: newMemRFQs(),
		vendors: &memVendors{vendors: []models.Vendor{
			{ID: 1, Name: "Acme Supply", Email: "sales@acme.test"},
		}},
		replies: &memReplies{},
		mailer:  &fakeMailer{},
		sheets:  &fakeSheets{},
		files:   newFakeFiles(),
		tokens:  utils.NewTokenManager(testSecret),
	}
	f.rfqs.rfqs["rfq-1"] = storedRFQ(t, "rfq-1", testItems())
	f.svc = NewReplyService(f.rfqs, f.vendors, f.replies, f.mailer, f.sheets, f.files, f.tokens, quietLogger())
	f.svc.now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }
	return f
}

func (f *replyFixture) vendorToken(t *testing.T, name, email, rfqID string) string {
	t.Helper()
	tok, err := f.tokens.IssueVendorToken(name, email, rfqID)
	require.NoError(t, err)
	return tok
}

func TestReconcileReplies(t *testing.T) {
	all := testItems()
	matched, err := ReconcileReplies(all, itemsForVendor(all, "Acme Supply"), []models.ItemReply{
		{ItemName: "2x4 Stud"},
		{ItemName: "Drywall (renamed)"},
	})
	require.NoError(t, err)
	assert.Equal(t, "2x4 Stud", matched[0].Name)
	assert.Equal(t, "Drywall 1/2", matched[1].Name, "falls back to the vendor's item at the same position")

	_, err = ReconcileReplies(all, itemsForVendor(all, "Gamma Concrete"), []models.ItemReply{{ItemName: "x"}, {ItemName: "y"}})
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestReconcileReplies_EmptyVendorSubsetUsesAllItems(t *testing.T) {
	all := testItems()
	matched, err := ReconcileReplies(all, nil, []models.ItemReply{{ItemName: "?"}, {ItemName: "??"}})
	require.NoError(t, err)
	assert.Equal(t, "Drywall 1/2", matched[1].Name)
}

func TestSubmit_StoresRowsWithOriginalQuantities(t *testing.T) {
	f := newReplyFixture(t)
	tok := f.vendorToken(t, "Acme Supply", "sales@acme.test", "rfq-1")

	resp, err := f.svc.Submit(context.Background(), "rfq-1", tok, ReplySubmission{
		Items: []models.ItemReply{
			{ItemName: "2x4 Stud", UnitPrice: decimal.RequireFromString("3.50"), LeadTime: "2026-03-10"},
			{ItemName: "Drywall 1/2", UnitPrice: decimal.RequireFromString("11"), Substitutions: "5/8 type X"},
		},
		DeliveryCharge: decimal.NewFromInt(75),
		Discount:       decimal.NewFromInt(25),
		SummaryNotes:   "Valid 30 days",
		Files:          map[int][]Attachment{1: {textAttachment("cut-sheet.txt", "sheet")}},
	})
	require.NoError(t, err)

	assert.Equal(t, "rfq-1-sales@acme.test-1772445600000", resp.ReplyID)
	assert.Equal(t, 2, resp.ItemsProcessed)
	assert.Equal(t, 1, resp.FilesUploaded)
	assert.True(t, resp.ConfirmationEmailSent)
	assert.True(t, resp.SheetUpdated)
	assert.Equal(t, "790", resp.Subtotal.String())
	assert.Equal(t, "840", resp.FinalTotal.String())

	require.Len(t, f.replies.rows, 2)
	first, second := f.replies.rows[0], f.replies.rows[1]
	assert.Equal(t, "Acme Supply", first.VendorName)
	assert.Equal(t, "350", first.TotalPrice.String())
	assert.Equal(t, "2026-03-10", first.LeadTime.Format("2006-01-02"))
	assert.Equal(t, "440", second.TotalPrice.String())
	assert.Equal(t, "75", second.DeliveryCharge.String())
	assert.NotEmpty(t, second.FileLink)
	assert.Empty(t, first.FileLink)

	require.Len(t, f.sheets.replies, 1)
	assert.Equal(t, "840.00", f.sheets.replies[0].FinalTotal)
	assert.Equal(t, []string{"sales@acme.test"}, f.mailer.sentTo(models.TemplateReplyConfirmation))
}

// A resubmission adds rows next to the earlier ones instead of replacing
// them. Whether it should supersede the first reply is still undecided.
func TestSubmit_DuplicateSubmissionsAppend(t *testing.T) {
	f := newReplyFixture(t)
	tok := f.vendorToken(t, "Acme Supply", "sales@acme.test", "rfq-1")
	sub := ReplySubmission{Items: []models.ItemReply{{ItemName: "2x4 Stud", UnitPrice: decimal.NewFromInt(3)}}}

	_, err := f.svc.Submit(context.Background(), "rfq-1", tok, sub)
	require.NoError(t, err)
	f.svc.now = func() time.Time { return time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC) }
	_, err = f.svc.Submit(context.Background(), "rfq-1", tok, sub)
	require.NoError(t, err)

	require.Len(t, f.replies.rows, 2)
	assert.NotEqual(t, f.replies.rows[0].ReplyID, f.replies.rows[1].ReplyID)
}

func TestAuthorize(t *testing.T) {
	f := newReplyFixture(t)
	assert.NoError(t, f.svc.Authorize("rfq-1", f.vendorToken(t, "Acme Supply", "sales@acme.test", "rfq-1")))
	assert.ErrorIs(t, f.svc.Authorize("rfq-1", "not-a-token"), utils.ErrUnauthorized)
	assert.ErrorIs(t, f.svc.Authorize("rfq-1", f.vendorToken(t, "Acme Supply", "sales@acme.test", "rfq-9")), utils.ErrForbidden)

	requester, err := f.tokens.IssueRequesterToken("dana@example.com", "rfq-1")
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Authorize("rfq-1", requester), utils.ErrForbidden)
}

func TestSubmit_Rejections(t *testing.T) {
	f := newReplyFixture(t)
	ctx := context.Background()
	good := ReplySubmission{Items: []models.ItemReply{{ItemName: "2x4 Stud", UnitPrice: decimal.NewFromInt(3)}}}

	_, err := f.svc.Submit(ctx, "rfq-1", "not-a-token", good)
	assert.ErrorIs(t, err, utils.ErrUnauthorized)

	_, err = f.svc.Submit(ctx, "rfq-1", f.vendorToken(t, "Acme Supply", "sales@acme.test", "rfq-9"), good)
	assert.ErrorIs(t, err, utils.ErrForbidden)

	_, err = f.svc.Submit(ctx, "rfq-1", f.vendorToken(t, "Nobody", "nobody@x.test", "rfq-1"), good)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	tok := f.vendorToken(t, "Acme Supply", "sales@acme.test", "rfq-1")
	_, err = f.svc.Submit(ctx, "rfq-1", tok, ReplySubmission{})
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = f.svc.Submit(ctx, "rfq-1", tok, ReplySubmission{
		Items:    good.Items,
		Discount: decimal.NewFromInt(-1),
	})
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = f.svc.Submit(ctx, "rfq-1", tok, ReplySubmission{
		Items: []models.ItemReply{{ItemName: "2x4 Stud", LeadTime: "next week"}},
	})
	assert.ErrorIs(t, err, utils.ErrValidation)

	assert.Empty(t, f.replies.rows)
}

func TestSubmit_ConfirmationFailureStillSucceeds(t *testing.T) {
	f := newReplyFixture(t)
	f.mailer.failTo = map[string]bool{"sales@acme.test": true}
	f.sheets.err = errBoom
	tok := f.vendorToken(t, "Acme Supply", "sales@acme.test", "rfq-1")

	resp, err := f.svc.Submit(context.Background(), "rfq-1", tok, ReplySubmission{
		Items: []models.ItemReply{{ItemName: "2x4 Stud", UnitPrice: decimal.NewFromInt(3)}},
	})
	require.NoError(t, err)
	assert.False(t, resp.ConfirmationEmailSent)
	assert.False(t, resp.SheetUpdated)
	assert.Len(t, f.replies.rows, 1)
}
