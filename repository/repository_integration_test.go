package repository

import (
	"context"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mace-backend/models"
	"mace-backend/storage"
	"mace-backend/utils"
)

// testDB connects to TEST_DATABASE_DSN. The tables it touches are emptied,
// so point it at a throwaway database.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, storage.AutoMigrate(db))
	require.NoError(t, db.Exec("TRUNCATE rfqs, vendors, vendor_reply_items, materials, email_templates RESTART IDENTITY").Error)
	t.Cleanup(func() { storage.Close(db) })
	return db
}

func TestVendorRepository_Integration(t *testing.T) {
	db := testDB(t)
	repo := NewVendorRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.ReplaceAllVendors(ctx, []models.Vendor{
		{Name: "Acme Supply", Email: "Sales@Acme.test"},
		{Name: "Acme Supply", Email: "second@acme.test"},
	}))

	v, err := repo.FindVendorByName(ctx, "Acme Supply")
	require.NoError(t, err)
	assert.Equal(t, "Sales@Acme.test", v.Email)

	_, err = repo.FindVendorByEmail(ctx, "sales@acme.test")
	require.NoError(t, err)

	_, err = repo.FindVendorByName(ctx, "Nobody")
	assert.ErrorIs(t, err, utils.ErrNotFound)

	n, err := repo.DeleteVendorByName(ctx, "Acme Supply")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestReplyRepository_Integration(t *testing.T) {
	db := testDB(t)
	repo := NewReplyRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateReplyItems(ctx, []models.VendorReplyItem{
		{RFQID: "rfq-1", ReplyID: "r1", VendorName: "Acme Supply", VendorEmail: "a@acme.test", ItemName: "2x4 Stud", UnitPrice: decimal.NewFromInt(4)},
		{RFQID: "rfq-1", ReplyID: "r2", VendorName: "Acme Supply", VendorEmail: "b@acme.test", ItemName: "2x4 Stud", UnitPrice: decimal.NewFromInt(3)},
		{RFQID: "rfq-1", ReplyID: "r3", VendorName: "Beta Lumber", VendorEmail: "q@beta.test", ItemName: "2x4 Stud"},
	}))

	n, err := repo.MarkAwarded(ctx, "rfq-1", "2x4 Stud", "Acme Supply")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	latest, err := repo.LatestReplyItem(ctx, "rfq-1", "2x4 Stud", "Acme Supply")
	require.NoError(t, err)
	assert.Equal(t, "b@acme.test", latest.VendorEmail)

	rows, err := repo.ListReplyItems(ctx, "rfq-1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.True(t, rows[0].IsAwarded())
	assert.False(t, rows[2].IsAwarded())
}

func TestRFQRepository_Integration(t *testing.T) {
	db := testDB(t)
	repo := NewRFQRepository(db)
	ctx := context.Background()

	rfq := &models.RFQ{ID: NewRFQID(), RequesterName: "Dana", RequesterEmail: "dana@example.com", RequesterPhone: "+16502530000"}
	require.NoError(t, rfq.SetLineItems([]models.LineItem{{Name: "2x4 Stud", Quantity: decimal.NewFromInt(10)}}))
	require.NoError(t, repo.CreateRFQ(ctx, rfq))

	rfq.Status = models.RFQStatusAwarded
	rfq.PONumber = "PO-20260305-KX48213"
	require.NoError(t, repo.UpdateAwardSummary(ctx, rfq))

	got, err := repo.GetRFQ(ctx, rfq.ID)
	require.NoError(t, err)
	assert.Equal(t, "PO-20260305-KX48213", got.PONumber)
	items, err := got.LineItems()
	require.NoError(t, err)
	assert.Equal(t, "2x4 Stud", items[0].Name)

	_, err = repo.GetRFQ(ctx, "missing")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}
