package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"mace-backend/config"
	"mace-backend/models"
	"mace-backend/utils"
)

const moduleSync = "sync"

// SyncService rebuilds database tables from the review spreadsheet, either
// from rows posted by the sheet's script or by reading the sheet directly.
type SyncService struct {
	rfqs    RFQStore
	vendors *VendorService
	catalog *CatalogService
	sheets  SheetMirror
	locker  *redislock.Client
	log     *logrus.Logger
	now     func() time.Time
}

const (
	vendorSyncLockKey = "lock:vendor-sheet-sync"
	vendorSyncTimeout = 2 * time.Minute
)

func NewSyncService(rfqs RFQStore, vendors *VendorService, catalog *CatalogService, sheets SheetMirror, logger *logrus.Logger) *SyncService {
	return &SyncService{rfqs: rfqs, vendors: vendors, catalog: catalog, sheets: sheets, log: logger, now: time.Now}
}

func (s *SyncService) SyncVendors(ctx context.Context, rows []map[string]any) (*models.SyncResponse, error) {
	return s.vendors.Replace(ctx, StringifyRows(rows))
}

func (s *SyncService) SyncMaterials(ctx context.Context, rows []MaterialRow) (*models.SyncResponse, error) {
	return s.catalog.Apply(ctx, rows)
}

// PullVendors reads the Vendors tab and applies it. It is what the
// scheduled job runs.
func (s *SyncService) PullVendors(ctx context.Context) (*models.SyncResponse, error) {
	rows, err := s.sheets.ReadRows(ctx, SheetTabVendors)
	if err != nil {
		return nil, err
	}
	return s.vendors.Replace(ctx, rows)
}

// WithLock makes the scheduled sync take a redis lock first, so that only one
// replica pulls the sheet per tick.
func (s *SyncService) WithLock(locker *redislock.Client) *SyncService {
	s.locker = locker
	return s
}

// RunScheduledVendorSync is the cron entry point; it only logs.
func (s *SyncService) RunScheduledVendorSync() {
	ctx, cancel := context.WithTimeout(context.Background(), vendorSyncTimeout)
	defer cancel()

	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, vendorSyncLockKey, vendorSyncTimeout, nil)
		switch {
		case errors.Is(err, redislock.ErrNotObtained):
			s.log.WithField("lock", vendorSyncLockKey).Info("vendor sync running elsewhere, skipping")
			return
		case err != nil:
			s.log.WithError(err).Warn("redis lock unavailable; syncing without lock")
		default:
			defer lock.Release(context.Background())
		}
	}

	resp, err := s.PullVendors(ctx)
	if err != nil {
		config.LogError(s.log, moduleSync, "RunScheduledVendorSync", "scheduled vendor sync failed", nil, err)
		return
	}
	s.log.WithFields(logrus.Fields{
		"processed": resp.Processed,
		"skipped":   resp.Skipped,
	}).Info("scheduled vendor sync finished")
}

// SyncRFQs clears the RFQ table and recreates it from sheet rows. Rows with
// no id or unreadable items are skipped and reported.
func (s *SyncService) SyncRFQs(ctx context.Context, rows []map[string]any) (*models.SyncResponse, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rfq rows", utils.ErrValidation)
	}
	resp := &models.SyncResponse{}
	rfqs := make([]models.RFQ, 0, len(rows))
	for i, raw := range rows {
		rfq, err := s.rfqFromRow(raw)
		if err != nil {
			resp.Skipped++
			resp.Errors = append(resp.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		rfqs = append(rfqs, *rfq)
	}
	if err := s.rfqs.ReplaceAllRFQs(ctx, rfqs); err != nil {
		return nil, err
	}
	resp.Processed = len(rfqs)
	s.log.WithFields(logrus.Fields{"processed": resp.Processed, "skipped": resp.Skipped}).Info("rfqs synced")
	return resp, nil
}

func (s *SyncService) rfqFromRow(raw map[string]any) (*models.RFQ, error) {
	row := stringifyRecord(raw)
	id := row["rfq_id"]
	if id == "" {
		return nil, fmt.Errorf("%w: rfq_id is required", utils.ErrValidation)
	}

	rfq := &models.RFQ{
		ID:                id,
		RequesterName:     row["requester_name"],
		RequesterEmail:    row["requester_email"],
		RequesterPhone:    row["requester_phone"],
		ProjectName:       row["project_name"],
		ProjectAddress:    row["project_address"],
		NeededBy:          row["needed_by"],
		Notes:             row["notes"],
		FolderLink:        row["drive_folder_url"],
		Status:            row["status"],
		AwardedVendorName: row["awarded_vendor_name"],
		AwardedReplyID:    row["awarded_reply_id"],
		PONumber:          row["po_number"],
		PONotes:           row["po_notes"],
		CreatedAt:         s.timeOr(row["created_at"], s.now()),
		UpdatedAt:         s.timeOr(row["updated_at"], s.now()),
	}

	items, err := jsonColumn(raw["items_json"])
	if err != nil {
		return nil, fmt.Errorf("%w: items_json: %v", utils.ErrValidation, err)
	}
	var parsed []models.LineItem
	if err := json.Unmarshal(items, &parsed); err != nil {
		return nil, fmt.Errorf("%w: items_json: %v", utils.ErrValidation, err)
	}
	rfq.Items = datatypes.JSON(items)

	if vendors, err := jsonColumn(raw["vendors_json"]); err == nil {
		var names []string
		if json.Unmarshal(vendors, &names) == nil {
			rfq.Vendors = pq.StringArray(names)
		}
	}

	if v := row["awarded_total_price"]; v != "" {
		price, err := utils.ParseDecimal(v)
		if err != nil {
			return nil, fmt.Errorf("awarded_total_price: %w", err)
		}
		rfq.AwardedTotalPrice = decimal.NewNullDecimal(price)
	}
	if v := row["awarded_lead_time_days"]; v != "" {
		days, err := strconv.Atoi(strings.Split(v, ".")[0])
		if err != nil {
			return nil, fmt.Errorf("%w: awarded_lead_time_days %q", utils.ErrValidation, v)
		}
		rfq.AwardedLeadTimeDays = &days
	}
	rfq.DecisionAt = parseSheetTime(row["decision_at"])
	rfq.PODate = parseSheetTime(row["po_date"])
	return rfq, nil
}

func (s *SyncService) timeOr(v string, fallback time.Time) time.Time {
	if t := parseSheetTime(v); t != nil {
		return *t
	}
	return fallback
}

var sheetTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006",
}

func parseSheetTime(v string) *time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	for _, layout := range sheetTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

// jsonColumn accepts a column that holds either JSON text or an already
// decoded value.
func jsonColumn(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("missing")
	case string:
		val = strings.TrimSpace(val)
		if val == "" {
			return nil, fmt.Errorf("missing")
		}
		if !json.Valid([]byte(val)) {
			return nil, fmt.Errorf("invalid JSON")
		}
		return []byte(val), nil
	default:
		return json.Marshal(val)
	}
}

// StringifyRows flattens posted sheet rows into the string form ReadRows
// produces.
func StringifyRows(rows []map[string]any) []map[string]string {
	out := make([]map[string]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, stringifyRecord(r))
	}
	return out
}

func stringifyRecord(r map[string]any) map[string]string {
	rec := make(map[string]string, len(r))
	for k, v := range r {
		switch val := v.(type) {
		case nil:
			rec[k] = ""
		case string:
			rec[k] = strings.TrimSpace(val)
		case float64:
			rec[k] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			rec[k] = strings.TrimSpace(fmt.Sprint(val))
		}
	}
	return rec
}
