package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"mace-backend/config"
	"mace-backend/models"
	"mace-backend/utils"
)

// Tabs of the review spreadsheet.
const (
	SheetTabRFQs          = "RFQs"
	SheetTabVendorReplies = "VendorReplies"
	SheetTabVendors       = "Vendors"
)

// ReplySheetRow is the single consolidated row written per vendor submission.
type ReplySheetRow struct {
	RFQID          string
	ReplyID        string
	VendorName     string
	VendorEmail    string
	SubmittedAt    time.Time
	ItemsJSON      string
	Subtotal       string
	DeliveryCharge string
	Discount       string
	FinalTotal     string
	SummaryNotes   string
	FolderLink     string
}

func (r ReplySheetRow) values() []interface{} {
	return []interface{}{
		r.RFQID, r.ReplyID, r.VendorName, r.VendorEmail, r.SubmittedAt.UTC().Format(time.RFC3339),
		r.ItemsJSON, r.Subtotal, r.DeliveryCharge, r.Discount, r.FinalTotal, r.SummaryNotes, r.FolderLink,
	}
}

func rfqSheetValues(rfq *models.RFQ) []interface{} {
	return []interface{}{
		rfq.ID,
		rfq.CreatedAt.UTC().Format(time.RFC3339),
		rfq.RequesterName,
		rfq.RequesterEmail,
		rfq.RequesterPhone,
		rfq.ProjectName,
		rfq.ProjectAddress,
		rfq.NeededBy,
		rfq.Notes,
		string(rfq.Items),
		strings.Join(rfq.Vendors, ", "),
		rfq.FolderLink,
	}
}

// SheetsService mirrors RFQs and replies into a Google spreadsheet. When the
// sheet is not configured every call fails with a configuration error, which
// callers treat as a skipped best-effort step.
type SheetsService struct {
	sheetID string
	svc     *sheets.Service
	initErr error
	log     *logrus.Logger
}

func NewSheetsService(ctx context.Context, cfg *config.Config, logger *logrus.Logger) *SheetsService {
	s := &SheetsService{sheetID: cfg.SheetID, log: logger}
	if cfg.SheetID == "" {
		s.initErr = fmt.Errorf("%w: GOOGLE_SHEET_ID is not set", utils.ErrConfiguration)
		return s
	}
	ts, err := GoogleTokenSource(ctx, cfg.GoogleServiceAccountJSON, sheets.SpreadsheetsScope)
	if err != nil {
		s.initErr = fmt.Errorf("%w: %v", utils.ErrConfiguration, err)
		return s
	}
	svc, err := sheets.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		s.initErr = fmt.Errorf("%w: sheets client: %v", utils.ErrConfiguration, err)
		return s
	}
	s.svc = svc
	return s
}

func (s *SheetsService) Configured() bool {
	return s.initErr == nil
}

func (s *SheetsService) AppendRFQ(ctx context.Context, rfq *models.RFQ) error {
	return s.append(ctx, SheetTabRFQs, rfqSheetValues(rfq))
}

func (s *SheetsService) AppendVendorReply(ctx context.Context, row ReplySheetRow) error {
	return s.append(ctx, SheetTabVendorReplies, row.values())
}

func (s *SheetsService) append(ctx context.Context, tab string, row []interface{}) error {
	if s.initErr != nil {
		return s.initErr
	}
	_, err := s.svc.Spreadsheets.Values.
		Append(s.sheetID, tab+"!A1", &sheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("%w: append to %s: %v", utils.ErrUpstream, tab, err)
	}
	return nil
}

// ReadRows returns the data rows of tab keyed by the header row.
func (s *SheetsService) ReadRows(ctx context.Context, tab string) ([]map[string]string, error) {
	if s.initErr != nil {
		return nil, s.initErr
	}
	resp, err := s.svc.Spreadsheets.Values.Get(s.sheetID, tab).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", utils.ErrUpstream, tab, err)
	}
	return rowsToRecords(resp.Values), nil
}

func rowsToRecords(values [][]interface{}) []map[string]string {
	if len(values) < 2 {
		return nil
	}
	header := make([]string, len(values[0]))
	for i, h := range values[0] {
		header[i] = strings.TrimSpace(fmt.Sprint(h))
	}
	records := make([]map[string]string, 0, len(values)-1)
	for _, row := range values[1:] {
		rec := make(map[string]string, len(header))
		empty := true
		for i, h := range header {
			if h == "" || i >= len(row) {
				continue
			}
			v := strings.TrimSpace(fmt.Sprint(row[i]))
			if v != "" {
				empty = false
			}
			rec[h] = v
		}
		if !empty {
			records = append(records, rec)
		}
	}
	return records
}
