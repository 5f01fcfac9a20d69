package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"mace-backend/models"
	"mace-backend/utils"
)

// VendorService administers the vendor directory.
type VendorService struct {
	vendors     VendorDirectory
	validate    *validator.Validate
	phoneRegion string
	log         *logrus.Logger
}

func NewVendorService(vendors VendorDirectory, phoneRegion string, logger *logrus.Logger) *VendorService {
	return &VendorService{
		vendors:     vendors,
		validate:    validator.New(),
		phoneRegion: phoneRegion,
		log:         logger,
	}
}

func (s *VendorService) List(ctx context.Context) ([]models.Vendor, error) {
	return s.vendors.ListVendors(ctx)
}

// normalize trims the vendor fields and checks them against the struct tags.
func (s *VendorService) normalize(v *models.Vendor) error {
	v.Name = strings.TrimSpace(v.Name)
	v.Email = strings.TrimSpace(v.Email)
	v.Notes = strings.TrimSpace(v.Notes)
	if v.Phone != "" {
		v.Phone = utils.NormalizePhone(v.Phone, s.phoneRegion)
	}
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrValidation, err)
	}
	return nil
}

func (s *VendorService) Create(ctx context.Context, v models.Vendor) (*models.Vendor, error) {
	v.ID = 0
	if err := s.normalize(&v); err != nil {
		return nil, err
	}
	if err := s.vendors.CreateVendor(ctx, &v); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"vendor": v.Name, "email": v.Email}).Info("vendor created")
	return &v, nil
}

func (s *VendorService) Delete(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: vendor name is required", utils.ErrValidation)
	}
	n, err := s.vendors.DeleteVendorByName(ctx, name)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("vendor %q: %w", name, utils.ErrNotFound)
	}
	s.log.WithFields(logrus.Fields{"vendor": name, "deleted": n}).Info("vendor deleted")
	return nil
}

var (
	vendorNameColumns  = []string{"Vendor Name", "VendorName", "vendorName", "Name", "name"}
	vendorEmailColumns = []string{"Email", "email", "Vendor Email"}
	vendorPhoneColumns = []string{"Phone", "phone"}
	vendorNotesColumns = []string{"Notes", "notes"}
)

// Replace swaps the whole directory for the given sheet rows. Invalid rows
// are skipped and reported; the remaining rows still replace the table.
func (s *VendorService) Replace(ctx context.Context, rows []map[string]string) (*models.SyncResponse, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no vendor data provided", utils.ErrValidation)
	}
	resp := &models.SyncResponse{}
	vendors := make([]models.Vendor, 0, len(rows))
	for i, row := range rows {
		v := models.Vendor{
			Name:  column(row, vendorNameColumns),
			Email: column(row, vendorEmailColumns),
			Phone: column(row, vendorPhoneColumns),
			Notes: column(row, vendorNotesColumns),
		}
		if err := s.normalize(&v); err != nil {
			resp.Skipped++
			resp.Errors = append(resp.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		vendors = append(vendors, v)
	}
	if err := s.vendors.ReplaceAllVendors(ctx, vendors); err != nil {
		return nil, err
	}
	resp.Processed = len(vendors)
	s.log.WithFields(logrus.Fields{"processed": resp.Processed, "skipped": resp.Skipped}).Info("vendors synced")
	return resp, nil
}

func column(row map[string]string, keys []string) string {
	for _, k := range keys {
		if v, ok := row[k]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
