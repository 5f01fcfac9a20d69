package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/sirupsen/logrus"

	"mace-backend/config"
	"mace-backend/models"
)

// Stores the workflow services depend on. The gorm repositories satisfy
// them in production; tests use in-memory fakes.
type (
	RFQStore interface {
		CreateRFQ(ctx context.Context, rfq *models.RFQ) error
		GetRFQ(ctx context.Context, id string) (*models.RFQ, error)
		UpdateAwardSummary(ctx context.Context, rfq *models.RFQ) error
		ReplaceAllRFQs(ctx context.Context, rfqs []models.RFQ) error
	}

	VendorDirectory interface {
		ListVendors(ctx context.Context) ([]models.Vendor, error)
		FindVendorByName(ctx context.Context, name string) (*models.Vendor, error)
		FindVendorByEmail(ctx context.Context, email string) (*models.Vendor, error)
		CreateVendor(ctx context.Context, v *models.Vendor) error
		DeleteVendorByName(ctx context.Context, name string) (int64, error)
		ReplaceAllVendors(ctx context.Context, vendors []models.Vendor) error
	}

	ReplyStore interface {
		CreateReplyItems(ctx context.Context, items []models.VendorReplyItem) error
		ListReplyItems(ctx context.Context, rfqID string) ([]models.VendorReplyItem, error)
		MarkAwarded(ctx context.Context, rfqID, itemName, vendorName string) (int64, error)
		LatestReplyItem(ctx context.Context, rfqID, itemName, vendorName string) (*models.VendorReplyItem, error)
	}

	MaterialStore interface {
		ListMaterials(ctx context.Context, f models.MaterialFilter) ([]models.Material, error)
		ListCategories(ctx context.Context) ([]string, error)
		UpsertMaterial(ctx context.Context, m *models.Material) error
	}

	TemplateStore interface {
		FindActiveTemplate(ctx context.Context, templateType string) (*models.EmailTemplate, error)
	}
)

// Mailer renders a template type with data and delivers it to data.To.
type Mailer interface {
	Ready() error
	Send(ctx context.Context, templateType string, data models.EmailData) error
}

// SheetMirror keeps the review spreadsheet in step with the database.
type SheetMirror interface {
	AppendRFQ(ctx context.Context, rfq *models.RFQ) error
	AppendVendorReply(ctx context.Context, row ReplySheetRow) error
	ReadRows(ctx context.Context, tab string) ([]map[string]string, error)
}

// Folder is a storage location for one RFQ or one reply.
type Folder struct {
	ID   string
	Link string
}

// FileStore persists attachments and returns shareable links.
type FileStore interface {
	CreateFolder(ctx context.Context, name string) (Folder, error)
	Upload(ctx context.Context, folder Folder, name, contentType string, r io.Reader) (string, error)
}

// Attachment is an uploaded file not yet stored.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

func AttachmentFromHeader(fh *multipart.FileHeader) Attachment {
	return Attachment{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// Attempt records the outcome of a best-effort side effect. Callers report
// it in the response instead of returning the error.
type Attempt struct {
	Name string
	Err  error
}

func (a Attempt) OK() bool {
	return a.Err == nil
}

// try runs fn, logging and capturing a failure instead of propagating it.
func try(logger *logrus.Logger, module, name string, data any, fn func() error) (a Attempt) {
	a.Name = name
	defer func() {
		if r := recover(); r != nil {
			a.Err = fmt.Errorf("panic in %s: %v", name, r)
			config.LogError(logger, module, name, "best-effort step panicked", data, a.Err)
		}
	}()
	a.Err = fn()
	if a.Err != nil {
		config.LogError(logger, module, name, "best-effort step failed", data, a.Err)
	}
	return a
}

// Links builds the frontend URLs embedded in emails.
type Links struct {
	BaseURL string
}

func (l Links) VendorReply(rfqID, token string) string {
	return fmt.Sprintf("%s/vendor-reply/%s/%s", l.BaseURL, rfqID, token)
}

func (l Links) Award(rfqID, token string) string {
	return fmt.Sprintf("%s/award/%s/%s", l.BaseURL, rfqID, token)
}
