package handlers

import (
	"context"
	"io"

	"mace-backend/models"
	"mace-backend/services"
)

// The handlers depend on these narrow views of the services so that they
// can be exercised with stubs.
type (
	RFQWorkflow interface {
		Create(ctx context.Context, in services.CreateRFQInput) (*models.CreateRFQResponse, error)
		VendorItems(ctx context.Context, rfqID, token string) (*models.VendorItemsResponse, error)
	}

	ReplyWorkflow interface {
		Authorize(rfqID, token string) error
		Submit(ctx context.Context, rfqID, token string, sub services.ReplySubmission) (*models.VendorReplyResponse, error)
	}

	AwardWorkflow interface {
		Items(ctx context.Context, rfqID, token string) (*models.AwardItemsResponse, error)
		Award(ctx context.Context, rfqID, token string, req models.AwardRequest) (*models.AwardResponse, error)
		ExportComparison(ctx context.Context, rfqID, token string) ([]byte, string, error)
		PurchaseOrder(ctx context.Context, rfqID, token string, req models.PurchaseOrderRequest) (*services.PurchaseOrder, []byte, error)
	}

	VendorAdmin interface {
		List(ctx context.Context) ([]models.Vendor, error)
		Create(ctx context.Context, v models.Vendor) (*models.Vendor, error)
		Delete(ctx context.Context, name string) error
	}

	Catalog interface {
		ListMaterials(ctx context.Context, f models.MaterialFilter) ([]models.Material, error)
		Categories(ctx context.Context) ([]string, error)
		ImportXLSX(ctx context.Context, r io.Reader) (*models.SyncResponse, error)
	}

	SheetSync interface {
		SyncVendors(ctx context.Context, rows []map[string]any) (*models.SyncResponse, error)
		SyncMaterials(ctx context.Context, rows []services.MaterialRow) (*models.SyncResponse, error)
		SyncRFQs(ctx context.Context, rows []map[string]any) (*models.SyncResponse, error)
	}

	TemplateAdmin interface {
		List(ctx context.Context, templateType string) ([]models.EmailTemplate, error)
		Get(ctx context.Context, id uint) (*models.EmailTemplate, error)
		Create(ctx context.Context, req models.EmailTemplateRequest) (*models.EmailTemplate, error)
		Update(ctx context.Context, id uint, req models.EmailTemplateRequest) (*models.EmailTemplate, error)
		Delete(ctx context.Context, id uint) error
	}
)
