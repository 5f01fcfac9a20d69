package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"mace-backend/config"
	"mace-backend/models"
	"mace-backend/repository"
	"mace-backend/utils"
)

const moduleRFQ = "rfq"

// CreateRFQInput is a parsed quote request.
type CreateRFQInput struct {
	Project     models.ProjectInfo
	Items       []models.LineItem
	Attachments []Attachment
}

// VendorBucket is the subset of items going to one vendor.
type VendorBucket struct {
	Vendor string
	Items  []models.LineItem
}

// BucketItemsByVendor fans items out to every vendor they name. Buckets keep
// the order in which vendors first appear; items without vendors are left out.
func BucketItemsByVendor(items []models.LineItem) (buckets []VendorBucket, unassigned []string) {
	index := map[string]int{}
	for _, item := range items {
		vendors := item.ResolveVendors()
		if len(vendors) == 0 {
			unassigned = append(unassigned, item.Name)
			continue
		}
		for _, v := range vendors {
			i, ok := index[v]
			if !ok {
				i = len(buckets)
				index[v] = i
				buckets = append(buckets, VendorBucket{Vendor: v})
			}
			buckets[i].Items = append(buckets[i].Items, item)
		}
	}
	return buckets, unassigned
}

type RFQService struct {
	rfqs    RFQStore
	vendors VendorDirectory
	mailer  Mailer
	sheets  SheetMirror
	files   FileStore
	tokens  *utils.TokenManager
	links   Links
	region  string
	log     *logrus.Logger
	now     func() time.Time
	newID   func() string
}

func NewRFQService(rfqs RFQStore, vendors VendorDirectory, mailer Mailer, sheets SheetMirror, files FileStore,
	tokens *utils.TokenManager, links Links, phoneRegion string, logger *logrus.Logger) *RFQService {
	return &RFQService{
		rfqs:    rfqs,
		vendors: vendors,
		mailer:  mailer,
		sheets:  sheets,
		files:   files,
		tokens:  tokens,
		links:   links,
		region:  phoneRegion,
		log:     logger,
		now:     time.Now,
		newID:   repository.NewRFQID,
	}
}

func validateProject(p models.ProjectInfo) error {
	var missing []string
	if strings.TrimSpace(p.RequesterName) == "" {
		missing = append(missing, "requesterName")
	}
	if strings.TrimSpace(p.RequesterEmail) == "" {
		missing = append(missing, "requesterEmail")
	}
	if strings.TrimSpace(p.RequesterPhone) == "" {
		missing = append(missing, "requesterPhone")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required contact fields: %s", utils.ErrValidation, strings.Join(missing, ", "))
	}
	if !utils.IsValidEmail(p.RequesterEmail) {
		return fmt.Errorf("%w: invalid requesterEmail format", utils.ErrValidation)
	}
	return nil
}

// Create persists a new RFQ and notifies every resolvable vendor and the
// requester. Only validation, configuration and the RFQ insert can fail the
// call; everything after the insert is reported in the response.
func (s *RFQService) Create(ctx context.Context, in CreateRFQInput) (*models.CreateRFQResponse, error) {
	if err := validateProject(in.Project); err != nil {
		return nil, err
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: items must be a non-empty array", utils.ErrValidation)
	}
	for i, item := range in.Items {
		if item.Name == "" {
			return nil, fmt.Errorf("%w: item %d has no name", utils.ErrValidation, i+1)
		}
	}
	if err := s.tokens.Ready(); err != nil {
		return nil, err
	}
	if err := s.mailer.Ready(); err != nil {
		return nil, err
	}

	rfqID := s.newID()
	logger := s.log.WithField("rfqId", rfqID)

	buckets, unassigned := BucketItemsByVendor(in.Items)
	if len(unassigned) > 0 {
		logger.WithField("items", unassigned).Warn("items without vendors are not sent to anyone")
	}

	folder, fileLinks := s.storeAttachments(ctx, "RFQ-"+rfqID, in.Attachments)

	p := in.Project
	rfq := &models.RFQ{
		ID:             rfqID,
		RequesterName:  strings.TrimSpace(p.RequesterName),
		RequesterEmail: strings.TrimSpace(p.RequesterEmail),
		RequesterPhone: utils.NormalizePhone(p.RequesterPhone, s.region),
		ProjectName:    strings.TrimSpace(p.ProjectName),
		ProjectAddress: strings.TrimSpace(p.SiteAddress),
		NeededBy:       strings.TrimSpace(p.NeededBy),
		Notes:          strings.TrimSpace(p.Notes),
		FolderLink:     folder.Link,
		FileLinks:      fileLinks,
		CreatedAt:      s.now(),
	}
	for _, b := range buckets {
		rfq.Vendors = append(rfq.Vendors, b.Vendor)
	}
	if err := rfq.SetLineItems(in.Items); err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	if err := s.rfqs.CreateRFQ(ctx, rfq); err != nil {
		return nil, err
	}

	sheet := try(s.log, moduleRFQ, "AppendRFQ", rfqID, func() error {
		return s.sheets.AppendRFQ(ctx, rfq)
	})

	resp := &models.CreateRFQResponse{
		RFQID:          rfqID,
		FolderLink:     folder.Link,
		FileLinks:      fileLinks,
		SheetUpdated:   sheet.OK(),
		SkippedVendors: []string{},
	}
	if resp.FileLinks == nil {
		resp.FileLinks = []string{}
	}

	resolver := newVendorResolver(s.vendors)
	for _, b := range buckets {
		vendor, err := resolver.resolve(ctx, b.Vendor)
		if errors.Is(err, utils.ErrNotFound) {
			logger.WithField("vendor", b.Vendor).Warn("vendor not in directory, skipping")
			resp.EmailsSkipped++
			resp.SkippedVendors = append(resp.SkippedVendors, b.Vendor)
			continue
		}
		if err != nil {
			config.LogError(s.log, moduleRFQ, "Create", "vendor lookup failed", b.Vendor, err)
			resp.EmailsFailed++
			continue
		}
		if s.notifyVendor(ctx, rfq, vendor, b.Items, fileLinks).OK() {
			resp.EmailsSent++
		} else {
			resp.EmailsFailed++
		}
	}

	resp.AwardEmailSent = s.sendAwardAccess(ctx, rfq).OK()

	logger.WithFields(logrus.Fields{
		"emailsSent":    resp.EmailsSent,
		"emailsSkipped": resp.EmailsSkipped,
		"emailsFailed":  resp.EmailsFailed,
	}).Info("rfq distributed")
	return resp, nil
}

// storeAttachments is best-effort: a failed folder or upload only drops the
// affected links.
func (s *RFQService) storeAttachments(ctx context.Context, folderName string, atts []Attachment) (Folder, []string) {
	if len(atts) == 0 || s.files == nil {
		return Folder{}, nil
	}
	var folder Folder
	if a := try(s.log, moduleRFQ, "CreateFolder", folderName, func() error {
		var err error
		folder, err = s.files.CreateFolder(ctx, folderName)
		return err
	}); !a.OK() {
		return Folder{}, nil
	}

	var links []string
	for _, att := range atts {
		var link string
		a := try(s.log, moduleRFQ, "UploadAttachment", att.Filename, func() error {
			var err error
			link, err = uploadAttachment(ctx, s.files, folder, att)
			return err
		})
		if a.OK() {
			links = append(links, link)
		}
	}
	return folder, links
}

func uploadAttachment(ctx context.Context, files FileStore, folder Folder, att Attachment) (string, error) {
	rc, err := att.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", att.Filename, err)
	}
	defer rc.Close()
	return files.Upload(ctx, folder, att.Filename, att.ContentType, rc)
}

func (s *RFQService) notifyVendor(ctx context.Context, rfq *models.RFQ, vendor *models.Vendor, items []models.LineItem, fileLinks []string) Attempt {
	return try(s.log, moduleRFQ, "notifyVendor", vendor.Name, func() error {
		token, err := s.tokens.IssueVendorToken(vendor.Name, vendor.Email, rfq.ID)
		if err != nil {
			return err
		}
		view := make([]models.LineItem, len(items))
		for i, it := range items {
			view[i] = it.ForVendor()
		}
		data := projectEmailData(rfq)
		data.To = vendor.Email
		data.VendorName = vendor.Name
		data.VendorEmail = vendor.Email
		data.Link = s.links.VendorReply(rfq.ID, token)
		data.ItemsHTML = lineItemsHTML(view)
		data.FilesHTML = fileLinksHTML(fileLinks)
		return s.mailer.Send(ctx, models.TemplateRFQVendor, data)
	})
}

func (s *RFQService) sendAwardAccess(ctx context.Context, rfq *models.RFQ) Attempt {
	return try(s.log, moduleRFQ, "sendAwardAccess", rfq.ID, func() error {
		token, err := s.tokens.IssueRequesterToken(rfq.RequesterEmail, rfq.ID)
		if err != nil {
			return err
		}
		data := projectEmailData(rfq)
		data.To = rfq.RequesterEmail
		data.Link = s.links.Award(rfq.ID, token)
		return s.mailer.Send(ctx, models.TemplateAwardAccess, data)
	})
}

// VendorItems returns the items of rfqID addressed to the token's vendor.
func (s *RFQService) VendorItems(ctx context.Context, rfqID, token string) (*models.VendorItemsResponse, error) {
	claims, err := s.tokens.VerifyVendor(token, rfqID)
	if err != nil {
		return nil, err
	}
	rfq, err := s.rfqs.GetRFQ(ctx, rfqID)
	if err != nil {
		return nil, err
	}
	items, err := rfq.LineItems()
	if err != nil {
		return nil, err
	}
	return &models.VendorItemsResponse{
		RFQID:       rfq.ID,
		VendorName:  claims.VendorName,
		VendorEmail: claims.Email,
		Project:     vendorProjectView(rfq),
		Items:       itemsForVendor(items, claims.VendorName),
	}, nil
}

// vendorProjectView omits the requester's contact details.
func vendorProjectView(rfq *models.RFQ) models.ProjectInfo {
	p := rfq.Project()
	p.RequesterEmail = ""
	p.RequesterPhone = ""
	return p
}

// itemsForVendor selects the items whose vendor list names vendorName,
// exactly or after folding case and whitespace.
func itemsForVendor(items []models.LineItem, vendorName string) []models.LineItem {
	folded := utils.FoldName(vendorName)
	out := []models.LineItem{}
	for _, it := range items {
		for _, v := range it.ResolveVendors() {
			if v == vendorName || utils.FoldName(v) == folded {
				out = append(out, it.ForVendor())
				break
			}
		}
	}
	return out
}

// vendorResolver resolves names against the directory: exact match first,
// then a folded comparison over the full list, loaded once per request.
type vendorResolver struct {
	dir    VendorDirectory
	all    []models.Vendor
	loaded bool
}

func newVendorResolver(dir VendorDirectory) *vendorResolver {
	return &vendorResolver{dir: dir}
}

func (r *vendorResolver) resolve(ctx context.Context, name string) (*models.Vendor, error) {
	v, err := r.dir.FindVendorByName(ctx, name)
	if err == nil {
		return usableVendor(v, name)
	}
	if !errors.Is(err, utils.ErrNotFound) {
		return nil, err
	}
	if !r.loaded {
		all, err := r.dir.ListVendors(ctx)
		if err != nil {
			return nil, err
		}
		r.all, r.loaded = all, true
	}
	folded := utils.FoldName(name)
	for i := range r.all {
		if utils.FoldName(r.all[i].Name) == folded {
			return usableVendor(&r.all[i], name)
		}
	}
	return nil, fmt.Errorf("vendor %q: %w", name, utils.ErrNotFound)
}

// usableVendor treats a directory entry without a valid email as unknown.
func usableVendor(v *models.Vendor, name string) (*models.Vendor, error) {
	if !utils.IsValidEmail(v.Email) {
		return nil, fmt.Errorf("vendor %q has no usable email: %w", name, utils.ErrNotFound)
	}
	return v, nil
}
