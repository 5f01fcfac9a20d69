package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"mace-backend/models"
	"mace-backend/utils"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type memRFQs struct {
	rfqs      map[string]*models.RFQ
	createErr error
	updated   []models.RFQ
	replaced  []models.RFQ
}

func newMemRFQs() *memRFQs {
	return &memRFQs{rfqs: map[string]*models.RFQ{}}
}

func (m *memRFQs) CreateRFQ(_ context.Context, rfq *models.RFQ) error {
	if m.createErr != nil {
		return m.createErr
	}
	cp := *rfq
	m.rfqs[rfq.ID] = &cp
	return nil
}

func (m *memRFQs) GetRFQ(_ context.Context, id string) (*models.RFQ, error) {
	r, ok := m.rfqs[id]
	if !ok {
		return nil, fmt.Errorf("rfq %s: %w", id, utils.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (m *memRFQs) UpdateAwardSummary(_ context.Context, rfq *models.RFQ) error {
	cp := *rfq
	m.rfqs[rfq.ID] = &cp
	m.updated = append(m.updated, cp)
	return nil
}

func (m *memRFQs) ReplaceAllRFQs(_ context.Context, rfqs []models.RFQ) error {
	m.rfqs = map[string]*models.RFQ{}
	for i := range rfqs {
		cp := rfqs[i]
		m.rfqs[cp.ID] = &cp
	}
	m.replaced = rfqs
	return nil
}

type memVendors struct {
	vendors []models.Vendor
	findErr error
}

func (m *memVendors) ListVendors(context.Context) ([]models.Vendor, error) {
	return append([]models.Vendor(nil), m.vendors...), nil
}

func (m *memVendors) FindVendorByName(_ context.Context, name string) (*models.Vendor, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for i := range m.vendors {
		if m.vendors[i].Name == name {
			v := m.vendors[i]
			return &v, nil
		}
	}
	return nil, fmt.Errorf("vendor %q: %w", name, utils.ErrNotFound)
}

func (m *memVendors) FindVendorByEmail(_ context.Context, email string) (*models.Vendor, error) {
	for i := range m.vendors {
		if strings.EqualFold(m.vendors[i].Email, email) {
			v := m.vendors[i]
			return &v, nil
		}
	}
	return nil, fmt.Errorf("vendor %q: %w", email, utils.ErrNotFound)
}

func (m *memVendors) CreateVendor(_ context.Context, v *models.Vendor) error {
	v.ID = uint(len(m.vendors) + 1)
	m.vendors = append(m.vendors, *v)
	return nil
}

func (m *memVendors) DeleteVendorByName(_ context.Context, name string) (int64, error) {
	var kept []models.Vendor
	var n int64
	for _, v := range m.vendors {
		if v.Name == name {
			n++
			continue
		}
		kept = append(kept, v)
	}
	m.vendors = kept
	return n, nil
}

func (m *memVendors) ReplaceAllVendors(_ context.Context, vendors []models.Vendor) error {
	m.vendors = append([]models.Vendor(nil), vendors...)
	return nil
}

type memReplies struct {
	rows []models.VendorReplyItem
}

func (m *memReplies) CreateReplyItems(_ context.Context, items []models.VendorReplyItem) error {
	for _, it := range items {
		it.ID = uint(len(m.rows) + 1)
		m.rows = append(m.rows, it)
	}
	return nil
}

func (m *memReplies) ListReplyItems(_ context.Context, rfqID string) ([]models.VendorReplyItem, error) {
	var out []models.VendorReplyItem
	for _, r := range m.rows {
		if r.RFQID == rfqID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memReplies) MarkAwarded(_ context.Context, rfqID, itemName, vendorName string) (int64, error) {
	var n int64
	for i := range m.rows {
		r := &m.rows[i]
		if r.RFQID == rfqID && r.ItemName == itemName && r.VendorName == vendorName {
			r.Status = models.ReplyStatusAwarded
			n++
		}
	}
	return n, nil
}

func (m *memReplies) LatestReplyItem(_ context.Context, rfqID, itemName, vendorName string) (*models.VendorReplyItem, error) {
	for i := len(m.rows) - 1; i >= 0; i-- {
		r := m.rows[i]
		if r.RFQID == rfqID && r.ItemName == itemName && r.VendorName == vendorName {
			return &r, nil
		}
	}
	return nil, utils.ErrNotFound
}

type memMaterials struct {
	upserted []models.Material
}

func (m *memMaterials) ListMaterials(context.Context, models.MaterialFilter) ([]models.Material, error) {
	return m.upserted, nil
}

func (m *memMaterials) ListCategories(context.Context) ([]string, error) {
	return nil, nil
}

func (m *memMaterials) UpsertMaterial(_ context.Context, mat *models.Material) error {
	m.upserted = append(m.upserted, *mat)
	return nil
}

type sentMail struct {
	Type string
	Data models.EmailData
}

type fakeMailer struct {
	mu       sync.Mutex
	readyErr error
	failTo   map[string]bool
	sent     []sentMail
}

func (f *fakeMailer) Ready() error {
	return f.readyErr
}

func (f *fakeMailer) Send(_ context.Context, templateType string, data models.EmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTo[data.To] {
		return fmt.Errorf("%w: relay refused %s", utils.ErrUpstream, data.To)
	}
	f.sent = append(f.sent, sentMail{Type: templateType, Data: data})
	return nil
}

func (f *fakeMailer) sentTo(templateType string) []string {
	var out []string
	for _, m := range f.sent {
		if m.Type == templateType {
			out = append(out, m.Data.To)
		}
	}
	return out
}

type fakeSheets struct {
	err     error
	rfqs    []string
	replies []ReplySheetRow
	rows    map[string][]map[string]string
}

func (f *fakeSheets) AppendRFQ(_ context.Context, rfq *models.RFQ) error {
	if f.err != nil {
		return f.err
	}
	f.rfqs = append(f.rfqs, rfq.ID)
	return nil
}

func (f *fakeSheets) AppendVendorReply(_ context.Context, row ReplySheetRow) error {
	if f.err != nil {
		return f.err
	}
	f.replies = append(f.replies, row)
	return nil
}

func (f *fakeSheets) ReadRows(_ context.Context, tab string) ([]map[string]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[tab], nil
}

type fakeFiles struct {
	folderErr error
	uploads   map[string][]byte
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{uploads: map[string][]byte{}}
}

func (f *fakeFiles) CreateFolder(_ context.Context, name string) (Folder, error) {
	if f.folderErr != nil {
		return Folder{}, f.folderErr
	}
	return Folder{ID: name, Link: "https://files.test/" + name}, nil
}

func (f *fakeFiles) Upload(_ context.Context, folder Folder, name, _ string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	key := folder.ID + "/" + name
	f.uploads[key] = b
	return "https://files.test/" + key, nil
}

func textAttachment(name, body string) Attachment {
	return Attachment{
		Filename:    name,
		ContentType: "text/plain",
		Size:        int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

var errBoom = errors.New("boom")
