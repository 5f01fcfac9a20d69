package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mace-backend/models"
	"mace-backend/services"
	"mace-backend/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubRFQs struct {
	in  services.CreateRFQInput
	err error
}

func (s *stubRFQs) Create(_ context.Context, in services.CreateRFQInput) (*models.CreateRFQResponse, error) {
	s.in = in
	if s.err != nil {
		return nil, s.err
	}
	return &models.CreateRFQResponse{RFQID: "rfq-1"}, nil
}

func (s *stubRFQs) VendorItems(_ context.Context, rfqID, token string) (*models.VendorItemsResponse, error) {
	return nil, s.err
}

type stubReplies struct {
	rfqID, token string
	sub          services.ReplySubmission
	authErr      error
	submitted    bool
}

func (s *stubReplies) Authorize(string, string) error { return s.authErr }

func (s *stubReplies) Submit(_ context.Context, rfqID, token string, sub services.ReplySubmission) (*models.VendorReplyResponse, error) {
	s.rfqID, s.token, s.sub, s.submitted = rfqID, token, sub, true
	return &models.VendorReplyResponse{ReplyID: "r-1"}, nil
}

type stubAwards struct {
	awardCalls int
	poReq      models.PurchaseOrderRequest
	err        error
}

func (s *stubAwards) Items(context.Context, string, string) (*models.AwardItemsResponse, error) {
	return &models.AwardItemsResponse{RFQID: "rfq-1"}, s.err
}

func (s *stubAwards) Award(context.Context, string, string, models.AwardRequest) (*models.AwardResponse, error) {
	s.awardCalls++
	return &models.AwardResponse{Success: true, Updated: 1}, s.err
}

func (s *stubAwards) ExportComparison(context.Context, string, string) ([]byte, string, error) {
	return []byte("xlsx"), "rfq-rfq-1-quotes.xlsx", s.err
}

func (s *stubAwards) PurchaseOrder(_ context.Context, _, _ string, req models.PurchaseOrderRequest) (*services.PurchaseOrder, []byte, error) {
	s.poReq = req
	if s.err != nil {
		return nil, nil, s.err
	}
	return &services.PurchaseOrder{Number: "PO-20260305-KX48213"}, []byte("%PDF-1.3"), nil
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for field, name := range files {
		fw, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = io.WriteString(fw, "contents of "+name)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) utils.Response {
	t.Helper()
	var resp utils.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateRFQ_JSON(t *testing.T) {
	stub := &stubRFQs{}
	r := gin.New()
	r.POST("/rfqs", CreateRFQ(stub))

	body := `{"projectInfo":"{\"requesterName\":\"Dana\",\"projectName\":\"Harbor Lofts\"}","items":[{"name":"2x4 Stud","quantity":100,"vendors":["Acme Supply"]}]}`
	req := httptest.NewRequest(http.MethodPost, "/rfqs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Dana", stub.in.Project.RequesterName)
	require.Len(t, stub.in.Items, 1)
	assert.Equal(t, "2x4 Stud", stub.in.Items[0].Name)
	assert.Equal(t, []string{"Acme Supply"}, stub.in.Items[0].Vendors)
}

func TestCreateRFQ_Multipart(t *testing.T) {
	stub := &stubRFQs{}
	r := gin.New()
	r.POST("/rfqs", CreateRFQ(stub))

	body, ctype := multipartBody(t, map[string]string{
		"projectInfo": `{"requesterName":"Dana","requesterEmail":"dana@example.com"}`,
		"items":       `[{"name":"Drywall 1/2","quantity":"40"}]`,
	}, map[string]string{"files": "plan.pdf", "drawings": "notes.txt"})
	req := httptest.NewRequest(http.MethodPost, "/rfqs", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "dana@example.com", stub.in.Project.RequesterEmail)
	require.Len(t, stub.in.Items, 1)
	assert.Equal(t, "40", stub.in.Items[0].Quantity.String())
	assert.Len(t, stub.in.Attachments, 2)
}

func TestCreateRFQ_BadInput(t *testing.T) {
	r := gin.New()
	r.POST("/rfqs", CreateRFQ(&stubRFQs{}))

	for _, body := range []string{`{"items":[]}`, `{"projectInfo":"{broken"}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/rfqs", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestCreateRFQ_MapsServiceErrors(t *testing.T) {
	r := gin.New()
	r.POST("/rfqs", CreateRFQ(&stubRFQs{err: utils.ErrConfiguration}))

	req := httptest.NewRequest(http.MethodPost, "/rfqs", strings.NewReader(`{"projectInfo":{"requesterName":"Dana"}}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeResponse(t, rec).Message, "configuration")
}

func TestSubmitVendorReply_Multipart(t *testing.T) {
	stub := &stubReplies{}
	r := gin.New()
	r.POST("/rfqs/:rfqId/vendor-reply/:token", SubmitVendorReply(stub))

	body, ctype := multipartBody(t, map[string]string{
		"itemReplies":     `[{"itemName":"2x4 Stud","pricing":"3.50","leadTime":"2026-03-12"},{"itemName":"Drywall 1/2","pricing":11}]`,
		"deliveryCharges": "$50",
		"discount":        "10",
		"summaryNotes":    "  valid 30 days ",
	}, map[string]string{"files_1": "drywall.pdf", "files_x": "ignored.pdf", "attachment": "other.pdf"})
	req := httptest.NewRequest(http.MethodPost, "/rfqs/rfq-1/vendor-reply/tok", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rfq-1", stub.rfqID)
	assert.Equal(t, "tok", stub.token)
	require.Len(t, stub.sub.Items, 2)
	assert.Equal(t, "3.5", stub.sub.Items[0].UnitPrice.String())
	assert.Equal(t, "50", stub.sub.DeliveryCharge.String())
	assert.Equal(t, "10", stub.sub.Discount.String())
	assert.Equal(t, "valid 30 days", stub.sub.SummaryNotes)
	require.Len(t, stub.sub.Files, 1)
	require.Len(t, stub.sub.Files[1], 1)
	assert.Equal(t, "drywall.pdf", stub.sub.Files[1][0].Filename)
}

func TestSubmitVendorReply_BadItemReplies(t *testing.T) {
	r := gin.New()
	r.POST("/rfqs/:rfqId/vendor-reply/:token", SubmitVendorReply(&stubReplies{}))

	body, ctype := multipartBody(t, map[string]string{"itemReplies": "{not json"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/rfqs/rfq-1/vendor-reply/tok", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitVendorReply_TokenCheckedBeforeBody(t *testing.T) {
	stub := &stubReplies{authErr: fmt.Errorf("%w: invalid or expired token", utils.ErrUnauthorized)}
	r := gin.New()
	r.POST("/rfqs/:rfqId/vendor-reply/:token", SubmitVendorReply(stub))

	body, ctype := multipartBody(t, map[string]string{"itemReplies": "{not json"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/rfqs/rfq-1/vendor-reply/bad", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, stub.submitted)
}

func TestFileIndex(t *testing.T) {
	n, ok := fileIndex("files_12")
	assert.True(t, ok)
	assert.Equal(t, 12, n)
	for _, f := range []string{"files_", "files_-1", "file_1", "files_a"} {
		_, ok := fileIndex(f)
		assert.False(t, ok, f)
	}
}

func TestAwardItem(t *testing.T) {
	stub := &stubAwards{}
	r := gin.New()
	r.POST("/rfqs/:rfqId/award/:token", AwardItem(stub))

	req := httptest.NewRequest(http.MethodPost, "/rfqs/rfq-1/award/tok", strings.NewReader(`{"item_name":"2x4 Stud"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, stub.awardCalls)

	req = httptest.NewRequest(http.MethodPost, "/rfqs/rfq-1/award/tok", strings.NewReader(`{"item_name":"2x4 Stud","vendor_name":"Acme Supply"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, stub.awardCalls)
}

func TestAwardItem_NotFound(t *testing.T) {
	r := gin.New()
	r.POST("/rfqs/:rfqId/award/:token", AwardItem(&stubAwards{err: utils.ErrNotFound}))

	req := httptest.NewRequest(http.MethodPost, "/rfqs/rfq-1/award/tok", strings.NewReader(`{"item_name":"a","vendor_name":"b"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportAndPurchaseOrder(t *testing.T) {
	stub := &stubAwards{}
	r := gin.New()
	r.GET("/rfqs/:rfqId/award-items/:token/export", ExportAwardItems(stub))
	r.POST("/rfqs/:rfqId/purchase-order/:token", GeneratePurchaseOrder(stub))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rfqs/rfq-1/award-items/tok/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "rfq-rfq-1-quotes.xlsx")
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rfqs/rfq-1/purchase-order/tok", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "PO-20260305-KX48213", rec.Header().Get("X-PO-Number"))
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	req := httptest.NewRequest(http.MethodPost, "/rfqs/rfq-1/purchase-order/tok", strings.NewReader(`{"po_notes":"gate B"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gate B", stub.poReq.PONotes)
}

func TestRequireAPIKey(t *testing.T) {
	hash, err := utils.HashSecret("s3cret")
	require.NoError(t, err)

	protected := func(hash string) *gin.Engine {
		r := gin.New()
		r.GET("/admin", RequireAPIKey(hash), func(c *gin.Context) { c.Status(http.StatusNoContent) })
		return r
	}
	call := func(r *gin.Engine, key string) int {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if key != "" {
			req.Header.Set(APIKeyHeader, key)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	r := protected(hash)
	assert.Equal(t, http.StatusUnauthorized, call(r, ""))
	assert.Equal(t, http.StatusUnauthorized, call(r, "wrong"))
	assert.Equal(t, http.StatusNoContent, call(r, "s3cret"))
	assert.Equal(t, http.StatusUnauthorized, call(protected(""), "s3cret"))
}

func TestServeFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "rfq-1"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "rfq-1", "quote.txt"), []byte("hello quote"), 0644))

	r := gin.New()
	r.GET("/api/files", ServeFile(root))
	get := func(q string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files"+q, nil))
		return rec
	}

	rec := get("?file=rfq-1%2Fquote.txt")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello quote", rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, get("").Code)
	assert.Equal(t, http.StatusBadRequest, get("?file=..%2F..%2Fetc%2Fpasswd").Code)
	assert.Equal(t, http.StatusBadRequest, get("?file=%2Fetc%2Fpasswd").Code)
	assert.Equal(t, http.StatusNotFound, get("?file=rfq-1%2Fmissing.txt").Code)
	assert.Equal(t, http.StatusNotFound, get("?file=rfq-1").Code)
}
