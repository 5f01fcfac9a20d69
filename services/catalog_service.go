package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"mace-backend/config"
	"mace-backend/models"
	"mace-backend/utils"
)

const (
	moduleCatalog       = "catalog"
	materialImageFolder = "materials"
	thumbnailWidth      = 200
)

// MaterialImage is an inline image sent with a synced material row.
type MaterialImage struct {
	Base64   string `json:"base64"`
	FileName string `json:"fileName"`
}

// MaterialRow is one incoming catalog row, before sanitizing. Price and
// vendors arrive in whatever shape the sheet or workbook produced.
type MaterialRow struct {
	Category string         `json:"category"`
	ItemName string         `json:"itemName"`
	Size     string         `json:"size"`
	Unit     string         `json:"unit"`
	Price    any            `json:"price"`
	Vendors  any            `json:"vendors"`
	Image    *MaterialImage `json:"image,omitempty"`
}

var circledDigits = strings.NewReplacer(
	"①", "", "②", "", "③", "", "④", "", "⑤", "",
	"⑥", "", "⑦", "", "⑧", "", "⑨", "", "⑩", "",
)

// SanitizeMaterial normalizes a row into the catalog identity used for
// upserts: trimmed text, lower-case unit, no circled digits in the name and
// a price rounded to cents. An unreadable price counts as zero.
func SanitizeMaterial(row MaterialRow) models.Material {
	price, err := utils.ParseDecimal(row.Price)
	if err != nil {
		price = decimal.Zero
	}
	return models.Material{
		Category: strings.TrimSpace(row.Category),
		ItemName: strings.TrimSpace(circledDigits.Replace(strings.TrimSpace(row.ItemName))),
		Size:     strings.TrimSpace(row.Size),
		Unit:     strings.ToLower(strings.TrimSpace(row.Unit)),
		Price:    price.Round(2),
		Vendors:  vendorList(row.Vendors),
	}
}

func vendorList(v any) []string {
	var names []string
	switch val := v.(type) {
	case string:
		names = strings.Split(val, ",")
	case []string:
		names = val
	case []any:
		for _, n := range val {
			names = append(names, fmt.Sprint(n))
		}
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

type CatalogService struct {
	materials MaterialStore
	files     FileStore
	log       *logrus.Logger
	now       func() time.Time
}

func NewCatalogService(materials MaterialStore, files FileStore, logger *logrus.Logger) *CatalogService {
	return &CatalogService{materials: materials, files: files, log: logger, now: time.Now}
}

func (s *CatalogService) ListMaterials(ctx context.Context, f models.MaterialFilter) ([]models.Material, error) {
	return s.materials.ListMaterials(ctx, f)
}

func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	return s.materials.ListCategories(ctx)
}

// Apply upserts rows one by one. Rows without a name, or whose image can't
// be stored, are reported and skipped.
func (s *CatalogService) Apply(ctx context.Context, rows []MaterialRow) (*models.SyncResponse, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no material rows", utils.ErrValidation)
	}
	resp := &models.SyncResponse{}
	for i, row := range rows {
		m := SanitizeMaterial(row)
		if m.ItemName == "" {
			resp.Skipped++
			resp.Errors = append(resp.Errors, fmt.Sprintf("row %d: item name is required", i+1))
			continue
		}
		if row.Image != nil && row.Image.Base64 != "" {
			link, err := s.storeImage(ctx, row.Image)
			if err != nil {
				config.LogError(s.log, moduleCatalog, "Apply", "material image not stored", m.ItemName, err)
				resp.Skipped++
				resp.Errors = append(resp.Errors, fmt.Sprintf("row %d: %v", i+1, err))
				continue
			}
			m.Image = link
		}
		if err := s.materials.UpsertMaterial(ctx, &m); err != nil {
			return resp, err
		}
		resp.Processed++
	}
	s.log.WithFields(logrus.Fields{"processed": resp.Processed, "skipped": resp.Skipped}).Info("materials synced")
	return resp, nil
}

// storeImage decodes an inline image, scales it to a thumbnail and stores
// it as PNG.
func (s *CatalogService) storeImage(ctx context.Context, img *MaterialImage) (string, error) {
	raw := img.Base64
	if i := strings.Index(raw, ","); i >= 0 && strings.HasPrefix(raw, "data:") {
		raw = raw[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("%w: image is not valid base64", utils.ErrValidation)
	}
	thumb, err := Thumbnail(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	name := strings.TrimSpace(img.FileName)
	if name == "" {
		name = fmt.Sprintf("material_%d", s.now().UnixMilli())
	}
	name = strings.TrimSuffix(name, filepath.Ext(name)) + ".png"

	folder, err := s.files.CreateFolder(ctx, materialImageFolder)
	if err != nil {
		return "", err
	}
	return s.files.Upload(ctx, folder, name, "image/png", bytes.NewReader(thumb))
}

// Thumbnail decodes an image and returns it resized to the catalog width as
// PNG. Images narrower than that are kept at their size.
func Thumbnail(r io.Reader) ([]byte, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: unsupported image: %v", utils.ErrValidation, err)
	}
	out := src
	if src.Bounds().Dx() > thumbnailWidth {
		out = imaging.Resize(src, thumbnailWidth, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var importColumns = map[string]string{
	"category":    "category",
	"item name":   "itemName",
	"size/option": "size",
	"size":        "size",
	"unit":        "unit",
	"price":       "price",
	"vendors":     "vendors",
}

// ImportXLSX reads the first sheet of a workbook whose header row names the
// catalog columns and applies the rows.
func (s *CatalogService) ImportXLSX(ctx context.Context, r io.Reader) (*models.SyncResponse, error) {
	rows, err := ReadMaterialWorkbook(r)
	if err != nil {
		return nil, err
	}
	return s.Apply(ctx, rows)
}

func ReadMaterialWorkbook(r io.Reader) ([]MaterialRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: not an xlsx workbook: %v", utils.ErrValidation, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", utils.ErrValidation)
	}
	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrValidation, err)
	}
	if len(cells) < 2 {
		return nil, fmt.Errorf("%w: workbook has no data rows", utils.ErrValidation)
	}

	columns := make([]string, len(cells[0]))
	found := false
	for i, h := range cells[0] {
		if key, ok := importColumns[strings.ToLower(strings.TrimSpace(h))]; ok {
			columns[i] = key
			found = found || key == "itemName"
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: header row must include Item Name", utils.ErrValidation)
	}

	var rows []MaterialRow
	for _, line := range cells[1:] {
		var row MaterialRow
		blank := true
		for i, v := range line {
			if i >= len(columns) || strings.TrimSpace(v) == "" {
				continue
			}
			blank = false
			switch columns[i] {
			case "category":
				row.Category = v
			case "itemName":
				row.ItemName = v
			case "size":
				row.Size = v
			case "unit":
				row.Unit = v
			case "price":
				row.Price = v
			case "vendors":
				row.Vendors = v
			}
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	return rows, nil
}
