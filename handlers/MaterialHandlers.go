package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"mace-backend/models"
	"mace-backend/utils"
)

// GetMaterials godoc
// @Summary      List materials
// @Tags         Materials
// @Produce      json
// @Param        search      query  string  false  "Matches item name or category"
// @Param        category    query  string  false  "Category, or all"
// @Param        priceRange  query  string  false  "0-50, 50-100, 100-500 or 500+"
// @Param        sort        query  string  false  "price-asc, price-desc, name-asc or name-desc"
// @Success      200  {array}   models.Material
// @Failure      400  {object}  utils.Response
// @Router       /api/materials [get]
func GetMaterials(catalog Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		var f models.MaterialFilter
		if err := c.ShouldBindQuery(&f); err != nil {
			utils.AbortWithError(c, fmt.Errorf("%w: %v", utils.ErrValidation, err))
			return
		}
		list, err := catalog.ListMaterials(c.Request.Context(), f)
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// GetMaterialCategories godoc
// @Summary      Material categories
// @Tags         Materials
// @Produce      json
// @Success      200  {array}  string
// @Router       /api/materials/categories [get]
func GetMaterialCategories(catalog Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := catalog.Categories(c.Request.Context())
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// ImportMaterials godoc
// @Summary      Import materials
// @Description  Upserts catalog rows from an xlsx workbook (Category, Item Name, Size/Option, Unit, Price, Vendors). Requires the X-API-Key header.
// @Tags         Materials
// @Accept       multipart/form-data
// @Produce      json
// @Security     ApiKeyAuth
// @Param        file  formData  file  true  "Workbook"
// @Success      200  {object}  models.SyncResponse
// @Failure      400  {object}  utils.Response
// @Router       /api/materials/import [post]
func ImportMaterials(catalog Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			utils.AbortWithError(c, fmt.Errorf("%w: error retrieving the file", utils.ErrValidation))
			return
		}
		defer file.Close()

		if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
			utils.AbortWithError(c, fmt.Errorf("%w: only .xlsx files are supported", utils.ErrValidation))
			return
		}
		resp, err := catalog.ImportXLSX(c.Request.Context(), file)
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
