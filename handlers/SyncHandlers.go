package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"mace-backend/services"
	"mace-backend/utils"
)

// syncRequest is the payload posted by the spreadsheet script.
type syncRequest[T any] struct {
	Data []T `json:"data"`
}

func bindSync[T any](c *gin.Context) ([]T, bool) {
	var req syncRequest[T]
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.AbortWithError(c, fmt.Errorf("%w: invalid JSON input: %v", utils.ErrValidation, err))
		return nil, false
	}
	return req.Data, true
}

// SyncVendors godoc
// @Summary      Sync vendors
// @Description  Replaces the vendor directory with the posted sheet rows (Vendor Name, Email, Phone, Notes)
// @Tags         Sync
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  models.SyncResponse
// @Failure      400  {object}  utils.Response
// @Router       /api/sync/vendors [post]
func SyncVendors(sync SheetSync) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, ok := bindSync[map[string]any](c)
		if !ok {
			return
		}
		resp, err := sync.SyncVendors(c.Request.Context(), rows)
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// SyncMaterials godoc
// @Summary      Sync materials
// @Description  Upserts catalog rows posted from the sheet, storing inline images as thumbnails
// @Tags         Sync
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  models.SyncResponse
// @Failure      400  {object}  utils.Response
// @Router       /api/sync/materials [post]
func SyncMaterials(sync SheetSync) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, ok := bindSync[services.MaterialRow](c)
		if !ok {
			return
		}
		resp, err := sync.SyncMaterials(c.Request.Context(), rows)
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// SyncRFQs godoc
// @Summary      Sync RFQs
// @Description  Clears the RFQ table and recreates it from the posted sheet rows
// @Tags         Sync
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  models.SyncResponse
// @Failure      400  {object}  utils.Response
// @Router       /api/sync/rfqs [post]
func SyncRFQs(sync SheetSync) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, ok := bindSync[map[string]any](c)
		if !ok {
			return
		}
		resp, err := sync.SyncRFQs(c.Request.Context(), rows)
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
