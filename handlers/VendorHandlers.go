package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"mace-backend/models"
	"mace-backend/utils"
)

// GetVendors godoc
// @Summary      List vendors
// @Tags         Vendors
// @Produce      json
// @Success      200  {array}   models.Vendor
// @Failure      500  {object}  utils.Response
// @Router       /api/vendors [get]
func GetVendors(vendors VendorAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := vendors.List(c.Request.Context())
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// CreateVendor godoc
// @Summary      Create vendor
// @Description  Adds a vendor to the directory. Requires the X-API-Key header.
// @Tags         Vendors
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        body  body  models.Vendor  true  "Vendor"
// @Success      201  {object}  models.Vendor
// @Failure      400  {object}  utils.Response
// @Failure      401  {object}  utils.Response
// @Router       /api/vendors [post]
func CreateVendor(vendors VendorAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		var v models.Vendor
		if err := c.ShouldBindJSON(&v); err != nil {
			utils.AbortWithError(c, fmt.Errorf("%w: %v", utils.ErrValidation, err))
			return
		}
		created, err := vendors.Create(c.Request.Context(), v)
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

// DeleteVendor godoc
// @Summary      Delete vendor
// @Description  Removes every vendor row with the given name. Requires the X-API-Key header.
// @Tags         Vendors
// @Produce      json
// @Security     ApiKeyAuth
// @Param        name  path  string  true  "Vendor name"
// @Success      200  {object}  utils.Response
// @Failure      401  {object}  utils.Response
// @Failure      404  {object}  utils.Response
// @Router       /api/vendors/{name} [delete]
func DeleteVendor(vendors VendorAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := vendors.Delete(c.Request.Context(), c.Param("name")); err != nil {
			utils.AbortWithError(c, err)
			return
		}
		utils.SuccessResponse(c, "vendor deleted", http.StatusOK)
	}
}
