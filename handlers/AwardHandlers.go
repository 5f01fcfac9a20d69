package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"mace-backend/models"
	"mace-backend/utils"
)

// GetAwardItems godoc
// @Summary      Award items
// @Description  Lists every vendor quote of the RFQ grouped by item name
// @Tags         Award
// @Produce      json
// @Param        rfqId  path  string  true  "RFQ ID"
// @Param        token  path  string  true  "Requester link token"
// @Success      200  {object}  models.AwardItemsResponse
// @Failure      401  {object}  utils.Response
// @Failure      403  {object}  utils.Response
// @Failure      404  {object}  utils.Response
// @Router       /rfqs/{rfqId}/award-items/{token} [get]
func GetAwardItems(awards AwardWorkflow) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := awards.Items(c.Request.Context(), c.Param("rfqId"), c.Param("token"))
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// AwardItem godoc
// @Summary      Award an item
// @Description  Marks the vendor's quote for an item as awarded and notifies the requester and the vendor
// @Tags         Award
// @Accept       json
// @Produce      json
// @Param        rfqId  path  string               true  "RFQ ID"
// @Param        token  path  string               true  "Requester link token"
// @Param        body   body  models.AwardRequest  true  "Item and vendor"
// @Success      200  {object}  models.AwardResponse
// @Failure      400  {object}  utils.Response
// @Failure      401  {object}  utils.Response
// @Failure      403  {object}  utils.Response
// @Failure      404  {object}  utils.Response
// @Router       /rfqs/{rfqId}/award/{token} [post]
func AwardItem(awards AwardWorkflow) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AwardRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.AbortWithError(c, fmt.Errorf("%w: item_name and vendor_name are required", utils.ErrValidation))
			return
		}
		resp, err := awards.Award(c.Request.Context(), c.Param("rfqId"), c.Param("token"), req)
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// ExportAwardItems godoc
// @Summary      Export quotes
// @Description  Downloads the quote comparison of an RFQ as an xlsx workbook
// @Tags         Award
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        rfqId  path  string  true  "RFQ ID"
// @Param        token  path  string  true  "Requester link token"
// @Success      200  {file}    file
// @Failure      401  {object}  utils.Response
// @Failure      403  {object}  utils.Response
// @Failure      404  {object}  utils.Response
// @Router       /rfqs/{rfqId}/award-items/{token}/export [get]
func ExportAwardItems(awards AwardWorkflow) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, filename, err := awards.ExportComparison(c.Request.Context(), c.Param("rfqId"), c.Param("token"))
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	}
}

// GeneratePurchaseOrder godoc
// @Summary      Purchase order
// @Description  Records the award summary on the RFQ and returns the purchase order as a PDF
// @Tags         Award
// @Accept       json
// @Produce      application/pdf
// @Param        rfqId  path  string                       true   "RFQ ID"
// @Param        token  path  string                       true   "Requester link token"
// @Param        body   body  models.PurchaseOrderRequest  false  "PO notes"
// @Success      200  {file}    file
// @Failure      401  {object}  utils.Response
// @Failure      403  {object}  utils.Response
// @Failure      404  {object}  utils.Response
// @Router       /rfqs/{rfqId}/purchase-order/{token} [post]
func GeneratePurchaseOrder(awards AwardWorkflow) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.PurchaseOrderRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				utils.AbortWithError(c, fmt.Errorf("%w: invalid JSON input", utils.ErrValidation))
				return
			}
		}
		po, pdf, err := awards.PurchaseOrder(c.Request.Context(), c.Param("rfqId"), c.Param("token"), req)
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", po.Number+".pdf"))
		c.Header("X-PO-Number", po.Number)
		c.Data(http.StatusOK, "application/pdf", pdf)
	}
}
