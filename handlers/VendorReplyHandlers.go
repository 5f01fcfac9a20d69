package handlers

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"mace-backend/services"
	"mace-backend/utils"
)

// SubmitVendorReply godoc
// @Summary      Submit vendor reply
// @Description  Records a vendor's quote. itemReplies is a JSON array of {itemName, pricing, leadTime, substitutions, notes}; files for item i are sent as files_i.
// @Tags         Vendor Reply
// @Accept       multipart/form-data
// @Produce      json
// @Param        rfqId            path      string  true   "RFQ ID"
// @Param        token            path      string  true   "Vendor link token"
// @Param        itemReplies      formData  string  true   "Item replies as JSON"
// @Param        deliveryCharges  formData  string  false  "Delivery charge"
// @Param        discount         formData  string  false  "Discount"
// @Param        summaryNotes     formData  string  false  "Notes for the whole reply"
// @Success      200  {object}  models.VendorReplyResponse
// @Failure      400  {object}  utils.Response
// @Failure      401  {object}  utils.Response
// @Failure      403  {object}  utils.Response
// @Failure      404  {object}  utils.Response
// @Router       /rfqs/{rfqId}/vendor-reply/{token} [post]
func SubmitVendorReply(replies ReplyWorkflow) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := replies.Authorize(c.Param("rfqId"), c.Param("token")); err != nil {
			utils.AbortWithError(c, err)
			return
		}
		sub, err := parseReplySubmission(c)
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}
		resp, err := replies.Submit(c.Request.Context(), c.Param("rfqId"), c.Param("token"), sub)
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func parseReplySubmission(c *gin.Context) (services.ReplySubmission, error) {
	sub := services.ReplySubmission{Files: map[int][]services.Attachment{}}
	values := map[string][]string{}
	var files map[string][]*multipart.FileHeader

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		form, err := c.MultipartForm()
		if err != nil {
			return sub, fmt.Errorf("%w: invalid multipart form: %v", utils.ErrValidation, err)
		}
		values, files = form.Value, form.File
	} else {
		if err := c.Request.ParseForm(); err != nil {
			return sub, fmt.Errorf("%w: invalid form: %v", utils.ErrValidation, err)
		}
		values = c.Request.PostForm
	}

	if raw := strings.TrimSpace(formValue(values, "itemReplies")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &sub.Items); err != nil {
			return sub, fmt.Errorf("%w: invalid itemReplies format: %v", utils.ErrValidation, err)
		}
	}

	var err error
	if sub.DeliveryCharge, err = utils.ParseDecimal(formValue(values, "deliveryCharges")); err != nil {
		return sub, fmt.Errorf("deliveryCharges: %w", err)
	}
	if sub.Discount, err = utils.ParseDecimal(formValue(values, "discount")); err != nil {
		return sub, fmt.Errorf("discount: %w", err)
	}
	sub.SummaryNotes = strings.TrimSpace(formValue(values, "summaryNotes"))

	for field, headers := range files {
		idx, ok := fileIndex(field)
		if !ok {
			continue
		}
		for _, fh := range headers {
			sub.Files[idx] = append(sub.Files[idx], services.AttachmentFromHeader(fh))
		}
	}
	return sub, nil
}

// fileIndex reads the item index out of a files_<n> field name.
func fileIndex(field string) (int, bool) {
	rest, ok := strings.CutPrefix(field, "files_")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
