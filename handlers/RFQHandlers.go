package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mace-backend/services"
	"mace-backend/utils"
)

// createRFQBody is the JSON form of a quote request.
type createRFQBody struct {
	ProjectInfo json.RawMessage `json:"projectInfo"`
	Items       json.RawMessage `json:"items"`
}

// CreateRFQ godoc
// @Summary      Create RFQ
// @Description  Stores a quote request and emails every vendor named by its items. Accepts multipart form data (projectInfo and items as JSON strings, files as attachments) or a JSON body.
// @Tags         RFQ
// @Accept       multipart/form-data,json
// @Produce      json
// @Param        projectInfo  formData  string  true   "Requester and project fields as JSON"
// @Param        items        formData  string  true   "Line items as JSON"
// @Param        files        formData  file    false  "Attachments"
// @Success      201  {object}  models.CreateRFQResponse
// @Failure      400  {object}  utils.Response
// @Failure      500  {object}  utils.Response
// @Router       /rfqs [post]
func CreateRFQ(rfqs RFQWorkflow) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, err := parseCreateRFQ(c)
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}
		resp, err := rfqs.Create(c.Request.Context(), in)
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, resp)
	}
}

func parseCreateRFQ(c *gin.Context) (services.CreateRFQInput, error) {
	var in services.CreateRFQInput
	var project, items []byte

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		form, err := c.MultipartForm()
		if err != nil {
			return in, fmt.Errorf("%w: invalid multipart form: %v", utils.ErrValidation, err)
		}
		project = []byte(formValue(form.Value, "projectInfo"))
		items = []byte(formValue(form.Value, "items"))
		for _, headers := range form.File {
			for _, fh := range headers {
				in.Attachments = append(in.Attachments, services.AttachmentFromHeader(fh))
			}
		}
	} else {
		var body createRFQBody
		if err := c.ShouldBindJSON(&body); err != nil {
			return in, fmt.Errorf("%w: invalid JSON input: %v", utils.ErrValidation, err)
		}
		project, items = unquoteJSON(body.ProjectInfo), unquoteJSON(body.Items)
	}

	if len(project) == 0 {
		return in, fmt.Errorf("%w: projectInfo is required", utils.ErrValidation)
	}
	if err := json.Unmarshal(project, &in.Project); err != nil {
		return in, fmt.Errorf("%w: invalid projectInfo: %v", utils.ErrValidation, err)
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &in.Items); err != nil {
			return in, fmt.Errorf("%w: invalid items: %v", utils.ErrValidation, err)
		}
	}
	return in, nil
}

func formValue(values map[string][]string, key string) string {
	if v := values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// unquoteJSON accepts a field sent either as JSON or as a string holding
// JSON.
func unquoteJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if raw[0] == '"' && json.Unmarshal(raw, &s) == nil {
		return []byte(s)
	}
	return raw
}

// GetVendorItems godoc
// @Summary      Vendor items
// @Description  Returns the RFQ items addressed to the vendor the link was issued to
// @Tags         RFQ
// @Produce      json
// @Param        rfqId  path  string  true  "RFQ ID"
// @Param        token  path  string  true  "Vendor link token"
// @Success      200  {object}  models.VendorItemsResponse
// @Failure      401  {object}  utils.Response
// @Failure      403  {object}  utils.Response
// @Failure      404  {object}  utils.Response
// @Router       /rfqs/{rfqId}/vendor-items/{token} [get]
func GetVendorItems(rfqs RFQWorkflow) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := rfqs.VendorItems(c.Request.Context(), c.Param("rfqId"), c.Param("token"))
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
