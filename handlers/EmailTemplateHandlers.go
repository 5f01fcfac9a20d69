package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mace-backend/models"
	"mace-backend/utils"
)

func templateID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.AbortWithError(c, fmt.Errorf("%w: invalid template id", utils.ErrValidation))
		return 0, false
	}
	return uint(id), true
}

// GetEmailTemplates godoc
// @Summary      List email templates
// @Tags         Email Templates
// @Produce      json
// @Security     ApiKeyAuth
// @Param        type  query  string  false  "Template type"
// @Success      200  {array}   models.EmailTemplate
// @Failure      401  {object}  utils.Response
// @Router       /api/email-templates [get]
func GetEmailTemplates(templates TemplateAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := templates.List(c.Request.Context(), c.Query("type"))
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// GetEmailTemplateByID godoc
// @Summary      Get email template
// @Tags         Email Templates
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id  path  int  true  "Template ID"
// @Success      200  {object}  models.EmailTemplate
// @Failure      404  {object}  utils.Response
// @Router       /api/email-templates/{id} [get]
func GetEmailTemplateByID(templates TemplateAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := templateID(c)
		if !ok {
			return
		}
		t, err := templates.Get(c.Request.Context(), id)
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// CreateEmailTemplate godoc
// @Summary      Create email template
// @Description  Stores a template. A default, active template replaces the built-in one of its type. The body is sanitized.
// @Tags         Email Templates
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        template  body  models.EmailTemplateRequest  true  "Template"
// @Success      201  {object}  models.EmailTemplate
// @Failure      400  {object}  utils.Response
// @Router       /api/email-templates [post]
func CreateEmailTemplate(templates TemplateAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.EmailTemplateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.AbortWithError(c, fmt.Errorf("%w: %v", utils.ErrValidation, err))
			return
		}
		t, err := templates.Create(c.Request.Context(), req)
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, t)
	}
}

// UpdateEmailTemplate godoc
// @Summary      Update email template
// @Tags         Email Templates
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id        path  int                          true  "Template ID"
// @Param        template  body  models.EmailTemplateRequest  true  "Template"
// @Success      200  {object}  models.EmailTemplate
// @Failure      400  {object}  utils.Response
// @Failure      404  {object}  utils.Response
// @Router       /api/email-templates/{id} [put]
func UpdateEmailTemplate(templates TemplateAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := templateID(c)
		if !ok {
			return
		}
		var req models.EmailTemplateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.AbortWithError(c, fmt.Errorf("%w: %v", utils.ErrValidation, err))
			return
		}
		t, err := templates.Update(c.Request.Context(), id, req)
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// DeleteEmailTemplate godoc
// @Summary      Delete email template
// @Tags         Email Templates
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id  path  int  true  "Template ID"
// @Success      200  {object}  utils.Response
// @Failure      404  {object}  utils.Response
// @Router       /api/email-templates/{id} [delete]
func DeleteEmailTemplate(templates TemplateAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := templateID(c)
		if !ok {
			return
		}
		if err := templates.Delete(c.Request.Context(), id); err != nil {
			utils.AbortWithError(c, err)
			return
		}
		utils.SuccessResponse(c, "email template deleted", http.StatusOK)
	}
}
