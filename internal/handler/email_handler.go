package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/winslow-house/advising-api/internal/service"
	appErrors "github.com/winslow-house/advising-api/pkg/errors"
	"github.com/winslow-house/advising-api/pkg/response"
)

// EmailHandler exposes email template and notification endpoints.
type EmailHandler struct {
	emails  *service.EmailService
	metrics *service.MetricsService
}

// NewEmailHandler constructs EmailHandler.
func NewEmailHandler(emails *service.EmailService, metrics *service.MetricsService) *EmailHandler {
	return &EmailHandler{emails: emails, metrics: metrics}
}

// ListTemplates godoc
// @Summary List email templates
// @Tags Emails
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /email-templates [get]
func (h *EmailHandler) ListTemplates(c *gin.Context) {
	templates, err := h.emails.ListTemplates(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, templates, nil)
}

// GetTemplate godoc
// @Summary Get email template detail
// @Tags Emails
// @Produce json
// @Param id path int true "Template ID"
// @Success 200 {object} response.Envelope
// @Router /email-templates/{id} [get]
func (h *EmailHandler) GetTemplate(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	template, err := h.emails.GetTemplate(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, template, nil)
}

// CreateTemplate godoc
// @Summary Create email template
// @Tags Emails
// @Accept json
// @Produce json
// @Param payload body service.TemplateRequest true "Template payload"
// @Success 201 {object} response.Envelope
// @Router /email-templates [post]
func (h *EmailHandler) CreateTemplate(c *gin.Context) {
	var req service.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	template, err := h.emails.CreateTemplate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, template)
}

// UpdateTemplate godoc
// @Summary Update email template
// @Tags Emails
// @Accept json
// @Produce json
// @Param id path int true "Template ID"
// @Param payload body service.TemplateRequest true "Template payload"
// @Success 200 {object} response.Envelope
// @Router /email-templates/{id} [put]
func (h *EmailHandler) UpdateTemplate(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	template, err := h.emails.UpdateTemplate(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, template, nil)
}

// DeleteTemplate godoc
// @Summary Delete email template
// @Tags Emails
// @Produce json
// @Param id path int true "Template ID"
// @Success 204
// @Router /email-templates/{id} [delete]
func (h *EmailHandler) DeleteTemplate(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.emails.DeleteTemplate(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Preview godoc
// @Summary Preview a template rendered for one student
// @Tags Emails
// @Produce json
// @Param id path int true "Template ID"
// @Param studentId path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /email-templates/{id}/preview/{studentId} [get]
func (h *EmailHandler) Preview(c *gin.Context) {
	templateID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	studentID, err := idParam(c, "studentId")
	if err != nil {
		response.Error(c, err)
		return
	}
	rendered, err := h.emails.Preview(c.Request.Context(), templateID, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rendered, nil)
}

// Send godoc
// @Summary Send a template to one or more students
// @Tags Emails
// @Accept json
// @Produce json
// @Param payload body service.SendEmailRequest true "Send payload"
// @Success 200 {object} response.Envelope
// @Router /emails/send [post]
func (h *EmailHandler) Send(c *gin.Context) {
	var req service.SendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	sentBy := ""
	if claims := claimsFromContext(c); claims != nil {
		sentBy = claims.Email
	}

	report, err := h.emails.Send(c.Request.Context(), req, sentBy)
	if err != nil {
		response.Error(c, err)
		return
	}
	for i := 0; i < report.Sent; i++ {
		h.metrics.ObserveEmailSent()
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// History godoc
// @Summary List a student's email send log
// @Tags Emails
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/emails [get]
func (h *EmailHandler) History(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	entries, err := h.emails.History(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
