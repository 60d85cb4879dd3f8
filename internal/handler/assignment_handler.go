package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/winslow-house/advising-api/internal/service"
	appErrors "github.com/winslow-house/advising-api/pkg/errors"
	"github.com/winslow-house/advising-api/pkg/response"
)

// AssignRequest names the tutor to assign.
type AssignRequest struct {
	TutorID int `json:"tutor_id" binding:"required"`
}

// AssignmentHandler exposes the advisor assignment endpoints.
type AssignmentHandler struct {
	assignments *service.AssignmentService
	metrics     *service.MetricsService
}

// NewAssignmentHandler constructs AssignmentHandler.
func NewAssignmentHandler(assignments *service.AssignmentService, metrics *service.MetricsService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments, metrics: metrics}
}

// AssignRT godoc
// @Summary Assign a resident tutor to a student
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path int true "Student ID"
// @Param payload body AssignRequest true "Tutor to assign"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/rt [put]
func (h *AssignmentHandler) AssignRT(c *gin.Context) {
	studentID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tutor, err := h.assignments.AssignRT(c.Request.Context(), studentID, req.TutorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveAssignment("rt", "assign")
	response.JSON(c, http.StatusOK, tutor, nil)
}

// RemoveRT godoc
// @Summary Remove a student's resident tutor assignment
// @Tags Assignments
// @Produce json
// @Param id path int true "Student ID"
// @Success 204
// @Router /students/{id}/rt [delete]
func (h *AssignmentHandler) RemoveRT(c *gin.Context) {
	studentID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.assignments.RemoveRT(c.Request.Context(), studentID); err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveAssignment("rt", "remove")
	response.NoContent(c)
}

// AssignNRT godoc
// @Summary Assign a non-resident tutor to a student
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path int true "Student ID"
// @Param payload body AssignRequest true "Tutor to assign"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Capacity exceeded or tutor not eligible"
// @Router /students/{id}/nrt [put]
func (h *AssignmentHandler) AssignNRT(c *gin.Context) {
	studentID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tutor, err := h.assignments.AssignNRT(c.Request.Context(), studentID, req.TutorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveAssignment("nrt", "assign")
	response.JSON(c, http.StatusOK, tutor, nil)
}

// RemoveNRT godoc
// @Summary Remove a student's non-resident tutor assignment
// @Tags Assignments
// @Produce json
// @Param id path int true "Student ID"
// @Success 204
// @Router /students/{id}/nrt [delete]
func (h *AssignmentHandler) RemoveNRT(c *gin.Context) {
	studentID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.assignments.RemoveNRT(c.Request.Context(), studentID); err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveAssignment("nrt", "remove")
	response.NoContent(c)
}
