package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/winslow-house/advising-api/internal/models"
	"github.com/winslow-house/advising-api/internal/service"
	appErrors "github.com/winslow-house/advising-api/pkg/errors"
	"github.com/winslow-house/advising-api/pkg/response"
)

// ResidentTutorHandler exposes resident tutor endpoints.
type ResidentTutorHandler struct {
	roster *service.RosterService
}

// NewResidentTutorHandler constructs ResidentTutorHandler.
func NewResidentTutorHandler(roster *service.RosterService) *ResidentTutorHandler {
	return &ResidentTutorHandler{roster: roster}
}

// List godoc
// @Summary List resident tutors with live student counts
// @Tags Resident Tutors
// @Produce json
// @Param search query string false "Search by name or email"
// @Success 200 {object} response.Envelope
// @Router /resident-tutors [get]
func (h *ResidentTutorHandler) List(c *gin.Context) {
	filter := models.TutorFilter{Search: strings.TrimSpace(c.Query("search"))}
	tutors, err := h.roster.ListRTs(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutors, nil)
}

// Get godoc
// @Summary Get resident tutor detail
// @Tags Resident Tutors
// @Produce json
// @Param id path int true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Router /resident-tutors/{id} [get]
func (h *ResidentTutorHandler) Get(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	tutor, err := h.roster.GetRT(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutor, nil)
}

// Create godoc
// @Summary Create resident tutor
// @Tags Resident Tutors
// @Accept json
// @Produce json
// @Param payload body service.CreateRTRequest true "Tutor payload"
// @Success 201 {object} response.Envelope
// @Router /resident-tutors [post]
func (h *ResidentTutorHandler) Create(c *gin.Context) {
	var req service.CreateRTRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tutor, err := h.roster.CreateRT(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tutor)
}

// Update godoc
// @Summary Update resident tutor
// @Tags Resident Tutors
// @Accept json
// @Produce json
// @Param id path int true "Tutor ID"
// @Param payload body service.UpdateRTRequest true "Tutor payload"
// @Success 200 {object} response.Envelope
// @Router /resident-tutors/{id} [put]
func (h *ResidentTutorHandler) Update(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.UpdateRTRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tutor, err := h.roster.UpdateRT(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutor, nil)
}

// Delete godoc
// @Summary Delete resident tutor and clear matching assignments
// @Tags Resident Tutors
// @Produce json
// @Param id path int true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Router /resident-tutors/{id} [delete]
func (h *ResidentTutorHandler) Delete(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.roster.DeleteRT(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
