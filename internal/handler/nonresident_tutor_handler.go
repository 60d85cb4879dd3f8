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

// NonResidentTutorHandler exposes non-resident tutor endpoints.
type NonResidentTutorHandler struct {
	roster *service.RosterService
}

// NewNonResidentTutorHandler constructs NonResidentTutorHandler.
func NewNonResidentTutorHandler(roster *service.RosterService) *NonResidentTutorHandler {
	return &NonResidentTutorHandler{roster: roster}
}

// List godoc
// @Summary List non-resident tutors with live derived counts
// @Tags Non-Resident Tutors
// @Produce json
// @Param search query string false "Search by name or email"
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /non-resident-tutors [get]
func (h *NonResidentTutorHandler) List(c *gin.Context) {
	filter := models.TutorFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Status: strings.TrimSpace(c.Query("status")),
	}
	tutors, err := h.roster.ListNRTs(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutors, nil)
}

// Get godoc
// @Summary Get non-resident tutor detail
// @Tags Non-Resident Tutors
// @Produce json
// @Param id path int true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Router /non-resident-tutors/{id} [get]
func (h *NonResidentTutorHandler) Get(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	tutor, err := h.roster.GetNRT(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutor, nil)
}

// Create godoc
// @Summary Create non-resident tutor
// @Tags Non-Resident Tutors
// @Accept json
// @Produce json
// @Param payload body service.CreateNRTRequest true "Tutor payload"
// @Success 201 {object} response.Envelope
// @Router /non-resident-tutors [post]
func (h *NonResidentTutorHandler) Create(c *gin.Context) {
	var req service.CreateNRTRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tutor, err := h.roster.CreateNRT(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tutor)
}

// Update godoc
// @Summary Update non-resident tutor
// @Tags Non-Resident Tutors
// @Accept json
// @Produce json
// @Param id path int true "Tutor ID"
// @Param payload body service.UpdateNRTRequest true "Tutor payload"
// @Success 200 {object} response.Envelope
// @Router /non-resident-tutors/{id} [put]
func (h *NonResidentTutorHandler) Update(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.UpdateNRTRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tutor, err := h.roster.UpdateNRT(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutor, nil)
}

// BulkAdd godoc
// @Summary Bulk add non-resident tutors
// @Tags Non-Resident Tutors
// @Accept json
// @Produce json
// @Param payload body []service.CreateNRTRequest true "Tutor payloads"
// @Success 200 {object} response.Envelope
// @Router /non-resident-tutors/bulk [post]
func (h *NonResidentTutorHandler) BulkAdd(c *gin.Context) {
	var reqs []service.CreateNRTRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.roster.BulkAddNRTs(c.Request.Context(), reqs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete non-resident tutor and clear matching assignments
// @Tags Non-Resident Tutors
// @Produce json
// @Param id path int true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Router /non-resident-tutors/{id} [delete]
func (h *NonResidentTutorHandler) Delete(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.roster.DeleteNRT(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
