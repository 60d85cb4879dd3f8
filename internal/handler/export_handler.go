package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/winslow-house/advising-api/internal/service"
	"github.com/winslow-house/advising-api/pkg/response"
)

// ExportHandler exposes roster download endpoints.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Roster godoc
// @Summary Download a roster as CSV or PDF
// @Tags Exports
// @Produce octet-stream
// @Param roster path string true "Roster" Enums(students, rts, nrts)
// @Param format query string false "Format (csv or pdf)" default(csv)
// @Success 200 {file} binary
// @Router /exports/{roster} [get]
func (h *ExportHandler) Roster(c *gin.Context) {
	format := c.DefaultQuery("format", service.ExportFormatCSV)
	file, err := h.exports.Roster(c.Request.Context(), c.Param("roster"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
