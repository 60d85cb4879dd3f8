package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/winslow-house/advising-api/internal/models"
	"github.com/winslow-house/advising-api/internal/service"
	"github.com/winslow-house/advising-api/pkg/response"
)

// SyncHandler exposes the workbook sync endpoints.
type SyncHandler struct {
	sync    *service.SyncCoordinator
	metrics *service.MetricsService
}

// NewSyncHandler constructs SyncHandler.
func NewSyncHandler(sync *service.SyncCoordinator, metrics *service.MetricsService) *SyncHandler {
	return &SyncHandler{sync: sync, metrics: metrics}
}

// Export godoc
// @Summary Export rosters to the house workbook
// @Tags Sync
// @Produce json
// @Param force query bool false "Bypass the cache gate"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope "Workbook not configured"
// @Router /sync/export [post]
func (h *SyncHandler) Export(c *gin.Context) {
	force := c.Query("force") == "true"
	result, err := h.sync.ExportToWorkbook(c.Request.Context(), force)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveSync(models.SyncDirectionExport, syncOutcome(result))
	response.JSON(c, http.StatusOK, result, nil)
}

// Import godoc
// @Summary Import rosters from the house workbook
// @Tags Sync
// @Produce json
// @Param force query bool false "Bypass the cache gate"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope "Workbook not configured"
// @Router /sync/import [post]
func (h *SyncHandler) Import(c *gin.Context) {
	force := c.Query("force") == "true"
	result, err := h.sync.ImportFromWorkbook(c.Request.Context(), force)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveSync(models.SyncDirectionImport, syncOutcome(result))
	response.JSON(c, http.StatusOK, result, nil)
}

// Status godoc
// @Summary Report sync state for both directions
// @Tags Sync
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sync/status [get]
func (h *SyncHandler) Status(c *gin.Context) {
	status, err := h.sync.Status(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// ClearCache godoc
// @Summary Clear the sync cache so the next sync runs unconditionally
// @Tags Sync
// @Produce json
// @Success 204
// @Router /sync/cache [delete]
func (h *SyncHandler) ClearCache(c *gin.Context) {
	if err := h.sync.ClearCache(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func syncOutcome(result *models.SyncResult) string {
	switch {
	case result.Cached:
		return "cached"
	case result.Success:
		return "success"
	default:
		return "failed"
	}
}
