package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avalia-edu/avalia-api/internal/models"
	"github.com/avalia-edu/avalia-api/internal/service"
	"github.com/avalia-edu/avalia-api/pkg/response"
)

type exportService interface {
	PendingReviews(ctx context.Context, format service.ExportFormat, actor *models.User) (*service.ExportResult, error)
	PendingChangeRequests(ctx context.Context, format service.ExportFormat, actor *models.User) (*service.ExportResult, error)
}

// ExportHandler serves moderation queue downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// PendingReviews godoc
// @Summary Download the pending review queue
// @Tags Exports
// @Security BearerAuth
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /exports/pending-reviews [get]
func (h *ExportHandler) PendingReviews(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.service.PendingReviews(c.Request.Context(), format, currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveExport(c, result)
}

// PendingChangeRequests godoc
// @Summary Download the pending change request queue
// @Tags Exports
// @Security BearerAuth
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /exports/pending-change-requests [get]
func (h *ExportHandler) PendingChangeRequests(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.service.PendingChangeRequests(c.Request.Context(), format, currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveExport(c, result)
}

func serveExport(c *gin.Context, result *service.ExportResult) {
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
