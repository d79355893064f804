package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avalia-edu/avalia-api/internal/dto"
	"github.com/avalia-edu/avalia-api/internal/models"
	appErrors "github.com/avalia-edu/avalia-api/pkg/errors"
	"github.com/avalia-edu/avalia-api/pkg/response"
)

type changeRequestService interface {
	Create(ctx context.Context, req dto.CreateChangeRequestRequest, author *models.User) (*models.ChangeRequest, error)
	List(ctx context.Context, filter models.ChangeRequestFilter, actor *models.User) ([]models.ChangeRequest, error)
	Get(ctx context.Context, id int64, actor *models.User) (*models.ChangeRequest, error)
	Resolve(ctx context.Context, id int64, approve bool, actor *models.User) (*models.ChangeRequest, error)
}

// ChangeRequestHandler exposes the staged catalog edit workflow.
type ChangeRequestHandler struct {
	service changeRequestService
}

// NewChangeRequestHandler constructs the handler.
func NewChangeRequestHandler(service changeRequestService) *ChangeRequestHandler {
	return &ChangeRequestHandler{service: service}
}

// Create godoc
// @Summary Stage a catalog edit
// @Tags ChangeRequests
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.CreateChangeRequestRequest true "Change request payload"
// @Success 201 {object} response.Envelope
// @Router /change-requests [post]
func (h *ChangeRequestHandler) Create(c *gin.Context) {
	var req dto.CreateChangeRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid change request payload"))
		return
	}
	req.TargetType = models.TargetType(strings.ToUpper(string(req.TargetType)))
	request, err := h.service.Create(c.Request.Context(), req, currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List godoc
// @Summary List change requests
// @Tags ChangeRequests
// @Security BearerAuth
// @Produce json
// @Param status query string false "Status filter"
// @Param target_type query string false "Target type filter"
// @Param skip query int false "Rows to skip"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /change-requests [get]
func (h *ChangeRequestHandler) List(c *gin.Context) {
	skip, limit := window(c)
	filter := models.ChangeRequestFilter{Skip: skip, Limit: limit}

	if raw := c.Query("status"); raw != "" {
		status := models.ChangeRequestStatus(strings.ToUpper(raw))
		switch status {
		case models.ChangeRequestPending, models.ChangeRequestApproved, models.ChangeRequestRejected:
			filter.Status = &status
		default:
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid status"))
			return
		}
	}
	if raw := c.Query("target_type"); raw != "" {
		targetType := models.TargetType(strings.ToUpper(raw))
		if !targetType.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid target_type"))
			return
		}
		filter.TargetType = &targetType
	}

	requests, err := h.service.List(c.Request.Context(), filter, currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Get godoc
// @Summary Get one change request
// @Tags ChangeRequests
// @Security BearerAuth
// @Produce json
// @Param id path int true "Change request ID"
// @Success 200 {object} response.Envelope
// @Router /change-requests/{id} [get]
func (h *ChangeRequestHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	request, err := h.service.Get(c.Request.Context(), id, currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Approve godoc
// @Summary Approve a pending change request
// @Tags ChangeRequests
// @Security BearerAuth
// @Produce json
// @Param id path int true "Change request ID"
// @Success 200 {object} response.Envelope
// @Router /change-requests/{id}/approve [post]
func (h *ChangeRequestHandler) Approve(c *gin.Context) {
	h.resolve(c, true)
}

// Reject godoc
// @Summary Reject a pending change request
// @Tags ChangeRequests
// @Security BearerAuth
// @Produce json
// @Param id path int true "Change request ID"
// @Success 200 {object} response.Envelope
// @Router /change-requests/{id}/reject [post]
func (h *ChangeRequestHandler) Reject(c *gin.Context) {
	h.resolve(c, false)
}

func (h *ChangeRequestHandler) resolve(c *gin.Context, approve bool) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	request, err := h.service.Resolve(c.Request.Context(), id, approve, currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
