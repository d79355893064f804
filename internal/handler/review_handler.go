package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avalia-edu/avalia-api/internal/dto"
	"github.com/avalia-edu/avalia-api/internal/models"
	appErrors "github.com/avalia-edu/avalia-api/pkg/errors"
	"github.com/avalia-edu/avalia-api/pkg/response"
)

type reviewService interface {
	List(ctx context.Context, filter models.ReviewFilter, actor *models.User) ([]models.Review, error)
	Get(ctx context.Context, id int64, actor *models.User) (*models.Review, error)
	Create(ctx context.Context, req dto.CreateReviewRequest, author *models.User) (*models.Review, error)
	Update(ctx context.Context, id int64, patch dto.UpdateReviewRequest, requester *models.User) (*models.Review, error)
	Delete(ctx context.Context, id int64, requester *models.User) error
	Metrics(ctx context.Context, target models.TargetRef) (*models.ReviewMetrics, error)
}

// ReviewHandler exposes review lifecycle endpoints.
type ReviewHandler struct {
	service reviewService
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(service reviewService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// List godoc
// @Summary List reviews
// @Tags Reviews
// @Produce json
// @Param target_type query string false "Target type"
// @Param target_id query int false "Target id, requires target_type"
// @Param user_id query int false "Author filter"
// @Param include_pending query bool false "Include pending reviews"
// @Param skip query int false "Rows to skip"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /reviews [get]
func (h *ReviewHandler) List(c *gin.Context) {
	skip, limit := window(c)
	filter := models.ReviewFilter{Skip: skip, Limit: limit}

	if raw := c.Query("target_type"); raw != "" {
		targetType := models.TargetType(strings.ToUpper(raw))
		if !targetType.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid target_type"))
			return
		}
		filter.TargetType = &targetType
	}
	targetID, err := queryInt64(c, "target_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.TargetID = targetID
	userID, err := queryInt64(c, "user_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.UserID = userID
	filter.IncludePending, _ = strconv.ParseBool(c.DefaultQuery("include_pending", "false"))

	reviews, err := h.service.List(c.Request.Context(), filter, currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reviews, nil)
}

// Get godoc
// @Summary Get one review
// @Tags Reviews
// @Produce json
// @Param id path int true "Review ID"
// @Success 200 {object} response.Envelope
// @Router /reviews/{id} [get]
func (h *ReviewHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	review, err := h.service.Get(c.Request.Context(), id, currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, review, nil)
}

// Create godoc
// @Summary Submit a review
// @Tags Reviews
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.CreateReviewRequest true "Review payload"
// @Success 201 {object} response.Envelope
// @Router /reviews [post]
func (h *ReviewHandler) Create(c *gin.Context) {
	var req dto.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	review, err := h.service.Create(c.Request.Context(), req, currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, review)
}

// Update godoc
// @Summary Patch a review or change its approval
// @Tags Reviews
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Review ID"
// @Param payload body dto.UpdateReviewRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Router /reviews/{id} [patch]
func (h *ReviewHandler) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var patch dto.UpdateReviewRequest
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	review, err := h.service.Update(c.Request.Context(), id, patch, currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, review, nil)
}

// Delete godoc
// @Summary Delete a review
// @Tags Reviews
// @Security BearerAuth
// @Param id path int true "Review ID"
// @Success 204 {string} string ""
// @Router /reviews/{id} [delete]
func (h *ReviewHandler) Delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id, currentUser(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Metrics godoc
// @Summary Aggregate rating metrics for one target
// @Tags Reviews
// @Produce json
// @Param target_type query string true "Target type"
// @Param target_id query int true "Target id"
// @Success 200 {object} response.Envelope
// @Router /reviews/metrics [get]
func (h *ReviewHandler) Metrics(c *gin.Context) {
	targetType := models.TargetType(strings.ToUpper(c.Query("target_type")))
	if !targetType.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid target_type"))
		return
	}
	targetID, err := queryInt64(c, "target_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if targetID == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "target_id is required"))
		return
	}
	metrics, err := h.service.Metrics(c.Request.Context(), models.TargetRef{Type: targetType, ID: *targetID})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, metrics, nil)
}
