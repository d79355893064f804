package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avalia-edu/avalia-api/internal/dto"
	"github.com/avalia-edu/avalia-api/internal/models"
	appErrors "github.com/avalia-edu/avalia-api/pkg/errors"
	"github.com/avalia-edu/avalia-api/pkg/response"
)

type commentService interface {
	List(ctx context.Context, reviewID int64, skip, limit int) ([]models.Comment, error)
	Create(ctx context.Context, req dto.CreateCommentRequest, author *models.User) (*models.Comment, error)
	Update(ctx context.Context, id int64, patch dto.UpdateCommentRequest, requester *models.User) (*models.Comment, error)
	Delete(ctx context.Context, id int64, requester *models.User) error
}

// CommentHandler exposes comment endpoints.
type CommentHandler struct {
	service commentService
}

// NewCommentHandler constructs the handler.
func NewCommentHandler(service commentService) *CommentHandler {
	return &CommentHandler{service: service}
}

// ListByReview godoc
// @Summary List comments of an approved review
// @Tags Comments
// @Produce json
// @Param id path int true "Review ID"
// @Param skip query int false "Rows to skip"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /reviews/{id}/comments [get]
func (h *CommentHandler) ListByReview(c *gin.Context) {
	reviewID, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	skip, limit := window(c)
	comments, err := h.service.List(c.Request.Context(), reviewID, skip, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comments, nil)
}

// Create godoc
// @Summary Attach a comment to an approved review
// @Tags Comments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.CreateCommentRequest true "Comment payload"
// @Success 201 {object} response.Envelope
// @Router /comments [post]
func (h *CommentHandler) Create(c *gin.Context) {
	var req dto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid comment payload"))
		return
	}
	comment, err := h.service.Create(c.Request.Context(), req, currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// Update godoc
// @Summary Patch a comment
// @Tags Comments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Comment ID"
// @Param payload body dto.UpdateCommentRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Router /comments/{id} [patch]
func (h *CommentHandler) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var patch dto.UpdateCommentRequest
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid comment payload"))
		return
	}
	comment, err := h.service.Update(c.Request.Context(), id, patch, currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comment, nil)
}

// Delete godoc
// @Summary Delete a comment
// @Tags Comments
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 204 {string} string ""
// @Router /comments/{id} [delete]
func (h *CommentHandler) Delete(c *gin.Context) {
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
