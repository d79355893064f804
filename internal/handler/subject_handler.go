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

type subjectService interface {
	List(ctx context.Context, filter models.CatalogFilter) ([]models.Subject, *models.Pagination, error)
	Get(ctx context.Context, id int64) (*models.Subject, error)
	Create(ctx context.Context, req dto.CreateSubjectRequest, actor *models.User) (*models.Subject, error)
	Update(ctx context.Context, id int64, update dto.SubjectUpdate, actor *models.User) (*models.Subject, error)
	Delete(ctx context.Context, id int64, actor *models.User) error
}

// SubjectHandler exposes subject catalog endpoints.
type SubjectHandler struct {
	service subjectService
}

// NewSubjectHandler constructs the handler.
func NewSubjectHandler(service subjectService) *SubjectHandler {
	return &SubjectHandler{service: service}
}

// List godoc
// @Summary List subjects
// @Tags Subjects
// @Produce json
// @Param course_id query int false "Course filter"
// @Param skip query int false "Rows to skip"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *SubjectHandler) List(c *gin.Context) {
	skip, limit := window(c)
	courseID, err := queryInt64(c, "course_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	subjects, pagination, err := h.service.List(c.Request.Context(), models.CatalogFilter{
		CourseID: courseID,
		Skip:     skip,
		Limit:    limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, pagination)
}

// Get godoc
// @Summary Get one subject
// @Tags Subjects
// @Produce json
// @Param id path int true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id} [get]
func (h *SubjectHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	subject, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// Create godoc
// @Summary Create a subject
// @Tags Subjects
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.CreateSubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Router /subjects [post]
func (h *SubjectHandler) Create(c *gin.Context) {
	var req dto.CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid subject payload"))
		return
	}
	subject, err := h.service.Create(c.Request.Context(), req, currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// Update godoc
// @Summary Patch a subject
// @Tags Subjects
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Subject ID"
// @Param payload body dto.SubjectUpdate true "Fields to update"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id} [patch]
func (h *SubjectHandler) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var update dto.SubjectUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid subject payload"))
		return
	}
	subject, err := h.service.Update(c.Request.Context(), id, update, currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// Delete godoc
// @Summary Delete a subject
// @Tags Subjects
// @Security BearerAuth
// @Param id path int true "Subject ID"
// @Success 204 {string} string ""
// @Router /subjects/{id} [delete]
func (h *SubjectHandler) Delete(c *gin.Context) {
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
