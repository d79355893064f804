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

type professorService interface {
	List(ctx context.Context, filter models.CatalogFilter) ([]models.Professor, *models.Pagination, error)
	Get(ctx context.Context, id int64) (*models.Professor, error)
	Create(ctx context.Context, req dto.CreateProfessorRequest, actor *models.User) (*models.Professor, error)
	Update(ctx context.Context, id int64, update dto.ProfessorUpdate, actor *models.User) (*models.Professor, error)
	Delete(ctx context.Context, id int64, actor *models.User) error
}

// ProfessorHandler exposes professor catalog endpoints.
type ProfessorHandler struct {
	service professorService
}

// NewProfessorHandler constructs the handler.
func NewProfessorHandler(service professorService) *ProfessorHandler {
	return &ProfessorHandler{service: service}
}

// List godoc
// @Summary List professors
// @Tags Professors
// @Produce json
// @Param course_id query int false "Course filter"
// @Param skip query int false "Rows to skip"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /professors [get]
func (h *ProfessorHandler) List(c *gin.Context) {
	skip, limit := window(c)
	courseID, err := queryInt64(c, "course_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	professors, pagination, err := h.service.List(c.Request.Context(), models.CatalogFilter{
		CourseID: courseID,
		Skip:     skip,
		Limit:    limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, professors, pagination)
}

// Get godoc
// @Summary Get one professor
// @Tags Professors
// @Produce json
// @Param id path int true "Professor ID"
// @Success 200 {object} response.Envelope
// @Router /professors/{id} [get]
func (h *ProfessorHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	professor, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, professor, nil)
}

// Create godoc
// @Summary Create a professor
// @Tags Professors
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.CreateProfessorRequest true "Professor payload"
// @Success 201 {object} response.Envelope
// @Router /professors [post]
func (h *ProfessorHandler) Create(c *gin.Context) {
	var req dto.CreateProfessorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid professor payload"))
		return
	}
	professor, err := h.service.Create(c.Request.Context(), req, currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, professor)
}

// Update godoc
// @Summary Patch a professor
// @Tags Professors
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Professor ID"
// @Param payload body dto.ProfessorUpdate true "Fields to update"
// @Success 200 {object} response.Envelope
// @Router /professors/{id} [patch]
func (h *ProfessorHandler) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var update dto.ProfessorUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid professor payload"))
		return
	}
	professor, err := h.service.Update(c.Request.Context(), id, update, currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, professor, nil)
}

// Delete godoc
// @Summary Delete a professor
// @Tags Professors
// @Security BearerAuth
// @Param id path int true "Professor ID"
// @Success 204 {string} string ""
// @Router /professors/{id} [delete]
func (h *ProfessorHandler) Delete(c *gin.Context) {
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
