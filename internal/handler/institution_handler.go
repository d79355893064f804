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

type institutionService interface {
	List(ctx context.Context, filter models.CatalogFilter) ([]models.Institution, *models.Pagination, error)
	Get(ctx context.Context, id int64) (*models.Institution, error)
	Create(ctx context.Context, req dto.CreateInstitutionRequest, actor *models.User) (*models.Institution, error)
	Update(ctx context.Context, id int64, update dto.InstitutionUpdate, actor *models.User) (*models.Institution, error)
	Delete(ctx context.Context, id int64, actor *models.User) error
}

// InstitutionHandler exposes institution catalog endpoints.
type InstitutionHandler struct {
	service institutionService
}

// NewInstitutionHandler constructs the handler.
func NewInstitutionHandler(service institutionService) *InstitutionHandler {
	return &InstitutionHandler{service: service}
}

// List godoc
// @Summary List institutions
// @Tags Institutions
// @Produce json
// @Param skip query int false "Rows to skip"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /institutions [get]
func (h *InstitutionHandler) List(c *gin.Context) {
	skip, limit := window(c)
	institutions, pagination, err := h.service.List(c.Request.Context(), models.CatalogFilter{Skip: skip, Limit: limit})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, institutions, pagination)
}

// Get godoc
// @Summary Get one institution
// @Tags Institutions
// @Produce json
// @Param id path int true "Institution ID"
// @Success 200 {object} response.Envelope
// @Router /institutions/{id} [get]
func (h *InstitutionHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	institution, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, institution, nil)
}

// Create godoc
// @Summary Create an institution
// @Tags Institutions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.CreateInstitutionRequest true "Institution payload"
// @Success 201 {object} response.Envelope
// @Router /institutions [post]
func (h *InstitutionHandler) Create(c *gin.Context) {
	var req dto.CreateInstitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid institution payload"))
		return
	}
	institution, err := h.service.Create(c.Request.Context(), req, currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, institution)
}

// Update godoc
// @Summary Patch an institution
// @Tags Institutions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Institution ID"
// @Param payload body dto.InstitutionUpdate true "Fields to update"
// @Success 200 {object} response.Envelope
// @Router /institutions/{id} [patch]
func (h *InstitutionHandler) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var update dto.InstitutionUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid institution payload"))
		return
	}
	institution, err := h.service.Update(c.Request.Context(), id, update, currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, institution, nil)
}

// Delete godoc
// @Summary Delete an institution
// @Tags Institutions
// @Security BearerAuth
// @Param id path int true "Institution ID"
// @Success 204 {string} string ""
// @Router /institutions/{id} [delete]
func (h *InstitutionHandler) Delete(c *gin.Context) {
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
