package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/avalia-edu/avalia-api/internal/dto"
	"github.com/avalia-edu/avalia-api/internal/models"
	appErrors "github.com/avalia-edu/avalia-api/pkg/errors"
)

type institutionRepository interface {
	List(ctx context.Context, filter models.CatalogFilter) ([]models.Institution, int, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Institution, error)
	ExistsByName(ctx context.Context, exec sqlx.ExtContext, name string, excludeID int64) (bool, error)
	Create(ctx context.Context, institution *models.Institution) error
	Update(ctx context.Context, exec sqlx.ExtContext, institution *models.Institution) error
	Delete(ctx context.Context, id int64) error
}

// InstitutionService manages the institution catalog. Direct mutation is
// moderator-only; ApplyUpdate also serves approved change requests inside
// the caller's transaction.
type InstitutionService struct {
	repo      institutionRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInstitutionService constructs an InstitutionService.
func NewInstitutionService(repo institutionRepository, validate *validator.Validate, logger *zap.Logger) *InstitutionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &InstitutionService{repo: repo, validator: validate, logger: logger}
}

// List returns institutions alphabetically with pagination metadata.
func (s *InstitutionService) List(ctx context.Context, filter models.CatalogFilter) ([]models.Institution, *models.Pagination, error) {
	institutions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list institutions")
	}
	return institutions, &models.Pagination{Skip: filter.Skip, Limit: filter.Limit, TotalCount: total}, nil
}

// Get returns one institution.
func (s *InstitutionService) Get(ctx context.Context, id int64) (*models.Institution, error) {
	institution, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "institution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load institution")
	}
	return institution, nil
}

// Create adds an institution. Moderator only.
func (s *InstitutionService) Create(ctx context.Context, req dto.CreateInstitutionRequest, actor *models.User) (*models.Institution, error) {
	if !actor.IsModerator() {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid institution payload")
	}
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByName(ctx, nil, name, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check institution name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "institution name already exists")
	}
	institution := &models.Institution{Name: name}
	if err := s.repo.Create(ctx, institution); err != nil {
		return nil, appErrors.FromError(err)
	}
	return institution, nil
}

// Update patches an institution directly. Moderator only.
func (s *InstitutionService) Update(ctx context.Context, id int64, update dto.InstitutionUpdate, actor *models.User) (*models.Institution, error) {
	if !actor.IsModerator() {
		return nil, appErrors.ErrForbidden
	}
	return s.ApplyUpdate(ctx, nil, id, update)
}

// ApplyUpdate validates and persists an institution patch. When exec is
// non-nil the write joins the caller's transaction and is not committed here.
func (s *InstitutionService) ApplyUpdate(ctx context.Context, exec sqlx.ExtContext, id int64, update dto.InstitutionUpdate) (*models.Institution, error) {
	institution, err := s.repo.FindByID(ctx, exec, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "institution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load institution")
	}
	if update.Name == nil {
		return nil, appErrors.Clone(appErrors.ErrUnprocessable, "no supported institution fields provided")
	}

	name, err := normalizeName(*update.Name)
	if err != nil {
		return nil, err
	}
	if name != institution.Name {
		exists, err := s.repo.ExistsByName(ctx, exec, name, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check institution name")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "institution name already exists")
		}
	}
	institution.Name = name

	if err := s.repo.Update(ctx, exec, institution); err != nil {
		return nil, appErrors.FromError(err)
	}
	return institution, nil
}

// Delete removes an institution. Moderator only.
func (s *InstitutionService) Delete(ctx context.Context, id int64, actor *models.User) error {
	if !actor.IsModerator() {
		return appErrors.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "institution not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete institution")
	}
	return nil
}
