package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/avalia-edu/avalia-api/internal/dto"
	"github.com/avalia-edu/avalia-api/internal/models"
	appErrors "github.com/avalia-edu/avalia-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CatalogFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Course, error)
	Exists(ctx context.Context, exec sqlx.ExtContext, id int64) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, exec sqlx.ExtContext, course *models.Course) error
	Delete(ctx context.Context, id int64) error
}

type courseInstitutionChecker interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Institution, error)
}

// CourseService manages the course catalog. Courses belong to exactly one
// institution, which must exist at write time.
type CourseService struct {
	repo         courseRepository
	institutions courseInstitutionChecker
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, institutions courseInstitutionChecker, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{repo: repo, institutions: institutions, validator: validate, logger: logger}
}

// List returns courses, optionally restricted to one institution.
func (s *CourseService) List(ctx context.Context, filter models.CatalogFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, &models.Pagination{Skip: filter.Skip, Limit: filter.Limit, TotalCount: total}, nil
}

// Get returns one course.
func (s *CourseService) Get(ctx context.Context, id int64) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create adds a course under an existing institution. Moderator only.
func (s *CourseService) Create(ctx context.Context, req dto.CreateCourseRequest, actor *models.User) (*models.Course, error) {
	if !actor.IsModerator() {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}
	if err := s.checkInstitution(ctx, nil, req.InstitutionID); err != nil {
		return nil, err
	}
	course := &models.Course{Name: name, InstitutionID: req.InstitutionID}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.FromError(err)
	}
	return course, nil
}

// Update patches a course directly. Moderator only.
func (s *CourseService) Update(ctx context.Context, id int64, update dto.CourseUpdate, actor *models.User) (*models.Course, error) {
	if !actor.IsModerator() {
		return nil, appErrors.ErrForbidden
	}
	return s.ApplyUpdate(ctx, nil, id, update)
}

// ApplyUpdate validates and persists a course patch, joining the caller's
// transaction when exec is non-nil.
func (s *CourseService) ApplyUpdate(ctx context.Context, exec sqlx.ExtContext, id int64, update dto.CourseUpdate) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, exec, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if update.Name == nil && update.InstitutionID == nil {
		return nil, appErrors.Clone(appErrors.ErrUnprocessable, "no supported course fields provided")
	}

	if update.Name != nil {
		name, err := normalizeName(*update.Name)
		if err != nil {
			return nil, err
		}
		course.Name = name
	}
	if update.InstitutionID != nil {
		if *update.InstitutionID <= 0 {
			return nil, appErrors.Clone(appErrors.ErrUnprocessable, "institution_id must be positive")
		}
		if err := s.checkInstitution(ctx, exec, *update.InstitutionID); err != nil {
			return nil, err
		}
		course.InstitutionID = *update.InstitutionID
	}

	if err := s.repo.Update(ctx, exec, course); err != nil {
		return nil, appErrors.FromError(err)
	}
	return course, nil
}

// Delete removes a course. Moderator only.
func (s *CourseService) Delete(ctx context.Context, id int64, actor *models.User) error {
	if !actor.IsModerator() {
		return appErrors.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	return nil
}

func (s *CourseService) checkInstitution(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	if _, err := s.institutions.FindByID(ctx, exec, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("institution %d not found", id))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check institution")
	}
	return nil
}
