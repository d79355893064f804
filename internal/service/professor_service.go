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

type professorRepository interface {
	List(ctx context.Context, filter models.CatalogFilter) ([]models.Professor, int, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Professor, error)
	ExistsByName(ctx context.Context, exec sqlx.ExtContext, name string, courseID, excludeID int64) (bool, error)
	Create(ctx context.Context, professor *models.Professor) error
	Update(ctx context.Context, exec sqlx.ExtContext, professor *models.Professor) error
	Delete(ctx context.Context, id int64) error
}

type catalogCourseChecker interface {
	Exists(ctx context.Context, exec sqlx.ExtContext, id int64) (bool, error)
}

// ProfessorService manages the professor catalog. Names are unique per course.
type ProfessorService struct {
	repo      professorRepository
	courses   catalogCourseChecker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfessorService constructs a ProfessorService.
func NewProfessorService(repo professorRepository, courses catalogCourseChecker, validate *validator.Validate, logger *zap.Logger) *ProfessorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProfessorService{repo: repo, courses: courses, validator: validate, logger: logger}
}

// List returns professors, optionally restricted to one course.
func (s *ProfessorService) List(ctx context.Context, filter models.CatalogFilter) ([]models.Professor, *models.Pagination, error) {
	professors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list professors")
	}
	return professors, &models.Pagination{Skip: filter.Skip, Limit: filter.Limit, TotalCount: total}, nil
}

// Get returns one professor.
func (s *ProfessorService) Get(ctx context.Context, id int64) (*models.Professor, error) {
	professor, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
	}
	return professor, nil
}

// Create adds a professor under an existing course. Moderator only.
func (s *ProfessorService) Create(ctx context.Context, req dto.CreateProfessorRequest, actor *models.User) (*models.Professor, error) {
	if !actor.IsModerator() {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid professor payload")
	}
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}
	if err := s.checkCourse(ctx, nil, req.CourseID); err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByName(ctx, nil, name, req.CourseID, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check professor name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "professor name already exists for the course")
	}
	professor := &models.Professor{Name: name, CourseID: req.CourseID}
	if err := s.repo.Create(ctx, professor); err != nil {
		return nil, appErrors.FromError(err)
	}
	return professor, nil
}

// Update patches a professor directly. Moderator only.
func (s *ProfessorService) Update(ctx context.Context, id int64, update dto.ProfessorUpdate, actor *models.User) (*models.Professor, error) {
	if !actor.IsModerator() {
		return nil, appErrors.ErrForbidden
	}
	return s.ApplyUpdate(ctx, nil, id, update)
}

// ApplyUpdate validates and persists a professor patch, joining the caller's
// transaction when exec is non-nil.
func (s *ProfessorService) ApplyUpdate(ctx context.Context, exec sqlx.ExtContext, id int64, update dto.ProfessorUpdate) (*models.Professor, error) {
	professor, err := s.repo.FindByID(ctx, exec, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
	}
	if update.Name == nil && update.CourseID == nil {
		return nil, appErrors.Clone(appErrors.ErrUnprocessable, "no supported professor fields provided")
	}

	if update.CourseID != nil {
		if *update.CourseID <= 0 {
			return nil, appErrors.Clone(appErrors.ErrUnprocessable, "course_id must be positive")
		}
		if err := s.checkCourse(ctx, exec, *update.CourseID); err != nil {
			return nil, err
		}
		professor.CourseID = *update.CourseID
	}
	if update.Name != nil {
		name, err := normalizeName(*update.Name)
		if err != nil {
			return nil, err
		}
		professor.Name = name
	}
	// Uniqueness is rechecked against the possibly reassigned course.
	exists, err := s.repo.ExistsByName(ctx, exec, professor.Name, professor.CourseID, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check professor name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "professor name already exists for the course")
	}

	if err := s.repo.Update(ctx, exec, professor); err != nil {
		return nil, appErrors.FromError(err)
	}
	return professor, nil
}

// Delete removes a professor. Moderator only.
func (s *ProfessorService) Delete(ctx context.Context, id int64, actor *models.User) error {
	if !actor.IsModerator() {
		return appErrors.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete professor")
	}
	return nil
}

func (s *ProfessorService) checkCourse(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	exists, err := s.courses.Exists(ctx, exec, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return nil
}
