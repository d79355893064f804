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

type subjectRepository interface {
	List(ctx context.Context, filter models.CatalogFilter) ([]models.Subject, int, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Subject, error)
	ExistsByName(ctx context.Context, exec sqlx.ExtContext, name string, courseID, excludeID int64) (bool, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, exec sqlx.ExtContext, subject *models.Subject) error
	Delete(ctx context.Context, id int64) error
}

// SubjectService manages the subject catalog. Names are unique per course.
type SubjectService struct {
	repo      subjectRepository
	courses   catalogCourseChecker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs a SubjectService.
func NewSubjectService(repo subjectRepository, courses catalogCourseChecker, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SubjectService{repo: repo, courses: courses, validator: validate, logger: logger}
}

// List returns subjects, optionally restricted to one course.
func (s *SubjectService) List(ctx context.Context, filter models.CatalogFilter) ([]models.Subject, *models.Pagination, error) {
	subjects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, &models.Pagination{Skip: filter.Skip, Limit: filter.Limit, TotalCount: total}, nil
}

// Get returns one subject.
func (s *SubjectService) Get(ctx context.Context, id int64) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

// Create adds a subject under an existing course. Moderator only.
func (s *SubjectService) Create(ctx context.Context, req dto.CreateSubjectRequest, actor *models.User) (*models.Subject, error) {
	if !actor.IsModerator() {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
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
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject name already exists for the course")
	}
	subject := &models.Subject{Name: name, CourseID: req.CourseID}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, appErrors.FromError(err)
	}
	return subject, nil
}

// Update patches a subject directly. Moderator only.
func (s *SubjectService) Update(ctx context.Context, id int64, update dto.SubjectUpdate, actor *models.User) (*models.Subject, error) {
	if !actor.IsModerator() {
		return nil, appErrors.ErrForbidden
	}
	return s.ApplyUpdate(ctx, nil, id, update)
}

// ApplyUpdate validates and persists a subject patch, joining the caller's
// transaction when exec is non-nil.
func (s *SubjectService) ApplyUpdate(ctx context.Context, exec sqlx.ExtContext, id int64, update dto.SubjectUpdate) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, exec, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if update.Name == nil && update.CourseID == nil {
		return nil, appErrors.Clone(appErrors.ErrUnprocessable, "no supported subject fields provided")
	}

	if update.CourseID != nil {
		if *update.CourseID <= 0 {
			return nil, appErrors.Clone(appErrors.ErrUnprocessable, "course_id must be positive")
		}
		if err := s.checkCourse(ctx, exec, *update.CourseID); err != nil {
			return nil, err
		}
		subject.CourseID = *update.CourseID
	}
	if update.Name != nil {
		name, err := normalizeName(*update.Name)
		if err != nil {
			return nil, err
		}
		subject.Name = name
	}
	exists, err := s.repo.ExistsByName(ctx, exec, subject.Name, subject.CourseID, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject name already exists for the course")
	}

	if err := s.repo.Update(ctx, exec, subject); err != nil {
		return nil, appErrors.FromError(err)
	}
	return subject, nil
}

// Delete removes a subject. Moderator only.
func (s *SubjectService) Delete(ctx context.Context, id int64, actor *models.User) error {
	if !actor.IsModerator() {
		return appErrors.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	return nil
}

func (s *SubjectService) checkCourse(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	exists, err := s.courses.Exists(ctx, exec, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return nil
}
