package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/avalia-edu/avalia-api/internal/dto"
	"github.com/avalia-edu/avalia-api/internal/models"
	appErrors "github.com/avalia-edu/avalia-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	ExistsByCPF(ctx context.Context, cpf string, excludeID int64) (bool, error)
	ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Update(ctx context.Context, user *models.User) error
}

type userCourseChecker interface {
	Exists(ctx context.Context, exec sqlx.ExtContext, id int64) (bool, error)
}

// UserService manages account profiles and moderator-side validation.
type UserService struct {
	repo      userRepository
	courses   userCourseChecker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(repo userRepository, courses userCourseChecker, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, courses: courses, validator: validate, logger: logger}
}

// Get returns one account. Users may read themselves; moderators may read anyone.
func (s *UserService) Get(ctx context.Context, id int64, actor *models.User) (*models.User, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.ID != id && !actor.IsModerator() {
		return nil, appErrors.ErrForbidden
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// List returns accounts for moderators.
func (s *UserService) List(ctx context.Context, filter models.UserFilter, actor *models.User) ([]models.User, *models.Pagination, error) {
	if !actor.IsModerator() {
		return nil, nil, appErrors.ErrForbidden
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, &models.Pagination{Skip: filter.Skip, Limit: filter.Limit, TotalCount: total}, nil
}

// Update patches an account. Role and validated changes require the
// moderator role; everything else is owner-or-moderator.
func (s *UserService) Update(ctx context.Context, id int64, req dto.UpdateUserRequest, actor *models.User) (*models.User, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.ID != id && !actor.IsModerator() {
		return nil, appErrors.ErrForbidden
	}
	if (req.Role != nil || req.Validated != nil) && !actor.IsModerator() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only moderators may change role or validation")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if req.CPF != nil {
		cpf := strings.TrimSpace(*req.CPF)
		if len(cpf) != 11 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "cpf must have 11 digits")
		}
		exists, err := s.repo.ExistsByCPF(ctx, cpf, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check cpf")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "cpf already registered")
		}
		user.CPF = cpf
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if err := s.validator.Var(email, "required,email"); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid email")
		}
		exists, err := s.repo.ExistsByEmail(ctx, email, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		user.Email = email
	}
	if req.Password != nil {
		if len(*req.Password) < 6 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "password must have at least 6 characters")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		user.PasswordHash = string(hash)
	}
	if req.CourseID != nil {
		if *req.CourseID <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "course_id must be positive")
		}
		exists, err := s.courses.Exists(ctx, nil, *req.CourseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course")
		}
		if !exists {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		user.CourseID = req.CourseID
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid role")
		}
		user.Role = *req.Role
	}
	if req.Validated != nil {
		user.Validated = *req.Validated
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.FromError(err)
	}
	return user, nil
}
