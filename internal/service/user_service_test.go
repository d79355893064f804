package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/avalia-edu/avalia-api/internal/dto"
	"github.com/avalia-edu/avalia-api/internal/models"
	appErrors "github.com/avalia-edu/avalia-api/pkg/errors"
)

type userRepoStub struct {
	users map[int64]*models.User
}

func newUserRepoStub(users ...*models.User) *userRepoStub {
	stub := &userRepoStub{users: make(map[int64]*models.User)}
	for _, user := range users {
		clone := *user
		stub.users[user.ID] = &clone
	}
	return stub
}

func (s *userRepoStub) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) ExistsByCPF(ctx context.Context, cpf string, excludeID int64) (bool, error) {
	for _, user := range s.users {
		if user.CPF == cpf && user.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *userRepoStub) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	for _, user := range s.users {
		if user.Email == email && user.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *userRepoStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var result []models.User
	for _, user := range s.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		result = append(result, *user)
	}
	return result, len(result), nil
}

func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	if _, ok := s.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

type userCourseCheckerStub struct{ ids map[int64]bool }

func (s userCourseCheckerStub) Exists(ctx context.Context, exec sqlx.ExtContext, id int64) (bool, error) {
	return s.ids[id], nil
}

func newUserServiceForTest(repo *userRepoStub) *UserService {
	return NewUserService(repo, userCourseCheckerStub{ids: map[int64]bool{1: true}}, nil, nil)
}

func TestUserServiceGetScope(t *testing.T) {
	repo := newUserRepoStub(student(), &models.User{ID: 8, Role: models.RoleStudent})
	svc := newUserServiceForTest(repo)

	found, err := svc.Get(context.Background(), 7, student())
	require.NoError(t, err)
	require.Equal(t, int64(7), found.ID)

	_, err = svc.Get(context.Background(), 8, student())
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Get(context.Background(), 8, moderator())
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), 404, moderator())
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestUserServiceListModeratorOnly(t *testing.T) {
	repo := newUserRepoStub(student())
	svc := newUserServiceForTest(repo)

	_, _, err := svc.List(context.Background(), models.UserFilter{}, student())
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	users, pagination, err := svc.List(context.Background(), models.UserFilter{Limit: 20}, moderator())
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, 1, pagination.TotalCount)
}

func TestUserServiceUpdateModeratorFields(t *testing.T) {
	repo := newUserRepoStub(student())
	svc := newUserServiceForTest(repo)

	validated := true
	_, err := svc.Update(context.Background(), 7, dto.UpdateUserRequest{Validated: &validated}, student())
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	role := models.RoleProfessor
	_, err = svc.Update(context.Background(), 7, dto.UpdateUserRequest{Role: &role}, student())
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	updated, err := svc.Update(context.Background(), 7, dto.UpdateUserRequest{Validated: &validated, Role: &role}, moderator())
	require.NoError(t, err)
	require.True(t, updated.Validated)
	require.Equal(t, models.RoleProfessor, updated.Role)

	bad := models.UserRole("SUPERUSER")
	_, err = svc.Update(context.Background(), 7, dto.UpdateUserRequest{Role: &bad}, moderator())
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestUserServiceUpdateProfile(t *testing.T) {
	other := &models.User{ID: 8, Role: models.RoleStudent, CPF: "22222222222", Email: "other@example.com"}
	repo := newUserRepoStub(student(), other)
	svc := newUserServiceForTest(repo)

	email := "  New@Example.com "
	cpf := "11111111111"
	password := "longenough"
	courseID := int64(1)
	updated, err := svc.Update(context.Background(), 7, dto.UpdateUserRequest{
		Email:    &email,
		CPF:      &cpf,
		Password: &password,
		CourseID: &courseID,
	}, student())
	require.NoError(t, err)
	require.Equal(t, "new@example.com", updated.Email)
	require.Equal(t, "11111111111", updated.CPF)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("longenough")))
	require.Equal(t, int64(1), *updated.CourseID)

	taken := "other@example.com"
	_, err = svc.Update(context.Background(), 7, dto.UpdateUserRequest{Email: &taken}, student())
	require.ErrorIs(t, err, appErrors.ErrConflict)

	takenCPF := "22222222222"
	_, err = svc.Update(context.Background(), 7, dto.UpdateUserRequest{CPF: &takenCPF}, student())
	require.ErrorIs(t, err, appErrors.ErrConflict)

	shortCPF := "123"
	_, err = svc.Update(context.Background(), 7, dto.UpdateUserRequest{CPF: &shortCPF}, student())
	require.ErrorIs(t, err, appErrors.ErrValidation)

	shortPassword := "short"
	_, err = svc.Update(context.Background(), 7, dto.UpdateUserRequest{Password: &shortPassword}, student())
	require.ErrorIs(t, err, appErrors.ErrValidation)

	missingCourse := int64(404)
	_, err = svc.Update(context.Background(), 7, dto.UpdateUserRequest{CourseID: &missingCourse}, student())
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Update(context.Background(), 8, dto.UpdateUserRequest{Email: &email}, student())
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}
