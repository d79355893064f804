package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avalia-edu/avalia-api/internal/models"
	appErrors "github.com/avalia-edu/avalia-api/pkg/errors"
)

type authRepoStub struct {
	users   map[int64]*models.User
	tokens  map[string]*models.RefreshToken
	nextID  int64
	revoked []string
}

func newAuthRepoStub() *authRepoStub {
	return &authRepoStub{
		users:  make(map[int64]*models.User),
		tokens: make(map[string]*models.RefreshToken),
		nextID: 1,
	}
}

func (s *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) ExistsByCPF(ctx context.Context, cpf string, excludeID int64) (bool, error) {
	for _, user := range s.users {
		if user.CPF == cpf && user.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *authRepoStub) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	for _, user := range s.users {
		if user.Email == email && user.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *authRepoStub) Create(ctx context.Context, user *models.User) error {
	user.ID = s.nextID
	s.nextID++
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

func (s *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	stored := *token
	s.tokens[token.Token] = &stored
	return nil
}

func (s *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if stored, ok := s.tokens[token]; ok {
		clone := *stored
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range s.tokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
			s.revoked = append(s.revoked, id)
			return nil
		}
	}
	return sql.ErrNoRows
}

func newAuthServiceForTest(repo *authRepoStub) *AuthService {
	return NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "avalia-api",
	})
}

func validRegisterRequest() models.RegisterRequest {
	return models.RegisterRequest{
		CPF:      "12345678901",
		Email:    "Student@Example.COM",
		Password: "s3cret!",
		Role:     models.RoleStudent,
	}
}

func TestAuthServiceRegister(t *testing.T) {
	repo := newAuthRepoStub()
	svc := newAuthServiceForTest(repo)

	user, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)
	require.Equal(t, "student@example.com", user.Email)
	require.False(t, user.Validated)
	require.NotEqual(t, "s3cret!", user.PasswordHash)
	require.NotZero(t, user.ID)
}

func TestAuthServiceRegisterRejectsModerator(t *testing.T) {
	svc := newAuthServiceForTest(newAuthRepoStub())

	req := validRegisterRequest()
	req.Role = models.RoleModerator
	_, err := svc.Register(context.Background(), req)
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthServiceRegisterUniqueness(t *testing.T) {
	repo := newAuthRepoStub()
	svc := newAuthServiceForTest(repo)

	_, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)

	dup := validRegisterRequest()
	_, err = svc.Register(context.Background(), dup)
	require.ErrorIs(t, err, appErrors.ErrConflict)

	dup = validRegisterRequest()
	dup.CPF = "10987654321"
	dup.Email = "student@example.com"
	_, err = svc.Register(context.Background(), dup)
	require.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestAuthServiceRegisterValidation(t *testing.T) {
	svc := newAuthServiceForTest(newAuthRepoStub())

	req := validRegisterRequest()
	req.CPF = "123"
	_, err := svc.Register(context.Background(), req)
	require.ErrorIs(t, err, appErrors.ErrValidation)

	req = validRegisterRequest()
	req.Password = "short"
	_, err = svc.Register(context.Background(), req)
	require.ErrorIs(t, err, appErrors.ErrValidation)

	req = validRegisterRequest()
	req.Email = "not-an-email"
	_, err = svc.Register(context.Background(), req)
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthServiceLogin(t *testing.T) {
	repo := newAuthRepoStub()
	svc := newAuthServiceForTest(repo)

	_, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "s3cret!"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, models.RoleStudent, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, resp.User.ID, claims.UserID)
	require.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthServiceLoginInvalidCredentials(t *testing.T) {
	repo := newAuthRepoStub()
	svc := newAuthServiceForTest(repo)

	_, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "wrong"})
	require.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "s3cret!"})
	require.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceRefreshRotation(t *testing.T) {
	repo := newAuthRepoStub()
	svc := newAuthServiceForTest(repo)

	_, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)
	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "s3cret!"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The used token is revoked and cannot be replayed.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceRefreshExpired(t *testing.T) {
	repo := newAuthRepoStub()
	svc := newAuthServiceForTest(repo)

	_, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)
	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "s3cret!"})
	require.NoError(t, err)

	repo.tokens[login.RefreshToken].ExpiresAt = time.Now().UTC().Add(-time.Hour)
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceLogout(t *testing.T) {
	repo := newAuthRepoStub()
	svc := newAuthServiceForTest(repo)

	user, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)
	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "s3cret!"})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), login.RefreshToken, user.ID+100)
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	err = svc.Logout(context.Background(), login.RefreshToken, user.ID)
	require.NoError(t, err)
	require.True(t, repo.tokens[login.RefreshToken].Revoked)
}

func TestAuthServiceValidateTokenRejectsTampered(t *testing.T) {
	repo := newAuthRepoStub()
	svc := newAuthServiceForTest(repo)

	_, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)
	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "s3cret!"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(login.AccessToken + "x")
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)

	other := NewAuthService(repo, nil, nil, AuthConfig{AccessTokenSecret: "another-secret", AccessTokenExpiry: time.Minute})
	_, err = other.ValidateToken(login.AccessToken)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
