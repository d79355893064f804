package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avalia-edu/avalia-api/internal/models"
	"github.com/avalia-edu/avalia-api/internal/service"
	appErrors "github.com/avalia-edu/avalia-api/pkg/errors"
	"github.com/avalia-edu/avalia-api/pkg/response"
)

// ContextUserKey is the gin context key storing the authenticated user.
const ContextUserKey = "currentUser"

type userLoader interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// JWT protects routes by requiring a valid access token. The full account is
// loaded so downstream checks see the current validated flag and role, not
// the ones frozen into the token.
func JWT(authService *service.AuthService, users userLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := authenticate(c, authService, users)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// OptionalJWT attaches the account when a valid token is present but does
// not block anonymous requests.
func OptionalJWT(authService *service.AuthService, users userLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, err := authenticate(c, authService, users); err == nil {
			c.Set(ContextUserKey, user)
		}
		c.Next()
	}
}

// CurrentUser extracts the authenticated user from the gin context, nil
// when the request is anonymous.
func CurrentUser(c *gin.Context) *models.User {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

func authenticate(c *gin.Context, authService *service.AuthService, users userLoader) (*models.User, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, appErrors.ErrUnauthorized
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
	}
	claims, err := authService.ValidateToken(parts[1])
	if err != nil {
		return nil, err
	}
	user, err := users.FindByID(c.Request.Context(), claims.UserID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
	}
	return user, nil
}
