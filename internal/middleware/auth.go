package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/hierarchy-api/internal/auth"
	"github.com/yukikurage/hierarchy-api/internal/constants"
	apierrors "github.com/yukikurage/hierarchy-api/internal/errors"
	"github.com/yukikurage/hierarchy-api/internal/models"
	"github.com/yukikurage/hierarchy-api/internal/services"
)

// UserFinder loads the account behind a verified token.
type UserFinder interface {
	FindByID(ctx context.Context, id uint64) (*models.User, error)
}

// RequireAuth checks the bearer token (or the token kept in the session) and
// puts the actor with its current role and placement into the request context.
func RequireAuth(tokens *auth.TokenIssuer, users UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			apierrors.RespondWithError(c, http.StatusUnauthorized, apierrors.NewAPIError(apierrors.ErrCodeInvalidToken, "Invalid or expired token"))
			c.Abort()
			return
		}

		// Placement changes after the token was issued, so reload the user.
		user, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			apierrors.Unauthorized(c, "User no longer exists")
			c.Abort()
			return
		}
		if !user.Active {
			apierrors.RespondWithError(c, http.StatusUnauthorized, apierrors.NewAPIError(apierrors.ErrCodeInactiveAccount, "Account is inactive"))
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserID, user.ID)
		c.Request = c.Request.WithContext(services.WithActor(c.Request.Context(), services.ActorFromUser(user)))
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}

	// sessions.Default panics when no session middleware is installed
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return ""
	}
	if token, ok := sessions.Default(c).Get(constants.SessionKeyToken).(string); ok {
		return token
	}
	return ""
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}

	switch v := userID.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}
