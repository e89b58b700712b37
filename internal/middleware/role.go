package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/hierarchy-api/internal/authz"
	apierrors "github.com/yukikurage/hierarchy-api/internal/errors"
	"github.com/yukikurage/hierarchy-api/internal/services"
)

// RequirePermission checks that the actor's role may perform act on obj.
// Must run after RequireAuth. Record level scope checks happen in the services.
func RequirePermission(gate *authz.RoleGate, obj, act string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := services.ActorFromContext(c.Request.Context())
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		allowed, err := gate.Allowed(actor.Role, obj, act)
		if err != nil {
			apierrors.InternalError(c, "Failed to evaluate permissions")
			c.Abort()
			return
		}
		if !allowed {
			apierrors.Forbidden(c, "Your role is not allowed to perform this action")
			c.Abort()
			return
		}

		c.Next()
	}
}
