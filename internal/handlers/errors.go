package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/hierarchy-api/internal/errors"
	"github.com/yukikurage/hierarchy-api/internal/services"
)

// respondServiceError maps the service error taxonomy to an HTTP response.
func respondServiceError(c *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		apierrors.ValidationFailed(c, verr.Fields)
	case errors.Is(err, services.ErrUnauthenticated):
		apierrors.Unauthorized(c, "")
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.Respond(c, http.StatusUnauthorized, apierrors.ErrCodeInvalidCredentials, err.Error())
	case errors.Is(err, services.ErrInactiveAccount):
		apierrors.Respond(c, http.StatusUnauthorized, apierrors.ErrCodeInactiveAccount, err.Error())
	case errors.Is(err, services.ErrNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrForbidden):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrRoleProtected):
		apierrors.Respond(c, http.StatusForbidden, apierrors.ErrCodeRoleProtected, err.Error())
	case errors.Is(err, services.ErrUnassigned):
		apierrors.Respond(c, http.StatusForbidden, apierrors.ErrCodeUnassigned, err.Error())
	case errors.Is(err, services.ErrAlreadyAssigned):
		apierrors.Respond(c, http.StatusConflict, apierrors.ErrCodeAlreadyAssigned, err.Error())
	case errors.Is(err, services.ErrAlreadyMember):
		apierrors.Respond(c, http.StatusConflict, apierrors.ErrCodeAlreadyMember, err.Error())
	case errors.Is(err, services.ErrDuplicateIdentifier):
		apierrors.Respond(c, http.StatusConflict, apierrors.ErrCodeAlreadyExists, err.Error())
	case errors.Is(err, services.ErrConflict):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrNotAMember):
		apierrors.Respond(c, http.StatusBadRequest, apierrors.ErrCodeNotAMember, err.Error())
	case errors.Is(err, services.ErrRoleNotAssignable):
		apierrors.Respond(c, http.StatusBadRequest, apierrors.ErrCodeRoleNotAssignable, err.Error())
	case errors.Is(err, services.ErrInvalidOrExpiredToken):
		apierrors.Respond(c, http.StatusBadRequest, apierrors.ErrCodeInvalidToken, err.Error())
	case errors.Is(err, services.ErrInvalidImage):
		apierrors.Respond(c, http.StatusBadRequest, apierrors.ErrCodeInvalidImage, err.Error())
	case errors.Is(err, services.ErrNotificationFailed):
		apierrors.BadGateway(c, apierrors.ErrCodeNotificationFailed, "Email could not be sent")
	case errors.Is(err, context.DeadlineExceeded):
		apierrors.Respond(c, http.StatusGatewayTimeout, apierrors.ErrCodeTimeout, "Request timed out")
	default:
		_ = c.Error(err)
		apierrors.InternalError(c, "")
	}
}

// parseID reads a positive numeric path parameter.
func parseID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}
