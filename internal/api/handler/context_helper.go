package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/api/middleware"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/api/validation"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/authz"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/service"
	pkgerrors "github.com/mbwalabat/virtual-campus-tour-vcts/pkg/errors"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/response"
)

// MustGetPrincipal returns the authenticated caller. When JWTAuth did not
// run it writes 401 and returns false; callers should return immediately.
func MustGetPrincipal(c *gin.Context) (*service.Principal, bool) {
	v, exists := c.Get(middleware.KeyPrincipal)
	if !exists {
		response.Unauthorized(c, "Authentication required")
		return nil, false
	}
	p, ok := v.(*service.Principal)
	if !ok || p == nil || p.User == nil {
		response.Unauthorized(c, "Authentication required")
		return nil, false
	}
	return p, true
}

// actorFrom returns the caller's actor, or nil for anonymous requests.
func actorFrom(c *gin.Context) authz.Actor {
	v, exists := c.Get(middleware.KeyActor)
	if !exists {
		return nil
	}
	a, _ := v.(authz.Actor)
	return a
}

// respondError maps a service error onto the error envelope.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	if appErr, ok := pkgerrors.As(err); ok {
		response.AppError(c, appErr)
		return
	}
	response.InternalError(c)
}

// respondBindError reports a request that failed to bind or validate.
func respondBindError(c *gin.Context, err error) {
	_ = c.Error(err).SetType(gin.ErrorTypeBind)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Fail(c, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	response.BadRequest(c, "Validation failed", validation.FieldErrors(err)...)
}
