package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/service"
	pkgerrors "github.com/mbwalabat/virtual-campus-tour-vcts/pkg/errors"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/response"
)

// Context keys set by JWTAuth and OptionalAuth.
const (
	KeyPrincipal = "principal"
	KeyActor     = "actor"
	KeyUserID    = "user_id"
	KeyRole      = "role"
)

// Authenticator resolves a bearer token to the caller.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*service.Principal, error)
}

// JWTAuth requires a valid "Authorization: Bearer <token>" header and stores
// the caller on the context.
func JWTAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "Access denied. No token provided.")
			c.Abort()
			return
		}

		principal, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			abortWithAuthError(c, err)
			return
		}

		setPrincipal(c, principal)
		c.Next()
	}
}

// OptionalAuth attaches the caller when a valid token is sent and lets
// anonymous requests through. A bad token is still rejected.
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "Invalid authorization header")
			c.Abort()
			return
		}

		principal, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			abortWithAuthError(c, err)
			return
		}

		setPrincipal(c, principal)
		c.Next()
	}
}

// RoleAuth allows callers holding one of roles. Must run after JWTAuth.
func RoleAuth(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(KeyRole)
		if role == "" {
			response.Unauthorized(c, "Authentication required")
			c.Abort()
			return
		}

		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, "Access denied. Insufficient permissions.")
		c.Abort()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func setPrincipal(c *gin.Context, p *service.Principal) {
	c.Set(KeyPrincipal, p)
	c.Set(KeyActor, p.Actor)
	c.Set(KeyUserID, p.User.UserID)
	c.Set(KeyRole, p.User.Role)
}

func abortWithAuthError(c *gin.Context, err error) {
	_ = c.Error(err)
	if appErr, ok := pkgerrors.As(err); ok {
		response.AppError(c, appErr)
	} else {
		response.InternalError(c)
	}
	c.Abort()
}
