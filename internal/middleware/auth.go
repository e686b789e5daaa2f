package middleware

import (
	"errors"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/frontdesk-api/internal/model"
	"github.com/jwalitptl/frontdesk-api/pkg/auth"
	apperrors "github.com/jwalitptl/frontdesk-api/pkg/errors"
	"github.com/jwalitptl/frontdesk-api/pkg/httputil"
)

const ContextCaller = "caller"

type AuthMiddleware struct {
	jwt auth.JWTService
}

func NewAuthMiddleware(jwt auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// Authenticate verifies the bearer token and puts the caller on the request context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.AbortWithError(c, apperrors.Unauthorized(errors.New("missing authorization header")))
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			httputil.AbortWithError(c, apperrors.Unauthorized(errors.New("invalid authorization format")))
			return
		}

		caller, err := m.jwt.ValidateToken(token)
		if err != nil {
			httputil.AbortWithError(c, err)
			return
		}

		c.Set(ContextCaller, caller)
		c.Request = c.Request.WithContext(model.WithCaller(c.Request.Context(), caller))
		c.Next()
	}
}

// RequireRoles rejects callers whose role is not listed. Services check
// roles again; this keeps unauthorised requests away from the handlers.
func RequireRoles(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := model.CallerFrom(c.Request.Context())
		if !ok {
			httputil.AbortWithError(c, apperrors.Unauthorized(errors.New("no caller on context")))
			return
		}
		if !slices.Contains(roles, caller.Role) {
			httputil.AbortWithError(c, apperrors.NewForbidden("role "+string(caller.Role)+" may not access this resource"))
			return
		}
		c.Next()
	}
}
