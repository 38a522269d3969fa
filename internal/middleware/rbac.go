package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/league-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/league-scheduler-api/pkg/errors"
	"github.com/noah-isme/league-scheduler-api/pkg/response"
)

// RBAC enforces role-based access control for routes. ADMIN passes every check.
func RBAC(allowed ...models.UserRole) gin.HandlerFunc {
	allowedRoles := make(map[models.UserRole]struct{}, len(allowed)+1)
	allowedRoles[models.RoleAdmin] = struct{}{}
	for _, role := range allowed {
		allowedRoles[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// Guard bundles authentication and role checks. When tokens is nil both are skipped, which is how
// the API runs with JWT disabled.
type Guard struct {
	tokens TokenValidator
}

// NewGuard constructs a Guard.
func NewGuard(tokens TokenValidator) *Guard {
	return &Guard{tokens: tokens}
}

// Enabled reports whether requests are authenticated.
func (g *Guard) Enabled() bool { return g != nil && g.tokens != nil }

// Authenticate returns the JWT middleware or a pass-through.
func (g *Guard) Authenticate() gin.HandlerFunc {
	if !g.Enabled() {
		return func(c *gin.Context) { c.Next() }
	}
	return JWT(g.tokens)
}

// Require returns RBAC for roles or a pass-through.
func (g *Guard) Require(roles ...models.UserRole) gin.HandlerFunc {
	if !g.Enabled() {
		return func(c *gin.Context) { c.Next() }
	}
	return RBAC(roles...)
}
