package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/acadchain-api/internal/models"
	appErrors "github.com/noah-isme/acadchain-api/pkg/errors"
	"github.com/noah-isme/acadchain-api/pkg/response"
)

// selfParams are the route parameters checked when a rule allows "SELF".
var selfParams = []string{"id", "studentId"}

// RBAC enforces role-based access control for routes. The pseudo-role
// "SELF" additionally admits callers whose user ID matches the route's
// subject parameter, so students can reach their own resources without
// holding a staff role.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowSelf := false
	allowedRoles := make(map[models.UserRole]struct{}, len(allowed))
	for _, a := range allowed {
		if a == "SELF" {
			allowSelf = true
			continue
		}
		allowedRoles[models.UserRole(a)] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		if allowSelf && matchesSelf(c, claims.UserID) {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

func matchesSelf(c *gin.Context, userID string) bool {
	for _, param := range selfParams {
		if target := c.Param(param); target != "" {
			return target == userID
		}
	}
	return false
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return RBAC(rolesToStrings(roles)...)
}

// RequireSelfOrRoles admits the resource owner alongside the given roles.
func RequireSelfOrRoles(roles ...models.UserRole) gin.HandlerFunc {
	return RBAC(append([]string{"SELF"}, rolesToStrings(roles)...)...)
}

func rolesToStrings(roles []models.UserRole) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
