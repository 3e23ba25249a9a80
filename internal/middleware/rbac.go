package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/eduvance/trading-academy-api/internal/models"
	appErrors "github.com/eduvance/trading-academy-api/pkg/errors"
	"github.com/eduvance/trading-academy-api/pkg/response"
)

// RequireRoles rejects requests whose session role is outside the allow-list.
// Resource-level decisions (ownership, immutability, level gates) live in the
// authorization policy; this is only the coarse route guard.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if _, ok := allowed[claims.Role]; ok {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireStaff admits instructors and administrators.
func RequireStaff() gin.HandlerFunc {
	return RequireRoles(models.RoleInstructor, models.RoleAdmin, models.RoleSuperAdmin)
}

// RequireAdmin admits administrators only.
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)
}
