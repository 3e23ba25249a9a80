package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/eduvance/trading-academy-api/internal/authz"
	"github.com/eduvance/trading-academy-api/internal/middleware"
	"github.com/eduvance/trading-academy-api/internal/models"
)

var validate = validator.New()

// claimsFromContext extracts the authenticated session claims set by the JWT
// middleware.
func claimsFromContext(c *gin.Context) (*models.JWTClaims, bool) {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok
}

// principalFromContext builds the policy principal from the session claims.
// The learning level is not carried in the token; level-gated handlers
// resolve it per request via resolvePrincipal.
func principalFromContext(c *gin.Context) (authz.Principal, bool) {
	claims, ok := claimsFromContext(c)
	if !ok {
		return authz.Principal{}, false
	}
	return authz.Principal{ID: claims.UserID, Role: claims.Role}, true
}

// userLoader resolves the current user's profile for level resolution.
type userLoader interface {
	Me(ctx context.Context, userID string) (*models.User, error)
}

// resolvePrincipal builds a principal with the learning level resolved from
// the user's stored profile, so a level change applies immediately rather
// than on the next login.
func resolvePrincipal(c *gin.Context, users userLoader) (authz.Principal, error) {
	p, ok := principalFromContext(c)
	if !ok {
		return authz.Principal{}, errMissingSession
	}
	if p.Role != models.RoleStudent {
		return p, nil
	}
	user, err := users.Me(c.Request.Context(), p.ID)
	if err != nil {
		return authz.Principal{}, err
	}
	p.Level = authz.ResolveLevel(user.LearningLevel, user.TradingLevel)
	return p, nil
}
