package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/acadchain-api/internal/middleware"
	"github.com/noah-isme/acadchain-api/internal/models"
)

// claimsFromContext returns the authenticated caller's claims, or nil on
// anonymous requests (routes behind OptionalJWT or none at all).
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	return claims
}
