package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/league-scheduler-api/internal/middleware"
	"github.com/noah-isme/league-scheduler-api/internal/models"
)

// anonymousUser is recorded as the author of saved schedules when JWT is disabled.
const anonymousUser = "anonymous"

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	return claims
}

func currentUserID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil && claims.UserID != "" {
		return claims.UserID
	}
	return anonymousUser
}
