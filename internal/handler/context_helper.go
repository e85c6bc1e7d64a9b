package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/daily-update-api/internal/middleware"
	"github.com/noah-isme/daily-update-api/internal/models"
	appErrors "github.com/noah-isme/daily-update-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// teacherIDFromContext resolves the teacher a request acts for. Teachers act
// for themselves; admins may name a teacher with ?teacherId=.
func teacherIDFromContext(c *gin.Context) (string, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return "", appErrors.ErrUnauthorized
	}
	if claims.Role == models.RoleAdmin {
		if id := strings.TrimSpace(c.Query("teacherId")); id != "" {
			return id, nil
		}
	}
	return claims.UserID, nil
}
