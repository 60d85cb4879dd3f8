package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/winslow-house/advising-api/internal/middleware"
	"github.com/winslow-house/advising-api/internal/models"
	appErrors "github.com/winslow-house/advising-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.Claims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.Claims)
	if !ok {
		return nil
	}
	return claims
}

func idParam(c *gin.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid "+name+" parameter")
	}
	return id, nil
}
