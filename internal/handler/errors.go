package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hugobelem/depoc/internal/repository"
	"github.com/hugobelem/depoc/internal/service"
)

// respondError maps service errors onto HTTP statuses. Anything unexpected
// is logged and reported as a 500 with a generic message.
func respondError(c *gin.Context, log *zap.Logger, err error, action string) {
	var (
		validation *service.ValidationError
		conflict   *service.ConflictError
		data       *service.DataError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error(), "field": validation.Field})
	case errors.As(err, &data):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": data.Error(), "field": data.Field})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error()})
	case errors.Is(err, service.ErrSweepInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		_ = c.Error(err)
		log.Error("failed to "+action, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
