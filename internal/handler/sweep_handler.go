package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hugobelem/depoc/internal/service"
)

type SweepHandler struct {
	sweeper *service.Sweeper
	logger  *zap.Logger
}

func NewSweepHandler(sweeper *service.Sweeper, logger *zap.Logger) *SweepHandler {
	return &SweepHandler{
		sweeper: sweeper,
		logger:  logger,
	}
}

// RunOverdueSweep handles POST /api/v1/sweeps/overdue
func (h *SweepHandler) RunOverdueSweep(c *gin.Context) {
	marked, err := h.sweeper.Run(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "run overdue sweep")
		return
	}

	c.JSON(http.StatusOK, gin.H{"marked": marked})
}
