package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hugobelem/depoc/internal/metrics"
	"github.com/hugobelem/depoc/internal/service"
	"github.com/hugobelem/depoc/pkg/middleware"
)

// Services is everything the HTTP layer dispatches to. Ready, when set, is
// called by /ready to check the backing stores.
type Services struct {
	Obligations *service.ObligationService
	Ledger      *service.LedgerService
	Accounts    *service.AccountService
	Sweeper     *service.Sweeper
	Ready       func(ctx context.Context) error
}

func NewRouter(svc Services, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())
	router.Use(metrics.Middleware())

	// Health checks
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		if svc.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := svc.Ready(ctx); err != nil {
				log.Warn("readiness check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	obligationHandler := NewObligationHandler(svc.Obligations, svc.Ledger, log)
	ledgerHandler := NewLedgerHandler(svc.Ledger, log)
	accountHandler := NewAccountHandler(svc.Accounts, log)
	sweepHandler := NewSweepHandler(svc.Sweeper, log)

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/sweeps/overdue", sweepHandler.RunOverdueSweep)

		tenant := v1.Group("", middleware.Tenant())

		obligations := tenant.Group("/obligations")
		{
			obligations.POST("", obligationHandler.CreateObligation)
			obligations.GET("", obligationHandler.ListObligations)
			obligations.GET("/:id", obligationHandler.GetObligation)
			obligations.PATCH("/:id", obligationHandler.UpdateObligation)
			obligations.DELETE("/:id", obligationHandler.DeleteObligation)
			obligations.POST("/:id/rederive", obligationHandler.RederiveObligation)
			obligations.GET("/:id/entries", obligationHandler.ListObligationEntries)
		}

		accounts := tenant.Group("/accounts")
		{
			accounts.POST("", accountHandler.CreateAccount)
			accounts.GET("", accountHandler.ListAccounts)
			accounts.GET("/:id", accountHandler.GetAccount)
			accounts.GET("/:id/reconcile", accountHandler.Reconcile)
		}

		entries := tenant.Group("/entries")
		{
			entries.POST("", ledgerHandler.CreateEntry)
			entries.GET("", ledgerHandler.ListEntries)
			entries.GET("/:id", ledgerHandler.GetEntry)
			entries.PATCH("/:id", ledgerHandler.UpdateEntry)
			entries.DELETE("/:id", ledgerHandler.DeleteEntry)
		}

		tenant.POST("/transfers", ledgerHandler.CreateTransfer)
	}

	return router
}
