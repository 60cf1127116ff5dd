// HTTP Server
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hugobelem/depoc/internal/app"
	"github.com/hugobelem/depoc/internal/config"
	"github.com/hugobelem/depoc/internal/handler"
	"github.com/hugobelem/depoc/internal/service"
	"github.com/hugobelem/depoc/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("depoc", cfg.Environment)
	defer log.Sync()

	ctx := context.Background()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize", zap.Error(err))
	}
	defer a.Close()

	// Schedule the overdue sweep
	scheduler := cron.New(cron.WithLocation(time.UTC))
	if cfg.SweepSchedule != "" {
		_, err := scheduler.AddFunc(cfg.SweepSchedule, func() {
			sweepCtx, cancel := context.WithTimeout(ctx, cfg.SweepLockTTL)
			defer cancel()
			if _, err := a.Sweeper.Run(sweepCtx); err != nil && !errors.Is(err, service.ErrSweepInProgress) {
				log.Error("scheduled overdue sweep failed", zap.Error(err))
			}
		})
		if err != nil {
			log.Fatal("invalid SWEEP_SCHEDULE", zap.String("schedule", cfg.SweepSchedule), zap.Error(err))
		}
		scheduler.Start()
		log.Info("overdue sweep scheduled", zap.String("schedule", cfg.SweepSchedule))
	}

	// Setup router
	router := handler.NewRouter(a.Services(), log)

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("starting server", zap.String("port", cfg.Port), zap.String("storage", cfg.Storage))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Wait for a running sweep to finish
	<-scheduler.Stop().Done()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
