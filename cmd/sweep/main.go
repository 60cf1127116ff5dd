// Command sweep runs the overdue sweep once and exits. It is meant for
// external schedulers such as a Kubernetes CronJob.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/hugobelem/depoc/internal/app"
	"github.com/hugobelem/depoc/internal/config"
	"github.com/hugobelem/depoc/internal/service"
	"github.com/hugobelem/depoc/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		return 1
	}

	log := logger.New("depoc-sweep", cfg.Environment)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize", zap.Error(err))
		return 1
	}
	defer a.Close()

	marked, err := a.Sweeper.Run(ctx)
	switch {
	case errors.Is(err, service.ErrSweepInProgress):
		log.Info("another sweep is running, nothing to do")
		return 0
	case err != nil:
		log.Error("overdue sweep failed", zap.Error(err))
		return 1
	}

	log.Info("overdue sweep finished", zap.Int64("marked", marked))
	return 0
}
