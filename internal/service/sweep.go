package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hugobelem/depoc/internal/metrics"
	"github.com/hugobelem/depoc/internal/recurrence"
	"github.com/hugobelem/depoc/internal/repository"
)

// SweepLockKey names the lock that keeps sweeps from overlapping.
const SweepLockKey = "depoc:sweep:overdue"

// Sweeper flags unpaid obligations whose due date has passed.
type Sweeper struct {
	store   repository.Store
	locker  Locker
	lockTTL time.Duration
	logger  *zap.Logger

	now func() time.Time
}

func NewSweeper(store repository.Store, locker Locker, lockTTL time.Duration, logger *zap.Logger) *Sweeper {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Sweeper{
		store:   store,
		locker:  locker,
		lockTTL: lockTTL,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run marks every obligation that is not paid and was due before today (UTC)
// as overdue, across all businesses, and returns the number of obligations
// touched. Money fields are left alone. Returns ErrSweepInProgress when
// another run holds the lock.
func (s *Sweeper) Run(ctx context.Context) (int64, error) {
	start := time.Now()

	release, ok, err := s.locker.Acquire(ctx, SweepLockKey, s.lockTTL)
	if err != nil {
		metrics.SweepFinished("error", 0, time.Since(start))
		return 0, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !ok {
		metrics.SweepFinished("skipped", 0, time.Since(start))
		s.logger.Info("overdue sweep skipped, lock held elsewhere")
		return 0, ErrSweepInProgress
	}
	defer release()

	now := s.now()
	today := recurrence.Truncate(now)

	marked, err := s.store.MarkOverdue(ctx, today, now)
	if err != nil {
		metrics.SweepFinished("error", 0, time.Since(start))
		s.logger.Error("overdue sweep failed", zap.Error(err))
		return 0, err
	}

	metrics.SweepFinished("ok", marked, time.Since(start))
	s.logger.Info("overdue sweep complete",
		zap.String("cutoff", today.Format("2006-01-02")),
		zap.Int64("marked", marked),
		zap.Duration("took", time.Since(start)))
	return marked, nil
}
