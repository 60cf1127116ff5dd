package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugobelem/depoc/internal/models"
	"github.com/hugobelem/depoc/internal/repository"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWithinTxRestoresStateOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateAccount(ctx, &models.Account{ID: "acc-1", TenantID: "biz-1", Balance: decimal.NewFromInt(10)}))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.AdjustAccountBalance(ctx, "biz-1", "acc-1", decimal.NewFromInt(5), time.Now()))
		require.NoError(t, tx.CreateEntry(ctx, &models.LedgerEntry{ID: "e-1", TenantID: "biz-1", AccountID: "acc-1"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	a, err := s.GetAccount(ctx, "biz-1", "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "10", a.Balance.String())

	_, err = s.GetEntry(ctx, "biz-1", "e-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRollbackKeepsWritesMadeOutsideTheTransaction(t *testing.T) {
	ctx := context.Background()
	s := New()

	opened := make(chan struct{})
	release := make(chan struct{})
	txDone := make(chan error, 1)
	go func() {
		txDone <- s.WithinTx(ctx, func(tx repository.Store) error {
			close(opened)
			<-release
			return errors.New("boom")
		})
	}()
	<-opened

	created := make(chan error, 1)
	go func() {
		created <- s.CreateAccount(ctx, &models.Account{ID: "acc-1", TenantID: "biz-1"})
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)

	assert.Error(t, <-txDone)
	require.NoError(t, <-created)

	_, err := s.GetAccount(ctx, "biz-1", "acc-1")
	assert.NoError(t, err)
}

func TestWithinTxCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.WithinTx(ctx, func(tx repository.Store) error {
		return tx.WithinTx(ctx, func(inner repository.Store) error {
			return inner.CreateObligations(ctx, &models.Obligation{ID: "ob-1", TenantID: "biz-1"})
		})
	})
	require.NoError(t, err)

	_, err = s.GetObligation(ctx, "biz-1", "ob-1")
	assert.NoError(t, err)
}

func TestTenantIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateObligations(ctx, &models.Obligation{ID: "ob-1", TenantID: "biz-1"}))

	_, err := s.GetObligation(ctx, "biz-2", "ob-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, s.DeleteObligation(ctx, "biz-2", "ob-1"), repository.ErrNotFound)

	list, err := s.ListObligations(ctx, models.ObligationFilter{TenantID: "biz-2"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	series := "series-1"
	require.NoError(t, s.CreateObligations(ctx, &models.Obligation{ID: "ob-1", TenantID: "biz-1", SeriesID: &series}))

	o, err := s.GetObligation(ctx, "biz-1", "ob-1")
	require.NoError(t, err)
	o.Status = models.StatusPaid
	*o.SeriesID = "changed"

	again, err := s.GetObligation(ctx, "biz-1", "ob-1")
	require.NoError(t, err)
	assert.Empty(t, again.Status)
	assert.Equal(t, "series-1", *again.SeriesID)
}

func TestMarkOverdue(t *testing.T) {
	ctx := context.Background()
	s := New()
	today := date(2025, 10, 16)

	require.NoError(t, s.CreateObligations(ctx,
		&models.Obligation{ID: "late", TenantID: "biz-1", DueDate: date(2025, 10, 15), Status: models.StatusPending},
		&models.Obligation{ID: "partial", TenantID: "biz-2", DueDate: date(2025, 9, 1), Status: models.StatusPartiallyPaid},
		&models.Obligation{ID: "settled", TenantID: "biz-1", DueDate: date(2025, 9, 1), Status: models.StatusPaid},
		&models.Obligation{ID: "today", TenantID: "biz-1", DueDate: today, Status: models.StatusPending},
	))

	n, err := s.MarkOverdue(ctx, today, today)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for id, want := range map[string]models.ObligationStatus{
		"late":    models.StatusOverdue,
		"settled": models.StatusPaid,
		"today":   models.StatusPending,
	} {
		o, err := s.GetObligation(ctx, "biz-1", id)
		require.NoError(t, err)
		assert.Equal(t, want, o.Status, id)
	}
}

func TestListObligationsOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	s := New()
	series := "s-1"

	require.NoError(t, s.CreateObligations(ctx,
		&models.Obligation{ID: "c", TenantID: "biz-1", DueDate: date(2025, 3, 1), SeriesID: &series, Direction: models.DirectionPayable},
		&models.Obligation{ID: "a", TenantID: "biz-1", DueDate: date(2025, 1, 1), SeriesID: &series, Direction: models.DirectionPayable},
		&models.Obligation{ID: "b", TenantID: "biz-1", DueDate: date(2025, 2, 1), Direction: models.DirectionReceivable},
	))

	all, err := s.ListObligations(ctx, models.ObligationFilter{TenantID: "biz-1"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{all[0].ID, all[1].ID, all[2].ID})

	inSeries, err := s.ListObligations(ctx, models.ObligationFilter{TenantID: "biz-1", SeriesID: series})
	require.NoError(t, err)
	assert.Len(t, inSeries, 2)

	receivables, err := s.ListObligations(ctx, models.ObligationFilter{TenantID: "biz-1", Direction: models.DirectionReceivable})
	require.NoError(t, err)
	require.Len(t, receivables, 1)
	assert.Equal(t, "b", receivables[0].ID)
}

func TestSumAndCountObligationEntries(t *testing.T) {
	ctx := context.Background()
	s := New()
	ob := "ob-1"

	require.NoError(t, s.CreateEntry(ctx, &models.LedgerEntry{ID: "e-1", TenantID: "biz-1", ObligationID: &ob, Amount: decimal.RequireFromString("-25.00")}))
	require.NoError(t, s.CreateEntry(ctx, &models.LedgerEntry{ID: "e-2", TenantID: "biz-1", ObligationID: &ob, Amount: decimal.RequireFromString("-10.50")}))
	require.NoError(t, s.CreateEntry(ctx, &models.LedgerEntry{ID: "e-3", TenantID: "biz-1", Amount: decimal.RequireFromString("99")}))

	sum, err := s.SumObligationEntries(ctx, "biz-1", ob)
	require.NoError(t, err)
	assert.Equal(t, "-35.50", sum.StringFixed(2))

	n, err := s.CountObligationEntries(ctx, "biz-1", ob)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
