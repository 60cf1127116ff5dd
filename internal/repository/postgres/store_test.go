package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugobelem/depoc/internal/models"
	"github.com/hugobelem/depoc/internal/repository"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(sqlx.NewDb(db, "postgres")), mock
}

func TestMigrateExecutesEverySchemaStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for _, schema := range []string{models.ObligationSchema, models.LedgerSchema, models.ObligationIndexes, models.LedgerIndexes} {
		for range splitStatements(schema) {
			mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
		}
	}

	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxCommits(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts").
		WithArgs(sqlmock.AnyArg(), now, "biz-1", "acc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(tx repository.Store) error {
		return tx.AdjustAccountBalance(context.Background(), "biz-1", "acc-1", decimal.NewFromInt(15), now)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx repository.Store) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxJoinsOuterTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(tx repository.Store) error {
		return tx.WithinTx(context.Background(), func(inner repository.Store) error {
			assert.Same(t, tx, inner)
			return nil
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetObligation(t *testing.T) {
	store, mock := newMockStore(t)
	due := time.Date(2025, 10, 3, 0, 0, 0, 0, time.UTC)
	created := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "counterparty_id", "category_id", "issued_at", "due_date",
		"total_amount", "amount_paid", "outstanding_balance", "direction", "status", "recurrence",
		"weekday", "day_of_month", "installments", "payment_method", "reference", "notes", "series_id",
		"created_at", "updated_at",
	}).AddRow(
		"ob-1", "biz-1", "cp-1", "", created, due,
		"100.00", "25.00", "75.00", "payable", "partially_paid", "once",
		int64(5), nil, int64(0), "pix", "", "rent", "series-1",
		created, created,
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM obligations WHERE tenant_id = $1 AND id = $2")).
		WithArgs("biz-1", "ob-1").
		WillReturnRows(rows)

	o, err := store.GetObligation(context.Background(), "biz-1", "ob-1")
	require.NoError(t, err)

	assert.Equal(t, "ob-1", o.ID)
	assert.Equal(t, "75.00", o.OutstandingBalance.StringFixed(2))
	assert.Equal(t, models.StatusPartiallyPaid, o.Status)
	require.NotNil(t, o.Weekday)
	assert.Equal(t, time.Friday, *o.Weekday)
	assert.Nil(t, o.DayOfMonth)
	require.NotNil(t, o.SeriesID)
	assert.Equal(t, "series-1", *o.SeriesID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetObligationNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("FROM obligations").
		WithArgs("biz-1", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetObligation(context.Background(), "biz-1", "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreateObligationsInsertsSeriesInOneStatement(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	first := &models.Obligation{ID: "ob-1", TenantID: "biz-1", DueDate: now, TotalAmount: decimal.NewFromInt(200), CreatedAt: now, UpdatedAt: now}
	second := &models.Obligation{ID: "ob-2", TenantID: "biz-1", DueDate: now.AddDate(0, 1, 0), TotalAmount: decimal.NewFromInt(200), CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec("INSERT INTO obligations").WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, store.CreateObligations(context.Background(), first, second))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateObligationsWithNothingToInsert(t *testing.T) {
	store, mock := newMockStore(t)

	require.NoError(t, store.CreateObligations(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteObligationMissingRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM obligations")).
		WithArgs("biz-1", "ob-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteObligation(context.Background(), "biz-1", "ob-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMarkOverdue(t *testing.T) {
	store, mock := newMockStore(t)
	today := time.Date(2025, 10, 16, 0, 0, 0, 0, time.UTC)
	now := today.Add(3 * time.Hour)

	mock.ExpectExec("UPDATE obligations").
		WithArgs("overdue", now, "paid", today).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.MarkOverdue(context.Background(), today, now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListObligationsBuildsFilter(t *testing.T) {
	store, mock := newMockStore(t)
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE tenant_id = $1 AND direction = $2 AND status = ANY($3) AND due_date >= $4 ORDER BY")).
		WithArgs("biz-1", "receivable", sqlmock.AnyArg(), from).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	obligations, err := store.ListObligations(context.Background(), models.ObligationFilter{
		TenantID:  "biz-1",
		Direction: models.DirectionReceivable,
		Statuses:  []models.ObligationStatus{models.StatusPending, models.StatusOverdue},
		DueFrom:   &from,
	})
	require.NoError(t, err)
	assert.Empty(t, obligations)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSumObligationEntries(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(SUM(amount), 0)")).
		WithArgs("biz-1", "ob-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("-25.00"))

	sum, err := store.SumObligationEntries(context.Background(), "biz-1", "ob-1")
	require.NoError(t, err)
	assert.Equal(t, "-25.00", sum.StringFixed(2))
}

func TestCountObligationEntries(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM ledger_entries")).
		WithArgs("biz-1", "ob-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))

	n, err := store.CountObligationEntries(context.Background(), "biz-1", "ob-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestLockAccountUsesRowLock(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM accounts WHERE tenant_id = $1 AND id = $2 FOR UPDATE")).
		WithArgs("biz-1", "acc-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name", "kind", "balance", "created_at", "updated_at"}).
			AddRow("acc-1", "biz-1", "Checking", "bank", "40.00", now, now))

	a, err := store.LockAccount(context.Background(), "biz-1", "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "40.00", a.Balance.StringFixed(2))
	assert.Equal(t, models.AccountKindBank, a.Kind)
}

func TestUpdateEntryMissingRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE ledger_entries").WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateEntry(context.Background(), &models.LedgerEntry{ID: "e-1", TenantID: "biz-1"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
