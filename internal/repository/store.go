// internal/repository/store.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hugobelem/depoc/internal/models"
)

// ErrNotFound is returned when a row does not exist for the tenant.
var ErrNotFound = errors.New("record not found")

// Store persists obligations, ledger entries and accounts. Every read and
// write is scoped to a tenant except the overdue sweep, which covers the
// whole table.
type Store interface {
	// WithinTx runs fn inside one transaction. fn receives a Store bound to
	// that transaction; returning an error rolls everything back. Calls on
	// a Store that is already inside a transaction join it.
	WithinTx(ctx context.Context, fn func(tx Store) error) error

	CreateObligations(ctx context.Context, obligations ...*models.Obligation) error
	GetObligation(ctx context.Context, tenantID, id string) (*models.Obligation, error)
	// LockObligation reads the obligation and holds it for update until the
	// surrounding transaction ends.
	LockObligation(ctx context.Context, tenantID, id string) (*models.Obligation, error)
	UpdateObligation(ctx context.Context, o *models.Obligation) error
	DeleteObligation(ctx context.Context, tenantID, id string) error
	ListObligations(ctx context.Context, filter models.ObligationFilter) ([]*models.Obligation, error)
	// MarkOverdue flags every obligation that is not paid and due strictly
	// before the given date, returning the number of rows touched.
	MarkOverdue(ctx context.Context, before time.Time, now time.Time) (int64, error)

	CreateEntry(ctx context.Context, e *models.LedgerEntry) error
	GetEntry(ctx context.Context, tenantID, id string) (*models.LedgerEntry, error)
	UpdateEntry(ctx context.Context, e *models.LedgerEntry) error
	DeleteEntry(ctx context.Context, tenantID, id string) error
	ListEntries(ctx context.Context, filter models.EntryFilter) ([]*models.LedgerEntry, error)
	SumObligationEntries(ctx context.Context, tenantID, obligationID string) (decimal.Decimal, error)
	CountObligationEntries(ctx context.Context, tenantID, obligationID string) (int, error)

	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccount(ctx context.Context, tenantID, id string) (*models.Account, error)
	LockAccount(ctx context.Context, tenantID, id string) (*models.Account, error)
	AdjustAccountBalance(ctx context.Context, tenantID, id string, delta decimal.Decimal, now time.Time) error
	ListAccounts(ctx context.Context, tenantID string) ([]*models.Account, error)
}
