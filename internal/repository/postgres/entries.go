// internal/repository/postgres/entries.go
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/hugobelem/depoc/internal/models"
)

const entryColumns = `id, tenant_id, account_id, type, amount, obligation_id, linked_id,
	description, occurred_at, created_at, updated_at`

func (s *Store) CreateEntry(ctx context.Context, e *models.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (` + entryColumns + `)
		VALUES (:id, :tenant_id, :account_id, :type, :amount, :obligation_id, :linked_id,
			:description, :occurred_at, :created_at, :updated_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, s.ext, query, e); err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, tenantID, id string) (*models.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE tenant_id = $1 AND id = $2`

	e := &models.LedgerEntry{}
	if err := sqlx.GetContext(ctx, s.ext, e, query, tenantID, id); err != nil {
		return nil, notFound(err)
	}
	return e, nil
}

func (s *Store) UpdateEntry(ctx context.Context, e *models.LedgerEntry) error {
	query := `
		UPDATE ledger_entries
		SET amount = :amount, description = :description,
			occurred_at = :occurred_at, updated_at = :updated_at
		WHERE tenant_id = :tenant_id AND id = :id
	`
	res, err := sqlx.NamedExecContext(ctx, s.ext, query, e)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DeleteEntry(ctx context.Context, tenantID, id string) error {
	res, err := s.ext.ExecContext(ctx, `DELETE FROM ledger_entries WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return requireRow(res)
}

func (s *Store) ListEntries(ctx context.Context, filter models.EntryFilter) ([]*models.LedgerEntry, error) {
	conds := []string{"tenant_id = $1"}
	args := []interface{}{filter.TenantID}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.AccountID != "" {
		add("account_id = $%d", filter.AccountID)
	}
	if filter.ObligationID != "" {
		add("obligation_id = $%d", filter.ObligationID)
	}
	if filter.Type != "" {
		add("type = $%d", filter.Type)
	}

	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY occurred_at DESC, created_at DESC, id ASC`

	var entries []*models.LedgerEntry
	if err := sqlx.SelectContext(ctx, s.ext, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

func (s *Store) SumObligationEntries(ctx context.Context, tenantID, obligationID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE tenant_id = $1 AND obligation_id = $2
	`
	var sum decimal.Decimal
	if err := sqlx.GetContext(ctx, s.ext, &sum, query, tenantID, obligationID); err != nil {
		return decimal.Zero, fmt.Errorf("sum entries: %w", err)
	}
	return sum, nil
}

func (s *Store) CountObligationEntries(ctx context.Context, tenantID, obligationID string) (int, error) {
	query := `SELECT COUNT(*) FROM ledger_entries WHERE tenant_id = $1 AND obligation_id = $2`

	var n int
	if err := sqlx.GetContext(ctx, s.ext, &n, query, tenantID, obligationID); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}
