// internal/repository/postgres/accounts.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/hugobelem/depoc/internal/models"
)

const accountColumns = `id, tenant_id, name, kind, balance, created_at, updated_at`

func (s *Store) CreateAccount(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES (:id, :tenant_id, :name, :kind, :balance, :created_at, :updated_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, s.ext, query, a); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, tenantID, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE tenant_id = $1 AND id = $2`

	a := &models.Account{}
	if err := sqlx.GetContext(ctx, s.ext, a, query, tenantID, id); err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (s *Store) LockAccount(ctx context.Context, tenantID, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE tenant_id = $1 AND id = $2 FOR UPDATE`

	a := &models.Account{}
	if err := sqlx.GetContext(ctx, s.ext, a, query, tenantID, id); err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (s *Store) AdjustAccountBalance(ctx context.Context, tenantID, id string, delta decimal.Decimal, now time.Time) error {
	query := `
		UPDATE accounts
		SET balance = balance + $1, updated_at = $2
		WHERE tenant_id = $3 AND id = $4
	`
	res, err := s.ext.ExecContext(ctx, query, delta, now, tenantID, id)
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	return requireRow(res)
}

func (s *Store) ListAccounts(ctx context.Context, tenantID string) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE tenant_id = $1 ORDER BY name ASC, id ASC`

	var accounts []*models.Account
	if err := sqlx.SelectContext(ctx, s.ext, &accounts, query, tenantID); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}
