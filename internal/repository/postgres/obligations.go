// internal/repository/postgres/obligations.go
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/hugobelem/depoc/internal/models"
)

const obligationColumns = `id, tenant_id, counterparty_id, category_id, issued_at, due_date,
	total_amount, amount_paid, outstanding_balance, direction, status, recurrence,
	weekday, day_of_month, installments, payment_method, reference, notes, series_id,
	created_at, updated_at`

const insertObligationQuery = `
	INSERT INTO obligations (` + obligationColumns + `)
	VALUES (:id, :tenant_id, :counterparty_id, :category_id, :issued_at, :due_date,
		:total_amount, :amount_paid, :outstanding_balance, :direction, :status, :recurrence,
		:weekday, :day_of_month, :installments, :payment_method, :reference, :notes, :series_id,
		:created_at, :updated_at)
`

// CreateObligations inserts all obligations with a single statement.
func (s *Store) CreateObligations(ctx context.Context, obligations ...*models.Obligation) error {
	if len(obligations) == 0 {
		return nil
	}

	rows := make([]models.Obligation, len(obligations))
	for i, o := range obligations {
		rows[i] = *o
	}

	if _, err := sqlx.NamedExecContext(ctx, s.ext, insertObligationQuery, rows); err != nil {
		return fmt.Errorf("insert obligations: %w", err)
	}
	return nil
}

func (s *Store) GetObligation(ctx context.Context, tenantID, id string) (*models.Obligation, error) {
	query := `SELECT ` + obligationColumns + ` FROM obligations WHERE tenant_id = $1 AND id = $2`

	o := &models.Obligation{}
	if err := sqlx.GetContext(ctx, s.ext, o, query, tenantID, id); err != nil {
		return nil, notFound(err)
	}
	return o, nil
}

func (s *Store) LockObligation(ctx context.Context, tenantID, id string) (*models.Obligation, error) {
	query := `SELECT ` + obligationColumns + ` FROM obligations WHERE tenant_id = $1 AND id = $2 FOR UPDATE`

	o := &models.Obligation{}
	if err := sqlx.GetContext(ctx, s.ext, o, query, tenantID, id); err != nil {
		return nil, notFound(err)
	}
	return o, nil
}

func (s *Store) UpdateObligation(ctx context.Context, o *models.Obligation) error {
	query := `
		UPDATE obligations
		SET counterparty_id = :counterparty_id, category_id = :category_id,
			issued_at = :issued_at, due_date = :due_date,
			total_amount = :total_amount, amount_paid = :amount_paid,
			outstanding_balance = :outstanding_balance, status = :status,
			recurrence = :recurrence, weekday = :weekday, day_of_month = :day_of_month,
			installments = :installments, payment_method = :payment_method,
			reference = :reference, notes = :notes, series_id = :series_id,
			updated_at = :updated_at
		WHERE tenant_id = :tenant_id AND id = :id
	`
	res, err := sqlx.NamedExecContext(ctx, s.ext, query, o)
	if err != nil {
		return fmt.Errorf("update obligation: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DeleteObligation(ctx context.Context, tenantID, id string) error {
	res, err := s.ext.ExecContext(ctx, `DELETE FROM obligations WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete obligation: %w", err)
	}
	return requireRow(res)
}

func (s *Store) ListObligations(ctx context.Context, filter models.ObligationFilter) ([]*models.Obligation, error) {
	conds := []string{"tenant_id = $1"}
	args := []interface{}{filter.TenantID}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Direction != "" {
		add("direction = $%d", filter.Direction)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		add("status = ANY($%d)", pq.Array(statuses))
	}
	if filter.CounterpartyID != "" {
		add("counterparty_id = $%d", filter.CounterpartyID)
	}
	if filter.SeriesID != "" {
		add("series_id = $%d", filter.SeriesID)
	}
	if filter.DueFrom != nil {
		add("due_date >= $%d", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		add("due_date <= $%d", *filter.DueTo)
	}

	query := `SELECT ` + obligationColumns + ` FROM obligations WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY due_date ASC, created_at ASC, id ASC`

	var obligations []*models.Obligation
	if err := sqlx.SelectContext(ctx, s.ext, &obligations, query, args...); err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	return obligations, nil
}

func (s *Store) MarkOverdue(ctx context.Context, before time.Time, now time.Time) (int64, error) {
	query := `
		UPDATE obligations
		SET status = $1, updated_at = $2
		WHERE status <> $3 AND due_date < $4
	`
	res, err := s.ext.ExecContext(ctx, query, models.StatusOverdue, now, models.StatusPaid, before)
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	return res.RowsAffected()
}
