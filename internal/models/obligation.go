// internal/models/obligation.go
package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Direction string
type ObligationStatus string
type Recurrence string

const (
	DirectionPayable    Direction = "payable"
	DirectionReceivable Direction = "receivable"

	StatusPending       ObligationStatus = "pending"
	StatusPartiallyPaid ObligationStatus = "partially_paid"
	StatusPaid          ObligationStatus = "paid"
	StatusOverdue       ObligationStatus = "overdue"

	RecurrenceOnce         Recurrence = "once"
	RecurrenceWeekly       Recurrence = "weekly"
	RecurrenceMonthly      Recurrence = "monthly"
	RecurrenceInstallments Recurrence = "installments"
)

// DateLayout is the wire and storage layout of calendar dates.
const DateLayout = "2006-01-02"

// Obligation is a payable or receivable owed between the business and a
// counterparty. AmountPaid, OutstandingBalance and Status are derived from
// the ledger entries that settle it.
type Obligation struct {
	ID                 string           `json:"id" db:"id"`
	TenantID           string           `json:"business_id" db:"tenant_id"`
	CounterpartyID     string           `json:"counterparty_id" db:"counterparty_id"`
	CategoryID         string           `json:"category_id" db:"category_id"`
	IssuedAt           time.Time        `json:"issued_at" db:"issued_at"`
	DueDate            time.Time        `json:"due_date" db:"due_date"`
	TotalAmount        decimal.Decimal  `json:"total_amount" db:"total_amount"`
	AmountPaid         decimal.Decimal  `json:"amount_paid" db:"amount_paid"`
	OutstandingBalance decimal.Decimal  `json:"outstanding_balance" db:"outstanding_balance"`
	Direction          Direction        `json:"direction" db:"direction"`
	Status             ObligationStatus `json:"status" db:"status"`
	Recurrence         Recurrence       `json:"recurrence" db:"recurrence"`
	Weekday            *time.Weekday    `json:"weekday,omitempty" db:"weekday"`
	DayOfMonth         *int             `json:"due_day_of_month,omitempty" db:"day_of_month"`
	Installments       int              `json:"installments" db:"installments"`
	PaymentMethod      string           `json:"payment_method" db:"payment_method"`
	Reference          string           `json:"reference" db:"reference"`
	Notes              string           `json:"notes" db:"notes"`
	SeriesID           *string          `json:"series_id,omitempty" db:"series_id"`
	CreatedAt          time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at" db:"updated_at"`
}

// IsRecurring reports whether the obligation still has to be expanded.
func (o *Obligation) IsRecurring() bool {
	return o.Recurrence != "" && o.Recurrence != RecurrenceOnce
}

// Kind names the obligation for user-facing messages.
func (o *Obligation) Kind() string {
	if o.Direction == DirectionReceivable {
		return "receivable"
	}
	return "payable"
}

// CreatedObligation is the result of creating an obligation: the obligation
// itself plus the siblings produced by expanding its recurrence.
type CreatedObligation struct {
	Obligation *Obligation   `json:"obligation"`
	Series     []*Obligation `json:"series,omitempty"`
}

// AmountInput keeps the raw text of a JSON amount so that both 25 and "25.00"
// are accepted and parsing errors surface from the service, not the binder.
type AmountInput string

func (a *AmountInput) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*a = ""
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	*a = AmountInput(strings.TrimSpace(raw))
	return nil
}

func (a AmountInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(a))
}

type ObligationRequest struct {
	CounterpartyID string      `json:"counterparty_id" binding:"required"`
	CategoryID     string      `json:"category_id"`
	IssuedAt       string      `json:"issued_at"`
	DueDate        string      `json:"due_date" binding:"required"`
	TotalAmount    AmountInput `json:"total_amount" binding:"required"`
	Direction      Direction   `json:"direction" binding:"required,oneof=payable receivable"`
	Recurrence     Recurrence  `json:"recurrence" binding:"omitempty,oneof=once weekly monthly installments"`
	Weekday        *string     `json:"weekday"`
	DayOfMonth     *int        `json:"due_day_of_month"`
	Installments   int         `json:"installments"`
	PaymentMethod  string      `json:"payment_method"`
	Reference      string      `json:"reference"`
	Notes          string      `json:"notes"`
}

// ObligationUpdateRequest is a partial update; nil fields are left alone.
// Recurrence cannot be changed once an obligation exists.
type ObligationUpdateRequest struct {
	CounterpartyID *string      `json:"counterparty_id"`
	CategoryID     *string      `json:"category_id"`
	IssuedAt       *string      `json:"issued_at"`
	DueDate        *string      `json:"due_date"`
	TotalAmount    *AmountInput `json:"total_amount"`
	PaymentMethod  *string      `json:"payment_method"`
	Reference      *string      `json:"reference"`
	Notes          *string      `json:"notes"`
}

type ObligationFilter struct {
	TenantID       string
	Direction      Direction
	Statuses       []ObligationStatus
	CounterpartyID string
	SeriesID       string
	DueFrom        *time.Time
	DueTo          *time.Time
}

// Database schema
const ObligationSchema = `
CREATE TABLE IF NOT EXISTS obligations (
    id VARCHAR(36) PRIMARY KEY,
    tenant_id VARCHAR(36) NOT NULL,
    counterparty_id VARCHAR(36) NOT NULL,
    category_id VARCHAR(36) NOT NULL DEFAULT '',
    issued_at DATE NOT NULL,
    due_date DATE NOT NULL,
    total_amount NUMERIC(19, 2) NOT NULL,
    amount_paid NUMERIC(19, 2) NOT NULL DEFAULT 0,
    outstanding_balance NUMERIC(19, 2) NOT NULL,
    direction VARCHAR(10) NOT NULL,
    status VARCHAR(20) NOT NULL,
    recurrence VARCHAR(20) NOT NULL DEFAULT 'once',
    weekday SMALLINT,
    day_of_month SMALLINT,
    installments INT NOT NULL DEFAULT 0,
    payment_method VARCHAR(40) NOT NULL DEFAULT '',
    reference VARCHAR(255) NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    series_id VARCHAR(36),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const ObligationIndexes = `
CREATE INDEX IF NOT EXISTS idx_obligations_tenant_due ON obligations (tenant_id, due_date);
CREATE INDEX IF NOT EXISTS idx_obligations_status_due ON obligations (status, due_date);
CREATE INDEX IF NOT EXISTS idx_obligations_series ON obligations (series_id);
`
