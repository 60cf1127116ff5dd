// internal/models/ledger.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EntryType string
type AccountKind string

const (
	EntryTypeCredit   EntryType = "credit"
	EntryTypeDebit    EntryType = "debit"
	EntryTypeTransfer EntryType = "transfer"

	AccountKindCash  AccountKind = "cash"
	AccountKindBank  AccountKind = "bank"
	AccountKindCard  AccountKind = "card"
	AccountKindOther AccountKind = "other"
)

// LedgerEntry is a posted money movement against an account. Amount is
// signed: credits are positive, debits negative. A transfer is a pair of
// entries whose LinkedID fields point at each other.
type LedgerEntry struct {
	ID           string          `json:"id" db:"id"`
	TenantID     string          `json:"business_id" db:"tenant_id"`
	AccountID    string          `json:"account_id" db:"account_id"`
	Type         EntryType       `json:"type" db:"type"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	ObligationID *string         `json:"obligation_id,omitempty" db:"obligation_id"`
	LinkedID     *string         `json:"linked_id,omitempty" db:"linked_id"`
	Description  string          `json:"description" db:"description"`
	OccurredAt   time.Time       `json:"occurred_at" db:"occurred_at"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// Account holds money; its Balance moves with every entry posted to it.
type Account struct {
	ID        string          `json:"id" db:"id"`
	TenantID  string          `json:"business_id" db:"tenant_id"`
	Name      string          `json:"name" db:"name"`
	Kind      AccountKind     `json:"kind" db:"kind"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// Transfer is the linked pair of entries produced by moving money between
// two accounts.
type Transfer struct {
	Source      *LedgerEntry `json:"source"`
	Destination *LedgerEntry `json:"destination"`
}

// EntryRequest posts a credit or debit. Amount is always positive; the sign
// comes from Type.
type EntryRequest struct {
	AccountID    string      `json:"account_id" binding:"required"`
	Type         EntryType   `json:"type" binding:"required,oneof=credit debit"`
	Amount       AmountInput `json:"amount" binding:"required"`
	ObligationID string      `json:"obligation_id"`
	Description  string      `json:"description"`
	OccurredAt   string      `json:"occurred_at"`
}

type EntryUpdateRequest struct {
	Amount      *AmountInput `json:"amount"`
	Description *string      `json:"description"`
	OccurredAt  *string      `json:"occurred_at"`
}

type TransferRequest struct {
	FromAccountID string      `json:"from_account_id" binding:"required"`
	ToAccountID   string      `json:"to_account_id" binding:"required"`
	Amount        AmountInput `json:"amount" binding:"required"`
	Description   string      `json:"description"`
	OccurredAt    string      `json:"occurred_at"`
}

type AccountRequest struct {
	Name string      `json:"name" binding:"required"`
	Kind AccountKind `json:"kind" binding:"omitempty,oneof=cash bank card other"`
}

type EntryFilter struct {
	TenantID     string
	AccountID    string
	ObligationID string
	Type         EntryType
}

// AccountReconciliation compares an account's stored balance with the sum of
// the entries posted to it.
type AccountReconciliation struct {
	AccountID     string          `json:"account_id"`
	StoredBalance decimal.Decimal `json:"stored_balance"`
	LedgerBalance decimal.Decimal `json:"ledger_balance"`
	Difference    decimal.Decimal `json:"difference"`
	TotalCredits  decimal.Decimal `json:"total_credits"`
	TotalDebits   decimal.Decimal `json:"total_debits"`
	EntryCount    int             `json:"entry_count"`
	IsBalanced    bool            `json:"is_balanced"`
	CheckedAt     time.Time       `json:"checked_at"`
}

// Database schema
const LedgerSchema = `
CREATE TABLE IF NOT EXISTS accounts (
    id VARCHAR(36) PRIMARY KEY,
    tenant_id VARCHAR(36) NOT NULL,
    name VARCHAR(120) NOT NULL,
    kind VARCHAR(20) NOT NULL,
    balance NUMERIC(19, 2) NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS ledger_entries (
    id VARCHAR(36) PRIMARY KEY,
    tenant_id VARCHAR(36) NOT NULL,
    account_id VARCHAR(36) NOT NULL REFERENCES accounts(id),
    type VARCHAR(10) NOT NULL,
    amount NUMERIC(19, 2) NOT NULL,
    obligation_id VARCHAR(36) REFERENCES obligations(id),
    linked_id VARCHAR(36),
    description TEXT NOT NULL DEFAULT '',
    occurred_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const LedgerIndexes = `
CREATE INDEX IF NOT EXISTS idx_accounts_tenant ON accounts (tenant_id);
CREATE INDEX IF NOT EXISTS idx_ledger_entries_account ON ledger_entries (tenant_id, account_id);
CREATE INDEX IF NOT EXISTS idx_ledger_entries_obligation ON ledger_entries (obligation_id);
`
