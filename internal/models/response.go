package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Money renders amounts with exactly two decimals.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type ObligationResponse struct {
	ID                 string               `json:"id"`
	BusinessID         string               `json:"business_id"`
	CounterpartyID     string               `json:"counterparty_id"`
	CategoryID         string               `json:"category_id,omitempty"`
	IssuedAt           string               `json:"issued_at"`
	DueDate            string               `json:"due_date"`
	TotalAmount        string               `json:"total_amount"`
	AmountPaid         string               `json:"amount_paid"`
	OutstandingBalance string               `json:"outstanding_balance"`
	Direction          Direction            `json:"direction"`
	Status             ObligationStatus     `json:"status"`
	Recurrence         Recurrence           `json:"recurrence"`
	Weekday            string               `json:"weekday,omitempty"`
	DayOfMonth         *int                 `json:"due_day_of_month,omitempty"`
	Installments       int                  `json:"installments"`
	PaymentMethod      string               `json:"payment_method,omitempty"`
	Reference          string               `json:"reference,omitempty"`
	Notes              string               `json:"notes,omitempty"`
	SeriesID           *string              `json:"series_id,omitempty"`
	Series             []ObligationResponse `json:"series,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

func NewObligationResponse(o *Obligation) ObligationResponse {
	resp := ObligationResponse{
		ID:                 o.ID,
		BusinessID:         o.TenantID,
		CounterpartyID:     o.CounterpartyID,
		CategoryID:         o.CategoryID,
		IssuedAt:           o.IssuedAt.Format(DateLayout),
		DueDate:            o.DueDate.Format(DateLayout),
		TotalAmount:        Money(o.TotalAmount),
		AmountPaid:         Money(o.AmountPaid),
		OutstandingBalance: Money(o.OutstandingBalance),
		Direction:          o.Direction,
		Status:             o.Status,
		Recurrence:         o.Recurrence,
		DayOfMonth:         o.DayOfMonth,
		Installments:       o.Installments,
		PaymentMethod:      o.PaymentMethod,
		Reference:          o.Reference,
		Notes:              o.Notes,
		SeriesID:           o.SeriesID,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
	if o.Weekday != nil {
		resp.Weekday = strings.ToLower(o.Weekday.String())
	}
	return resp
}

func NewCreatedObligationResponse(c *CreatedObligation) ObligationResponse {
	resp := NewObligationResponse(c.Obligation)
	for _, sibling := range c.Series {
		resp.Series = append(resp.Series, NewObligationResponse(sibling))
	}
	return resp
}

type EntryResponse struct {
	ID           string    `json:"id"`
	BusinessID   string    `json:"business_id"`
	AccountID    string    `json:"account_id"`
	Type         EntryType `json:"type"`
	Amount       string    `json:"amount"`
	ObligationID *string   `json:"obligation_id,omitempty"`
	LinkedID     *string   `json:"linked_id,omitempty"`
	Description  string    `json:"description,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewEntryResponse(e *LedgerEntry) EntryResponse {
	return EntryResponse{
		ID:           e.ID,
		BusinessID:   e.TenantID,
		AccountID:    e.AccountID,
		Type:         e.Type,
		Amount:       Money(e.Amount),
		ObligationID: e.ObligationID,
		LinkedID:     e.LinkedID,
		Description:  e.Description,
		OccurredAt:   e.OccurredAt,
		CreatedAt:    e.CreatedAt,
	}
}

type AccountResponse struct {
	ID         string      `json:"id"`
	BusinessID string      `json:"business_id"`
	Name       string      `json:"name"`
	Kind       AccountKind `json:"kind"`
	Balance    string      `json:"balance"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func NewAccountResponse(a *Account) AccountResponse {
	return AccountResponse{
		ID:         a.ID,
		BusinessID: a.TenantID,
		Name:       a.Name,
		Kind:       a.Kind,
		Balance:    Money(a.Balance),
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}
