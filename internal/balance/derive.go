// Package balance derives the monetary state of an obligation from the
// ledger entries that settle it.
package balance

import (
	"github.com/shopspring/decimal"

	"github.com/hugobelem/depoc/internal/models"
)

// Result is the derived state of an obligation.
type Result struct {
	AmountPaid         decimal.Decimal
	OutstandingBalance decimal.Decimal
	Status             models.ObligationStatus
}

// Derive computes amount paid, outstanding balance and status from the total
// and the signed sum of the linked ledger entries. The first matching rule
// wins: nothing paid is pending, less than the total is partially paid,
// anything else is paid.
func Derive(total, ledgerSum decimal.Decimal) Result {
	paid := ledgerSum.Abs()

	r := Result{
		AmountPaid:         paid,
		OutstandingBalance: total.Sub(paid),
	}
	switch {
	case paid.IsZero():
		r.Status = models.StatusPending
	case paid.LessThan(total):
		r.Status = models.StatusPartiallyPaid
	default:
		r.Status = models.StatusPaid
	}
	return r
}

// Apply writes the derived state onto o and reports whether anything changed.
// An overdue obligation keeps its status until paid amount or outstanding
// balance moves, or until it is fully paid.
func Apply(o *models.Obligation, ledgerSum decimal.Decimal) bool {
	r := Derive(o.TotalAmount, ledgerSum)

	moneyChanged := !o.AmountPaid.Equal(r.AmountPaid) ||
		!o.OutstandingBalance.Equal(r.OutstandingBalance)
	if o.Status == models.StatusOverdue && !moneyChanged && r.Status != models.StatusPaid {
		r.Status = models.StatusOverdue
	}
	changed := moneyChanged || o.Status != r.Status

	o.AmountPaid = r.AmountPaid
	o.OutstandingBalance = r.OutstandingBalance
	o.Status = r.Status
	return changed
}
