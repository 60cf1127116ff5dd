// Package recurrence turns a recurring obligation into the dated series it
// stands for.
package recurrence

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hugobelem/depoc/internal/models"
)

// WeeklyDates returns the due dates of the occurrences after the first one
// for a weekly series on wd that starts at due and ends with the year.
func WeeklyDates(due time.Time, wd time.Weekday) []time.Time {
	n := CountWeekdays(due, YearEnd(due), wd)
	if n <= 1 {
		return nil
	}

	first := NextWeekday(due, wd)
	dates := make([]time.Time, 0, n-1)
	for k := 1; k < n; k++ {
		dates = append(dates, first.AddDate(0, 0, 7*k))
	}
	return dates
}

// MonthlyDates returns due + k months for every month left in the year.
func MonthlyDates(due time.Time) []time.Time {
	n := CountMonths(due)
	if n <= 1 {
		return nil
	}

	dates := make([]time.Time, 0, n-1)
	for k := 1; k < n; k++ {
		dates = append(dates, AddMonths(due, k))
	}
	return dates
}

// InstallmentDates returns the due dates of installments 2..count. Installment
// k falls on day of the month (k-1) months after due.
func InstallmentDates(due time.Time, day, count int) []time.Time {
	if count <= 1 {
		return nil
	}

	dates := make([]time.Time, 0, count-1)
	for k := 2; k <= count; k++ {
		dates = append(dates, DateInMonth(due.Year(), due.Month()+time.Month(k-1), day, due.Location()))
	}
	return dates
}

// InstallmentNote annotates notes with the position of an installment.
func InstallmentNote(notes string, k, n int) string {
	label := fmt.Sprintf("instalment [%d of %d]", k, n)
	if notes == "" {
		return label
	}
	return notes + " | " + label
}

// Expand generates the siblings of a recurring obligation and demotes the
// original to a one-off: its recurrence becomes once, the installment count
// is reset and it joins the series through SeriesID.
//
// Obligations that are already one-offs or already belong to a series are
// left untouched, as are recurring obligations missing the parameters their
// policy needs. The returned siblings are not persisted.
func Expand(o *models.Obligation, newID func() string) []*models.Obligation {
	if o == nil || !o.IsRecurring() || o.SeriesID != nil {
		return nil
	}

	var dates []time.Time
	switch o.Recurrence {
	case models.RecurrenceWeekly:
		if o.Weekday == nil {
			return nil
		}
		dates = WeeklyDates(o.DueDate, *o.Weekday)
	case models.RecurrenceMonthly:
		dates = MonthlyDates(o.DueDate)
	case models.RecurrenceInstallments:
		if o.DayOfMonth == nil || o.Installments < 1 {
			return nil
		}
		dates = InstallmentDates(o.DueDate, *o.DayOfMonth, o.Installments)
	default:
		return nil
	}

	seriesID := newID()
	siblings := make([]*models.Obligation, 0, len(dates))
	for i, due := range dates {
		sibling := siblingOf(o, newID(), due, seriesID)
		if o.Recurrence == models.RecurrenceInstallments {
			sibling.Notes = InstallmentNote(o.Notes, i+2, o.Installments)
		}
		siblings = append(siblings, sibling)
	}

	if o.Recurrence == models.RecurrenceInstallments {
		o.Notes = InstallmentNote(o.Notes, 1, o.Installments)
	}
	o.Recurrence = models.RecurrenceOnce
	o.Installments = 0
	o.SeriesID = &seriesID

	return siblings
}

func siblingOf(o *models.Obligation, id string, due time.Time, seriesID string) *models.Obligation {
	series := seriesID
	return &models.Obligation{
		ID:                 id,
		TenantID:           o.TenantID,
		CounterpartyID:     o.CounterpartyID,
		CategoryID:         o.CategoryID,
		IssuedAt:           o.IssuedAt,
		DueDate:            due,
		TotalAmount:        o.TotalAmount,
		AmountPaid:         decimal.Zero,
		OutstandingBalance: o.TotalAmount,
		Direction:          o.Direction,
		Status:             models.StatusPending,
		Recurrence:         models.RecurrenceOnce,
		PaymentMethod:      o.PaymentMethod,
		Reference:          o.Reference,
		Notes:              o.Notes,
		SeriesID:           &series,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}
