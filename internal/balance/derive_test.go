package balance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/hugobelem/depoc/internal/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDerive(t *testing.T) {
	tests := []struct {
		name            string
		total           string
		sum             string
		wantPaid        string
		wantOutstanding string
		wantStatus      models.ObligationStatus
	}{
		{"nothing paid", "100", "0", "0", "100", models.StatusPending},
		{"partial credit", "100", "25", "25", "75", models.StatusPartiallyPaid},
		{"partial debit counts by absolute value", "100", "-25", "25", "75", models.StatusPartiallyPaid},
		{"exact payment", "100", "-100", "100", "0", models.StatusPaid},
		{"overpayment", "100", "120.50", "120.50", "-20.50", models.StatusPaid},
		{"cents", "10.10", "10.09", "10.09", "0.01", models.StatusPartiallyPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Derive(d(tt.total), d(tt.sum))
			assert.True(t, r.AmountPaid.Equal(d(tt.wantPaid)), "amount paid = %s", r.AmountPaid)
			assert.True(t, r.OutstandingBalance.Equal(d(tt.wantOutstanding)), "outstanding = %s", r.OutstandingBalance)
			assert.Equal(t, tt.wantStatus, r.Status)
			assert.True(t, d(tt.total).Sub(r.AmountPaid).Equal(r.OutstandingBalance))
		})
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	o := &models.Obligation{TotalAmount: d("100"), Status: models.StatusPending}

	assert.True(t, Apply(o, d("25")))
	first := *o

	assert.False(t, Apply(o, d("25")))
	assert.Equal(t, first.AmountPaid.String(), o.AmountPaid.String())
	assert.Equal(t, first.OutstandingBalance.String(), o.OutstandingBalance.String())
	assert.Equal(t, first.Status, o.Status)
}

func TestApplyOverridesOverdue(t *testing.T) {
	o := &models.Obligation{TotalAmount: d("100"), Status: models.StatusOverdue}

	Apply(o, d("-100"))
	assert.Equal(t, models.StatusPaid, o.Status)
}

func TestApplyKeepsOverdueWhileMoneyIsUnchanged(t *testing.T) {
	tests := []struct {
		name   string
		paid   string
		sum    string
		want   models.ObligationStatus
		change bool
	}{
		{"nothing paid", "0", "0", models.StatusOverdue, false},
		{"partly paid", "40", "-40", models.StatusOverdue, false},
		{"new payment", "0", "-30", models.StatusPartiallyPaid, true},
		{"payment removed", "40", "0", models.StatusPending, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &models.Obligation{
				TotalAmount:        d("100"),
				AmountPaid:         d(tt.paid),
				OutstandingBalance: d("100").Sub(d(tt.paid)),
				Status:             models.StatusOverdue,
			}
			assert.Equal(t, tt.change, Apply(o, d(tt.sum)))
			assert.Equal(t, tt.want, o.Status)
		})
	}
}

func TestStatusOnlyMovesForwardAsEntriesAccumulate(t *testing.T) {
	rank := map[models.ObligationStatus]int{
		models.StatusPending:       0,
		models.StatusPartiallyPaid: 1,
		models.StatusPaid:          2,
	}

	o := &models.Obligation{TotalAmount: d("100")}
	sum := decimal.Zero
	last := -1
	for _, amount := range []string{"0", "10", "30", "40", "20", "15"} {
		sum = sum.Add(d(amount))
		Apply(o, sum)
		assert.GreaterOrEqual(t, rank[o.Status], last, "status went backwards at sum %s", sum)
		last = rank[o.Status]
	}
	assert.Equal(t, models.StatusPaid, o.Status)
}
