package model

import (
	"testing"
	"time"

	"invoicing/internal/gst"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveInvoiceStatus(t *testing.T) {
	now := time.Date(2026, 10, 17, 10, 30, 0, 0, time.UTC)
	yesterday := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	today := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	tomorrow := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	total := decimal.RequireFromString("1180.00")

	tests := []struct {
		name string
		paid string
		due  *time.Time
		want string
	}{
		{name: "nothing paid, no due date", paid: "0", want: InvoiceStatusPending},
		{name: "nothing paid, due yesterday", paid: "0", due: &yesterday, want: InvoiceStatusOverdue},
		{name: "nothing paid, due today", paid: "0", due: &today, want: InvoiceStatusPending},
		{name: "nothing paid, due tomorrow", paid: "0", due: &tomorrow, want: InvoiceStatusPending},
		{name: "partially paid, due yesterday", paid: "500", due: &yesterday, want: InvoiceStatusOverdue},
		{name: "fully paid, due yesterday", paid: "1180.00", due: &yesterday, want: InvoiceStatusPaid},
		{name: "overpaid", paid: "2000", want: InvoiceStatusPaid},
		{name: "within epsilon", paid: "1179.995", want: InvoiceStatusPaid},
		{name: "one paisa short", paid: "1179.99", want: InvoiceStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveInvoiceStatus(total, decimal.RequireFromString(tt.paid), tt.due, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInvoiceDeriveStatusIsIdempotent(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	due := now.AddDate(0, 0, -1)
	inv := Invoice{Total: decimal.RequireFromString("1180.00"), Status: InvoiceStatusPending, DueDate: &due}

	assert.True(t, inv.DeriveStatus(decimal.Zero, now))
	assert.Equal(t, InvoiceStatusOverdue, inv.Status)
	assert.False(t, inv.DeriveStatus(decimal.Zero, now))
	assert.Equal(t, InvoiceStatusOverdue, inv.Status)

	assert.True(t, inv.DeriveStatus(decimal.RequireFromString("1180.00"), now))
	assert.Equal(t, InvoiceStatusPaid, inv.Status)
}

func TestInvoiceApplyTax(t *testing.T) {
	b, err := gst.Compute(decimal.RequireFromString("1000.00"), true)
	require.NoError(t, err)

	var inv Invoice
	inv.ApplyTax(b, true)

	assert.True(t, inv.InterState)
	assert.Equal(t, "180.00", inv.IGST.StringFixed(2))
	assert.True(t, inv.CGST.IsZero())
	assert.Equal(t, "180.00", inv.TaxAmount().StringFixed(2))
	assert.Equal(t, "1180.00", inv.Total.StringFixed(2))
}

func TestDueDayNormalizesToUTCMidnight(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	local := time.Date(2026, 10, 17, 23, 0, 0, 0, time.UTC).In(ist) // 18 Oct 04:30 IST

	assert.Equal(t, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), DueDay(local))
	assert.False(t, IsPastDue(nil, local))
}
