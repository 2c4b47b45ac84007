package repository_test

import (
	"context"
	"testing"
	"time"

	"invoicing/internal/model"
	"invoicing/internal/repository"
	"invoicing/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardTotalsEmpty(t *testing.T) {
	repo := repository.NewStatisticsRepository(testutil.NewDB(t))

	totals, err := repo.GetDashboardTotals(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Zero(t, totals.TotalClients)
	assert.Zero(t, totals.TotalInvoices)
	assert.Zero(t, totals.TotalPayments)
	assert.True(t, totals.TotalPaidAmount.IsZero())
	assert.True(t, totals.TotalPendingAmount.IsZero())
	assert.Equal(t, int64(0), totals.InvoicesByStatus[model.InvoiceStatusPaid])
}

func TestDashboardTotalsSumsPendingAcrossUnpaidInvoices(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	client := model.Client{Name: "Acme Traders", Category: model.ClientCategoryGroup}
	require.NoError(t, db.Create(&client).Error)

	dec := decimal.RequireFromString
	invoices := []model.Invoice{
		{InvoiceNo: "INV-000001", ClientID: client.ID, Subtotal: dec("1000"), Total: dec("1180.00"), Status: model.InvoiceStatusPending},
		{InvoiceNo: "INV-000002", ClientID: client.ID, Subtotal: dec("500"), Total: dec("590.00"), Status: model.InvoiceStatusPaid},
		{InvoiceNo: "INV-000003", ClientID: client.ID, Subtotal: dec("100"), Total: dec("118.00"), Status: model.InvoiceStatusOverdue},
	}
	for i := range invoices {
		require.NoError(t, db.Create(&invoices[i]).Error)
	}

	now := time.Now().UTC()
	payments := []model.Payment{
		{InvoiceID: invoices[0].ID, Amount: dec("500.00"), Mode: model.PaymentModeUPI, PaidAt: now},
		{InvoiceID: invoices[1].ID, Amount: dec("590.00"), Mode: model.PaymentModeCash, PaidAt: now},
	}
	for i := range payments {
		require.NoError(t, db.Create(&payments[i]).Error)
	}

	totals, err := repository.NewStatisticsRepository(db).GetDashboardTotals(ctx, time.Now())
	require.NoError(t, err)

	assert.Equal(t, int64(1), totals.TotalClients)
	assert.Equal(t, int64(3), totals.TotalInvoices)
	assert.Equal(t, int64(2), totals.TotalPayments)
	assert.Equal(t, int64(1), totals.InvoicesByStatus[model.InvoiceStatusPending])
	assert.Equal(t, int64(1), totals.InvoicesByStatus[model.InvoiceStatusPaid])
	assert.Equal(t, int64(1), totals.InvoicesByStatus[model.InvoiceStatusOverdue])
	assert.Equal(t, "1090.00", totals.TotalPaidAmount.StringFixed(2))
	// (1180 - 500) + (118 - 0)
	assert.Equal(t, "798.00", totals.TotalPendingAmount.StringFixed(2))
}

func TestDashboardTotalsCountPastDuePendingAsOverdue(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	today := model.DueDay(time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC))
	lastWeek := today.AddDate(0, 0, -7)

	client := model.Client{Name: "Haldiram Catering", Category: model.ClientCategoryChain}
	require.NoError(t, db.Create(&client).Error)

	dec := decimal.RequireFromString
	invoices := []model.Invoice{
		{InvoiceNo: "INV-000001", ClientID: client.ID, Subtotal: dec("100"), Total: dec("118.00"), Status: model.InvoiceStatusPending, DueDate: &lastWeek},
		{InvoiceNo: "INV-000002", ClientID: client.ID, Subtotal: dec("100"), Total: dec("118.00"), Status: model.InvoiceStatusPending, DueDate: &today},
		{InvoiceNo: "INV-000003", ClientID: client.ID, Subtotal: dec("100"), Total: dec("118.00"), Status: model.InvoiceStatusOverdue, DueDate: &lastWeek},
	}
	for i := range invoices {
		require.NoError(t, db.Create(&invoices[i]).Error)
	}

	totals, err := repository.NewStatisticsRepository(db).GetDashboardTotals(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, int64(1), totals.InvoicesByStatus[model.InvoiceStatusPending])
	assert.Equal(t, int64(2), totals.InvoicesByStatus[model.InvoiceStatusOverdue])
	assert.Equal(t, int64(0), totals.InvoicesByStatus[model.InvoiceStatusPaid])

	var stored model.Invoice
	require.NoError(t, db.First(&stored, "id = ?", invoices[0].ID).Error)
	assert.Equal(t, model.InvoiceStatusPending, stored.Status)
}
