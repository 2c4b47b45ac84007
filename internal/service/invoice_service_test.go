package service_test

import (
	"context"
	"testing"
	"time"

	"invoicing/internal/model"
	"invoicing/internal/service"
	"invoicing/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInvoiceIntraState(t *testing.T) {
	env := newTestEnv(t)
	client := env.newClient(t, "Annapurna Caterers")

	inv := env.newInvoice(t, client.ID, "1000.00", "", false)

	assert.Equal(t, "INV-000001", inv.InvoiceNo)
	assert.Equal(t, "90.00", inv.CGST)
	assert.Equal(t, "90.00", inv.SGST)
	assert.Equal(t, "0.00", inv.IGST)
	assert.Equal(t, "180.00", inv.TaxAmount)
	assert.Equal(t, "1180.00", inv.Total)
	assert.Equal(t, model.InvoiceStatusPending, inv.Status)
	assert.Equal(t, "Annapurna Caterers", inv.ClientName)
	assert.Equal(t, "1180.00", inv.BalanceDue)
	assert.Contains(t, env.events.Types(), service.EventInvoiceCreated)
}

func TestCreateInvoiceInterState(t *testing.T) {
	env := newTestEnv(t)
	client := env.newClient(t, "Delhi Darbar")

	inv := env.newInvoice(t, client.ID, "1000.00", "", true)

	assert.Equal(t, "0.00", inv.CGST)
	assert.Equal(t, "0.00", inv.SGST)
	assert.Equal(t, "180.00", inv.IGST)
	assert.Equal(t, "1180.00", inv.Total)
	assert.True(t, inv.InterState)
}

func TestCreateInvoiceWithPastDueDateIsOverdue(t *testing.T) {
	env := newTestEnv(t)
	client := env.newClient(t, "Komala Vilas")

	inv := env.newInvoice(t, client.ID, "1000.00", day(-1), false)
	assert.Equal(t, model.InvoiceStatusOverdue, inv.Status)
	require.NotNil(t, inv.DueDate)
	assert.Equal(t, day(-1), *inv.DueDate)

	today := env.newInvoice(t, client.ID, "1000.00", day(0), false)
	assert.Equal(t, model.InvoiceStatusPending, today.Status)
}

func TestCreateInvoiceRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	client := env.newClient(t, "Saravana Bhavan")
	ctx := context.Background()

	tests := []struct {
		name string
		req  service.CreateInvoiceRequest
		want error
	}{
		{"negative subtotal", service.CreateInvoiceRequest{ClientID: client.ID, Subtotal: "-1"}, apperror.ErrInvalidAmount},
		{"garbage subtotal", service.CreateInvoiceRequest{ClientID: client.ID, Subtotal: "NaN"}, apperror.ErrInvalidAmount},
		{"huge exponent", service.CreateInvoiceRequest{ClientID: client.ID, Subtotal: "1e99999999"}, apperror.ErrInvalidAmount},
		{"wider than the column", service.CreateInvoiceRequest{ClientID: client.ID, Subtotal: "12345678901234567890.00"}, apperror.ErrInvalidAmount},
		{"bad client id", service.CreateInvoiceRequest{ClientID: "nope", Subtotal: "10"}, apperror.ErrInvalidInput},
		{"unknown client", service.CreateInvoiceRequest{ClientID: uuid.NewString(), Subtotal: "10"}, apperror.ErrNotFound},
		{"bad due date", service.CreateInvoiceRequest{ClientID: client.ID, Subtotal: "10", DueDate: "17/10/2026"}, apperror.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.invoices.CreateInvoice(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Zero(t, env.count(t, "invoices"))
	// A failed create must not burn an invoice number.
	inv := env.newInvoice(t, client.ID, "10", "", false)
	assert.Equal(t, "INV-000001", inv.InvoiceNo)
}

func TestDeleteInvoice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "Paradise Biryani")

	unpaid := env.newInvoice(t, client.ID, "100.00", "", false)
	require.NoError(t, env.invoices.DeleteInvoice(ctx, unpaid.ID))
	_, err := env.invoices.GetInvoice(ctx, unpaid.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	paid := env.newInvoice(t, client.ID, "100.00", "", false)
	_, err = env.payments.RecordPayment(ctx, service.RecordPaymentRequest{InvoiceID: paid.ID, Amount: "50", Mode: model.PaymentModeCash})
	require.NoError(t, err)

	err = env.invoices.DeleteInvoice(ctx, paid.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
	_, err = env.invoices.GetInvoice(ctx, paid.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, env.invoices.DeleteInvoice(ctx, uuid.NewString()), apperror.ErrNotFound)
}

func TestDeleteConvertedInvoiceReleasesEstimate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "Mainland China")
	est := env.approvedEstimate(t, client.ID, "500.00")

	conv, err := env.estimates.ConvertToInvoice(ctx, est.ID, service.ConvertEstimateRequest{})
	require.NoError(t, err)

	require.NoError(t, env.invoices.DeleteInvoice(ctx, conv.Invoice.ID))
	assert.Zero(t, env.count(t, "invoices"))

	got, err := env.estimates.GetEstimate(ctx, est.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EstimateStatusApproved, got.Status)
	assert.Nil(t, got.InvoiceID)

	again, err := env.estimates.ConvertToInvoice(ctx, est.ID, service.ConvertEstimateRequest{})
	require.NoError(t, err)
	assert.Equal(t, "INV-000002", again.Invoice.InvoiceNo, "numbers are never reused")
	assert.Equal(t, model.EstimateStatusConverted, again.Estimate.Status)
}

func TestDeleteConvertedInvoiceWithPaymentsIsRefused(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "Oh! Calcutta")
	est := env.approvedEstimate(t, client.ID, "500.00")

	conv, err := env.estimates.ConvertToInvoice(ctx, est.ID, service.ConvertEstimateRequest{})
	require.NoError(t, err)
	_, err = env.payments.RecordPayment(ctx, service.RecordPaymentRequest{InvoiceID: conv.Invoice.ID, Amount: "100.00", Mode: model.PaymentModeUPI})
	require.NoError(t, err)

	assert.ErrorIs(t, env.invoices.DeleteInvoice(ctx, conv.Invoice.ID), apperror.ErrInvalidState)

	got, err := env.estimates.GetEstimate(ctx, est.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EstimateStatusConverted, got.Status)
}

func TestUpdateInvoiceDueDateRederivesStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "Karim's")
	inv := env.newInvoice(t, client.ID, "1000.00", day(5), false)
	require.Equal(t, model.InvoiceStatusPending, inv.Status)

	past := day(-3)
	updated, err := env.invoices.UpdateInvoice(ctx, inv.ID, service.UpdateInvoiceRequest{DueDate: &past})
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusOverdue, updated.Status)
	assert.Equal(t, inv.Total, updated.Total, "tax snapshot is immutable")
	assert.Contains(t, env.events.Types(), service.EventInvoiceStatusChange)

	none := ""
	items := "Revised menu"
	updated, err = env.invoices.UpdateInvoice(ctx, inv.ID, service.UpdateInvoiceRequest{DueDate: &none, Items: &items})
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPending, updated.Status)
	assert.Nil(t, updated.DueDate)
	assert.Equal(t, "Revised menu", updated.Items)
}

func TestRefreshOverdue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "Bikanervala")

	inv := env.newInvoice(t, client.ID, "1000.00", day(1), false)
	require.Equal(t, model.InvoiceStatusPending, inv.Status)

	n, err := env.invoices.RefreshOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.clock.Advance(24 * time.Hour) // due today: still pending
	n, err = env.invoices.RefreshOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.clock.Advance(24 * time.Hour)
	n, err = env.invoices.RefreshOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := env.invoices.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusOverdue, got.Status)

	n, err = env.invoices.RefreshOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "refresh is idempotent")
}

func TestReadsReflectPassedDueDate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "Gulati Caterers")
	inv := env.newInvoice(t, client.ID, "200.00", day(1), false)
	env.newInvoice(t, client.ID, "300.00", day(10), false)

	env.clock.Advance(72 * time.Hour)

	got, err := env.invoices.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusOverdue, got.Status)

	overdue, total, err := env.invoices.ListInvoices(ctx, service.InvoiceFilter{Status: model.InvoiceStatusOverdue})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, overdue, 1)
	assert.Equal(t, inv.ID, overdue[0].ID)
	assert.Equal(t, model.InvoiceStatusOverdue, overdue[0].Status)

	pending, total, err := env.invoices.ListInvoices(ctx, service.InvoiceFilter{Status: model.InvoiceStatusPending})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, pending, 1)
	assert.NotEqual(t, inv.ID, pending[0].ID)
}

func TestListInvoicesFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.newClient(t, "A")
	b := env.newClient(t, "B")
	env.newInvoice(t, a.ID, "100", "", false)
	env.newInvoice(t, a.ID, "100", day(-1), false)
	env.newInvoice(t, b.ID, "100", "", false)

	list, total, err := env.invoices.ListInvoices(ctx, service.InvoiceFilter{ClientID: a.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)

	list, total, err = env.invoices.ListInvoices(ctx, service.InvoiceFilter{Status: model.InvoiceStatusOverdue})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ClientID)

	_, _, err = env.invoices.ListInvoices(ctx, service.InvoiceFilter{Status: "VOID"})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}
