package service_test

import (
	"context"
	"math"
	"testing"

	"invoicing/internal/model"
	"invoicing/internal/service"
	"invoicing/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEstimateFlatGST(t *testing.T) {
	env := newTestEnv(t)
	client := env.newClient(t, "Rajdhani Thali")

	est, err := env.estimates.CreateEstimate(context.Background(), service.CreateEstimateRequest{
		ClientID: client.ID,
		Items:    "Wedding buffet, 200 covers",
		Subtotal: "500.00",
	})
	require.NoError(t, err)

	assert.Equal(t, "EST-000001", est.EstimateNo)
	assert.Equal(t, model.EstimateStatusDraft, est.Status)
	assert.Equal(t, "500.00", est.Subtotal)
	assert.Equal(t, "90.00", est.GSTAmount)
	assert.Equal(t, "590.00", est.Total)
	assert.Nil(t, est.InvoiceID)
	assert.Equal(t, "Rajdhani Thali", est.ClientName)
}

func TestCreateEstimateRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	client := env.newClient(t, "Moti Mahal")
	ctx := context.Background()

	_, err := env.estimates.CreateEstimate(ctx, service.CreateEstimateRequest{ClientID: client.ID, Subtotal: "-0.50"})
	assert.ErrorIs(t, err, apperror.ErrInvalidAmount)

	_, err = env.estimates.CreateEstimate(ctx, service.CreateEstimateRequest{ClientID: uuid.NewString(), Subtotal: "10"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	assert.Zero(t, env.count(t, "estimates"))
}

func TestUpdateEstimateRederivesTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "Copper Chimney")
	est, err := env.estimates.CreateEstimate(ctx, service.CreateEstimateRequest{ClientID: client.ID, Subtotal: "500.00"})
	require.NoError(t, err)

	subtotal := "1000.00"
	sent := model.EstimateStatusSent
	updated, err := env.estimates.UpdateEstimate(ctx, est.ID, service.UpdateEstimateRequest{Subtotal: &subtotal, Status: &sent})
	require.NoError(t, err)
	assert.Equal(t, "180.00", updated.GSTAmount)
	assert.Equal(t, "1180.00", updated.Total)
	assert.Equal(t, model.EstimateStatusSent, updated.Status)
}

func TestEstimateTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "Punjab Grill")
	est, err := env.estimates.CreateEstimate(ctx, service.CreateEstimateRequest{ClientID: client.ID, Subtotal: "100"})
	require.NoError(t, err)

	est, err = env.estimates.SendEstimate(ctx, est.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EstimateStatusSent, est.Status)

	draft := model.EstimateStatusDraft
	_, err = env.estimates.UpdateEstimate(ctx, est.ID, service.UpdateEstimateRequest{Status: &draft})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	converted := model.EstimateStatusConverted
	_, err = env.estimates.UpdateEstimate(ctx, est.ID, service.UpdateEstimateRequest{Status: &converted})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	est, err = env.estimates.ApproveEstimate(ctx, est.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EstimateStatusApproved, est.Status)

	_, err = env.estimates.SendEstimate(ctx, est.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	got, err := env.estimates.GetEstimate(ctx, est.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EstimateStatusApproved, got.Status, "rejected transitions leave state unchanged")
}

func TestConvertRequiresApproval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "Dakshin")

	draft, err := env.estimates.CreateEstimate(ctx, service.CreateEstimateRequest{ClientID: client.ID, Subtotal: "100"})
	require.NoError(t, err)
	_, err = env.estimates.ConvertToInvoice(ctx, draft.ID, service.ConvertEstimateRequest{})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	sent, err := env.estimates.SendEstimate(ctx, draft.ID)
	require.NoError(t, err)
	_, err = env.estimates.ConvertToInvoice(ctx, sent.ID, service.ConvertEstimateRequest{})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	assert.Zero(t, env.count(t, "invoices"))

	_, err = env.estimates.ConvertToInvoice(ctx, uuid.NewString(), service.ConvertEstimateRequest{})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestConvertExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "Peshawri")
	est := env.approvedEstimate(t, client.ID, "1000.00")

	conv, err := env.estimates.ConvertToInvoice(ctx, est.ID, service.ConvertEstimateRequest{InterState: true, DueDate: day(30)})
	require.NoError(t, err)

	assert.Equal(t, model.EstimateStatusConverted, conv.Estimate.Status)
	require.NotNil(t, conv.Estimate.InvoiceID)
	assert.Equal(t, conv.Invoice.ID, *conv.Estimate.InvoiceID)
	require.NotNil(t, conv.Invoice.EstimateID)
	assert.Equal(t, est.ID, *conv.Invoice.EstimateID)

	assert.Equal(t, "INV-000001", conv.Invoice.InvoiceNo)
	assert.Equal(t, client.ID, conv.Invoice.ClientID)
	assert.Equal(t, "1000.00", conv.Invoice.Subtotal)
	assert.Equal(t, "180.00", conv.Invoice.IGST)
	assert.Equal(t, "1180.00", conv.Invoice.Total)
	assert.Equal(t, model.InvoiceStatusPending, conv.Invoice.Status)
	assert.Equal(t, "Event package", conv.Invoice.Items)

	_, err = env.estimates.ConvertToInvoice(ctx, est.ID, service.ConvertEstimateRequest{})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
	assert.Equal(t, int64(1), env.count(t, "invoices"))

	subtotal := "1.00"
	_, err = env.estimates.UpdateEstimate(ctx, est.ID, service.UpdateEstimateRequest{Subtotal: &subtotal})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
	assert.ErrorIs(t, env.estimates.DeleteEstimate(ctx, est.ID), apperror.ErrInvalidState)
	assert.Contains(t, env.events.Types(), service.EventEstimateConverted)
}

func TestConvertDefaultsToIntraState(t *testing.T) {
	env := newTestEnv(t)
	client := env.newClient(t, "Kesar Da Dhaba")
	est := env.approvedEstimate(t, client.ID, "1000.00")

	conv, err := env.estimates.ConvertToInvoice(context.Background(), est.ID, service.ConvertEstimateRequest{})
	require.NoError(t, err)
	assert.Equal(t, "90.00", conv.Invoice.CGST)
	assert.Equal(t, "90.00", conv.Invoice.SGST)
	assert.Equal(t, "0.00", conv.Invoice.IGST)
	assert.Nil(t, conv.Invoice.DueDate)
}

func TestConvertRollsBackWhenNumberingFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "Leopold Cafe")
	est := env.approvedEstimate(t, client.ID, "250.00")

	require.NoError(t, env.db.Create(&model.DocumentSequence{Kind: model.SequenceKindInvoice, LastValue: math.MaxInt64}).Error)

	_, err := env.estimates.ConvertToInvoice(ctx, est.ID, service.ConvertEstimateRequest{})
	assert.ErrorIs(t, err, apperror.ErrNumberingExhausted)

	got, err := env.estimates.GetEstimate(ctx, est.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EstimateStatusApproved, got.Status)
	assert.Nil(t, got.InvoiceID)
	assert.Zero(t, env.count(t, "invoices"))
}

func TestDeleteEstimate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "Britannia & Co")
	est, err := env.estimates.CreateEstimate(ctx, service.CreateEstimateRequest{ClientID: client.ID, Subtotal: "100"})
	require.NoError(t, err)

	require.NoError(t, env.estimates.DeleteEstimate(ctx, est.ID))
	_, err = env.estimates.GetEstimate(ctx, est.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestListEstimatesByStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "Toit")
	env.approvedEstimate(t, client.ID, "10")
	_, err := env.estimates.CreateEstimate(ctx, service.CreateEstimateRequest{ClientID: client.ID, Subtotal: "20"})
	require.NoError(t, err)

	list, total, err := env.estimates.ListEstimates(ctx, service.EstimateFilter{Status: model.EstimateStatusApproved})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, "10.00", list[0].Subtotal)

	_, total, err = env.estimates.ListEstimates(ctx, service.EstimateFilter{ClientID: client.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, _, err = env.estimates.ListEstimates(ctx, service.EstimateFilter{ClientID: "not-a-uuid"})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}
