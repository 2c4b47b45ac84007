package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"invoicing/internal/gst"
	"invoicing/internal/model"
	"invoicing/internal/repository"
	"invoicing/pkg/apperror"
	"invoicing/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- DTOs ---

type RecordPaymentRequest struct {
	InvoiceID      string `json:"invoice_id" binding:"required"`
	Amount         string `json:"amount" binding:"required"`
	Mode           string `json:"mode" binding:"required,oneof=Cash UPI 'Bank Transfer' Card Cheque"`
	TransactionRef string `json:"transaction_ref"`
	PaidAt         string `json:"paid_at"` // RFC3339, defaults to now
}

type PaymentFilter struct {
	InvoiceID string
	Page      int
	Limit     int
}

type PaymentResponse struct {
	ID             string `json:"id"`
	InvoiceID      string `json:"invoice_id"`
	Amount         string `json:"amount"`
	Mode           string `json:"mode"`
	TransactionRef string `json:"transaction_ref"`
	PaidAt         string `json:"paid_at"`
	CreatedAt      string `json:"created_at"`
}

// PaymentResult reports the payment together with the invoice state it produced.
// Overpaid is a warning, not a failure: the payment is kept.
type PaymentResult struct {
	Payment       PaymentResponse `json:"payment"`
	InvoiceNo     string          `json:"invoice_no"`
	InvoiceStatus string          `json:"invoice_status"`
	AmountPaid    string          `json:"amount_paid"`
	BalanceDue    string          `json:"balance_due"`
	Overpaid      bool            `json:"overpaid"`
	OverpaidBy    string          `json:"overpaid_by,omitempty"`
}

// --- Interface ---

type PaymentService interface {
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (PaymentResult, error)
	DeletePayment(ctx context.Context, id string) (PaymentResult, error)
	GetPayment(ctx context.Context, id string) (PaymentResponse, error)
	ListPayments(ctx context.Context, filter PaymentFilter) ([]PaymentResponse, int64, error)
}

type paymentService struct {
	paymentRepo repository.PaymentRepository
	invoiceRepo repository.InvoiceRepository
	txManager   repository.TransactionManager
	deps        Deps
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	invoiceRepo repository.InvoiceRepository,
	txManager repository.TransactionManager,
	deps Deps,
) PaymentService {
	return &paymentService{
		paymentRepo: paymentRepo,
		invoiceRepo: invoiceRepo,
		txManager:   txManager,
		deps:        deps.withDefaults(),
	}
}

// --- Implementation ---

func (s *paymentService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (PaymentResult, error) {
	amount, err := gst.ParseAmount("amount", req.Amount)
	if err != nil {
		return PaymentResult{}, err
	}
	if !amount.IsPositive() {
		return PaymentResult{}, apperror.InvalidAmount("amount must be greater than zero, got %s", amount.StringFixed(2))
	}
	if !model.IsValidPaymentMode(req.Mode) {
		return PaymentResult{}, apperror.InvalidInput("unknown payment mode %q", req.Mode)
	}
	invoiceID, err := parseID("invoice_id", req.InvoiceID)
	if err != nil {
		return PaymentResult{}, err
	}

	now := s.deps.Clock.Now()
	paidAt := now.UTC()
	if raw := strings.TrimSpace(req.PaidAt); raw != "" {
		if paidAt, err = time.Parse(time.RFC3339, raw); err != nil {
			return PaymentResult{}, apperror.InvalidInput("invalid paid_at %q, expected RFC3339", raw)
		}
	}

	payment := model.Payment{
		InvoiceID:      invoiceID,
		Amount:         amount,
		Mode:           req.Mode,
		TransactionRef: strings.TrimSpace(req.TransactionRef),
		PaidAt:         paidAt,
	}

	var result PaymentResult
	var from string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoiceRepo.FindByIDForUpdate(txCtx, invoiceID)
		if err != nil {
			return lookupErr(err, "invoice", invoiceID)
		}
		if invoice.Status == model.InvoiceStatusPaid {
			return apperror.InvalidState("invoice %s is already paid", invoice.InvoiceNo)
		}

		if err := s.paymentRepo.Create(txCtx, &payment); err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		from = invoice.Status
		result, err = s.settle(txCtx, invoice, now)
		return err
	})
	if err != nil {
		return PaymentResult{}, err
	}

	result.Payment = toPaymentResponse(payment)
	s.deps.Metrics.PaymentRecorded(payment.Mode, result.Overpaid)
	s.deps.Logger.Info("payment recorded",
		zap.String("invoice_no", result.InvoiceNo),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("mode", payment.Mode))
	if result.Overpaid {
		s.deps.Logger.Warn("overpayment recorded",
			zap.String("invoice_no", result.InvoiceNo),
			zap.String("overpaid_by", result.OverpaidBy))
	}
	s.deps.Events.Publish(EventPaymentRecorded, result)
	s.announce(ctx, invoiceID, from, result.InvoiceStatus)
	return result, nil
}

// DeletePayment removes a payment and re-derives its invoice's status, which
// can move a PAID invoice back to PENDING or OVERDUE.
func (s *paymentService) DeletePayment(ctx context.Context, id string) (PaymentResult, error) {
	paymentID, err := parseID("payment id", id)
	if err != nil {
		return PaymentResult{}, err
	}

	var result PaymentResult
	var from string
	var invoiceID uuid.UUID
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		payment, err := s.paymentRepo.FindByID(txCtx, paymentID)
		if err != nil {
			return lookupErr(err, "payment", paymentID)
		}
		invoiceID = payment.InvoiceID

		invoice, err := s.invoiceRepo.FindByIDForUpdate(txCtx, payment.InvoiceID)
		if err != nil {
			return lookupErr(err, "invoice", payment.InvoiceID)
		}

		if err := s.paymentRepo.Delete(txCtx, paymentID); err != nil {
			return fmt.Errorf("failed to delete payment: %w", err)
		}

		from = invoice.Status
		result, err = s.settle(txCtx, invoice, s.deps.Clock.Now())
		if err != nil {
			return err
		}
		result.Payment = toPaymentResponse(*payment)
		return nil
	})
	if err != nil {
		return PaymentResult{}, err
	}

	s.deps.Metrics.PaymentDeleted()
	s.deps.Logger.Info("payment deleted",
		zap.String("invoice_no", result.InvoiceNo),
		zap.String("amount", result.Payment.Amount))
	s.deps.Events.Publish(EventPaymentDeleted, result)
	s.announce(ctx, invoiceID, from, result.InvoiceStatus)
	return result, nil
}

// settle re-sums the invoice's payments, persists the derived status and
// describes the outcome. The invoice row must already be locked.
func (s *paymentService) settle(ctx context.Context, invoice *model.Invoice, now time.Time) (PaymentResult, error) {
	paid, err := s.paymentRepo.SumByInvoice(ctx, invoice.ID)
	if err != nil {
		return PaymentResult{}, err
	}

	if invoice.DeriveStatus(paid, now) {
		if err := s.invoiceRepo.UpdateStatus(ctx, invoice.ID, invoice.Status); err != nil {
			return PaymentResult{}, fmt.Errorf("failed to update invoice status: %w", err)
		}
	}

	result := PaymentResult{
		InvoiceNo:     invoice.InvoiceNo,
		InvoiceStatus: invoice.Status,
		AmountPaid:    paid.StringFixed(2),
		BalanceDue:    decimal.Max(invoice.Total.Sub(paid), decimal.Zero).StringFixed(2),
	}
	if excess := paid.Sub(invoice.Total); excess.IsPositive() {
		result.Overpaid = true
		result.OverpaidBy = excess.StringFixed(2)
	}
	return result, nil
}

// announce broadcasts the refreshed invoice after a committed status change.
func (s *paymentService) announce(ctx context.Context, invoiceID uuid.UUID, from, to string) {
	if from == to {
		return
	}
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		s.deps.Logger.Warn("failed to reload invoice for status event", zap.String("invoice_id", invoiceID.String()), zap.Error(err))
		return
	}
	notifyStatusChange(s.deps, toInvoiceResponse(*invoice, s.deps.Clock.Now(), false), from, to)
}

func (s *paymentService) GetPayment(ctx context.Context, id string) (PaymentResponse, error) {
	paymentID, err := parseID("payment id", id)
	if err != nil {
		return PaymentResponse{}, err
	}
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return PaymentResponse{}, lookupErr(err, "payment", paymentID)
	}
	return toPaymentResponse(*payment), nil
}

func (s *paymentService) ListPayments(ctx context.Context, filter PaymentFilter) ([]PaymentResponse, int64, error) {
	invoiceID, err := parseOptionalID("invoice_id", filter.InvoiceID)
	if err != nil {
		return nil, 0, err
	}
	payments, total, err := s.paymentRepo.List(ctx, invoiceID, pagination.New(filter.Page, filter.Limit))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch payments: %w", err)
	}

	result := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		result = append(result, toPaymentResponse(p))
	}
	return result, total, nil
}

// --- Mapping ---

func toPaymentResponse(p model.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID.String(),
		InvoiceID:      p.InvoiceID.String(),
		Amount:         p.Amount.StringFixed(2),
		Mode:           p.Mode,
		TransactionRef: p.TransactionRef,
		PaidAt:         p.PaidAt.UTC().Format(time.RFC3339),
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
	}
}
