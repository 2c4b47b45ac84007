package service

import (
	"context"
	"fmt"
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

type CreateInvoiceRequest struct {
	ClientID   string `json:"client_id" binding:"required"`
	Items      string `json:"items"`
	Subtotal   string `json:"subtotal" binding:"required"`
	DueDate    string `json:"due_date"` // YYYY-MM-DD, optional
	InterState bool   `json:"inter_state"`
}

// UpdateInvoiceRequest edits the descriptive fields of an invoice. The tax
// snapshot is fixed at issue time; an empty due_date clears it.
type UpdateInvoiceRequest struct {
	Items   *string `json:"items"`
	DueDate *string `json:"due_date"`
}

type InvoiceFilter struct {
	ClientID string
	Status   string
	Page     int
	Limit    int
}

type InvoiceResponse struct {
	ID         string            `json:"id"`
	InvoiceNo  string            `json:"invoice_no"`
	ClientID   string            `json:"client_id"`
	ClientName string            `json:"client_name"`
	EstimateID *string           `json:"estimate_id"`
	Items      string            `json:"items"`
	Subtotal   string            `json:"subtotal"`
	CGST       string            `json:"cgst"`
	SGST       string            `json:"sgst"`
	IGST       string            `json:"igst"`
	TaxAmount  string            `json:"tax_amount"`
	Total      string            `json:"total"`
	InterState bool              `json:"inter_state"`
	Status     string            `json:"status"`
	DueDate    *string           `json:"due_date"`
	AmountPaid string            `json:"amount_paid"`
	BalanceDue string            `json:"balance_due"`
	Payments   []PaymentResponse `json:"payments,omitempty"`
	CreatedAt  string            `json:"created_at"`
	UpdatedAt  string            `json:"updated_at"`
}

// --- Interface ---

type InvoiceService interface {
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (InvoiceResponse, error)
	UpdateInvoice(ctx context.Context, id string, req UpdateInvoiceRequest) (InvoiceResponse, error)
	DeleteInvoice(ctx context.Context, id string) error
	GetInvoice(ctx context.Context, id string) (InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceResponse, int64, error)
	// RefreshOverdue moves PENDING invoices whose due day has passed to OVERDUE
	// and returns how many changed.
	RefreshOverdue(ctx context.Context) (int64, error)
}

type invoiceService struct {
	invoiceRepo  repository.InvoiceRepository
	clientRepo   repository.ClientRepository
	paymentRepo  repository.PaymentRepository
	estimateRepo repository.EstimateRepository
	numbering    NumberingService
	txManager    repository.TransactionManager
	deps         Deps
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	clientRepo repository.ClientRepository,
	paymentRepo repository.PaymentRepository,
	estimateRepo repository.EstimateRepository,
	numbering NumberingService,
	txManager repository.TransactionManager,
	deps Deps,
) InvoiceService {
	return &invoiceService{
		invoiceRepo:  invoiceRepo,
		clientRepo:   clientRepo,
		paymentRepo:  paymentRepo,
		estimateRepo: estimateRepo,
		numbering:    numbering,
		txManager:    txManager,
		deps:         deps.withDefaults(),
	}
}

// invoiceDraft is everything needed to issue an invoice, whether entered
// directly or carried over from an approved estimate.
type invoiceDraft struct {
	ClientID   uuid.UUID
	EstimateID *uuid.UUID
	Items      string
	Subtotal   decimal.Decimal
	InterState bool
	DueDate    *time.Time
}

// issueInvoice computes GST, assigns the next invoice number and persists the
// invoice with its derived status. ctx must carry the caller's transaction.
func issueInvoice(ctx context.Context, numbering NumberingService, invoiceRepo repository.InvoiceRepository, now time.Time, draft invoiceDraft) (*model.Invoice, error) {
	breakdown, err := gst.Compute(draft.Subtotal, draft.InterState)
	if err != nil {
		return nil, err
	}

	invoiceNo, err := numbering.Next(ctx, model.SequenceKindInvoice)
	if err != nil {
		return nil, err
	}

	invoice := model.Invoice{
		InvoiceNo:  invoiceNo,
		ClientID:   draft.ClientID,
		EstimateID: draft.EstimateID,
		Items:      draft.Items,
		DueDate:    draft.DueDate,
	}
	invoice.ApplyTax(breakdown, draft.InterState)
	invoice.Status = model.DeriveInvoiceStatus(invoice.Total, decimal.Zero, invoice.DueDate, now)

	if err := invoiceRepo.Create(ctx, &invoice); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	return &invoice, nil
}

// --- Implementation ---

func (s *invoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (InvoiceResponse, error) {
	subtotal, err := gst.ParseAmount("subtotal", req.Subtotal)
	if err != nil {
		return InvoiceResponse{}, err
	}
	if subtotal.IsNegative() {
		return InvoiceResponse{}, apperror.InvalidAmount("subtotal must not be negative, got %s", subtotal.StringFixed(2))
	}
	clientID, err := parseID("client_id", req.ClientID)
	if err != nil {
		return InvoiceResponse{}, err
	}
	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		return InvoiceResponse{}, err
	}

	var invoice *model.Invoice
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.clientRepo.FindByID(txCtx, clientID); err != nil {
			return lookupErr(err, "client", clientID)
		}

		var issueErr error
		invoice, issueErr = issueInvoice(txCtx, s.numbering, s.invoiceRepo, s.deps.Clock.Now(), invoiceDraft{
			ClientID:   clientID,
			Items:      req.Items,
			Subtotal:   subtotal,
			InterState: req.InterState,
			DueDate:    dueDate,
		})
		return issueErr
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	s.deps.Metrics.DocumentIssued(model.SequenceKindInvoice)
	s.deps.Logger.Info("invoice created",
		zap.String("invoice_no", invoice.InvoiceNo),
		zap.String("total", invoice.Total.StringFixed(2)),
		zap.Bool("inter_state", invoice.InterState),
		zap.String("status", invoice.Status))

	resp, err := s.GetInvoice(ctx, invoice.ID.String())
	if err != nil {
		return InvoiceResponse{}, err
	}
	s.deps.Events.Publish(EventInvoiceCreated, resp)
	return resp, nil
}

func (s *invoiceService) UpdateInvoice(ctx context.Context, id string, req UpdateInvoiceRequest) (InvoiceResponse, error) {
	invoiceID, err := parseID("invoice id", id)
	if err != nil {
		return InvoiceResponse{}, err
	}

	var dueDate *time.Time
	if req.DueDate != nil {
		if dueDate, err = parseDueDate(*req.DueDate); err != nil {
			return InvoiceResponse{}, err
		}
	}

	var from, to string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoiceRepo.FindByIDForUpdate(txCtx, invoiceID)
		if err != nil {
			return lookupErr(err, "invoice", invoiceID)
		}

		if req.Items != nil {
			invoice.Items = *req.Items
		}
		if req.DueDate != nil {
			invoice.DueDate = dueDate
		}

		paid, err := s.paymentRepo.SumByInvoice(txCtx, invoiceID)
		if err != nil {
			return err
		}
		from = invoice.Status
		invoice.DeriveStatus(paid, s.deps.Clock.Now())
		to = invoice.Status

		if err := s.invoiceRepo.Update(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	resp, err := s.GetInvoice(ctx, id)
	if err != nil {
		return InvoiceResponse{}, err
	}
	notifyStatusChange(s.deps, resp, from, to)
	return resp, nil
}

// DeleteInvoice removes an invoice that has no payments. A converted invoice
// hands its estimate back to APPROVED in the same transaction.
func (s *invoiceService) DeleteInvoice(ctx context.Context, id string) error {
	invoiceID, err := parseID("invoice id", id)
	if err != nil {
		return err
	}

	var invoiceNo string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoiceRepo.FindByIDForUpdate(txCtx, invoiceID)
		if err != nil {
			return lookupErr(err, "invoice", invoiceID)
		}
		invoiceNo = invoice.InvoiceNo

		count, err := s.paymentRepo.CountByInvoice(txCtx, invoiceID)
		if err != nil {
			return fmt.Errorf("failed to count payments: %w", err)
		}
		if count > 0 {
			return apperror.InvalidState("invoice %s has %d payment(s), delete them first", invoice.InvoiceNo, count)
		}
		if invoice.EstimateID != nil {
			if err := s.releaseEstimate(txCtx, *invoice.EstimateID, invoiceID); err != nil {
				return err
			}
		}

		if err := s.invoiceRepo.Delete(txCtx, invoiceID); err != nil {
			return fmt.Errorf("failed to delete invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.deps.Logger.Info("invoice deleted", zap.String("invoice_no", invoiceNo))
	s.deps.Events.Publish(EventInvoiceDeleted, map[string]string{"id": id, "invoice_no": invoiceNo})
	return nil
}

// releaseEstimate returns the source estimate to APPROVED so it can be converted again.
func (s *invoiceService) releaseEstimate(ctx context.Context, estimateID, invoiceID uuid.UUID) error {
	estimate, err := s.estimateRepo.FindByIDForUpdate(ctx, estimateID)
	if err != nil {
		return lookupErr(err, "estimate", estimateID)
	}
	if err := estimate.ReleaseInvoice(invoiceID); err != nil {
		return err
	}
	if err := s.estimateRepo.Update(ctx, estimate); err != nil {
		return fmt.Errorf("failed to release estimate: %w", err)
	}
	s.deps.Logger.Info("estimate released by invoice delete", zap.String("estimate_no", estimate.EstimateNo))
	return nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (InvoiceResponse, error) {
	invoiceID, err := parseID("invoice id", id)
	if err != nil {
		return InvoiceResponse{}, err
	}
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return InvoiceResponse{}, lookupErr(err, "invoice", invoiceID)
	}
	return toInvoiceResponse(*invoice, s.deps.Clock.Now(), true), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceResponse, int64, error) {
	clientID, err := parseOptionalID("client_id", filter.ClientID)
	if err != nil {
		return nil, 0, err
	}
	switch filter.Status {
	case "", model.InvoiceStatusPending, model.InvoiceStatusPaid, model.InvoiceStatusOverdue:
	default:
		return nil, 0, apperror.InvalidInput("unknown invoice status %q", filter.Status)
	}
	now := s.deps.Clock.Now()
	invoices, total, err := s.invoiceRepo.List(ctx, repository.DocumentFilter{ClientID: clientID, Status: filter.Status},
		model.DueDay(now), pagination.New(filter.Page, filter.Limit))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch invoices: %w", err)
	}

	result := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		result = append(result, toInvoiceResponse(inv, now, false))
	}
	return result, total, nil
}

func (s *invoiceService) RefreshOverdue(ctx context.Context) (int64, error) {
	today := model.DueDay(s.deps.Clock.Now())
	n, err := s.invoiceRepo.MarkOverdue(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue invoices: %w", err)
	}
	if n > 0 {
		s.deps.Metrics.OverdueMarked(n)
		s.deps.Logger.Info("invoices marked overdue", zap.Int64("count", n), zap.Time("today", today))
		s.deps.Events.Publish(EventInvoiceStatusChange, map[string]interface{}{
			"status": model.InvoiceStatusOverdue,
			"count":  n,
		})
	}
	return n, nil
}

// notifyStatusChange records, logs and broadcasts a derived status change.
func notifyStatusChange(deps Deps, invoice InvoiceResponse, from, to string) {
	if from == to {
		return
	}
	deps.Metrics.InvoiceTransition(from, to)
	deps.Logger.Info("invoice status changed",
		zap.String("invoice_no", invoice.InvoiceNo),
		zap.String("from", from),
		zap.String("to", to))
	deps.Events.Publish(EventInvoiceStatusChange, invoice)
}

// --- Mapping ---

// toInvoiceResponse reports the status as of now, so a missed sweep never shows a stale PENDING.
func toInvoiceResponse(inv model.Invoice, now time.Time, withPayments bool) InvoiceResponse {
	paid := decimal.Zero
	for _, p := range inv.Payments {
		paid = paid.Add(p.Amount)
	}
	balance := inv.Total.Sub(paid)
	if balance.IsNegative() {
		balance = decimal.Zero
	}

	resp := InvoiceResponse{
		ID:         inv.ID.String(),
		InvoiceNo:  inv.InvoiceNo,
		ClientID:   inv.ClientID.String(),
		Items:      inv.Items,
		Subtotal:   inv.Subtotal.StringFixed(2),
		CGST:       inv.CGST.StringFixed(2),
		SGST:       inv.SGST.StringFixed(2),
		IGST:       inv.IGST.StringFixed(2),
		TaxAmount:  inv.TaxAmount().StringFixed(2),
		Total:      inv.Total.StringFixed(2),
		InterState: inv.InterState,
		Status:     inv.StatusAsOf(now),
		DueDate:    formatDate(inv.DueDate),
		AmountPaid: paid.StringFixed(2),
		BalanceDue: balance.StringFixed(2),
		CreatedAt:  inv.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  inv.UpdatedAt.Format(time.RFC3339),
	}
	if inv.Client != nil {
		resp.ClientName = inv.Client.Name
	}
	if inv.EstimateID != nil {
		s := inv.EstimateID.String()
		resp.EstimateID = &s
	}
	if withPayments {
		resp.Payments = make([]PaymentResponse, 0, len(inv.Payments))
		for _, p := range inv.Payments {
			resp.Payments = append(resp.Payments, toPaymentResponse(p))
		}
	}
	return resp
}
