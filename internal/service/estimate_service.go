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

type CreateEstimateRequest struct {
	ClientID string `json:"client_id" binding:"required"`
	Items    string `json:"items"`
	Subtotal string `json:"subtotal" binding:"required"`
}

// UpdateEstimateRequest edits a non-converted estimate. Status may only move forward.
type UpdateEstimateRequest struct {
	Items    *string `json:"items"`
	Subtotal *string `json:"subtotal"`
	Status   *string `json:"status" binding:"omitempty,oneof=DRAFT SENT APPROVED CONVERTED"`
}

// ConvertEstimateRequest picks the tax jurisdiction and due date for the new invoice.
type ConvertEstimateRequest struct {
	InterState bool   `json:"inter_state"`
	DueDate    string `json:"due_date"` // YYYY-MM-DD, optional
}

type EstimateFilter struct {
	ClientID string
	Status   string
	Page     int
	Limit    int
}

type EstimateResponse struct {
	ID         string  `json:"id"`
	EstimateNo string  `json:"estimate_no"`
	ClientID   string  `json:"client_id"`
	ClientName string  `json:"client_name"`
	Items      string  `json:"items"`
	Subtotal   string  `json:"subtotal"`
	GSTAmount  string  `json:"gst_amount"`
	Total      string  `json:"total"`
	Status     string  `json:"status"`
	InvoiceID  *string `json:"invoice_id"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

type ConversionResponse struct {
	Estimate EstimateResponse `json:"estimate"`
	Invoice  InvoiceResponse  `json:"invoice"`
}

// --- Interface ---

type EstimateService interface {
	CreateEstimate(ctx context.Context, req CreateEstimateRequest) (EstimateResponse, error)
	UpdateEstimate(ctx context.Context, id string, req UpdateEstimateRequest) (EstimateResponse, error)
	SendEstimate(ctx context.Context, id string) (EstimateResponse, error)
	ApproveEstimate(ctx context.Context, id string) (EstimateResponse, error)
	DeleteEstimate(ctx context.Context, id string) error
	ConvertToInvoice(ctx context.Context, id string, req ConvertEstimateRequest) (ConversionResponse, error)
	GetEstimate(ctx context.Context, id string) (EstimateResponse, error)
	ListEstimates(ctx context.Context, filter EstimateFilter) ([]EstimateResponse, int64, error)
}

type estimateService struct {
	estimateRepo repository.EstimateRepository
	invoiceRepo  repository.InvoiceRepository
	clientRepo   repository.ClientRepository
	numbering    NumberingService
	txManager    repository.TransactionManager
	deps         Deps
}

func NewEstimateService(
	estimateRepo repository.EstimateRepository,
	invoiceRepo repository.InvoiceRepository,
	clientRepo repository.ClientRepository,
	numbering NumberingService,
	txManager repository.TransactionManager,
	deps Deps,
) EstimateService {
	return &estimateService{
		estimateRepo: estimateRepo,
		invoiceRepo:  invoiceRepo,
		clientRepo:   clientRepo,
		numbering:    numbering,
		txManager:    txManager,
		deps:         deps.withDefaults(),
	}
}

// --- Implementation ---

func (s *estimateService) CreateEstimate(ctx context.Context, req CreateEstimateRequest) (EstimateResponse, error) {
	subtotal, err := gst.ParseAmount("subtotal", req.Subtotal)
	if err != nil {
		return EstimateResponse{}, err
	}
	clientID, err := parseID("client_id", req.ClientID)
	if err != nil {
		return EstimateResponse{}, err
	}

	estimate := model.Estimate{
		ClientID: clientID,
		Items:    req.Items,
		Status:   model.EstimateStatusDraft,
	}
	if err := estimate.SetSubtotal(subtotal); err != nil {
		return EstimateResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.clientRepo.FindByID(txCtx, clientID); err != nil {
			return lookupErr(err, "client", clientID)
		}

		number, err := s.numbering.Next(txCtx, model.SequenceKindEstimate)
		if err != nil {
			return err
		}
		estimate.EstimateNo = number

		if err := s.estimateRepo.Create(txCtx, &estimate); err != nil {
			return fmt.Errorf("failed to create estimate: %w", err)
		}
		return nil
	})
	if err != nil {
		return EstimateResponse{}, err
	}

	s.deps.Metrics.DocumentIssued(model.SequenceKindEstimate)
	s.deps.Logger.Info("estimate created",
		zap.String("estimate_no", estimate.EstimateNo),
		zap.String("total", estimate.Total.StringFixed(2)))

	resp, err := s.GetEstimate(ctx, estimate.ID.String())
	if err != nil {
		return EstimateResponse{}, err
	}
	s.deps.Events.Publish(EventEstimateCreated, resp)
	return resp, nil
}

func (s *estimateService) UpdateEstimate(ctx context.Context, id string, req UpdateEstimateRequest) (EstimateResponse, error) {
	estimateID, err := parseID("estimate id", id)
	if err != nil {
		return EstimateResponse{}, err
	}

	var subtotal *decimal.Decimal
	if req.Subtotal != nil {
		parsed, err := gst.ParseAmount("subtotal", *req.Subtotal)
		if err != nil {
			return EstimateResponse{}, err
		}
		subtotal = &parsed
	}

	return s.mutate(ctx, estimateID, func(estimate *model.Estimate) error {
		if req.Items != nil {
			estimate.Items = *req.Items
		}
		if subtotal != nil {
			if err := estimate.SetSubtotal(*subtotal); err != nil {
				return err
			}
		}
		if req.Status != nil {
			return estimate.TransitionTo(*req.Status)
		}
		return nil
	})
}

func (s *estimateService) SendEstimate(ctx context.Context, id string) (EstimateResponse, error) {
	return s.transition(ctx, id, model.EstimateStatusSent)
}

func (s *estimateService) ApproveEstimate(ctx context.Context, id string) (EstimateResponse, error) {
	return s.transition(ctx, id, model.EstimateStatusApproved)
}

func (s *estimateService) transition(ctx context.Context, id, status string) (EstimateResponse, error) {
	estimateID, err := parseID("estimate id", id)
	if err != nil {
		return EstimateResponse{}, err
	}
	return s.mutate(ctx, estimateID, func(estimate *model.Estimate) error {
		return estimate.TransitionTo(status)
	})
}

// mutate applies fn to a locked, non-converted estimate and saves it.
func (s *estimateService) mutate(ctx context.Context, estimateID uuid.UUID, fn func(*model.Estimate) error) (EstimateResponse, error) {
	var from, to string
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		estimate, err := s.estimateRepo.FindByIDForUpdate(txCtx, estimateID)
		if err != nil {
			return lookupErr(err, "estimate", estimateID)
		}
		if err := estimate.EnsureEditable(); err != nil {
			return err
		}

		from = estimate.Status
		if err := fn(estimate); err != nil {
			return err
		}
		to = estimate.Status

		if err := s.estimateRepo.Update(txCtx, estimate); err != nil {
			return fmt.Errorf("failed to update estimate: %w", err)
		}
		return nil
	})
	if err != nil {
		return EstimateResponse{}, err
	}

	resp, err := s.GetEstimate(ctx, estimateID.String())
	if err != nil {
		return EstimateResponse{}, err
	}
	if from != to {
		s.deps.Logger.Info("estimate status changed",
			zap.String("estimate_no", resp.EstimateNo),
			zap.String("from", from),
			zap.String("to", to))
	}
	s.deps.Events.Publish(EventEstimateUpdated, resp)
	return resp, nil
}

func (s *estimateService) DeleteEstimate(ctx context.Context, id string) error {
	estimateID, err := parseID("estimate id", id)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		estimate, err := s.estimateRepo.FindByIDForUpdate(txCtx, estimateID)
		if err != nil {
			return lookupErr(err, "estimate", estimateID)
		}
		if err := estimate.EnsureEditable(); err != nil {
			return err
		}
		if err := s.estimateRepo.Delete(txCtx, estimateID); err != nil {
			return fmt.Errorf("failed to delete estimate: %w", err)
		}
		return nil
	})
}

// ConvertToInvoice issues an invoice from an APPROVED estimate and marks the
// estimate CONVERTED. Either both happen or neither does.
func (s *estimateService) ConvertToInvoice(ctx context.Context, id string, req ConvertEstimateRequest) (ConversionResponse, error) {
	estimateID, err := parseID("estimate id", id)
	if err != nil {
		return ConversionResponse{}, err
	}
	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		return ConversionResponse{}, err
	}

	var invoice *model.Invoice
	var estimateNo string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		estimate, err := s.estimateRepo.FindByIDForUpdate(txCtx, estimateID)
		if err != nil {
			return lookupErr(err, "estimate", estimateID)
		}
		if estimate.Status != model.EstimateStatusApproved {
			return apperror.InvalidState("only approved estimates can be converted, %s is %s", estimate.EstimateNo, estimate.Status)
		}
		estimateNo = estimate.EstimateNo

		invoice, err = issueInvoice(txCtx, s.numbering, s.invoiceRepo, s.deps.Clock.Now(), invoiceDraft{
			ClientID:   estimate.ClientID,
			EstimateID: &estimate.ID,
			Items:      estimate.Items,
			Subtotal:   estimate.Subtotal,
			InterState: req.InterState,
			DueDate:    dueDate,
		})
		if err != nil {
			return err
		}

		if err := estimate.MarkConverted(invoice.ID); err != nil {
			return err
		}
		if err := s.estimateRepo.Update(txCtx, estimate); err != nil {
			return fmt.Errorf("failed to mark estimate converted: %w", err)
		}
		return nil
	})
	if err != nil {
		return ConversionResponse{}, err
	}

	s.deps.Metrics.DocumentIssued(model.SequenceKindInvoice)
	s.deps.Logger.Info("estimate converted",
		zap.String("estimate_no", estimateNo),
		zap.String("invoice_no", invoice.InvoiceNo),
		zap.String("total", invoice.Total.StringFixed(2)))

	estimateResp, err := s.GetEstimate(ctx, estimateID.String())
	if err != nil {
		return ConversionResponse{}, err
	}
	reloaded, err := s.invoiceRepo.FindByID(ctx, invoice.ID)
	if err != nil {
		return ConversionResponse{}, lookupErr(err, "invoice", invoice.ID)
	}

	resp := ConversionResponse{Estimate: estimateResp, Invoice: toInvoiceResponse(*reloaded, s.deps.Clock.Now(), true)}
	s.deps.Events.Publish(EventEstimateConverted, resp)
	return resp, nil
}

func (s *estimateService) GetEstimate(ctx context.Context, id string) (EstimateResponse, error) {
	estimateID, err := parseID("estimate id", id)
	if err != nil {
		return EstimateResponse{}, err
	}
	estimate, err := s.estimateRepo.FindByID(ctx, estimateID)
	if err != nil {
		return EstimateResponse{}, lookupErr(err, "estimate", estimateID)
	}
	return toEstimateResponse(*estimate), nil
}

func (s *estimateService) ListEstimates(ctx context.Context, filter EstimateFilter) ([]EstimateResponse, int64, error) {
	clientID, err := parseOptionalID("client_id", filter.ClientID)
	if err != nil {
		return nil, 0, err
	}
	switch filter.Status {
	case "", model.EstimateStatusDraft, model.EstimateStatusSent, model.EstimateStatusApproved, model.EstimateStatusConverted:
	default:
		return nil, 0, apperror.InvalidInput("unknown estimate status %q", filter.Status)
	}
	estimates, total, err := s.estimateRepo.List(ctx, repository.DocumentFilter{ClientID: clientID, Status: filter.Status}, pagination.New(filter.Page, filter.Limit))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch estimates: %w", err)
	}

	result := make([]EstimateResponse, 0, len(estimates))
	for _, e := range estimates {
		result = append(result, toEstimateResponse(e))
	}
	return result, total, nil
}

// --- Mapping ---

func toEstimateResponse(e model.Estimate) EstimateResponse {
	resp := EstimateResponse{
		ID:         e.ID.String(),
		EstimateNo: e.EstimateNo,
		ClientID:   e.ClientID.String(),
		Items:      e.Items,
		Subtotal:   e.Subtotal.StringFixed(2),
		GSTAmount:  e.GSTAmount.StringFixed(2),
		Total:      e.Total.StringFixed(2),
		Status:     e.Status,
		CreatedAt:  e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  e.UpdatedAt.Format(time.RFC3339),
	}
	if e.Client != nil {
		resp.ClientName = e.Client.Name
	}
	if e.InvoiceID != nil {
		s := e.InvoiceID.String()
		resp.InvoiceID = &s
	}
	return resp
}
