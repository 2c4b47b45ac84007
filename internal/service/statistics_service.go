package service

import (
	"context"
	"fmt"
	"time"

	"invoicing/internal/model"
	"invoicing/internal/repository"
)

// RecentLimit is how many recent clients and invoices the dashboard shows.
const RecentLimit = 5

type DashboardStatsResponse struct {
	TotalClients       int64             `json:"total_clients"`
	TotalEstimates     int64             `json:"total_estimates"`
	TotalInvoices      int64             `json:"total_invoices"`
	TotalPayments      int64             `json:"total_payments"`
	InvoicesByStatus   map[string]int64  `json:"invoices_by_status"`
	TotalPaidAmount    string            `json:"total_paid_amount"`
	TotalPendingAmount string            `json:"total_pending_amount"`
	RecentClients      []ClientResponse  `json:"recent_clients"`
	RecentInvoices     []InvoiceResponse `json:"recent_invoices"`
	GeneratedAt        string            `json:"generated_at"`
}

type StatisticsService interface {
	GetDashboardStats(ctx context.Context) (DashboardStatsResponse, error)
}

type statisticsService struct {
	statsRepo   repository.StatisticsRepository
	clientRepo  repository.ClientRepository
	invoiceRepo repository.InvoiceRepository
	deps        Deps
}

func NewStatisticsService(
	statsRepo repository.StatisticsRepository,
	clientRepo repository.ClientRepository,
	invoiceRepo repository.InvoiceRepository,
	deps Deps,
) StatisticsService {
	return &statisticsService{
		statsRepo:   statsRepo,
		clientRepo:  clientRepo,
		invoiceRepo: invoiceRepo,
		deps:        deps.withDefaults(),
	}
}

// GetDashboardStats reads counts, sums and recent documents without writing.
func (s *statisticsService) GetDashboardStats(ctx context.Context) (DashboardStatsResponse, error) {
	now := s.deps.Clock.Now()
	totals, err := s.statsRepo.GetDashboardTotals(ctx, model.DueDay(now))
	if err != nil {
		return DashboardStatsResponse{}, fmt.Errorf("failed to aggregate dashboard totals: %w", err)
	}

	clients, err := s.clientRepo.Recent(ctx, RecentLimit)
	if err != nil {
		return DashboardStatsResponse{}, fmt.Errorf("failed to fetch recent clients: %w", err)
	}
	invoices, err := s.invoiceRepo.Recent(ctx, RecentLimit)
	if err != nil {
		return DashboardStatsResponse{}, fmt.Errorf("failed to fetch recent invoices: %w", err)
	}

	resp := DashboardStatsResponse{
		TotalClients:       totals.TotalClients,
		TotalEstimates:     totals.TotalEstimates,
		TotalInvoices:      totals.TotalInvoices,
		TotalPayments:      totals.TotalPayments,
		InvoicesByStatus:   totals.InvoicesByStatus,
		TotalPaidAmount:    totals.TotalPaidAmount.StringFixed(2),
		TotalPendingAmount: totals.TotalPendingAmount.StringFixed(2),
		RecentClients:      make([]ClientResponse, 0, len(clients)),
		RecentInvoices:     make([]InvoiceResponse, 0, len(invoices)),
		GeneratedAt:        now.UTC().Format(time.RFC3339),
	}
	for _, c := range clients {
		resp.RecentClients = append(resp.RecentClients, toClientResponse(c))
	}
	for _, inv := range invoices {
		resp.RecentInvoices = append(resp.RecentInvoices, toInvoiceResponse(inv, now, false))
	}
	return resp, nil
}
