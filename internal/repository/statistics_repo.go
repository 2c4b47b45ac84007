package repository

import (
	"context"
	"fmt"
	"time"

	"invoicing/internal/gst"
	"invoicing/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StatisticsRepository interface {
	// GetDashboardTotals only reads. Status counts treat a PENDING invoice due before today as OVERDUE.
	GetDashboardTotals(ctx context.Context, today time.Time) (*model.DashboardTotals, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) GetDashboardTotals(ctx context.Context, today time.Time) (*model.DashboardTotals, error) {
	db := GetDB(ctx, r.db)
	totals := &model.DashboardTotals{
		InvoicesByStatus: map[string]int64{
			model.InvoiceStatusPending: 0,
			model.InvoiceStatusPaid:    0,
			model.InvoiceStatusOverdue: 0,
		},
	}

	counts := []struct {
		model any
		dest  *int64
	}{
		{&model.Client{}, &totals.TotalClients},
		{&model.Estimate{}, &totals.TotalEstimates},
		{&model.Invoice{}, &totals.TotalInvoices},
		{&model.Payment{}, &totals.TotalPayments},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to count %T: %w", c.model, err)
		}
	}

	var byStatus []model.InvoiceStatusCount
	if err := db.Model(&model.Invoice{}).
		Select("CASE WHEN status = ? AND due_date IS NOT NULL AND due_date < ? THEN ? ELSE status END AS derived_status, COUNT(*) AS count",
			model.InvoiceStatusPending, today, model.InvoiceStatusOverdue).
		Group("derived_status").
		Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("failed to count invoices by status: %w", err)
	}
	for _, row := range byStatus {
		totals.InvoicesByStatus[row.Status] = row.Count
	}

	var paid decimal.NullDecimal
	if err := db.Model(&model.Payment{}).Select("SUM(amount)").Row().Scan(&paid); err != nil {
		return nil, fmt.Errorf("failed to sum payments: %w", err)
	}
	totals.TotalPaidAmount = nullToZero(paid)

	var pending decimal.NullDecimal
	if err := db.Table("invoices").
		Select("SUM(invoices.total - COALESCE(paid.amount, 0))").
		Joins("LEFT JOIN (SELECT invoice_id, SUM(amount) AS amount FROM payments GROUP BY invoice_id) AS paid ON paid.invoice_id = invoices.id").
		Where("invoices.status <> ?", model.InvoiceStatusPaid).
		Row().Scan(&pending); err != nil {
		return nil, fmt.Errorf("failed to sum pending amounts: %w", err)
	}
	totals.TotalPendingAmount = nullToZero(pending)

	return totals, nil
}

func nullToZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return gst.Round(d.Decimal)
}
