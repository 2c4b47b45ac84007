package repository

import (
	"context"
	"time"

	"invoicing/internal/model"
	"invoicing/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) error
	Update(ctx context.Context, invoice *model.Invoice) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	// List matches filter.Status against the status each invoice has as of today, so a
	// PENDING row whose due day has passed is listed as OVERDUE.
	List(ctx context.Context, filter DocumentFilter, today time.Time, p pagination.Params) ([]model.Invoice, int64, error)
	Recent(ctx context.Context, limit int) ([]model.Invoice, error)
	// MarkOverdue moves unpaid PENDING invoices due strictly before today to OVERDUE.
	MarkOverdue(ctx context.Context, today time.Time) (int64, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(invoice).Error
}

func (r *invoiceRepository) Update(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(invoice).Error
}

func (r *invoiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.Invoice{}).Where("id = ?", id).Update("status", status).Error
}

func (r *invoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Invoice{}).Error
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).
		Preload("Client").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("paid_at ASC") }).
		First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// FindByIDForUpdate loads the invoice row with an exclusive lock held until the transaction ends.
func (r *invoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) List(ctx context.Context, filter DocumentFilter, today time.Time, p pagination.Params) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	status := filter.Status
	filter.Status = ""
	scoped := func(db *gorm.DB) *gorm.DB {
		return filter.apply(db.Model(&model.Invoice{})).Scopes(effectiveStatus(status, today))
	}

	db := GetDB(ctx, r.db)
	if err := scoped(db).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := scoped(db).Preload("Client").Preload("Payments").
		Order("created_at DESC").Offset(p.Offset).Limit(p.Limit).
		Find(&invoices).Error; err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}

// effectiveStatus filters on the derived status: stored OVERDUE, or PENDING with a due day before today.
func effectiveStatus(status string, today time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch status {
		case "":
			return db
		case model.InvoiceStatusPending:
			return db.Where("status = ? AND (due_date IS NULL OR due_date >= ?)", model.InvoiceStatusPending, today)
		case model.InvoiceStatusOverdue:
			return db.Where("status = ? OR (status = ? AND due_date IS NOT NULL AND due_date < ?)",
				model.InvoiceStatusOverdue, model.InvoiceStatusPending, today)
		default:
			return db.Where("status = ?", status)
		}
	}
}

func (r *invoiceRepository) Recent(ctx context.Context, limit int) ([]model.Invoice, error) {
	var invoices []model.Invoice
	if err := GetDB(ctx, r.db).Preload("Client").Preload("Payments").Order("created_at DESC").Limit(limit).Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *invoiceRepository) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	result := GetDB(ctx, r.db).Model(&model.Invoice{}).
		Where("status = ? AND due_date IS NOT NULL AND due_date < ?", model.InvoiceStatusPending, today).
		Update("status", model.InvoiceStatusOverdue)
	return result.RowsAffected, result.Error
}
