package repository

import (
	"context"
	"fmt"

	"invoicing/internal/gst"
	"invoicing/internal/model"
	"invoicing/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	List(ctx context.Context, invoiceID *uuid.UUID, p pagination.Params) ([]model.Payment, int64, error)
	SumByInvoice(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error)
	CountByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return GetDB(ctx, r.db).Create(payment).Error
}

func (r *paymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Payment{}).Error
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	if err := GetDB(ctx, r.db).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) List(ctx context.Context, invoiceID *uuid.UUID, p pagination.Params) ([]model.Payment, int64, error) {
	var payments []model.Payment
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Payment{})
	if invoiceID != nil {
		query = query.Where("invoice_id = ?", *invoiceID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	fetchQuery := db.Model(&model.Payment{})
	if invoiceID != nil {
		fetchQuery = fetchQuery.Where("invoice_id = ?", *invoiceID)
	}
	if err := fetchQuery.Order("paid_at DESC").Offset(p.Offset).Limit(p.Limit).Find(&payments).Error; err != nil {
		return nil, 0, err
	}

	return payments, total, nil
}

// SumByInvoice returns the amount paid so far, zero when there are no payments.
func (r *paymentRepository) SumByInvoice(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	if err := GetDB(ctx, r.db).Model(&model.Payment{}).
		Select("SUM(amount)").
		Where("invoice_id = ?", invoiceID).
		Row().Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum payments: %w", err)
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return gst.Round(sum.Decimal), nil
}

func (r *paymentRepository) CountByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Payment{}).Where("invoice_id = ?", invoiceID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
