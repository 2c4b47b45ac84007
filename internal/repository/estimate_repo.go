package repository

import (
	"context"

	"invoicing/internal/model"
	"invoicing/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentFilter narrows estimate and invoice listings. Zero values match everything.
type DocumentFilter struct {
	ClientID *uuid.UUID
	Status   string
}

func (f DocumentFilter) apply(query *gorm.DB) *gorm.DB {
	if f.ClientID != nil {
		query = query.Where("client_id = ?", *f.ClientID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	return query
}

type EstimateRepository interface {
	Create(ctx context.Context, estimate *model.Estimate) error
	Update(ctx context.Context, estimate *model.Estimate) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Estimate, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Estimate, error)
	List(ctx context.Context, filter DocumentFilter, p pagination.Params) ([]model.Estimate, int64, error)
}

type estimateRepository struct {
	db *gorm.DB
}

func NewEstimateRepository(db *gorm.DB) EstimateRepository {
	return &estimateRepository{db: db}
}

func (r *estimateRepository) Create(ctx context.Context, estimate *model.Estimate) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(estimate).Error
}

func (r *estimateRepository) Update(ctx context.Context, estimate *model.Estimate) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(estimate).Error
}

func (r *estimateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Estimate{}).Error
}

func (r *estimateRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Estimate, error) {
	var estimate model.Estimate
	if err := GetDB(ctx, r.db).Preload("Client").First(&estimate, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &estimate, nil
}

// FindByIDForUpdate loads the estimate row with an exclusive lock held until the transaction ends.
func (r *estimateRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Estimate, error) {
	var estimate model.Estimate
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&estimate, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &estimate, nil
}

func (r *estimateRepository) List(ctx context.Context, filter DocumentFilter, p pagination.Params) ([]model.Estimate, int64, error) {
	var estimates []model.Estimate
	var total int64

	db := GetDB(ctx, r.db)
	if err := filter.apply(db.Model(&model.Estimate{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := filter.apply(db.Model(&model.Estimate{})).Preload("Client").
		Order("created_at DESC").Offset(p.Offset).Limit(p.Limit).
		Find(&estimates).Error; err != nil {
		return nil, 0, err
	}

	return estimates, total, nil
}
