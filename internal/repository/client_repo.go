package repository

import (
	"context"
	"strings"

	"invoicing/internal/model"
	"invoicing/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClientRepository interface {
	Create(ctx context.Context, client *model.Client) error
	Update(ctx context.Context, client *model.Client) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Client, error)
	List(ctx context.Context, category, search string, p pagination.Params) ([]model.Client, int64, error)
	Recent(ctx context.Context, limit int) ([]model.Client, error)
	// CountDocuments returns how many estimates and invoices reference the client.
	CountDocuments(ctx context.Context, id uuid.UUID) (int64, error)
}

type clientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(ctx context.Context, client *model.Client) error {
	return GetDB(ctx, r.db).Create(client).Error
}

func (r *clientRepository) Update(ctx context.Context, client *model.Client) error {
	return GetDB(ctx, r.db).Save(client).Error
}

func (r *clientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Client{}).Error
}

func (r *clientRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	var client model.Client
	if err := GetDB(ctx, r.db).First(&client, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) filtered(db *gorm.DB, category, search string) *gorm.DB {
	query := db.Model(&model.Client{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ? OR LOWER(gst_number) LIKE ?",
			like, like, like, like)
	}
	return query
}

func (r *clientRepository) List(ctx context.Context, category, search string, p pagination.Params) ([]model.Client, int64, error) {
	var clients []model.Client
	var total int64

	db := GetDB(ctx, r.db)
	if err := r.filtered(db, category, search).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := r.filtered(db, category, search).
		Order("created_at DESC").Offset(p.Offset).Limit(p.Limit).
		Find(&clients).Error; err != nil {
		return nil, 0, err
	}

	return clients, total, nil
}

func (r *clientRepository) Recent(ctx context.Context, limit int) ([]model.Client, error) {
	var clients []model.Client
	if err := GetDB(ctx, r.db).Order("created_at DESC").Limit(limit).Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *clientRepository) CountDocuments(ctx context.Context, id uuid.UUID) (int64, error) {
	db := GetDB(ctx, r.db)

	var estimates, invoices int64
	if err := db.Model(&model.Estimate{}).Where("client_id = ?", id).Count(&estimates).Error; err != nil {
		return 0, err
	}
	if err := db.Model(&model.Invoice{}).Where("client_id = ?", id).Count(&invoices).Error; err != nil {
		return 0, err
	}
	return estimates + invoices, nil
}
