package repository

import (
	"context"
	"errors"
	"fmt"
	"math"

	"invoicing/internal/model"
	"invoicing/pkg/apperror"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SequenceRepository interface {
	// Next increments and returns the counter for kind. It must run inside a transaction.
	Next(ctx context.Context, kind string) (int64, error)
	Current(ctx context.Context, kind string) (int64, error)
}

type sequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) SequenceRepository {
	return &sequenceRepository{db: db}
}

func (r *sequenceRepository) Next(ctx context.Context, kind string) (int64, error) {
	if !InTx(ctx) {
		return 0, fmt.Errorf("sequence %s: Next called outside a transaction", kind)
	}
	db := GetDB(ctx, r.db)

	seed := model.DocumentSequence{Kind: kind}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, fmt.Errorf("failed to seed sequence %s: %w", kind, err)
	}

	var seq model.DocumentSequence
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&seq, "kind = ?", kind).Error; err != nil {
		return 0, fmt.Errorf("failed to lock sequence %s: %w", kind, err)
	}
	if seq.LastValue == math.MaxInt64 {
		return 0, apperror.NumberingExhausted("sequence %s is exhausted", kind)
	}

	next := seq.LastValue + 1
	if err := db.Model(&model.DocumentSequence{}).
		Where("kind = ?", kind).
		Update("last_value", next).Error; err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s: %w", kind, err)
	}
	return next, nil
}

func (r *sequenceRepository) Current(ctx context.Context, kind string) (int64, error) {
	var seq model.DocumentSequence
	err := GetDB(ctx, r.db).First(&seq, "kind = ?", kind).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return seq.LastValue, nil
}
