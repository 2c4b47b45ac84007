package service

import (
	"context"
	"fmt"

	"invoicing/internal/model"
	"invoicing/internal/repository"
	"invoicing/pkg/apperror"
)

var numberPrefixes = map[string]string{
	model.SequenceKindEstimate: "EST",
	model.SequenceKindInvoice:  "INV",
}

// FormatDocumentNumber renders a sequence value as PREFIX-000001. Values past
// six digits keep growing in width.
func FormatDocumentNumber(kind string, value int64) string {
	return fmt.Sprintf("%s-%06d", numberPrefixes[kind], value)
}

// NumberingService hands out gap-free, never reused document numbers per kind.
type NumberingService interface {
	// Next joins the caller's transaction when ctx carries one, so a rollback
	// there also releases the number.
	Next(ctx context.Context, kind string) (string, error)
}

type numberingService struct {
	sequenceRepo repository.SequenceRepository
	txManager    repository.TransactionManager
}

func NewNumberingService(sequenceRepo repository.SequenceRepository, txManager repository.TransactionManager) NumberingService {
	return &numberingService{sequenceRepo: sequenceRepo, txManager: txManager}
}

func (s *numberingService) Next(ctx context.Context, kind string) (string, error) {
	if _, ok := numberPrefixes[kind]; !ok {
		return "", apperror.InvalidInput("unknown document kind %q", kind)
	}

	var number string
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		value, err := s.sequenceRepo.Next(txCtx, kind)
		if err != nil {
			return err
		}
		number = FormatDocumentNumber(kind, value)
		return nil
	})
	if err != nil {
		return "", err
	}
	return number, nil
}
