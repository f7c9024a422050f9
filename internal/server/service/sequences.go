package service

import (
	"context"
	"errors"

	"github.com/KreatechIT/mrs-sub000/internal/server/models"
	"github.com/KreatechIT/mrs-sub000/internal/shared/validate"
)

// SequencesService owns the wheel ordering.
type SequencesService struct {
	repo Repository
}

func (s *SequencesService) Create(ctx context.Context, itemUUID string) (models.SpinSequence, error) {
	if itemUUID == "" {
		return models.SpinSequence{}, errors.New("item_uuid required")
	}
	return s.repo.CreateSequence(ctx, itemUUID)
}

func (s *SequencesService) List(ctx context.Context) ([]models.SpinSequence, error) {
	return s.repo.ListSequences(ctx)
}

func (s *SequencesService) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteSequence(ctx, id)
}

// Reorder validates the batch, then applies it atomically.
func (s *SequencesService) Reorder(ctx context.Context, entries []validate.ReorderEntry) error {
	if err := validate.Reorder(entries); err != nil {
		return err
	}
	orders := make(map[string]int64, len(entries))
	for _, e := range entries {
		orders[e.SequenceUUID] = e.ItemOrder
	}
	return s.repo.ReorderSequences(ctx, orders)
}
