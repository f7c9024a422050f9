package service

import (
	"context"

	"github.com/KreatechIT/mrs-sub000/internal/server/models"
	"github.com/KreatechIT/mrs-sub000/internal/shared/validate"
)

// ItemsService owns the reward catalog.
type ItemsService struct {
	repo Repository
}

type ItemInput struct {
	RewardName  string
	Probability float64
	Unlimited   bool
	Quantity    int64
	Image       string
}

func (s *ItemsService) Create(ctx context.Context, in ItemInput) (models.SpinItem, error) {
	if err := validate.Item(in.RewardName, in.Probability, in.Unlimited, in.Quantity); err != nil {
		return models.SpinItem{}, err
	}
	return s.repo.CreateItem(ctx, models.SpinItem{
		RewardName:  in.RewardName,
		Probability: in.Probability,
		Unlimited:   in.Unlimited,
		Quantity:    in.Quantity,
		Image:       in.Image,
	})
}

func (s *ItemsService) List(ctx context.Context, includeArchived bool) ([]models.SpinItem, error) {
	return s.repo.ListItems(ctx, includeArchived)
}

func (s *ItemsService) Get(ctx context.Context, id string) (models.SpinItem, error) {
	return s.repo.GetItem(ctx, id)
}

// Update replaces the editable fields. An empty Image keeps the stored one.
func (s *ItemsService) Update(ctx context.Context, id string, in ItemInput) (models.SpinItem, error) {
	if err := validate.Item(in.RewardName, in.Probability, in.Unlimited, in.Quantity); err != nil {
		return models.SpinItem{}, err
	}
	cur, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return models.SpinItem{}, err
	}
	cur.RewardName = in.RewardName
	cur.Probability = in.Probability
	cur.Unlimited = in.Unlimited
	cur.Quantity = in.Quantity
	if in.Image != "" {
		cur.Image = in.Image
	}
	return s.repo.UpdateItem(ctx, cur)
}

func (s *ItemsService) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteItem(ctx, id)
}

func (s *ItemsService) Archive(ctx context.Context, id string) error {
	return s.repo.SetItemArchived(ctx, id, true)
}
