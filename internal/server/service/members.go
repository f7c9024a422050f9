package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/KreatechIT/mrs-sub000/internal/server/models"
	"github.com/KreatechIT/mrs-sub000/internal/server/repository"
)

// ErrNothingToWin means no eligible item is on the wheel: every sequenced
// item is archived, out of stock, or the wheel is empty.
var ErrNothingToWin = errors.New("no eligible spin items")

// MembersService lists members and runs the weighted draw.
type MembersService struct {
	repo Repository
	log  *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func (s *MembersService) List(ctx context.Context) ([]models.Member, error) {
	return s.repo.ListMembers(ctx)
}

func (s *MembersService) Get(ctx context.Context, id string) (models.Member, error) {
	return s.repo.GetMemberByUUID(ctx, id)
}

func (s *MembersService) History(ctx context.Context, memberUUID string, limit int) ([]models.SpinRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.repo.ListSpinHistory(ctx, memberUUID, limit)
}

// Spin draws count rewards for the member. Each draw is independent: the
// stock decrement of one draw can make an item ineligible for the next.
func (s *MembersService) Spin(ctx context.Context, memberUUID string, count int) ([]models.SpinItem, error) {
	member, err := s.repo.GetMemberByUUID(ctx, memberUUID)
	if err != nil {
		return nil, err
	}

	results := make([]models.SpinItem, 0, count)
	for i := 0; i < count; i++ {
		item, err := s.drawOne(ctx)
		if err != nil {
			if len(results) > 0 && errors.Is(err, ErrNothingToWin) {
				// Stock ran dry mid-batch; return what was won.
				break
			}
			return nil, err
		}
		if err := s.repo.RecordSpin(ctx, models.SpinRecord{
			MemberUUID: member.UUID,
			ItemUUID:   item.UUID,
			RewardName: item.RewardName,
		}); err != nil {
			s.log.Error("recording spin failed",
				zap.String("member", member.UUID),
				zap.String("item", item.UUID),
				zap.Error(err))
		}
		results = append(results, item)
	}
	return results, nil
}

// drawOne picks an item with probability proportional to its weight among
// the currently eligible wheel entries, then takes its stock. A losing race
// on the last unit retries the draw against the remaining items.
func (s *MembersService) drawOne(ctx context.Context) (models.SpinItem, error) {
	for {
		eligible, err := s.eligibleItems(ctx)
		if err != nil {
			return models.SpinItem{}, err
		}
		if len(eligible) == 0 {
			return models.SpinItem{}, ErrNothingToWin
		}

		item := eligible[s.weightedIndex(eligible)]
		if item.Unlimited {
			return item, nil
		}
		err = s.repo.DecrementQuantity(ctx, item.UUID)
		if err == nil {
			item.Quantity--
			return item, nil
		}
		if !errors.Is(err, repository.ErrOutOfStock) {
			return models.SpinItem{}, err
		}
	}
}

// eligibleItems returns the sequenced, unarchived items with stock, in wheel
// order.
func (s *MembersService) eligibleItems(ctx context.Context) ([]models.SpinItem, error) {
	seqs, err := s.repo.ListSequences(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.SpinItem
	for _, seq := range seqs {
		item, err := s.repo.GetItem(ctx, seq.ItemUUID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if item.Archived {
			continue
		}
		if !item.Unlimited && item.Quantity <= 0 {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *MembersService) weightedIndex(items []models.SpinItem) int {
	var total float64
	for _, it := range items {
		total += it.Probability
	}
	if total <= 0 {
		return s.randIntn(len(items))
	}
	roll := s.randFloat() * total
	for i, it := range items {
		roll -= it.Probability
		if roll < 0 {
			return i
		}
	}
	return len(items) - 1
}

func (s *MembersService) randFloat() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureRNG()
	return s.rng.Float64()
}

func (s *MembersService) randIntn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureRNG()
	return s.rng.Intn(n)
}

// ensureRNG must be called with the mutex held.
func (s *MembersService) ensureRNG() {
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
}

// SeedRNG pins the draw sequence; used by tests.
func (s *MembersService) SeedRNG(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = rand.New(rand.NewSource(seed))
}
