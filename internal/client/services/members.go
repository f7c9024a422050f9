package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/KreatechIT/mrs-sub000/internal/client/api"
	"github.com/KreatechIT/mrs-sub000/internal/shared/models"
	"github.com/KreatechIT/mrs-sub000/internal/shared/validate"
)

// MembersService lists members and runs spins on their behalf. Spin results
// are kept in memory only.
type MembersService struct {
	client *api.Client
	log    *zap.Logger

	mu      sync.Mutex
	history []models.SpinResult
}

func NewMembersService(client *api.Client, log *zap.Logger) *MembersService {
	return &MembersService{client: client, log: log}
}

type memberWire struct {
	ID            looseNumber `json:"id"`
	UUID          string      `json:"uuid"`
	Username      looseString `json:"username"`
	Tier          looseString `json:"tier"`
	CurrentPoints looseNumber `json:"current_points"`
	LoginCode     looseString `json:"login_code"`
}

func (w memberWire) normalize() (models.Member, error) {
	if w.UUID == "" {
		return models.Member{}, validationErr("member response missing uuid")
	}
	return models.Member{
		ID:            int64(w.ID),
		UUID:          w.UUID,
		Username:      string(w.Username),
		Tier:          string(w.Tier),
		CurrentPoints: int64(w.CurrentPoints),
		LoginCode:     string(w.LoginCode),
	}, nil
}

func (s *MembersService) List(ctx context.Context) ([]models.Member, error) {
	resp, err := s.client.Get(ctx, api.EndpointMembers)
	if err != nil {
		return nil, apiErr(err, "failed to load members")
	}
	wires, err := decodeList[memberWire](resp.Data)
	if err != nil {
		return nil, err
	}
	out := make([]models.Member, 0, len(wires))
	for _, w := range wires {
		m, err := w.normalize()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *MembersService) Get(ctx context.Context, uuid string) (models.Member, error) {
	if err := validate.UUID4(uuid); err != nil {
		return models.Member{}, validationErr("invalid member uuid: %v", err)
	}
	resp, err := s.client.Get(ctx, api.EndpointMemberDetail(uuid))
	if err != nil {
		return models.Member{}, apiErr(err, "failed to load member")
	}
	w, err := decodeObject[memberWire](resp.Data)
	if err != nil {
		return models.Member{}, err
	}
	return w.normalize()
}

// OneSpin runs a single draw for the member.
func (s *MembersService) OneSpin(ctx context.Context, memberUUID string) (models.SpinResult, error) {
	if err := validate.UUID4(memberUUID); err != nil {
		return models.SpinResult{}, validationErr("invalid member uuid: %v", err)
	}
	resp, err := s.client.Post(ctx, api.EndpointOneSpin(memberUUID), nil)
	if err != nil {
		return models.SpinResult{}, apiErr(err, "spin failed")
	}
	result, err := decodeObject[models.SpinResult](resp.Data)
	if err != nil {
		return models.SpinResult{}, err
	}
	if result.RewardName == "" {
		return models.SpinResult{}, validationErr("spin response missing reward")
	}
	s.remember(result)
	return result, nil
}

// TenSpin runs ten draws in one request.
func (s *MembersService) TenSpin(ctx context.Context, memberUUID string) ([]models.SpinResult, error) {
	if err := validate.UUID4(memberUUID); err != nil {
		return nil, validationErr("invalid member uuid: %v", err)
	}
	resp, err := s.client.Post(ctx, api.EndpointTenSpin(memberUUID), nil)
	if err != nil {
		return nil, apiErr(err, "spin failed")
	}
	results, err := decodeList[models.SpinResult](resp.Data)
	if err != nil {
		return nil, err
	}
	s.remember(results...)
	return results, nil
}

// History returns the spins seen during this session, newest last.
func (s *MembersService) History() []models.SpinResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SpinResult(nil), s.history...)
}

func (s *MembersService) remember(results ...models.SpinResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, results...)
}
