package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/KreatechIT/mrs-sub000/internal/client/api"
	"github.com/KreatechIT/mrs-sub000/internal/shared/models"
	"github.com/KreatechIT/mrs-sub000/internal/shared/validate"
)

// SequencesService manages wheel ordering.
type SequencesService struct {
	client *api.Client
	log    *zap.Logger
}

func NewSequencesService(client *api.Client, log *zap.Logger) *SequencesService {
	return &SequencesService{client: client, log: log}
}

type sequenceWire struct {
	ID        looseNumber `json:"id"`
	UUID      string      `json:"uuid"`
	ItemOrder looseNumber `json:"item_order"`
	ItemUUID  string      `json:"item_uuid"`
	ItemName  looseString `json:"item_name"`
}

func (w sequenceWire) normalize() (models.SpinSequence, error) {
	if w.UUID == "" || w.ItemUUID == "" {
		return models.SpinSequence{}, validationErr("sequence response missing uuid")
	}
	return models.SpinSequence{
		ID:        int64(w.ID),
		UUID:      w.UUID,
		ItemOrder: int64(w.ItemOrder),
		ItemUUID:  w.ItemUUID,
		ItemName:  string(w.ItemName),
	}, nil
}

func (s *SequencesService) List(ctx context.Context) ([]models.SpinSequence, error) {
	resp, err := s.client.Get(ctx, api.EndpointSequences)
	if err != nil {
		return nil, apiErr(err, "failed to load spin sequences")
	}
	wires, err := decodeList[sequenceWire](resp.Data)
	if err != nil {
		return nil, err
	}
	out := make([]models.SpinSequence, 0, len(wires))
	for _, w := range wires {
		seq, err := w.normalize()
		if err != nil {
			return nil, err
		}
		out = append(out, seq)
	}
	return out, nil
}

// Create appends an item to the end of the wheel.
func (s *SequencesService) Create(ctx context.Context, itemUUID string) (models.SpinSequence, error) {
	if err := validate.UUID4(itemUUID); err != nil {
		return models.SpinSequence{}, validationErr("invalid item uuid: %v", err)
	}
	resp, err := s.client.Post(ctx, api.EndpointSequences, map[string]string{"item_uuid": itemUUID})
	if err != nil {
		return models.SpinSequence{}, apiErr(err, "failed to create spin sequence")
	}
	w, err := decodeObject[sequenceWire](resp.Data)
	if err != nil {
		return models.SpinSequence{}, err
	}
	return w.normalize()
}

func (s *SequencesService) Delete(ctx context.Context, uuid string) error {
	if err := validate.UUID4(uuid); err != nil {
		return validationErr("invalid sequence uuid: %v", err)
	}
	if _, err := s.client.Delete(ctx, api.EndpointSequenceDetail(uuid)); err != nil {
		return apiErr(err, "failed to delete spin sequence")
	}
	return nil
}

// BulkReorder replaces the wheel ordering in one shot. A batch with a
// duplicate order or sequence uuid is rejected locally without a request.
func (s *SequencesService) BulkReorder(ctx context.Context, entries []validate.ReorderEntry) error {
	if err := validate.Reorder(entries); err != nil {
		return &ValidationError{msg: err.Error()}
	}
	body := map[string]any{"sequences": entries}
	if _, err := s.client.Post(ctx, api.EndpointReorderSequences, body); err != nil {
		return apiErr(err, "failed to reorder spin sequences")
	}
	return nil
}
