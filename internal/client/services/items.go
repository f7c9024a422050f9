package services

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/KreatechIT/mrs-sub000/internal/client/api"
	"github.com/KreatechIT/mrs-sub000/internal/shared/models"
	"github.com/KreatechIT/mrs-sub000/internal/shared/validate"
)

// ItemsService manages the lucky spin item catalog.
type ItemsService struct {
	client *api.Client
	log    *zap.Logger
}

func NewItemsService(client *api.Client, log *zap.Logger) *ItemsService {
	return &ItemsService{client: client, log: log}
}

// ItemInput is the create/update payload. Image is optional; when present it
// is submitted as the multipart "image" field.
type ItemInput struct {
	RewardName  string
	Probability float64
	Unlimited   bool
	Quantity    int64
	Image       []byte
	ImageName   string
}

// itemWire tolerates the looser field types the API has been seen emitting.
type itemWire struct {
	ID          looseNumber `json:"id"`
	UUID        string      `json:"uuid"`
	RewardName  looseString `json:"reward_name"`
	Probability looseNumber `json:"probability"`
	Unlimited   bool        `json:"unlimited"`
	Quantity    looseNumber `json:"quantity"`
	Image       string      `json:"image"`
	Archived    bool        `json:"archived"`
}

func (w itemWire) normalize() (models.LuckySpinItem, error) {
	if w.UUID == "" || w.RewardName == "" {
		return models.LuckySpinItem{}, validationErr("item response missing uuid or reward_name")
	}
	return models.LuckySpinItem{
		ID:          int64(w.ID),
		UUID:        w.UUID,
		RewardName:  string(w.RewardName),
		Probability: float64(w.Probability),
		Unlimited:   w.Unlimited,
		Quantity:    int64(w.Quantity),
		Image:       w.Image,
		Archived:    w.Archived,
	}, nil
}

func (s *ItemsService) List(ctx context.Context) ([]models.LuckySpinItem, error) {
	resp, err := s.client.Get(ctx, api.EndpointItems)
	if err != nil {
		return nil, apiErr(err, "failed to load spin items")
	}
	wires, err := decodeList[itemWire](resp.Data)
	if err != nil {
		return nil, err
	}
	out := make([]models.LuckySpinItem, 0, len(wires))
	for _, w := range wires {
		item, err := w.normalize()
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *ItemsService) Get(ctx context.Context, uuid string) (models.LuckySpinItem, error) {
	if err := validate.UUID4(uuid); err != nil {
		return models.LuckySpinItem{}, validationErr("invalid item uuid: %v", err)
	}
	resp, err := s.client.Get(ctx, api.EndpointItemDetail(uuid))
	if err != nil {
		return models.LuckySpinItem{}, apiErr(err, "failed to load spin item")
	}
	w, err := decodeObject[itemWire](resp.Data)
	if err != nil {
		return models.LuckySpinItem{}, err
	}
	return w.normalize()
}

// Create validates the item invariants locally, then submits a multipart
// form with the optional image.
func (s *ItemsService) Create(ctx context.Context, in ItemInput) (models.LuckySpinItem, error) {
	in.RewardName = strings.TrimSpace(in.RewardName)
	if err := validate.Item(in.RewardName, in.Probability, in.Unlimited, in.Quantity); err != nil {
		return models.LuckySpinItem{}, &ValidationError{msg: err.Error()}
	}
	resp, err := s.client.UploadFile(ctx, http.MethodPost, api.EndpointItems,
		itemFields(in), "image", in.ImageName, in.Image)
	if err != nil {
		return models.LuckySpinItem{}, apiErr(err, "failed to create spin item")
	}
	w, err := decodeObject[itemWire](resp.Data)
	if err != nil {
		return models.LuckySpinItem{}, err
	}
	return w.normalize()
}

func (s *ItemsService) Update(ctx context.Context, uuid string, in ItemInput) (models.LuckySpinItem, error) {
	if err := validate.UUID4(uuid); err != nil {
		return models.LuckySpinItem{}, validationErr("invalid item uuid: %v", err)
	}
	in.RewardName = strings.TrimSpace(in.RewardName)
	if err := validate.Item(in.RewardName, in.Probability, in.Unlimited, in.Quantity); err != nil {
		return models.LuckySpinItem{}, &ValidationError{msg: err.Error()}
	}
	resp, err := s.client.UploadFile(ctx, http.MethodPut, api.EndpointItemDetail(uuid),
		itemFields(in), "image", in.ImageName, in.Image)
	if err != nil {
		return models.LuckySpinItem{}, apiErr(err, "failed to update spin item")
	}
	w, err := decodeObject[itemWire](resp.Data)
	if err != nil {
		return models.LuckySpinItem{}, err
	}
	return w.normalize()
}

func (s *ItemsService) Delete(ctx context.Context, uuid string) error {
	if err := validate.UUID4(uuid); err != nil {
		return validationErr("invalid item uuid: %v", err)
	}
	if _, err := s.client.Delete(ctx, api.EndpointItemDetail(uuid)); err != nil {
		return apiErr(err, "failed to delete spin item")
	}
	return nil
}

// Archive retires an item from the wheel without deleting its history.
func (s *ItemsService) Archive(ctx context.Context, uuid string) error {
	if err := validate.UUID4(uuid); err != nil {
		return validationErr("invalid item uuid: %v", err)
	}
	if _, err := s.client.Patch(ctx, api.EndpointItemArchive(uuid), nil); err != nil {
		return apiErr(err, "failed to archive spin item")
	}
	return nil
}

func itemFields(in ItemInput) map[string]string {
	return map[string]string{
		"reward_name": in.RewardName,
		"probability": strconv.FormatFloat(in.Probability, 'f', -1, 64),
		"unlimited":   strconv.FormatBool(in.Unlimited),
		"quantity":    strconv.FormatInt(in.Quantity, 10),
	}
}
