// Package validate holds the input checks shared by the API client and the
// server so both sides reject a bad payload the same way, before it reaches
// storage or the wire.
package validate

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrNotUUID = errors.New("not a valid UUIDv4")

// UUID4 reports an error unless s parses as a version 4 UUID.
func UUID4(s string) error {
	id, err := uuid.Parse(s)
	if err != nil {
		return fmt.Errorf("%q: %w", s, ErrNotUUID)
	}
	if id.Version() != 4 {
		return fmt.Errorf("%q: %w", s, ErrNotUUID)
	}
	return nil
}

// Item checks the lucky spin item invariants: a name is required,
// probability lives in [0,100], unlimited items carry quantity 0 and
// limited items carry a positive quantity.
func Item(rewardName string, probability float64, unlimited bool, quantity int64) error {
	if rewardName == "" {
		return errors.New("reward_name is required")
	}
	if probability < 0 || probability > 100 {
		return fmt.Errorf("probability must be between 0 and 100, got %v", probability)
	}
	if unlimited && quantity != 0 {
		return errors.New("quantity must be 0 when unlimited")
	}
	if !unlimited && quantity <= 0 {
		return errors.New("quantity is required and must be positive when not unlimited")
	}
	return nil
}

// ReorderEntry is one row of a bulk sequence reorder batch.
type ReorderEntry struct {
	ItemOrder    int64  `json:"item_order"`
	SequenceUUID string `json:"sequence_uuid"`
}

// Reorder rejects a reorder batch when any order is negative, any two
// entries share an order, or any two entries name the same sequence.
// The whole batch is validated before submission; nothing is delegated
// to the server.
func Reorder(entries []ReorderEntry) error {
	if len(entries) == 0 {
		return errors.New("reorder batch is empty")
	}
	orders := make(map[int64]struct{}, len(entries))
	uuids := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.ItemOrder < 0 {
			return fmt.Errorf("item_order must be non-negative, got %d", e.ItemOrder)
		}
		if err := UUID4(e.SequenceUUID); err != nil {
			return err
		}
		if _, dup := orders[e.ItemOrder]; dup {
			return fmt.Errorf("duplicate item_order %d in batch", e.ItemOrder)
		}
		if _, dup := uuids[e.SequenceUUID]; dup {
			return fmt.Errorf("duplicate sequence uuid %s in batch", e.SequenceUUID)
		}
		orders[e.ItemOrder] = struct{}{}
		uuids[e.SequenceUUID] = struct{}{}
	}
	return nil
}
