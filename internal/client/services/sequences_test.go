package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/KreatechIT/mrs-sub000/internal/shared/logger"
	"github.com/KreatechIT/mrs-sub000/internal/shared/validate"
)

func TestBulkReorderValidation(t *testing.T) {
	client, calls := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called")
	}))
	svc := NewSequencesService(client, logger.Nop())

	a, b := uuid.NewString(), uuid.NewString()
	tests := []struct {
		name    string
		entries []validate.ReorderEntry
	}{
		{"empty batch", nil},
		{"duplicate order", []validate.ReorderEntry{
			{ItemOrder: 1, SequenceUUID: a},
			{ItemOrder: 1, SequenceUUID: b},
		}},
		{"duplicate uuid", []validate.ReorderEntry{
			{ItemOrder: 1, SequenceUUID: a},
			{ItemOrder: 2, SequenceUUID: a},
		}},
		{"negative order", []validate.ReorderEntry{
			{ItemOrder: -1, SequenceUUID: a},
		}},
		{"bad uuid", []validate.ReorderEntry{
			{ItemOrder: 1, SequenceUUID: "nope"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.BulkReorder(context.Background(), tt.entries)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("want ValidationError, got %v", err)
			}
		})
	}
	if calls.Load() != 0 {
		t.Error("local validation made network calls")
	}
}

func TestBulkReorderSubmitsBatch(t *testing.T) {
	a, b := uuid.NewString(), uuid.NewString()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lucky-spin/lucky-spin-sequences/change-spin-sequences/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body struct {
			Sequences []validate.ReorderEntry `json:"sequences"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if len(body.Sequences) != 2 || body.Sequences[0].SequenceUUID != a {
			t.Errorf("got %+v", body.Sequences)
		}
		writeJSON(t, w, http.StatusOK, map[string]string{"message": "ok"})
	}))
	svc := NewSequencesService(client, logger.Nop())

	err := svc.BulkReorder(context.Background(), []validate.ReorderEntry{
		{ItemOrder: 0, SequenceUUID: a},
		{ItemOrder: 1, SequenceUUID: b},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSequencesListNormalizes(t *testing.T) {
	seqUUID, itemUUID := uuid.NewString(), uuid.NewString()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, []map[string]any{{
			"id":         "3",
			"uuid":       seqUUID,
			"item_order": "2",
			"item_uuid":  itemUUID,
			"item_name":  " Free Spin ",
		}})
	}))
	svc := NewSequencesService(client, logger.Nop())

	seqs, err := svc.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(seqs) != 1 {
		t.Fatalf("got %d sequences", len(seqs))
	}
	s := seqs[0]
	if s.ID != 3 || s.ItemOrder != 2 || s.ItemName != "Free Spin" || s.ItemUUID != itemUUID {
		t.Errorf("normalization failed: %+v", s)
	}
}

func TestSequenceCreateRejectsBadItemUUID(t *testing.T) {
	client, calls := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called")
	}))
	svc := NewSequencesService(client, logger.Nop())

	if _, err := svc.Create(context.Background(), "not-a-uuid"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 0 {
		t.Error("uuid validation made network calls")
	}
}
