package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/KreatechIT/mrs-sub000/internal/server/models"
	"github.com/KreatechIT/mrs-sub000/internal/server/repository"
	shared "github.com/KreatechIT/mrs-sub000/internal/shared/models"
	"github.com/KreatechIT/mrs-sub000/internal/shared/validate"
)

type createSequenceRequest struct {
	ItemUUID string `json:"item_uuid"`
}

type reorderRequest struct {
	Sequences []validate.ReorderEntry `json:"sequences"`
}

func (r *Router) sequenceToWire(req *http.Request, s models.SpinSequence) shared.SpinSequence {
	out := shared.SpinSequence{
		ID:        s.ID,
		UUID:      s.UUID,
		ItemOrder: s.ItemOrder,
		ItemUUID:  s.ItemUUID,
	}
	if it, err := r.services.Items.Get(req.Context(), s.ItemUUID); err == nil {
		out.ItemName = it.RewardName
	}
	return out
}

func (r *Router) handleListSequences(w http.ResponseWriter, req *http.Request) {
	seqs, err := r.services.Sequences.List(req.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sequences")
		return
	}
	out := make([]shared.SpinSequence, 0, len(seqs))
	for _, s := range seqs {
		out = append(out, r.sequenceToWire(req, s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (r *Router) handleCreateSequence(w http.ResponseWriter, req *http.Request) {
	var body createSequenceRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	seq, err := r.services.Sequences.Create(req.Context(), body.ItemUUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, r.sequenceToWire(req, seq))
}

func (r *Router) handleDeleteSequence(w http.ResponseWriter, req *http.Request) {
	if err := r.services.Sequences.Delete(req.Context(), chi.URLParam(req, "uuid")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "sequence not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete sequence")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func (r *Router) handleReorderSequences(w http.ResponseWriter, req *http.Request) {
	var body reorderRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := r.services.Sequences.Reorder(req.Context(), body.Sequences); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "reordered"})
}
