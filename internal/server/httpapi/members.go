package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/KreatechIT/mrs-sub000/internal/server/models"
	"github.com/KreatechIT/mrs-sub000/internal/server/repository"
	"github.com/KreatechIT/mrs-sub000/internal/server/service"
	shared "github.com/KreatechIT/mrs-sub000/internal/shared/models"
)

func memberToWire(m models.Member) shared.Member {
	return shared.Member{
		ID:            m.ID,
		UUID:          m.UUID,
		Username:      m.Username,
		Tier:          m.Tier,
		CurrentPoints: m.CurrentPoints,
		LoginCode:     m.LoginCode,
	}
}

func spinToWire(it models.SpinItem) shared.SpinResult {
	return shared.SpinResult{UUID: it.UUID, RewardName: it.RewardName, Image: it.Image}
}

func (r *Router) handleListMembers(w http.ResponseWriter, req *http.Request) {
	members, err := r.services.Members.List(req.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	out := make([]shared.Member, 0, len(members))
	for _, m := range members {
		out = append(out, memberToWire(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (r *Router) handleGetMember(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "uuid")
	if !r.allowMemberAccess(w, req, id) {
		return
	}
	m, err := r.services.Members.Get(req.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "member not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load member")
		return
	}
	writeJSON(w, http.StatusOK, memberToWire(m))
}

func (r *Router) handleOneSpin(w http.ResponseWriter, req *http.Request) {
	results, ok := r.runSpin(w, req, 1)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, results[0])
}

func (r *Router) handleTenSpin(w http.ResponseWriter, req *http.Request) {
	results, ok := r.runSpin(w, req, 10)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": results})
}

func (r *Router) runSpin(w http.ResponseWriter, req *http.Request, count int) ([]shared.SpinResult, bool) {
	id := chi.URLParam(req, "uuid")
	if !r.allowMemberAccess(w, req, id) {
		return nil, false
	}
	items, err := r.services.Members.Spin(req.Context(), id, count)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "member not found")
		case errors.Is(err, service.ErrNothingToWin):
			writeError(w, http.StatusConflict, "no eligible spin items")
		default:
			writeError(w, http.StatusInternalServerError, "spin failed")
		}
		return nil, false
	}
	out := make([]shared.SpinResult, 0, len(items))
	for _, it := range items {
		out = append(out, spinToWire(it))
	}
	return out, true
}

func (r *Router) handleSpinHistory(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "uuid")
	if !r.allowMemberAccess(w, req, id) {
		return
	}
	recs, err := r.services.Members.History(req.Context(), id, 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	out := make([]shared.SpinResult, 0, len(recs))
	for _, rec := range recs {
		out = append(out, shared.SpinResult{UUID: rec.ItemUUID, RewardName: rec.RewardName})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

// allowMemberAccess lets admins through unconditionally and members through
// only for their own uuid.
func (r *Router) allowMemberAccess(w http.ResponseWriter, req *http.Request, memberUUID string) bool {
	ident := getIdentity(req.Context())
	if ident.Role == service.RoleAdmin {
		return true
	}
	if ident.Role == service.RoleMember && ident.SubjectUUID == memberUUID {
		return true
	}
	writeError(w, http.StatusForbidden, "access denied")
	return false
}
