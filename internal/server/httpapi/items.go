package httpapi

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	"github.com/KreatechIT/mrs-sub000/internal/server/models"
	"github.com/KreatechIT/mrs-sub000/internal/server/repository"
	"github.com/KreatechIT/mrs-sub000/internal/server/service"
	shared "github.com/KreatechIT/mrs-sub000/internal/shared/models"
)

const maxItemFormBytes = 10 << 20

func itemToWire(it models.SpinItem) shared.LuckySpinItem {
	return shared.LuckySpinItem{
		ID:          it.ID,
		UUID:        it.UUID,
		RewardName:  it.RewardName,
		Probability: it.Probability,
		Unlimited:   it.Unlimited,
		Quantity:    it.Quantity,
		Image:       it.Image,
		Archived:    it.Archived,
	}
}

func (r *Router) handleListItems(w http.ResponseWriter, req *http.Request) {
	includeArchived := req.URL.Query().Get("include_archived") == "true"
	items, err := r.services.Items.List(req.Context(), includeArchived)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	out := make([]shared.LuckySpinItem, 0, len(items))
	for _, it := range items {
		out = append(out, itemToWire(it))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (r *Router) handleGetItem(w http.ResponseWriter, req *http.Request) {
	it, err := r.services.Items.Get(req.Context(), chi.URLParam(req, "uuid"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load item")
		return
	}
	writeJSON(w, http.StatusOK, itemToWire(it))
}

func (r *Router) handleCreateItem(w http.ResponseWriter, req *http.Request) {
	in, ok := r.parseItemForm(w, req)
	if !ok {
		return
	}
	it, err := r.services.Items.Create(req.Context(), in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, itemToWire(it))
}

func (r *Router) handleUpdateItem(w http.ResponseWriter, req *http.Request) {
	in, ok := r.parseItemForm(w, req)
	if !ok {
		return
	}
	it, err := r.services.Items.Update(req.Context(), chi.URLParam(req, "uuid"), in)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, itemToWire(it))
}

func (r *Router) handleDeleteItem(w http.ResponseWriter, req *http.Request) {
	if err := r.services.Items.Delete(req.Context(), chi.URLParam(req, "uuid")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func (r *Router) handleArchiveItem(w http.ResponseWriter, req *http.Request) {
	if err := r.services.Items.Archive(req.Context(), chi.URLParam(req, "uuid")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to archive item")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "archived"})
}

// parseItemForm reads the multipart item payload and stores the optional
// image under the media dir. It writes the error response itself.
func (r *Router) parseItemForm(w http.ResponseWriter, req *http.Request) (service.ItemInput, bool) {
	if err := req.ParseMultipartForm(maxItemFormBytes); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form")
		return service.ItemInput{}, false
	}
	probability, err := strconv.ParseFloat(req.FormValue("probability"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "probability must be a number")
		return service.ItemInput{}, false
	}
	var quantity int64
	if v := req.FormValue("quantity"); v != "" {
		quantity, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "quantity must be an integer")
			return service.ItemInput{}, false
		}
	}
	in := service.ItemInput{
		RewardName:  req.FormValue("reward_name"),
		Probability: probability,
		Unlimited:   req.FormValue("unlimited") == "true",
		Quantity:    quantity,
	}

	file, hdr, err := req.FormFile("image")
	if err == nil {
		defer file.Close()
		path, serr := r.saveImage(file, hdr.Filename)
		if serr != nil {
			r.log.Error("saving uploaded image failed", zap.Error(serr))
			writeError(w, http.StatusInternalServerError, "failed to store image")
			return service.ItemInput{}, false
		}
		in.Image = path
	}
	return in, true
}

func (r *Router) saveImage(file io.Reader, origName string) (string, error) {
	if err := os.MkdirAll(r.mediaDir, 0o755); err != nil {
		return "", err
	}
	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	name := id + filepath.Ext(origName)
	dst, err := os.Create(filepath.Join(r.mediaDir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		return "", err
	}
	return "/media/" + name, nil
}
