package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/izposoja/internal/imaging"
	"github.com/erazemk/izposoja/internal/lending"
	"github.com/erazemk/izposoja/internal/model"
)

// ItemsHandler handles catalog endpoints.
type ItemsHandler struct {
	Lending *lending.Service
}

type itemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	TotalStock  int    `json:"totalStock"`
}

// List handles GET /api/items. With ?available=true only items that can be
// borrowed right now are returned.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Lending.ListCatalog(r.Context())
	if err != nil {
		serviceError(w, err, "list items")
		return
	}

	if onlyAvailable, _ := strconv.ParseBool(r.URL.Query().Get("available")); onlyAvailable {
		filtered := items[:0]
		for _, item := range items {
			if item.AvailableStock > 0 {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.Lending.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		serviceError(w, err, "get item")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Lending.CreateItem(r.Context(), req.Name, req.Description, req.TotalStock)
	if err != nil {
		serviceError(w, err, "create item")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item created", "user", claims.Username, "item", item.Name, "stock", item.TotalStock)
	jsonResponse(w, http.StatusCreated, item)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Lending.UpdateItem(r.Context(), r.PathValue("id"), req.Name, req.Description, req.TotalStock)
	if err != nil {
		serviceError(w, err, "update item")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item updated", "user", claims.Username, "item", item.Name, "stock", item.TotalStock)
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Lending.DeleteItem(r.Context(), id); err != nil {
		serviceError(w, err, "delete item")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item deleted", "user", claims.Username, "item_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UploadPhoto handles PUT /api/items/{id}/photo. The photo is sent as the
// "photo" field of a multipart form.
func (h *ItemsHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "photo file required")
		return
	}
	defer file.Close()

	photo, err := imaging.NormalizePhoto(file)
	switch {
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		jsonError(w, http.StatusBadRequest, "photo must be JPEG or PNG")
		return
	case errors.Is(err, imaging.ErrTooLarge):
		jsonError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case err != nil:
		jsonError(w, http.StatusBadRequest, "could not read photo")
		return
	}

	if err := h.Lending.SetItemPhoto(r.Context(), r.PathValue("id"), photo.Data, photo.MIME); err != nil {
		serviceError(w, err, "save photo")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"message": "photo uploaded",
		"width":   photo.Width,
		"height":  photo.Height,
	})
}

// GetPhoto handles GET /api/items/{id}/photo.
func (h *ItemsHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	data, mime, err := h.Lending.ItemPhoto(r.Context(), r.PathValue("id"))
	if err != nil {
		serviceError(w, err, "get photo")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no photo")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}
