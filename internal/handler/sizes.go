package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/leca/dt-image-store/internal/api"
	"github.com/leca/dt-image-store/internal/model"
	"github.com/leca/dt-image-store/internal/storage"
)

// AddSize handles POST /v1/images/{key}/sizes/{preset} -- derives the size
// named after the preset from the stored primary.
func (h *Handler) AddSize(w http.ResponseWriter, r *http.Request) {
	key, ok := keyParam(w, r)
	if !ok {
		return
	}

	preset, err := h.DB.GetPreset(chi.URLParam(r, "preset"))
	if err != nil {
		h.writeStoreError(w, "get preset", err)
		return
	}
	editor, err := presetEditor(preset.Options)
	if err != nil {
		h.writeStoreError(w, "build editor", err)
		return
	}

	if _, err := h.DB.GetImage(key.ID); err != nil {
		h.writeStoreError(w, "get image", err)
		return
	}

	sized, err := h.Store.AddSize(key, preset.Name, storage.AddOptions{
		Editor:  editor,
		Quality: preset.Options.Quality,
	})
	if err != nil {
		h.writeStoreError(w, "store size", err)
		return
	}

	info, err := h.Store.Describe(sized, preset.Name)
	if err != nil {
		h.writeStoreError(w, "describe size", err)
		return
	}

	size := &model.Size{
		Name:     preset.Name,
		Width:    info.Width,
		Height:   info.Height,
		FileSize: info.Size,
		Created:  time.Now().UTC(),
	}
	if err := h.DB.PutSize(key.ID, size); err != nil {
		h.writeStoreError(w, "record size", err)
		return
	}

	api.WriteJSON(w, http.StatusOK, api.SuccessResponse(map[string]any{
		"size": size,
		"url":  h.deliveryURL(sized, preset.Name),
	}))
}
