package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/leca/dt-image-store/internal/api"
	"github.com/leca/dt-image-store/internal/imageproc"
	"github.com/leca/dt-image-store/internal/model"
	"github.com/leca/dt-image-store/internal/storage"
)

// createPresetRequest is the JSON body for creating a preset.
type createPresetRequest struct {
	Name    string              `json:"name"`
	Options model.PresetOptions `json:"options"`
}

// updatePresetRequest is the JSON body for updating a preset. Zero fields
// keep their current value.
type updatePresetRequest struct {
	Options *model.PresetOptions `json:"options,omitempty"`
}

// presetEditor builds the editor a preset describes and checks its quality.
func presetEditor(o model.PresetOptions) (imageproc.Editor, error) {
	if o.Quality < 0 || o.Quality > 100 {
		return nil, fmt.Errorf("%w: quality %d outside 1..100", storage.ErrInvalidArgument, o.Quality)
	}
	return imageproc.EditorFor(o.Fit, o.Width, o.Height, o.Background)
}

// CreatePreset handles POST /v1/presets.
func (h *Handler) CreatePreset(w http.ResponseWriter, r *http.Request) {
	var req createPresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.BadRequest(w, "invalid JSON body")
		return
	}

	// The preset name becomes the size tag in file names.
	name, err := storage.ValidateSizeTag(req.Name)
	if err != nil {
		api.BadRequest(w, "invalid preset name: "+err.Error())
		return
	}
	if _, err := presetEditor(req.Options); err != nil {
		api.BadRequest(w, err.Error())
		return
	}

	count, err := h.DB.CountPresets()
	if err != nil {
		h.writeStoreError(w, "count presets", err)
		return
	}
	if h.Config.MaxPresets > 0 && count >= h.Config.MaxPresets {
		api.BadRequest(w, "maximum number of presets reached")
		return
	}

	preset := &model.SizePreset{Name: name, Options: req.Options}
	if err := h.DB.CreatePreset(preset); err != nil {
		h.writeStoreError(w, "create preset", err)
		return
	}

	api.WriteJSON(w, http.StatusOK, api.SuccessResponse(preset))
}

// ListPresets handles GET /v1/presets.
func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := h.DB.ListPresets()
	if err != nil {
		h.writeStoreError(w, "list presets", err)
		return
	}

	// Keyed by name, like the size URLs of an image.
	byName := make(map[string]*model.SizePreset, len(presets))
	for _, p := range presets {
		byName[p.Name] = p
	}
	api.WriteJSON(w, http.StatusOK, api.SuccessResponse(map[string]any{"presets": byName}))
}

// GetPreset handles GET /v1/presets/{name}.
func (h *Handler) GetPreset(w http.ResponseWriter, r *http.Request) {
	preset, err := h.DB.GetPreset(chi.URLParam(r, "name"))
	if err != nil {
		h.writeStoreError(w, "get preset", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.SuccessResponse(preset))
}

// UpdatePreset handles PATCH /v1/presets/{name}. Sizes already derived with
// the old options are left as they are.
func (h *Handler) UpdatePreset(w http.ResponseWriter, r *http.Request) {
	existing, err := h.DB.GetPreset(chi.URLParam(r, "name"))
	if err != nil {
		h.writeStoreError(w, "get preset", err)
		return
	}

	var req updatePresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.BadRequest(w, "invalid JSON body")
		return
	}

	if o := req.Options; o != nil {
		if o.Fit != "" {
			existing.Options.Fit = o.Fit
		}
		if o.Width != 0 {
			existing.Options.Width = o.Width
		}
		if o.Height != 0 {
			existing.Options.Height = o.Height
		}
		if o.Background != "" {
			existing.Options.Background = o.Background
		}
		if o.Quality != 0 {
			existing.Options.Quality = o.Quality
		}
	}
	if _, err := presetEditor(existing.Options); err != nil {
		api.BadRequest(w, err.Error())
		return
	}

	if err := h.DB.UpdatePreset(existing); err != nil {
		h.writeStoreError(w, "update preset", err)
		return
	}

	api.WriteJSON(w, http.StatusOK, api.SuccessResponse(existing))
}

// DeletePreset handles DELETE /v1/presets/{name}.
func (h *Handler) DeletePreset(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.DeletePreset(chi.URLParam(r, "name")); err != nil {
		h.writeStoreError(w, "delete preset", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.SuccessResponse(struct{}{}))
}
