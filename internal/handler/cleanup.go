package handler

import (
	"net/http"

	"github.com/leca/dt-image-store/internal/api"
)

// GetCleanup handles GET /v1/cleanup.
func (h *Handler) GetCleanup(w http.ResponseWriter, r *http.Request) {
	pending, err := h.Store.NeedsCleaning()
	if err != nil {
		h.writeStoreError(w, "check cleanup", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.SuccessResponse(map[string]bool{"pending": pending}))
}

// RunCleanup handles POST /v1/cleanup -- runs one sweep bound to the request.
// A sweep already running elsewhere is reported as 409.
func (h *Handler) RunCleanup(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Clean(r.Context()); err != nil {
		h.writeStoreError(w, "cleanup", err)
		return
	}
	pending, err := h.Store.NeedsCleaning()
	if err != nil {
		h.writeStoreError(w, "check cleanup", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.SuccessResponse(map[string]bool{"pending": pending}))
}
