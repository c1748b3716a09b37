package handler

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/leca/dt-image-store/internal/model"
	"github.com/leca/dt-image-store/internal/storage"
)

// DeliverImage handles GET /cdn/{key} and GET /cdn/{key}/{size} -- streams a
// stored primary or size. Stored files never change once written, so
// responses are cacheable forever.
func (h *Handler) DeliverImage(w http.ResponseWriter, r *http.Request) {
	key, err := model.ParseImageKey(chi.URLParam(r, "key"))
	if err != nil {
		http.Error(w, "invalid image key", http.StatusBadRequest)
		return
	}
	size := chi.URLParam(r, "size")

	rc, err := h.Store.Open(key, size)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			http.Error(w, "image not found", http.StatusNotFound)
		case errors.Is(err, storage.ErrInvalidArgument):
			http.Error(w, "invalid size", http.StatusBadRequest)
		default:
			h.logger().Error("DeliverImage: open failed", "key", key.String(), "size", size, "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", formatToContentType(key.Format))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if st, ok := rc.(interface{ Stat() (fs.FileInfo, error) }); ok {
		if fi, err := st.Stat(); err == nil {
			w.Header().Set("Content-Length", strconv.FormatInt(fi.Size(), 10))
		}
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		h.logger().Warn("DeliverImage: failed to write response", "key", key.String(), "error", err)
	}
}

// formatToContentType maps a stored format to its MIME type.
func formatToContentType(f model.Format) string {
	switch f {
	case model.FormatJPEG:
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
