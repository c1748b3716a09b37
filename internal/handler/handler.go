package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/leca/dt-image-store/internal/api"
	"github.com/leca/dt-image-store/internal/config"
	"github.com/leca/dt-image-store/internal/database"
	"github.com/leca/dt-image-store/internal/imageproc"
	"github.com/leca/dt-image-store/internal/model"
	"github.com/leca/dt-image-store/internal/storage"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	DB     database.Database
	Store  storage.Storage
	Config *config.Config
	Logger *slog.Logger
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// keyParam parses the {key} URL parameter. It writes a 400 and returns false
// when the key is malformed.
func keyParam(w http.ResponseWriter, r *http.Request) (model.ImageKey, bool) {
	key, err := model.ParseImageKey(chi.URLParam(r, "key"))
	if err != nil {
		api.BadRequest(w, err.Error())
		return model.ImageKey{}, false
	}
	return key, true
}

// deliveryURL returns the public URL of a primary (empty size) or size.
func (h *Handler) deliveryURL(key model.ImageKey, size string) string {
	u := fmt.Sprintf("%s/cdn/%s", strings.TrimRight(h.Config.BaseURL, "/"), key)
	if size != "" {
		u += "/" + size
	}
	return u
}

// writeStoreError maps storage and catalog errors to status codes. Anything
// unrecognised is logged and reported as a 500.
func (h *Handler) writeStoreError(w http.ResponseWriter, op string, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		api.TooLarge(w, err.Error())
	case errors.Is(err, storage.ErrInvalidFormat),
		errors.Is(err, storage.ErrInvalidArgument),
		errors.Is(err, storage.ErrUnsupportedOptions),
		errors.Is(err, imageproc.ErrInvalidEditor):
		api.BadRequest(w, err.Error())
	case errors.Is(err, storage.ErrValidationRejected):
		api.UnprocessableEntity(w, err.Error())
	case errors.Is(err, storage.ErrConflict),
		errors.Is(err, storage.ErrLockContention),
		errors.Is(err, database.ErrExists):
		api.Conflict(w, err.Error())
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, database.ErrNotFound):
		api.NotFound(w, err.Error())
	case errors.Is(err, storage.ErrUnsupported):
		api.NotImplemented(w, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		api.WriteJSON(w, http.StatusServiceUnavailable, api.ErrorResponse(9503, err.Error()))
	default:
		h.logger().Error(op+" failed", "error", err)
		api.InternalError(w, op+" failed")
	}
}
