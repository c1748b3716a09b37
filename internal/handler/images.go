package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/leca/dt-image-store/internal/api"
	"github.com/leca/dt-image-store/internal/imageproc"
	"github.com/leca/dt-image-store/internal/model"
	"github.com/leca/dt-image-store/internal/storage"
)

// imageResponse is a catalog record plus its delivery URLs.
type imageResponse struct {
	*model.Image
	URLs map[string]string `json:"urls"`
}

func (h *Handler) imageResponse(img *model.Image) imageResponse {
	urls := map[string]string{"original": h.deliveryURL(img.Key, "")}
	for _, s := range img.Sizes {
		urls[s.Name] = h.deliveryURL(img.Key, s.Name)
	}
	if img.Sizes == nil {
		img.Sizes = []model.Size{}
	}
	return imageResponse{Image: img, URLs: urls}
}

// editorFromForm builds the optional editor of an upload from the fit,
// width, height and background form fields. A missing fit means no editor.
func editorFromForm(r *http.Request) (imageproc.Editor, error) {
	fit := r.FormValue("fit")
	if fit == "" {
		return nil, nil
	}
	width, err := strconv.Atoi(r.FormValue("width"))
	if err != nil {
		return nil, fmt.Errorf("%w: width must be an integer", storage.ErrInvalidArgument)
	}
	height, err := strconv.Atoi(r.FormValue("height"))
	if err != nil {
		return nil, fmt.Errorf("%w: height must be an integer", storage.ErrInvalidArgument)
	}
	return imageproc.EditorFor(fit, width, height, r.FormValue("background"))
}

// UploadImage handles POST /v1/images -- multipart file upload.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxUploadBytes)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.TooLarge(w, "upload exceeds "+strconv.FormatInt(h.Config.MaxUploadBytes, 10)+" bytes")
			return
		}
		api.BadRequest(w, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.BadRequest(w, "missing required field: file")
		return
	}
	defer file.Close()

	editor, err := editorFromForm(r)
	if err != nil {
		h.writeStoreError(w, "upload", err)
		return
	}
	quality := 0
	if v := r.FormValue("quality"); v != "" {
		if quality, err = strconv.Atoi(v); err != nil {
			api.BadRequest(w, "quality must be an integer")
			return
		}
	}

	key, err := h.Store.Add(file, storage.AddOptions{
		Validate: h.Config.Validator(),
		Editor:   editor,
		Quality:  quality,
	})
	if err != nil {
		h.writeStoreError(w, "store image", err)
		return
	}

	info, err := h.Store.Describe(key, "")
	if err != nil {
		h.writeStoreError(w, "describe image", err)
		return
	}

	img := &model.Image{
		Key:      key,
		Filename: header.Filename,
		Width:    info.Width,
		Height:   info.Height,
		FileSize: info.Size,
		Uploaded: time.Now().UTC(),
	}
	if err := h.DB.CreateImage(img); err != nil {
		// Without a catalog row nothing refers to the files.
		if derr := h.Store.Delete(key.ID); derr != nil {
			h.logger().Warn("removing uncatalogued image", "key", key.String(), "error", derr)
		}
		h.writeStoreError(w, "create image record", err)
		return
	}

	api.WriteJSON(w, http.StatusOK, api.SuccessResponse(h.imageResponse(img)))
}

// GetImage handles GET /v1/images/{key}.
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	key, ok := keyParam(w, r)
	if !ok {
		return
	}

	img, err := h.DB.GetImage(key.ID)
	if err != nil {
		h.writeStoreError(w, "get image", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.SuccessResponse(h.imageResponse(img)))
}

// ListImages handles GET /v1/images.
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	page := 1
	perPage := 100

	if v := r.URL.Query().Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		if pp, err := strconv.Atoi(v); err == nil && pp > 0 {
			perPage = min(pp, 1000)
		}
	}

	images, total, err := h.DB.ListImages(page, perPage)
	if err != nil {
		h.writeStoreError(w, "list images", err)
		return
	}

	result := make([]imageResponse, 0, len(images))
	for _, img := range images {
		result = append(result, h.imageResponse(img))
	}

	info := api.NewResultInfo(page, perPage, len(result), total)
	api.WriteJSON(w, http.StatusOK, api.PaginatedResponse(map[string]any{"images": result}, info))
}

// DeleteImage handles DELETE /v1/images/{key}. Files go first so a failed
// delete leaves the catalog row in place for a retry. A delete deferred to
// cleanup still succeeds.
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	key, ok := keyParam(w, r)
	if !ok {
		return
	}

	if err := h.Store.Delete(key.ID); err != nil {
		h.writeStoreError(w, "delete image", err)
		return
	}
	if err := h.DB.DeleteImage(key.ID); err != nil {
		h.writeStoreError(w, "delete image record", err)
		return
	}

	api.WriteJSON(w, http.StatusOK, api.SuccessResponse(struct{}{}))
}

// GetStats handles GET /v1/stats.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	images, err := h.DB.CountImages()
	if err != nil {
		h.writeStoreError(w, "count images", err)
		return
	}
	presets, err := h.DB.CountPresets()
	if err != nil {
		h.writeStoreError(w, "count presets", err)
		return
	}

	result := map[string]any{
		"images":  images,
		"presets": map[string]int{"current": presets, "allowed": h.Config.MaxPresets},
	}
	if pending, err := h.Store.NeedsCleaning(); err == nil {
		result["cleanupPending"] = pending
	} else if !errors.Is(err, storage.ErrUnsupported) {
		h.writeStoreError(w, "check cleanup", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.SuccessResponse(result))
}
