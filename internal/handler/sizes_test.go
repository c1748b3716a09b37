package handler_test

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leca/dt-image-store/internal/config"
	"github.com/leca/dt-image-store/internal/model"
	"github.com/leca/dt-image-store/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockDelete plants a non-empty directory matching the delete pattern of
// the image, so removing it fails until the child is removed.
func blockDelete(t *testing.T, env *testEnv, id string) (unblock func()) {
	t.Helper()
	key, err := model.ParseImageKey(id)
	require.NoError(t, err)
	stuck := env.store.GetPath(key, "stuck")
	require.NoError(t, os.MkdirAll(stuck, 0o755))
	child := filepath.Join(stuck, "busy")
	require.NoError(t, os.WriteFile(child, []byte("x"), 0o644))
	return func() { require.NoError(t, os.Remove(child)) }
}

func addSize(t *testing.T, env *testEnv, id, preset string) *http.Response {
	t.Helper()
	return do(t, authReq(t, http.MethodPost, env.ts.URL+"/v1/images/"+id+"/sizes/"+preset, nil))
}

func TestAddSize(t *testing.T) {
	env := testServer(t, nil)
	img := uploadOK(t, env, testJPEG(t, 400, 300), nil)
	resp := createPreset(t, env, "thumbnail", "cover", 50, 50)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = addSize(t, env, img.ID, "thumbnail")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var e envelope
	decodeResponse(t, resp, &e)
	var result struct {
		Size sizeResult `json:"size"`
		URL  string     `json:"url"`
	}
	require.NoError(t, json.Unmarshal(e.Result, &result))
	assert.Equal(t, "thumbnail", result.Size.Name)
	assert.Equal(t, 50, result.Size.Width)
	assert.Equal(t, 50, result.Size.Height)
	assert.Equal(t, "http://img.test/cdn/"+img.ID+"/thumbnail", result.URL)

	// the catalog lists the size
	resp = do(t, authReq(t, http.MethodGet, env.ts.URL+"/v1/images/"+img.ID, nil))
	decodeResponse(t, resp, &e)
	var got imageResult
	require.NoError(t, json.Unmarshal(e.Result, &got))
	require.Len(t, got.Sizes, 1)
	assert.Equal(t, result.URL, got.URLs["thumbnail"])

	// the file is delivered
	resp, err := http.Get(env.ts.URL + "/cdn/" + img.ID + "/thumbnail")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	resp.Body.Close()

	// sizes are write-once
	resp = addSize(t, env, img.ID, "thumbnail")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestAddSize_Errors(t *testing.T) {
	env := testServer(t, nil)
	img := uploadOK(t, env, testJPEG(t, 40, 30), nil)
	resp := createPreset(t, env, "thumbnail", "downsize", 10, 10)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	unknownImage := strings.Repeat("ab", 16) + ".jpeg"
	tests := []struct {
		name   string
		id     string
		preset string
		status int
	}{
		{"unknown preset", img.ID, "hero", http.StatusNotFound},
		{"unknown image", unknownImage, "thumbnail", http.StatusNotFound},
		{"malformed key", "nope", "thumbnail", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := addSize(t, env, tt.id, tt.preset)
			assert.Equal(t, tt.status, resp.StatusCode)
			resp.Body.Close()
		})
	}
}

func TestAddSize_PrimaryMissingOnDisk(t *testing.T) {
	env := testServer(t, nil)
	img := uploadOK(t, env, testJPEG(t, 40, 30), nil)
	resp := createPreset(t, env, "thumbnail", "downsize", 10, 10)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	key, err := model.ParseImageKey(img.ID)
	require.NoError(t, err)
	require.NoError(t, os.Remove(env.store.GetPath(key, "")))

	resp = addSize(t, env, img.ID, "thumbnail")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

// ---------------------------------------------------------------------------
// Cleanup
// ---------------------------------------------------------------------------

func cleanupPending(t *testing.T, env *testEnv, method string) (int, bool) {
	t.Helper()
	resp := do(t, authReq(t, method, env.ts.URL+"/v1/cleanup", nil))
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return resp.StatusCode, false
	}
	var e envelope
	decodeResponse(t, resp, &e)
	var result struct {
		Pending bool `json:"pending"`
	}
	require.NoError(t, json.Unmarshal(e.Result, &result))
	return http.StatusOK, result.Pending
}

func TestCleanup_DeferredDelete(t *testing.T) {
	env := testServer(t, nil)
	img := uploadOK(t, env, testJPEG(t, 16, 16), nil)
	unblock := blockDelete(t, env, img.ID)

	resp := do(t, authReq(t, http.MethodDelete, env.ts.URL+"/v1/images/"+img.ID, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	status, pending := cleanupPending(t, env, http.MethodGet)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, pending)

	// still blocked: the sweep runs and the record stays
	status, pending = cleanupPending(t, env, http.MethodPost)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, pending)

	unblock()
	status, pending = cleanupPending(t, env, http.MethodPost)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, pending)
}

func TestCleanup_NotConfigured(t *testing.T) {
	env := testServer(t, func(_ *config.Config, o *storage.Options) {
		o.CleanupEnabled = false
		o.FailureMode = storage.FailureThrow
	})

	status, _ := cleanupPending(t, env, http.MethodGet)
	assert.Equal(t, http.StatusNotImplemented, status)
	status, _ = cleanupPending(t, env, http.MethodPost)
	assert.Equal(t, http.StatusNotImplemented, status)
}
