package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper that returns "ok" when the request reaches the inner handler.
func okHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"ok":true}`)); err != nil {
			t.Errorf("okHandler: failed to write response: %v", err)
		}
	})
}

// ---------- AuthMiddleware ----------

func TestAuthMiddleware_RejectsMissingAuth(t *testing.T) {
	handler := AuthMiddleware("")(okHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&resp))
	assert.False(t, resp.Success)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, 9401, resp.Errors[0].Code)
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		header string
		want   int
	}{
		{"any bearer without configured token", "", "Bearer some-token", http.StatusOK},
		{"empty bearer", "", "Bearer ", http.StatusUnauthorized},
		{"basic scheme", "", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"wrong bearer", "correct-token", "Bearer wrong-token", http.StatusUnauthorized},
		{"correct bearer", "correct-token", "Bearer correct-token", http.StatusOK},
		{"prefix of token", "correct-token", "Bearer correct", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := AuthMiddleware(tt.token)(okHandler(t))

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("Authorization", tt.header)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

// ---------- RequestLogger ----------

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := RequestLogger(logger)(inner)

	req := httptest.NewRequest(http.MethodPost, "/v1/images", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTeapot, w.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request", entry["msg"])
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/v1/images", entry["path"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
}
