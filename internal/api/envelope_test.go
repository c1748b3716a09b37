package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessResponse(t *testing.T) {
	result := map[string]string{"id": "abc-123"}
	resp := SuccessResponse(result)

	assert.True(t, resp.Success)
	assert.Equal(t, result, resp.Result)
	assert.Empty(t, resp.Errors)
	assert.Empty(t, resp.Messages)
}

func TestMessageResponse(t *testing.T) {
	resp := MessageResponse(nil, 1001, "delete deferred to cleanup")

	assert.True(t, resp.Success)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, 1001, resp.Messages[0].Code)
}

func TestErrorResponse(t *testing.T) {
	resp := ErrorResponse(9400, "bad request")

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Result)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, 9400, resp.Errors[0].Code)
	assert.Equal(t, "bad request", resp.Errors[0].Message)
	assert.Empty(t, resp.Messages)
}

func TestNewResultInfo(t *testing.T) {
	tests := []struct {
		name      string
		perPage   int
		total     int
		wantPages int
	}{
		{"exact", 10, 30, 3},
		{"partial", 10, 25, 3},
		{"empty", 10, 0, 0},
		{"zero per page", 0, 25, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := NewResultInfo(1, tt.perPage, 0, tt.total)
			assert.Equal(t, tt.wantPages, info.TotalPages)
			assert.Equal(t, tt.total, info.TotalCount)
		})
	}
}

func TestPaginatedResponseJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusOK, PaginatedResponse([]string{"a", "b"}, NewResultInfo(1, 20, 2, 50)))

	var raw map[string]any
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&raw))

	assert.Equal(t, true, raw["success"])
	assert.Equal(t, []any{"a", "b"}, raw["result"])
	info, ok := raw["result_info"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(50), info["total_count"])
	assert.Equal(t, float64(3), info["total_pages"])
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
		code   int
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "x") }, http.StatusBadRequest, 9400},
		{"unauthorized", Unauthorized, http.StatusUnauthorized, 9401},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "x") }, http.StatusNotFound, 9404},
		{"conflict", func(w http.ResponseWriter) { Conflict(w, "x") }, http.StatusConflict, 9409},
		{"too large", func(w http.ResponseWriter) { TooLarge(w, "x") }, http.StatusRequestEntityTooLarge, 9413},
		{"unprocessable", func(w http.ResponseWriter) { UnprocessableEntity(w, "x") }, http.StatusUnprocessableEntity, 9422},
		{"internal", func(w http.ResponseWriter) { InternalError(w, "x") }, http.StatusInternalServerError, 9500},
		{"not implemented", func(w http.ResponseWriter) { NotImplemented(w, "x") }, http.StatusNotImplemented, 9501},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.status, res.StatusCode)
			assert.Equal(t, "application/json", res.Header.Get("Content-Type"))

			var decoded Response
			require.NoError(t, json.NewDecoder(res.Body).Decode(&decoded))
			assert.False(t, decoded.Success)
			require.Len(t, decoded.Errors, 1)
			assert.Equal(t, tt.code, decoded.Errors[0].Code)
		})
	}
}
