package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Response is the JSON envelope wrapping every API result.
type Response struct {
	Result   any          `json:"result"`
	Success  bool         `json:"success"`
	Errors   []APIError   `json:"errors"`
	Messages []APIMessage `json:"messages"`
}

// APIMessage represents a single informational message in a response.
type APIMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// APIError represents a single error in a response.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ResultInfo carries pagination metadata for list endpoints.
type ResultInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Count      int `json:"count"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages,omitempty"`
}

// PageResponse is a Response with pagination metadata.
type PageResponse struct {
	Response
	ResultInfo ResultInfo `json:"result_info"`
}

// NewResultInfo computes the page count for total items split into pages of
// perPage.
func NewResultInfo(page, perPage, count, total int) ResultInfo {
	info := ResultInfo{Page: page, PerPage: perPage, Count: count, TotalCount: total}
	if perPage > 0 {
		info.TotalPages = (total + perPage - 1) / perPage
	}
	return info
}

// SuccessResponse builds a successful response.
func SuccessResponse(result any) Response {
	return Response{
		Result:   result,
		Success:  true,
		Errors:   []APIError{},
		Messages: []APIMessage{},
	}
}

// MessageResponse builds a successful response carrying a message.
func MessageResponse(result any, code int, message string) Response {
	resp := SuccessResponse(result)
	resp.Messages = append(resp.Messages, APIMessage{Code: code, Message: message})
	return resp
}

// ErrorResponse builds an error response.
func ErrorResponse(code int, message string) Response {
	return Response{
		Result:   nil,
		Success:  false,
		Errors:   []APIError{{Code: code, Message: message}},
		Messages: []APIMessage{},
	}
}

// PaginatedResponse builds a successful response that includes result_info.
func PaginatedResponse(result any, info ResultInfo) PageResponse {
	return PageResponse{Response: SuccessResponse(result), ResultInfo: info}
}

// WriteJSON serialises resp as JSON and writes it to w with the given HTTP status code.
func WriteJSON(w http.ResponseWriter, status int, resp any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn("WriteJSON: failed to encode response", "error", err)
	}
}
