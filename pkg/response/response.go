package response

import (
	"errors"
	"net/http"

	"invoicing/pkg/apperror"
)

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	ErrorKind  string      `json:"error_kind,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination describes the page of a list response.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// SuccessWithPagination wraps a list page together with its paging metadata
func SuccessWithPagination(statusCode int, data interface{}, page, limit int, total int64) Response {
	var pages int64
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	resp := Success(statusCode, data)
	resp.Pagination = &Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
	return resp
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// StatusFor maps a billing error to the HTTP status the API reports for it.
func StatusFor(err error) int {
	switch apperror.KindOf(err) {
	case apperror.KindInvalidAmount, apperror.KindInvalidInput:
		return http.StatusBadRequest
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindInvalidState:
		return http.StatusConflict
	case apperror.KindNumberingExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromError builds the error envelope for err along with its HTTP status.
// Unclassified errors are reported without their internal detail.
func FromError(err error) (int, Response) {
	status := StatusFor(err)
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		return status, Error(status, "internal server error")
	}
	resp := Error(status, appErr.Error())
	resp.ErrorKind = string(appErr.Kind)
	return status, resp
}
