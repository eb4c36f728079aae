package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rhuss/tenantgate/pkg/api"
)

// HTTPStatusFromError maps an APIError type to the corresponding HTTP status
// code. Body-size and JSON decoding problems are classified by the HTTP
// adapter before they get here.
func HTTPStatusFromError(err *api.APIError) int {
	switch err.Type {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorTypeUnauthenticated:
		return http.StatusUnauthorized
	case api.ErrorTypeForbidden:
		return http.StatusForbidden
	case api.ErrorTypeNotFound:
		return http.StatusNotFound
	case api.ErrorTypeConflict:
		return http.StatusConflict
	case api.ErrorTypeTooManyRequests:
		return http.StatusTooManyRequests
	case api.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes v as a JSON body with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing JSON response failed", "error", err)
	}
}

// WriteErrorResponse writes a JSON error body. When detailed is set and the
// error wraps a cause, the cause text is included as "details".
func WriteErrorResponse(w http.ResponseWriter, apiErr *api.APIError, statusCode int, detailed bool) {
	body := api.ErrorResponse{Error: apiErr.Message}
	if detailed && apiErr.Cause != nil {
		body.Details = apiErr.Cause.Error()
	}
	WriteJSON(w, statusCode, body)
}

// WriteAPIError writes an APIError response, deriving the HTTP status code
// from the error type.
func WriteAPIError(w http.ResponseWriter, apiErr *api.APIError, detailed bool) {
	WriteErrorResponse(w, apiErr, HTTPStatusFromError(apiErr), detailed)
}

// AsAPIError returns err as an APIError. Errors that are not already
// APIErrors become opaque server errors that keep err as their cause.
func AsAPIError(err error) *api.APIError {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return api.NewServerError("Internal server error", err)
}
