package api

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestAPIErrorInterface(t *testing.T) {
	var _ error = &APIError{}
}

func TestAPIErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			"with param",
			&APIError{Type: ErrorTypeConflict, Param: "email", Message: "already registered"},
			"conflict: already registered (param: email)",
		},
		{
			"without param",
			&APIError{Type: ErrorTypeServerError, Message: "internal failure"},
			"server_error: internal failure",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("APIError.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name      string
		err       *APIError
		wantType  ErrorType
		wantParam string
	}{
		{"invalid request", NewInvalidRequestError("status", "bad"), ErrorTypeInvalidRequest, "status"},
		{"unauthenticated", NewUnauthenticatedError("Authentication required"), ErrorTypeUnauthenticated, ""},
		{"forbidden", NewForbiddenError("nope"), ErrorTypeForbidden, ""},
		{"not found", NewNotFoundError("Tenant not found"), ErrorTypeNotFound, ""},
		{"conflict", NewConflictError("email", "taken"), ErrorTypeConflict, "email"},
		{"too many requests", NewTooManyRequestsError("slow down"), ErrorTypeTooManyRequests, ""},
		{"server error", NewServerError("boom", nil), ErrorTypeServerError, ""},
		{"unavailable", NewUnavailableError("Database not configured"), ErrorTypeUnavailable, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", tt.err.Type, tt.wantType)
			}
			if tt.err.Param != tt.wantParam {
				t.Errorf("Param = %q, want %q", tt.err.Param, tt.wantParam)
			}
		})
	}
}

func TestAPIErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewServerError("lookup failed", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestAPIErrorJSONHidesInternals(t *testing.T) {
	err := NewServerError("lookup failed", errors.New("dial tcp 10.0.0.1:5432"))

	data, mErr := json.Marshal(err)
	if mErr != nil {
		t.Fatalf("marshal: %v", mErr)
	}
	if string(data) != `{"error":"lookup failed"}` {
		t.Errorf("JSON = %s, want only the message", data)
	}
}
