package api

import "github.com/google/uuid"

// NewTenantID generates a new random tenant identifier.
func NewTenantID() string {
	return uuid.NewString()
}

// NewUserID generates a new random user identifier.
func NewUserID() string {
	return uuid.NewString()
}

// ValidateID reports whether id is a well-formed identifier as produced by
// NewTenantID or NewUserID.
func ValidateID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}
