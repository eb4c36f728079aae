package api

import (
	"fmt"
	"strings"
	"time"
)

// Role is the privilege tier of a user.
type Role string

const (
	// RolePlatformAdmin has cross-tenant visibility and may approve tenants.
	RolePlatformAdmin Role = "platform_admin"

	// RoleCompanyAdmin administers exactly one tenant.
	RoleCompanyAdmin Role = "company_admin"
)

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RolePlatformAdmin, RoleCompanyAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// TenantStatus is the lifecycle state of a tenant.
type TenantStatus string

const (
	TenantStatusPending TenantStatus = "pending"
	TenantStatusActive  TenantStatus = "active"
)

// ParseTenantStatus validates a tenant status. Only "pending" and "active"
// are accepted; matching is exact.
func ParseTenantStatus(s string) (TenantStatus, error) {
	switch st := TenantStatus(s); st {
	case TenantStatusPending, TenantStatusActive:
		return st, nil
	default:
		return "", fmt.Errorf("status must be %q or %q", TenantStatusPending, TenantStatusActive)
	}
}

// Tenant is one customer company.
type Tenant struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Status    TenantStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

// User is one human account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	TenantID     string    `json:"tenantId,omitempty"` // empty only for platform admins
	IsSuperAdmin bool      `json:"isSuperAdmin"`
	CreatedAt    time.Time `json:"createdAt"`

	// TenantStatus is joined from the owning tenant on lookup. It is not
	// stored on the user row.
	TenantStatus TenantStatus `json:"-"`
}

// Validate checks the user invariants that the store cannot express on its
// own: a known role, and a tenant reference for company admins.
func (u *User) Validate() error {
	if u.Email == "" {
		return fmt.Errorf("email is required")
	}
	if u.Email != NormalizeEmail(u.Email) {
		return fmt.Errorf("email %q is not normalized", u.Email)
	}
	if _, err := ParseRole(string(u.Role)); err != nil {
		return err
	}
	if u.Role == RoleCompanyAdmin && u.TenantID == "" {
		return fmt.Errorf("company_admin must reference a tenant")
	}
	return nil
}

// NormalizeEmail lowercases an email address for lookup and uniqueness.
// Surrounding whitespace is kept; callers that accept free-form input trim
// it themselves.
func NormalizeEmail(email string) string {
	return strings.ToLower(email)
}

// SignupRequest is the body of POST /api/signup.
type SignupRequest struct {
	CompanyName string `json:"companyName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

// SignupResult is returned with 201 on a successful signup.
type SignupResult struct {
	TenantID string `json:"tenantId"`
	Message  string `json:"message"`
}

// TenantStatusUpdate is the body of PATCH /api/platform/tenants/{id}.
type TenantStatusUpdate struct {
	Status string `json:"status"`
}

// Me is the body of GET /api/me.
type Me struct {
	ID           string        `json:"id"`
	Email        string        `json:"email"`
	DisplayName  string        `json:"displayName"`
	IsSuperAdmin bool          `json:"isSuperAdmin"`
	Role         Role          `json:"role,omitempty"`
	TenantID     *string       `json:"tenantId"`
	TenantStatus *TenantStatus `json:"tenantStatus"`
}

// Health is the body of GET /api/health.
type Health struct {
	OK bool `json:"ok"`
}

// Dashboard is the body of GET /api/dashboard. Tenant is nil for platform
// administrators that do not belong to a tenant.
type Dashboard struct {
	User   Me      `json:"user"`
	Tenant *Tenant `json:"tenant"`
}
