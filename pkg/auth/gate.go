package auth

import (
	"net/http"

	"github.com/rhuss/tenantgate/pkg/api"
	"github.com/rhuss/tenantgate/pkg/transport"
)

// TenantAccess classifies what an identity may do with respect to tenant
// lifecycle.
type TenantAccess int

const (
	// AccessNone means the caller has no tenant and no platform privilege.
	AccessNone TenantAccess = iota

	// AccessPending means the caller's tenant awaits approval.
	AccessPending

	// AccessActive means the caller's tenant is approved.
	AccessActive

	// AccessPlatform means the caller administers the platform and is not
	// bound to a single tenant.
	AccessPlatform
)

func (a TenantAccess) String() string {
	switch a {
	case AccessPending:
		return "pending"
	case AccessActive:
		return "active"
	case AccessPlatform:
		return "platform"
	default:
		return "none"
	}
}

// Gate passes the resolved identity through unchanged. Tenant status is
// exposed on the identity but never blocks authentication: a company admin
// of a pending tenant still signs in and can see its own status.
func Gate(id *Identity) *Identity {
	return id
}

// IsPlatformAdmin reports whether id holds platform-wide privilege.
func IsPlatformAdmin(id *Identity) bool {
	return id != nil && (id.Role == api.RolePlatformAdmin || id.IsSuperAdmin)
}

// TenantAccessOf classifies id.
func TenantAccessOf(id *Identity) TenantAccess {
	switch {
	case IsPlatformAdmin(id):
		return AccessPlatform
	case id == nil || id.TenantID == "":
		return AccessNone
	case id.TenantStatus == api.TenantStatusActive:
		return AccessActive
	default:
		return AccessPending
	}
}

// RequirePlatformAdmin returns nil iff id is a platform administrator or a
// super admin, ErrUnauthenticated for a nil identity, and ErrForbidden
// otherwise.
func RequirePlatformAdmin(id *Identity) error {
	if id == nil {
		return ErrUnauthenticated
	}
	if !IsPlatformAdmin(id) {
		return ErrForbidden
	}
	return nil
}

// RequireActiveTenant returns nil for platform administrators and members
// of active tenants, ErrTenantPending for members of pending tenants, and
// ErrForbidden for callers without a tenant.
func RequireActiveTenant(id *Identity) error {
	if id == nil {
		return ErrUnauthenticated
	}
	switch TenantAccessOf(id) {
	case AccessPlatform, AccessActive:
		return nil
	case AccessPending:
		return ErrTenantPending
	default:
		return ErrForbidden
	}
}

// PlatformAdminOnly guards next so that only platform administrators reach
// it. Other callers get 403 (or 401 if no identity is attached).
func PlatformAdminOnly(next http.Handler) http.Handler {
	return guard(RequirePlatformAdmin, next)
}

// ActiveTenantOnly guards business routes that need an approved tenant.
func ActiveTenantOnly(next http.Handler) http.Handler {
	return guard(RequireActiveTenant, next)
}

func guard(check func(*Identity) error, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := check(IdentityFromContext(r.Context())); err != nil {
			transport.WriteAPIError(w, GuardError(err), false)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GuardError maps a gate error to the API error sent to the client.
func GuardError(err error) *api.APIError {
	switch err {
	case ErrUnauthenticated:
		return api.NewUnauthenticatedError("Not authenticated")
	case ErrTenantPending:
		return api.NewForbiddenError("Tenant pending approval")
	case ErrForbidden:
		return api.NewForbiddenError("Forbidden")
	default:
		return api.NewServerError("Internal server error", err)
	}
}
