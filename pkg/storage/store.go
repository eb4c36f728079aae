package storage

import (
	"context"

	"github.com/rhuss/tenantgate/pkg/api"
)

// Directory is the lookup capability the authenticator depends on.
type Directory interface {
	// FindUserByEmail returns the user with the given normalized email,
	// with TenantStatus joined from the owning tenant. Returns ErrNotFound
	// when no such user exists; any other error means the lookup itself
	// failed.
	FindUserByEmail(ctx context.Context, email string) (*api.User, error)
}

// UserStore persists users.
type UserStore interface {
	Directory

	// CreateUser inserts a new user. Returns ErrConflict if the email is
	// already taken.
	CreateUser(ctx context.Context, u *api.User) error

	// EnsureUser inserts u unless a user with the same email already exists.
	// It reports whether a row was created.
	EnsureUser(ctx context.Context, u *api.User) (bool, error)
}

// TenantStore persists tenants.
type TenantStore interface {
	CreateTenant(ctx context.Context, t *api.Tenant) error

	// GetTenant returns ErrNotFound for unknown IDs.
	GetTenant(ctx context.Context, id string) (*api.Tenant, error)

	// ListTenants returns all tenants, newest first.
	ListTenants(ctx context.Context) ([]*api.Tenant, error)

	// UpdateTenantStatus sets the status and returns the updated tenant.
	// Returns ErrNotFound for unknown IDs.
	UpdateTenantStatus(ctx context.Context, id string, status api.TenantStatus) (*api.Tenant, error)
}

// Store is the full persistence surface of a backend.
type Store interface {
	UserStore
	TenantStore

	HealthCheck(ctx context.Context) error
	Close() error
}
