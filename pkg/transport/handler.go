package transport

import (
	"context"

	"github.com/rhuss/tenantgate/pkg/api"
)

// SignupService registers a new tenant together with its first user.
// Implementations return *api.APIError for validation and conflict
// failures; any other error is reported as a server error.
type SignupService interface {
	Signup(ctx context.Context, req api.SignupRequest) (*api.SignupResult, error)
}

// HealthChecker reports whether a backend dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
