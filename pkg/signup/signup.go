// Package signup registers new customer companies: a pending tenant and
// its first company administrator.
package signup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rhuss/tenantgate/pkg/api"
	"github.com/rhuss/tenantgate/pkg/auth/password"
	"github.com/rhuss/tenantgate/pkg/debug"
	"github.com/rhuss/tenantgate/pkg/observability"
	"github.com/rhuss/tenantgate/pkg/storage"
)

// Message is returned to the caller after a successful signup.
const Message = "Signup received. Your company is pending approval by a platform administrator."

// Service runs the signup workflow against a store.
type Service struct {
	users   storage.UserStore
	tenants storage.TenantStore
	hash    func(string) (string, error)
	logger  *slog.Logger
}

// New creates a signup service.
func New(users storage.UserStore, tenants storage.TenantStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:   users,
		tenants: tenants,
		hash:    password.Hash,
		logger:  logger,
	}
}

// Signup validates req, rejects emails that are already registered, and
// creates a pending tenant plus its company admin. Validation and conflict
// failures are returned as *api.APIError.
//
// Tenant and user are written separately. If the user insert loses a race
// on the email, the tenant stays behind as an inert pending row; this is
// logged at WARN.
func (s *Service) Signup(ctx context.Context, req api.SignupRequest) (*api.SignupResult, error) {
	in, apiErr := api.ValidateSignup(req)
	if apiErr != nil {
		observability.SignupsTotal.WithLabelValues("invalid").Inc()
		return nil, apiErr
	}

	_, err := s.users.FindUserByEmail(ctx, in.Email)
	switch {
	case err == nil:
		observability.SignupsTotal.WithLabelValues("conflict").Inc()
		debug.Log("signup", "email already registered", "email", debug.Mask(in.Email))
		return nil, emailTaken()
	case !errors.Is(err, storage.ErrNotFound):
		observability.SignupsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("checking existing user: %w", err)
	}

	// Hash before any write so that a rejected password leaves nothing behind.
	hash, err := s.hash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			observability.SignupsTotal.WithLabelValues("invalid").Inc()
			return nil, api.NewInvalidRequestError("password", "password must be at most 72 bytes")
		}
		observability.SignupsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	tenant := &api.Tenant{Name: in.CompanyName, Status: api.TenantStatusPending}
	if err := s.tenants.CreateTenant(ctx, tenant); err != nil {
		observability.SignupsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("creating tenant: %w", err)
	}

	user := &api.User{
		Email:        in.Email,
		DisplayName:  in.DisplayName,
		PasswordHash: hash,
		Role:         api.RoleCompanyAdmin,
		TenantID:     tenant.ID,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		s.logger.Warn("signup left an orphaned pending tenant",
			"tenant_id", tenant.ID,
			"error", err,
		)
		if errors.Is(err, storage.ErrConflict) {
			observability.SignupsTotal.WithLabelValues("conflict").Inc()
			return nil, emailTaken()
		}
		observability.SignupsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("creating user: %w", err)
	}

	observability.SignupsTotal.WithLabelValues("created").Inc()
	s.logger.Info("tenant signed up", "tenant_id", tenant.ID, "user_id", user.ID)

	return &api.SignupResult{TenantID: tenant.ID, Message: Message}, nil
}

func emailTaken() *api.APIError {
	return api.NewConflictError("email", "Email already registered")
}
