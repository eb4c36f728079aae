// Package directory authenticates stored users by email and bcrypt
// password hash.
package directory

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rhuss/tenantgate/pkg/api"
	"github.com/rhuss/tenantgate/pkg/auth"
	"github.com/rhuss/tenantgate/pkg/auth/password"
	"github.com/rhuss/tenantgate/pkg/debug"
	"github.com/rhuss/tenantgate/pkg/observability"
	"github.com/rhuss/tenantgate/pkg/storage"
)

// Authenticator resolves Basic credentials against a user directory.
type Authenticator struct {
	dir    storage.Directory
	verify func(hash, plain string) (bool, error)
	logger *slog.Logger
}

// New creates a directory authenticator backed by dir.
func New(dir storage.Directory, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{dir: dir, verify: password.Verify, logger: logger}
}

// Authenticate implements auth.Authenticator. Unknown users and wrong
// passwords vote No; directory failures vote Error.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) auth.AuthResult {
	creds, ok := auth.CredentialsFromRequest(r)
	if !ok {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	email := api.NormalizeEmail(creds.Username)

	start := time.Now()
	u, err := a.dir.FindUserByEmail(ctx, email)
	result := "found"
	switch {
	case errors.Is(err, storage.ErrNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	observability.DirectoryLookupDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())

	switch result {
	case "not_found":
		password.Burn(creds.Password)
		debug.Log("auth", "unknown user", "user", debug.Mask(email))
		return auth.Reject(auth.ErrInvalidCredentials)
	case "error":
		return auth.Failed(err)
	}

	match, err := a.verify(u.PasswordHash, creds.Password)
	if err != nil {
		a.logger.Warn("stored password hash is unusable", "user_id", u.ID, "error", err)
		return auth.Reject(auth.ErrInvalidCredentials)
	}
	if !match {
		debug.Log("auth", "password mismatch", "user", debug.Mask(email))
		return auth.Reject(auth.ErrInvalidCredentials)
	}

	return auth.Accept(auth.IdentityFromUser(u))
}
