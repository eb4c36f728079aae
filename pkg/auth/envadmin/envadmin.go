// Package envadmin authenticates the super administrator configured
// through the environment.
//
// The configured pair is compared in constant time and never hashed. When
// a stored user exists whose email is the lowercased configured username,
// the caller is resolved as that user; otherwise a synthetic super admin
// is returned.
package envadmin

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/rhuss/tenantgate/pkg/api"
	"github.com/rhuss/tenantgate/pkg/auth"
	"github.com/rhuss/tenantgate/pkg/storage"
)

// SyntheticID is the ID of the synthetic environment identity.
const SyntheticID = "env-super-admin"

// Authenticator votes Yes for the configured username/password pair and
// abstains for everything else.
type Authenticator struct {
	username string
	password string
	dir      storage.Directory
}

// New creates an environment authenticator. dir may be nil (no database),
// in which case the synthetic identity is always used. An empty username
// or password leaves the authenticator unconfigured.
func New(username, password string, dir storage.Directory) *Authenticator {
	return &Authenticator{username: username, password: password, dir: dir}
}

// Configured reports whether both halves of the pair are set.
func (a *Authenticator) Configured() bool {
	return a.username != "" && a.password != ""
}

// Authenticate implements auth.Authenticator.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) auth.AuthResult {
	if !a.Configured() {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	creds, ok := auth.CredentialsFromRequest(r)
	if !ok || !a.matches(creds) {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	if a.dir != nil {
		u, err := a.dir.FindUserByEmail(ctx, api.NormalizeEmail(a.username))
		switch {
		case err == nil:
			id := auth.IdentityFromUser(u)
			if id.DisplayName == "" {
				id.DisplayName = a.username
			}
			return auth.Accept(id)
		case !errors.Is(err, storage.ErrNotFound):
			return auth.Failed(err)
		}
	}

	return auth.Accept(&auth.Identity{
		ID:           SyntheticID,
		Email:        a.username,
		DisplayName:  a.username,
		IsSuperAdmin: true,
		Origin:       auth.OriginEnvironment,
	})
}

func (a *Authenticator) matches(c auth.Credentials) bool {
	userOK := subtle.ConstantTimeCompare([]byte(c.Username), []byte(a.username))
	passOK := subtle.ConstantTimeCompare([]byte(c.Password), []byte(a.password))
	return userOK&passOK == 1
}
