// Package stub provides the authenticator used when the server runs
// without a database. Any well-formed Basic credentials resolve to a
// synthetic super admin.
package stub

import (
	"context"
	"net/http"

	"github.com/rhuss/tenantgate/pkg/auth"
)

const (
	// ID is the identifier of the stub identity.
	ID = "stub-user"

	// DefaultEmail is used when no environment username is configured.
	DefaultEmail = "stub@local"

	displayName = "Stub Admin"
)

// Authenticator accepts any credentials.
type Authenticator struct {
	email string
}

// New creates a stub authenticator. email is reported as the identity's
// email; empty means DefaultEmail.
func New(email string) *Authenticator {
	if email == "" {
		email = DefaultEmail
	}
	return &Authenticator{email: email}
}

// Authenticate votes Yes whenever credentials are present and abstains
// otherwise, so requests without credentials are still challenged.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	if _, ok := auth.CredentialsFromRequest(r); !ok {
		return auth.AuthResult{Decision: auth.Abstain}
	}
	return auth.Accept(&auth.Identity{
		ID:           ID,
		Email:        a.email,
		DisplayName:  displayName,
		IsSuperAdmin: true,
		Origin:       auth.OriginStub,
	})
}
