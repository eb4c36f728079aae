package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rhuss/tenantgate/pkg/api"
)

// AuthDecision represents the possible outcomes of authentication.
type AuthDecision int

const (
	// Yes means credentials are valid. The chain stops and the identity is used.
	Yes AuthDecision = iota

	// No means credentials are present but invalid. The chain stops and the
	// request is rejected.
	No

	// Abstain means this authenticator cannot handle the credentials.
	// The chain continues to the next authenticator.
	Abstain

	// Error means the authenticator could not reach a verdict because a
	// dependency failed. The chain stops; the request fails with a server
	// error rather than a 401.
	Error
)

func (d AuthDecision) String() string {
	switch d {
	case Yes:
		return "yes"
	case No:
		return "no"
	case Abstain:
		return "abstain"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("AuthDecision(%d)", int(d))
	}
}

// AuthResult carries the outcome of an authentication attempt.
type AuthResult struct {
	Decision AuthDecision
	Identity *Identity // populated only when Decision == Yes
	Err      error     // populated when Decision is No or Error
}

// Origin tells where a resolved identity came from.
type Origin int

const (
	// OriginPersisted identities are backed by a stored user row.
	OriginPersisted Origin = iota

	// OriginEnvironment is the synthetic super admin configured through
	// the environment, used when no matching row exists.
	OriginEnvironment

	// OriginStub is the synthetic identity handed out when the server runs
	// without a database.
	OriginStub
)

func (o Origin) String() string {
	switch o {
	case OriginPersisted:
		return "persisted"
	case OriginEnvironment:
		return "environment"
	case OriginStub:
		return "stub"
	default:
		return fmt.Sprintf("Origin(%d)", int(o))
	}
}

// Identity represents an authenticated caller for the lifetime of one
// request.
type Identity struct {
	ID           string
	Email        string
	DisplayName  string
	IsSuperAdmin bool

	// Role is empty for synthetic identities.
	Role api.Role

	// TenantID and TenantStatus are empty when the caller has no tenant.
	TenantID     string
	TenantStatus api.TenantStatus

	// ServiceTier selects the rate limit bucket.
	ServiceTier string

	Origin Origin
}

// Synthetic reports whether the identity has no stored user row behind it.
func (id *Identity) Synthetic() bool {
	return id.Origin != OriginPersisted
}

// Profile renders the identity as the /api/me body.
func (id *Identity) Profile() api.Me {
	me := api.Me{
		ID:           id.ID,
		Email:        id.Email,
		DisplayName:  id.DisplayName,
		IsSuperAdmin: id.IsSuperAdmin,
		Role:         id.Role,
	}
	if id.TenantID != "" {
		tenantID := id.TenantID
		me.TenantID = &tenantID
	}
	if id.TenantStatus != "" {
		status := id.TenantStatus
		me.TenantStatus = &status
	}
	return me
}

// IdentityFromUser builds a persisted identity from a stored user row.
func IdentityFromUser(u *api.User) *Identity {
	return &Identity{
		ID:           u.ID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		IsSuperAdmin: u.IsSuperAdmin,
		Role:         u.Role,
		TenantID:     u.TenantID,
		TenantStatus: u.TenantStatus,
		Origin:       OriginPersisted,
	}
}

// Authenticator examines request credentials and returns a vote.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) AuthResult
}

// AuthenticatorFunc is an adapter to allow the use of ordinary functions
// as Authenticators.
type AuthenticatorFunc func(ctx context.Context, r *http.Request) AuthResult

// Authenticate calls f(ctx, r).
func (f AuthenticatorFunc) Authenticate(ctx context.Context, r *http.Request) AuthResult {
	return f(ctx, r)
}

// Sentinel errors.
var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("access denied")
	ErrTenantPending      = errors.New("tenant pending approval")
	ErrTooManyRequests    = errors.New("rate limit exceeded")
	ErrLookupFailed       = errors.New("identity lookup failed")
	errIncompleteIdentity = errors.New("authenticator voted yes without an identity")
)

// Reject returns a No vote carrying err.
func Reject(err error) AuthResult {
	return AuthResult{Decision: No, Err: err}
}

// Accept returns a Yes vote for id.
func Accept(id *Identity) AuthResult {
	return AuthResult{Decision: Yes, Identity: id}
}

// Failed returns an Error vote. err is wrapped so that errors.Is(err,
// ErrLookupFailed) holds.
func Failed(err error) AuthResult {
	return AuthResult{Decision: Error, Err: fmt.Errorf("%w: %w", ErrLookupFailed, err)}
}

// AuthChain evaluates authenticators in order.
type AuthChain struct {
	// Authenticators are evaluated left to right.
	Authenticators []Authenticator
}

// NewChain builds a chain from the given authenticators, skipping nil
// entries so optional strategies can be passed unconditionally.
func NewChain(authenticators ...Authenticator) *AuthChain {
	c := &AuthChain{}
	for _, a := range authenticators {
		if a != nil {
			c.Authenticators = append(c.Authenticators, a)
		}
	}
	return c
}

// Authenticate runs the chain. Stops on the first vote that is not
// Abstain. If all abstain, the request is unauthenticated.
func (c *AuthChain) Authenticate(ctx context.Context, r *http.Request) AuthResult {
	for _, authn := range c.Authenticators {
		result := authn.Authenticate(ctx, r)
		switch result.Decision {
		case Abstain:
			continue
		case Yes:
			if result.Identity == nil || result.Identity.ID == "" {
				return AuthResult{Decision: Error, Err: errIncompleteIdentity}
			}
		case No:
			if result.Err == nil {
				result.Err = ErrInvalidCredentials
			}
		case Error:
			if result.Err == nil {
				result.Err = ErrLookupFailed
			}
		}
		return result
	}

	return Reject(ErrUnauthenticated)
}
