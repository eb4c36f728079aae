package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/rhuss/tenantgate/pkg/api"
	"github.com/rhuss/tenantgate/pkg/debug"
	"github.com/rhuss/tenantgate/pkg/observability"
	"github.com/rhuss/tenantgate/pkg/storage"
	"github.com/rhuss/tenantgate/pkg/transport"
)

// DefaultRealm is the Basic realm announced in WWW-Authenticate.
const DefaultRealm = "App"

// Outcome is the result of an authorization decision.
type Outcome int

const (
	// OutcomeAnonymous allows the request without an identity.
	OutcomeAnonymous Outcome = iota
	// OutcomeAuthenticated allows the request with an identity.
	OutcomeAuthenticated
	// OutcomeUnauthorized rejects the request with 401.
	OutcomeUnauthorized
	// OutcomeLookupFailed rejects the request with a server error.
	OutcomeLookupFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAnonymous:
		return "anonymous"
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeLookupFailed:
		return "lookup_failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Decision is what the gate tells routing about one request.
type Decision struct {
	Outcome  Outcome
	Identity *Identity // set only for OutcomeAuthenticated
	Err      error     // set for the two rejecting outcomes
}

// MiddlewareConfig configures the authorization middleware.
type MiddlewareConfig struct {
	// Chain resolves credentials into identities.
	Chain *AuthChain

	// Limiter is optional. Authenticated callers are limited per identity,
	// anonymous callers per client address.
	Limiter RateLimiter

	// Bypass lists path prefixes, matched case-insensitively, that skip
	// authentication entirely.
	Bypass []string

	// Realm is announced in the Basic challenge. Defaults to DefaultRealm.
	Realm string

	// Production hides error details from clients.
	Production bool

	// Disabled turns the gate into a pass-through; every request is
	// allowed anonymously.
	Disabled bool

	Logger *slog.Logger
}

// Authorizer composes credential extraction, identity resolution, and the
// tenant gate into a single decision per request. It holds only read-only
// configuration and is safe for concurrent use.
type Authorizer struct {
	chain      *AuthChain
	limiter    RateLimiter
	bypass     []string
	challenge  string
	production bool
	disabled   bool
	logger     *slog.Logger
}

// NewAuthorizer builds an Authorizer from cfg.
func NewAuthorizer(cfg MiddlewareConfig) *Authorizer {
	chain := cfg.Chain
	if chain == nil {
		chain = NewChain()
	}
	realm := cfg.Realm
	if realm == "" {
		realm = DefaultRealm
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bypass := make([]string, 0, len(cfg.Bypass))
	for _, p := range cfg.Bypass {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			bypass = append(bypass, p)
		}
	}

	return &Authorizer{
		chain:      chain,
		limiter:    cfg.Limiter,
		bypass:     bypass,
		challenge:  fmt.Sprintf("Basic realm=%s, charset=\"UTF-8\"", strconv.Quote(realm)),
		production: cfg.Production,
		disabled:   cfg.Disabled,
		logger:     logger,
	}
}

// Middleware creates HTTP middleware from cfg. It checks the bypass list,
// runs authentication, enforces rate limits, and injects the identity and
// tenant scope into the request context.
func Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	return NewAuthorizer(cfg).Handler
}

// Decide returns the authorization decision for r. It never panics and
// always returns one of the four outcomes.
func (a *Authorizer) Decide(ctx context.Context, r *http.Request) Decision {
	if a.disabled || a.bypassed(r.URL.Path) {
		return Decision{Outcome: OutcomeAnonymous}
	}

	result := a.chain.Authenticate(ctx, r)
	switch result.Decision {
	case Yes:
		id := Gate(result.Identity)
		if id == nil {
			return Decision{Outcome: OutcomeLookupFailed, Err: errors.New("authenticator accepted without an identity")}
		}
		id.ServiceTier = TierOf(id)
		return Decision{Outcome: OutcomeAuthenticated, Identity: id}
	case Error:
		return Decision{Outcome: OutcomeLookupFailed, Err: result.Err}
	default:
		return Decision{Outcome: OutcomeUnauthorized, Err: result.Err}
	}
}

func (a *Authorizer) bypassed(path string) bool {
	path = strings.ToLower(path)
	for _, prefix := range a.bypass {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Handler wraps next with the authorization gate.
func (a *Authorizer) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		dec := a.Decide(ctx, r)

		origin := "none"
		if dec.Identity != nil {
			origin = dec.Identity.Origin.String()
		}
		observability.AuthDecisionsTotal.WithLabelValues(dec.Outcome.String(), origin).Inc()

		switch dec.Outcome {
		case OutcomeUnauthorized:
			debug.Log("auth", "request rejected",
				"path", r.URL.Path,
				"reason", dec.Err,
			)
			w.Header().Set("WWW-Authenticate", a.challenge)
			transport.WriteAPIError(w, api.NewUnauthenticatedError("Authentication required"), false)
			return

		case OutcomeLookupFailed:
			a.logger.Error("identity lookup failed",
				"request_id", transport.RequestIDFromContext(ctx),
				"path", r.URL.Path,
				"error", dec.Err,
			)
			transport.WriteAPIError(w, api.NewServerError("Internal server error", dec.Err), !a.production)
			return
		}

		if !a.allow(w, r, dec.Identity) {
			return
		}

		if id := dec.Identity; id != nil {
			debug.Log("auth", "authenticated",
				"user", debug.Mask(id.Email),
				"origin", id.Origin.String(),
				"path", r.URL.Path,
			)
			ctx = SetIdentity(ctx, id)

			// Platform administrators keep cross-tenant visibility.
			if id.TenantID != "" && !IsPlatformAdmin(id) {
				ctx = storage.SetTenant(ctx, id.TenantID)
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// allow applies the rate limiter and writes the 429 response when the
// caller is over its limit.
func (a *Authorizer) allow(w http.ResponseWriter, r *http.Request, id *Identity) bool {
	if a.limiter == nil {
		return true
	}

	subject := id
	if subject == nil {
		subject = &Identity{ID: "addr:" + clientAddr(r)}
	}

	err := a.limiter.Allow(r.Context(), subject)
	if err == nil {
		return true
	}
	if !errors.Is(err, ErrTooManyRequests) {
		// Limiter failures fail open.
		a.logger.Warn("rate limiter error", "error", err)
		return true
	}

	tier := TierOf(subject)
	a.logger.Warn("rate limit exceeded", "subject", subject.ID, "tier", tier)
	observability.RateLimitRejectedTotal.WithLabelValues(tier).Inc()

	var limitErr *LimitError
	if errors.As(err, &limitErr) && limitErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(limitErr.RetryAfter.Seconds()))))
	}
	transport.WriteAPIError(w, api.NewTooManyRequestsError("Too many requests, please slow down."), false)
	return false
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
