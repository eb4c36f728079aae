package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rhuss/tenantgate/pkg/api"
	"github.com/rhuss/tenantgate/pkg/storage"
)

var publicPrefixes = []string{"/api/health", "/api/signup"}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_BypassPrefix(t *testing.T) {
	mw := Middleware(MiddlewareConfig{Chain: NewChain(), Bypass: []string{"/api/health"}, Logger: quietLogger()})
	handler := mw(okHandler())

	for _, path := range []string{"/api/health", "/API/Health", "/api/health/deep"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, rec.Code)
		}
	}
}

func TestMiddleware_BypassIgnoresCredentials(t *testing.T) {
	failing := &mockAuthn{result: Failed(errors.New("db down"))}
	mw := Middleware(MiddlewareConfig{Chain: NewChain(failing), Bypass: publicPrefixes, Logger: quietLogger()})

	req := httptest.NewRequest("POST", "/api/signup", nil)
	req.Header.Set("Authorization", basic("admin:wrong"))
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if failing.calls != 0 {
		t.Error("bypassed requests must not run the chain")
	}
}

func TestMiddleware_NoCredentials_Challenges(t *testing.T) {
	mw := Middleware(MiddlewareConfig{Chain: NewChain(), Logger: quietLogger()})

	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, httptest.NewRequest("GET", "/api/me", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if got := rec.Header().Get("WWW-Authenticate"); got != `Basic realm="App", charset="UTF-8"` {
		t.Errorf("WWW-Authenticate = %q", got)
	}

	var body map[string]string
	json.NewDecoder(rec.Body).Decode(&body)
	if body["error"] != "Authentication required" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestMiddleware_CustomRealm(t *testing.T) {
	mw := Middleware(MiddlewareConfig{Chain: NewChain(), Realm: "Acme Portal", Logger: quietLogger()})

	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, httptest.NewRequest("GET", "/api/me", nil))

	if got := rec.Header().Get("WWW-Authenticate"); got != `Basic realm="Acme Portal", charset="UTF-8"` {
		t.Errorf("WWW-Authenticate = %q", got)
	}
}

func TestMiddleware_LookupFailure(t *testing.T) {
	cause := errors.New("connection refused")
	chain := NewChain(&mockAuthn{result: Failed(cause)})

	tests := []struct {
		name        string
		production  bool
		wantDetails bool
	}{
		{"development", false, true},
		{"production", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := Middleware(MiddlewareConfig{Chain: chain, Production: tt.production, Logger: quietLogger()})

			req := httptest.NewRequest("GET", "/api/me", nil)
			req.Header.Set("Authorization", basic("a@acme.com:pw"))
			rec := httptest.NewRecorder()
			mw(okHandler()).ServeHTTP(rec, req)

			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", rec.Code)
			}
			if rec.Header().Get("WWW-Authenticate") != "" {
				t.Error("lookup failures must not challenge")
			}

			var body api.ErrorResponse
			json.NewDecoder(rec.Body).Decode(&body)
			if (body.Details != "") != tt.wantDetails {
				t.Errorf("details = %q, wantDetails = %v", body.Details, tt.wantDetails)
			}
		})
	}
}

func TestMiddleware_ValidAuth_InjectsIdentityAndTenant(t *testing.T) {
	chain := NewChain(&mockAuthn{result: Accept(&Identity{
		ID:           "u1",
		Role:         api.RoleCompanyAdmin,
		TenantID:     "org-1",
		TenantStatus: api.TenantStatusPending,
	})})
	mw := Middleware(MiddlewareConfig{Chain: chain, Logger: quietLogger()})

	var gotTenant string
	var gotID *Identity
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant = storage.GetTenant(r.Context())
		gotID = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Authorization", basic("a@acme.com:pw"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (pending tenants still authenticate)", rec.Code)
	}
	if gotID == nil || gotID.ID != "u1" {
		t.Errorf("identity = %+v", gotID)
	}
	if gotTenant != "org-1" {
		t.Errorf("tenant = %q, want org-1", gotTenant)
	}
}

func TestMiddleware_PlatformAdminNotTenantScoped(t *testing.T) {
	chain := NewChain(&mockAuthn{result: Accept(&Identity{ID: "p", Role: api.RolePlatformAdmin, TenantID: "org-1"})})
	mw := Middleware(MiddlewareConfig{Chain: chain, Logger: quietLogger()})

	gotTenant := "unset"
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant = storage.GetTenant(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/platform/tenants", nil)
	req.Header.Set("Authorization", basic("p:pw"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotTenant != "" {
		t.Errorf("platform admin should not be tenant scoped, got %q", gotTenant)
	}
}

func TestMiddleware_Disabled(t *testing.T) {
	mw := Middleware(MiddlewareConfig{Chain: NewChain(), Disabled: true, Logger: quietLogger()})

	var gotID *Identity
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/me", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if gotID != nil {
		t.Error("disabled gate must not attach an identity")
	}
}

func TestMiddleware_RateLimited(t *testing.T) {
	chain := NewChain(&mockAuthn{result: Accept(&Identity{ID: "u1"})})
	limiter := NewInProcessLimiter(nil, 2)
	handler := Middleware(MiddlewareConfig{Chain: chain, Limiter: limiter, Logger: quietLogger()})(okHandler())

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/api/me", nil)
		req.Header.Set("Authorization", basic("u:p"))
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: status = %d, want 429", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Error("429 should carry Retry-After")
	}

	var body map[string]string
	json.NewDecoder(last.Body).Decode(&body)
	if body["error"] != "Too many requests, please slow down." {
		t.Errorf("error = %q", body["error"])
	}
}

func TestMiddleware_TierCapAppliesToEnvironmentAdmin(t *testing.T) {
	chain := NewChain(&mockAuthn{result: Accept(&Identity{
		ID:           "env-super-admin",
		IsSuperAdmin: true,
		Origin:       OriginEnvironment,
	})})
	limiter := NewInProcessLimiter(map[string]TierConfig{
		TierEnvironment: {RequestsPerMinute: 1},
	}, 0)

	var tier string
	handler := Middleware(MiddlewareConfig{Chain: chain, Limiter: limiter, Logger: quietLogger()})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tier = IdentityFromContext(r.Context()).ServiceTier
			w.WriteHeader(http.StatusOK)
		}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/api/me", nil)
		req.Header.Set("Authorization", basic("admin:pw"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if tier != TierEnvironment {
		t.Errorf("ServiceTier = %q, want %q", tier, TierEnvironment)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests || codes[2] != http.StatusTooManyRequests {
		t.Errorf("status codes = %v, want [200 429 429]", codes)
	}
}

func TestMiddleware_RateLimitsAnonymousByAddress(t *testing.T) {
	limiter := NewInProcessLimiter(nil, 1)
	handler := Middleware(MiddlewareConfig{Chain: NewChain(), Limiter: limiter, Bypass: publicPrefixes, Logger: quietLogger()})(okHandler())

	send := func(addr string) int {
		req := httptest.NewRequest("GET", "/api/health", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("10.0.0.1:1111"); code != http.StatusOK {
		t.Errorf("first: %d", code)
	}
	if code := send("10.0.0.1:2222"); code != http.StatusTooManyRequests {
		t.Errorf("same host, new port: %d, want 429", code)
	}
	if code := send("10.0.0.2:1111"); code != http.StatusOK {
		t.Errorf("other host: %d, want 200", code)
	}
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, *Identity) error { return errors.New("backend down") }

func TestMiddleware_LimiterFailsOpen(t *testing.T) {
	chain := NewChain(&mockAuthn{result: Accept(&Identity{ID: "u1"})})
	handler := Middleware(MiddlewareConfig{Chain: chain, Limiter: brokenLimiter{}, Logger: quietLogger()})(okHandler())

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Authorization", basic("u:p"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestDecide_Outcomes(t *testing.T) {
	tests := []struct {
		name   string
		chain  *AuthChain
		path   string
		header string
		want   Outcome
	}{
		{"bypass", NewChain(), "/api/health", "", OutcomeAnonymous},
		{"no credentials", NewChain(), "/api/me", "", OutcomeUnauthorized},
		{"rejected", NewChain(&mockAuthn{result: Reject(ErrInvalidCredentials)}), "/api/me", basic("a:b"), OutcomeUnauthorized},
		{"accepted", NewChain(&mockAuthn{result: Accept(&Identity{ID: "x"})}), "/api/me", basic("a:b"), OutcomeAuthenticated},
		{"lookup failed", NewChain(&mockAuthn{result: Failed(errors.New("x"))}), "/api/me", basic("a:b"), OutcomeLookupFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAuthorizer(MiddlewareConfig{Chain: tt.chain, Bypass: publicPrefixes})
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			dec := a.Decide(req.Context(), req)
			if dec.Outcome != tt.want {
				t.Errorf("Outcome = %v, want %v", dec.Outcome, tt.want)
			}
			if (dec.Identity != nil) != (tt.want == OutcomeAuthenticated) {
				t.Errorf("Identity presence mismatch for %v", dec.Outcome)
			}
		})
	}
}
