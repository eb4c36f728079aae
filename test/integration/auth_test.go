package integration

import (
	"net/http"
	"strings"
	"testing"

	"github.com/rhuss/tenantgate/pkg/api"
)

func TestMissingCredentialsAreChallenged(t *testing.T) {
	resp := testEnv.request(t, http.MethodGet, "/api/me", nil, "")
	if got := resp.Header.Get("WWW-Authenticate"); got != `Basic realm="App", charset="UTF-8"` {
		t.Errorf("WWW-Authenticate = %q", got)
	}
	expectError(t, resp, http.StatusUnauthorized, "Authentication required")
}

func TestMalformedCredentialsAreTreatedAsAbsent(t *testing.T) {
	for _, header := range []string{"Bearer abc", "Basic !!!", "Basic " + "bm9jb2xvbg=="} {
		req, _ := http.NewRequest(http.MethodGet, testEnv.BaseURL()+"/api/me", nil)
		req.Header.Set("Authorization", header)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		expectError(t, resp, http.StatusUnauthorized, "Authentication required")
	}
}

func TestEnvSuperAdminWithoutRow(t *testing.T) {
	resp := testEnv.request(t, http.MethodGet, "/api/me", as(envAdminUser, envAdminPassword), "")
	expectStatus(t, resp, http.StatusOK)

	var raw map[string]any
	decodeJSON(t, resp, &raw)
	if raw["isSuperAdmin"] != true {
		t.Errorf("isSuperAdmin = %v, want true", raw["isSuperAdmin"])
	}
	if _, ok := raw["role"]; ok {
		t.Errorf("role should be absent for the synthetic admin, got %v", raw["role"])
	}
	if raw["id"] != "env-super-admin" {
		t.Errorf("id = %v, want env-super-admin", raw["id"])
	}
	if raw["tenantId"] != nil {
		t.Errorf("tenantId = %v, want null", raw["tenantId"])
	}
}

func TestEnvSuperAdminUsesStoredRow(t *testing.T) {
	env := newEnvironment(envOptions{})
	defer env.Teardown()

	env.seedUser(t, &api.User{
		Email:        envAdminUser,
		DisplayName:  "Stored Admin",
		Role:         api.RolePlatformAdmin,
		IsSuperAdmin: true,
	}, "a-different-password")

	// The environment pair wins even though the stored hash differs.
	resp := env.request(t, http.MethodGet, "/api/me", as(envAdminUser, envAdminPassword), "")
	expectStatus(t, resp, http.StatusOK)

	var me api.Me
	decodeJSON(t, resp, &me)
	if me.ID == "env-super-admin" {
		t.Error("expected the stored row's identity, got the synthetic one")
	}
	if me.DisplayName != "Stored Admin" || me.Role != api.RolePlatformAdmin {
		t.Errorf("me = %+v", me)
	}
}

func TestDirectoryUser(t *testing.T) {
	env := newEnvironment(envOptions{})
	defer env.Teardown()

	env.seedUser(t, &api.User{
		Email:       "ops@example.com",
		DisplayName: "Ops",
		Role:        api.RolePlatformAdmin,
	}, "s3cret:with:colons")

	// Usernames are matched case-insensitively; passwords verbatim.
	resp := env.request(t, http.MethodGet, "/api/me", as("OPS@example.com", "s3cret:with:colons"), "")
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	for _, creds := range []*credentials{
		as("ops@example.com", "S3CRET:with:colons"),
		as("ghost@example.com", "s3cret:with:colons"),
		as(envAdminUser, "wrong"),
	} {
		resp := env.request(t, http.MethodGet, "/api/me", creds, "")
		expectError(t, resp, http.StatusUnauthorized, "Authentication required")
	}
}

func TestStubMode(t *testing.T) {
	env := newEnvironment(envOptions{stubMode: true})
	defer env.Teardown()

	resp := env.request(t, http.MethodGet, "/api/me", as("anyone", "anything"), "")
	expectStatus(t, resp, http.StatusOK)
	var me api.Me
	decodeJSON(t, resp, &me)
	if me.ID != "stub-user" || !me.IsSuperAdmin {
		t.Errorf("stub identity = %+v", me)
	}

	// Without credentials the stub still challenges.
	resp = env.request(t, http.MethodGet, "/api/me", nil, "")
	expectError(t, resp, http.StatusUnauthorized, "Authentication required")

	resp = env.request(t, http.MethodPost, "/api/signup", nil,
		`{"companyName":"Acme","email":"a@acme.com","password":"pw"}`)
	expectError(t, resp, http.StatusServiceUnavailable, "Database not configured")

	resp = env.request(t, http.MethodGet, "/api/platform/tenants", as("anyone", "anything"), "")
	expectError(t, resp, http.StatusServiceUnavailable, "Database not configured")
}

func TestRateLimit(t *testing.T) {
	env := newEnvironment(envOptions{rpm: 2})
	defer env.Teardown()

	for i := 0; i < 2; i++ {
		resp := env.request(t, http.MethodGet, "/api/me", as(envAdminUser, envAdminPassword), "")
		expectStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	}

	resp := env.request(t, http.MethodGet, "/api/me", as(envAdminUser, envAdminPassword), "")
	if resp.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	expectError(t, resp, http.StatusTooManyRequests, "Too many requests, please slow down.")

	// Bypassed routes are not limited.
	resp = env.request(t, http.MethodGet, "/api/health", nil, "")
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestRateLimitTiers(t *testing.T) {
	env := newEnvironment(envOptions{tiers: map[string]int{"environment": 1}})
	defer env.Teardown()
	env.seedUser(t, &api.User{Email: "ops@example.com", Role: api.RolePlatformAdmin}, "pw")

	resp := env.request(t, http.MethodGet, "/api/me", as(envAdminUser, envAdminPassword), "")
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = env.request(t, http.MethodGet, "/api/me", as(envAdminUser, envAdminPassword), "")
	expectError(t, resp, http.StatusTooManyRequests, "Too many requests, please slow down.")

	// Stored platform admins fall into their own, unlimited tier.
	for i := 0; i < 3; i++ {
		resp = env.request(t, http.MethodGet, "/api/me", as("ops@example.com", "pw"), "")
		expectStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	}
}

func TestRequestIDPropagation(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, testEnv.BaseURL()+"/api/health", nil)
	req.Header.Set("X-Request-ID", "trace-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "trace-123" {
		t.Errorf("X-Request-ID = %q, want trace-123", got)
	}

	resp = testEnv.request(t, http.MethodGet, "/api/health", nil, "")
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); strings.TrimSpace(got) == "" {
		t.Error("server should generate a request ID")
	}
}
