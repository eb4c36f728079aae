// Package integration provides end-to-end tests for the tenantgate API.
//
// Tests run against a fully wired server (auth chain, rate limiter,
// middleware stack, in-memory store) started in-process using
// net/http/httptest.
package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/rhuss/tenantgate/pkg/api"
	"github.com/rhuss/tenantgate/pkg/auth"
	"github.com/rhuss/tenantgate/pkg/auth/password"
	"github.com/rhuss/tenantgate/pkg/auth/setup"
	"github.com/rhuss/tenantgate/pkg/config"
	"github.com/rhuss/tenantgate/pkg/signup"
	"github.com/rhuss/tenantgate/pkg/storage"
	"github.com/rhuss/tenantgate/pkg/storage/memory"
	transporthttp "github.com/rhuss/tenantgate/pkg/transport/http"
)

// Environment super admin credentials used by the default test server.
const (
	envAdminUser     = "admin"
	envAdminPassword = "Password1"
)

// testEnv is the shared server for tests that do not need special wiring.
var testEnv *TestEnvironment

// TestEnvironment holds one tenantgate server and its store.
type TestEnvironment struct {
	Server *httptest.Server
	Store  *memory.Store
}

// envOptions tweaks the server wiring.
type envOptions struct {
	stubMode   bool
	production bool
	rpm        int
	tiers      map[string]int
}

// TestMain starts the shared server before running tests.
func TestMain(m *testing.M) {
	testEnv = newEnvironment(envOptions{})
	code := m.Run()
	testEnv.Teardown()
	os.Exit(code)
}

// newEnvironment wires a server the way cmd/server does.
func newEnvironment(opts envOptions) *TestEnvironment {
	store := memory.New()

	cfg := config.Defaults()
	cfg.Auth.SuperAdmin = config.SuperAdminConfig{Username: envAdminUser, Password: envAdminPassword}
	cfg.Auth.StubMode = opts.stubMode
	cfg.Auth.RateLimit.Enabled = opts.rpm > 0 || len(opts.tiers) > 0
	cfg.Auth.RateLimit.RequestsPerMinute = opts.rpm
	cfg.Auth.RateLimit.Tiers = opts.tiers
	if opts.production {
		cfg.Server.Environment = config.EnvProduction
	}

	var (
		dir     storage.Directory
		backend transporthttp.Backend
	)
	if !opts.stubMode {
		dir = store
		backend = transporthttp.Backend{
			Signup:  signup.New(store, store, nil),
			Tenants: store,
			Health:  store,
		}
	}

	srv := transporthttp.NewServer(backend,
		transporthttp.WithGate(auth.Middleware(setup.FromConfig(&cfg, dir, nil))),
		transporthttp.WithProduction(cfg.Production()),
	)

	return &TestEnvironment{
		Server: httptest.NewServer(srv.Handler()),
		Store:  store,
	}
}

// Teardown stops the server.
func (env *TestEnvironment) Teardown() {
	if env.Server != nil {
		env.Server.Close()
	}
}

// BaseURL returns the server base URL.
func (env *TestEnvironment) BaseURL() string {
	return env.Server.URL
}

// seedUser stores a user with the given password, hashed with the minimum
// bcrypt cost to keep tests fast.
func (env *TestEnvironment) seedUser(t *testing.T, u *api.User, plain string) {
	t.Helper()
	hash, err := password.HashWithCost(plain, 4)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	u.PasswordHash = hash
	if err := env.Store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seeding user %s: %v", u.Email, err)
	}
}

// --- HTTP helpers ---

type credentials struct {
	user, password string
}

func as(user, password string) *credentials {
	return &credentials{user: user, password: password}
}

// request sends a request with an optional JSON body and Basic credentials.
func (env *TestEnvironment) request(t *testing.T, method, path string, creds *credentials, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, env.BaseURL()+path, r)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if creds != nil {
		req.SetBasicAuth(creds.user, creds.password)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// decodeJSON reads the response body and decodes it into the target.
func decodeJSON(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decoding JSON: %v", err)
	}
}

// expectStatus fails the test unless resp has the wanted status. The body
// is closed on failure.
func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("%s %s: status = %d, want %d (body %s)",
			resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, body)
	}
}

// expectError checks the status and the "error" message of a JSON error
// response.
func expectError(t *testing.T, resp *http.Response, status int, message string) api.ErrorResponse {
	t.Helper()
	expectStatus(t, resp, status)
	var body api.ErrorResponse
	decodeJSON(t, resp, &body)
	if message != "" && body.Error != message {
		t.Errorf("error = %q, want %q", body.Error, message)
	}
	return body
}
