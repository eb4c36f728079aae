package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/rhuss/tenantgate/pkg/api"
	"github.com/rhuss/tenantgate/pkg/auth"
	"github.com/rhuss/tenantgate/pkg/debug"
	"github.com/rhuss/tenantgate/pkg/observability"
	"github.com/rhuss/tenantgate/pkg/storage"
	"github.com/rhuss/tenantgate/pkg/transport"
)

// Adapter serves the tenantgate API over HTTP.
// It routes requests to the appropriate handler and serializes responses.
type Adapter struct {
	backend Backend
	mux     *http.ServeMux
	config  Config
	logger  *slog.Logger
}

// Backend bundles the services the handlers call. Signup and Tenants are
// nil in stub mode; the routes that need them then answer 503.
type Backend struct {
	Signup  transport.SignupService
	Tenants storage.TenantStore
	Health  transport.HealthChecker // optional, backs /api/health/ready
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
	Production  bool   // hides error details from clients
	MetricsPath string // empty disables the metrics endpoint
	Logger      *slog.Logger
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 1 << 20, // 1 MiB
		MetricsPath: "/metrics",
	}
}

// NewAdapter creates an HTTP adapter. The gate middleware (usually the
// auth middleware) wraps every /api route; a nil gate serves the API
// without authentication.
func NewAdapter(backend Backend, cfg Config, gate transport.Middleware) *Adapter {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &Adapter{
		backend: backend,
		mux:     http.NewServeMux(),
		config:  cfg,
		logger:  logger,
	}

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/health", a.handleHealth)
	apiMux.HandleFunc("GET /api/health/ready", a.handleReady)
	apiMux.HandleFunc("GET /api/me", a.handleMe)
	apiMux.HandleFunc("POST /api/signup", a.handleSignup)
	apiMux.Handle("GET /api/platform/tenants", auth.PlatformAdminOnly(http.HandlerFunc(a.handleListTenants)))
	apiMux.Handle("PATCH /api/platform/tenants/{id}", auth.PlatformAdminOnly(http.HandlerFunc(a.handleUpdateTenantStatus)))
	apiMux.Handle("GET /api/dashboard", auth.ActiveTenantOnly(http.HandlerFunc(a.handleDashboard)))
	apiMux.HandleFunc("/api/", notFound)

	var apiHandler http.Handler = apiMux
	if gate != nil {
		apiHandler = gate(apiHandler)
	}
	a.mux.Handle("/api/", labelRoutes(apiMux, apiHandler))

	if cfg.MetricsPath != "" {
		pattern := "GET " + cfg.MetricsPath
		a.mux.Handle(pattern, observability.Route(pattern, observability.Handler()))
	}
	a.mux.HandleFunc("/", notFound)

	return a
}

// labelRoutes reports the mux pattern that will serve r before next runs,
// so requests the gate rejects still carry their route. The catch-all
// leaves the route unmatched.
func labelRoutes(mux *http.ServeMux, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, pattern := mux.Handler(r); pattern != "/api/" {
			observability.SetRoute(r.Context(), pattern)
		}
		next.ServeHTTP(w, r)
	})
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest.
func (a *Adapter) Handler() http.Handler {
	return a.mux
}

// handleHealth handles GET /api/health. It reports liveness only.
func (a *Adapter) handleHealth(w http.ResponseWriter, _ *http.Request) {
	transport.WriteJSON(w, http.StatusOK, api.Health{OK: true})
}

// handleReady handles GET /api/health/ready, which also checks the store.
func (a *Adapter) handleReady(w http.ResponseWriter, r *http.Request) {
	if a.backend.Health != nil {
		if err := a.backend.Health.HealthCheck(r.Context()); err != nil {
			a.logger.Warn("readiness check failed", "error", err)
			transport.WriteAPIError(w, api.NewUnavailableError("Database unavailable"), false)
			return
		}
	}
	transport.WriteJSON(w, http.StatusOK, api.Health{OK: true})
}

// handleMe handles GET /api/me.
func (a *Adapter) handleMe(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	if id == nil {
		transport.WriteAPIError(w, api.NewUnauthenticatedError("Not authenticated"), false)
		return
	}
	transport.WriteJSON(w, http.StatusOK, id.Profile())
}

// handleSignup handles POST /api/signup.
func (a *Adapter) handleSignup(w http.ResponseWriter, r *http.Request) {
	if a.backend.Signup == nil {
		a.writeUnavailable(w)
		return
	}

	var req api.SignupRequest
	if !a.decodeBody(w, r, &req) {
		return
	}

	result, err := a.backend.Signup.Signup(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusCreated, result)
}

// handleListTenants handles GET /api/platform/tenants.
func (a *Adapter) handleListTenants(w http.ResponseWriter, r *http.Request) {
	if a.backend.Tenants == nil {
		a.writeUnavailable(w)
		return
	}

	tenants, err := a.backend.Tenants.ListTenants(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, tenants)
}

// handleUpdateTenantStatus handles PATCH /api/platform/tenants/{id}.
func (a *Adapter) handleUpdateTenantStatus(w http.ResponseWriter, r *http.Request) {
	if a.backend.Tenants == nil {
		a.writeUnavailable(w)
		return
	}

	var body api.TenantStatusUpdate
	if !a.decodeBody(w, r, &body) {
		return
	}
	status, err := api.ParseTenantStatus(body.Status)
	if err != nil {
		transport.WriteAPIError(w, api.NewInvalidRequestError("status", "Invalid status: "+err.Error()), false)
		return
	}

	id := r.PathValue("id")
	if !api.ValidateID(id) {
		transport.WriteAPIError(w, api.NewNotFoundError("Tenant not found"), false)
		return
	}

	tenant, err := a.backend.Tenants.UpdateTenantStatus(r.Context(), id, status)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	observability.TenantStatusChangesTotal.WithLabelValues(string(tenant.Status)).Inc()
	actor := ""
	if caller := auth.IdentityFromContext(r.Context()); caller != nil {
		actor = debug.Mask(caller.Email)
	}
	a.logger.Info("tenant status updated",
		"tenant_id", tenant.ID,
		"status", string(tenant.Status),
		"actor", actor,
	)
	transport.WriteJSON(w, http.StatusOK, tenant)
}

// handleDashboard handles GET /api/dashboard. The route is guarded by
// ActiveTenantOnly, so the caller is a platform admin or belongs to an
// active tenant.
func (a *Adapter) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if a.backend.Tenants == nil {
		a.writeUnavailable(w)
		return
	}

	id := auth.IdentityFromContext(r.Context())
	body := api.Dashboard{User: id.Profile()}
	if id.TenantID != "" {
		tenant, err := a.backend.Tenants.GetTenant(r.Context(), id.TenantID)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		body.Tenant = tenant
	}
	transport.WriteJSON(w, http.StatusOK, body)
}

// decodeBody reads a size-limited JSON body into v. An empty body decodes
// as an empty object so that missing fields are reported by validation.
// On failure it writes the error response and returns false.
func (a *Adapter) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	debug.Log("transport", "rejecting request body", "path", r.URL.Path, "error", err)

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("", "Request body too large"),
			http.StatusRequestEntityTooLarge, false)
		return false
	}
	transport.WriteAPIError(w, api.NewInvalidRequestError("", "Invalid JSON"), false)
	return false
}

// writeError maps a handler error to a JSON error response. Storage
// sentinels become 404 and 409; anything unrecognized is a logged 500.
func (a *Adapter) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *api.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.Is(err, storage.ErrNotFound):
		apiErr = api.NewNotFoundError("Tenant not found")
	case errors.Is(err, storage.ErrConflict):
		apiErr = api.NewConflictError("", "Conflict")
	default:
		apiErr = transport.AsAPIError(err)
	}

	if apiErr.Type == api.ErrorTypeServerError {
		a.logger.Error("request failed",
			"request_id", transport.RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	transport.WriteAPIError(w, apiErr, !a.config.Production)
}

func (a *Adapter) writeUnavailable(w http.ResponseWriter) {
	transport.WriteAPIError(w, api.NewUnavailableError("Database not configured"), false)
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	transport.WriteAPIError(w, api.NewNotFoundError("Not found"), false)
}
