// Package transport holds the HTTP plumbing shared by the tenantgate API:
// JSON error rendering, the service interfaces the HTTP adapter depends on,
// and the cross-cutting middleware chain.
//
// # Middleware
//
// Middleware wraps http.Handler. Built-in middleware provides panic
// recovery, request ID assignment (X-Request-ID), structured access logging
// via log/slog, CORS for the browser client, and security response headers.
// Chain(a, b, c) produces a(b(c(handler))).
//
// # Errors
//
// Every error leaves the process as {"error": "..."}; the status code is
// derived from the api.APIError type. When detailed errors are enabled
// (any environment other than production) server errors carry the wrapped
// cause under "details".
//
// HTTP serving uses net/http with Go 1.22+ ServeMux routing patterns, see
// the transport/http subpackage.
package transport
