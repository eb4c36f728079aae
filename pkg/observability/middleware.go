package observability

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// UnmatchedRoute labels requests that no registered route claimed.
const UnmatchedRoute = "unmatched"

type routeKey struct{}

type routeSlot struct {
	pattern string
}

// SetRoute records the mux pattern serving the request carried by ctx.
// It is a no-op outside MetricsMiddleware.
func SetRoute(ctx context.Context, pattern string) {
	if slot, ok := ctx.Value(routeKey{}).(*routeSlot); ok {
		slot.pattern = pattern
	}
}

// Route wraps h so that requests it serves are labeled with pattern.
func Route(pattern string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetRoute(r.Context(), pattern)
		h.ServeHTTP(w, r)
	})
}

// MetricsMiddleware wraps an HTTP handler to record request metrics.
// Inner handlers report the matched route through SetRoute or Route;
// anything else is recorded as UnmatchedRoute.
//
// It captures:
//   - tenantgate_requests_total (counter): method, status class, and route labels
//   - tenantgate_request_duration_seconds (histogram): duration with method and route labels
//   - tenantgate_requests_in_flight (gauge): incremented while a request is served
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		RequestsInFlight.Inc()
		defer RequestsInFlight.Dec()

		slot := &routeSlot{}
		r = r.WithContext(context.WithValue(r.Context(), routeKey{}, slot))

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := RouteLabel(slot.pattern)
		method := MethodLabel(r.Method)

		// Build a status class label like "2xx", "4xx", "5xx".
		statusStr := strconv.Itoa(sw.status/100) + "xx"

		RequestsTotal.WithLabelValues(method, statusStr, route).Inc()
		RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// RouteLabel turns a registered mux pattern into a route label. The
// method prefix is dropped, since method is a label of its own. The request
// path never becomes a label value.
func RouteLabel(pattern string) string {
	if _, path, ok := strings.Cut(pattern, " "); ok {
		pattern = path
	}
	if pattern == "" {
		return UnmatchedRoute
	}
	return pattern
}

// MethodLabel maps non-standard request methods to "OTHER".
func MethodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return method
	default:
		return "OTHER"
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

// WriteHeader captures the status code and delegates to the underlying writer.
func (w *statusWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

// Write delegates to the underlying writer and marks the status as written.
func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap returns the underlying ResponseWriter, enabling http.ResponseController
// and similar utilities to access the original writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
