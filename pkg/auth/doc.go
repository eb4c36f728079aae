// Package auth is the authentication and tenant-authorization gate of
// tenantgate.
//
// Authentication uses a chain-of-responsibility pattern with voting: each
// authenticator returns Yes (identity found), No (credentials invalid),
// Abstain (can't handle), or Error (the lookup behind the vote failed).
// The first non-abstaining vote wins; when all abstain the request is
// unauthenticated.
//
// Credentials are HTTP Basic on every request. Which authenticators make
// up the chain (environment super admin, stored users, or the stub used
// when no database is configured) is decided once at process start.
//
// Auth is implemented as HTTP middleware, keeping it decoupled from the
// business routes. The middleware injects the resolved Identity and the
// tenant scope into the request context. Tenant lifecycle is not enforced
// here; routes that need an active tenant use RequireActiveTenant.
package auth
