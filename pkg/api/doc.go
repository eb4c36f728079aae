// Package api defines the domain and wire types for tenantgate.
//
// The package covers the two persisted entities ([User] and [Tenant]), the
// request/response bodies of the HTTP API ([SignupRequest], [SignupResult],
// [Me], [TenantStatusUpdate]), structured errors ([APIError]) and ID
// generation. It performs no I/O.
//
// Roles and tenant states are closed sets: [ParseRole] and
// [ParseTenantStatus] reject anything outside them.
package api
