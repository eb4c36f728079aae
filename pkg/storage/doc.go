// Package storage defines the persistence contract of tenantgate and the
// helpers shared by its adapters: sentinel errors and tenant context
// propagation.
//
// Adapters (memory, postgres) implement [Store]. The authentication core
// depends only on the narrow [Directory] capability; the signup workflow
// and platform routes use [UserStore] and [TenantStore].
package storage
