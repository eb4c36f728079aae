package storage

import (
	"context"
	"testing"
)

func TestSetGetTenant(t *testing.T) {
	ctx := context.Background()

	// Platform-level caller: no tenant.
	if got := GetTenant(ctx); got != "" {
		t.Errorf("GetTenant(empty ctx) = %q, want %q", got, "")
	}

	ctx = SetTenant(ctx, "tenant-acme")
	if got := GetTenant(ctx); got != "tenant-acme" {
		t.Errorf("GetTenant = %q, want %q", got, "tenant-acme")
	}

	ctx = SetTenant(ctx, "tenant-globex")
	if got := GetTenant(ctx); got != "tenant-globex" {
		t.Errorf("GetTenant = %q, want %q", got, "tenant-globex")
	}
}

func TestGetTenant_NoCollision(t *testing.T) {
	type otherKey string
	ctx := context.WithValue(context.Background(), otherKey("tenant"), "wrong")
	if got := GetTenant(ctx); got != "" {
		t.Errorf("GetTenant should not match a foreign key, got %q", got)
	}
}
