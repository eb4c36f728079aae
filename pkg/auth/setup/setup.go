// Package setup assembles the authorization gate from configuration.
//
// The strategy is fixed at process start: with a directory the environment
// super admin is followed by stored users; without one it is followed by
// the stub, which accepts any Basic credentials.
package setup

import (
	"log/slog"

	"github.com/rhuss/tenantgate/pkg/auth"
	"github.com/rhuss/tenantgate/pkg/auth/directory"
	"github.com/rhuss/tenantgate/pkg/auth/envadmin"
	"github.com/rhuss/tenantgate/pkg/auth/stub"
	"github.com/rhuss/tenantgate/pkg/config"
	"github.com/rhuss/tenantgate/pkg/storage"
)

// Mode names the authentication strategy chosen at startup.
type Mode string

const (
	ModeDirectory Mode = "db"
	ModeStub      Mode = "stub"
)

// ModeOf reports which strategy FromConfig picks for dir.
func ModeOf(dir storage.Directory) Mode {
	if dir == nil {
		return ModeStub
	}
	return ModeDirectory
}

// Chain builds the authenticator chain. A nil dir selects stub mode.
func Chain(sa config.SuperAdminConfig, dir storage.Directory, logger *slog.Logger) *auth.AuthChain {
	if ModeOf(dir) == ModeStub {
		return auth.NewChain(
			envadmin.New(sa.Username, sa.Password, nil),
			stub.New(sa.Username),
		)
	}
	return auth.NewChain(
		envadmin.New(sa.Username, sa.Password, dir),
		directory.New(dir, logger),
	)
}

// Limiter returns the rate limiter for rl, or nil when limiting is off.
// Tier names match auth.TierOf: "environment", "stub", or a role name.
func Limiter(rl config.RateLimitConfig) auth.RateLimiter {
	if !rl.Enabled {
		return nil
	}
	tiers := make(map[string]auth.TierConfig, len(rl.Tiers))
	for name, rpm := range rl.Tiers {
		tiers[name] = auth.TierConfig{RequestsPerMinute: rpm}
	}
	return auth.NewInProcessLimiter(tiers, rl.RequestsPerMinute)
}

// FromConfig returns the middleware configuration for cfg. dir is nil in
// stub mode.
func FromConfig(cfg *config.Config, dir storage.Directory, logger *slog.Logger) auth.MiddlewareConfig {
	return auth.MiddlewareConfig{
		Chain:      Chain(cfg.Auth.SuperAdmin, dir, logger),
		Limiter:    Limiter(cfg.Auth.RateLimit),
		Bypass:     cfg.Auth.Bypass,
		Realm:      cfg.Auth.Realm,
		Production: cfg.Production(),
		Disabled:   !cfg.Auth.Enabled,
		Logger:     logger,
	}
}
