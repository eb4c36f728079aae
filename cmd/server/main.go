// Command server runs the tenantgate API.
//
// Configuration is read from a YAML file (see -config, TENANTGATE_CONFIG)
// and environment variables. The most common ones:
//
//	PORT / TENANTGATE_PORT          - Listen port (default: 8080)
//	DATABASE_URL                    - PostgreSQL DSN, selects the postgres store
//	SKIP_DB=true                    - Stub mode: no database, any credentials accepted
//	SKIP_AUTH=true                  - Disable authentication entirely
//	BASIC_AUTH_USER / _PASSWORD     - Environment super admin (RENDER_AUTH_* also accepted)
//	NODE_ENV / TENANTGATE_ENV       - "production" hides error details
//	TENANTGATE_DEBUG                - Debug categories (e.g. "auth,storage")
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/rhuss/tenantgate/pkg/auth"
	"github.com/rhuss/tenantgate/pkg/auth/setup"
	"github.com/rhuss/tenantgate/pkg/config"
	"github.com/rhuss/tenantgate/pkg/debug"
	"github.com/rhuss/tenantgate/pkg/signup"
	"github.com/rhuss/tenantgate/pkg/storage"
	"github.com/rhuss/tenantgate/pkg/storage/memory"
	"github.com/rhuss/tenantgate/pkg/storage/postgres"
	transporthttp "github.com/rhuss/tenantgate/pkg/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	debug.Init(cfg.Logging.Debug, cfg.Logging.Level, cfg.Logging.Format)
	logger := slog.Default()

	ctx := context.Background()

	// Stub mode never opens a store; the routes that need one answer 503.
	var store storage.Store
	if !cfg.Auth.StubMode {
		store, err = newStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	backend := transporthttp.Backend{}
	if store != nil {
		backend = transporthttp.Backend{
			Signup:  signup.New(store, store, logger),
			Tenants: store,
			Health:  store,
		}
	}

	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metricsPath = cfg.Observability.Metrics.Path
	}

	opts := []transporthttp.ServerOption{
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithProduction(cfg.Production()),
		transporthttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		transporthttp.WithGate(auth.Middleware(setup.FromConfig(cfg, store, logger))),
		transporthttp.WithMetricsPath(metricsPath),
		transporthttp.WithLogger(logger),
	}

	logStartup(logger, cfg)
	return transporthttp.NewServer(backend, opts...).ListenAndServe()
}

func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Type {
	case "postgres":
		pg := cfg.Storage.Postgres
		s, err := postgres.New(ctx, postgres.Config{
			DSN:            pg.DSN,
			MaxConns:       pg.MaxConns,
			QueryTimeout:   pg.QueryTimeout,
			MigrateOnStart: pg.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("creating postgres store: %w", err)
		}
		return s, nil
	default:
		return memory.New(), nil
	}
}

func logStartup(logger *slog.Logger, cfg *config.Config) {
	mode := "db"
	if cfg.Auth.StubMode {
		mode = "stub"
		logger.Warn("stub mode: no database, any Basic credentials are accepted as a super admin")
		if cfg.Production() {
			logger.Warn("stub mode is enabled in production")
		}
	}
	if !cfg.Auth.Enabled {
		logger.Warn("authentication is disabled")
	}
	if cfg.Auth.SuperAdmin.Configured() {
		logger.Info("environment super admin configured", "user", debug.Mask(cfg.Auth.SuperAdmin.Username))
	}
	logger.Info("starting tenantgate",
		"port", cfg.Server.Port,
		"mode", mode,
		"storage", cfg.Storage.Type,
		"environment", cfg.Server.Environment,
		"rate_limit", cfg.Auth.RateLimit.Enabled,
	)
}
