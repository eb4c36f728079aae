package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rhuss/tenantgate/pkg/config"
	"github.com/rhuss/tenantgate/pkg/debug"
	"github.com/rhuss/tenantgate/pkg/storage"
	"github.com/rhuss/tenantgate/pkg/storage/postgres"
)

// ctlStore is the store surface the commands need.
type ctlStore interface {
	storage.Store
	Migrate(ctx context.Context) error
}

// openStore is replaced in tests.
var openStore = func(ctx context.Context, cfg *config.Config) (ctlStore, error) {
	if cfg.Storage.Type != "postgres" {
		return nil, fmt.Errorf("tenantctl needs storage.type \"postgres\" (set DATABASE_URL), got %q", cfg.Storage.Type)
	}
	pg := cfg.Storage.Postgres
	s, err := postgres.New(ctx, postgres.Config{
		DSN:          pg.DSN,
		MaxConns:     2,
		QueryTimeout: pg.QueryTimeout,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "tenantctl",
		Short:         "Operate a tenantgate deployment",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(*cobra.Command, []string) {
			debug.Init("", "", "text")
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file")

	cmd.AddCommand(
		newMigrateCommand(opts),
		newSeedCommand(opts),
		newTenantsCommand(opts),
	)
	return cmd
}

// withStore loads the configuration, opens the store and runs fn.
func (o *rootOptions) withStore(ctx context.Context, fn func(ctlStore) error) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}
