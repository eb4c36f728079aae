package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rhuss/tenantgate/pkg/api"
	"github.com/rhuss/tenantgate/pkg/auth/password"
)

// Default administrator created by "tenantctl seed".
const (
	defaultAdminEmail       = "admin"
	defaultAdminPassword    = "Password1"
	defaultAdminDisplayName = "Admin"
)

type seedOptions struct {
	email       string
	password    string
	displayName string
}

func newSeedCommand(opts *rootOptions) *cobra.Command {
	so := &seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Ensure the default platform administrator exists",
		Long: `Ensure the default platform administrator exists.

An existing user with the same email is left untouched, so seeding is safe
to run on every deploy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withStore(cmd.Context(), func(s ctlStore) error {
				hash, err := password.Hash(so.password)
				if err != nil {
					return fmt.Errorf("hashing password: %w", err)
				}
				email := api.NormalizeEmail(strings.TrimSpace(so.email))
				created, err := s.EnsureUser(cmd.Context(), &api.User{
					Email:        email,
					DisplayName:  so.displayName,
					PasswordHash: hash,
					Role:         api.RolePlatformAdmin,
					IsSuperAdmin: true,
				})
				if err != nil {
					return fmt.Errorf("seeding admin: %w", err)
				}
				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "Seed: admin user %q created\n", email)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Seed: admin user %q already exists\n", email)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&so.email, "email", defaultAdminEmail, "login name of the administrator")
	cmd.Flags().StringVar(&so.password, "password", defaultAdminPassword, "initial password")
	cmd.Flags().StringVar(&so.displayName, "display-name", defaultAdminDisplayName, "display name")
	return cmd
}
