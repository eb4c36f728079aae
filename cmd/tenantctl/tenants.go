package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rhuss/tenantgate/pkg/api"
	"github.com/rhuss/tenantgate/pkg/storage"
)

func newTenantsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "List tenants and change their approval status",
	}
	cmd.AddCommand(
		newTenantsListCommand(opts),
		newTenantsSetStatusCommand(opts),
	)
	return cmd
}

func newTenantsListCommand(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tenants, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output != "table" && output != "json" {
				return fmt.Errorf("--output must be \"table\" or \"json\", got %q", output)
			}
			return opts.withStore(cmd.Context(), func(s ctlStore) error {
				tenants, err := s.ListTenants(cmd.Context())
				if err != nil {
					return err
				}
				if output == "json" {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(tenants)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tCREATED")
				for _, t := range tenants {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Status, t.CreatedAt.Format(time.RFC3339))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table or json")
	return cmd
}

func newTenantsSetStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "set-status <tenant-id> <pending|active>",
		Short:   "Approve or suspend a tenant",
		Example: "  tenantctl tenants set-status 6f1c2d2e-3a4b-4c5d-8e9f-0a1b2c3d4e5f active",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := api.ParseTenantStatus(args[1])
			if err != nil {
				return err
			}
			return opts.withStore(cmd.Context(), func(s ctlStore) error {
				t, err := s.UpdateTenantStatus(cmd.Context(), args[0], status)
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("tenant %s not found", args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Tenant %s (%s) is now %s\n", t.ID, t.Name, t.Status)
				return nil
			})
		},
	}
}
