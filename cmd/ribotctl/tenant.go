package main

import (
	identityapp "github.com/ribotflow/backend/internal/application/identity"
	"github.com/spf13/cobra"
)

func newTenantCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}

	var req identityapp.CreateTenantRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a tenant with its owner account and default tax rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := connect(cmd, flags)
			if err != nil {
				return err
			}
			defer e.close()

			resp, err := e.tenantSvc.Bootstrap(cmd.Context(), req)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), flags.output, resp)
		},
	}
	create.Flags().StringVar(&req.Name, "name", "", "Organisation name")
	create.Flags().StringVar(&req.Slug, "slug", "", "URL-safe identifier")
	create.Flags().StringVar(&req.OwnerEmail, "owner-email", "", "Owner login email")
	create.Flags().StringVar(&req.OwnerName, "owner-name", "", "Owner full name (defaults to the organisation name)")
	create.Flags().StringVar(&req.OwnerPassword, "owner-password", "", "Owner password, at least 8 characters")
	create.Flags().StringVar(&req.Locale, "locale", "", "Document locale, e.g. es-ES")
	create.Flags().StringVar(&req.Currency, "currency", "", "ISO 4217 currency code")
	for _, f := range []string{"name", "slug", "owner-email", "owner-password"} {
		_ = create.MarkFlagRequired(f)
	}

	get := &cobra.Command{
		Use:   "get <slug>",
		Short: "Show a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connect(cmd, flags)
			if err != nil {
				return err
			}
			defer e.close()

			t, err := e.tenantBySlug(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), flags.output, identityapp.ToTenantResponse(t))
		},
	}

	cmd.AddCommand(create, get)
	return cmd
}
