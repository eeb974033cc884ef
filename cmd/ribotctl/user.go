package main

import (
	identityapp "github.com/ribotflow/backend/internal/application/identity"
	"github.com/spf13/cobra"
)

func newUserCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users of a tenant",
	}

	var (
		tenantSlug string
		actorEmail string
		req        identityapp.CreateUserRequest
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Add a user to a tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := connect(cmd, flags)
			if err != nil {
				return err
			}
			defer e.close()

			ctx := cmd.Context()
			tenant, err := e.tenantBySlug(ctx, tenantSlug)
			if err != nil {
				return err
			}
			actor, err := e.actor(ctx, tenant, actorEmail)
			if err != nil {
				return err
			}
			resp, err := e.userSvc.Create(ctx, tenant.ID, actor.ID, req)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), flags.output, resp)
		},
	}
	create.Flags().StringVar(&tenantSlug, "tenant", "", "Tenant slug")
	create.Flags().StringVar(&actorEmail, "as", "", "Email of the owner or admin granting access")
	create.Flags().StringVar(&req.Email, "email", "", "Login email")
	create.Flags().StringVar(&req.FullName, "name", "", "Full name")
	create.Flags().StringVar(&req.Password, "password", "", "Password, at least 8 characters")
	create.Flags().StringVar(&req.Role, "role", "member", "Role (owner, admin, member, viewer)")
	for _, f := range []string{"tenant", "as", "email", "password"} {
		_ = create.MarkFlagRequired(f)
	}

	cmd.AddCommand(create)
	return cmd
}
