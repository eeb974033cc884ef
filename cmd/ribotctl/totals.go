package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTotalsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "totals",
		Short: "Maintain stored document totals",
	}

	var (
		tenantSlug string
		dryRun     bool
	)
	recompute := &cobra.Command{
		Use:   "recompute",
		Short: "Recalculate the totals of draft quotes and invoices from their items",
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
			res, err := e.recomputer.Tenant(ctx, tenant.ID, dryRun)
			if err != nil {
				return err
			}
			if dryRun {
				e.log.Info("Dry run, nothing saved", zap.String("tenant", tenant.Slug))
			}
			return render(cmd.OutOrStdout(), flags.output, res)
		},
	}
	recompute.Flags().StringVar(&tenantSlug, "tenant", "", "Tenant slug")
	recompute.Flags().BoolVar(&dryRun, "dry-run", false, "Report the corrections without saving them")
	_ = recompute.MarkFlagRequired("tenant")

	cmd.AddCommand(recompute)
	return cmd
}
