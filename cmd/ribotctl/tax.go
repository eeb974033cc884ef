package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newTaxCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tax",
		Short: "Manage the tax catalog of a tenant",
	}

	var tenantSlug string
	importCmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import tax rates from a YAML catalog",
		Long: "Import a YAML tax catalog (a top-level taxes: list) into the tenant.\n" +
			"Rates are matched by name: existing ones are updated, new ones created.\n" +
			"Use - to read standard input.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

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
			res, err := e.taxSvc.Import(ctx, tenant.ID, in)
			if err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			return render(cmd.OutOrStdout(), flags.output, res)
		},
	}
	importCmd.Flags().StringVar(&tenantSlug, "tenant", "", "Tenant slug")
	_ = importCmd.MarkFlagRequired("tenant")

	cmd.AddCommand(importCmd)
	return cmd
}
