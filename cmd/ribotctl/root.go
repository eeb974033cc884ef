package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ribotflow/backend/internal/infrastructure/config"
	"github.com/ribotflow/backend/internal/infrastructure/logger"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type globalFlags struct {
	logLevel string
	output   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "ribotctl",
		Short:         "Administer RibotFlow tenants and data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch flags.output {
			case "json", "yaml":
				return nil
			}
			return fmt.Errorf("unknown output format %q (json, yaml)", flags.output)
		},
	}
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVarP(&flags.output, "output", "o", "yaml", "Output format (json, yaml)")

	cmd.AddCommand(
		newTenantCmd(flags),
		newUserCmd(flags),
		newTaxCmd(flags),
		newTotalsCmd(flags),
		newSeedCmd(flags),
	)
	return cmd
}

// connect loads the configuration and opens everything a command needs
func connect(cmd *cobra.Command, flags *globalFlags) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	log, err := logger.New(&logger.Config{
		Level:      flags.logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	return newEnv(cmd.Context(), cfg, log.Logger)
}

// render writes v as JSON or as YAML carrying the same field names
func render(w io.Writer, format string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if format == "json" {
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}

	// JSON is valid YAML; decoding into a node keeps the key order
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	blockStyle(&doc)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle | yaml.DoubleQuotedStyle
	for _, c := range n.Content {
		blockStyle(c)
	}
}
