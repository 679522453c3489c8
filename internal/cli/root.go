// Package cli holds the esgdash commands and process wiring.
package cli

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rpattn/esgdash/internal/config"
)

// NewRootCmd builds the esgdash command tree. Running it without a
// subcommand starts the server.
func NewRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "esgdash",
		Short:         "ESG data-management service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			decimal.MarshalJSONWithoutQuotes = true
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", ".", "directory containing config.yaml")

	cmd.AddCommand(newServeCmd(&configPath), newMigrateCmd(&configPath))
	return cmd
}

func loadConfig(configPath string) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := config.ConfigureLogger(cfg.Log); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
