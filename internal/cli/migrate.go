package cli

import (
	"github.com/spf13/cobra"

	"github.com/rpattn/esgdash/internal/db"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return db.RunMigrations(cfg.Database)
		},
	}
}
