package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sdnyco/ichi/config"
	"github.com/sdnyco/ichi/pkg/database"
	"github.com/sdnyco/ichi/pkg/logger"
)

func newMigrateCommand(cfgPath *string) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the ping tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if err := logger.Init(cfg.Log); err != nil {
				return err
			}
			defer logger.Sync()

			db, err := database.InitDB(cfg)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.Migrate(db, all); err != nil {
				return err
			}
			logger.Info("migration done", zap.Bool("read_side", all))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Also create the read-side tables (users, places, check-ins, profiles, blocks) for local development")
	return cmd
}
