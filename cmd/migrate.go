package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/medgraph/internal/database"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the database schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			db, err := database.Connect(ctx, cfg.Database, log)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if len(args) == 1 && args[0] == "down" {
				return database.Rollback(ctx, db, log)
			}
			return database.Migrate(ctx, db, log)
		},
	}
}
