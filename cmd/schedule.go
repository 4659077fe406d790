package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/medgraph/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/medgraph/internal/logger"
	"github.com/jonesrussell/north-cloud/medgraph/internal/orchestrator"
	"github.com/jonesrussell/north-cloud/medgraph/internal/report"
	"github.com/jonesrussell/north-cloud/medgraph/internal/scheduler"
)

func newScheduleCommand() *cobra.Command {
	var (
		countries   []string
		expr        string
		refreshDays int
	)

	cmd := &cobra.Command{
		Use:   "schedule [COUNTRY...]",
		Short: "Re-run extraction on a cron schedule",
		Long: `Schedule keeps running and triggers an extraction batch on every
activation of the cron expression. Countries whose data is still fresh are
skipped, so frequent schedules are cheap.`,
		Example: `  medgraph schedule --cron "0 3 * * *" USA CAN`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			app, err := bootstrap.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := app.Close(); closeErr != nil {
					log.Error("Shutdown failed", logger.Error(closeErr))
				}
			}()
			app.ServeMetrics(ctx)

			selected := countryArgs(countries, args)
			if len(selected) == 0 {
				selected = cfg.Schedule.Countries
			}
			if len(selected) == 0 {
				for _, c := range app.Registry.Countries() {
					selected = append(selected, c.Code)
				}
			}
			if expr == "" {
				expr = cfg.Schedule.Cron
			}

			out := report.NewRenderer(cmd.OutOrStdout())
			s := scheduler.New(
				app.Orchestrator,
				selected,
				orchestrator.RunOptions{RefreshDays: refreshDays},
				out.Runs,
				log,
			)
			return s.Run(ctx, expr)
		},
	}

	cmd.Flags().StringSliceVarP(&countries, "countries", "c", nil, "comma-separated ISO3 country codes (default schedule.countries)")
	cmd.Flags().StringVar(&expr, "cron", "", "five-field cron expression (default schedule.cron)")
	cmd.Flags().IntVar(&refreshDays, "refresh-days", 0, "freshness window in days (0 uses pipeline.refresh_days)")

	return cmd
}
