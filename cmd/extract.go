package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/medgraph/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/medgraph/internal/logger"
	"github.com/jonesrussell/north-cloud/medgraph/internal/orchestrator"
	"github.com/jonesrussell/north-cloud/medgraph/internal/report"
)

type extractOptions struct {
	countries   []string
	force       bool
	refreshDays int
	parallel    int
}

func newExtractCommand() *cobra.Command {
	var opts extractOptions

	cmd := &cobra.Command{
		Use:   "extract [COUNTRY...]",
		Short: "Extract institutions for one or more countries",
		Long: `Extract runs the ingestion pipeline for each country: freshness check,
extraction from every registered source, normalization, persistence and
deduplication. Countries are ISO-3166 alpha-3 codes; without any, every
supported country is extracted.`,
		Example: `  medgraph extract USA CAN
  medgraph extract --countries IND --force
  medgraph extract --refresh-days 7 --parallel 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, countryArgs(opts.countries, args), opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.countries, "countries", "c", nil, "comma-separated ISO3 country codes")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "extract even when stored data is fresh")
	cmd.Flags().IntVar(&opts.refreshDays, "refresh-days", 0, "freshness window in days (0 uses pipeline.refresh_days)")
	cmd.Flags().IntVarP(&opts.parallel, "parallel", "p", 0, "countries extracted concurrently (0 uses pipeline.parallelism)")

	return cmd
}

func runExtract(cmd *cobra.Command, countries []string, opts extractOptions) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if opts.parallel > 0 {
		cfg.Pipeline.Parallelism = opts.parallel
	}

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

	if len(countries) == 0 {
		for _, c := range app.Registry.Countries() {
			countries = append(countries, c.Code)
		}
	}

	results, runErr := app.Orchestrator.RunMany(ctx, countries, orchestrator.RunOptions{
		Force:       opts.force || cfg.Pipeline.Force,
		RefreshDays: opts.refreshDays,
	})

	r := report.NewRenderer(cmd.OutOrStdout())
	for i := range results {
		if len(results[i].Adapters) > 0 {
			r.Adapters(&results[i])
		}
	}
	r.Runs(results)

	if runErr != nil {
		return fmt.Errorf("extraction interrupted: %w", runErr)
	}
	if s := orchestrator.Summarize(results); s.Failed > 0 {
		return fmt.Errorf("%d of %d countries failed", s.Failed, len(results))
	}
	return nil
}
