package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/medgraph/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/medgraph/internal/repository"
	"github.com/jonesrussell/north-cloud/medgraph/internal/report"
)

type reportOptions struct {
	countries      []string
	csvPath        string
	validateCoords bool
}

func newReportCommand() *cobra.Command {
	var opts reportOptions

	cmd := &cobra.Command{
		Use:   "report [COUNTRY...]",
		Short: "Report coverage and data quality of stored institutions",
		Example: `  medgraph report
  medgraph report USA --validate-coords
  medgraph report --csv institutions.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, countryArgs(opts.countries, args), opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.countries, "countries", "c", nil, "comma-separated ISO3 country codes")
	cmd.Flags().StringVar(&opts.csvPath, "csv", "", "also write a grouped summary to this CSV file")
	cmd.Flags().BoolVar(&opts.validateCoords, "validate-coords", false, "include coordinate validation")

	return cmd
}

func runReport(cmd *cobra.Command, countries []string, opts reportOptions) (err error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	db, err := bootstrap.SetupDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewInstitutionRepository(db, log)
	data, err := report.Load(ctx, repo, countries, opts.validateCoords)
	if err != nil {
		return err
	}
	report.NewRenderer(cmd.OutOrStdout()).Render(data)

	if opts.csvPath == "" {
		return nil
	}
	rows, err := repo.Summary(ctx, countries)
	if err != nil {
		return err
	}
	f, err := os.Create(opts.csvPath)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close csv: %w", closeErr)
		}
	}()
	if err = report.WriteSummaryCSV(f, rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", len(rows), opts.csvPath)
	return nil
}
