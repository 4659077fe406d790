package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/medgraph/internal/fetcher"
	"github.com/jonesrussell/north-cloud/medgraph/internal/report"
	"github.com/jonesrussell/north-cloud/medgraph/internal/sources"
)

func newCountriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "countries",
		Short: "List supported countries and their sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			entries, err := registryEntries(sources.NewRegistry(fetcher.New(cfg.Fetcher, log), cfg.Fetcher.MaxPages))
			if err != nil {
				return err
			}
			report.NewRenderer(cmd.OutOrStdout()).Countries(entries)
			return nil
		},
	}
}

func registryEntries(reg *sources.Registry) ([]report.CountrySources, error) {
	countries := reg.Countries()
	entries := make([]report.CountrySources, 0, len(countries))
	for _, c := range countries {
		descs, err := reg.Sources(c.Code)
		if err != nil {
			return nil, err
		}
		entries = append(entries, report.CountrySources{Country: c, Sources: descs})
	}
	return entries, nil
}
