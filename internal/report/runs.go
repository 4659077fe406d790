package report

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
	"github.com/jonesrussell/north-cloud/medgraph/internal/orchestrator"
)

// Runs writes one row per country run followed by the batch totals.
func (r *Renderer) Runs(results []orchestrator.RunResult) {
	t := r.newTable("Extraction summary")
	t.AppendHeader(table.Row{
		"Country", "State", "Fetched", "Inserted", "Refreshed", "Rejected", "Duplicates", "Failed Sources", "Duration",
	})

	for i := range results {
		res := &results[i]
		state := string(res.State)
		if res.Err != nil {
			state += ": " + res.Err.Error()
		}
		t.AppendRow(table.Row{
			res.Country,
			state,
			res.Fetched,
			res.Inserted,
			res.Refreshed,
			res.Rejected,
			res.DuplicatesRemoved,
			joinOrDash(res.FailedSources()),
			res.Duration.Round(time.Millisecond),
		})
	}

	s := orchestrator.Summarize(results)
	t.AppendFooter(table.Row{
		"Total",
		summaryState(s),
		"",
		s.Inserted,
		"",
		"",
		s.Removed,
		"",
		s.Duration.Round(time.Millisecond),
	})
	t.Render()
}

func summaryState(s orchestrator.BatchSummary) string {
	return formatCounts(s.Successful, s.Skipped, s.Failed)
}

// Adapters writes the per-source breakdown of one run.
func (r *Renderer) Adapters(res *orchestrator.RunResult) {
	t := r.newTable(res.Country + " sources")
	t.AppendHeader(table.Row{"Source", "Tier", "Records", "Duration", "Error"})
	for _, a := range res.Adapters {
		errText := ""
		if a.Err != nil {
			errText = a.Err.Error()
		}
		t.AppendRow(table.Row{a.Source, a.Tier, a.Records, a.Duration.Round(time.Millisecond), errText})
	}
	t.Render()
}

// CountrySources is one registry entry for listing.
type CountrySources struct {
	Country domain.CountryContext
	Sources []domain.SourceDescriptor
}

// Countries lists the registry.
func (r *Renderer) Countries(entries []CountrySources) {
	t := r.newTable("Supported countries")
	t.AppendHeader(table.Row{"Code", "Country", "Source", "Tier", "URL"})
	for _, e := range entries {
		for _, s := range e.Sources {
			t.AppendRow(table.Row{e.Country.Code, e.Country.Name, s.Name, s.Tier, s.URL})
		}
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true},
		{Number: 2, AutoMerge: true},
		{Number: 5, WidthMax: 60},
	})
	t.Render()
}
