// Package report renders run summaries and data-quality reports as tables
// and CSV.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jonesrussell/north-cloud/medgraph/internal/repository"
)

const dateLayout = "2006-01-02 15:04"

// Store provides the report queries.
type Store interface {
	Coverage(ctx context.Context, countries []string) ([]repository.CoverageRow, error)
	Completeness(ctx context.Context, countries []string) ([]repository.CompletenessRow, error)
	DuplicateNames(ctx context.Context, countries []string) ([]repository.DuplicateNameRow, error)
	Sources(ctx context.Context, countries []string) ([]repository.SourceRow, error)
	CoordinateIssues(ctx context.Context, countries []string) ([]repository.CoordinateRow, error)
	Summary(ctx context.Context, countries []string) ([]repository.SummaryRow, error)
}

// Data holds every report section. Coordinates is nil unless requested.
type Data struct {
	Coverage     []repository.CoverageRow
	Completeness []repository.CompletenessRow
	Duplicates   []repository.DuplicateNameRow
	Sources      []repository.SourceRow
	Coordinates  []repository.CoordinateRow
}

// Load runs the report queries. An empty countries slice covers every
// country.
func Load(ctx context.Context, store Store, countries []string, validateCoords bool) (*Data, error) {
	var (
		d   Data
		err error
	)
	if d.Coverage, err = store.Coverage(ctx, countries); err != nil {
		return nil, err
	}
	if d.Completeness, err = store.Completeness(ctx, countries); err != nil {
		return nil, err
	}
	if d.Duplicates, err = store.DuplicateNames(ctx, countries); err != nil {
		return nil, err
	}
	if d.Sources, err = store.Sources(ctx, countries); err != nil {
		return nil, err
	}
	if validateCoords {
		if d.Coordinates, err = store.CoordinateIssues(ctx, countries); err != nil {
			return nil, err
		}
	}
	return &d, nil
}

// Renderer writes tables to out.
type Renderer struct {
	out   io.Writer
	style table.Style
}

// NewRenderer creates a Renderer using the light table style.
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out, style: table.StyleLight}
}

func (r *Renderer) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(r.style)
	t.SetTitle(title)
	return t
}

// Render writes every section of d.
func (r *Renderer) Render(d *Data) {
	r.coverage(d.Coverage)
	r.completeness(d.Completeness)
	r.duplicates(d.Duplicates)
	r.sources(d.Sources)
	if d.Coordinates != nil {
		r.coordinates(d.Coordinates)
	}
}

func (r *Renderer) coverage(rows []repository.CoverageRow) {
	t := r.newTable("Institutions by country and type")
	t.AppendHeader(table.Row{"Country", "Type", "Total", "Website", "Coordinates", "Last Updated"})

	total := 0
	for _, row := range rows {
		t.AppendRow(table.Row{
			row.Country,
			row.Type,
			row.Total,
			percentOf(row.WithWebsite, row.Total),
			percentOf(row.WithCoordinates, row.Total),
			formatTime(row.LastUpdated),
		})
		total += row.Total
	}
	t.AppendFooter(table.Row{"", "Total", total})
	t.Render()
}

func (r *Renderer) completeness(rows []repository.CompletenessRow) {
	t := r.newTable("Field completeness (%)")
	t.AppendHeader(table.Row{"Country", "Total", "State", "City", "Address", "Website", "Coordinates"})
	for _, row := range rows {
		t.AppendRow(table.Row{
			row.Country, row.Total,
			formatPct(row.State), formatPct(row.City), formatPct(row.Address),
			formatPct(row.Website), formatPct(row.Coordinates),
		})
	}
	t.Render()
}

func (r *Renderer) duplicates(rows []repository.DuplicateNameRow) {
	t := r.newTable("Repeated names")
	t.AppendHeader(table.Row{"Country", "Name", "Count"})
	for _, row := range rows {
		t.AppendRow(table.Row{row.Country, row.Name, row.Count})
	}
	if len(rows) == 0 {
		t.AppendRow(table.Row{"-", "none", 0})
	}
	t.Render()
}

func (r *Renderer) sources(rows []repository.SourceRow) {
	t := r.newTable("Records by source")
	t.AppendHeader(table.Row{"Country", "Source", "Count"})
	for _, row := range rows {
		t.AppendRow(table.Row{row.Country, row.Source, row.Count})
	}
	t.Render()
}

func (r *Renderer) coordinates(rows []repository.CoordinateRow) {
	t := r.newTable("Coordinate validation")
	t.AppendHeader(table.Row{"Country", "Invalid Lat", "Invalid Lng", "Null Island", "Partial"})
	for _, row := range rows {
		t.AppendRow(table.Row{row.Country, row.InvalidLatitude, row.InvalidLongitude, row.NullIsland, row.Partial})
	}
	t.Render()
}

// WriteSummaryCSV writes the grouped export consumed by spreadsheets.
func WriteSummaryCSV(out io.Writer, rows []repository.SummaryRow) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"country", "type", "state", "city", "count", "last_updated", "sources"}); err != nil {
		return err
	}
	for _, row := range rows {
		lastUpdated := ""
		if row.LastUpdated != nil {
			lastUpdated = row.LastUpdated.UTC().Format(time.RFC3339)
		}
		record := []string{
			row.Country, row.Type, row.State, row.City,
			strconv.Itoa(row.Count), lastUpdated, row.Sources,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func percentOf(part, total int) string {
	if total == 0 {
		return "0 (0.0%)"
	}
	return fmt.Sprintf("%d (%.1f%%)", part, 100*float64(part)/float64(total))
}

func formatPct(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format(dateLayout)
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func formatCounts(successful, skipped, failed int) string {
	return fmt.Sprintf("%d done, %d skipped, %d failed", successful, skipped, failed)
}
