package adapter

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
)

// Row is one tabular row keyed by its trimmed header.
type Row map[string]string

// Get returns the first non-empty value among keys.
func (r Row) Get(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(r[k]); v != "" {
			return v
		}
	}
	return ""
}

// RowMapper turns a row into a record. Returning false drops the row.
type RowMapper func(row Row) (domain.RawRecord, bool)

// CSV downloads a delimited file with a header row.
type CSV struct {
	Source  domain.SourceDescriptor
	URL     string
	Comma   rune
	Map     RowMapper
	Fetcher Fetcher
}

func (c *CSV) Descriptor() domain.SourceDescriptor { return c.Source }

func (c *CSV) Fetch(ctx context.Context, _ domain.CountryContext) ([]domain.RawRecord, error) {
	resp, err := c.Fetcher.Fetch(ctx, c.URL)
	if err != nil {
		return nil, err
	}
	rows, err := ReadCSV(bytes.NewReader(resp.Body), c.Comma)
	if err != nil {
		return nil, err
	}
	return mapRows(rows, c.Map), nil
}

// ReadCSV parses r into header-keyed rows. A UTF-8 byte order mark on the
// header is ignored and short rows are tolerated.
func ReadCSV(r io.Reader, comma rune) ([]Row, error) {
	reader := csv.NewReader(r)
	if comma != 0 {
		reader.Comma = comma
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rowsFromGrid(records, 0)
}

// XLSX downloads a workbook and reads one sheet.
type XLSX struct {
	Source domain.SourceDescriptor
	URL    string
	// Sheet defaults to the first sheet.
	Sheet string
	// HeaderRow is the zero-based index of the header row.
	HeaderRow int
	Map       RowMapper
	Fetcher   Fetcher
}

func (x *XLSX) Descriptor() domain.SourceDescriptor { return x.Source }

func (x *XLSX) Fetch(ctx context.Context, _ domain.CountryContext) ([]domain.RawRecord, error) {
	resp, err := x.Fetcher.Fetch(ctx, x.URL)
	if err != nil {
		return nil, err
	}
	rows, err := ReadXLSX(bytes.NewReader(resp.Body), x.Sheet, x.HeaderRow)
	if err != nil {
		return nil, err
	}
	return mapRows(rows, x.Map), nil
}

// ReadXLSX parses a workbook sheet into header-keyed rows.
func ReadXLSX(r io.Reader, sheet string, headerRow int) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	grid, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rowsFromGrid(grid, headerRow)
}

func rowsFromGrid(grid [][]string, headerRow int) ([]Row, error) {
	if len(grid) <= headerRow {
		return nil, errors.New("missing header row")
	}
	header := make([]string, len(grid[headerRow]))
	for i, h := range grid[headerRow] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	rows := make([]Row, 0, len(grid)-headerRow-1)
	for _, cells := range grid[headerRow+1:] {
		row := make(Row, len(header))
		for i, name := range header {
			if name == "" || i >= len(cells) {
				continue
			}
			row[name] = cells[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func mapRows(rows []Row, mapper RowMapper) []domain.RawRecord {
	out := make([]domain.RawRecord, 0, len(rows))
	for _, row := range rows {
		if rec, ok := mapper(row); ok {
			out = append(out, rec)
		}
	}
	return out
}
