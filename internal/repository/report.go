package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// countryFilter matches every country when $1 is NULL.
const countryFilter = `($1::text[] IS NULL OR country = ANY($1::text[]))`

// CoverageRow summarizes one country and type.
type CoverageRow struct {
	Country         string     `db:"country"`
	Type            string     `db:"type"`
	Total           int        `db:"total"`
	WithWebsite     int        `db:"with_website"`
	WithCoordinates int        `db:"with_coordinates"`
	LastUpdated     *time.Time `db:"last_updated"`
}

// CompletenessRow holds field fill rates for a country, in percent.
type CompletenessRow struct {
	Country     string  `db:"country"`
	Total       int     `db:"total"`
	State       float64 `db:"state_pct"`
	City        float64 `db:"city_pct"`
	Address     float64 `db:"address_pct"`
	Website     float64 `db:"website_pct"`
	Coordinates float64 `db:"coordinates_pct"`
}

// DuplicateNameRow is a name stored more than once in a country, compared
// case-insensitively.
type DuplicateNameRow struct {
	Country string `db:"country"`
	Name    string `db:"name"`
	Count   int    `db:"count"`
}

// SourceRow counts institutions contributed by a source.
type SourceRow struct {
	Country string `db:"country"`
	Source  string `db:"source"`
	Count   int    `db:"count"`
}

// CoordinateRow counts suspicious coordinates for a country.
type CoordinateRow struct {
	Country          string `db:"country"`
	InvalidLatitude  int    `db:"invalid_latitude"`
	InvalidLongitude int    `db:"invalid_longitude"`
	NullIsland       int    `db:"null_island"`
	Partial          int    `db:"partial"`
}

func countriesArg(countries []string) any {
	if len(countries) == 0 {
		return pq.Array([]string(nil))
	}
	return pq.Array(countries)
}

// Coverage reports counts per country and type.
func (r *InstitutionRepository) Coverage(ctx context.Context, countries []string) ([]CoverageRow, error) {
	query := `
		SELECT country, type::text AS type,
			COUNT(*) AS total,
			COUNT(website) AS with_website,
			COUNT(*) FILTER (WHERE latitude IS NOT NULL AND longitude IS NOT NULL) AS with_coordinates,
			MAX(last_updated) AS last_updated
		FROM institutions
		WHERE ` + countryFilter + `
		GROUP BY country, type
		ORDER BY country, type`

	var rows []CoverageRow
	if err := r.db.SelectContext(ctx, &rows, query, countriesArg(countries)); err != nil {
		return nil, fmt.Errorf("failed to query coverage: %w", err)
	}
	return rows, nil
}

// Completeness reports the share of rows with each optional field set.
func (r *InstitutionRepository) Completeness(ctx context.Context, countries []string) ([]CompletenessRow, error) {
	query := `
		SELECT country,
			COUNT(*) AS total,
			ROUND(100.0 * COUNT(state) / COUNT(*), 1) AS state_pct,
			ROUND(100.0 * COUNT(city) / COUNT(*), 1) AS city_pct,
			ROUND(100.0 * COUNT(address) / COUNT(*), 1) AS address_pct,
			ROUND(100.0 * COUNT(website) / COUNT(*), 1) AS website_pct,
			ROUND(100.0 * COUNT(*) FILTER (WHERE latitude IS NOT NULL AND longitude IS NOT NULL) / COUNT(*), 1)
				AS coordinates_pct
		FROM institutions
		WHERE ` + countryFilter + `
		GROUP BY country
		ORDER BY country`

	var rows []CompletenessRow
	if err := r.db.SelectContext(ctx, &rows, query, countriesArg(countries)); err != nil {
		return nil, fmt.Errorf("failed to query completeness: %w", err)
	}
	return rows, nil
}

// DuplicateNames lists names that appear more than once per country.
func (r *InstitutionRepository) DuplicateNames(ctx context.Context, countries []string) ([]DuplicateNameRow, error) {
	query := `
		SELECT country, MIN(name) AS name, COUNT(*) AS count
		FROM institutions
		WHERE ` + countryFilter + `
		GROUP BY country, lower(name)
		HAVING COUNT(*) > 1
		ORDER BY count DESC, country, name`

	var rows []DuplicateNameRow
	if err := r.db.SelectContext(ctx, &rows, query, countriesArg(countries)); err != nil {
		return nil, fmt.Errorf("failed to query duplicate names: %w", err)
	}
	return rows, nil
}

// Sources counts institutions per contributing source.
func (r *InstitutionRepository) Sources(ctx context.Context, countries []string) ([]SourceRow, error) {
	query := `
		SELECT country, COALESCE(additional_attributes ->> 'source', 'unknown') AS source, COUNT(*) AS count
		FROM institutions
		WHERE ` + countryFilter + `
		GROUP BY country, source
		ORDER BY country, count DESC`

	var rows []SourceRow
	if err := r.db.SelectContext(ctx, &rows, query, countriesArg(countries)); err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	return rows, nil
}

// CoordinateIssues counts out-of-range, null-island and half-set coordinates.
func (r *InstitutionRepository) CoordinateIssues(ctx context.Context, countries []string) ([]CoordinateRow, error) {
	query := `
		SELECT country,
			COUNT(*) FILTER (WHERE latitude < -90 OR latitude > 90) AS invalid_latitude,
			COUNT(*) FILTER (WHERE longitude < -180 OR longitude > 180) AS invalid_longitude,
			COUNT(*) FILTER (WHERE latitude = 0 AND longitude = 0) AS null_island,
			COUNT(*) FILTER (WHERE (latitude IS NULL) <> (longitude IS NULL)) AS partial
		FROM institutions
		WHERE ` + countryFilter + `
		GROUP BY country
		ORDER BY country`

	var rows []CoordinateRow
	if err := r.db.SelectContext(ctx, &rows, query, countriesArg(countries)); err != nil {
		return nil, fmt.Errorf("failed to query coordinate issues: %w", err)
	}
	return rows, nil
}

// SummaryRow is one country, type, state and city group of the CSV export.
type SummaryRow struct {
	Country     string     `db:"country"`
	Type        string     `db:"type"`
	State       string     `db:"state"`
	City        string     `db:"city"`
	Count       int        `db:"count"`
	LastUpdated *time.Time `db:"last_updated"`
	Sources     string     `db:"sources"`
}

// Summary groups institutions by location for export.
func (r *InstitutionRepository) Summary(ctx context.Context, countries []string) ([]SummaryRow, error) {
	query := `
		SELECT country, type::text AS type,
			COALESCE(state, '') AS state,
			COALESCE(city, '') AS city,
			COUNT(*) AS count,
			MAX(last_updated) AS last_updated,
			COALESCE(STRING_AGG(DISTINCT additional_attributes ->> 'source', ', '), '') AS sources
		FROM institutions
		WHERE ` + countryFilter + `
		GROUP BY country, type, state, city
		ORDER BY country, type, state, city`

	var rows []SummaryRow
	if err := r.db.SelectContext(ctx, &rows, query, countriesArg(countries)); err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	return rows, nil
}
