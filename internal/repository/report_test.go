package repository_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/medgraph/internal/repository"
)

func TestCoverage_AllCountries(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery("SELECT country, type::text AS type").
		WithArgs(nil).
		WillReturnRows(sqlmock.NewRows([]string{
			"country", "type", "total", "with_website", "with_coordinates", "last_updated",
		}).
			AddRow("CAN", "veterinary_school", 5, 5, 3, fixedNow).
			AddRow("USA", "hospital", 120, 80, 110, fixedNow))

	rows, err := repo.Coverage(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "veterinary_school", rows[0].Type)
	assert.Equal(t, 110, rows[1].WithCoordinates)
	require.NotNil(t, rows[1].LastUpdated)
	expectationsMet(t, mock)
}

func TestCompleteness_FilteredCountries(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery("ROUND\\(100.0 \\* COUNT\\(state\\)").
		WithArgs("{\"IND\"}").
		WillReturnRows(sqlmock.NewRows([]string{
			"country", "total", "state_pct", "city_pct", "address_pct", "website_pct", "coordinates_pct",
		}).AddRow("IND", 40, 100.0, 95.0, 12.5, 40.0, 0.0))

	rows, err := repo.Completeness(context.Background(), []string{"IND"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 12.5, rows[0].Address, 0.001)
	expectationsMet(t, mock)
}

func TestDuplicateNames(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery("GROUP BY country, lower\\(name\\)\\s+HAVING COUNT\\(\\*\\) > 1").
		WillReturnRows(sqlmock.NewRows([]string{"country", "name", "count"}).
			AddRow("USA", "Mercy Hospital", 2))

	rows, err := repo.DuplicateNames(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []repository.DuplicateNameRow{{Country: "USA", Name: "Mercy Hospital", Count: 2}}, rows)
	expectationsMet(t, mock)
}

func TestSources(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery("additional_attributes ->> 'source'").
		WillReturnRows(sqlmock.NewRows([]string{"country", "source", "count"}).
			AddRow("CHN", "Wikipedia", 30).
			AddRow("CHN", "WDOMS", 12))

	rows, err := repo.Sources(context.Background(), []string{"CHN"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "WDOMS", rows[1].Source)
	expectationsMet(t, mock)
}

func TestCoordinateIssues(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery("latitude = 0 AND longitude = 0").
		WillReturnRows(sqlmock.NewRows([]string{
			"country", "invalid_latitude", "invalid_longitude", "null_island", "partial",
		}).AddRow("USA", 0, 0, 1, 2))

	rows, err := repo.CoordinateIssues(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].NullIsland)
	assert.Equal(t, 2, rows[0].Partial)
	expectationsMet(t, mock)
}

func TestSummary(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery("STRING_AGG\\(DISTINCT additional_attributes ->> 'source', ', '\\)").
		WithArgs("{\"USA\",\"CAN\"}").
		WillReturnRows(sqlmock.NewRows([]string{
			"country", "type", "state", "city", "count", "last_updated", "sources",
		}).AddRow("USA", "hospital", "Massachusetts", "Boston", 4, fixedNow, "CMS, HRSA"))

	rows, err := repo.Summary(context.Background(), []string{"USA", "CAN"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "CMS, HRSA", rows[0].Sources)
	expectationsMet(t, mock)
}
