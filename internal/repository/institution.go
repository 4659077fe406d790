// Package repository persists institutions in PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/north-cloud/medgraph/internal/config"
	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
	"github.com/jonesrussell/north-cloud/medgraph/internal/logger"
)

const hoursPerDay = 24

const insertIgnoreQuery = `
	INSERT INTO institutions (
		name, type, country, state, city, address, website,
		latitude, longitude, additional_attributes, last_updated
	) VALUES ($1, $2::institution_type, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11)
	ON CONFLICT (country, name) DO NOTHING
	RETURNING (xmax = 0) AS inserted`

const insertRefreshQuery = `
	INSERT INTO institutions (
		name, type, country, state, city, address, website,
		latitude, longitude, additional_attributes, last_updated
	) VALUES ($1, $2::institution_type, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11)
	ON CONFLICT (country, name) DO UPDATE SET
		state = COALESCE(EXCLUDED.state, institutions.state),
		city = COALESCE(EXCLUDED.city, institutions.city),
		address = COALESCE(EXCLUDED.address, institutions.address),
		website = COALESCE(EXCLUDED.website, institutions.website),
		latitude = COALESCE(EXCLUDED.latitude, institutions.latitude),
		longitude = COALESCE(EXCLUDED.longitude, institutions.longitude),
		additional_attributes = institutions.additional_attributes || EXCLUDED.additional_attributes,
		last_updated = GREATEST(institutions.last_updated, EXCLUDED.last_updated)
	RETURNING (xmax = 0) AS inserted`

// UpsertStats counts the outcome of a batch.
type UpsertStats struct {
	// Inserted is the number of new rows.
	Inserted int
	// Refreshed counts existing rows updated in refresh mode.
	Refreshed int
	// Skipped counts conflicts left untouched in ignore mode.
	Skipped int
	// Rejected counts records that failed validation.
	Rejected int
	// Failed counts records the database refused.
	Failed int
}

// InstitutionRepository handles database operations for institutions.
type InstitutionRepository struct {
	db           *sqlx.DB
	log          logger.Logger
	conflictMode string
	now          func() time.Time
}

// Option customizes an InstitutionRepository.
type Option func(*InstitutionRepository)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *InstitutionRepository) { r.now = now }
}

// WithConflictMode selects config.ConflictIgnore or config.ConflictRefresh.
func WithConflictMode(mode string) Option {
	return func(r *InstitutionRepository) { r.conflictMode = mode }
}

// NewInstitutionRepository creates a new institution repository.
func NewInstitutionRepository(db *sqlx.DB, log logger.Logger, opts ...Option) *InstitutionRepository {
	r := &InstitutionRepository{
		db:           db,
		log:          log.With(logger.Component("repository")),
		conflictMode: config.ConflictIgnore,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsStale reports whether country has no rows or its newest last_updated is
// older than refreshDays.
func (r *InstitutionRepository) IsStale(ctx context.Context, country string, refreshDays int) (bool, error) {
	var newest sql.NullTime
	query := `SELECT MAX(last_updated) FROM institutions WHERE country = $1`
	if err := r.db.GetContext(ctx, &newest, query, country); err != nil {
		return false, fmt.Errorf("failed to read last update for %s: %w", country, err)
	}
	if !newest.Valid {
		return true, nil
	}

	window := time.Duration(refreshDays) * hoursPerDay * time.Hour
	return r.now().Sub(newest.Time) > window, nil
}

// LastUpdated returns the newest last_updated for country, or nil.
func (r *InstitutionRepository) LastUpdated(ctx context.Context, country string) (*time.Time, error) {
	var newest sql.NullTime
	query := `SELECT MAX(last_updated) FROM institutions WHERE country = $1`
	if err := r.db.GetContext(ctx, &newest, query, country); err != nil {
		return nil, fmt.Errorf("failed to read last update for %s: %w", country, err)
	}
	if !newest.Valid {
		return nil, nil
	}
	return &newest.Time, nil
}

// Upsert inserts records for country and returns the number of rows written.
func (r *InstitutionRepository) Upsert(ctx context.Context, country string, records []domain.Institution) (int, error) {
	stats, err := r.UpsertBatch(ctx, country, records)
	return stats.Inserted + stats.Refreshed, err
}

// UpsertBatch writes records one by one. Invalid records and database
// failures are logged and skipped; only context cancellation aborts the batch.
func (r *InstitutionRepository) UpsertBatch(
	ctx context.Context,
	country string,
	records []domain.Institution,
) (UpsertStats, error) {
	var stats UpsertStats
	query := insertIgnoreQuery
	if r.conflictMode == config.ConflictRefresh {
		query = insertRefreshQuery
	}
	now := r.now().UTC()

	for i := range records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		rec := &records[i]
		if err := rec.Validate(country); err != nil {
			stats.Rejected++
			r.log.Warn("Rejected institution",
				logger.String("country", country),
				logger.String("name", rec.Name),
				logger.Error(err),
			)
			continue
		}

		inserted, err := r.insert(ctx, query, rec, now)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			stats.Skipped++
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return stats, ctxErr
			}
			stats.Failed++
			r.log.Error("Failed to persist institution",
				logger.String("country", country),
				logger.String("name", rec.Name),
				logger.Error(err),
			)
		case inserted:
			stats.Inserted++
		default:
			stats.Refreshed++
		}
	}

	return stats, nil
}

func (r *InstitutionRepository) insert(
	ctx context.Context,
	query string,
	rec *domain.Institution,
	now time.Time,
) (bool, error) {
	var inserted bool
	err := r.db.QueryRowxContext(ctx, query,
		rec.Name, string(rec.Type), rec.Country, rec.State, rec.City, rec.Address, rec.Website,
		rec.Latitude, rec.Longitude, rec.Attributes, now,
	).Scan(&inserted)
	return inserted, err
}

// ListDedupCandidates returns id, name and address for every institution of
// country ordered by id.
func (r *InstitutionRepository) ListDedupCandidates(ctx context.Context, country string) ([]domain.DedupCandidate, error) {
	query := `
		SELECT id, name, COALESCE(address, '') AS address
		FROM institutions
		WHERE country = $1
		ORDER BY id`

	var cands []domain.DedupCandidate
	if err := r.db.SelectContext(ctx, &cands, query, country); err != nil {
		return nil, fmt.Errorf("failed to list dedup candidates: %w", err)
	}
	return cands, nil
}

// DeleteByIDs removes the given institutions in one statement.
func (r *InstitutionRepository) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM institutions WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to delete institutions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read deleted rows: %w", err)
	}
	return n, nil
}

// Count returns the number of institutions stored for country.
func (r *InstitutionRepository) Count(ctx context.Context, country string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM institutions WHERE country = $1`, country); err != nil {
		return 0, fmt.Errorf("failed to count institutions: %w", err)
	}
	return n, nil
}

// ListByCountry returns the institutions of country ordered by name.
func (r *InstitutionRepository) ListByCountry(ctx context.Context, country string) ([]domain.Institution, error) {
	query := `
		SELECT id, name, type, country, state, city, address, website,
			latitude, longitude, additional_attributes, last_updated
		FROM institutions
		WHERE country = $1
		ORDER BY name`

	var out []domain.Institution
	if err := r.db.SelectContext(ctx, &out, query, country); err != nil {
		return nil, fmt.Errorf("failed to list institutions: %w", err)
	}
	return out, nil
}
