//go:build integration

package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/medgraph/internal/database"
	"github.com/jonesrussell/north-cloud/medgraph/internal/logger"
	"github.com/jonesrussell/north-cloud/medgraph/internal/testhelpers"
)

func TestMigrate_UpDownUp(t *testing.T) {
	db := testhelpers.NewPostgres(t)
	ctx := context.Background()
	log := logger.NewNop()

	// NewPostgres already migrated; a second up is a no-op.
	require.NoError(t, database.Migrate(ctx, db, log))

	require.NoError(t, database.Rollback(ctx, db, log))
	var exists bool
	require.NoError(t, db.GetContext(ctx, &exists, `SELECT to_regclass('public.institutions') IS NOT NULL`))
	require.False(t, exists)

	require.NoError(t, database.Migrate(ctx, db, log))
	require.NoError(t, db.GetContext(ctx, &exists, `SELECT to_regclass('public.institutions') IS NOT NULL`))
	require.True(t, exists)
}
