package postgres_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/realm/internal/storage/postgres"
	"github.com/cory-johannsen/realm/internal/testutil"
)

func TestOpen_ReportsSchemaVersionAndApplicationName(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in -short mode")
	}
	pc := testutil.NewPostgresContainer(t)
	assert.Equal(t, uint(postgres.SchemaVersion), pc.Pool.Version())

	var app string
	err := pc.Pool.DB().QueryRow(context.Background(), `SELECT current_setting('application_name')`).Scan(&app)
	require.NoError(t, err)
	assert.Equal(t, "realm-test", app)
}

func TestOpen_RejectsUnmigratedSchema(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in -short mode")
	}
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(t)
	_, err := pc.Pool.DB().Exec(ctx, `CREATE DATABASE fresh`)
	require.NoError(t, err)
	cfg := pc.Config
	cfg.Name = "fresh"

	_, err = postgres.Open(ctx, cfg, "realm-test")
	require.ErrorIs(t, err, postgres.ErrSchemaOutdated)
	assert.Contains(t, err.Error(), "no migrations applied")

	fresh, err := pgxpool.New(ctx, cfg.DSN())
	require.NoError(t, err)
	t.Cleanup(fresh.Close)
	_, err = fresh.Exec(ctx, `CREATE TABLE schema_migrations (version bigint NOT NULL PRIMARY KEY, dirty boolean NOT NULL)`)
	require.NoError(t, err)
	_, err = fresh.Exec(ctx, `INSERT INTO schema_migrations (version, dirty) VALUES (1, true)`)
	require.NoError(t, err)

	_, err = postgres.Open(ctx, cfg, "realm-test")
	require.ErrorIs(t, err, postgres.ErrSchemaOutdated)
	assert.Contains(t, err.Error(), "dirty")
}
