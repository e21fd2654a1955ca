// Package postgres journals finished encounters in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/realm/internal/config"
)

// SchemaVersion is the migration the journal queries are written against.
const SchemaVersion = 1

// ErrSchemaOutdated is returned by Open when the journal tables are missing,
// behind SchemaVersion or left dirty by a failed migration.
var ErrSchemaOutdated = errors.New("journal schema is not migrated")

// Pool is a connection pool to a migrated encounter journal.
type Pool struct {
	db      *pgxpool.Pool
	version uint
}

// Open connects to the journal database. Connections report app as their
// application_name.
//
// Precondition: cfg must describe a reachable database.
// Postcondition: Returns a Pool whose schema is at SchemaVersion or later, or
// a non-nil error. Run cmd/migrate when the error wraps ErrSchemaOutdated.
func Open(ctx context.Context, cfg config.DatabaseConfig, app string) (*Pool, error) {
	pcfg, err := poolConfig(cfg, app)
	if err != nil {
		return nil, err
	}
	db, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	version, err := schemaVersion(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Pool{db: db, version: version}, nil
}

func poolConfig(cfg config.DatabaseConfig, app string) (*pgxpool.Config, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if app != "" {
		pcfg.ConnConfig.RuntimeParams["application_name"] = app
	}
	return pcfg, nil
}

// schemaVersion reads the golang-migrate bookkeeping row.
func schemaVersion(ctx context.Context, db *pgxpool.Pool) (uint, error) {
	var (
		version int64
		dirty   bool
	)
	err := db.QueryRow(ctx, `SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty)
	switch {
	case errors.Is(err, pgx.ErrNoRows) || hasSQLState(err, "42P01"):
		return 0, fmt.Errorf("%w: no migrations applied", ErrSchemaOutdated)
	case err != nil:
		return 0, fmt.Errorf("reading schema version: %w", err)
	case dirty:
		return 0, fmt.Errorf("%w: version %d is dirty", ErrSchemaOutdated, version)
	case version < SchemaVersion:
		return 0, fmt.Errorf("%w: at version %d, need %d", ErrSchemaOutdated, version, SchemaVersion)
	}
	return uint(version), nil
}

// Version returns the schema version found when the pool was opened.
func (p *Pool) Version() uint { return p.version }

// Close releases all pool resources.
func (p *Pool) Close() {
	p.db.Close()
}

// DB returns the underlying pgxpool.Pool for use by repositories.
func (p *Pool) DB() *pgxpool.Pool {
	return p.db
}
