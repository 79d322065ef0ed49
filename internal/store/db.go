package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL variant spoken by the underlying database
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

// ErrUnsupportedDSN is returned for connection strings with an unknown scheme
var ErrUnsupportedDSN = errors.New("unsupported database DSN")

//go:embed schema/postgres.sql
var postgresSchema string

//go:embed schema/sqlite.sql
var sqliteSchema string

// DB wraps a connection pool together with its dialect
type DB struct {
	*sql.DB
	Dialect Dialect
}

// NewDB opens a database from a DSN.
//
// postgres:// and postgresql:// URLs use lib/pq. sqlite://<path>, file: URIs
// and :memory: use the pure-Go SQLite driver.
func NewDB(dsn string) (*DB, error) {
	driver, source, dialect, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}

	if dialect == SQLite {
		// One connection keeps :memory: databases shared and serializes writers.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(5)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dialect, err)
	}

	return &DB{DB: conn, Dialect: dialect}, nil
}

func parseDSN(dsn string) (driver, source string, dialect Dialect, err error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres", dsn, Postgres, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return "sqlite", strings.TrimPrefix(dsn, "sqlite://"), SQLite, nil
	case strings.HasPrefix(dsn, "file:"), dsn == ":memory:":
		return "sqlite", dsn, SQLite, nil
	default:
		return "", "", Postgres, fmt.Errorf("%w: %q", ErrUnsupportedDSN, dsn)
	}
}

// Migrate creates the draws and scraper_state tables if they do not exist
func (db *DB) Migrate(ctx context.Context) error {
	schema := postgresSchema
	if db.Dialect == SQLite {
		schema = sqliteSchema
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply %s schema: %w", db.Dialect, err)
	}
	return nil
}
