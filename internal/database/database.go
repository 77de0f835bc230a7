package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// Supported values for Config.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

type Config struct {
	Driver string
	DSN    string
}

// Open opens the configured database, verifies the connection and runs
// migrations for the driver's dialect.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverSQLite
	}

	var (
		dsn     string
		dialect string
		dir     string
	)
	switch cfg.Driver {
	case DriverSQLite:
		dsn = sqliteDSN(cfg.DSN)
		dialect = "sqlite3"
		dir = "migrations/sqlite"
	case DriverPostgres:
		dsn = cfg.DSN
		dialect = "postgres"
		dir = "migrations/postgres"
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	sqlDB, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Every connection to ":memory:" gets its own empty database.
	if cfg.Driver == DriverSQLite && strings.HasPrefix(cfg.DSN, ":memory:") {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := runMigrations(sqlDB, dialect, dir); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &DB{DB: sqlDB, postgres: cfg.Driver == DriverPostgres}, nil
}

// OpenSQLite is a shorthand used by tests and the admin CLI.
func OpenSQLite(path string) (*DB, error) {
	return Open(context.Background(), Config{Driver: DriverSQLite, DSN: path})
}

func sqliteDSN(path string) string {
	if path == "" {
		path = "umuturage.db"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"
}

func runMigrations(db *sql.DB, dialect, dir string) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}
