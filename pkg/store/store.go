package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver

	taxerrors "github.com/matzehuels/taxtree/pkg/errors"
)

// Driver names accepted in [Config].
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects the database.
type Config struct {
	// Driver is DriverSQLite or DriverPostgres. Empty means DriverSQLite.
	Driver string
	// DSN is a file path for SQLite and a connection URL for PostgreSQL.
	DSN    string
	Logger *log.Logger
}

type dialect struct {
	name        string
	driver      string
	numbered    bool
	tableExists string
}

var dialects = map[string]dialect{
	DriverSQLite: {
		name:        DriverSQLite,
		driver:      "sqlite",
		tableExists: "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
	},
	DriverPostgres: {
		name:        DriverPostgres,
		driver:      "pgx",
		numbered:    true,
		tableExists: "SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?",
	},
}

// Store is a taxonomy database. It is safe for concurrent use.
type Store struct {
	db      *sql.DB
	dialect dialect
	logger  *log.Logger
}

// Open connects to the database described by cfg and checks the connection.
// It does not require the tables to exist; see [Store.Init] and [Store.Load].
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverSQLite
	}
	d, ok := dialects[cfg.Driver]
	if !ok {
		return nil, taxerrors.New(taxerrors.ErrCodeInvalidInput, "unknown database driver %q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, taxerrors.New(taxerrors.ErrCodeInvalidInput, "empty %s DSN", cfg.Driver)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	dsn := cfg.DSN
	if d.name == DriverSQLite {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, taxerrors.Wrap(taxerrors.ErrCodeNetwork, err, "connect to %s database", d.name)
	}
	cfg.Logger.Debug("database opened", "driver", d.name)
	return &Store{db: db, dialect: d, logger: cfg.Logger}, nil
}

// sqliteDSN adds the pragmas every connection needs.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
}

// Driver returns the configured driver name.
func (s *Store) Driver() string { return s.dialect.name }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites "?" placeholders for drivers with numbered parameters.
func (s *Store) rebind(query string) string {
	if !s.dialect.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Populated reports whether the taxonomy tables exist.
func (s *Store) Populated(ctx context.Context) (bool, error) {
	for _, table := range []string{"nodes", "names"} {
		var n int
		if err := s.db.QueryRowContext(ctx, s.rebind(s.dialect.tableExists), table).Scan(&n); err != nil {
			return false, err
		}
		if n == 0 {
			return false, nil
		}
	}
	return true, nil
}

// queryErr turns a failed query into NOT_POPULATED when the tables are
// missing.
func (s *Store) queryErr(ctx context.Context, err error, what string) error {
	if ok, perr := s.Populated(ctx); perr == nil && !ok {
		return taxerrors.New(taxerrors.ErrCodeNotPopulated, "taxonomy database is empty; run 'taxtree populate' first")
	}
	return fmt.Errorf("%s: %w", what, err)
}
