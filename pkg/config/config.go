// Package config loads taxtree settings from a TOML file.
//
// # Location
//
// The file lives at $XDG_CONFIG_HOME/taxtree/config.toml (default
// ~/.config/taxtree/config.toml). A missing default file is not an error;
// every setting has a default. An explicitly named file must exist.
//
// # Format
//
//	data_dir = "/var/lib/taxtree"
//	root_id = 1
//	concurrency = 8
//
//	[database]
//	driver = "postgres"
//	dsn = "postgres://taxtree@localhost/taxtree"
//
//	[dump]
//	source = "s3://mirror/taxonomy/taxdmp.zip"
//	email = "me@example.org"
//
//	[cache]
//	backend = "redis"
//	ttl = "24h"
//
//	[cache.redis]
//	addr = "localhost:6379"
//
//	[server]
//	addr = ":8080"
//
// # Environment
//
// TAXTREE_DB_DSN, TAXTREE_REDIS_ADDR and TAXTREE_MONGO_URI override the
// matching file settings, so secrets can stay out of the file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/taxtree/pkg/cache"
	taxerrors "github.com/matzehuels/taxtree/pkg/errors"
	"github.com/matzehuels/taxtree/pkg/store"
	"github.com/matzehuels/taxtree/pkg/taxdump"
	"github.com/matzehuels/taxtree/pkg/taxon"
)

// AppName names the XDG subdirectories.
const AppName = "taxtree"

// DatabaseFile is the SQLite file name inside the data directory.
const DatabaseFile = "taxonomy.db"

// Environment variables that override file settings.
const (
	EnvDatabaseDSN = "TAXTREE_DB_DSN"
	EnvRedisAddr   = "TAXTREE_REDIS_ADDR"
	EnvMongoURI    = "TAXTREE_MONGO_URI"
)

// Config holds every setting.
type Config struct {
	DataDir     string `toml:"data_dir"`
	RootID      int64  `toml:"root_id"`
	Concurrency int    `toml:"concurrency"`

	Database Database `toml:"database"`
	Dump     Dump     `toml:"dump"`
	Cache    Cache    `toml:"cache"`
	Server   Server   `toml:"server"`
}

// Database selects the taxonomy store.
type Database struct {
	Driver string `toml:"driver"`
	// DSN is a file path for SQLite and a URL for PostgreSQL. Empty means
	// DatabaseFile inside DataDir.
	DSN string `toml:"dsn"`
}

// Dump configures "taxtree populate".
type Dump struct {
	Source string `toml:"source"`
	Email  string `toml:"email"`
}

// Cache configures the query cache.
type Cache struct {
	Backend       string   `toml:"backend"`
	Dir           string   `toml:"dir"`
	MemoryEntries int      `toml:"memory_entries"`
	TTL           Duration `toml:"ttl"`
	Redis         Redis    `toml:"redis"`
	Mongo         Mongo    `toml:"mongo"`
}

// Redis configures the Redis cache backend.
type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

// Mongo configures the MongoDB cache backend.
type Mongo struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Server configures "taxtree serve".
type Server struct {
	Addr string `toml:"addr"`
}

// Duration is a time.Duration written as a string such as "36h".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DataDir:     filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), AppName),
		RootID:      taxon.DefaultRootID,
		Concurrency: 8,
		Database:    Database{Driver: store.DriverSQLite},
		Dump:        Dump{Source: taxdump.DefaultURL},
		Cache: Cache{
			Backend:       cache.BackendFile,
			Dir:           filepath.Join(xdgDir("XDG_CACHE_HOME", ".cache"), AppName),
			MemoryEntries: cache.DefaultMemoryEntries,
			Redis:         Redis{Addr: "localhost:6379", Prefix: cache.DefaultRedisPrefix},
			Mongo:         Mongo{Database: AppName, Collection: "cache"},
		},
		Server: Server{Addr: ":8080"},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), AppName, "config.toml")
}

// xdgDir returns $env, or ~/<fallback...> when it is unset.
func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(append([]string{os.TempDir()}, fallback...)...)
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path means [DefaultPath], which may be
// missing.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	md, err := toml.DecodeFile(path, &cfg)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		cfg = Default()
	case errors.Is(err, fs.ErrNotExist):
		return Config{}, taxerrors.New(taxerrors.ErrCodeInvalidInput, "config file %s does not exist", path)
	case err != nil:
		return Config{}, taxerrors.Wrap(taxerrors.ErrCodeInvalidInput, err, "read config %s", path)
	default:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return Config{}, taxerrors.New(taxerrors.ErrCodeInvalidInput, "config %s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}

	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv copies set environment overrides into cfg.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvDatabaseDSN); ok && v != "" {
		c.Database.DSN = v
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		c.Cache.Redis.Addr = v
	}
	if v, ok := lookup(EnvMongoURI); ok && v != "" {
		c.Cache.Mongo.URI = v
	}
}

// Validate checks value ranges and cross-field requirements.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return taxerrors.New(taxerrors.ErrCodeInvalidInput, "config: "+format, args...)
	}
	switch c.Database.Driver {
	case store.DriverSQLite:
	case store.DriverPostgres:
		if c.Database.DSN == "" {
			return invalid("database.dsn is required for postgres")
		}
	default:
		return invalid("unknown database.driver %q (must be sqlite or postgres)", c.Database.Driver)
	}
	switch c.Cache.Backend {
	case cache.BackendFile, cache.BackendMemory, cache.BackendRedis, cache.BackendNone:
	case cache.BackendMongo:
		if c.Cache.Mongo.URI == "" {
			return invalid("cache.mongo.uri is required for the mongo backend")
		}
	default:
		return invalid("unknown cache.backend %q", c.Cache.Backend)
	}
	if c.RootID <= 0 {
		return invalid("root_id must be positive, got %d", c.RootID)
	}
	if c.Concurrency <= 0 {
		return invalid("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.Cache.TTL.Duration < 0 {
		return invalid("cache.ttl must not be negative")
	}
	if _, err := taxdump.ParseSource(c.Dump.Source); err != nil {
		return err
	}
	return nil
}

// DatabaseDSN returns the configured DSN, defaulting to the SQLite file in
// the data directory.
func (c Config) DatabaseDSN() string {
	if c.Database.DSN != "" || c.Database.Driver != store.DriverSQLite {
		return c.Database.DSN
	}
	return filepath.Join(c.DataDir, DatabaseFile)
}

// StoreConfig returns the store settings.
func (c Config) StoreConfig(logger *log.Logger) store.Config {
	return store.Config{Driver: c.Database.Driver, DSN: c.DatabaseDSN(), Logger: logger}
}

// CacheOptions returns the cache settings.
func (c Config) CacheOptions() cache.Options {
	return cache.Options{
		Backend:       c.Cache.Backend,
		Dir:           c.Cache.Dir,
		MemoryEntries: c.Cache.MemoryEntries,
		Redis: cache.RedisOptions{
			Addr:     c.Cache.Redis.Addr,
			Password: c.Cache.Redis.Password,
			DB:       c.Cache.Redis.DB,
			Prefix:   c.Cache.Redis.Prefix,
		},
		Mongo: cache.MongoOptions{
			URI:        c.Cache.Mongo.URI,
			Database:   c.Cache.Mongo.Database,
			Collection: c.Cache.Mongo.Collection,
		},
	}
}

// Encode writes cfg as TOML.
func (c Config) Encode(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
