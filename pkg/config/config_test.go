package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/taxtree/pkg/cache"
	taxerrors "github.com/matzehuels/taxtree/pkg/errors"
	"github.com/matzehuels/taxtree/pkg/store"
)

// isolate points every XDG variable at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	for _, env := range []string{EnvDatabaseDSN, EnvRedisAddr, EnvMongoURI} {
		t.Setenv(env, "")
	}
	return dir
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Load() without a file should return defaults (-want +got):\n%s", diff)
	}
	if want := filepath.Join(dir, "data", "taxtree", DatabaseFile); cfg.DatabaseDSN() != want {
		t.Errorf("DatabaseDSN() = %q, want %q", cfg.DatabaseDSN(), want)
	}
	if want := filepath.Join(dir, "cache", "taxtree"); cfg.Cache.Dir != want {
		t.Errorf("Cache.Dir = %q, want %q", cfg.Cache.Dir, want)
	}
	if want := filepath.Join(dir, "config", "taxtree", "config.toml"); DefaultPath() != want {
		t.Errorf("DefaultPath() = %q, want %q", DefaultPath(), want)
	}
}

func TestLoad_File(t *testing.T) {
	isolate(t)
	path := writeFile(t, DefaultPath(), `
root_id = 2759
concurrency = 4

[database]
driver = "postgres"
dsn = "postgres://localhost/taxtree"

[dump]
source = "s3://mirror/taxdmp.zip"
email = "me@example.org"

[cache]
backend = "redis"
ttl = "36h"

[cache.redis]
addr = "redis:6379"
db = 2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.RootID != 2759 || cfg.Concurrency != 4 {
		t.Errorf("RootID, Concurrency = %d, %d", cfg.RootID, cfg.Concurrency)
	}
	if cfg.Cache.TTL.Duration != 36*time.Hour {
		t.Errorf("Cache.TTL = %v, want 36h", cfg.Cache.TTL)
	}
	if got := cfg.StoreConfig(nil); got.Driver != store.DriverPostgres || got.DSN != "postgres://localhost/taxtree" {
		t.Errorf("StoreConfig() = %+v", got)
	}
	opts := cfg.CacheOptions()
	want := cache.RedisOptions{Addr: "redis:6379", DB: 2, Prefix: cache.DefaultRedisPrefix}
	if opts.Backend != cache.BackendRedis || opts.Redis != want {
		t.Errorf("CacheOptions() = %+v", opts)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want default", cfg.Server.Addr)
	}
}

func TestLoad_Env(t *testing.T) {
	isolate(t)
	t.Setenv(EnvDatabaseDSN, "/tmp/other.db")
	t.Setenv(EnvRedisAddr, "cache:6380")
	t.Setenv(EnvMongoURI, "mongodb://mongo:27017")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DatabaseDSN() != "/tmp/other.db" || cfg.Cache.Redis.Addr != "cache:6380" || cfg.Cache.Mongo.URI != "mongodb://mongo:27017" {
		t.Errorf("environment overrides not applied: %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := isolate(t)

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "root_id = ", "read config"},
		{"unknown key", "colour = \"blue\"", "unknown keys: colour"},
		{"bad driver", "[database]\ndriver = \"oracle\"", "database.driver"},
		{"postgres without dsn", "[database]\ndriver = \"postgres\"", "database.dsn"},
		{"bad backend", "[cache]\nbackend = \"memcached\"", "cache.backend"},
		{"mongo without uri", "[cache]\nbackend = \"mongo\"", "cache.mongo.uri"},
		{"root", "root_id = 0", "root_id"},
		{"concurrency", "concurrency = -1", "concurrency"},
		{"ttl", "[cache]\nttl = \"soon\"", "read config"},
		{"source", "[dump]\nsource = \"ftp://example.org/x.zip\"", "ftp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, filepath.Join(dir, tt.name+".toml"), tt.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("Load() should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); !taxerrors.Is(err, taxerrors.ErrCodeInvalidInput) {
		t.Errorf("Load(missing explicit file) error = %v, want INVALID_INPUT", err)
	}
}

func TestEncode(t *testing.T) {
	isolate(t)
	cfg := Default()
	cfg.Cache.TTL.Duration = 90 * time.Minute

	var buf bytes.Buffer
	if err := cfg.Encode(&buf); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	path := writeFile(t, filepath.Join(t.TempDir(), "roundtrip.toml"), buf.String())
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load(encoded) error: %v\n%s", err, buf.String())
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("encoded config does not load back (-want +got):\n%s", diff)
	}
}
