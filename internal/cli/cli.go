package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/taxtree/pkg/buildinfo"
	"github.com/matzehuels/taxtree/pkg/cache"
	"github.com/matzehuels/taxtree/pkg/config"
	"github.com/matzehuels/taxtree/pkg/errors"
	"github.com/matzehuels/taxtree/pkg/pipeline"
	"github.com/matzehuels/taxtree/pkg/store"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Persistent flag values. Zero values leave the config file setting.
	configPath   string
	dsn          string
	rootID       int64
	cacheBackend string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   config.AppName,
		Short: "Explore the NCBI Taxonomy from a local copy",
		Long: `taxtree looks up taxa, prints their lineages, builds the minimal tree
joining several taxa and computes least common ancestors, all from a local
copy of the NCBI Taxonomy database (see "taxtree populate").`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	flags.StringVar(&c.dsn, "db", "", "database DSN (SQLite path or postgres:// URL)")
	flags.Int64Var(&c.rootID, "root", 0, "taxonomy ID of the root (default 1)")
	flags.StringVar(&c.cacheBackend, "cache", "", "cache backend: file, memory, redis, mongo, none")

	root.AddCommand(c.populateCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.lineageCommand())
	root.AddCommand(c.treeCommand())
	root.AddCommand(c.subtreeCommand())
	root.AddCommand(c.lcaCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config and Runner Factory
// =============================================================================

// loadConfig reads the config file and applies the persistent flags.
func (c *CLI) loadConfig() (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if c.dsn != "" {
		cfg.Database.DSN = c.dsn
	}
	if c.rootID != 0 {
		cfg.RootID = c.rootID
	}
	if c.cacheBackend != "" {
		cfg.Cache.Backend = c.cacheBackend
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	c.Logger.Debug("config loaded", "driver", cfg.Database.Driver, "cache", cfg.Cache.Backend)
	return cfg, nil
}

// newRunner opens the store and the cache described by cfg. The caller
// must close the returned runner.
func (c *CLI) newRunner(ctx context.Context, cfg config.Config) (*pipeline.Runner, error) {
	db, err := store.Open(ctx, cfg.StoreConfig(c.Logger))
	if err != nil {
		return nil, err
	}
	ch, err := cache.Open(ctx, cfg.CacheOptions())
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without it", "backend", cfg.Cache.Backend, "error", err)
		ch = cache.NewNullCache()
	}

	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "db:"+cache.Hash([]byte(cfg.DatabaseDSN()))[:12]+":")
	r := pipeline.NewRunner(db, ch, keyer, c.Logger)
	r.RootID = cfg.RootID
	r.Concurrency = cfg.Concurrency
	r.TTL = cfg.Cache.TTL.Duration
	return r, nil
}

// withRunner loads the config, opens a runner, runs fn and closes the
// runner again.
func (c *CLI) withRunner(ctx context.Context, fn func(*pipeline.Runner) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	r, err := c.newRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer r.Close()
	return fn(r)
}

// =============================================================================
// Error Presentation
// =============================================================================

// Hint returns a suggestion for err, or "" if there is none.
func Hint(err error) string {
	switch {
	case errors.Is(err, errors.ErrCodeNotPopulated):
		return fmt.Sprintf("the database is probably not initialized, try running: %s populate", config.AppName)
	case errors.Is(err, errors.ErrCodeNetwork):
		return "check the network connection or the configured addresses"
	case errors.Is(err, errors.ErrCodeIntegrity):
		return "the download is corrupt, run populate again"
	}
	return ""
}
