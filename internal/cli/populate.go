package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/taxtree/pkg/cache"
	"github.com/matzehuels/taxtree/pkg/config"
	"github.com/matzehuels/taxtree/pkg/store"
	"github.com/matzehuels/taxtree/pkg/taxdump"
)

// dumpDir is the work directory for downloads inside the data directory.
const dumpDir = "dump"

// populateOpts holds the command-line flags for the populate command.
type populateOpts struct {
	email    string // sent in the From header of NCBI requests
	taxdmp   string // local taxdmp.zip, skips the download
	source   string // URL or s3:// location of taxdmp.zip
	keep     bool   // keep the archive and extracted files
	plain    bool   // log progress instead of drawing it
	batch    int    // rows per transaction
	s3Region string
	s3URL    string
}

// populateCommand creates the populate command.
func (c *CLI) populateCommand() *cobra.Command {
	var opts populateOpts

	cmd := &cobra.Command{
		Use:   "populate",
		Short: "(Re)populate the local taxonomy database",
		Long: `Download the latest NCBI Taxonomy dump (taxdmp.zip), verify its MD5
checksum, extract it and load it into the database. Existing data is replaced.

The dump can also come from a local file (--taxdmp) or another location
(--source), such as an s3://bucket/key mirror.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			return c.runPopulate(cmd.Context(), cmd.ErrOrStderr(), cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.email, "email", "e", "", "email sent to the NCBI servers (default from config)")
	cmd.Flags().StringVar(&opts.taxdmp, "taxdmp", "", "use this taxdmp.zip instead of downloading it")
	cmd.Flags().StringVar(&opts.source, "source", "", "download location: http(s) URL or s3://bucket/key (default from config)")
	cmd.Flags().BoolVar(&opts.keep, "keep", false, "keep the downloaded and extracted files")
	cmd.Flags().BoolVar(&opts.plain, "no-progress", false, "log progress instead of drawing it")
	cmd.Flags().IntVar(&opts.batch, "batch-size", store.DefaultBatchSize, "rows inserted per transaction")
	cmd.Flags().StringVar(&opts.s3Region, "s3-region", "", "AWS region for s3:// sources")
	cmd.Flags().StringVar(&opts.s3URL, "s3-endpoint", "", "S3-compatible endpoint URL for s3:// sources")

	return cmd
}

func (c *CLI) runPopulate(ctx context.Context, w io.Writer, cfg config.Config, opts populateOpts) error {
	logger := loggerFromContext(ctx)

	location := cfg.Dump.Source
	switch {
	case opts.taxdmp != "":
		location = opts.taxdmp
	case opts.source != "":
		location = opts.source
	}
	src, err := taxdump.ParseSource(location)
	if err != nil {
		return err
	}
	email := cfg.Dump.Email
	if opts.email != "" {
		email = opts.email
	}

	var s3Client taxdump.S3API
	if src.Kind == taxdump.KindS3 {
		s3Client, err = taxdump.NewS3Client(ctx, taxdump.S3Config{
			Region:    opts.s3Region,
			Endpoint:  opts.s3URL,
			PathStyle: opts.s3URL != "",
		})
		if err != nil {
			return fmt.Errorf("configure s3: %w", err)
		}
	}

	work := filepath.Join(cfg.DataDir, dumpDir)
	fetcher := taxdump.NewFetcher(email, s3Client, logger)

	spinner := newSpinner(ctx, w, "Fetching "+src.String())
	spinner.Start()
	archive, err := fetcher.Fetch(ctx, src, work)
	if err != nil {
		spinner.Stop()
		return err
	}
	spinner.StopWithSuccess(fmt.Sprintf("Fetched %s (%d bytes)", src, archive.Size))

	switch err := taxdump.Verify(archive); {
	case errors.Is(err, taxdump.ErrNoChecksum):
		printWarning(w, "No checksum available, skipping verification")
	case err != nil:
		return err
	default:
		printSuccess(w, "Checksum verified")
	}

	extracted, err := taxdump.Extract(archive.Path, work)
	if err != nil {
		return err
	}
	printSuccess(w, "Extracted %d files", len(extracted))

	db, err := store.Open(ctx, cfg.StoreConfig(logger))
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Debug("loading taxonomy", "driver", db.Driver(), "dir", work)

	loadOpts := store.LoadOptions{
		RootID:    cfg.RootID,
		BatchSize: opts.batch,
		Source:    src.String(),
	}
	load := func(report func(string, int64)) (store.LoadStats, error) {
		loadOpts.Progress = report
		return db.Load(ctx, taxdump.NewReader(work), loadOpts)
	}

	prog := newProgress(logger)
	var stats store.LoadStats
	if opts.plain {
		stats, err = load(func(stage string, rows int64) {
			logger.Debug("load progress", "stage", stage, "rows", rows)
		})
	} else {
		stats, err = runLoadProgram(ctx, w, load)
	}
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Loaded %d nodes", stats.Nodes))

	if !opts.keep {
		if src.Kind == taxdump.KindFile && sameFile(src.Path, archive.Path) {
			archive.Path = ""
		}
		if err := taxdump.Cleanup(archive, extracted); err != nil {
			logger.Warn("cleanup failed", "dir", work, "error", err)
		}
	}

	c.clearCache(ctx, cfg)

	printKeyValue(w, "Nodes", fmt.Sprint(stats.Nodes))
	printKeyValue(w, "Names", fmt.Sprint(stats.Names))
	printKeyValue(w, "Divisions", fmt.Sprint(stats.Divisions))
	printKeyValue(w, "Genetic codes", fmt.Sprint(stats.GeneticCodes))
	printKeyValue(w, "Run", stats.RunID)
	printKeyValue(w, "Database", cfg.DatabaseDSN())
	printNextStep(w, "Try", config.AppName+" tree 'Homo sapiens' 'Pan troglodytes'")
	return nil
}

// clearCache drops cached lineages, which a new dump can invalidate.
func (c *CLI) clearCache(ctx context.Context, cfg config.Config) {
	logger := loggerFromContext(ctx)
	ch, err := cache.Open(ctx, cfg.CacheOptions())
	if err != nil {
		logger.Debug("cache not cleared", "error", err)
		return
	}
	defer ch.Close()
	if cl, ok := ch.(cache.Clearer); ok {
		if err := cl.Clear(ctx); err != nil {
			logger.Warn("cache not cleared", "backend", cfg.Cache.Backend, "error", err)
		}
	}
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
