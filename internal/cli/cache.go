package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/taxtree/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the query cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached lineage, subtree and name lookup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			ch, err := cache.Open(cmd.Context(), cfg.CacheOptions())
			if err != nil {
				return fmt.Errorf("open %s cache: %w", cfg.Cache.Backend, err)
			}
			defer ch.Close()

			cl, ok := ch.(cache.Clearer)
			if !ok {
				printInfo(cmd.ErrOrStderr(), "The %s cache cannot be cleared", cfg.Cache.Backend)
				return nil
			}
			if err := cl.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear %s cache: %w", cfg.Cache.Backend, err)
			}
			printSuccess(cmd.ErrOrStderr(), "Cleared the %s cache", cfg.Cache.Backend)
			if cfg.Cache.Backend == cache.BackendFile {
				printDetail(cmd.ErrOrStderr(), "Directory: %s", cfg.Cache.Dir)
			}
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Cache.Backend != cache.BackendFile {
				printWarning(cmd.ErrOrStderr(), "The %s backend does not use the cache directory", cfg.Cache.Backend)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Cache.Dir)
			return nil
		},
	}
}
