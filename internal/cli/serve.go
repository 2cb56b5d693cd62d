package cli

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/taxtree/internal/server"
	"github.com/matzehuels/taxtree/pkg/observability"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve taxonomy queries over HTTP",
		Long: `Serve lookups, lineages, trees and LCAs as a JSON API, with Prometheus
metrics under /metrics. The server stops gracefully on interrupt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			observability.NewMetrics(reg).Install()
			defer observability.Reset()

			r, err := c.newRunner(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer r.Close()

			srv := server.New(r, server.Options{
				Logger:   loggerFromContext(cmd.Context()),
				Gatherer: reg,
				Timeout:  timeout,
			})
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().DurationVar(&timeout, "timeout", server.DefaultTimeout, "maximum handling time per request")

	return cmd
}
