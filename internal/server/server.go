// Package server exposes taxonomy queries over HTTP.
//
// All endpoints are read-only GET requests answered from a shared
// [pipeline.Runner]; each request builds its own tree.
//
//	GET /v1/taxa/{term}                     node as JSON
//	GET /v1/lineage/{term}?ranks=true       lineage as a JSON array
//	GET /v1/tree?term=a&term=b              tree (output=txt|newick|dot|svg|png|json)
//	GET /v1/subtree/{term}?species=true     subtree, same output options
//	GET /v1/lca?term=a&term=b               LCA of every pair as JSON
//	GET /healthz                            liveness
//	GET /metrics                            Prometheus metrics
//
// Errors are JSON objects {"code", "message", "request_id"}.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/taxtree/pkg/pipeline"
)

// DefaultTimeout bounds the handling time of one request.
const DefaultTimeout = 30 * time.Second

// shutdownTimeout bounds the graceful shutdown.
const shutdownTimeout = 5 * time.Second

// Options configures a [Server].
type Options struct {
	Logger *log.Logger
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Server routes HTTP requests to a runner.
type Server struct {
	runner *pipeline.Runner
	logger *log.Logger
	router chi.Router
}

// New creates a server answering from r.
func New(r *pipeline.Runner, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	s := &Server{runner: r, logger: opts.Logger}

	router := chi.NewRouter()
	router.Use(requestID)
	router.Use(s.logRequests)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(opts.Timeout))

	router.Get("/healthz", s.handleHealth)
	if opts.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	router.Route("/v1", func(r chi.Router) {
		r.Get("/taxa/{term}", s.handleTaxon)
		r.Get("/lineage/{term}", s.handleLineage)
		r.Get("/tree", s.handleTree)
		r.Get("/subtree/{term}", s.handleSubtree)
		r.Get("/lca", s.handleLCA)
	})
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errNoRoute(r))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errMethod(r))
	})

	s.router = router
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. It returns nil after a shutdown caused by ctx.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is like ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
