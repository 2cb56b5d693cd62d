package observability

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	taxerrors "github.com/matzehuels/taxtree/pkg/errors"
)

// Metrics implements every hook interface on top of Prometheus collectors.
type Metrics struct {
	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	queryNodes    *prometheus.HistogramVec
	inflight      *prometheus.GaugeVec
	cacheOps      *prometheus.CounterVec
	cacheBytes    *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taxtree_queries_total",
			Help: "Taxonomy queries by kind and result.",
		}, []string{"query", "result"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taxtree_query_duration_seconds",
			Help:    "Taxonomy query duration.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"query"}),
		queryNodes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taxtree_query_nodes",
			Help:    "Nodes in the tree produced by a query.",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 10000},
		}, []string{"query"}),
		inflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "taxtree_queries_in_flight",
			Help: "Taxonomy queries currently running.",
		}, []string{"query"}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taxtree_cache_operations_total",
			Help: "Cache lookups and writes by key type.",
		}, []string{"key_type", "op"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taxtree_cache_written_bytes_total",
			Help: "Bytes written to the cache by key type.",
		}, []string{"key_type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taxtree_http_requests_total",
			Help: "Outgoing HTTP requests by host and status.",
		}, []string{"host", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taxtree_http_request_duration_seconds",
			Help:    "Outgoing HTTP request duration.",
			Buckets: prometheus.ExponentialBuckets(0.05, 4, 8),
		}, []string{"host"}),
	}
	reg.MustRegister(m.queries, m.queryDuration, m.queryNodes, m.inflight,
		m.cacheOps, m.cacheBytes, m.httpRequests, m.httpDuration)
	return m
}

// Install registers m as the global query, cache and HTTP hooks.
func (m *Metrics) Install() {
	SetQueryHooks(m)
	SetCacheHooks(m)
	SetHTTPHooks(m)
}

func (m *Metrics) OnQueryStart(_ context.Context, query string, _ int) {
	m.inflight.WithLabelValues(query).Inc()
}

func (m *Metrics) OnQueryComplete(_ context.Context, query string, nodes int, d time.Duration, err error) {
	m.inflight.WithLabelValues(query).Dec()
	m.queries.WithLabelValues(query, result(err)).Inc()
	m.queryDuration.WithLabelValues(query).Observe(d.Seconds())
	if err == nil {
		m.queryNodes.WithLabelValues(query).Observe(float64(nodes))
	}
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheOps.WithLabelValues(keyType, "set").Inc()
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (m *Metrics) OnRequest(context.Context, string, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, _, host, _ string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(host, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(host).Observe(d.Seconds())
}

func (m *Metrics) OnError(_ context.Context, _, host, _ string, _ error) {
	m.httpRequests.WithLabelValues(host, "error").Inc()
}

// result labels a query outcome with its error code.
func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	if code := taxerrors.GetCode(err); code != "" {
		return strings.ToLower(string(code))
	}
	return "error"
}
