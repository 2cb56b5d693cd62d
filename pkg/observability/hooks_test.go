package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	taxerrors "github.com/matzehuels/taxtree/pkg/errors"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	q := NoopQueryHooks{}
	q.OnQueryStart(ctx, "tree", 2)
	q.OnQueryComplete(ctx, "tree", 10, time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "lineage")
	c.OnCacheMiss(ctx, "lineage")
	c.OnCacheSet(ctx, "lineage", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "ftp.ncbi.nih.gov", "/pub/taxonomy/taxdmp.zip")
	h.OnResponse(ctx, "GET", "ftp.ncbi.nih.gov", "/pub/taxonomy/taxdmp.zip", 200, time.Second)
	h.OnError(ctx, "GET", "ftp.ncbi.nih.gov", "/pub/taxonomy/taxdmp.zip", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	if _, ok := Query().(NoopQueryHooks); !ok {
		t.Error("Query() should return NoopQueryHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customQuery := &testQueryHooks{}
	SetQueryHooks(customQuery)
	if Query() != customQuery {
		t.Error("SetQueryHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	Reset()
	if _, ok := Query().(NoopQueryHooks); !ok {
		t.Error("Reset() should restore NoopQueryHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	custom := &testQueryHooks{}
	SetQueryHooks(custom)
	SetQueryHooks(nil)

	if Query() != custom {
		t.Error("SetQueryHooks(nil) should be ignored")
	}
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	m := NewMetrics(prometheus.NewRegistry())

	m.OnQueryStart(ctx, "tree", 2)
	if got := testutil.ToFloat64(m.inflight.WithLabelValues("tree")); got != 1 {
		t.Errorf("in flight = %v, want 1", got)
	}
	m.OnQueryComplete(ctx, "tree", 7, time.Millisecond, nil)
	m.OnQueryStart(ctx, "tree", 1)
	m.OnQueryComplete(ctx, "tree", 0, time.Millisecond, taxerrors.New(taxerrors.ErrCodeNotFound, "no such taxonomy ID: 5"))
	m.OnQueryStart(ctx, "lca", 2)
	m.OnQueryComplete(ctx, "lca", 0, time.Millisecond, context.Canceled)
	m.OnQueryStart(ctx, "lca", 2)
	m.OnQueryComplete(ctx, "lca", 0, time.Millisecond, errors.New("boom"))

	tests := []struct {
		query, result string
		want          float64
	}{
		{"tree", "ok", 1},
		{"tree", "not_found", 1},
		{"lca", "canceled", 1},
		{"lca", "error", 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(m.queries.WithLabelValues(tt.query, tt.result)); got != tt.want {
			t.Errorf("queries{%s,%s} = %v, want %v", tt.query, tt.result, got, tt.want)
		}
	}
	if got := testutil.ToFloat64(m.inflight.WithLabelValues("tree")); got != 0 {
		t.Errorf("in flight after completion = %v, want 0", got)
	}

	m.OnCacheHit(ctx, "lineage")
	m.OnCacheMiss(ctx, "lineage")
	m.OnCacheSet(ctx, "lineage", 100)
	m.OnCacheSet(ctx, "lineage", 20)
	if got := testutil.ToFloat64(m.cacheOps.WithLabelValues("lineage", "set")); got != 2 {
		t.Errorf("cache sets = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.cacheBytes.WithLabelValues("lineage")); got != 120 {
		t.Errorf("cache bytes = %v, want 120", got)
	}

	m.OnResponse(ctx, "GET", "example.org", "/x", 503, time.Second)
	m.OnError(ctx, "GET", "example.org", "/x", errors.New("reset"))
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("example.org", "503")); got != 1 {
		t.Errorf("http 503 = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("example.org", "error")); got != 1 {
		t.Errorf("http errors = %v, want 1", got)
	}
}

func TestMetricsInstall(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	m := NewMetrics(prometheus.NewRegistry())
	m.Install()
	if Query() != QueryHooks(m) || Cache() != CacheHooks(m) || HTTP() != HTTPHooks(m) {
		t.Error("Install() should register m for every hook kind")
	}
}

type testQueryHooks struct{ NoopQueryHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
