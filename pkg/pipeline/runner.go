package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/taxtree/pkg/cache"
	taxerrors "github.com/matzehuels/taxtree/pkg/errors"
	"github.com/matzehuels/taxtree/pkg/observability"
	"github.com/matzehuels/taxtree/pkg/taxon"
	"github.com/matzehuels/taxtree/pkg/tree"
)

// Store is the part of the taxonomy database the runner reads.
// *store.Store implements it.
type Store interface {
	Nodes(ctx context.Context, ids []int64) ([]taxon.Node, error)
	TaxIDs(ctx context.Context, names []string) ([]int64, error)
	Lineage(ctx context.Context, id, root int64) ([]taxon.Node, error)
	SubtreeNodes(ctx context.Context, root int64, stopAtSpecies bool) ([]taxon.Node, error)
}

// Runner executes taxonomy queries with caching.
// Both CLI and API use it to avoid duplicating resolution and caching logic.
//
// The Runner holds no per-query state. Multiple goroutines can safely use
// the same Runner.
type Runner struct {
	Store  Store
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// RootID is the taxonomy root. Zero means taxon.DefaultRootID.
	RootID int64
	// Concurrency bounds parallel lineage fetches. Zero means
	// DefaultConcurrency.
	Concurrency int
	// TTL, when positive, replaces the per-kind cache TTLs.
	TTL time.Duration
}

// NewRunner creates a runner over s.
// If keyer is nil, a DefaultKeyer is used.
// If c is nil, a NullCache is used (caching disabled).
func NewRunner(s Store, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Store:  s,
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// LCAResult is the least common ancestor of two taxa.
type LCAResult struct {
	A   taxon.Node `json:"a" yaml:"a"`
	B   taxon.Node `json:"b" yaml:"b"`
	LCA taxon.Node `json:"lca" yaml:"lca"`
}

func (r *Runner) root() int64 {
	if r.RootID == 0 {
		return taxon.DefaultRootID
	}
	return r.RootID
}

func (r *Runner) ttl(def time.Duration) time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return def
}

func (r *Runner) concurrency() int {
	if r.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return r.Concurrency
}

// observe reports a query to the registered hooks.
func (r *Runner) observe(ctx context.Context, query string, terms int, fn func() (int, error)) error {
	hooks := observability.Query()
	hooks.OnQueryStart(ctx, query, terms)
	start := time.Now()
	nodes, err := fn()
	hooks.OnQueryComplete(ctx, query, nodes, time.Since(start), err)
	if err != nil {
		r.Logger.Debug("query failed", "query", query, "error", err)
	} else {
		r.Logger.Debug("query done", "query", query, "nodes", nodes, "duration", time.Since(start))
	}
	return err
}

// =============================================================================
// Term Resolution
// =============================================================================

// ResolveTerms maps terms to taxonomy IDs, keeping their order. A term that
// parses as an integer is taken as an ID (it is not checked here); any other
// term is cleaned with [taxon.CleanTerm] and looked up as an exact
// scientific name.
func (r *Runner) ResolveTerms(ctx context.Context, terms []string) ([]int64, error) {
	if err := taxerrors.ValidateTerms(terms, 1); err != nil {
		return nil, err
	}
	ids := make([]int64, len(terms))
	for i, term := range terms {
		term = taxon.CleanTerm(term)
		if id, err := strconv.ParseInt(term, 10, 64); err == nil {
			if id <= 0 {
				return nil, taxerrors.New(taxerrors.ErrCodeInvalidTerm, "invalid taxonomy ID: %d", id)
			}
			ids[i] = id
			continue
		}
		id, err := r.resolveName(ctx, term)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func (r *Runner) resolveName(ctx context.Context, name string) (int64, error) {
	key := r.Keyer.TermKey(name)
	var id int64
	if r.cacheGet(ctx, "term", key, &id) {
		return id, nil
	}
	ids, err := r.Store.TaxIDs(ctx, []string{name})
	if err != nil {
		return 0, err
	}
	r.cacheSet(ctx, "term", key, ids[0], r.ttl(cache.TTLTerm))
	return ids[0], nil
}

// Nodes resolves terms and returns their nodes in the same order.
func (r *Runner) Nodes(ctx context.Context, terms []string) ([]taxon.Node, error) {
	var nodes []taxon.Node
	err := r.observe(ctx, "show", len(terms), func() (int, error) {
		ids, err := r.ResolveTerms(ctx, terms)
		if err != nil {
			return 0, err
		}
		nodes, err = r.Store.Nodes(ctx, ids)
		return len(nodes), err
	})
	return nodes, err
}

// =============================================================================
// Lineages
// =============================================================================

// Lineage returns the ancestry of id from the root down, through the cache.
// It matches [tree.LineageFunc].
func (r *Runner) Lineage(ctx context.Context, id int64) ([]taxon.Node, error) {
	key := r.Keyer.LineageKey(r.root(), id)
	var nodes []taxon.Node
	if r.cacheGet(ctx, "lineage", key, &nodes) {
		return nodes, nil
	}
	nodes, err := r.Store.Lineage(ctx, id, r.root())
	if err != nil {
		return nil, err
	}
	r.cacheSet(ctx, "lineage", key, nodes, r.ttl(cache.TTLLineage))
	return nodes, nil
}

// Lineages fetches the ancestries of ids concurrently, keeping their order.
// The first failure cancels the remaining fetches.
func (r *Runner) Lineages(ctx context.Context, ids []int64) ([][]taxon.Node, error) {
	out := make([][]taxon.Node, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency())
	for i, id := range ids {
		g.Go(func() error {
			l, err := r.Lineage(gctx, id)
			if err != nil {
				return err
			}
			out[i] = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// LineagesOf resolves terms and returns their lineages in the same order.
// With ranks, nodes whose rank is "no rank" are dropped (see [FilterRanks]).
func (r *Runner) LineagesOf(ctx context.Context, terms []string, ranks bool) ([][]taxon.Node, error) {
	var lineages [][]taxon.Node
	err := r.observe(ctx, "lineage", len(terms), func() (int, error) {
		ids, err := r.ResolveTerms(ctx, terms)
		if err != nil {
			return 0, err
		}
		lineages, err = r.Lineages(ctx, ids)
		if err != nil {
			return 0, err
		}
		n := 0
		for i, l := range lineages {
			if ranks {
				lineages[i] = FilterRanks(l)
			}
			n += len(lineages[i])
		}
		return n, nil
	})
	return lineages, err
}

// FilterRanks returns the nodes of a root-first lineage that have a named
// rank. The first node (the root) is always kept so listings still start at
// the root.
func FilterRanks(lineage []taxon.Node) []taxon.Node {
	out := make([]taxon.Node, 0, len(lineage))
	for i, n := range lineage {
		if i == 0 || n.HasNamedRank() {
			out = append(out, n)
		}
	}
	return out
}

// =============================================================================
// Trees
// =============================================================================

// Tree builds the tree joining the lineages of terms. The longest lineage
// seeds the tree, the others are merged into it and the requested taxa are
// marked. Unless opts.Internal is set the tree is simplified.
func (r *Runner) Tree(ctx context.Context, terms []string, opts TreeOptions) (*tree.Tree, error) {
	var t *tree.Tree
	err := r.observe(ctx, "tree", len(terms), func() (int, error) {
		ids, err := r.ResolveTerms(ctx, terms)
		if err != nil {
			return 0, err
		}
		lineages, err := r.Lineages(ctx, ids)
		if err != nil {
			return 0, err
		}
		t = tree.FromLineages(r.root(), lineages)
		if unknown := t.Mark(ids...); len(unknown) > 0 {
			return 0, taxerrors.New(taxerrors.ErrCodeInternal, "lineage of taxon %d does not contain it", unknown[0])
		}
		if err := r.finish(t, opts.Internal); err != nil {
			return 0, err
		}
		return t.Len(), nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Subtree builds the tree of term and all its descendants. With
// opts.Species, species are leaves. The subtree root is marked.
func (r *Runner) Subtree(ctx context.Context, term string, opts SubtreeOptions) (*tree.Tree, error) {
	var t *tree.Tree
	err := r.observe(ctx, "subtree", 1, func() (int, error) {
		ids, err := r.ResolveTerms(ctx, []string{term})
		if err != nil {
			return 0, err
		}
		nodes, err := r.subtreeNodes(ctx, ids[0], opts.Species)
		if err != nil {
			return 0, err
		}
		t = tree.New(ids[0], nodes)
		t.Mark(ids[0])
		if err := r.finish(t, opts.Internal); err != nil {
			return 0, err
		}
		return t.Len(), nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *Runner) subtreeNodes(ctx context.Context, id int64, species bool) ([]taxon.Node, error) {
	key := r.Keyer.SubtreeKey(id, cache.SubtreeKeyOpts{StopAtSpecies: species})
	var nodes []taxon.Node
	if r.cacheGet(ctx, "subtree", key, &nodes) {
		return nodes, nil
	}
	nodes, err := r.Store.SubtreeNodes(ctx, id, species)
	if err != nil {
		return nil, err
	}
	r.cacheSet(ctx, "subtree", key, nodes, r.ttl(cache.TTLSubtree))
	return nodes, nil
}

// finish simplifies t unless internal nodes are wanted.
func (r *Runner) finish(t *tree.Tree, internal bool) error {
	if internal {
		return nil
	}
	res, err := t.Simplify()
	if err != nil {
		return inconsistent(err)
	}
	r.Logger.Debug("tree simplified",
		"before", res.NodesBefore,
		"after", res.NodesAfter,
		"contracted", res.Contracted,
		"depth", res.Depth)
	return nil
}

// =============================================================================
// Least Common Ancestors
// =============================================================================

// LCA returns the least common ancestor of the taxa a and b.
func (r *Runner) LCA(ctx context.Context, a, b int64) (taxon.Node, error) {
	n, err := tree.LCA(ctx, r.root(), a, b, r.Lineage)
	return n, inconsistent(err)
}

// LCAPairs resolves terms and computes the least common ancestor of every
// unordered pair, in input order: (t0,t1), (t0,t2), ..., (t1,t2), ...
// At least two terms are required.
func (r *Runner) LCAPairs(ctx context.Context, terms []string) ([]LCAResult, error) {
	if len(terms) < 2 {
		return nil, taxerrors.New(taxerrors.ErrCodeInvalidInput, "the lca command needs at least two taxa, got %d", len(terms))
	}
	var results []LCAResult
	err := r.observe(ctx, "lca", len(terms), func() (int, error) {
		ids, err := r.ResolveTerms(ctx, terms)
		if err != nil {
			return 0, err
		}
		lineages, err := r.Lineages(ctx, ids)
		if err != nil {
			return 0, err
		}
		byID := make(map[int64][]taxon.Node, len(ids))
		for i, id := range ids {
			byID[id] = lineages[i]
		}
		fetch := func(_ context.Context, id int64) ([]taxon.Node, error) {
			return byID[id], nil
		}

		for i := range ids {
			for j := i + 1; j < len(ids); j++ {
				lca, err := tree.LCA(ctx, r.root(), ids[i], ids[j], fetch)
				if err != nil {
					return 0, inconsistent(err)
				}
				results = append(results, LCAResult{
					A:   last(lineages[i]),
					B:   last(lineages[j]),
					LCA: lca,
				})
			}
		}
		return len(results), nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func last(lineage []taxon.Node) taxon.Node {
	return lineage[len(lineage)-1]
}

// inconsistent codes tree consistency failures as INTERNAL_ERROR.
func inconsistent(err error) error {
	if errors.Is(err, tree.ErrInconsistent) {
		return taxerrors.Wrap(taxerrors.ErrCodeInternal, err, "taxonomy data is inconsistent")
	}
	return err
}

// =============================================================================
// Cache Helpers
// =============================================================================

// cacheGet reads key into v. Backend failures are logged and count as misses.
func (r *Runner) cacheGet(ctx context.Context, keyType, key string, v any) bool {
	err := cache.GetJSON(ctx, r.Cache, key, v)
	switch {
	case err == nil:
		observability.Cache().OnCacheHit(ctx, keyType)
		return true
	case !errors.Is(err, cache.ErrCacheMiss):
		r.Logger.Warn("cache read failed", "key", key, "error", err)
	}
	observability.Cache().OnCacheMiss(ctx, keyType)
	return false
}

func (r *Runner) cacheSet(ctx context.Context, keyType, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err == nil {
		err = r.Cache.Set(ctx, key, data, ttl)
	}
	if err != nil {
		r.Logger.Warn("cache write failed", "key", key, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// Close releases the cache and, if it has a Close method, the store.
func (r *Runner) Close() error {
	var errs []error
	if r.Cache != nil {
		errs = append(errs, r.Cache.Close())
	}
	if c, ok := r.Store.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
