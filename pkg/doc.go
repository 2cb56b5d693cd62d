// Package pkg provides the core libraries of taxtree, a local mirror of the
// NCBI taxonomy that builds, simplifies and renders taxonomic trees.
//
// # Overview
//
// The pkg directory is organized into four areas:
//
//  1. Data: [taxdump] fetches and parses the NCBI dump, [store] loads it into
//     a SQL database and answers lookups.
//  2. Domain: [taxon] holds the node records, [tree] merges lineages, marks,
//     simplifies, renders and resolves least common ancestors.
//  3. Orchestration: [pipeline] ties store, cache and tree together and is
//     shared by the CLI and the HTTP API.
//  4. Infrastructure: [cache], [config], [errors], [io], [observability],
//     [httputil] and [render/nodelink].
//
// # Architecture
//
// The data flow through taxtree:
//
//	taxdmp.zip (HTTP, S3 or file)
//	         ↓
//	    [taxdump] package (fetch, verify, extract, parse)
//	         ↓
//	    [store] package (bulk load, name and lineage queries)
//	         ↓
//	    [pipeline] package (resolve terms, cache lineages)
//	         ↓
//	    [tree] package (merge, mark, simplify, LCA)
//	         ↓
//	    text diagram, Newick-style string, DOT, SVG, PNG or JSON
//
// # Quick Start
//
//	s, _ := store.Open(ctx, store.Config{Driver: "sqlite", DSN: "taxonomy.db"})
//	r := pipeline.NewRunner(s, cache.NewNullCache(), nil, nil)
//	t, _ := r.Tree(ctx, []string{"9606", "Pan troglodytes"}, pipeline.TreeOptions{})
//	out, _ := r.Render(ctx, t, pipeline.RenderOptions{Format: pipeline.FormatText})
//
// # Testing
//
//	go test ./pkg/...            # All tests
//	go test ./pkg/tree/...       # Specific package
//	go test -run Example         # Examples only
//
// [taxdump]: https://pkg.go.dev/github.com/matzehuels/taxtree/pkg/taxdump
// [store]: https://pkg.go.dev/github.com/matzehuels/taxtree/pkg/store
// [taxon]: https://pkg.go.dev/github.com/matzehuels/taxtree/pkg/taxon
// [tree]: https://pkg.go.dev/github.com/matzehuels/taxtree/pkg/tree
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/taxtree/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/taxtree/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/taxtree/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/taxtree/pkg/errors
// [io]: https://pkg.go.dev/github.com/matzehuels/taxtree/pkg/io
// [observability]: https://pkg.go.dev/github.com/matzehuels/taxtree/pkg/observability
// [httputil]: https://pkg.go.dev/github.com/matzehuels/taxtree/pkg/httputil
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/taxtree/pkg/render/nodelink
package pkg
