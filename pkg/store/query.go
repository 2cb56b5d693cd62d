package store

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"

	taxerrors "github.com/matzehuels/taxtree/pkg/errors"
	"github.com/matzehuels/taxtree/pkg/taxon"
)

// mitoUnspecified is the genetic code name NCBI uses for "no mitochondria".
const mitoUnspecified = "Unspecified"

// inChunk bounds the number of parameters of one IN query.
const inChunk = 500

const nodeColumns = `
	SELECT n.tax_id, n.parent_tax_id, n.rank,
	       COALESCE(d.division, ''), COALESCE(gc.name, ''), COALESCE(mgc.name, ''),
	       n.comment, nm.name_class, nm.name
	FROM nodes n
	LEFT JOIN divisions d ON n.division_id = d.id
	LEFT JOIN genetic_codes gc ON n.genetic_code_id = gc.id
	LEFT JOIN genetic_codes mgc ON n.mito_genetic_code_id = mgc.id
	JOIN names nm ON nm.tax_id = n.tax_id`

// Node returns the node with the given ID.
func (s *Store) Node(ctx context.Context, id int64) (taxon.Node, error) {
	nodes, err := s.Nodes(ctx, []int64{id})
	if err != nil {
		return taxon.Node{}, err
	}
	return nodes[0], nil
}

// Nodes returns the nodes with the given IDs in the same order. Repeated IDs
// yield repeated nodes. It fails with NOT_FOUND on the first unknown ID and
// with MALFORMED_RECORD for a node without a scientific name.
func (s *Store) Nodes(ctx context.Context, ids []int64) ([]taxon.Node, error) {
	byID := make(map[int64]*taxon.Node, len(ids))
	unique := slices.Compact(slices.Sorted(slices.Values(ids)))
	for chunk := range slices.Chunk(unique, inChunk) {
		if err := s.loadNodes(ctx, chunk, byID); err != nil {
			return nil, err
		}
	}

	nodes := make([]taxon.Node, 0, len(ids))
	for _, id := range ids {
		n, ok := byID[id]
		if !ok {
			return nil, taxerrors.New(taxerrors.ErrCodeNotFound, "no such taxonomy ID: %d", id)
		}
		nodes = append(nodes, *n)
	}
	return nodes, nil
}

func (s *Store) loadNodes(ctx context.Context, ids []int64, into map[int64]*taxon.Node) error {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := nodeColumns + " WHERE n.tax_id IN (" + placeholders(len(ids)) + ") ORDER BY n.tax_id, nm.seq"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return s.queryErr(ctx, err, "query nodes")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r           taxon.Node
			class, name string
		)
		if err := rows.Scan(&r.TaxID, &r.ParentTaxID, &r.Rank, &r.Division, &r.GeneticCode,
			&r.MitoGeneticCode, &r.Comments, &class, &name); err != nil {
			return err
		}
		n, ok := into[r.TaxID]
		if !ok {
			if r.MitoGeneticCode == mitoUnspecified {
				r.MitoGeneticCode = ""
			}
			n = &r
			into[r.TaxID] = n
		}
		n.AddName(class, name)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range ids {
		if n, ok := into[id]; ok {
			if err := n.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// TaxIDs resolves exact scientific names to IDs, keeping the input order.
// It fails with NOT_FOUND on the first name that matches nothing. When a name
// is shared by several taxa the lowest ID wins.
func (s *Store) TaxIDs(ctx context.Context, names []string) ([]int64, error) {
	query := s.rebind("SELECT MIN(tax_id) FROM names WHERE name = ? AND name_class = ?")
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		var id sql.NullInt64
		err := s.db.QueryRowContext(ctx, query, name, taxon.ClassScientificName).Scan(&id)
		if err != nil {
			return nil, s.queryErr(ctx, err, "resolve name")
		}
		if !id.Valid {
			return nil, taxerrors.New(taxerrors.ErrCodeNotFound, "no such scientific name: %q", name)
		}
		ids = append(ids, id.Int64)
	}
	return ids, nil
}

// LineageIDs returns the IDs from root down to id. It fails with NOT_FOUND
// if id is unknown and with MALFORMED_RECORD if the parent chain loops or
// ends somewhere other than root.
func (s *Store) LineageIDs(ctx context.Context, id, root int64) ([]int64, error) {
	query := s.rebind("SELECT parent_tax_id FROM nodes WHERE tax_id = ?")
	ids := []int64{id}
	seen := map[int64]bool{id: true}
	for cur := id; cur != root; {
		var parent int64
		err := s.db.QueryRowContext(ctx, query, cur).Scan(&parent)
		if errors.Is(err, sql.ErrNoRows) {
			if cur == id {
				return nil, taxerrors.New(taxerrors.ErrCodeNotFound, "no such taxonomy ID: %d", id)
			}
			return nil, taxerrors.New(taxerrors.ErrCodeMalformedRecord, "taxon %d: parent %d does not exist", id, cur)
		}
		if err != nil {
			return nil, s.queryErr(ctx, err, "query parent")
		}
		if parent == cur || seen[parent] {
			return nil, taxerrors.New(taxerrors.ErrCodeMalformedRecord, "ancestry of taxon %d does not reach root %d", id, root)
		}
		seen[parent] = true
		ids = append(ids, parent)
		cur = parent
	}
	slices.Reverse(ids)
	return ids, nil
}

// Lineage returns the nodes from root down to id.
func (s *Store) Lineage(ctx context.Context, id, root int64) ([]taxon.Node, error) {
	ids, err := s.LineageIDs(ctx, id, root)
	if err != nil {
		return nil, err
	}
	return s.Nodes(ctx, ids)
}

// childRef is a child ID with its rank.
type childRef struct {
	id   int64
	rank string
}

func (s *Store) children(ctx context.Context, id int64) ([]childRef, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT tax_id, rank FROM nodes WHERE parent_tax_id = ? AND tax_id <> parent_tax_id ORDER BY tax_id"), id)
	if err != nil {
		return nil, s.queryErr(ctx, err, "query children")
	}
	defer rows.Close()

	var refs []childRef
	for rows.Next() {
		var c childRef
		if err := rows.Scan(&c.id, &c.rank); err != nil {
			return nil, err
		}
		refs = append(refs, c)
	}
	return refs, rows.Err()
}

// Children returns the IDs of the direct children of id in ascending order.
func (s *Store) Children(ctx context.Context, id int64) ([]int64, error) {
	refs, err := s.children(ctx, id)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(refs))
	for i, c := range refs {
		ids[i] = c.id
	}
	return ids, nil
}

// SubtreeIDs returns root and all its descendants in breadth-first order.
// With stopAtSpecies, species-ranked descendants are included but not
// descended into. It fails with NOT_FOUND if root is unknown.
func (s *Store) SubtreeIDs(ctx context.Context, root int64, stopAtSpecies bool) ([]int64, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM nodes WHERE tax_id = ?"), root).Scan(&n)
	if err != nil {
		return nil, s.queryErr(ctx, err, "query node")
	}
	if n == 0 {
		return nil, taxerrors.New(taxerrors.ErrCodeNotFound, "no such taxonomy ID: %d", root)
	}

	type item struct {
		id   int64
		leaf bool
	}
	var ids []int64
	seen := map[int64]bool{root: true}
	queue := []item{{id: root}}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		ids = append(ids, it.id)
		if it.leaf {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		refs, err := s.children(ctx, it.id)
		if err != nil {
			return nil, err
		}
		for _, c := range refs {
			if seen[c.id] {
				return nil, taxerrors.New(taxerrors.ErrCodeMalformedRecord, "taxon %d appears twice below %d", c.id, root)
			}
			seen[c.id] = true
			queue = append(queue, item{id: c.id, leaf: stopAtSpecies && c.rank == taxon.RankSpecies})
		}
	}
	return ids, nil
}

// SubtreeNodes returns the nodes of [Store.SubtreeIDs].
func (s *Store) SubtreeNodes(ctx context.Context, root int64, stopAtSpecies bool) ([]taxon.Node, error) {
	ids, err := s.SubtreeIDs(ctx, root, stopAtSpecies)
	if err != nil {
		return nil, err
	}
	return s.Nodes(ctx, ids)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
