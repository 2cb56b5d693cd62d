package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/taxtree/pkg/taxdump"
	"github.com/matzehuels/taxtree/pkg/taxon"
)

// DefaultBatchSize is the number of rows inserted per transaction.
const DefaultBatchSize = 10000

// Load stages reported through [LoadOptions.Progress].
const (
	StageDivisions    = "divisions"
	StageGeneticCodes = "genetic codes"
	StageNames        = "names"
	StageNodes        = "nodes"
	StageIndexes      = "indexes"
)

// LoadOptions tunes [Store.Load].
type LoadOptions struct {
	// RootID is the ID forced to be its own parent. Zero means
	// taxon.DefaultRootID.
	RootID int64
	// BatchSize is the number of rows per transaction. Zero means
	// DefaultBatchSize.
	BatchSize int
	// Source is recorded in the meta table.
	Source string
	// Progress, if set, is called after every committed batch and at the
	// end of each stage.
	Progress func(stage string, rows int64)
}

// LoadStats reports what [Store.Load] inserted.
type LoadStats struct {
	RunID        string
	Divisions    int64
	GeneticCodes int64
	Names        int64
	Nodes        int64
	Duration     time.Duration
}

// Load replaces the database contents with the dump read by r. Tables are
// dropped and recreated, rows are inserted in transactions of
// opts.BatchSize rows and indexes are built at the end.
func (s *Store) Load(ctx context.Context, r *taxdump.Reader, opts LoadOptions) (LoadStats, error) {
	if opts.RootID == 0 {
		opts.RootID = taxon.DefaultRootID
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Progress == nil {
		opts.Progress = func(string, int64) {}
	}
	start := time.Now()
	stats := LoadStats{RunID: uuid.NewString()}
	s.logger.Info("loading dump", "run", stats.RunID, "dir", r.Dir)

	if err := s.Init(ctx); err != nil {
		return stats, err
	}

	var err error
	stats.Divisions, err = s.loadStage(ctx, StageDivisions, opts,
		"INSERT INTO divisions (id, code, division) VALUES (?, ?, ?)",
		func(add func(...any) error) error {
			return r.Divisions(ctx, func(d taxdump.DivisionRecord) error {
				return add(d.ID, d.Code, d.Name)
			})
		})
	if err != nil {
		return stats, err
	}

	stats.GeneticCodes, err = s.loadStage(ctx, StageGeneticCodes, opts,
		"INSERT INTO genetic_codes (id, name) VALUES (?, ?)",
		func(add func(...any) error) error {
			return r.GeneticCodes(ctx, func(g taxdump.GeneticCodeRecord) error {
				return add(g.ID, g.Name)
			})
		})
	if err != nil {
		return stats, err
	}

	stats.Names, err = s.loadStage(ctx, StageNames, opts,
		"INSERT INTO names (seq, tax_id, name, name_class) VALUES (?, ?, ?, ?)",
		func(add func(...any) error) error {
			var seq int64
			return r.Names(ctx, func(n taxdump.NameRecord) error {
				seq++
				return add(seq, n.TaxID, n.Name, n.Class)
			})
		})
	if err != nil {
		return stats, err
	}

	sawRoot := false
	stats.Nodes, err = s.loadStage(ctx, StageNodes, opts,
		"INSERT INTO nodes (tax_id, parent_tax_id, rank, division_id, genetic_code_id, mito_genetic_code_id, comment) VALUES (?, ?, ?, ?, ?, ?, ?)",
		func(add func(...any) error) error {
			err := r.Nodes(ctx, func(n taxdump.NodeRecord) error {
				if n.TaxID == opts.RootID {
					sawRoot = true
					n.ParentTaxID = opts.RootID
				}
				return add(n.TaxID, n.ParentTaxID, n.Rank, n.DivisionID, n.GeneticCodeID, n.MitoGeneticCodeID, n.Comments)
			})
			if err != nil || sawRoot {
				return err
			}
			s.logger.Warn("dump has no root node, inserting one", "root", opts.RootID)
			return add(opts.RootID, opts.RootID, taxon.RankNone, 0, 0, 0, "")
		})
	if err != nil {
		return stats, err
	}

	if err := s.createIndexes(ctx); err != nil {
		return stats, err
	}
	opts.Progress(StageIndexes, 0)

	meta := map[string]string{
		"run_id":       stats.RunID,
		"source":       opts.Source,
		"root_id":      strconv.FormatInt(opts.RootID, 10),
		"populated_at": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := s.db.ExecContext(ctx, s.rebind("INSERT INTO meta (key, value) VALUES (?, ?)"), k, v); err != nil {
			return stats, fmt.Errorf("write meta: %w", err)
		}
	}

	stats.Duration = time.Since(start)
	s.logger.Info("dump loaded",
		"nodes", stats.Nodes,
		"names", stats.Names,
		"duration", stats.Duration.Round(time.Millisecond))
	return stats, nil
}

// loadStage runs feed, inserting every row it adds with insert.
func (s *Store) loadStage(ctx context.Context, stage string, opts LoadOptions, insert string,
	feed func(add func(...any) error) error) (int64, error) {
	b := &batcher{ctx: ctx, db: s.db, query: s.rebind(insert), size: opts.BatchSize}
	b.onCommit = func() {
		s.logger.Debug("batch committed", "stage", stage, "rows", b.total)
		opts.Progress(stage, b.total)
	}
	if err := feed(b.add); err != nil {
		b.rollback()
		return b.total, fmt.Errorf("load %s: %w", stage, err)
	}
	if err := b.flush(); err != nil {
		return b.total, fmt.Errorf("load %s: %w", stage, err)
	}
	opts.Progress(stage, b.total)
	return b.total, nil
}

// batcher inserts rows through one prepared statement, committing every size
// rows.
type batcher struct {
	ctx      context.Context
	db       *sql.DB
	query    string
	size     int
	onCommit func()

	tx    *sql.Tx
	stmt  *sql.Stmt
	n     int
	total int64
}

func (b *batcher) add(args ...any) error {
	if b.tx == nil {
		tx, err := b.db.BeginTx(b.ctx, nil)
		if err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(b.ctx, b.query)
		if err != nil {
			tx.Rollback()
			return err
		}
		b.tx, b.stmt = tx, stmt
	}
	if _, err := b.stmt.ExecContext(b.ctx, args...); err != nil {
		return err
	}
	b.n++
	b.total++
	if b.n >= b.size {
		return b.flush()
	}
	return nil
}

func (b *batcher) flush() error {
	if b.tx == nil {
		return nil
	}
	b.stmt.Close()
	err := b.tx.Commit()
	b.tx, b.stmt, b.n = nil, nil, 0
	if err == nil && b.onCommit != nil {
		b.onCommit()
	}
	return err
}

func (b *batcher) rollback() {
	if b.tx == nil {
		return
	}
	b.stmt.Close()
	b.tx.Rollback()
	b.tx, b.stmt, b.n = nil, nil, 0
}

// Stats describes the populated database.
type Stats struct {
	Nodes        int64
	Names        int64
	Divisions    int64
	GeneticCodes int64
	RootID       int64
	RunID        string
	Source       string
	PopulatedAt  time.Time
}

// Stats counts rows and reads the metadata of the last load.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	counts := []struct {
		table string
		dst   *int64
	}{
		{"nodes", &st.Nodes},
		{"names", &st.Names},
		{"divisions", &st.Divisions},
		{"genetic_codes", &st.GeneticCodes},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return st, s.queryErr(ctx, err, "count "+c.table)
		}
	}

	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return st, s.queryErr(ctx, err, "read meta")
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return st, err
		}
		switch k {
		case "run_id":
			st.RunID = v
		case "source":
			st.Source = v
		case "root_id":
			st.RootID, _ = strconv.ParseInt(v, 10, 64)
		case "populated_at":
			st.PopulatedAt, _ = time.Parse(time.RFC3339, v)
		}
	}
	return st, rows.Err()
}
