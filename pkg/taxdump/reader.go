package taxdump

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	taxerrors "github.com/matzehuels/taxtree/pkg/errors"
	"github.com/matzehuels/taxtree/pkg/taxon"
)

// DivisionRecord is a line of division.dmp.
type DivisionRecord struct {
	ID   int64
	Code string
	Name string
}

// GeneticCodeRecord is a line of gencode.dmp.
type GeneticCodeRecord struct {
	ID           int64
	Abbreviation string
	Name         string
}

// NameRecord is a line of names.dmp.
type NameRecord struct {
	TaxID      int64
	Name       string
	UniqueName string
	Class      string
}

// NodeRecord is a line of nodes.dmp.
type NodeRecord struct {
	TaxID             int64
	ParentTaxID       int64
	Rank              string
	DivisionID        int64
	GeneticCodeID     int64
	MitoGeneticCodeID int64
	Comments          string
}

// Reader streams records from extracted dump files in Dir.
type Reader struct {
	Dir string
}

// NewReader creates a reader over the dump files in dir.
func NewReader(dir string) *Reader {
	return &Reader{Dir: dir}
}

// Divisions calls fn for every record of division.dmp.
func (r *Reader) Divisions(ctx context.Context, fn func(DivisionRecord) error) error {
	return r.each(ctx, DivisionFile, 3, func(f fields) error {
		rec := DivisionRecord{ID: f.int(0), Code: f.str(1), Name: f.str(2)}
		if f.err != nil {
			return f.err
		}
		return fn(rec)
	})
}

// GeneticCodes calls fn for every record of gencode.dmp.
func (r *Reader) GeneticCodes(ctx context.Context, fn func(GeneticCodeRecord) error) error {
	return r.each(ctx, GeneticCodeFile, 3, func(f fields) error {
		rec := GeneticCodeRecord{ID: f.int(0), Abbreviation: f.str(1), Name: f.str(2)}
		if f.err != nil {
			return f.err
		}
		return fn(rec)
	})
}

// Names calls fn for every record of names.dmp.
func (r *Reader) Names(ctx context.Context, fn func(NameRecord) error) error {
	return r.each(ctx, NamesFile, 4, func(f fields) error {
		rec := NameRecord{TaxID: f.int(0), Name: f.str(1), UniqueName: f.str(2), Class: f.str(3)}
		if f.err != nil {
			return f.err
		}
		return fn(rec)
	})
}

// Nodes calls fn for every record of nodes.dmp. The comments column is
// optional.
func (r *Reader) Nodes(ctx context.Context, fn func(NodeRecord) error) error {
	return r.each(ctx, NodesFile, 9, func(f fields) error {
		rec := NodeRecord{
			TaxID:             f.int(0),
			ParentTaxID:       f.int(1),
			Rank:              f.str(2),
			DivisionID:        f.int(4),
			GeneticCodeID:     f.int(6),
			MitoGeneticCodeID: f.int(8),
			Comments:          f.str(12),
		}
		if f.err != nil {
			return f.err
		}
		if rec.Rank == "" {
			rec.Rank = taxon.RankNone
		}
		return fn(rec)
	})
}

// fields is one split line. The first conversion error sticks in err.
type fields struct {
	vals []string
	file string
	line int
	err  error
}

func (f *fields) str(i int) string {
	if i >= len(f.vals) {
		return ""
	}
	return f.vals[i]
}

func (f *fields) int(i int) int64 {
	v, err := strconv.ParseInt(f.str(i), 10, 64)
	if err != nil && f.err == nil {
		f.err = taxerrors.Wrap(taxerrors.ErrCodeMalformedRecord, err, "%s:%d: column %d", f.file, f.line, i+1)
	}
	return v
}

// checkEvery is how many lines pass between context checks.
const checkEvery = 4096

func (r *Reader) each(ctx context.Context, name string, minFields int, fn func(fields) error) error {
	file, err := os.Open(filepath.Join(r.Dir, name))
	if err != nil {
		return err
	}
	defer file.Close()

	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if line%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		text := sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		vals := SplitRecord(text)
		if len(vals) < minFields {
			return taxerrors.New(taxerrors.ErrCodeMalformedRecord, "%s:%d: %d fields, want at least %d", name, line, len(vals), minFields)
		}
		if err := fn(fields{vals: vals, file: name, line: line}); err != nil {
			return err
		}
	}
	return sc.Err()
}

// SplitRecord splits a dump line into trimmed fields. The empty field after
// the terminating "|" is dropped.
func SplitRecord(line string) []string {
	line = strings.TrimRight(line, "\r\n")
	parts := strings.Split(line, "|")
	if n := len(parts); n > 1 && strings.TrimSpace(parts[n-1]) == "" {
		parts = parts[:n-1]
	}
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
