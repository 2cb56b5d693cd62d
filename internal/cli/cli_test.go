package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/taxtree/pkg/errors"
	"github.com/matzehuels/taxtree/pkg/taxdump"
	"github.com/matzehuels/taxtree/pkg/taxon"
)

const sampleDump = "../../pkg/taxdump/testdata/dump"

// env is a config file and a sample dump in a temporary directory.
type env struct {
	dir    string
	config string
	zip    string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	e := env{
		dir:    dir,
		config: filepath.Join(dir, "config.toml"),
		zip:    filepath.Join(dir, "taxdmp.zip"),
	}

	cfg := fmt.Sprintf("data_dir = %q\n\n[cache]\nbackend = \"file\"\ndir = %q\n",
		filepath.Join(dir, "data"), filepath.Join(dir, "cache"))
	if err := os.WriteFile(e.config, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range taxdump.RequiredFiles {
		data, err := os.ReadFile(filepath.Join(sampleDump, name))
		if err != nil {
			t.Fatal(err)
		}
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write(data)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	sum := md5.Sum(buf.Bytes())
	if err := os.WriteFile(e.zip, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(e.zip+".md5", []byte(hex.EncodeToString(sum[:])+"  taxdmp.zip\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return e
}

// run executes the CLI with args and returns stdout and stderr.
func (e env) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", e.config}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (e env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("%v: %v\nstderr:\n%s", args, err, stderr)
	}
	return out
}

func populatedEnv(t *testing.T) env {
	t.Helper()
	e := newEnv(t)
	e.mustRun(t, "populate", "--taxdmp", e.zip, "--no-progress")
	return e
}

func TestPopulate(t *testing.T) {
	e := newEnv(t)
	_, stderr, err := e.run(t, "populate", "--taxdmp", e.zip, "--no-progress", "--batch-size", "4")
	if err != nil {
		t.Fatalf("populate: %v\n%s", err, stderr)
	}
	for _, want := range []string{"Checksum verified", "Extracted 4 files", "Nodes", "13"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr lacks %q:\n%s", want, stderr)
		}
	}

	if _, err := os.Stat(filepath.Join(e.dir, "data", dumpDir, taxdump.ArchiveName)); !os.IsNotExist(err) {
		t.Errorf("downloaded archive not cleaned up: %v", err)
	}
	if _, err := os.Stat(e.zip); err != nil {
		t.Errorf("source archive removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(e.dir, "data", "taxonomy.db")); err != nil {
		t.Errorf("database missing: %v", err)
	}
}

func TestPopulate_Keep(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "populate", "--taxdmp", e.zip, "--no-progress", "--keep")
	if _, err := os.Stat(filepath.Join(e.dir, "data", dumpDir, taxdump.NodesFile)); err != nil {
		t.Errorf("--keep removed extracted files: %v", err)
	}
}

func TestPopulate_BadChecksum(t *testing.T) {
	e := newEnv(t)
	if err := os.WriteFile(e.zip+".md5", []byte("00000000000000000000000000000000  taxdmp.zip\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := e.run(t, "populate", "--taxdmp", e.zip, "--no-progress")
	if !errors.Is(err, errors.ErrCodeIntegrity) {
		t.Fatalf("err = %v, want INTEGRITY", err)
	}
	if Hint(err) == "" {
		t.Error("no hint for a checksum mismatch")
	}
}

func TestNotPopulated(t *testing.T) {
	e := newEnv(t)
	_, _, err := e.run(t, "show", "9606")
	if !errors.Is(err, errors.ErrCodeNotPopulated) {
		t.Fatalf("err = %v, want NOT_POPULATED", err)
	}
	if hint := Hint(err); !strings.Contains(hint, "taxtree populate") {
		t.Errorf("hint = %q", hint)
	}

	var buf bytes.Buffer
	PrintError(&buf, err)
	if !strings.Contains(buf.String(), "taxtree populate") {
		t.Errorf("PrintError output lacks the hint:\n%s", buf.String())
	}
}

func TestShow(t *testing.T) {
	e := populatedEnv(t)

	got := e.mustRun(t, "show", "9606", "Pan_troglodytes", "--csv")
	want := "taxid,scientific_name,rank,division,genetic_code,mitochondrial_genetic_code\n" +
		"9606,Homo sapiens,species,Primates,Standard,Vertebrate Mitochondrial\n" +
		"9598,Pan troglodytes,species,Primates,Standard,Vertebrate Mitochondrial\n"
	if got != want {
		t.Errorf("show --csv =\n%s\nwant\n%s", got, want)
	}

	got = e.mustRun(t, "show", "Escherichia coli")
	for _, want := range []string{
		"Escherichia coli - species\n------------------------",
		"NCBI Taxonomy ID: 562",
		"Same as:\n* Bacillus coli",
		"Comments: type species of the genus\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("show output lacks %q:\n%s", want, got)
		}
	}

	got = e.mustRun(t, "show", "9606", "--json")
	var nodes []taxon.Node
	if err := json.Unmarshal([]byte(got), &nodes); err != nil || len(nodes) != 1 || nodes[0].TaxID != 9606 {
		t.Errorf("show --json = %s (%v)", got, err)
	}

	got = e.mustRun(t, "show", "9606", "--yaml")
	if !strings.Contains(got, "tax_id: 9606") {
		t.Errorf("show --yaml =\n%s", got)
	}

	if _, _, err := e.run(t, "show", "9606", "--csv", "--json"); err == nil {
		t.Error("--csv with --json should fail")
	}
	if _, _, err := e.run(t, "show", "human"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("unknown name: err = %v, want NOT_FOUND", err)
	}
}

func TestLineage(t *testing.T) {
	e := populatedEnv(t)

	got := e.mustRun(t, "lineage", "9606")
	want := `root
  └┬─ no rank: cellular organisms (taxid: 131567)
   └┬─ superkingdom: Eukaryota (taxid: 2759)
    └┬─ family: Hominidae (taxid: 9604)
     └┬─ genus: Homo (taxid: 9605)
      └── species: Homo sapiens (taxid: 9606)
`
	if got != want {
		t.Errorf("lineage =\n%s\nwant\n%s", got, want)
	}

	got = e.mustRun(t, "lineage", "9606", "--ranks")
	want = `root
  └┬─ superkingdom: Eukaryota (taxid: 2759)
   └┬─ family: Hominidae (taxid: 9604)
    └┬─ genus: Homo (taxid: 9605)
     └── species: Homo sapiens (taxid: 9606)
`
	if got != want {
		t.Errorf("lineage --ranks =\n%s\nwant\n%s", got, want)
	}

	got = e.mustRun(t, "lineage", "562", "1", "--csv")
	want = "no rank:root:1,no rank:cellular organisms:131567,superkingdom:Bacteria:2,genus:Escherichia:561,species:Escherichia coli:562\n" +
		"no rank:root:1\n"
	if got != want {
		t.Errorf("lineage --csv =\n%s\nwant\n%s", got, want)
	}
}

func TestTree(t *testing.T) {
	e := populatedEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "diagram",
			args: []string{"tree", "Homo sapiens", "9598", "--format", "%name"},
			want: " ─┬─ root\n  └─┬─ Hominidae\n    ├── Pan troglodytes\n    └── Homo sapiens\n",
		},
		{
			name: "newick defaults to names",
			args: []string{"tree", "9606", "9598", "--newick"},
			want: "(root,(Hominidae,(Pan troglodytes,Homo sapiens)));\n",
		},
		{
			name: "newick with template",
			args: []string{"tree", "9606", "9598", "-n", "-f", "%rank:%taxid"},
			want: "(no rank:1,(family:9604,(species:9598,species:9606)));\n",
		},
		{
			name: "internal",
			args: []string{"tree", "9606", "--internal", "--output", "newick", "-f", "%taxid"},
			want: "(1,(131567,(2759,(9604,(9605,(9606))))));\n",
		},
		{
			name: "subtree to species",
			args: []string{"subtree", "Hominidae", "--species", "--newick"},
			want: "(Hominidae,(Pan,(Pan paniscus,Pan troglodytes),Homo sapiens));\n",
		},
		{
			name: "subtree",
			args: []string{"subtree", "9605", "-n", "-f", "%taxid"},
			want: "(9605,(63221));\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.mustRun(t, tt.args...); got != tt.want {
				t.Errorf("got\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestTree_Errors(t *testing.T) {
	e := populatedEnv(t)

	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"bad format", []string{"tree", "9606", "--output", "gif"}, errors.ErrCodeInvalidFormat},
		{"bad template", []string{"tree", "9606", "--format", "plain"}, errors.ErrCodeInvalidTemplate},
		{"unknown taxon", []string{"tree", "9606", "nobody"}, errors.ErrCodeNotFound},
		{"unknown subtree root", []string{"subtree", "777"}, errors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := e.run(t, tt.args...)
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}

	if _, _, err := e.run(t, "tree", "9606", "--newick", "--output", "dot"); err == nil {
		t.Error("--newick with --output should fail")
	}
}

func TestTree_OutputFile(t *testing.T) {
	e := populatedEnv(t)

	for _, format := range []string{"svg", "dot", "json"} {
		path := filepath.Join(e.dir, "apes."+format)
		_, stderr, err := e.run(t, "tree", "9606", "9598", "--output", format, "-o", path)
		if err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		if !strings.Contains(stderr, path) {
			t.Errorf("%s: stderr does not name the file:\n%s", format, stderr)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		want := map[string]string{"svg": "<svg", "dot": "digraph", "json": `"root": 1`}[format]
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("%s output lacks %q:\n%s", format, want, data)
		}
	}
}

func TestLCA(t *testing.T) {
	e := populatedEnv(t)

	got := e.mustRun(t, "lca", "Homo_sapiens", "9598", "562")
	want := "LCA(Homo sapiens, Pan troglodytes) = Hominidae\n" +
		"LCA(Homo sapiens, Escherichia coli) = cellular organisms\n" +
		"LCA(Pan troglodytes, Escherichia coli) = cellular organisms\n"
	if got != want {
		t.Errorf("lca =\n%s\nwant\n%s", got, want)
	}

	got = e.mustRun(t, "lca", "9606", "9605", "--csv")
	want = "name1,taxid1,name2,taxid2,lca_name,lca_taxid\n" +
		"Homo sapiens,9606,Homo,9605,Homo,9605\n"
	if got != want {
		t.Errorf("lca --csv =\n%s\nwant\n%s", got, want)
	}

	if _, _, err := e.run(t, "lca", "9606"); err == nil {
		t.Error("lca with one term should fail")
	}
}

func TestCacheCommands(t *testing.T) {
	e := populatedEnv(t)
	cacheDir := filepath.Join(e.dir, "cache")

	if got := e.mustRun(t, "cache", "path"); got != cacheDir+"\n" {
		t.Errorf("cache path = %q, want %q", got, cacheDir)
	}

	e.mustRun(t, "tree", "9606", "9598", "--newick")
	if countFiles(t, cacheDir) == 0 {
		t.Fatal("tree query left no cache entries")
	}

	_, stderr, err := e.run(t, "cache", "clear")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stderr, "Cleared the file cache") {
		t.Errorf("stderr = %q", stderr)
	}
	if n := countFiles(t, cacheDir); n != 0 {
		t.Errorf("%d cache entries left after clear", n)
	}
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			n++
		}
		return nil
	})
	return n
}

func TestPersistentFlags(t *testing.T) {
	e := newEnv(t)

	got := e.mustRun(t, "--cache", "memory", "--root", "131567", "config", "show")
	for _, want := range []string{`backend = "memory"`, "root_id = 131567"} {
		if !strings.Contains(got, want) {
			t.Errorf("config show lacks %q:\n%s", want, got)
		}
	}

	if _, _, err := e.run(t, "--cache", "floppy", "config", "show"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("unknown backend: err = %v, want INVALID_INPUT", err)
	}

	if got := e.mustRun(t, "config", "path"); got != e.config+"\n" {
		t.Errorf("config path = %q", got)
	}

	db := filepath.Join(e.dir, "other.db")
	e.mustRun(t, "--db", db, "populate", "--taxdmp", e.zip, "--no-progress")
	if _, err := os.Stat(db); err != nil {
		t.Errorf("--db ignored: %v", err)
	}
}

func TestCompletion(t *testing.T) {
	e := newEnv(t)
	if got := e.mustRun(t, "completion", "bash"); !strings.Contains(got, "taxtree") {
		t.Errorf("bash completion does not mention the command:\n%.200s", got)
	}
}
