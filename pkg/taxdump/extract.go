package taxdump

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	taxerrors "github.com/matzehuels/taxtree/pkg/errors"
)

// Dump file names.
const (
	DivisionFile    = "division.dmp"
	GeneticCodeFile = "gencode.dmp"
	NamesFile       = "names.dmp"
	NodesFile       = "nodes.dmp"
)

// RequiredFiles are the dump files a populate run reads.
var RequiredFiles = []string{DivisionFile, GeneticCodeFile, NamesFile, NodesFile}

// Extract unpacks every regular file of the zip archive at path into dir and
// returns the written paths. Entry names are reduced to their base name so no
// entry can escape dir. It fails with MALFORMED_RECORD if one of
// RequiredFiles is missing from the archive.
func Extract(path, dir string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, taxerrors.Wrap(taxerrors.ErrCodeMalformedRecord, err, "open %s", path)
	}
	defer zr.Close()

	var written []string
	seen := make(map[string]bool)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := filepath.Base(filepath.FromSlash(f.Name))
		if name == "." || name == ".." || strings.HasPrefix(name, ".") {
			continue
		}
		dst := filepath.Join(dir, name)
		if err := extractFile(f, dst); err != nil {
			return written, err
		}
		written = append(written, dst)
		seen[name] = true
	}

	for _, name := range RequiredFiles {
		if !seen[name] {
			return written, taxerrors.New(taxerrors.ErrCodeMalformedRecord, "%s: missing %s", path, name)
		}
	}
	return written, nil
}

func extractFile(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
