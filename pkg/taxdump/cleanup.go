package taxdump

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Cleanup removes the archive, its checksum and the given extracted files.
// Files that are already gone are ignored.
func Cleanup(a Archive, extracted []string) error {
	paths := append([]string{a.Path, a.ChecksumPath}, extracted...)
	var errs []error
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(filepath.Clean(p)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
