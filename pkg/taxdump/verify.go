package taxdump

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"strings"

	taxerrors "github.com/matzehuels/taxtree/pkg/errors"
)

var (
	// ErrChecksum is wrapped by the error Verify returns on a mismatch.
	ErrChecksum = errors.New("checksum mismatch")

	// ErrNoChecksum is returned by Verify when the archive came without a
	// checksum file.
	ErrNoChecksum = errors.New("no checksum available")
)

// Verify compares the MD5 sum of a.Path with the sum published in
// a.ChecksumPath. The checksum file holds the hex digest followed by the file
// name, as written by md5sum.
func Verify(a Archive) error {
	if a.ChecksumPath == "" {
		return ErrNoChecksum
	}
	raw, err := os.ReadFile(a.ChecksumPath)
	if err != nil {
		return err
	}
	fields := strings.Fields(string(raw))
	if len(fields) == 0 {
		return taxerrors.New(taxerrors.ErrCodeIntegrity, "%s is empty", a.ChecksumPath)
	}
	want := strings.ToLower(fields[0])

	got, err := MD5File(a.Path)
	if err != nil {
		return err
	}
	if got != want {
		return taxerrors.Wrap(taxerrors.ErrCodeIntegrity, ErrChecksum, "%s: expected %s, computed %s", a.Path, want, got)
	}
	return nil
}

// MD5File returns the hex MD5 digest of the file at path.
func MD5File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
