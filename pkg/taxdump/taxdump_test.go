package taxdump

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/go-cmp/cmp"

	taxerrors "github.com/matzehuels/taxtree/pkg/errors"
)

const sampleDir = "testdata/dump"

// sampleZip packs the sample dump into a zip archive and returns its bytes
// and MD5 line.
func sampleZip(t *testing.T, extra map[string]string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range RequiredFiles {
		data, err := os.ReadFile(filepath.Join(sampleDir, name))
		if err != nil {
			t.Fatal(err)
		}
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write(data)
	}
	for name, body := range extra {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(w, body)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	sum := md5.Sum(buf.Bytes())
	return buf.Bytes(), hex.EncodeToString(sum[:]) + "  taxdmp.zip\n"
}

func TestParseSource(t *testing.T) {
	tests := []struct {
		in      string
		want    Source
		wantErr bool
	}{
		{"", Source{Kind: KindHTTP, URL: DefaultURL}, false},
		{"https://example.org/taxdmp.zip", Source{Kind: KindHTTP, URL: "https://example.org/taxdmp.zip"}, false},
		{"http://mirror/taxdmp.zip", Source{Kind: KindHTTP, URL: "http://mirror/taxdmp.zip"}, false},
		{"s3://dumps/ncbi/taxdmp.zip", Source{Kind: KindS3, Bucket: "dumps", Key: "ncbi/taxdmp.zip"}, false},
		{"file:///tmp/taxdmp.zip", Source{Kind: KindFile, Path: "/tmp/taxdmp.zip"}, false},
		{"./taxdmp.zip", Source{Kind: KindFile, Path: "./taxdmp.zip"}, false},
		{"s3://bucket-only", Source{}, true},
		{"ftp://ftp.ncbi.nih.gov/pub/taxonomy/taxdmp.zip", Source{}, true},
		{"https://", Source{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSource(tt.in)
			if tt.wantErr {
				if !taxerrors.Is(err, taxerrors.ErrCodeInvalidSource) {
					t.Errorf("ParseSource(%q) error = %v, want INVALID_SOURCE", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSource(%q) error: %v", tt.in, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseSource(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
			if got.String() != strings.TrimPrefix(tt.in, "file://") && tt.in != "" {
				t.Errorf("String() = %q, want %q", got.String(), tt.in)
			}
		})
	}
}

func TestChecksumSource(t *testing.T) {
	src, _ := ParseSource("s3://b/k.zip")
	if got := src.ChecksumSource().String(); got != "s3://b/k.zip.md5" {
		t.Errorf("ChecksumSource() = %q", got)
	}
}

func TestFetch_HTTP(t *testing.T) {
	zipData, md5Line := sampleZip(t, nil)
	var from string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		from = r.Header.Get("From")
		switch r.URL.Path {
		case "/taxdmp.zip":
			w.Write(zipData)
		case "/taxdmp.zip.md5":
			io.WriteString(w, md5Line)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src, err := ParseSource(srv.URL + "/taxdmp.zip")
	if err != nil {
		t.Fatal(err)
	}
	f := NewFetcher("user@example.org", nil, nil)
	f.HTTP.Delay = time.Millisecond

	a, err := f.Fetch(context.Background(), src, t.TempDir())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if a.Size != int64(len(zipData)) {
		t.Errorf("Size = %d, want %d", a.Size, len(zipData))
	}
	if from != "user@example.org" {
		t.Errorf("From header = %q", from)
	}
	if err := Verify(a); err != nil {
		t.Errorf("Verify() error: %v", err)
	}
}

func TestFetch_HTTPWithoutChecksum(t *testing.T) {
	zipData, _ := sampleZip(t, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/taxdmp.zip" {
			w.Write(zipData)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	src, _ := ParseSource(srv.URL + "/taxdmp.zip")
	a, err := NewFetcher("", nil, nil).Fetch(context.Background(), src, t.TempDir())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if a.ChecksumPath != "" {
		t.Errorf("ChecksumPath = %q, want empty", a.ChecksumPath)
	}
	if err := Verify(a); !errors.Is(err, ErrNoChecksum) {
		t.Errorf("Verify() error = %v, want ErrNoChecksum", err)
	}
}

func TestFetch_LocalFile(t *testing.T) {
	zipData, md5Line := sampleZip(t, nil)
	srcDir := t.TempDir()
	zipPath := filepath.Join(srcDir, "dump.zip")
	os.WriteFile(zipPath, zipData, 0o644)
	os.WriteFile(zipPath+".md5", []byte(md5Line), 0o644)

	src, _ := ParseSource(zipPath)
	a, err := NewFetcher("", nil, nil).Fetch(context.Background(), src, t.TempDir())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if err := Verify(a); err != nil {
		t.Errorf("Verify() error: %v", err)
	}
}

func TestFetch_LocalFileMissing(t *testing.T) {
	src, _ := ParseSource(filepath.Join(t.TempDir(), "nope.zip"))
	_, err := NewFetcher("", nil, nil).Fetch(context.Background(), src, t.TempDir())
	if !taxerrors.Is(err, taxerrors.ErrCodeNotFound) {
		t.Errorf("Fetch() error = %v, want NOT_FOUND", err)
	}
}

type fakeS3 map[string][]byte

func (f fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestFetch_S3(t *testing.T) {
	zipData, md5Line := sampleZip(t, nil)
	store := fakeS3{
		"dumps/taxdmp.zip":     zipData,
		"dumps/taxdmp.zip.md5": []byte(md5Line),
	}

	src, _ := ParseSource("s3://dumps/taxdmp.zip")
	a, err := NewFetcher("", store, nil).Fetch(context.Background(), src, t.TempDir())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if err := Verify(a); err != nil {
		t.Errorf("Verify() error: %v", err)
	}

	missing, _ := ParseSource("s3://dumps/other.zip")
	_, err = NewFetcher("", store, nil).Fetch(context.Background(), missing, t.TempDir())
	if !taxerrors.Is(err, taxerrors.ErrCodeNotFound) {
		t.Errorf("Fetch(missing) error = %v, want NOT_FOUND", err)
	}
}

func TestFetch_S3WithoutClient(t *testing.T) {
	src, _ := ParseSource("s3://dumps/taxdmp.zip")
	_, err := NewFetcher("", nil, nil).Fetch(context.Background(), src, t.TempDir())
	if !taxerrors.Is(err, taxerrors.ErrCodeInvalidSource) {
		t.Errorf("Fetch() error = %v, want INVALID_SOURCE", err)
	}
}

func TestVerify_Mismatch(t *testing.T) {
	dir := t.TempDir()
	a := Archive{Path: filepath.Join(dir, ArchiveName), ChecksumPath: filepath.Join(dir, ChecksumName)}
	os.WriteFile(a.Path, []byte("data"), 0o644)
	os.WriteFile(a.ChecksumPath, []byte("00000000000000000000000000000000  taxdmp.zip\n"), 0o644)

	err := Verify(a)
	if !errors.Is(err, ErrChecksum) {
		t.Errorf("Verify() error = %v, want ErrChecksum", err)
	}
	if !taxerrors.Is(err, taxerrors.ErrCodeIntegrity) {
		t.Errorf("Verify() error code = %s, want INTEGRITY", taxerrors.GetCode(err))
	}
}

func TestMD5File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	os.WriteFile(path, []byte("hello"), 0o644)

	got, err := MD5File(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "5d41402abc4b2a76b9719d911017c592"; got != want {
		t.Errorf("MD5File() = %s, want %s", got, want)
	}
}

func TestExtract(t *testing.T) {
	zipData, _ := sampleZip(t, map[string]string{
		"readme.txt":        "hello",
		"nested/merged.dmp": "",
		".hidden":           "x",
	})
	dir := t.TempDir()
	zipPath := filepath.Join(dir, ArchiveName)
	os.WriteFile(zipPath, zipData, 0o644)

	out := filepath.Join(dir, "out")
	os.Mkdir(out, 0o755)
	written, err := Extract(zipPath, out)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	for _, p := range written {
		if filepath.Dir(p) != out {
			t.Errorf("extracted %s outside %s", p, out)
		}
	}
	for _, name := range append(RequiredFiles, "readme.txt", "merged.dmp") {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("%s not extracted: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(out, "nested")); err == nil {
		t.Error("directory structure was kept")
	}
	if _, err := os.Stat(filepath.Join(out, ".hidden")); err == nil {
		t.Error("hidden entry was extracted")
	}
}

func TestExtract_MissingRequired(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create(NodesFile)
	io.WriteString(w, "1\t|\t1\t|\tno rank\t|\n")
	zw.Close()

	dir := t.TempDir()
	zipPath := filepath.Join(dir, ArchiveName)
	os.WriteFile(zipPath, buf.Bytes(), 0o644)

	_, err := Extract(zipPath, dir)
	if !taxerrors.Is(err, taxerrors.ErrCodeMalformedRecord) {
		t.Errorf("Extract() error = %v, want MALFORMED_RECORD", err)
	}
}

func TestExtract_NotAZip(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, ArchiveName)
	os.WriteFile(zipPath, []byte("<html>"), 0o644)

	_, err := Extract(zipPath, dir)
	if !taxerrors.Is(err, taxerrors.ErrCodeMalformedRecord) {
		t.Errorf("Extract() error = %v, want MALFORMED_RECORD", err)
	}
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	a := Archive{Path: filepath.Join(dir, ArchiveName), ChecksumPath: filepath.Join(dir, ChecksumName)}
	extracted := []string{filepath.Join(dir, NodesFile), filepath.Join(dir, "gone.dmp")}
	for _, p := range []string{a.Path, a.ChecksumPath, extracted[0]} {
		os.WriteFile(p, nil, 0o644)
	}

	if err := Cleanup(a, extracted); err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("%d files left after Cleanup()", len(entries))
	}
}
