package taxdump

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/charmbracelet/log"

	taxerrors "github.com/matzehuels/taxtree/pkg/errors"
	"github.com/matzehuels/taxtree/pkg/httputil"
)

// File names inside the work directory.
const (
	ArchiveName  = "taxdmp.zip"
	ChecksumName = "taxdmp.zip.md5"
)

// Archive is a fetched dump.
type Archive struct {
	// Path is the zip file.
	Path string
	// ChecksumPath is the .md5 file, or "" when the source had none.
	ChecksumPath string
	// Size is the number of bytes in the zip file.
	Size int64
}

// S3API is the subset of the S3 client used by the fetcher.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config configures the S3 client built by [NewS3Client].
type S3Config struct {
	Region    string
	Endpoint  string
	PathStyle bool
}

// NewS3Client builds an S3 client from the default AWS credential chain.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// Fetcher copies dump archives into a work directory.
type Fetcher struct {
	HTTP   *httputil.Client
	S3     S3API
	Logger *log.Logger
}

// NewFetcher creates a fetcher whose HTTP requests carry email in the From
// header. s3Client may be nil when no s3:// source will be used.
func NewFetcher(email string, s3Client S3API, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Fetcher{
		HTTP:   httputil.NewClient(email, logger),
		S3:     s3Client,
		Logger: logger,
	}
}

// Fetch copies the archive of src and its checksum file into dir.
// A missing checksum file is not an error; Archive.ChecksumPath is then "".
func (f *Fetcher) Fetch(ctx context.Context, src Source, dir string) (Archive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Archive{}, err
	}
	a := Archive{
		Path:         filepath.Join(dir, ArchiveName),
		ChecksumPath: filepath.Join(dir, ChecksumName),
	}

	f.Logger.Debug("fetching checksum", "source", src.ChecksumSource())
	if _, err := f.copy(ctx, src.ChecksumSource(), a.ChecksumPath); err != nil {
		if !taxerrors.Is(err, taxerrors.ErrCodeNotFound) {
			return Archive{}, err
		}
		f.Logger.Warn("no checksum published, integrity will not be verified", "source", src)
		a.ChecksumPath = ""
	}

	f.Logger.Debug("fetching archive", "source", src)
	n, err := f.copy(ctx, src, a.Path)
	if err != nil {
		return Archive{}, err
	}
	a.Size = n
	return a, nil
}

func (f *Fetcher) copy(ctx context.Context, src Source, dst string) (int64, error) {
	switch src.Kind {
	case KindHTTP:
		return f.HTTP.Download(ctx, src.URL, dst)
	case KindS3:
		return f.copyS3(ctx, src, dst)
	case KindFile:
		return copyFile(src.Path, dst)
	default:
		return 0, taxerrors.New(taxerrors.ErrCodeInvalidSource, "unknown source kind %q", src.Kind)
	}
}

func (f *Fetcher) copyS3(ctx context.Context, src Source, dst string) (int64, error) {
	if f.S3 == nil {
		return 0, taxerrors.New(taxerrors.ErrCodeInvalidSource, "%s: no S3 client configured", src)
	}
	out, err := f.S3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(src.Bucket),
		Key:    aws.String(src.Key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return 0, taxerrors.Wrap(taxerrors.ErrCodeNotFound, err, "%s: not found", src)
		}
		return 0, taxerrors.Wrap(taxerrors.ErrCodeNetwork, err, "get %s", src)
	}
	defer out.Body.Close()
	return writeFile(dst, out.Body)
}

func copyFile(src, dst string) (int64, error) {
	if same, _ := samePath(src, dst); same {
		info, err := os.Stat(src)
		if err != nil {
			return 0, err
		}
		return info.Size(), nil
	}
	in, err := os.Open(src)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, taxerrors.Wrap(taxerrors.ErrCodeNotFound, err, "%s: not found", src)
	}
	if err != nil {
		return 0, err
	}
	defer in.Close()
	return writeFile(dst, in)
}

func writeFile(dst string, r io.Reader) (int64, error) {
	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return 0, err
	}
	return n, nil
}

func samePath(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(ai, bi), nil
}
