package taxdump

import (
	"net/url"
	"strings"

	"github.com/matzehuels/taxtree/pkg/errors"
)

// DefaultURL is the NCBI location of the current taxonomy dump.
const DefaultURL = "https://ftp.ncbi.nih.gov/pub/taxonomy/taxdmp.zip"

// Kind is the transport of a [Source].
type Kind string

const (
	KindHTTP Kind = "http"
	KindS3   Kind = "s3"
	KindFile Kind = "file"
)

// Source locates a taxdmp.zip archive.
type Source struct {
	Kind Kind
	// URL is set for KindHTTP.
	URL string
	// Bucket and Key are set for KindS3.
	Bucket string
	Key    string
	// Path is set for KindFile.
	Path string
}

// ParseSource parses an http(s) URL, an s3://bucket/key URL or a local path.
// An empty string means [DefaultURL].
func ParseSource(s string) (Source, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		s = DefaultURL
	}
	switch {
	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		u, err := url.Parse(s)
		if err != nil || u.Host == "" {
			return Source{}, errors.New(errors.ErrCodeInvalidSource, "invalid URL %q", s)
		}
		return Source{Kind: KindHTTP, URL: s}, nil
	case strings.HasPrefix(s, "s3://"):
		bucket, key, _ := strings.Cut(strings.TrimPrefix(s, "s3://"), "/")
		if bucket == "" || key == "" {
			return Source{}, errors.New(errors.ErrCodeInvalidSource, "s3 source %q needs a bucket and a key", s)
		}
		return Source{Kind: KindS3, Bucket: bucket, Key: key}, nil
	case strings.HasPrefix(s, "file://"):
		return Source{Kind: KindFile, Path: strings.TrimPrefix(s, "file://")}, nil
	case strings.Contains(s, "://"):
		return Source{}, errors.New(errors.ErrCodeInvalidSource, "unsupported source scheme in %q", s)
	default:
		return Source{Kind: KindFile, Path: s}, nil
	}
}

// String returns the source in the form accepted by ParseSource.
func (s Source) String() string {
	switch s.Kind {
	case KindHTTP:
		return s.URL
	case KindS3:
		return "s3://" + s.Bucket + "/" + s.Key
	default:
		return s.Path
	}
}

// ChecksumSource returns the location of the archive's .md5 companion.
func (s Source) ChecksumSource() Source {
	c := s
	switch s.Kind {
	case KindHTTP:
		c.URL += ".md5"
	case KindS3:
		c.Key += ".md5"
	default:
		c.Path += ".md5"
	}
	return c
}
