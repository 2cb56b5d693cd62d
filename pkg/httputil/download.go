package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/taxtree/pkg/errors"
	"github.com/matzehuels/taxtree/pkg/observability"
)

// Retry defaults.
const (
	DefaultAttempts = 3
	DefaultDelay    = time.Second
)

// Client downloads files over HTTP with retries.
type Client struct {
	HTTP     *http.Client
	Header   http.Header
	Attempts int
	Delay    time.Duration
	Logger   *log.Logger
}

// NewClient creates a client with default retry settings. from, when not
// empty, is sent as the From header of every request.
func NewClient(from string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	h := make(http.Header)
	h.Set("User-Agent", "taxtree")
	if from != "" {
		h.Set("From", from)
	}
	return &Client{
		HTTP:     &http.Client{Timeout: 30 * time.Minute},
		Header:   h,
		Attempts: DefaultAttempts,
		Delay:    DefaultDelay,
		Logger:   logger,
	}
}

// Download fetches url into path and returns the number of bytes written.
// A 404 yields a NOT_FOUND error; 429, 5xx and transport failures are retried
// and reported as NETWORK_ERROR once attempts run out.
func (c *Client) Download(ctx context.Context, url, path string) (int64, error) {
	var n int64
	err := Retry(ctx, c.Attempts, c.Delay, func() error {
		var err error
		n, err = c.fetch(ctx, url, path)
		if err != nil && IsRetryable(err) {
			c.Logger.Warn("download failed, retrying", "url", url, "error", err)
		}
		return err
	})
	if IsRetryable(err) {
		return 0, errors.Wrap(errors.ErrCodeNetwork, err, "download %s", url)
	}
	return n, err
}

func (c *Client) fetch(ctx context.Context, url, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidSource, err, "bad url %q", url)
	}
	for k, v := range c.Header {
		req.Header[k] = v
	}

	hooks := observability.HTTP()
	host, p := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, req.Method, host, p)
	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, p, err)
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, Retryable(err)
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, host, p, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return 0, errors.New(errors.ErrCodeNotFound, "%s: not found", url)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return 0, Retryable(fmt.Errorf("%s: %s", url, resp.Status))
	default:
		return 0, errors.New(errors.ErrCodeNetwork, "%s: %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, Retryable(err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	return n, nil
}
