package httpupdate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"video-to-mp3/domain/update"
)

const userAgent = "video-to-mp3"

// maxManifestBytes bounds how much of the manifest response is read
const maxManifestBytes = 64 << 10

// Client fetches the update manifest and downloads release binaries
type Client struct {
	manifestURL string
	timeout     time.Duration
	http        *http.Client
}

// ClientOption is a functional option for configuring Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client (for testing)
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithTimeout bounds the manifest request
func WithTimeout(d time.Duration) ClientOption {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// NewClient creates a client for the manifest at manifestURL
func NewClient(manifestURL string, opts ...ClientOption) *Client {
	c := &Client{
		manifestURL: manifestURL,
		timeout:     5 * time.Second,
		http:        http.DefaultClient,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Fetch implements update.ManifestSource
func (c *Client) Fetch(ctx context.Context) (update.Manifest, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.manifestURL, nil)
	if err != nil {
		return update.Manifest{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return update.Manifest{}, fmt.Errorf("request manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return update.Manifest{}, fmt.Errorf("unexpected HTTP status: %s", resp.Status)
	}

	var m update.Manifest
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxManifestBytes)).Decode(&m); err != nil {
		return update.Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return update.Manifest{}, err
	}

	return m, nil
}

// Download implements update.Downloader. The binary is written to a
// temporary file and renamed onto destPath only when complete.
func (c *Client) Download(ctx context.Context, url, destPath string, onProgress func(float64)) error {
	if onProgress == nil {
		onProgress = func(float64) {}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("prepare destination directory: %w", err)
	}

	tmpPath := destPath + ".download"
	if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale temp file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected HTTP status: %s", resp.Status)
	}

	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}

	written, copyErr := io.Copy(file, &progressReader{r: resp.Body, total: resp.ContentLength, report: onProgress})
	closeErr := file.Close()
	if copyErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write destination file: %w", copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close destination file: %w", closeErr)
	}
	if written == 0 {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("downloaded file is empty")
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("download truncated: got %d of %d bytes", written, resp.ContentLength)
	}

	if err := os.Remove(destPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("remove old destination file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("move downloaded file into place: %w", err)
	}

	onProgress(1)
	return nil
}

// progressReader reports the fraction of total bytes read so far
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	report func(float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 && n > 0 {
		p.report(float64(p.read) / float64(p.total))
	}
	return n, err
}

// Ensure Client implements update.ManifestSource and update.Downloader
var (
	_ update.ManifestSource = (*Client)(nil)
	_ update.Downloader     = (*Client)(nil)
)
