// Package covers keeps a local copy of book cover images fetched by ISBN.
package covers

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoCover is returned when the cover service has no image for the ISBN.
var ErrNoCover = errors.New("cover not available")

// Cache fetches medium-size covers from an Open Library compatible cover
// service and stores them on disk.
type Cache struct {
	cacheDir   string
	baseURL    string
	httpClient *http.Client
}

// NewCache creates the cache directory if needed.
func NewCache(cacheDir, baseURL string) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	return &Cache{
		cacheDir: cacheDir,
		baseURL:  strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// CoverURL is the remote address of the cover for isbn.
func (c *Cache) CoverURL(isbn string) string {
	return fmt.Sprintf("%s/b/isbn/%s-M.jpg?default=false", c.baseURL, url.PathEscape(isbn))
}

// GetCover returns the path of the cached cover for isbn, downloading it
// on first use. An empty isbn yields an empty path.
func (c *Cache) GetCover(ctx context.Context, isbn string) (string, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return "", nil
	}

	cachePath := filepath.Join(c.cacheDir, c.coverFilename(isbn))
	if _, err := os.Stat(cachePath); err == nil {
		return cachePath, nil
	}

	if err := c.fetchAndCache(ctx, c.CoverURL(isbn), cachePath); err != nil {
		return "", err
	}
	return cachePath, nil
}

// coverFilename hashes the ISBN so user input never reaches the file system.
func (c *Cache) coverFilename(isbn string) string {
	hash := sha256.Sum256([]byte(isbn))
	return fmt.Sprintf("cover_%x.jpg", hash[:8])
}

func (c *Cache) fetchAndCache(ctx context.Context, coverURL, cachePath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "LocalLibrary/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNoCover
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("failed to fetch cover: status %d", resp.StatusCode)
	}

	// write to a temp file in the same directory so the rename is atomic
	tmpFile, err := os.CreateTemp(c.cacheDir, "cover_tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, cachePath)
}

// CacheDir returns the cache directory path.
func (c *Cache) CacheDir() string {
	return c.cacheDir
}
