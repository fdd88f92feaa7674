// Package cache persists fetched job pages on disk so repeated extractions
// of the same posting revalidate with conditional requests instead of
// re-downloading. Job boards rotate markup rarely but throttle aggressively;
// a 304 round trip is much cheaper than another full page against a
// rate-limited host.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// HTTPEntry captures enough metadata to support conditional revalidation and
// to return a cached page without hitting the network.
type HTTPEntry struct {
	URL          string    `json:"url"`
	ContentType  string    `json:"content_type"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"last_modified"`
	SavedAt      time.Time `json:"saved_at"`
}

// HTTPCache stores pages on disk as <key>.meta.json and <key>.body where key
// is sha256 of the URL. Entries never expire on their own; PurgeByAge and
// ClearDir handle maintenance.
type HTTPCache struct {
	Dir string
}

func (c *HTTPCache) ensureDir() error {
	if c == nil || c.Dir == "" {
		return errors.New("cache dir not configured")
	}
	return os.MkdirAll(c.Dir, 0o755)
}

func (c *HTTPCache) key(url string) string {
	h := sha256.Sum256([]byte(url))
	return hex.EncodeToString(h[:])
}

func (c *HTTPCache) metaPath(key string) string { return filepath.Join(c.Dir, key+".meta.json") }
func (c *HTTPCache) bodyPath(key string) string { return filepath.Join(c.Dir, key+".body") }

// LoadMeta returns entry metadata if present.
func (c *HTTPCache) LoadMeta(_ context.Context, url string) (*HTTPEntry, error) {
	if err := c.ensureDir(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(c.metaPath(c.key(url)))
	if err != nil {
		return nil, err
	}
	var e HTTPEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// LoadBody returns the cached page if present.
func (c *HTTPCache) LoadBody(_ context.Context, url string) ([]byte, error) {
	if err := c.ensureDir(); err != nil {
		return nil, err
	}
	return os.ReadFile(c.bodyPath(c.key(url)))
}

// Save stores a page and its revalidation metadata. The body lands first and
// the meta file is renamed into place, so a crash can leave an orphan body
// but never a meta file pointing at a missing one.
func (c *HTTPCache) Save(_ context.Context, url, contentType, etag, lastModified string, body []byte) error {
	if err := c.ensureDir(); err != nil {
		return err
	}
	key := c.key(url)
	if err := os.WriteFile(c.bodyPath(key), body, 0o644); err != nil {
		return fmt.Errorf("write body: %w", err)
	}

	meta, err := json.Marshal(HTTPEntry{
		URL:          url,
		ContentType:  contentType,
		ETag:         etag,
		LastModified: lastModified,
		SavedAt:      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	tmp := c.metaPath(key) + ".tmp"
	if err := os.WriteFile(tmp, meta, 0o644); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return os.Rename(tmp, c.metaPath(key))
}
