package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()
	c := &HTTPCache{Dir: t.TempDir()}
	ctx := context.Background()

	url := "https://www.indeed.com/viewjob?jk=abc123"
	body := []byte("<html><body>posting</body></html>")
	if err := c.Save(ctx, url, "text/html; charset=utf-8", `W/"v1"`, "Mon, 02 Jan 2006 15:04:05 GMT", body); err != nil {
		t.Fatalf("save: %v", err)
	}

	meta, err := c.LoadMeta(ctx, url)
	if err != nil {
		t.Fatalf("load meta: %v", err)
	}
	if meta.ETag != `W/"v1"` || meta.ContentType != "text/html; charset=utf-8" {
		t.Fatalf("meta = %+v", meta)
	}
	if meta.SavedAt.IsZero() {
		t.Fatalf("SavedAt not stamped")
	}

	got, err := c.LoadBody(ctx, url)
	if err != nil {
		t.Fatalf("load body: %v", err)
	}
	if string(got) != string(body) {
		t.Fatalf("body = %q", got)
	}
}

func TestLoadMetaMissing(t *testing.T) {
	t.Parallel()
	c := &HTTPCache{Dir: t.TempDir()}
	if _, err := c.LoadMeta(context.Background(), "https://example.com/none"); err == nil {
		t.Fatalf("expected error for missing entry")
	}
}

func TestSaveOverwritesEntry(t *testing.T) {
	t.Parallel()
	c := &HTTPCache{Dir: t.TempDir()}
	ctx := context.Background()
	url := "https://example.com/job"

	if err := c.Save(ctx, url, "text/html", `"a"`, "", []byte("old")); err != nil {
		t.Fatalf("save old: %v", err)
	}
	if err := c.Save(ctx, url, "text/html", `"b"`, "", []byte("new")); err != nil {
		t.Fatalf("save new: %v", err)
	}

	meta, err := c.LoadMeta(ctx, url)
	if err != nil {
		t.Fatalf("load meta: %v", err)
	}
	if meta.ETag != `"b"` {
		t.Fatalf("etag = %q, want the newer entry", meta.ETag)
	}
	body, _ := c.LoadBody(ctx, url)
	if string(body) != "new" {
		t.Fatalf("body = %q", body)
	}
}

func TestUnconfiguredCacheErrors(t *testing.T) {
	t.Parallel()
	var c *HTTPCache
	if _, err := c.LoadMeta(context.Background(), "https://example.com"); err == nil {
		t.Fatalf("nil cache should error, not panic")
	}
	c = &HTTPCache{}
	if err := c.Save(context.Background(), "https://example.com", "", "", "", nil); err == nil {
		t.Fatalf("empty dir should error")
	}
}

func TestPurgeByAge(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	c := &HTTPCache{Dir: dir}
	ctx := context.Background()

	if err := c.Save(ctx, "https://example.com/old", "text/html", "", "", []byte("old")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := c.Save(ctx, "https://example.com/fresh", "text/html", "", "", []byte("fresh")); err != nil {
		t.Fatalf("save: %v", err)
	}
	backdate(t, dir, "https://example.com/old", time.Now().Add(-48*time.Hour))

	removed, err := PurgeByAge(dir, 24*time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := c.LoadBody(ctx, "https://example.com/old"); err == nil {
		t.Fatalf("expired body should be gone")
	}
	if _, err := c.LoadBody(ctx, "https://example.com/fresh"); err != nil {
		t.Fatalf("fresh entry should survive: %v", err)
	}
}

func TestPurgeByAgeDisabled(t *testing.T) {
	t.Parallel()
	removed, err := PurgeByAge(t.TempDir(), 0)
	if err != nil || removed != 0 {
		t.Fatalf("zero maxAge should be a no-op, got %d %v", removed, err)
	}
}

func TestClearDir(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "cache")
	c := &HTTPCache{Dir: dir}
	if err := c.Save(context.Background(), "https://example.com/x", "text/html", "", "", []byte("x")); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := ClearDir(dir); err != nil {
		t.Fatalf("clear: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("dir should be recreated: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("dir not empty after clear: %d entries", len(entries))
	}

	if err := ClearDir(" "); err == nil {
		t.Fatalf("blank dir must be rejected")
	}
}

// backdate rewrites the meta file for url with an older SavedAt stamp.
func backdate(t *testing.T, dir, url string, at time.Time) {
	t.Helper()
	c := &HTTPCache{Dir: dir}
	meta, err := c.LoadMeta(context.Background(), url)
	if err != nil {
		t.Fatalf("load meta: %v", err)
	}
	meta.SavedAt = at.UTC()

	sum := sha256.Sum256([]byte(url))
	path := filepath.Join(dir, hex.EncodeToString(sum[:])+".meta.json")
	b, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("marshal meta: %v", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("write meta: %v", err)
	}
}
